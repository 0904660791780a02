package risk

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/risk-service/risk_service/internal/domain/entities"
	"github.com/risk-service/risk_service/internal/domain/repositories"
	apperrors "github.com/risk-service/risk_service/pkg/errors"
	"github.com/risk-service/risk_service/pkg/logger"
	"github.com/risk-service/risk_service/pkg/metrics"
)

// Options carries the tunable defaults for the orchestrator.
type Options struct {
	// DefaultWindowSize is the lookback window when the request leaves it
	// unset (trading days).
	DefaultWindowSize int
	// DefaultSimulations is the Monte Carlo simulation count default.
	DefaultSimulations int
	// BufferDays widens the price fetch range to absorb non-trading days.
	BufferDays int
	// RunTimeout bounds one run's computation; zero disables the bound.
	RunTimeout time.Duration
}

// RunRequest is a validated request for one risk calculation.
type RunRequest struct {
	Method           entities.VarMethod
	ConfidenceLevels []float64
	WindowSize       int
	Simulations      int
	Seed             *int64
	AsOf             time.Time
}

// Service orchestrates risk runs: it validates the request, snapshots the
// portfolio and price data once, drives the engine and decomposer, and
// records the run lifecycle.
type Service struct {
	portfolios repositories.PortfolioRepository
	prices     repositories.PriceRepository
	runs       repositories.RiskRunRepository
	engine     *Engine
	opts       Options
	logger     *logger.Logger
}

// NewService creates a new risk run orchestrator.
func NewService(
	portfolios repositories.PortfolioRepository,
	prices repositories.PriceRepository,
	runs repositories.RiskRunRepository,
	engine *Engine,
	opts Options,
	logger *logger.Logger,
) *Service {
	if opts.DefaultWindowSize <= 0 {
		opts.DefaultWindowSize = 252
	}
	if opts.DefaultSimulations <= 0 {
		opts.DefaultSimulations = 10000
	}
	if opts.BufferDays <= 0 {
		opts.BufferDays = 30
	}
	return &Service{
		portfolios: portfolios,
		prices:     prices,
		runs:       runs,
		engine:     engine,
		opts:       opts,
		logger:     logger,
	}
}

// Run executes one risk calculation for the portfolio and returns the
// terminal run record. A computation failure still persists the run in FAILED
// with its error message and execution time; the triggering error is returned
// alongside the record.
func (s *Service) Run(ctx context.Context, portfolioID uuid.UUID, req RunRequest) (*entities.RiskRun, error) {
	if err := s.normalize(&req); err != nil {
		return nil, err
	}

	s.logger.CtxInfo(ctx, "Starting risk run",
		"portfolio_id", portfolioID.String(),
		"method", string(req.Method),
		"window_size", req.WindowSize)

	portfolio, err := s.portfolios.GetWithPositions(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	portfolioValue := portfolio.Value()
	if len(portfolio.Positions) == 0 || !portfolioValue.IsPositive() {
		return nil, apperrors.Validation("portfolio has no positions with market value")
	}

	now := time.Now()
	seed := now.UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}

	run := &entities.RiskRun{
		ID:              uuid.New(),
		PortfolioID:     portfolio.ID,
		RunDate:         normalizeDate(req.AsOf),
		Method:          req.Method,
		ConfidenceLevel: decimal.NewFromFloat(req.ConfidenceLevels[0]),
		WindowSize:      req.WindowSize,
		Simulations:     req.Simulations,
		Seed:            seed,
		PortfolioValue:  portfolioValue,
		Status:          entities.RunStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	run.Status = entities.RunStatusRunning
	run.UpdatedAt = time.Now()
	if err := s.runs.Update(ctx, run); err != nil {
		return nil, err
	}

	started := time.Now()

	runCtx := ctx
	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}

	estimate, contributions, calcErr := s.calculate(runCtx, portfolio, portfolioValue.InexactFloat64(), req, seed)
	run.ExecutionTimeMs = time.Since(started).Milliseconds()

	if calcErr != nil {
		return s.fail(ctx, run, calcErr)
	}

	rows := breakdownRows(run.ID, contributions)
	run.Var95 = moneyPtr(estimate.Var95)
	run.Var99 = moneyPtr(estimate.Var99)
	run.ExpectedShortfall95 = moneyPtr(estimate.ES95)
	run.ExpectedShortfall99 = moneyPtr(estimate.ES99)
	run.PortfolioVolatility = statPtr(estimate.Volatility)
	run.Status = entities.RunStatusCompleted
	run.UpdatedAt = time.Now()
	run.Breakdowns = rows

	// The COMPLETED transition and the breakdown rows commit together; a
	// persistence failure leaves neither behind and the run goes to FAILED.
	if err := s.runs.Complete(ctx, run, rows); err != nil {
		run.Var95 = nil
		run.Var99 = nil
		run.ExpectedShortfall95 = nil
		run.ExpectedShortfall99 = nil
		run.PortfolioVolatility = nil
		return s.fail(ctx, run, err)
	}

	metrics.RecordRiskRun(string(run.Method), string(run.Status), float64(run.ExecutionTimeMs)/1000)
	s.logger.CtxInfo(ctx, "Risk run completed",
		"run_id", run.ID.String(),
		"portfolio_id", portfolio.ID.String(),
		"execution_time_ms", run.ExecutionTimeMs)

	return run, nil
}

// GetRun returns a run with its breakdown rows.
func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*entities.RiskRun, error) {
	return s.runs.GetWithBreakdowns(ctx, id)
}

// ListRuns returns the portfolio's runs, newest first.
func (s *Service) ListRuns(ctx context.Context, portfolioID uuid.UUID, limit, offset int) ([]*entities.RiskRun, error) {
	if _, err := s.portfolios.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}
	return s.runs.ListByPortfolioID(ctx, portfolioID, limit, offset)
}

// calculate performs the snapshot fetch and the full estimation pipeline.
// All price data is fetched exactly once here; nothing downstream re-reads,
// so a concurrent price update cannot split one run across two snapshots.
func (s *Service) calculate(ctx context.Context, portfolio *entities.Portfolio, portfolioValue float64, req RunRequest, seed int64) (*Estimate, []Contribution, error) {
	to := normalizeDate(req.AsOf).AddDate(0, 0, -1)
	from := to.AddDate(0, 0, -(req.WindowSize + s.opts.BufferDays))

	histories := make([]InstrumentHistory, 0, len(portfolio.Positions))
	for _, pos := range portfolio.Positions {
		bars, err := s.prices.GetRange(ctx, pos.InstrumentID, from, to)
		if err != nil {
			return nil, nil, err
		}
		symbol := ""
		if pos.Instrument != nil {
			symbol = pos.Instrument.Symbol
		}
		histories = append(histories, InstrumentHistory{
			InstrumentID: pos.InstrumentID,
			Symbol:       symbol,
			Weight:       pos.MarketValue.InexactFloat64() / portfolioValue,
			Bars:         bars,
		})
	}

	series, err := BuildReturnSeries(histories, req.WindowSize)
	if err != nil {
		return nil, nil, err
	}
	metrics.ReturnSeriesLength.Observe(float64(len(series.Portfolio)))

	estimate, err := s.engine.Estimate(ctx, req.Method, series.Portfolio, portfolioValue, req.Simulations, seed)
	if err != nil {
		return nil, nil, err
	}

	primary := req.ConfidenceLevels[0]
	primaryVaR, err := s.engine.VaRAt(ctx, req.Method, series.Portfolio, portfolioValue, primary, req.Simulations, seed)
	if err != nil {
		return nil, nil, err
	}

	components := make([]ComponentInput, 0, len(histories))
	for _, pos := range portfolio.Positions {
		symbol := ""
		if pos.Instrument != nil {
			symbol = pos.Instrument.Symbol
		}
		components = append(components, ComponentInput{
			InstrumentID:  pos.InstrumentID,
			Symbol:        symbol,
			PositionValue: pos.MarketValue.InexactFloat64(),
			Weight:        pos.MarketValue.InexactFloat64() / portfolioValue,
			Returns:       series.ByInstrument[pos.InstrumentID],
		})
	}

	contributions, err := s.engine.Decompose(ctx, req.Method, series.Portfolio, primaryVaR, primary, components, req.Simulations, seed)
	if err != nil {
		return nil, nil, err
	}

	return estimate, contributions, nil
}

// fail transitions the run to FAILED with the triggering error's message.
// Breakdown rows are never persisted for failed runs.
func (s *Service) fail(ctx context.Context, run *entities.RiskRun, cause error) (*entities.RiskRun, error) {
	if errors.Is(cause, context.DeadlineExceeded) {
		cause = apperrors.Timeout("risk run timed out")
	}

	run.Status = entities.RunStatusFailed
	run.ErrorMessage = cause.Error()
	run.UpdatedAt = time.Now()
	run.Breakdowns = nil

	if err := s.runs.Update(ctx, run); err != nil {
		s.logger.CtxError(ctx, "Failed to persist failed risk run",
			"run_id", run.ID.String(), "error", err)
	}

	metrics.RecordRiskRun(string(run.Method), string(run.Status), float64(run.ExecutionTimeMs)/1000)
	s.logger.CtxError(ctx, "Risk run failed",
		"run_id", run.ID.String(),
		"portfolio_id", run.PortfolioID.String(),
		"error", cause)

	return run, cause
}

// normalize validates the request and fills in configured defaults.
func (s *Service) normalize(req *RunRequest) error {
	if !req.Method.Valid() {
		return apperrors.Validationf("unsupported VaR method: %s", req.Method)
	}
	if len(req.ConfidenceLevels) == 0 {
		return apperrors.Validation("at least one confidence level is required")
	}
	for _, cl := range req.ConfidenceLevels {
		if cl < 0.01 || cl > 0.99 {
			return apperrors.Validationf("confidence level must be in [0.01, 0.99], got %v", cl)
		}
	}
	if req.WindowSize == 0 {
		req.WindowSize = s.opts.DefaultWindowSize
	}
	if req.WindowSize < 1 {
		return apperrors.Validationf("window size must be >= 1, got %d", req.WindowSize)
	}
	if req.Simulations == 0 {
		req.Simulations = s.opts.DefaultSimulations
	}
	if req.Simulations < 1 {
		return apperrors.Validationf("simulation count must be >= 1, got %d", req.Simulations)
	}
	if req.AsOf.IsZero() {
		req.AsOf = time.Now()
	}
	return nil
}

// breakdownRows converts engine contributions into persistable rows with
// boundary rounding: 4 decimals for money, 6 for statistics, 2 for the
// contribution percentage, all half-up.
func breakdownRows(runID uuid.UUID, contributions []Contribution) []*entities.RiskBreakdown {
	now := time.Now()
	rows := make([]*entities.RiskBreakdown, len(contributions))
	for i, c := range contributions {
		rows[i] = &entities.RiskBreakdown{
			ID:              uuid.New(),
			RiskRunID:       runID,
			InstrumentID:    c.InstrumentID,
			Symbol:          c.Symbol,
			PositionValue:   money(c.PositionValue),
			Weight:          stat(c.Weight),
			MarginalVar:     money(c.MarginalVar),
			ComponentVar:    money(c.ComponentVar),
			IndividualVar:   money(c.IndividualVar),
			Volatility:      stat(c.Volatility),
			Beta:            stat(c.Beta),
			Correlation:     stat(c.Correlation),
			ContributionPct: decimal.NewFromFloat(c.ContributionPct).Round(2),
			CreatedAt:       now,
		}
	}
	return rows
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(4)
}

func stat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(6)
}

func moneyPtr(v float64) *decimal.Decimal {
	d := money(v)
	return &d
}

func statPtr(v float64) *decimal.Decimal {
	d := stat(v)
	return &d
}
