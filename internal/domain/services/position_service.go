package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/risk-service/risk_service/internal/domain/entities"
	"github.com/risk-service/risk_service/internal/domain/repositories"
	apperrors "github.com/risk-service/risk_service/pkg/errors"
	"github.com/risk-service/risk_service/pkg/logger"
)

// CreatePositionRequest carries the fields for adding a holding. Symbol is
// resolved to an instrument, which is created on first sighting.
type CreatePositionRequest struct {
	Symbol      string          `json:"symbol" binding:"required,min=1,max=20"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	AverageCost decimal.Decimal `json:"average_cost" binding:"required"`
	// Name and Type only matter when the symbol is new.
	Name string                  `json:"name" binding:"max=255"`
	Type entities.InstrumentType `json:"type" binding:"omitempty,oneof=STOCK BOND ETF OPTION FUTURE COMMODITY CURRENCY INDEX"`
}

// PositionService manages portfolio holdings and keeps their market values
// and weights current
type PositionService struct {
	positionRepo   repositories.PositionRepository
	portfolioRepo  repositories.PortfolioRepository
	instrumentRepo repositories.InstrumentRepository
	priceRepo      repositories.PriceRepository
	logger         *logger.Logger
}

// NewPositionService creates a new position service
func NewPositionService(
	positionRepo repositories.PositionRepository,
	portfolioRepo repositories.PortfolioRepository,
	instrumentRepo repositories.InstrumentRepository,
	priceRepo repositories.PriceRepository,
	logger *logger.Logger,
) *PositionService {
	return &PositionService{
		positionRepo:   positionRepo,
		portfolioRepo:  portfolioRepo,
		instrumentRepo: instrumentRepo,
		priceRepo:      priceRepo,
		logger:         logger,
	}
}

// Create adds a holding to the portfolio. Adding a symbol the portfolio
// already holds merges quantities and recomputes the cost-weighted average.
// Portfolio weights are recomputed afterwards.
func (s *PositionService) Create(ctx context.Context, portfolioID uuid.UUID, req CreatePositionRequest) (*entities.Position, error) {
	if err := validatePositionInput(req); err != nil {
		return nil, err
	}

	if _, err := s.portfolioRepo.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}

	instrument, err := s.findOrCreateInstrument(ctx, req)
	if err != nil {
		return nil, err
	}

	position, err := s.upsertPosition(ctx, portfolioID, instrument, req.Quantity, req.AverageCost)
	if err != nil {
		return nil, err
	}

	if err := s.recomputeWeights(ctx, portfolioID); err != nil {
		return nil, err
	}

	s.logger.Info("Created position",
		"portfolio_id", portfolioID.String(),
		"symbol", instrument.Symbol,
		"quantity", req.Quantity.String())
	return position, nil
}

// List returns the portfolio's positions
func (s *PositionService) List(ctx context.Context, portfolioID uuid.UUID) ([]*entities.Position, error) {
	if _, err := s.portfolioRepo.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}
	return s.positionRepo.GetByPortfolioID(ctx, portfolioID)
}

// UploadCSV bulk-loads positions from a CSV stream with columns
// symbol,quantity,average_cost[,name[,type]]. The first row is treated as a
// header and skipped. The whole file is parsed and validated before any row
// is applied, so a malformed line rejects the upload as a unit.
func (s *PositionService) UploadCSV(ctx context.Context, portfolioID uuid.UUID, r io.Reader) ([]*entities.Position, error) {
	if _, err := s.portfolioRepo.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var requests []CreatePositionRequest
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Validationf("malformed CSV at line %d: %v", line+1, err)
		}
		line++
		if line == 1 {
			continue // header
		}

		req, err := parseCSVRow(record)
		if err != nil {
			return nil, apperrors.Validationf("line %d: %v", line, err)
		}
		requests = append(requests, req)
	}

	if len(requests) == 0 {
		return nil, apperrors.Validation("CSV contains no position rows")
	}

	positions := make([]*entities.Position, 0, len(requests))
	for _, req := range requests {
		instrument, err := s.findOrCreateInstrument(ctx, req)
		if err != nil {
			return nil, err
		}
		position, err := s.upsertPosition(ctx, portfolioID, instrument, req.Quantity, req.AverageCost)
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}

	if err := s.recomputeWeights(ctx, portfolioID); err != nil {
		return nil, err
	}

	s.logger.Info("Uploaded positions from CSV",
		"portfolio_id", portfolioID.String(),
		"count", len(positions))
	return positions, nil
}

// RefreshValuation re-prices every position from the latest bar and
// recomputes weights. Called after price ingestion touches a held instrument.
func (s *PositionService) RefreshValuation(ctx context.Context, portfolioID uuid.UUID) error {
	return s.recomputeWeights(ctx, portfolioID)
}

func (s *PositionService) findOrCreateInstrument(ctx context.Context, req CreatePositionRequest) (*entities.Instrument, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))

	instrument, err := s.instrumentRepo.GetBySymbol(ctx, symbol)
	if err == nil {
		return instrument, nil
	}
	if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		return nil, err
	}

	instrumentType := req.Type
	if instrumentType == "" {
		instrumentType = entities.InstrumentTypeStock
	}
	name := req.Name
	if name == "" {
		name = symbol
	}

	now := time.Now()
	instrument = &entities.Instrument{
		ID:        uuid.New(),
		Symbol:    symbol,
		Name:      name,
		Type:      instrumentType,
		Currency:  "USD",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.instrumentRepo.Create(ctx, instrument); err != nil {
		s.logger.Error("Failed to create instrument", "error", err, "symbol", symbol)
		return nil, fmt.Errorf("create instrument: %w", err)
	}

	s.logger.Info("Created instrument", "instrument_id", instrument.ID.String(), "symbol", symbol)
	return instrument, nil
}

func (s *PositionService) upsertPosition(ctx context.Context, portfolioID uuid.UUID, instrument *entities.Instrument, quantity, averageCost decimal.Decimal) (*entities.Position, error) {
	mv, err := s.marketValue(ctx, instrument.ID, quantity, averageCost)
	if err != nil {
		return nil, err
	}

	existing, err := s.positionRepo.GetByPortfolioAndInstrument(ctx, portfolioID, instrument.ID)
	if err != nil {
		if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			return nil, err
		}

		now := time.Now()
		position := &entities.Position{
			ID:           uuid.New(),
			PortfolioID:  portfolioID,
			InstrumentID: instrument.ID,
			Quantity:     quantity,
			AverageCost:  averageCost,
			MarketValue:  mv,
			CreatedAt:    now,
			UpdatedAt:    now,
			Instrument:   instrument,
		}
		if err := s.positionRepo.Create(ctx, position); err != nil {
			return nil, fmt.Errorf("create position: %w", err)
		}
		return position, nil
	}

	// Merge: combined quantity, cost-weighted average cost.
	oldCost := existing.Quantity.Mul(existing.AverageCost)
	newCost := quantity.Mul(averageCost)
	combined := existing.Quantity.Add(quantity)
	if combined.IsZero() {
		return nil, apperrors.Validation("merged position quantity is zero")
	}

	existing.AverageCost = oldCost.Add(newCost).Div(combined).Round(4)
	existing.Quantity = combined
	mv, err = s.marketValue(ctx, instrument.ID, combined, existing.AverageCost)
	if err != nil {
		return nil, err
	}
	existing.MarketValue = mv
	existing.UpdatedAt = time.Now()
	existing.Instrument = instrument

	if err := s.positionRepo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("update position: %w", err)
	}
	return existing, nil
}

// marketValue prices quantity at the latest close, falling back to the
// average cost while the instrument has no price history.
func (s *PositionService) marketValue(ctx context.Context, instrumentID uuid.UUID, quantity, averageCost decimal.Decimal) (decimal.Decimal, error) {
	latest, err := s.priceRepo.GetLatest(ctx, instrumentID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			return quantity.Mul(averageCost).Round(4), nil
		}
		return decimal.Zero, err
	}
	return quantity.Mul(latest.Close).Round(4), nil
}

// recomputeWeights re-prices all positions and rewrites weights so they sum
// to one over the current portfolio value.
func (s *PositionService) recomputeWeights(ctx context.Context, portfolioID uuid.UUID) error {
	positions, err := s.positionRepo.GetByPortfolioID(ctx, portfolioID)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		return nil
	}

	total := decimal.Zero
	for _, pos := range positions {
		mv, err := s.marketValue(ctx, pos.InstrumentID, pos.Quantity, pos.AverageCost)
		if err != nil {
			return err
		}
		pos.MarketValue = mv
		total = total.Add(mv)
	}

	now := time.Now()
	for _, pos := range positions {
		if total.IsPositive() {
			pos.Weight = pos.MarketValue.Div(total).Round(6)
		} else {
			pos.Weight = decimal.Zero
		}
		pos.UpdatedAt = now
	}

	if err := s.positionRepo.UpdateWeights(ctx, positions); err != nil {
		return fmt.Errorf("update weights: %w", err)
	}
	return nil
}

func validatePositionInput(req CreatePositionRequest) error {
	if strings.TrimSpace(req.Symbol) == "" {
		return apperrors.Validation("symbol is required")
	}
	if !req.Quantity.IsPositive() {
		return apperrors.Validationf("quantity must be positive, got %s", req.Quantity)
	}
	if req.AverageCost.IsNegative() {
		return apperrors.Validationf("average cost cannot be negative, got %s", req.AverageCost)
	}
	if req.Type != "" {
		switch req.Type {
		case entities.InstrumentTypeStock, entities.InstrumentTypeBond, entities.InstrumentTypeETF,
			entities.InstrumentTypeOption, entities.InstrumentTypeFuture, entities.InstrumentTypeCommodity,
			entities.InstrumentTypeCurrency, entities.InstrumentTypeIndex:
		default:
			return apperrors.Validationf("unknown instrument type: %s", req.Type)
		}
	}
	return nil
}

func parseCSVRow(record []string) (CreatePositionRequest, error) {
	if len(record) < 3 {
		return CreatePositionRequest{}, fmt.Errorf("expected at least 3 columns (symbol,quantity,average_cost), got %d", len(record))
	}

	quantity, err := decimal.NewFromString(strings.TrimSpace(record[1]))
	if err != nil {
		return CreatePositionRequest{}, fmt.Errorf("invalid quantity %q", record[1])
	}
	cost, err := decimal.NewFromString(strings.TrimSpace(record[2]))
	if err != nil {
		return CreatePositionRequest{}, fmt.Errorf("invalid average cost %q", record[2])
	}

	req := CreatePositionRequest{
		Symbol:      strings.TrimSpace(record[0]),
		Quantity:    quantity,
		AverageCost: cost,
	}
	if len(record) > 3 {
		req.Name = strings.TrimSpace(record[3])
	}
	if len(record) > 4 {
		req.Type = entities.InstrumentType(strings.ToUpper(strings.TrimSpace(record[4])))
	}

	if err := validatePositionInput(req); err != nil {
		return CreatePositionRequest{}, err
	}
	return req, nil
}
