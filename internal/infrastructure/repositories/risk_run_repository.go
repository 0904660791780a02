package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/risk-service/risk_service/internal/domain/entities"
	apperrors "github.com/risk-service/risk_service/pkg/errors"
	"github.com/risk-service/risk_service/pkg/metrics"
)

// RiskRunRepository implements the risk run repository interface using PostgreSQL
type RiskRunRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewRiskRunRepository creates a new risk run repository
func NewRiskRunRepository(db *sqlx.DB, logger *zap.Logger) *RiskRunRepository {
	return &RiskRunRepository{
		db:     db,
		logger: logger,
	}
}

const riskRunColumns = `
	id, portfolio_id, run_date, var_method, confidence_level, window_size,
	simulations, seed, var_95, var_99, expected_shortfall_95, expected_shortfall_99,
	portfolio_value, portfolio_volatility, status, error_message, execution_time_ms,
	created_at, updated_at`

// Create inserts a new risk run record
func (r *RiskRunRepository) Create(ctx context.Context, run *entities.RiskRun) error {
	query := `
		INSERT INTO risk_runs (
			id, portfolio_id, run_date, var_method, confidence_level, window_size,
			simulations, seed, portfolio_value, status, error_message,
			execution_time_ms, created_at, updated_at
		) VALUES (
			:id, :portfolio_id, :run_date, :var_method, :confidence_level, :window_size,
			:simulations, :seed, :portfolio_value, :status, :error_message,
			:execution_time_ms, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		r.logger.Error("Failed to create risk run", zap.Error(err),
			zap.String("portfolio_id", run.PortfolioID.String()))
		return fmt.Errorf("failed to create risk run: %w", err)
	}

	r.logger.Debug("Risk run created", zap.String("run_id", run.ID.String()))
	return nil
}

// GetByID retrieves a run without breakdown rows
func (r *RiskRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.RiskRun, error) {
	query := `SELECT ` + riskRunColumns + ` FROM risk_runs WHERE id = $1`

	run := &entities.RiskRun{}
	if err := r.db.GetContext(ctx, run, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFoundf("risk run %s not found", id)
		}
		r.logger.Error("Failed to get risk run", zap.Error(err), zap.String("run_id", id.String()))
		return nil, fmt.Errorf("failed to get risk run: %w", err)
	}

	return run, nil
}

// GetWithBreakdowns retrieves a run with its breakdown rows
func (r *RiskRunRepository) GetWithBreakdowns(ctx context.Context, id uuid.UUID) (*entities.RiskRun, error) {
	run, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, risk_run_id, instrument_id, symbol, position_value, weight,
		       marginal_var, component_var, individual_var, volatility, beta,
		       correlation, contribution_pct, created_at
		FROM risk_breakdowns
		WHERE risk_run_id = $1
		ORDER BY contribution_pct DESC`

	breakdowns := []*entities.RiskBreakdown{}
	if err := r.db.SelectContext(ctx, &breakdowns, query, id); err != nil {
		r.logger.Error("Failed to get risk breakdowns", zap.Error(err), zap.String("run_id", id.String()))
		return nil, fmt.Errorf("failed to get risk breakdowns: %w", err)
	}
	run.Breakdowns = breakdowns

	return run, nil
}

// ListByPortfolioID returns the portfolio's runs newest first
func (r *RiskRunRepository) ListByPortfolioID(ctx context.Context, portfolioID uuid.UUID, limit, offset int) ([]*entities.RiskRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + riskRunColumns + `
		FROM risk_runs
		WHERE portfolio_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	runs := []*entities.RiskRun{}
	if err := r.db.SelectContext(ctx, &runs, query, portfolioID, limit, offset); err != nil {
		r.logger.Error("Failed to list risk runs", zap.Error(err),
			zap.String("portfolio_id", portfolioID.String()))
		return nil, fmt.Errorf("failed to list risk runs: %w", err)
	}

	return runs, nil
}

// Update rewrites the run's lifecycle and result fields
func (r *RiskRunRepository) Update(ctx context.Context, run *entities.RiskRun) error {
	query := `
		UPDATE risk_runs
		SET var_95 = :var_95, var_99 = :var_99,
		    expected_shortfall_95 = :expected_shortfall_95,
		    expected_shortfall_99 = :expected_shortfall_99,
		    portfolio_volatility = :portfolio_volatility,
		    status = :status, error_message = :error_message,
		    execution_time_ms = :execution_time_ms, updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, run)
	if err != nil {
		r.logger.Error("Failed to update risk run", zap.Error(err), zap.String("run_id", run.ID.String()))
		return fmt.Errorf("failed to update risk run: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFoundf("risk run %s not found", run.ID)
	}

	return nil
}

// Complete persists the run's COMPLETED transition and its breakdown rows in
// one transaction, so no breakdown row can outlive a run that never completed
func (r *RiskRunRepository) Complete(ctx context.Context, run *entities.RiskRun, rows []*entities.RiskBreakdown) error {
	started := time.Now()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	updateQuery := `
		UPDATE risk_runs
		SET var_95 = :var_95, var_99 = :var_99,
		    expected_shortfall_95 = :expected_shortfall_95,
		    expected_shortfall_99 = :expected_shortfall_99,
		    portfolio_volatility = :portfolio_volatility,
		    status = :status, error_message = :error_message,
		    execution_time_ms = :execution_time_ms, updated_at = :updated_at
		WHERE id = :id`

	result, err := tx.NamedExecContext(ctx, updateQuery, run)
	if err != nil {
		r.logger.Error("Failed to complete risk run", zap.Error(err), zap.String("run_id", run.ID.String()))
		return fmt.Errorf("failed to complete risk run: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperrors.NotFoundf("risk run %s not found", run.ID)
	}

	insertQuery := `
		INSERT INTO risk_breakdowns (
			id, risk_run_id, instrument_id, symbol, position_value, weight,
			marginal_var, component_var, individual_var, volatility, beta,
			correlation, contribution_pct, created_at
		) VALUES (
			:id, :risk_run_id, :instrument_id, :symbol, :position_value, :weight,
			:marginal_var, :component_var, :individual_var, :volatility, :beta,
			:correlation, :contribution_pct, :created_at
		)`

	for _, row := range rows {
		if _, err := tx.NamedExecContext(ctx, insertQuery, row); err != nil {
			r.logger.Error("Failed to save risk breakdown", zap.Error(err),
				zap.String("run_id", run.ID.String()))
			return fmt.Errorf("failed to save risk breakdown: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit risk run completion: %w", err)
	}

	metrics.RecordDatabaseQuery("complete", "risk_runs", time.Since(started).Seconds())
	return nil
}

// FailStale fails runs stuck in PENDING or RUNNING since before the cutoff.
// PENDING is included because a crash between run creation and the RUNNING
// transition would otherwise strand the run forever.
func (r *RiskRunRepository) FailStale(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	query := `
		UPDATE risk_runs
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE status IN ($3, $4) AND updated_at < $5`

	result, err := r.db.ExecContext(ctx, query,
		entities.RunStatusFailed, message,
		entities.RunStatusPending, entities.RunStatusRunning, cutoff)
	if err != nil {
		r.logger.Error("Failed to sweep stale risk runs", zap.Error(err))
		return 0, fmt.Errorf("failed to sweep stale risk runs: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stale sweep rows affected: %w", err)
	}
	if affected > 0 {
		r.logger.Warn("Swept stale risk runs", zap.Int64("count", affected))
	}
	return affected, nil
}
