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

// PortfolioRepository implements the portfolio repository interface using PostgreSQL
type PortfolioRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *sqlx.DB, logger *zap.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new portfolio
func (r *PortfolioRepository) Create(ctx context.Context, portfolio *entities.Portfolio) error {
	query := `
		INSERT INTO portfolios (
			id, name, description, base_currency, status, created_at, updated_at
		) VALUES (
			:id, :name, :description, :base_currency, :status, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, portfolio); err != nil {
		r.logger.Error("Failed to create portfolio", zap.Error(err), zap.String("name", portfolio.Name))
		return fmt.Errorf("failed to create portfolio: %w", err)
	}

	r.logger.Debug("Portfolio created", zap.String("portfolio_id", portfolio.ID.String()))
	return nil
}

// GetByID retrieves a portfolio without positions
func (r *PortfolioRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Portfolio, error) {
	query := `
		SELECT id, name, description, base_currency, status, created_at, updated_at
		FROM portfolios
		WHERE id = $1`

	portfolio := &entities.Portfolio{}
	if err := r.db.GetContext(ctx, portfolio, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFoundf("portfolio %s not found", id)
		}
		r.logger.Error("Failed to get portfolio", zap.Error(err), zap.String("portfolio_id", id.String()))
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	return portfolio, nil
}

// GetWithPositions retrieves a portfolio with its positions and their instruments
func (r *PortfolioRepository) GetWithPositions(ctx context.Context, id uuid.UUID) (*entities.Portfolio, error) {
	started := time.Now()

	portfolio, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT p.id, p.portfolio_id, p.instrument_id, p.quantity, p.average_cost,
		       p.market_value, p.weight, p.created_at, p.updated_at,
		       i.id AS "instrument.id", i.symbol AS "instrument.symbol",
		       i.name AS "instrument.name", i.type AS "instrument.type",
		       i.exchange AS "instrument.exchange", i.sector AS "instrument.sector",
		       i.currency AS "instrument.currency",
		       i.created_at AS "instrument.created_at", i.updated_at AS "instrument.updated_at"
		FROM positions p
		JOIN instruments i ON i.id = p.instrument_id
		WHERE p.portfolio_id = $1
		ORDER BY i.symbol`

	rows, err := r.db.QueryxContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to get positions", zap.Error(err), zap.String("portfolio_id", id.String()))
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row struct {
			entities.Position
			Instrument entities.Instrument `db:"instrument"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		position := row.Position
		instrument := row.Instrument
		position.Instrument = &instrument
		portfolio.Positions = append(portfolio.Positions, &position)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate positions: %w", err)
	}

	metrics.RecordDatabaseQuery("select_with_positions", "portfolios", time.Since(started).Seconds())
	return portfolio, nil
}

// List returns all portfolios newest first, without positions
func (r *PortfolioRepository) List(ctx context.Context) ([]*entities.Portfolio, error) {
	query := `
		SELECT id, name, description, base_currency, status, created_at, updated_at
		FROM portfolios
		ORDER BY created_at DESC`

	portfolios := []*entities.Portfolio{}
	if err := r.db.SelectContext(ctx, &portfolios, query); err != nil {
		r.logger.Error("Failed to list portfolios", zap.Error(err))
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}

	return portfolios, nil
}

// Update rewrites the portfolio's mutable fields
func (r *PortfolioRepository) Update(ctx context.Context, portfolio *entities.Portfolio) error {
	query := `
		UPDATE portfolios
		SET name = :name, description = :description, base_currency = :base_currency,
		    status = :status, updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, portfolio)
	if err != nil {
		r.logger.Error("Failed to update portfolio", zap.Error(err), zap.String("portfolio_id", portfolio.ID.String()))
		return fmt.Errorf("failed to update portfolio: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFoundf("portfolio %s not found", portfolio.ID)
	}

	return nil
}

// Delete removes a portfolio; positions and risk history cascade
func (r *PortfolioRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM portfolios WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete portfolio", zap.Error(err), zap.String("portfolio_id", id.String()))
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFoundf("portfolio %s not found", id)
	}

	return nil
}
