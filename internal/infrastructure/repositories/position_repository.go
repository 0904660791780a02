package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/risk-service/risk_service/internal/domain/entities"
	apperrors "github.com/risk-service/risk_service/pkg/errors"
)

// PositionRepository implements the position repository interface using PostgreSQL
type PositionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sqlx.DB, logger *zap.Logger) *PositionRepository {
	return &PositionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new position
func (r *PositionRepository) Create(ctx context.Context, position *entities.Position) error {
	query := `
		INSERT INTO positions (
			id, portfolio_id, instrument_id, quantity, average_cost,
			market_value, weight, created_at, updated_at
		) VALUES (
			:id, :portfolio_id, :instrument_id, :quantity, :average_cost,
			:market_value, :weight, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, position); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return apperrors.New(apperrors.ErrCodeDuplicate, "position for instrument already exists in portfolio")
		}
		r.logger.Error("Failed to create position", zap.Error(err),
			zap.String("portfolio_id", position.PortfolioID.String()))
		return fmt.Errorf("failed to create position: %w", err)
	}

	return nil
}

// GetByPortfolioID returns the portfolio's positions ordered by instrument
func (r *PositionRepository) GetByPortfolioID(ctx context.Context, portfolioID uuid.UUID) ([]*entities.Position, error) {
	query := `
		SELECT id, portfolio_id, instrument_id, quantity, average_cost,
		       market_value, weight, created_at, updated_at
		FROM positions
		WHERE portfolio_id = $1
		ORDER BY instrument_id`

	positions := []*entities.Position{}
	if err := r.db.SelectContext(ctx, &positions, query, portfolioID); err != nil {
		r.logger.Error("Failed to get positions", zap.Error(err),
			zap.String("portfolio_id", portfolioID.String()))
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}

	return positions, nil
}

// GetByPortfolioAndInstrument returns the single position for an instrument in a portfolio
func (r *PositionRepository) GetByPortfolioAndInstrument(ctx context.Context, portfolioID, instrumentID uuid.UUID) (*entities.Position, error) {
	query := `
		SELECT id, portfolio_id, instrument_id, quantity, average_cost,
		       market_value, weight, created_at, updated_at
		FROM positions
		WHERE portfolio_id = $1 AND instrument_id = $2`

	position := &entities.Position{}
	if err := r.db.GetContext(ctx, position, query, portfolioID, instrumentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("position not found")
		}
		r.logger.Error("Failed to get position", zap.Error(err),
			zap.String("portfolio_id", portfolioID.String()))
		return nil, fmt.Errorf("failed to get position: %w", err)
	}

	return position, nil
}

// Update rewrites a position's holdings fields
func (r *PositionRepository) Update(ctx context.Context, position *entities.Position) error {
	query := `
		UPDATE positions
		SET quantity = :quantity, average_cost = :average_cost,
		    market_value = :market_value, weight = :weight, updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, position)
	if err != nil {
		r.logger.Error("Failed to update position", zap.Error(err),
			zap.String("position_id", position.ID.String()))
		return fmt.Errorf("failed to update position: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFoundf("position %s not found", position.ID)
	}

	return nil
}

// UpdateWeights rewrites market value and weight for every given position in
// one transaction so readers never see a half-reweighted portfolio
func (r *PositionRepository) UpdateWeights(ctx context.Context, positions []*entities.Position) error {
	if len(positions) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE positions
		SET market_value = :market_value, weight = :weight, updated_at = :updated_at
		WHERE id = :id`

	for _, position := range positions {
		if _, err := tx.NamedExecContext(ctx, query, position); err != nil {
			r.logger.Error("Failed to update position weight", zap.Error(err),
				zap.String("position_id", position.ID.String()))
			return fmt.Errorf("failed to update position weight: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit weight update: %w", err)
	}
	return nil
}
