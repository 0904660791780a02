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

// InstrumentRepository implements the instrument repository interface using PostgreSQL
type InstrumentRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewInstrumentRepository creates a new instrument repository
func NewInstrumentRepository(db *sqlx.DB, logger *zap.Logger) *InstrumentRepository {
	return &InstrumentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new instrument
func (r *InstrumentRepository) Create(ctx context.Context, instrument *entities.Instrument) error {
	query := `
		INSERT INTO instruments (
			id, symbol, name, type, exchange, sector, currency, created_at, updated_at
		) VALUES (
			:id, :symbol, :name, :type, :exchange, :sector, :currency, :created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, instrument)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return apperrors.Newf(apperrors.ErrCodeDuplicate, "instrument %s already exists", instrument.Symbol)
		}
		r.logger.Error("Failed to create instrument", zap.Error(err), zap.String("symbol", instrument.Symbol))
		return fmt.Errorf("failed to create instrument: %w", err)
	}

	r.logger.Debug("Instrument created", zap.String("instrument_id", instrument.ID.String()))
	return nil
}

// GetByID retrieves an instrument by ID
func (r *InstrumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Instrument, error) {
	query := `
		SELECT id, symbol, name, type, exchange, sector, currency, created_at, updated_at
		FROM instruments
		WHERE id = $1`

	instrument := &entities.Instrument{}
	if err := r.db.GetContext(ctx, instrument, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFoundf("instrument %s not found", id)
		}
		r.logger.Error("Failed to get instrument", zap.Error(err), zap.String("instrument_id", id.String()))
		return nil, fmt.Errorf("failed to get instrument: %w", err)
	}

	return instrument, nil
}

// GetBySymbol retrieves an instrument by its unique symbol
func (r *InstrumentRepository) GetBySymbol(ctx context.Context, symbol string) (*entities.Instrument, error) {
	query := `
		SELECT id, symbol, name, type, exchange, sector, currency, created_at, updated_at
		FROM instruments
		WHERE symbol = $1`

	instrument := &entities.Instrument{}
	if err := r.db.GetContext(ctx, instrument, query, symbol); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFoundf("instrument %s not found", symbol)
		}
		r.logger.Error("Failed to get instrument by symbol", zap.Error(err), zap.String("symbol", symbol))
		return nil, fmt.Errorf("failed to get instrument: %w", err)
	}

	return instrument, nil
}

// List pages through instruments ordered by symbol
func (r *InstrumentRepository) List(ctx context.Context, limit, offset int) ([]*entities.Instrument, error) {
	query := `
		SELECT id, symbol, name, type, exchange, sector, currency, created_at, updated_at
		FROM instruments
		ORDER BY symbol
		LIMIT $1 OFFSET $2`

	instruments := []*entities.Instrument{}
	if err := r.db.SelectContext(ctx, &instruments, query, limit, offset); err != nil {
		r.logger.Error("Failed to list instruments", zap.Error(err))
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}

	return instruments, nil
}
