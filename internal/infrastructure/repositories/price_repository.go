package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/risk-service/risk_service/internal/domain/entities"
	apperrors "github.com/risk-service/risk_service/pkg/errors"
	"github.com/risk-service/risk_service/pkg/metrics"
)

// PriceRepository implements the price repository interface using PostgreSQL
type PriceRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *sqlx.DB, logger *zap.Logger) *PriceRepository {
	return &PriceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new price bar. The unique (instrument_id, price_date)
// constraint enforces one bar per trading date.
func (r *PriceRepository) Create(ctx context.Context, bar *entities.PriceBar) error {
	query := `
		INSERT INTO price_bars (
			id, instrument_id, price_date, open, high, low, close,
			volume, log_return, simple_return, created_at
		) VALUES (
			:id, :instrument_id, :price_date, :open, :high, :low, :close,
			:volume, :log_return, :simple_return, :created_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, bar)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return apperrors.Newf(apperrors.ErrCodeDuplicate, "price bar for %s already exists",
				bar.PriceDate.Format("2006-01-02"))
		}
		r.logger.Error("Failed to create price bar", zap.Error(err),
			zap.String("instrument_id", bar.InstrumentID.String()))
		return fmt.Errorf("failed to create price bar: %w", err)
	}

	return nil
}

// GetLatest returns the most recent bar for an instrument
func (r *PriceRepository) GetLatest(ctx context.Context, instrumentID uuid.UUID) (*entities.PriceBar, error) {
	query := `
		SELECT id, instrument_id, price_date, open, high, low, close,
		       volume, log_return, simple_return, created_at
		FROM price_bars
		WHERE instrument_id = $1
		ORDER BY price_date DESC
		LIMIT 1`

	bar := &entities.PriceBar{}
	if err := r.db.GetContext(ctx, bar, query, instrumentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFoundf("no price bars for instrument %s", instrumentID)
		}
		r.logger.Error("Failed to get latest price bar", zap.Error(err),
			zap.String("instrument_id", instrumentID.String()))
		return nil, fmt.Errorf("failed to get latest price bar: %w", err)
	}

	return bar, nil
}

// GetRange returns bars for [from, to] ascending by date
func (r *PriceRepository) GetRange(ctx context.Context, instrumentID uuid.UUID, from, to time.Time) ([]*entities.PriceBar, error) {
	started := time.Now()
	query := `
		SELECT id, instrument_id, price_date, open, high, low, close,
		       volume, log_return, simple_return, created_at
		FROM price_bars
		WHERE instrument_id = $1 AND price_date >= $2 AND price_date <= $3
		ORDER BY price_date ASC`

	bars := []*entities.PriceBar{}
	if err := r.db.SelectContext(ctx, &bars, query, instrumentID, from, to); err != nil {
		r.logger.Error("Failed to get price range", zap.Error(err),
			zap.String("instrument_id", instrumentID.String()))
		return nil, fmt.Errorf("failed to get price range: %w", err)
	}

	metrics.RecordDatabaseQuery("select_range", "price_bars", time.Since(started).Seconds())
	return bars, nil
}
