package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/risk-service/risk_service/internal/domain/entities"
)

// InstrumentRepository defines the interface for instrument data access
type InstrumentRepository interface {
	Create(ctx context.Context, instrument *entities.Instrument) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Instrument, error)
	GetBySymbol(ctx context.Context, symbol string) (*entities.Instrument, error)
	List(ctx context.Context, limit, offset int) ([]*entities.Instrument, error)
}

// PriceRepository defines the interface for price bar data access
type PriceRepository interface {
	Create(ctx context.Context, bar *entities.PriceBar) error
	GetLatest(ctx context.Context, instrumentID uuid.UUID) (*entities.PriceBar, error)
	// GetRange returns bars for [from, to] ascending by date; it may return
	// fewer bars than the range covers.
	GetRange(ctx context.Context, instrumentID uuid.UUID, from, to time.Time) ([]*entities.PriceBar, error)
}

// PortfolioRepository defines the interface for portfolio data access
type PortfolioRepository interface {
	Create(ctx context.Context, portfolio *entities.Portfolio) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Portfolio, error)
	// GetWithPositions loads the portfolio with its positions and their
	// instruments in one read.
	GetWithPositions(ctx context.Context, id uuid.UUID) (*entities.Portfolio, error)
	List(ctx context.Context) ([]*entities.Portfolio, error)
	Update(ctx context.Context, portfolio *entities.Portfolio) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PositionRepository defines the interface for position data access
type PositionRepository interface {
	Create(ctx context.Context, position *entities.Position) error
	GetByPortfolioID(ctx context.Context, portfolioID uuid.UUID) ([]*entities.Position, error)
	GetByPortfolioAndInstrument(ctx context.Context, portfolioID, instrumentID uuid.UUID) (*entities.Position, error)
	Update(ctx context.Context, position *entities.Position) error
	// UpdateWeights rewrites market value and weight for every position in the
	// portfolio in one transaction.
	UpdateWeights(ctx context.Context, positions []*entities.Position) error
}

// RiskRunRepository defines the interface for risk run persistence
type RiskRunRepository interface {
	Create(ctx context.Context, run *entities.RiskRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.RiskRun, error)
	// GetWithBreakdowns loads the run with its breakdown rows.
	GetWithBreakdowns(ctx context.Context, id uuid.UUID) (*entities.RiskRun, error)
	ListByPortfolioID(ctx context.Context, portfolioID uuid.UUID, limit, offset int) ([]*entities.RiskRun, error)
	Update(ctx context.Context, run *entities.RiskRun) error
	// Complete persists the run's COMPLETED transition and its breakdown rows
	// in one transaction; either both land or neither does.
	Complete(ctx context.Context, run *entities.RiskRun, rows []*entities.RiskBreakdown) error
	// FailStale marks runs stuck in PENDING or RUNNING since before the
	// cutoff as FAILED and returns how many were updated.
	FailStale(ctx context.Context, cutoff time.Time, message string) (int64, error)
}
