package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/risk-service/risk_service/internal/domain/entities"
)

type MockInstrumentRepository struct {
	mock.Mock
}

func (m *MockInstrumentRepository) Create(ctx context.Context, instrument *entities.Instrument) error {
	args := m.Called(ctx, instrument)
	return args.Error(0)
}

func (m *MockInstrumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Instrument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Instrument), args.Error(1)
}

func (m *MockInstrumentRepository) GetBySymbol(ctx context.Context, symbol string) (*entities.Instrument, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Instrument), args.Error(1)
}

func (m *MockInstrumentRepository) List(ctx context.Context, limit, offset int) ([]*entities.Instrument, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Instrument), args.Error(1)
}

type MockPriceRepository struct {
	mock.Mock
}

func (m *MockPriceRepository) Create(ctx context.Context, bar *entities.PriceBar) error {
	args := m.Called(ctx, bar)
	return args.Error(0)
}

func (m *MockPriceRepository) GetLatest(ctx context.Context, instrumentID uuid.UUID) (*entities.PriceBar, error) {
	args := m.Called(ctx, instrumentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PriceBar), args.Error(1)
}

func (m *MockPriceRepository) GetRange(ctx context.Context, instrumentID uuid.UUID, from, to time.Time) ([]*entities.PriceBar, error) {
	args := m.Called(ctx, instrumentID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PriceBar), args.Error(1)
}

type MockPortfolioRepository struct {
	mock.Mock
}

func (m *MockPortfolioRepository) Create(ctx context.Context, portfolio *entities.Portfolio) error {
	args := m.Called(ctx, portfolio)
	return args.Error(0)
}

func (m *MockPortfolioRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Portfolio, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) GetWithPositions(ctx context.Context, id uuid.UUID) (*entities.Portfolio, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) List(ctx context.Context) ([]*entities.Portfolio, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) Update(ctx context.Context, portfolio *entities.Portfolio) error {
	args := m.Called(ctx, portfolio)
	return args.Error(0)
}

func (m *MockPortfolioRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockPositionRepository struct {
	mock.Mock
}

func (m *MockPositionRepository) Create(ctx context.Context, position *entities.Position) error {
	args := m.Called(ctx, position)
	return args.Error(0)
}

func (m *MockPositionRepository) GetByPortfolioID(ctx context.Context, portfolioID uuid.UUID) ([]*entities.Position, error) {
	args := m.Called(ctx, portfolioID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Position), args.Error(1)
}

func (m *MockPositionRepository) GetByPortfolioAndInstrument(ctx context.Context, portfolioID, instrumentID uuid.UUID) (*entities.Position, error) {
	args := m.Called(ctx, portfolioID, instrumentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Position), args.Error(1)
}

func (m *MockPositionRepository) Update(ctx context.Context, position *entities.Position) error {
	args := m.Called(ctx, position)
	return args.Error(0)
}

func (m *MockPositionRepository) UpdateWeights(ctx context.Context, positions []*entities.Position) error {
	args := m.Called(ctx, positions)
	return args.Error(0)
}
