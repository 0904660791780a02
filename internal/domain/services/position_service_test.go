package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/risk-service/risk_service/internal/domain/entities"
	apperrors "github.com/risk-service/risk_service/pkg/errors"
	"github.com/risk-service/risk_service/pkg/logger"
)

type positionFixture struct {
	positions   *MockPositionRepository
	portfolios  *MockPortfolioRepository
	instruments *MockInstrumentRepository
	prices      *MockPriceRepository
	svc         *PositionService
	portfolio   *entities.Portfolio
}

func newPositionFixture() *positionFixture {
	f := &positionFixture{
		positions:   new(MockPositionRepository),
		portfolios:  new(MockPortfolioRepository),
		instruments: new(MockInstrumentRepository),
		prices:      new(MockPriceRepository),
		portfolio:   &entities.Portfolio{ID: uuid.New(), Name: "Growth", Status: entities.PortfolioStatusActive},
	}
	f.svc = NewPositionService(f.positions, f.portfolios, f.instruments, f.prices, logger.NewNop())
	return f
}

func TestPositionServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("new symbol creates instrument and prices at latest close", func(t *testing.T) {
		f := newPositionFixture()
		f.portfolios.On("GetByID", ctx, f.portfolio.ID).Return(f.portfolio, nil)
		f.instruments.On("GetBySymbol", ctx, "AAPL").Return(nil, apperrors.NotFound("instrument not found"))
		f.instruments.On("Create", ctx, mock.AnythingOfType("*entities.Instrument")).Return(nil)
		f.prices.On("GetLatest", ctx, mock.Anything).
			Return(&entities.PriceBar{Close: decimal.NewFromInt(150), PriceDate: time.Now()}, nil)
		f.positions.On("GetByPortfolioAndInstrument", ctx, f.portfolio.ID, mock.Anything).
			Return(nil, apperrors.NotFound("position not found"))
		f.positions.On("Create", ctx, mock.AnythingOfType("*entities.Position")).Return(nil)
		f.positions.On("GetByPortfolioID", ctx, f.portfolio.ID).Return([]*entities.Position{}, nil)

		position, err := f.svc.Create(ctx, f.portfolio.ID, CreatePositionRequest{
			Symbol:      "aapl",
			Quantity:    decimal.NewFromInt(10),
			AverageCost: decimal.NewFromInt(140),
		})
		require.NoError(t, err)

		assert.Equal(t, "AAPL", position.Instrument.Symbol)
		assert.True(t, position.MarketValue.Equal(decimal.NewFromInt(1500)))
		f.instruments.AssertCalled(t, "Create", ctx, mock.AnythingOfType("*entities.Instrument"))
	})

	t.Run("no price history falls back to average cost", func(t *testing.T) {
		f := newPositionFixture()
		instrument := &entities.Instrument{ID: uuid.New(), Symbol: "NEWCO", Type: entities.InstrumentTypeStock}

		f.portfolios.On("GetByID", ctx, f.portfolio.ID).Return(f.portfolio, nil)
		f.instruments.On("GetBySymbol", ctx, "NEWCO").Return(instrument, nil)
		f.prices.On("GetLatest", ctx, instrument.ID).Return(nil, apperrors.NotFound("no price bars"))
		f.positions.On("GetByPortfolioAndInstrument", ctx, f.portfolio.ID, instrument.ID).
			Return(nil, apperrors.NotFound("position not found"))
		f.positions.On("Create", ctx, mock.AnythingOfType("*entities.Position")).Return(nil)
		f.positions.On("GetByPortfolioID", ctx, f.portfolio.ID).Return([]*entities.Position{}, nil)

		position, err := f.svc.Create(ctx, f.portfolio.ID, CreatePositionRequest{
			Symbol:      "NEWCO",
			Quantity:    decimal.NewFromInt(20),
			AverageCost: decimal.NewFromFloat(12.5),
		})
		require.NoError(t, err)
		assert.True(t, position.MarketValue.Equal(decimal.NewFromInt(250)))
	})

	t.Run("existing position merges with cost weighted average", func(t *testing.T) {
		f := newPositionFixture()
		instrument := &entities.Instrument{ID: uuid.New(), Symbol: "MSFT", Type: entities.InstrumentTypeStock}
		existing := &entities.Position{
			ID:           uuid.New(),
			PortfolioID:  f.portfolio.ID,
			InstrumentID: instrument.ID,
			Quantity:     decimal.NewFromInt(10),
			AverageCost:  decimal.NewFromInt(100),
		}

		f.portfolios.On("GetByID", ctx, f.portfolio.ID).Return(f.portfolio, nil)
		f.instruments.On("GetBySymbol", ctx, "MSFT").Return(instrument, nil)
		f.prices.On("GetLatest", ctx, instrument.ID).
			Return(&entities.PriceBar{Close: decimal.NewFromInt(120)}, nil)
		f.positions.On("GetByPortfolioAndInstrument", ctx, f.portfolio.ID, instrument.ID).Return(existing, nil)
		f.positions.On("Update", ctx, existing).Return(nil)
		f.positions.On("GetByPortfolioID", ctx, f.portfolio.ID).Return([]*entities.Position{}, nil)

		position, err := f.svc.Create(ctx, f.portfolio.ID, CreatePositionRequest{
			Symbol:      "MSFT",
			Quantity:    decimal.NewFromInt(10),
			AverageCost: decimal.NewFromInt(120),
		})
		require.NoError(t, err)

		// (10*100 + 10*120) / 20 = 110
		assert.True(t, position.Quantity.Equal(decimal.NewFromInt(20)))
		assert.True(t, position.AverageCost.Equal(decimal.NewFromInt(110)))
		assert.True(t, position.MarketValue.Equal(decimal.NewFromInt(2400)))
	})

	t.Run("weights recomputed over portfolio value", func(t *testing.T) {
		f := newPositionFixture()
		instrument := &entities.Instrument{ID: uuid.New(), Symbol: "VOO", Type: entities.InstrumentTypeETF}
		idOther := uuid.New()
		held := []*entities.Position{
			{InstrumentID: instrument.ID, Quantity: decimal.NewFromInt(10), AverageCost: decimal.NewFromInt(30)},
			{InstrumentID: idOther, Quantity: decimal.NewFromInt(10), AverageCost: decimal.NewFromInt(10)},
		}

		f.portfolios.On("GetByID", ctx, f.portfolio.ID).Return(f.portfolio, nil)
		f.instruments.On("GetBySymbol", ctx, "VOO").Return(instrument, nil)
		f.prices.On("GetLatest", ctx, mock.Anything).Return(nil, apperrors.NotFound("no price bars"))
		f.positions.On("GetByPortfolioAndInstrument", ctx, f.portfolio.ID, instrument.ID).
			Return(nil, apperrors.NotFound("position not found"))
		f.positions.On("Create", ctx, mock.AnythingOfType("*entities.Position")).Return(nil)
		f.positions.On("GetByPortfolioID", ctx, f.portfolio.ID).Return(held, nil)
		f.positions.On("UpdateWeights", ctx, held).Return(nil)

		_, err := f.svc.Create(ctx, f.portfolio.ID, CreatePositionRequest{
			Symbol:      "VOO",
			Quantity:    decimal.NewFromInt(10),
			AverageCost: decimal.NewFromInt(30),
		})
		require.NoError(t, err)

		// 300 of 400 and 100 of 400.
		assert.True(t, held[0].Weight.Equal(decimal.NewFromFloat(0.75)))
		assert.True(t, held[1].Weight.Equal(decimal.NewFromFloat(0.25)))
		f.positions.AssertCalled(t, "UpdateWeights", ctx, held)
	})

	t.Run("rejects non positive quantity", func(t *testing.T) {
		f := newPositionFixture()
		_, err := f.svc.Create(ctx, f.portfolio.ID, CreatePositionRequest{
			Symbol:      "AAPL",
			Quantity:    decimal.Zero,
			AverageCost: decimal.NewFromInt(10),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
		f.portfolios.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("missing portfolio", func(t *testing.T) {
		f := newPositionFixture()
		id := uuid.New()
		f.portfolios.On("GetByID", ctx, id).Return(nil, apperrors.NotFound("portfolio not found"))

		_, err := f.svc.Create(ctx, id, CreatePositionRequest{
			Symbol:      "AAPL",
			Quantity:    decimal.NewFromInt(1),
			AverageCost: decimal.NewFromInt(1),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	})
}

func TestPositionServiceUploadCSV(t *testing.T) {
	ctx := context.Background()

	t.Run("parses rows after header", func(t *testing.T) {
		f := newPositionFixture()
		f.portfolios.On("GetByID", ctx, f.portfolio.ID).Return(f.portfolio, nil)
		f.instruments.On("GetBySymbol", ctx, mock.Anything).Return(nil, apperrors.NotFound("instrument not found"))
		f.instruments.On("Create", ctx, mock.AnythingOfType("*entities.Instrument")).Return(nil)
		f.prices.On("GetLatest", ctx, mock.Anything).Return(nil, apperrors.NotFound("no price bars"))
		f.positions.On("GetByPortfolioAndInstrument", ctx, f.portfolio.ID, mock.Anything).
			Return(nil, apperrors.NotFound("position not found"))
		f.positions.On("Create", ctx, mock.AnythingOfType("*entities.Position")).Return(nil)
		f.positions.On("GetByPortfolioID", ctx, f.portfolio.ID).Return([]*entities.Position{}, nil)

		body := "symbol,quantity,average_cost,name,type\n" +
			"AAPL,10,150.25,Apple Inc,STOCK\n" +
			"VOO,5,420.00,Vanguard S&P 500,ETF\n"

		positions, err := f.svc.UploadCSV(ctx, f.portfolio.ID, strings.NewReader(body))
		require.NoError(t, err)
		assert.Len(t, positions, 2)
	})

	t.Run("bad row rejects whole upload before any write", func(t *testing.T) {
		f := newPositionFixture()
		f.portfolios.On("GetByID", ctx, f.portfolio.ID).Return(f.portfolio, nil)

		body := "symbol,quantity,average_cost\n" +
			"AAPL,10,150.25\n" +
			"MSFT,not-a-number,300\n"

		_, err := f.svc.UploadCSV(ctx, f.portfolio.ID, strings.NewReader(body))
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
		assert.Contains(t, err.Error(), "line 3")
		f.positions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("header only file", func(t *testing.T) {
		f := newPositionFixture()
		f.portfolios.On("GetByID", ctx, f.portfolio.ID).Return(f.portfolio, nil)

		_, err := f.svc.UploadCSV(ctx, f.portfolio.ID, strings.NewReader("symbol,quantity,average_cost\n"))
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
	})
}
