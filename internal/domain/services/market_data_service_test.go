package services

import (
	"context"
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

func TestMarketDataServiceCreateInstrument(t *testing.T) {
	ctx := context.Background()

	t.Run("uppercases symbol", func(t *testing.T) {
		instruments := new(MockInstrumentRepository)
		instruments.On("GetBySymbol", ctx, "AAPL").Return(nil, apperrors.NotFound("instrument not found"))
		instruments.On("Create", ctx, mock.AnythingOfType("*entities.Instrument")).Return(nil)
		svc := NewMarketDataService(instruments, new(MockPriceRepository), logger.NewNop())

		instrument, err := svc.CreateInstrument(ctx, CreateInstrumentRequest{
			Symbol: "aapl",
			Name:   "Apple Inc",
			Type:   entities.InstrumentTypeStock,
		})
		require.NoError(t, err)
		assert.Equal(t, "AAPL", instrument.Symbol)
		assert.Equal(t, "USD", instrument.Currency)
	})

	t.Run("duplicate symbol", func(t *testing.T) {
		instruments := new(MockInstrumentRepository)
		instruments.On("GetBySymbol", ctx, "AAPL").
			Return(&entities.Instrument{ID: uuid.New(), Symbol: "AAPL"}, nil)
		svc := NewMarketDataService(instruments, new(MockPriceRepository), logger.NewNop())

		_, err := svc.CreateInstrument(ctx, CreateInstrumentRequest{
			Symbol: "AAPL",
			Name:   "Apple Inc",
			Type:   entities.InstrumentTypeStock,
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDuplicate))
	})
}

func TestMarketDataServiceIngestBars(t *testing.T) {
	ctx := context.Background()
	day := func(n int) time.Time { return time.Date(2026, 3, n, 0, 0, 0, 0, time.UTC) }

	t.Run("derives returns against prior bar", func(t *testing.T) {
		instruments := new(MockInstrumentRepository)
		prices := new(MockPriceRepository)
		instrument := &entities.Instrument{ID: uuid.New(), Symbol: "AAPL"}

		instruments.On("GetByID", ctx, instrument.ID).Return(instrument, nil)
		prices.On("GetLatest", ctx, instrument.ID).Return(nil, apperrors.NotFound("no price bars"))

		var created []*entities.PriceBar
		prices.On("Create", ctx, mock.AnythingOfType("*entities.PriceBar")).
			Run(func(args mock.Arguments) {
				created = append(created, args.Get(1).(*entities.PriceBar))
			}).Return(nil)

		svc := NewMarketDataService(instruments, prices, logger.NewNop())
		bars, err := svc.IngestBars(ctx, instrument.ID, []BarInput{
			{PriceDate: day(2), Close: decimal.NewFromInt(100)},
			{PriceDate: day(3), Close: decimal.NewFromInt(110)},
			{PriceDate: day(4), Close: decimal.NewFromInt(99)},
		})
		require.NoError(t, err)
		require.Len(t, bars, 3)
		require.Len(t, created, 3)

		// No prior bar for the first observation.
		assert.Nil(t, bars[0].LogReturn)
		assert.Nil(t, bars[0].SimpleReturn)

		require.NotNil(t, bars[1].LogReturn)
		assert.True(t, bars[1].LogReturn.Equal(decimal.NewFromFloat(0.09531)), "got %s", bars[1].LogReturn)
		assert.True(t, bars[1].SimpleReturn.Equal(decimal.NewFromFloat(0.1)))

		require.NotNil(t, bars[2].LogReturn)
		assert.True(t, bars[2].SimpleReturn.Equal(decimal.NewFromFloat(-0.1)))
	})

	t.Run("chains from latest stored bar", func(t *testing.T) {
		instruments := new(MockInstrumentRepository)
		prices := new(MockPriceRepository)
		instrument := &entities.Instrument{ID: uuid.New(), Symbol: "AAPL"}

		instruments.On("GetByID", ctx, instrument.ID).Return(instrument, nil)
		prices.On("GetLatest", ctx, instrument.ID).
			Return(&entities.PriceBar{PriceDate: day(1), Close: decimal.NewFromInt(200)}, nil)
		prices.On("Create", ctx, mock.AnythingOfType("*entities.PriceBar")).Return(nil)

		svc := NewMarketDataService(instruments, prices, logger.NewNop())
		bars, err := svc.IngestBars(ctx, instrument.ID, []BarInput{
			{PriceDate: day(2), Close: decimal.NewFromInt(220)},
		})
		require.NoError(t, err)
		require.Len(t, bars, 1)
		require.NotNil(t, bars[0].SimpleReturn)
		assert.True(t, bars[0].SimpleReturn.Equal(decimal.NewFromFloat(0.1)))
	})

	t.Run("rejects bars not extending history", func(t *testing.T) {
		instruments := new(MockInstrumentRepository)
		prices := new(MockPriceRepository)
		instrument := &entities.Instrument{ID: uuid.New(), Symbol: "AAPL"}

		instruments.On("GetByID", ctx, instrument.ID).Return(instrument, nil)
		prices.On("GetLatest", ctx, instrument.ID).
			Return(&entities.PriceBar{PriceDate: day(5), Close: decimal.NewFromInt(200)}, nil)

		svc := NewMarketDataService(instruments, prices, logger.NewNop())
		_, err := svc.IngestBars(ctx, instrument.ID, []BarInput{
			{PriceDate: day(5), Close: decimal.NewFromInt(210)},
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
		prices.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects duplicate dates in batch", func(t *testing.T) {
		instruments := new(MockInstrumentRepository)
		prices := new(MockPriceRepository)
		instrument := &entities.Instrument{ID: uuid.New(), Symbol: "AAPL"}

		instruments.On("GetByID", ctx, instrument.ID).Return(instrument, nil)
		prices.On("GetLatest", ctx, instrument.ID).Return(nil, apperrors.NotFound("no price bars"))

		svc := NewMarketDataService(instruments, prices, logger.NewNop())
		_, err := svc.IngestBars(ctx, instrument.ID, []BarInput{
			{PriceDate: day(2), Close: decimal.NewFromInt(100)},
			{PriceDate: day(2).Add(16 * time.Hour), Close: decimal.NewFromInt(101)},
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
	})

	t.Run("rejects non positive close", func(t *testing.T) {
		instruments := new(MockInstrumentRepository)
		prices := new(MockPriceRepository)
		instrument := &entities.Instrument{ID: uuid.New(), Symbol: "AAPL"}

		instruments.On("GetByID", ctx, instrument.ID).Return(instrument, nil)
		prices.On("GetLatest", ctx, instrument.ID).Return(nil, apperrors.NotFound("no price bars"))

		svc := NewMarketDataService(instruments, prices, logger.NewNop())
		_, err := svc.IngestBars(ctx, instrument.ID, []BarInput{
			{PriceDate: day(2), Close: decimal.Zero},
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
	})
}

func TestMarketDataServiceGetBars(t *testing.T) {
	ctx := context.Background()
	instruments := new(MockInstrumentRepository)
	prices := new(MockPriceRepository)
	svc := NewMarketDataService(instruments, prices, logger.NewNop())

	t.Run("inverted range", func(t *testing.T) {
		from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
		_, err := svc.GetBars(ctx, uuid.New(), from, from.AddDate(0, 0, -1))
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
	})
}
