package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/risk-service/risk_service/internal/domain/entities"
	"github.com/risk-service/risk_service/internal/domain/repositories"
	apperrors "github.com/risk-service/risk_service/pkg/errors"
	"github.com/risk-service/risk_service/pkg/logger"
)

// CreateInstrumentRequest carries the fields for registering an instrument.
type CreateInstrumentRequest struct {
	Symbol   string                  `json:"symbol" binding:"required,min=1,max=20"`
	Name     string                  `json:"name" binding:"required,max=255"`
	Type     entities.InstrumentType `json:"type" binding:"required,oneof=STOCK BOND ETF OPTION FUTURE COMMODITY CURRENCY INDEX"`
	Exchange string                  `json:"exchange" binding:"max=50"`
	Sector   string                  `json:"sector" binding:"max=100"`
	Currency string                  `json:"currency" binding:"omitempty,len=3"`
}

// BarInput is one OHLCV observation submitted for ingestion. Derived returns
// are computed server-side, never accepted from the caller.
type BarInput struct {
	PriceDate time.Time       `json:"price_date" binding:"required"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close" binding:"required"`
	Volume    int64           `json:"volume"`
}

// MarketDataService manages instruments and their price history
type MarketDataService struct {
	instrumentRepo repositories.InstrumentRepository
	priceRepo      repositories.PriceRepository
	logger         *logger.Logger
}

// NewMarketDataService creates a new market data service
func NewMarketDataService(
	instrumentRepo repositories.InstrumentRepository,
	priceRepo repositories.PriceRepository,
	logger *logger.Logger,
) *MarketDataService {
	return &MarketDataService{
		instrumentRepo: instrumentRepo,
		priceRepo:      priceRepo,
		logger:         logger,
	}
}

// CreateInstrument registers a new instrument. Symbols are unique and stored
// uppercase.
func (s *MarketDataService) CreateInstrument(ctx context.Context, req CreateInstrumentRequest) (*entities.Instrument, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, apperrors.Validation("symbol is required")
	}

	if _, err := s.instrumentRepo.GetBySymbol(ctx, symbol); err == nil {
		return nil, apperrors.Newf(apperrors.ErrCodeDuplicate, "instrument %s already exists", symbol)
	} else if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	now := time.Now()
	instrument := &entities.Instrument{
		ID:        uuid.New(),
		Symbol:    symbol,
		Name:      req.Name,
		Type:      req.Type,
		Exchange:  req.Exchange,
		Sector:    req.Sector,
		Currency:  currency,
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

// GetInstrument resolves an instrument by symbol
func (s *MarketDataService) GetInstrument(ctx context.Context, symbol string) (*entities.Instrument, error) {
	return s.instrumentRepo.GetBySymbol(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
}

// ListInstruments pages through registered instruments
func (s *MarketDataService) ListInstruments(ctx context.Context, limit, offset int) ([]*entities.Instrument, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.instrumentRepo.List(ctx, limit, offset)
}

// IngestBars appends price bars for an instrument, oldest first. Each bar's
// log and simple returns are derived against the bar before it, chaining from
// the instrument's latest stored bar. At most one bar per calendar date; a
// duplicate date rejects the batch.
func (s *MarketDataService) IngestBars(ctx context.Context, instrumentID uuid.UUID, inputs []BarInput) ([]*entities.PriceBar, error) {
	if len(inputs) == 0 {
		return nil, apperrors.Validation("no price bars to ingest")
	}
	if _, err := s.instrumentRepo.GetByID(ctx, instrumentID); err != nil {
		return nil, err
	}

	sorted := make([]BarInput, len(inputs))
	copy(sorted, inputs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PriceDate.Before(sorted[j].PriceDate) })

	var prevClose *decimal.Decimal
	latest, err := s.priceRepo.GetLatest(ctx, instrumentID)
	if err == nil {
		if !sorted[0].PriceDate.After(latest.PriceDate) {
			return nil, apperrors.Validationf("bar for %s does not extend history past %s",
				sorted[0].PriceDate.Format("2006-01-02"), latest.PriceDate.Format("2006-01-02"))
		}
		prevClose = &latest.Close
	} else if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		return nil, err
	}

	now := time.Now()
	bars := make([]*entities.PriceBar, 0, len(sorted))
	var prevDate time.Time
	for i, input := range sorted {
		if !input.Close.IsPositive() {
			return nil, apperrors.Validationf("close must be positive for %s", input.PriceDate.Format("2006-01-02"))
		}
		date := dateOnly(input.PriceDate)
		if i > 0 && date.Equal(prevDate) {
			return nil, apperrors.Validationf("duplicate bar date %s", date.Format("2006-01-02"))
		}
		prevDate = date

		bar := &entities.PriceBar{
			ID:           uuid.New(),
			InstrumentID: instrumentID,
			PriceDate:    date,
			Open:         input.Open,
			High:         input.High,
			Low:          input.Low,
			Close:        input.Close,
			Volume:       input.Volume,
			CreatedAt:    now,
		}
		if prevClose != nil && prevClose.IsPositive() {
			logRet := deriveLogReturn(*prevClose, input.Close)
			simpleRet := input.Close.Sub(*prevClose).Div(*prevClose).Round(6)
			bar.LogReturn = &logRet
			bar.SimpleReturn = &simpleRet
		}
		prevClose = &bar.Close

		if err := s.priceRepo.Create(ctx, bar); err != nil {
			return nil, fmt.Errorf("create price bar: %w", err)
		}
		bars = append(bars, bar)
	}

	s.logger.Info("Ingested price bars",
		"instrument_id", instrumentID.String(),
		"count", len(bars))
	return bars, nil
}

// GetBars returns the instrument's bars for [from, to] ascending
func (s *MarketDataService) GetBars(ctx context.Context, instrumentID uuid.UUID, from, to time.Time) ([]*entities.PriceBar, error) {
	if to.Before(from) {
		return nil, apperrors.Validation("range end precedes range start")
	}
	if _, err := s.instrumentRepo.GetByID(ctx, instrumentID); err != nil {
		return nil, err
	}
	return s.priceRepo.GetRange(ctx, instrumentID, dateOnly(from), dateOnly(to))
}

func deriveLogReturn(prev, curr decimal.Decimal) decimal.Decimal {
	ratio, _ := curr.Div(prev).Float64()
	return decimal.NewFromFloat(math.Log(ratio)).Round(6)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
