package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstrumentType classifies a tradable instrument.
type InstrumentType string

const (
	InstrumentTypeStock     InstrumentType = "STOCK"
	InstrumentTypeBond      InstrumentType = "BOND"
	InstrumentTypeETF       InstrumentType = "ETF"
	InstrumentTypeOption    InstrumentType = "OPTION"
	InstrumentTypeFuture    InstrumentType = "FUTURE"
	InstrumentTypeCommodity InstrumentType = "COMMODITY"
	InstrumentTypeCurrency  InstrumentType = "CURRENCY"
	InstrumentTypeIndex     InstrumentType = "INDEX"
)

// Instrument is a tradable instrument identified by its unique symbol.
// Created on first sighting of a new symbol; immutable once price history
// references it.
type Instrument struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	Symbol    string         `json:"symbol" db:"symbol"`
	Name      string         `json:"name" db:"name"`
	Type      InstrumentType `json:"type" db:"type"`
	Exchange  string         `json:"exchange,omitempty" db:"exchange"`
	Sector    string         `json:"sector,omitempty" db:"sector"`
	Currency  string         `json:"currency" db:"currency"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// PriceBar is one OHLCV observation for an instrument on a trading date.
// At most one bar per (instrument, date); bars are append-only and the derived
// returns are computed once against the prior bar at ingestion.
type PriceBar struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	InstrumentID uuid.UUID        `json:"instrument_id" db:"instrument_id"`
	PriceDate    time.Time        `json:"price_date" db:"price_date"`
	Open         decimal.Decimal  `json:"open" db:"open"`
	High         decimal.Decimal  `json:"high" db:"high"`
	Low          decimal.Decimal  `json:"low" db:"low"`
	Close        decimal.Decimal  `json:"close" db:"close"`
	Volume       int64            `json:"volume" db:"volume"`
	LogReturn    *decimal.Decimal `json:"log_return,omitempty" db:"log_return"`
	SimpleReturn *decimal.Decimal `json:"simple_return,omitempty" db:"simple_return"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}

// PortfolioStatus is the lifecycle state of a portfolio.
type PortfolioStatus string

const (
	PortfolioStatusActive   PortfolioStatus = "ACTIVE"
	PortfolioStatusInactive PortfolioStatus = "INACTIVE"
	PortfolioStatusArchived PortfolioStatus = "ARCHIVED"
)

// Portfolio is a named set of positions.
type Portfolio struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Description  string          `json:"description,omitempty" db:"description"`
	BaseCurrency string          `json:"base_currency" db:"base_currency"`
	Status       PortfolioStatus `json:"status" db:"status"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`

	// Positions is populated by reads that join positions; not a db column.
	Positions []*Position `json:"positions,omitempty" db:"-"`
}

// Value sums the market values of the portfolio's loaded positions.
func (p *Portfolio) Value() decimal.Decimal {
	total := decimal.Zero
	for _, pos := range p.Positions {
		total = total.Add(pos.MarketValue)
	}
	return total
}

// Position is a holding of one instrument inside a portfolio. A position
// references but does not own its instrument.
type Position struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	PortfolioID  uuid.UUID       `json:"portfolio_id" db:"portfolio_id"`
	InstrumentID uuid.UUID       `json:"instrument_id" db:"instrument_id"`
	Quantity     decimal.Decimal `json:"quantity" db:"quantity"`
	AverageCost  decimal.Decimal `json:"average_cost" db:"average_cost"`
	MarketValue  decimal.Decimal `json:"market_value" db:"market_value"`
	Weight       decimal.Decimal `json:"weight" db:"weight"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`

	// Instrument is populated by reads that join instruments; not a db column.
	Instrument *Instrument `json:"instrument,omitempty" db:"-"`
}
