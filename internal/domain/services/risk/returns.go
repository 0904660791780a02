package risk

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/risk-service/risk_service/internal/domain/entities"
	apperrors "github.com/risk-service/risk_service/pkg/errors"
)

// InstrumentHistory is one instrument's weight and price snapshot as fetched
// once at the start of a run.
type InstrumentHistory struct {
	InstrumentID uuid.UUID
	Symbol       string
	Weight       float64
	// Bars must be ascending by date.
	Bars []*entities.PriceBar
}

// SeriesSet is the aligned output of the return series builder. Portfolio and
// every per-instrument series share the same ascending date axis.
type SeriesSet struct {
	Dates        []time.Time
	Portfolio    []float64
	ByInstrument map[uuid.UUID][]float64
}

// BuildReturnSeries converts the raw price histories into one weighted
// portfolio log-return series of length exactly window.
//
// A trading day enters the series only when every instrument has an
// observation for it (strict intersection); partial-coverage days are dropped
// rather than approximated. If fewer than window common observations remain
// the builder fails with an insufficient-data error carrying the shortfall.
func BuildReturnSeries(histories []InstrumentHistory, window int) (*SeriesSet, error) {
	if len(histories) == 0 {
		return nil, apperrors.Validation("no instruments to build return series from")
	}
	if window < 1 {
		return nil, apperrors.Validationf("window size must be >= 1, got %d", window)
	}

	perInstrument := make([]map[time.Time]float64, len(histories))
	for i, h := range histories {
		perInstrument[i] = dailyLogReturns(h.Bars)
	}

	// Strict intersection: a date survives only if every instrument has a
	// return for it.
	var dates []time.Time
	for date := range perInstrument[0] {
		common := true
		for _, m := range perInstrument[1:] {
			if _, ok := m[date]; !ok {
				common = false
				break
			}
		}
		if common {
			dates = append(dates, date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	if len(dates) < window {
		return nil, apperrors.InsufficientData(len(dates), window)
	}
	dates = dates[len(dates)-window:]

	set := &SeriesSet{
		Dates:        dates,
		Portfolio:    make([]float64, len(dates)),
		ByInstrument: make(map[uuid.UUID][]float64, len(histories)),
	}
	for i, h := range histories {
		series := make([]float64, len(dates))
		for t, date := range dates {
			r := perInstrument[i][date]
			series[t] = r
			set.Portfolio[t] += h.Weight * r
		}
		set.ByInstrument[h.InstrumentID] = series
	}

	return set, nil
}

// dailyLogReturns maps trading date to ln(close_t / close_{t-1}) for each
// consecutive pair of bars. Needs at least two bars to produce anything.
func dailyLogReturns(bars []*entities.PriceBar) map[time.Time]float64 {
	returns := make(map[time.Time]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close.InexactFloat64()
		curr := bars[i].Close.InexactFloat64()
		if prev <= 0 || curr <= 0 {
			continue
		}
		returns[normalizeDate(bars[i].PriceDate)] = math.Log(curr / prev)
	}
	return returns
}

// normalizeDate truncates a timestamp to its UTC calendar date so bars from
// different sources key identically.
func normalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
