package risk

import (
	"context"

	"github.com/google/uuid"

	"github.com/risk-service/risk_service/internal/domain/entities"
	apperrors "github.com/risk-service/risk_service/pkg/errors"
)

// ComponentInput is one position's slice of the decomposition input: its
// value, weight and return series aligned to the portfolio series.
type ComponentInput struct {
	InstrumentID  uuid.UUID
	Symbol        string
	PositionValue float64
	Weight        float64
	Returns       []float64
}

// Contribution is one row of the per-position risk attribution.
type Contribution struct {
	InstrumentID    uuid.UUID
	Symbol          string
	PositionValue   float64
	Weight          float64
	Volatility      float64
	Correlation     float64
	Beta            float64
	MarginalVar     float64
	ComponentVar    float64
	IndividualVar   float64
	ContributionPct float64
}

// Decompose attributes the portfolio VaR at the run's primary confidence
// level to the individual positions.
//
// For position i: beta_i = corr_i * sigma_i / sigma_p, marginal VaR is
// beta_i * portfolioVaR, component VaR is weight_i * marginal VaR, and the
// individual VaR is the run's own method applied to the position held alone.
// Contribution percentages are normalized so they sum to 100.
//
// Degenerate statistics (an empty position series or zero portfolio
// volatility) fail with a decomposition error instead of dividing by zero.
func (e *Engine) Decompose(ctx context.Context, method entities.VarMethod, portfolioReturns []float64, portfolioVaR, confidence float64, components []ComponentInput, sims int, seed int64) ([]Contribution, error) {
	if len(components) == 0 {
		return nil, apperrors.Decomposition("no positions to decompose")
	}

	sigmaPortfolio := SampleStdDev(portfolioReturns)
	if sigmaPortfolio == 0 {
		return nil, apperrors.Decomposition("portfolio volatility is zero, beta is undefined")
	}

	contributions := make([]Contribution, len(components))
	totalComponent := 0.0

	for i, comp := range components {
		if len(comp.Returns) == 0 {
			return nil, apperrors.Decomposition("empty return series for instrument " + comp.Symbol)
		}

		sigma := SampleStdDev(comp.Returns)
		corr := Correlation(comp.Returns, portfolioReturns)
		beta := corr * sigma / sigmaPortfolio
		marginal := beta * portfolioVaR
		component := comp.Weight * marginal

		// Derive a per-position seed so Monte Carlo individual VaRs are
		// reproducible from the run's seed.
		individual, err := e.VaRAt(ctx, method, comp.Returns, comp.PositionValue, confidence, sims, seed+int64(i)+1)
		if err != nil {
			return nil, err
		}

		contributions[i] = Contribution{
			InstrumentID:  comp.InstrumentID,
			Symbol:        comp.Symbol,
			PositionValue: comp.PositionValue,
			Weight:        comp.Weight,
			Volatility:    sigma,
			Correlation:   corr,
			Beta:          beta,
			MarginalVar:   marginal,
			ComponentVar:  component,
			IndividualVar: individual,
		}
		totalComponent += component
	}

	// Normalize contributions to 100%. A zero component sum leaves all
	// contributions at zero rather than dividing by it.
	if totalComponent != 0 {
		for i := range contributions {
			contributions[i].ContributionPct = contributions[i].ComponentVar / totalComponent * 100
		}
	}

	return contributions, nil
}
