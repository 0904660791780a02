package risk

import (
	"context"
	"math"
	"math/rand"

	"github.com/risk-service/risk_service/internal/domain/entities"
	apperrors "github.com/risk-service/risk_service/pkg/errors"
)

// checkInterval is how often the Monte Carlo loop polls for cancellation.
const checkInterval = 4096

// Estimate holds the point estimates one estimator produces for a portfolio.
// All monetary fields are positive loss magnitudes in portfolio currency;
// Volatility is the sample standard deviation of the historical return series
// for every method, including Monte Carlo.
type Estimate struct {
	Var95      float64
	Var99      float64
	ES95       float64
	ES99       float64
	Volatility float64
}

// Engine dispatches one of the three VaR estimation methods over a built
// portfolio return series. It is stateless; Monte Carlo randomness comes from
// a per-call seed so runs stay independent and reproducible.
type Engine struct{}

// NewEngine creates a new estimation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Estimate runs the given method over the return series for a portfolio worth
// value. sims and seed only matter for Monte Carlo.
func (e *Engine) Estimate(ctx context.Context, method entities.VarMethod, returns []float64, value float64, sims int, seed int64) (*Estimate, error) {
	if len(returns) == 0 {
		return nil, apperrors.InsufficientData(0, 1)
	}

	switch method {
	case entities.VarMethodHistorical:
		return e.historical(returns, value), nil
	case entities.VarMethodParametric:
		return e.parametric(returns, value), nil
	case entities.VarMethodMonteCarlo:
		return e.monteCarlo(ctx, returns, value, sims, seed)
	default:
		return nil, apperrors.Validationf("unsupported VaR method: %s", method)
	}
}

// VaRAt returns the single VaR estimate at confidence level (e.g. 0.975) for
// the given method. Used for the decomposition's primary-confidence VaR and
// for individual position VaRs.
func (e *Engine) VaRAt(ctx context.Context, method entities.VarMethod, returns []float64, value, confidence float64, sims int, seed int64) (float64, error) {
	if len(returns) == 0 {
		return 0, apperrors.InsufficientData(0, 1)
	}
	alpha := 1 - confidence

	switch method {
	case entities.VarMethodHistorical:
		v, _ := historicalTail(returns, alpha, value)
		return v, nil
	case entities.VarMethodParametric:
		sigma := SampleStdDev(returns)
		z := NormalInverseCDF(alpha)
		return math.Abs(z) * sigma * value, nil
	case entities.VarMethodMonteCarlo:
		sigma := SampleStdDev(returns)
		simulated, err := simulateReturns(ctx, sigma, sims, seed)
		if err != nil {
			return 0, err
		}
		v, _ := historicalTail(simulated, alpha, value)
		return v, nil
	default:
		return 0, apperrors.Validationf("unsupported VaR method: %s", method)
	}
}

// historical estimates VaR/ES directly from the realized return
// distribution. Deterministic for a given series.
func (e *Engine) historical(returns []float64, value float64) *Estimate {
	var95, es95 := historicalTail(returns, 0.05, value)
	var99, es99 := historicalTail(returns, 0.01, value)

	return &Estimate{
		Var95:      var95,
		Var99:      var99,
		ES95:       es95,
		ES99:       es99,
		Volatility: SampleStdDev(returns),
	}
}

// historicalTail computes the VaR and ES loss magnitudes at tail probability
// alpha. ES is the mean of all returns at or below the percentile threshold;
// with no tail observations it collapses to the VaR itself.
func historicalTail(returns []float64, alpha, value float64) (varAmount, esAmount float64) {
	threshold := Percentile(returns, alpha*100)
	varAmount = math.Abs(threshold) * value

	sum := 0.0
	count := 0
	for _, r := range returns {
		if r <= threshold {
			sum += r
			count++
		}
	}
	if count == 0 {
		return varAmount, varAmount
	}
	esAmount = math.Abs(sum/float64(count)) * value
	return varAmount, esAmount
}

// parametric estimates VaR/ES under the normal assumption using only the
// sample volatility of the return series.
func (e *Engine) parametric(returns []float64, value float64) *Estimate {
	sigma := SampleStdDev(returns)

	z95 := NormalInverseCDF(0.05)
	z99 := NormalInverseCDF(0.01)

	var95 := math.Abs(z95) * sigma * value
	var99 := math.Abs(z99) * sigma * value

	// Normal-tail expected shortfall: ES = VaR * phi(z) / alpha.
	es95 := var95 * NormalPDF(z95) / 0.05
	es99 := var99 * NormalPDF(z99) / 0.01

	return &Estimate{
		Var95:      var95,
		Var99:      var99,
		ES95:       es95,
		ES99:       es99,
		Volatility: sigma,
	}
}

// monteCarlo draws sims zero-mean normal returns with the historical
// volatility, then applies the historical tail logic to the simulated
// distribution. Reproducible for a fixed seed.
func (e *Engine) monteCarlo(ctx context.Context, returns []float64, value float64, sims int, seed int64) (*Estimate, error) {
	sigma := SampleStdDev(returns)

	simulated, err := simulateReturns(ctx, sigma, sims, seed)
	if err != nil {
		return nil, err
	}

	var95, es95 := historicalTail(simulated, 0.05, value)
	var99, es99 := historicalTail(simulated, 0.01, value)

	return &Estimate{
		Var95:      var95,
		Var99:      var99,
		ES95:       es95,
		ES99:       es99,
		Volatility: sigma,
	}, nil
}

// simulateReturns generates sims one-period returns from N(0, sigma) using a
// dedicated seeded generator. The context is polled periodically so a timeout
// aborts long simulations.
func simulateReturns(ctx context.Context, sigma float64, sims int, seed int64) ([]float64, error) {
	if sims < 1 {
		return nil, apperrors.Validationf("simulation count must be >= 1, got %d", sims)
	}

	rng := rand.New(rand.NewSource(seed))
	simulated := make([]float64, sims)
	for i := 0; i < sims; i++ {
		if i%checkInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, apperrors.Timeout("monte carlo simulation aborted").WithDetail("completed", i)
			default:
			}
		}
		simulated[i] = sigma * StandardNormalVariate(rng)
	}
	return simulated, nil
}
