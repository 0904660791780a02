package risk

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/risk-service/risk_service/internal/domain/entities"
	apperrors "github.com/risk-service/risk_service/pkg/errors"
)

// normalReturns generates n seeded draws from N(0, sigma) for test series.
func normalReturns(n int, sigma float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	series := make([]float64, n)
	for i := range series {
		series[i] = sigma * StandardNormalVariate(rng)
	}
	return series
}

func TestEngineHistorical(t *testing.T) {
	engine := NewEngine()
	ctx := context.Background()

	t.Run("known small series", func(t *testing.T) {
		returns := []float64{-0.10, -0.05, -0.02, 0.0, 0.01, 0.02, 0.03, 0.04, 0.05, 0.06}
		est, err := engine.Estimate(ctx, entities.VarMethodHistorical, returns, 1000, 0, 0)
		require.NoError(t, err)

		// 5th percentile is -0.0775 and only -0.10 sits at or below it.
		assert.InDelta(t, 77.5, est.Var95, 1e-9)
		assert.InDelta(t, 100.0, est.ES95, 1e-9)
		assert.InDelta(t, 95.5, est.Var99, 1e-9)
		assert.InDelta(t, 100.0, est.ES99, 1e-9)
		assert.InDelta(t, SampleStdDev(returns), est.Volatility, 1e-12)
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		returns := normalReturns(252, 0.015, 11)
		a, err := engine.Estimate(ctx, entities.VarMethodHistorical, returns, 500000, 0, 0)
		require.NoError(t, err)
		b, err := engine.Estimate(ctx, entities.VarMethodHistorical, returns, 500000, 0, 99)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("var99 at least var95 and es at least var", func(t *testing.T) {
		returns := normalReturns(252, 0.02, 3)
		est, err := engine.Estimate(ctx, entities.VarMethodHistorical, returns, 1000000, 0, 0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, est.Var99, est.Var95)
		assert.GreaterOrEqual(t, est.ES95, est.Var95)
		assert.GreaterOrEqual(t, est.ES99, est.Var99)
	})
}

func TestEngineParametric(t *testing.T) {
	engine := NewEngine()
	ctx := context.Background()

	t.Run("matches closed form", func(t *testing.T) {
		returns := normalReturns(252, 0.01, 5)
		value := 1000000.0
		sigma := SampleStdDev(returns)

		est, err := engine.Estimate(ctx, entities.VarMethodParametric, returns, value, 0, 0)
		require.NoError(t, err)

		assert.InDelta(t, 1.6448536269514722*sigma*value, est.Var95, 1e-6)
		assert.InDelta(t, 2.3263478740408408*sigma*value, est.Var99, 1e-6)
		assert.InDelta(t, sigma, est.Volatility, 1e-12)
	})

	t.Run("one percent volatility scenario", func(t *testing.T) {
		// Sample stddev of this series is just above 0.01, so VaR95 on a
		// million lands within one percent of 16,449.
		returns := make([]float64, 200)
		for i := range returns {
			if i%2 == 0 {
				returns[i] = 0.01
			} else {
				returns[i] = -0.01
			}
		}
		est, err := engine.Estimate(ctx, entities.VarMethodParametric, returns, 1000000, 0, 0)
		require.NoError(t, err)
		assert.InEpsilon(t, 16449.0, est.Var95, 0.01)
	})

	t.Run("expected shortfall exceeds var", func(t *testing.T) {
		returns := normalReturns(252, 0.012, 17)
		est, err := engine.Estimate(ctx, entities.VarMethodParametric, returns, 750000, 0, 0)
		require.NoError(t, err)
		assert.Greater(t, est.ES95, est.Var95)
		assert.Greater(t, est.ES99, est.Var99)
		assert.Greater(t, est.Var99, est.Var95)

		// ES = VaR * phi(z) / alpha under the normal assumption.
		z95 := NormalInverseCDF(0.05)
		assert.InDelta(t, est.Var95*NormalPDF(z95)/0.05, est.ES95, 1e-6)
	})

	t.Run("constant returns give zero var", func(t *testing.T) {
		est, err := engine.Estimate(ctx, entities.VarMethodParametric, []float64{0.01, 0.01, 0.01}, 100000, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 0.0, est.Var95)
		assert.Equal(t, 0.0, est.Volatility)
	})
}

func TestEngineMonteCarlo(t *testing.T) {
	engine := NewEngine()
	ctx := context.Background()
	returns := normalReturns(252, 0.01, 23)

	t.Run("reproducible for a fixed seed", func(t *testing.T) {
		a, err := engine.Estimate(ctx, entities.VarMethodMonteCarlo, returns, 1000000, 10000, 42)
		require.NoError(t, err)
		b, err := engine.Estimate(ctx, entities.VarMethodMonteCarlo, returns, 1000000, 10000, 42)
		require.NoError(t, err)
		assert.Equal(t, a, b)

		c, err := engine.Estimate(ctx, entities.VarMethodMonteCarlo, returns, 1000000, 10000, 43)
		require.NoError(t, err)
		assert.NotEqual(t, a.Var95, c.Var95)
	})

	t.Run("converges to parametric for large n", func(t *testing.T) {
		parametric, err := engine.Estimate(ctx, entities.VarMethodParametric, returns, 1000000, 0, 0)
		require.NoError(t, err)

		mc, err := engine.Estimate(ctx, entities.VarMethodMonteCarlo, returns, 1000000, 100000, 42)
		require.NoError(t, err)

		assert.InEpsilon(t, parametric.Var95, mc.Var95, 0.05)
		assert.InEpsilon(t, parametric.Var99, mc.Var99, 0.05)
	})

	t.Run("volatility reported from historical series", func(t *testing.T) {
		est, err := engine.Estimate(ctx, entities.VarMethodMonteCarlo, returns, 1000000, 5000, 1)
		require.NoError(t, err)
		assert.InDelta(t, SampleStdDev(returns), est.Volatility, 1e-12)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := engine.Estimate(cancelled, entities.VarMethodMonteCarlo, returns, 1000000, 100000, 42)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTimeout))
	})

	t.Run("rejects non positive simulation count", func(t *testing.T) {
		_, err := engine.Estimate(ctx, entities.VarMethodMonteCarlo, returns, 1000000, 0, 42)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
	})
}

func TestEngineEstimateErrors(t *testing.T) {
	engine := NewEngine()
	ctx := context.Background()

	t.Run("empty return series", func(t *testing.T) {
		_, err := engine.Estimate(ctx, entities.VarMethodHistorical, nil, 1000, 0, 0)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInsufficientData))
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := engine.Estimate(ctx, entities.VarMethod("GARCH"), []float64{0.01}, 1000, 0, 0)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
	})
}

func TestEngineVaRAt(t *testing.T) {
	engine := NewEngine()
	ctx := context.Background()
	returns := normalReturns(252, 0.015, 31)

	t.Run("matches full estimate at standard levels", func(t *testing.T) {
		est, err := engine.Estimate(ctx, entities.VarMethodHistorical, returns, 250000, 0, 0)
		require.NoError(t, err)

		v95, err := engine.VaRAt(ctx, entities.VarMethodHistorical, returns, 250000, 0.95, 0, 0)
		require.NoError(t, err)
		v99, err := engine.VaRAt(ctx, entities.VarMethodHistorical, returns, 250000, 0.99, 0, 0)
		require.NoError(t, err)

		assert.InDelta(t, est.Var95, v95, 1e-9)
		assert.InDelta(t, est.Var99, v99, 1e-9)
	})

	t.Run("parametric at arbitrary confidence", func(t *testing.T) {
		sigma := SampleStdDev(returns)
		v, err := engine.VaRAt(ctx, entities.VarMethodParametric, returns, 100000, 0.975, 0, 0)
		require.NoError(t, err)
		assert.InDelta(t, math.Abs(NormalInverseCDF(0.025))*sigma*100000, v, 1e-6)
	})

	t.Run("higher confidence never lowers var", func(t *testing.T) {
		for _, method := range []entities.VarMethod{entities.VarMethodHistorical, entities.VarMethodParametric, entities.VarMethodMonteCarlo} {
			v95, err := engine.VaRAt(ctx, method, returns, 100000, 0.95, 20000, 7)
			require.NoError(t, err)
			v99, err := engine.VaRAt(ctx, method, returns, 100000, 0.99, 20000, 7)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, v99, v95, "method %s", method)
		}
	})

	t.Run("empty series", func(t *testing.T) {
		_, err := engine.VaRAt(ctx, entities.VarMethodHistorical, nil, 100000, 0.95, 0, 0)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInsufficientData))
	})
}
