package risk

import (
	"math"
	"math/rand"
	"sort"
)

// Percentile computes the p-th percentile (0 <= p <= 100) of series using
// linear interpolation between closest ranks (the R-7 / spreadsheet
// definition). The input is not modified.
func Percentile(series []float64, p float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}

	sorted := make([]float64, len(series))
	copy(sorted, series)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Mean returns the arithmetic mean of series.
func Mean(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}

// SampleStdDev returns the unbiased (n-1 denominator) sample standard
// deviation of series. Series of fewer than two observations have no sample
// variance and yield zero.
func SampleStdDev(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	mean := Mean(series)
	sumSq := 0.0
	for _, v := range series {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(series)-1))
}

// Correlation returns the Pearson correlation coefficient between x and y,
// which must be the same length. Degenerate inputs (zero variance on either
// side) yield zero.
func Correlation(x, y []float64) float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0
	}
	meanX := Mean(x)
	meanY := Mean(y)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// Coefficients for Acklam's rational approximation of the standard normal
// quantile function. Absolute error is below 1.15e-9 over the full domain.
var (
	icdfA = [6]float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02,
		1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	icdfB = [5]float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02,
		6.680131188771972e+01, -1.328068155288572e+01}
	icdfC = [6]float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00,
		-2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	icdfD = [4]float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00,
		3.754408661907416e+00}
)

// NormalInverseCDF returns the standard normal quantile for probability p in
// (0, 1). p outside (0, 1) yields +-Inf.
func NormalInverseCDF(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	if p >= 1 {
		return math.Inf(1)
	}

	const pLow = 0.02425
	const pHigh = 1 - pLow

	switch {
	case p < pLow:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((icdfC[0]*q+icdfC[1])*q+icdfC[2])*q+icdfC[3])*q+icdfC[4])*q + icdfC[5]) /
			((((icdfD[0]*q+icdfD[1])*q+icdfD[2])*q+icdfD[3])*q + 1)
	case p <= pHigh:
		q := p - 0.5
		r := q * q
		return (((((icdfA[0]*r+icdfA[1])*r+icdfA[2])*r+icdfA[3])*r+icdfA[4])*r + icdfA[5]) * q /
			(((((icdfB[0]*r+icdfB[1])*r+icdfB[2])*r+icdfB[3])*r+icdfB[4])*r + 1)
	default:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((icdfC[0]*q+icdfC[1])*q+icdfC[2])*q+icdfC[3])*q+icdfC[4])*q + icdfC[5]) /
			((((icdfD[0]*q+icdfD[1])*q+icdfD[2])*q+icdfD[3])*q + 1)
	}
}

// NormalPDF returns the standard normal density at z.
func NormalPDF(z float64) float64 {
	return math.Exp(-0.5*z*z) / math.Sqrt(2*math.Pi)
}

// StandardNormalVariate draws one N(0,1) sample from rng using the
// Box-Muller transform.
func StandardNormalVariate(rng *rand.Rand) float64 {
	u1 := rng.Float64()
	for u1 == 0 {
		u1 = rng.Float64()
	}
	u2 := rng.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
