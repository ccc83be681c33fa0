package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// StandardDeviation computes the sample standard deviation around a known mean.
// Returns 0 for fewer than 2 values.
func StandardDeviation(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// CoefficientOfVariation returns sd/mean, or 0 when the mean is 0.
func CoefficientOfVariation(sd, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	return math.Abs(sd / mean)
}

// MedianAbsoluteDeviation returns the median of |v - median(values)|.
func MedianAbsoluteDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	median := Median(Sorted(values))
	devs := make([]float64, len(values))
	for i, v := range values {
		devs[i] = math.Abs(v - median)
	}
	sort.Float64s(devs)
	return Median(devs)
}

// LinearRegressionSlope fits values against their 1-based run index.
// Returns 0 for n <= 1 or a degenerate fit.
func LinearRegressionSlope(values []float64) float64 {
	n := len(values)
	if n <= 1 {
		return 0
	}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i + 1)
	}
	_, beta := stat.LinearRegression(xs, values, nil, false)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 0
	}
	return beta
}
