package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardDeviation(t *testing.T) {
	tests := []struct {
		name   string
		input  []float64
		expect float64
	}{
		{"empty", nil, 0},
		{"single", []float64{5}, 0},
		{"constant", []float64{3, 3, 3, 3}, 0},
		{"sample", []float64{2, 4, 4, 4, 5, 5, 7, 9}, math.Sqrt(32.0 / 7.0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StandardDeviation(tt.input, Mean(tt.input))
			if !approxEqual(got, tt.expect) {
				t.Errorf("StandardDeviation(%v) = %f, want %f", tt.input, got, tt.expect)
			}
			if got < 0 {
				t.Errorf("StandardDeviation must be non-negative, got %f", got)
			}
		})
	}
}

func TestCoefficientOfVariation(t *testing.T) {
	assert.Equal(t, 0.0, CoefficientOfVariation(5, 0))
	assert.InDelta(t, 0.1, CoefficientOfVariation(10, 100), epsilon)
	assert.GreaterOrEqual(t, CoefficientOfVariation(10, -100), 0.0)
}

func TestMedianAbsoluteDeviation(t *testing.T) {
	assert.Equal(t, 0.0, MedianAbsoluteDeviation(nil))
	assert.Equal(t, 0.0, MedianAbsoluteDeviation([]float64{4, 4, 4}))
	assert.InDelta(t, 1.0, MedianAbsoluteDeviation([]float64{100, 1, 3, 2, 4}), epsilon)
}

func TestLinearRegressionSlope(t *testing.T) {
	tests := []struct {
		name   string
		input  []float64
		expect float64
	}{
		{"empty", nil, 0},
		{"single", []float64{42}, 0},
		{"constant", []float64{7, 7, 7, 7}, 0},
		{"increasing", []float64{10, 13, 16, 19, 22}, 3},
		{"decreasing", []float64{100, 90, 80}, -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LinearRegressionSlope(tt.input)
			if math.Abs(got-tt.expect) > 1e-6 {
				t.Errorf("LinearRegressionSlope(%v) = %f, want %f", tt.input, got, tt.expect)
			}
		})
	}
}
