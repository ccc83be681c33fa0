package stats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bimodalSample(fast, slow int) []float64 {
	values := make([]float64, 0, fast+slow)
	for i := 0; i < fast; i++ {
		values = append(values, 1000+float64(i%7))
	}
	for i := 0; i < slow; i++ {
		values = append(values, 1400+float64(i%7))
	}
	return values
}

func unimodalSample() []float64 {
	pattern := []float64{0, 1, 1, 2, 2, 2, 3, 3, 4}
	values := make([]float64, 0, 45)
	for i := 0; i < 5; i++ {
		for _, p := range pattern {
			values = append(values, 1000+p)
		}
	}
	return values
}

func TestAnalyzePeaksBimodal(t *testing.T) {
	res := AnalyzePeaks(bimodalSample(70, 30), DefaultPeakOptions())

	assert.True(t, res.IsBimodal)
	assert.True(t, res.HasGap)
	assert.Greater(t, res.Coefficient, DefaultPeakOptions().BimodalThreshold)
	assert.InDelta(t, 0.7, res.Fast.Weight, 1e-9)
	assert.InDelta(t, 0.3, res.Slow.Weight, 1e-9)
	assert.Equal(t, 70, res.Fast.Count)
	assert.Equal(t, 30, res.Slow.Count)
	assert.Less(t, res.Fast.Center, res.Slow.Center)
	assert.Greater(t, res.Fast.Consistency, 0.0)
	assert.Contains(t, res.Narrative, "Split")
}

func TestAnalyzePeaksUnimodal(t *testing.T) {
	res := AnalyzePeaks(unimodalSample(), DefaultPeakOptions())

	assert.False(t, res.IsBimodal)
	assert.False(t, res.HasGap)
	assert.Equal(t, res.Fast, res.Slow)
	assert.InDelta(t, 1.0, res.Fast.Weight, 1e-9)
	assert.Greater(t, res.Fast.Consistency, tightConsistency)
	assert.True(t, strings.Contains(res.Narrative, "tight"), res.Narrative)
}

func TestAnalyzePeaksMastered(t *testing.T) {
	res := AnalyzePeaks(bimodalSample(85, 15), DefaultPeakOptions())
	require.True(t, res.IsBimodal)
	assert.Contains(t, res.Narrative, "mastered")
}

func TestAnalyzePeaksFallbackDominant(t *testing.T) {
	res := AnalyzePeaks(bimodalSample(20, 80), DefaultPeakOptions())
	require.True(t, res.IsBimodal)
	assert.Contains(t, res.Narrative, "Fallback dominant")
}

func TestAnalyzePeaksDowngradesTinyCluster(t *testing.T) {
	opts := DefaultPeakOptions()
	opts.MinWeight = 0.2
	res := AnalyzePeaks(bimodalSample(85, 15), opts)

	assert.False(t, res.IsBimodal)
	assert.Equal(t, res.Fast, res.Slow)
	assert.Equal(t, 85, res.Fast.Count, "the heavier cluster is kept")
}

func TestAnalyzePeaksDegenerate(t *testing.T) {
	empty := AnalyzePeaks(nil, DefaultPeakOptions())
	assert.False(t, empty.IsBimodal)
	assert.Equal(t, noCompletedNarrative, empty.Narrative)

	single := AnalyzePeaks([]float64{1234}, DefaultPeakOptions())
	assert.False(t, single.IsBimodal)
	assert.Equal(t, 1, single.Fast.Count)
	assert.InDelta(t, 1.0, single.Fast.Consistency, 1e-9)
}

func TestBimodalityCoefficientDegenerate(t *testing.T) {
	assert.Equal(t, 0.0, BimodalityCoefficient([]float64{1, 2, 3}))
	assert.Equal(t, 0.0, BimodalityCoefficient([]float64{5, 5, 5, 5, 5}))
}

func TestHasSignificantGap(t *testing.T) {
	assert.False(t, HasSignificantGap([]float64{1}, 0, 1.2))
	assert.True(t, HasSignificantGap([]float64{1, 2, 10}, 4.9, 1.2))
	assert.False(t, HasSignificantGap([]float64{1, 2, 3}, 1, 1.2))
}

func TestHistogram(t *testing.T) {
	counts, lo, width := Histogram([]float64{0, 1, 2, 3, 10}, 5)
	assert.Equal(t, []int{2, 2, 0, 0, 1}, counts)
	assert.Equal(t, 0.0, lo)
	assert.InDelta(t, 2.0, width, epsilon)

	flat, _, flatWidth := Histogram([]float64{3, 3, 3}, 4)
	assert.Equal(t, []int{3, 0, 0, 0}, flat)
	assert.Equal(t, 0.0, flatWidth)
}
