package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/verte-zerg/roomtrack/internal/model"
)

const (
	defaultPeakBins         = 15
	defaultGapFactor        = 1.2
	defaultMinClusterWeight = 0.05
	defaultBimodalThreshold = 5.0 / 9.0

	clusterSpreadRatio   = 0.1
	tightConsistency     = 0.8
	masteredWeight       = 0.7
	fallbackWeight       = 0.3
	fastMajorityWeight   = 0.5
	noCompletedNarrative = "No completed runs yet."
)

// PeakOptions are the tuning knobs of the peak/cluster heuristic.
type PeakOptions struct {
	Bins             int
	GapFactor        float64
	MinWeight        float64
	BimodalThreshold float64
}

// DefaultPeakOptions returns the stock thresholds.
func DefaultPeakOptions() PeakOptions {
	return PeakOptions{
		Bins:             defaultPeakBins,
		GapFactor:        defaultGapFactor,
		MinWeight:        defaultMinClusterWeight,
		BimodalThreshold: defaultBimodalThreshold,
	}
}

func (o PeakOptions) normalized() PeakOptions {
	def := DefaultPeakOptions()
	if o.Bins <= 0 {
		o.Bins = def.Bins
	}
	if o.GapFactor <= 0 {
		o.GapFactor = def.GapFactor
	}
	if o.MinWeight < 0 {
		o.MinWeight = def.MinWeight
	}
	if o.BimodalThreshold <= 0 {
		o.BimodalThreshold = def.BimodalThreshold
	}
	return o
}

// Cluster describes the runs assigned to one peak.
type Cluster struct {
	Center      float64
	Weight      float64
	Count       int
	Consistency float64
}

// PeakAnalysis is the result of AnalyzePeaks. For unimodal sessions Fast and Slow hold the same cluster.
type PeakAnalysis struct {
	IsBimodal   bool
	Fast        Cluster
	Slow        Cluster
	Coefficient float64
	HasGap      bool
	Maxima      int
	Narrative   string
}

// BimodalityCoefficient is (g²+1)/(k + 3(n-1)²/((n-2)(n-3))) over sample skewness g and excess kurtosis k.
// Returns 0 for fewer than 4 values or a constant series.
func BimodalityCoefficient(values []float64) float64 {
	n := float64(len(values))
	if len(values) < 4 {
		return 0
	}
	g := stat.Skew(values, nil)
	k := stat.ExKurtosis(values, nil)
	if math.IsNaN(g) || math.IsNaN(k) || math.IsInf(g, 0) || math.IsInf(k, 0) {
		return 0
	}
	den := k + 3*(n-1)*(n-1)/((n-2)*(n-3))
	if den <= 0 {
		return 0
	}
	return (g*g + 1) / den
}

// HasSignificantGap reports whether the largest adjacent gap in sorted exceeds factor*sd.
func HasSignificantGap(sorted []float64, sd, factor float64) bool {
	if len(sorted) < 2 {
		return false
	}
	var largest float64
	for i := 1; i < len(sorted); i++ {
		if gap := sorted[i] - sorted[i-1]; gap > largest {
			largest = gap
		}
	}
	return largest > factor*sd
}

// Histogram buckets values into bins equal-width bins over [min, max].
func Histogram(values []float64, bins int) (counts []int, lo, width float64) {
	if bins <= 0 || len(values) == 0 {
		return nil, 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	counts = make([]int, bins)
	width = (hi - lo) / float64(bins)
	for _, v := range values {
		idx := 0
		if width > 0 {
			idx = int((v - lo) / width)
		}
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}
	return counts, lo, width
}

func localMaxima(counts []int) []int {
	var maxima []int
	for i, c := range counts {
		if c == 0 {
			continue
		}
		if i > 0 && counts[i-1] > c {
			continue
		}
		if i < len(counts)-1 && counts[i+1] > c {
			continue
		}
		maxima = append(maxima, i)
	}
	sort.SliceStable(maxima, func(a, b int) bool {
		return counts[maxima[a]] > counts[maxima[b]]
	})
	return maxima
}

// AnalyzePeaks looks for one or two strategies (time clusters) in values.
func AnalyzePeaks(values []float64, opts PeakOptions) PeakAnalysis {
	opts = opts.normalized()
	if len(values) == 0 {
		return PeakAnalysis{Narrative: noCompletedNarrative}
	}
	sorted := Sorted(values)
	sd := StandardDeviation(values, Mean(values))

	res := PeakAnalysis{
		Coefficient: BimodalityCoefficient(values),
		HasGap:      HasSignificantGap(sorted, sd, opts.GapFactor),
	}
	counts, lo, width := Histogram(values, opts.Bins)
	maxima := localMaxima(counts)
	res.Maxima = len(maxima)
	center := func(bin int) float64 {
		return lo + (float64(bin)+0.5)*width
	}

	candidate := res.Coefficient > opts.BimodalThreshold && res.HasGap && len(maxima) >= 2
	if !candidate {
		c := buildCluster(values, center(maxima[0]), len(values))
		res.Fast, res.Slow = c, c
		res.Narrative = narrate(res)
		return res
	}

	fastCenter := math.Min(center(maxima[0]), center(maxima[1]))
	slowCenter := math.Max(center(maxima[0]), center(maxima[1]))
	var fastVals, slowVals []float64
	for _, v := range values {
		if math.Abs(v-fastCenter) <= math.Abs(v-slowCenter) {
			fastVals = append(fastVals, v)
		} else {
			slowVals = append(slowVals, v)
		}
	}
	res.Fast = buildCluster(fastVals, fastCenter, len(values))
	res.Slow = buildCluster(slowVals, slowCenter, len(values))
	res.IsBimodal = true

	if res.Fast.Weight < opts.MinWeight || res.Slow.Weight < opts.MinWeight {
		heavier := res.Fast
		if res.Slow.Weight > res.Fast.Weight {
			heavier = res.Slow
		}
		res.Fast, res.Slow = heavier, heavier
		res.IsBimodal = false
	}
	res.Narrative = narrate(res)
	return res
}

func buildCluster(members []float64, center float64, total int) Cluster {
	c := Cluster{Center: center, Count: len(members)}
	if len(members) == 0 || total == 0 {
		return c
	}
	c.Weight = float64(len(members)) / float64(total)
	var dev float64
	for _, v := range members {
		dev += math.Abs(v - center)
	}
	dev /= float64(len(members))
	limit := center * clusterSpreadRatio
	switch {
	case limit > 0:
		c.Consistency = math.Max(0, 1-dev/limit)
	case dev == 0:
		c.Consistency = 1
	}
	return c
}

func narrate(res PeakAnalysis) string {
	fast := model.TicksFromFloat(res.Fast.Center)
	slow := model.TicksFromFloat(res.Slow.Center)
	if !res.IsBimodal {
		if res.Fast.Consistency > tightConsistency {
			return fmt.Sprintf("One strategy around %s. Execution is tight (%.0f%% consistency).", fast, res.Fast.Consistency*100)
		}
		return fmt.Sprintf("One strategy around %s. Execution is loose (%.0f%% consistency).", fast, res.Fast.Consistency*100)
	}

	var text string
	switch {
	case res.Fast.Weight > masteredWeight:
		text = fmt.Sprintf("Fast strategy mastered: %.0f%% of runs land near %s with an occasional fallback near %s.",
			res.Fast.Weight*100, fast, slow)
	case res.Fast.Weight < fallbackWeight:
		text = fmt.Sprintf("Fallback dominant: %.0f%% of runs land near %s and the fast strategy near %s shows up in %.0f%%.",
			res.Slow.Weight*100, slow, fast, res.Fast.Weight*100)
	default:
		text = fmt.Sprintf("Split between a fast strategy near %s (%.0f%%) and a slower one near %s (%.0f%%).",
			fast, res.Fast.Weight*100, slow, res.Slow.Weight*100)
	}
	if res.Fast.Consistency < res.Slow.Consistency && res.Fast.Weight > fastMajorityWeight {
		text += " Warning: the fast strategy is less consistent than the fallback."
	}
	return text
}
