package metrics

import (
	"fmt"
	"math"
	"strconv"

	"github.com/verte-zerg/roomtrack/internal/model"
	"github.com/verte-zerg/roomtrack/internal/session"
	"github.com/verte-zerg/roomtrack/internal/stats"
)

const noValue = "-"

// scope is one time series the metrics run over: the whole segment or a single room.
// Memo keys are prefixed with the scope key so segment and room values never collide.
type scope struct {
	key    string
	values func() []float64
}

func segmentScope(s *session.PracticeSession) scope {
	return scope{
		key:    "segment",
		values: func() []float64 { return stats.Floats(s.SegmentTimes()) },
	}
}

func roomScope(s *session.PracticeSession, room model.RoomIndex) scope {
	return scope{
		key:    "room " + room.Label(),
		values: func() []float64 { return stats.Floats(s.RoomTimes(room)) },
	}
}

func (sc scope) times(ctx *Context) []float64 {
	return Memo(ctx, sc.key+" times", sc.values)
}

func (sc scope) sorted(ctx *Context) []float64 {
	return Memo(ctx, sc.key+" sorted times", func() []float64 {
		return stats.Sorted(sc.times(ctx))
	})
}

func (sc scope) mean(ctx *Context) float64 {
	return Memo(ctx, sc.key+" average", func() float64 {
		return stats.Mean(sc.times(ctx))
	})
}

func (sc scope) stdDev(ctx *Context) float64 {
	return Memo(ctx, sc.key+" std dev", func() float64 {
		return stats.StandardDeviation(sc.times(ctx), sc.mean(ctx))
	})
}

func (sc scope) median(ctx *Context) float64 {
	return Memo(ctx, sc.key+" median", func() float64 {
		return stats.Median(sc.sorted(ctx))
	})
}

func (sc scope) mad(ctx *Context) float64 {
	return Memo(ctx, sc.key+" mad", func() float64 {
		return stats.MedianAbsoluteDeviation(sc.times(ctx))
	})
}

func (sc scope) best(ctx *Context) float64 {
	return Memo(ctx, sc.key+" best", func() float64 {
		sorted := sc.sorted(ctx)
		if len(sorted) == 0 {
			return 0
		}
		return sorted[0]
	})
}

func (sc scope) worst(ctx *Context) float64 {
	sorted := sc.sorted(ctx)
	if len(sorted) == 0 {
		return 0
	}
	return sorted[len(sorted)-1]
}

// perScope applies stat to the segment and, for export, to every room with data.
func perScope(stat func(ctx *Context, sc scope) string) computeFunc {
	return func(s *session.PracticeSession, ctx *Context, export bool) Result {
		res := Result{Segment: stat(ctx, segmentScope(s))}
		if !export {
			return res
		}
		res.Rooms = make([]string, s.RoomCount())
		for r := range res.Rooms {
			sc := roomScope(s, model.RoomIndex(r))
			if len(sc.times(ctx)) == 0 {
				continue
			}
			res.Rooms[r] = stat(ctx, sc)
		}
		return res
	}
}

// perCount reports a session total and, for export, one count per room.
func perCount(total func(*session.PracticeSession) int, rooms func(*session.PracticeSession) []int) computeFunc {
	return func(s *session.PracticeSession, _ *Context, export bool) Result {
		res := Result{Segment: strconv.Itoa(total(s))}
		if !export {
			return res
		}
		for _, n := range rooms(s) {
			res.Rooms = append(res.Rooms, strconv.Itoa(n))
		}
		return res
	}
}

// perRatio reports a session ratio and, for export, num/den per room.
func perRatio(segment func(*session.PracticeSession) float64, num, den func(*session.PracticeSession) []int) computeFunc {
	return func(s *session.PracticeSession, _ *Context, export bool) Result {
		res := Result{Segment: formatPercent(segment(s))}
		if !export {
			return res
		}
		nums, dens := num(s), den(s)
		res.Rooms = make([]string, len(dens))
		for r := range dens {
			if dens[r] == 0 {
				continue
			}
			res.Rooms[r] = formatPercent(ratio(nums[r], dens[r]))
		}
		return res
	}
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func formatTime(v float64) string {
	return model.TicksFromFloat(v).String()
}

func formatPercent(r float64) string {
	return fmt.Sprintf("%.2f%%", r*100)
}

func formatTrend(slope float64) string {
	sign := "+"
	if slope < 0 {
		sign = "-"
	}
	return sign + formatTime(math.Abs(slope)) + "/run"
}

func successRate(target func() model.TimeTicks) func(*session.PracticeSession) float64 {
	return func(s *session.PracticeSession) float64 {
		limit := target()
		if limit <= 0 {
			return ratio(s.TotalCompleted(), s.TotalAttempts())
		}
		hits := 0
		for _, t := range s.SegmentTimes() {
			if t <= limit {
				hits++
			}
		}
		return ratio(hits, s.TotalAttempts())
	}
}

func resetRate(s *session.PracticeSession) float64 {
	return ratio(s.TotalDnfs(), s.TotalAttempts())
}

func resetShare(s *session.PracticeSession, _ *Context, export bool) Result {
	dnfs := s.RoomDnfCounts()
	total := s.TotalDnfs()
	res := Result{Segment: noValue}
	worst := -1
	for r, n := range dnfs {
		if n > 0 && (worst < 0 || n > dnfs[worst]) {
			worst = r
		}
	}
	if worst >= 0 {
		res.Segment = fmt.Sprintf("%s (%s)", model.RoomIndex(worst).Label(), formatPercent(ratio(dnfs[worst], total)))
	}
	if !export {
		return res
	}
	res.Rooms = make([]string, len(dnfs))
	for r, n := range dnfs {
		res.Rooms[r] = formatPercent(ratio(n, total))
	}
	return res
}

// sumOfBest adds the per-room bests. Bests memoized by an earlier Best pass are
// reused; rooms Best did not visit (overlay passes, Best disabled) are computed here.
func sumOfBest(s *session.PracticeSession, ctx *Context, _ bool) Result {
	var sum float64
	for r := 0; r < s.RoomCount(); r++ {
		sum += roomScope(s, model.RoomIndex(r)).best(ctx)
	}
	return Result{Segment: formatTime(sum)}
}

func consistency(s *session.PracticeSession, ctx *Context, _ bool) Result {
	sc := segmentScope(s)
	sorted := sc.sorted(ctx)
	if len(sorted) == 0 {
		return Result{Segment: noValue}
	}
	score := stats.ConsistencyScore(stats.ConsistencyInput{
		Median:    sc.median(ctx),
		Min:       sorted[0],
		MAD:       sc.mad(ctx),
		ResetRate: resetRate(s),
		Q1:        stats.Percentile(sorted, 25),
		Q3:        stats.Percentile(sorted, 75),
	})
	return Result{Segment: fmt.Sprintf("%.2f", score)}
}

func peaks(opts func() stats.PeakOptions) computeFunc {
	return func(s *session.PracticeSession, ctx *Context, _ bool) Result {
		times := segmentScope(s).times(ctx)
		if len(times) == 0 {
			return Result{Segment: noValue}
		}
		res := stats.AnalyzePeaks(times, opts())
		if !res.IsBimodal {
			return Result{Segment: fmt.Sprintf("%s (100%%)", formatTime(res.Fast.Center))}
		}
		return Result{Segment: fmt.Sprintf("%s (%.0f%%) / %s (%.0f%%)",
			formatTime(res.Fast.Center), res.Fast.Weight*100,
			formatTime(res.Slow.Center), res.Slow.Weight*100)}
	}
}

func catalog(st *Settings) []Descriptor {
	fixed := func(label string) func() string {
		return func() string { return label }
	}
	entry := func(k Kind, header, name func() string, compute computeFunc) Descriptor {
		return Descriptor{
			kind:    k,
			header:  header,
			name:    name,
			compute: compute,
			mode:    func() Mode { return st.Mode(k) },
		}
	}
	target := func() model.TimeTicks { return st.Target }
	percentileLabel := func() string {
		return "P" + strconv.FormatFloat(st.Percentile, 'f', -1, 64)
	}
	successHeader := func() string {
		if st.Target > 0 {
			return "Success Rate (<= " + st.Target.String() + ")"
		}
		return "Success Rate"
	}
	successName := func() string {
		if st.Target > 0 {
			return "Sub " + st.Target.String()
		}
		return "Success"
	}
	completedAll := func(s *session.PracticeSession) []int { return s.RoomCompletionCounts() }
	attemptsAll := func(s *session.PracticeSession) []int { return s.RoomAttemptCounts() }
	dnfsAll := func(s *session.PracticeSession) []int { return s.RoomDnfCounts() }

	return []Descriptor{
		entry(KindAttempts, fixed("Attempts"), fixed("Attempts"),
			perCount((*session.PracticeSession).TotalAttempts, attemptsAll)),
		entry(KindCompleted, fixed("Completed"), fixed("Completed"),
			perCount((*session.PracticeSession).TotalCompleted, completedAll)),
		entry(KindDNFs, fixed("DNFs"), fixed("DNF"),
			perCount((*session.PracticeSession).TotalDnfs, dnfsAll)),
		entry(KindSuccessRate, successHeader, successName,
			perRatio(successRate(target), completedAll, attemptsAll)),
		entry(KindResetRate, fixed("Reset Rate"), fixed("Resets"),
			perRatio(resetRate, dnfsAll, attemptsAll)),
		entry(KindResetShare, fixed("Reset Share"), fixed("Worst Room"), resetShare),
		entry(KindAverage, fixed("Average"), fixed("Avg"), perScope(func(ctx *Context, sc scope) string {
			return formatTime(sc.mean(ctx))
		})),
		entry(KindMedian, fixed("Median"), fixed("Median"), perScope(func(ctx *Context, sc scope) string {
			return formatTime(sc.median(ctx))
		})),
		entry(KindStdDev, fixed("Std Dev"), fixed("SD"), perScope(func(ctx *Context, sc scope) string {
			return formatTime(sc.stdDev(ctx))
		})),
		entry(KindCoefVariation, fixed("Coef of Variation"), fixed("CV"), perScope(func(ctx *Context, sc scope) string {
			return formatPercent(stats.CoefficientOfVariation(sc.stdDev(ctx), sc.mean(ctx)))
		})),
		entry(KindMAD, fixed("MAD"), fixed("MAD"), perScope(func(ctx *Context, sc scope) string {
			return formatTime(sc.mad(ctx))
		})),
		entry(KindBest, fixed("Best"), fixed("Best"), perScope(func(ctx *Context, sc scope) string {
			return formatTime(sc.best(ctx))
		})),
		entry(KindWorst, fixed("Worst"), fixed("Worst"), perScope(func(ctx *Context, sc scope) string {
			return formatTime(sc.worst(ctx))
		})),
		entry(KindSumOfBest, fixed("Sum of Best"), fixed("SoB"), sumOfBest),
		entry(KindPercentile, percentileLabel, percentileLabel, perScope(func(ctx *Context, sc scope) string {
			return formatTime(stats.Percentile(sc.sorted(ctx), st.Percentile))
		})),
		entry(KindTrend, fixed("Trend"), fixed("Trend"), perScope(func(ctx *Context, sc scope) string {
			return formatTrend(stats.LinearRegressionSlope(sc.times(ctx)))
		})),
		entry(KindConsistency, fixed("Consistency"), fixed("Consistency"), consistency),
		entry(KindPeaks, fixed("Peaks"), fixed("Peaks"), peaks(func() stats.PeakOptions { return st.Peaks })),
	}
}
