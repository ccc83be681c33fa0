package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/roomtrack/internal/model"
	"github.com/verte-zerg/roomtrack/internal/session"
)

const second = model.TicksPerSecond

func addRun(t *testing.T, s *session.PracticeSession, dnfInto model.TimeTicks, rooms ...model.TimeTicks) {
	t.Helper()
	b := model.NewAttemptBuilder(s.NextIndex(), time.Unix(0, 0))
	var cumulative model.TimeTicks
	for i, r := range rooms {
		cumulative += r
		require.NoError(t, b.CompleteRoom(model.RoomIndex(i), cumulative))
	}
	if dnfInto > 0 {
		require.NoError(t, b.SetDnf(model.RoomIndex(len(rooms)), cumulative+dnfInto))
	}
	a, err := b.Build()
	require.NoError(t, err)
	s.AddAttempt(a)
}

// fixture: two completed runs over two rooms and one run that died in R2.
func fixture(t *testing.T) *session.PracticeSession {
	s := session.New("fixture", time.Unix(0, 0))
	addRun(t, s, 0, second/2, second*7/10)
	addRun(t, s, 0, second*6/10, second*8/10)
	addRun(t, s, second/5, second/2)
	return s
}

func onlyModes(modes map[Kind]Mode) *Settings {
	st := DefaultSettings()
	st.Modes = modes
	return st
}

func resultsByKind(entries []Entry) map[Kind]Result {
	out := map[Kind]Result{}
	for _, e := range entries {
		out[e.Descriptor.Kind()] = e.Result
	}
	return out
}

func TestContextMemoAndLookup(t *testing.T) {
	ctx := NewContext()
	calls := 0
	compute := func() float64 {
		calls++
		return 42
	}
	assert.Equal(t, 42.0, Memo(ctx, "answer", compute))
	assert.Equal(t, 42.0, Memo(ctx, "answer", compute))
	assert.Equal(t, 1, calls)

	_, ok := Lookup[float64](ctx, "missing")
	assert.False(t, ok)

	ctx.Set("times", []float64{1, 2})
	assert.Panics(t, func() {
		Lookup[float64](ctx, "times")
	})
}

func TestRegistryOrderAndFilter(t *testing.T) {
	reg := NewRegistry(onlyModes(map[Kind]Mode{
		KindBest:     ModeOverlay,
		KindAverage:  ModeBoth,
		KindAttempts: ModeExport,
	}))

	all := reg.All()
	require.Len(t, all, len(Kinds()))
	for i, d := range all {
		assert.Equal(t, Kind(i), d.Kind())
	}

	var overlay []Kind
	for _, d := range reg.Filter(ChannelOverlay) {
		overlay = append(overlay, d.Kind())
	}
	assert.Equal(t, []Kind{KindAverage, KindBest}, overlay)

	var export []Kind
	for _, d := range reg.Filter(ChannelExport) {
		export = append(export, d.Kind())
	}
	assert.Equal(t, []Kind{KindAttempts, KindAverage}, export)
}

func TestComputeExport(t *testing.T) {
	modes := map[Kind]Mode{}
	for _, k := range Kinds() {
		modes[k] = ModeExport
	}
	engine := NewEngine(NewRegistry(onlyModes(modes)))
	res := resultsByKind(engine.Compute(fixture(t), ChannelExport))

	assert.Equal(t, Result{Segment: "3", Rooms: []string{"3", "3"}}, res[KindAttempts])
	assert.Equal(t, Result{Segment: "2", Rooms: []string{"3", "2"}}, res[KindCompleted])
	assert.Equal(t, Result{Segment: "1", Rooms: []string{"0", "1"}}, res[KindDNFs])
	assert.Equal(t, Result{Segment: "66.67%", Rooms: []string{"100.00%", "66.67%"}}, res[KindSuccessRate])
	assert.Equal(t, Result{Segment: "33.33%", Rooms: []string{"0.00%", "33.33%"}}, res[KindResetRate])
	assert.Equal(t, Result{Segment: "R2 (100.00%)", Rooms: []string{"0.00%", "100.00%"}}, res[KindResetShare])
	assert.Equal(t, Result{Segment: "1.300", Rooms: []string{"0.550", "0.750"}}, res[KindAverage])
	assert.Equal(t, Result{Segment: "1.200", Rooms: []string{"0.500", "0.700"}}, res[KindBest])
	assert.Equal(t, Result{Segment: "1.400", Rooms: []string{"0.600", "0.800"}}, res[KindWorst])
	assert.Equal(t, Result{Segment: "1.200"}, res[KindSumOfBest])
	assert.Equal(t, Result{Segment: "+0.200/run", Rooms: []string{"+0.100/run", "+0.100/run"}}, res[KindTrend])
	assert.Equal(t, "1.380", res[KindPercentile].Segment)
	assert.NotEmpty(t, res[KindConsistency].Segment)
	assert.Empty(t, res[KindConsistency].Rooms)
}

func TestComputeOverlayOmitsRooms(t *testing.T) {
	engine := NewEngine(NewRegistry(onlyModes(map[Kind]Mode{
		KindAverage:   ModeOverlay,
		KindSumOfBest: ModeOverlay,
	})))
	entries := engine.Compute(fixture(t), ChannelOverlay)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Empty(t, e.Result.Rooms)
	}
	assert.Equal(t, "1.200", entries[1].Result.Segment, "sum of best computes room bests itself")
}

func TestSuccessRateTarget(t *testing.T) {
	st := onlyModes(map[Kind]Mode{KindSuccessRate: ModeBoth})
	st.Target = second * 5 / 4
	reg := NewRegistry(st)
	d := reg.Filter(ChannelOverlay)[0]

	assert.Equal(t, "Success Rate (<= 1.250)", d.CSVHeader())
	assert.Equal(t, "Sub 1.250", d.Name())
	res := d.Compute(fixture(t), NewContext(), false)
	assert.Equal(t, "33.33%", res.Segment)
}

func TestPercentileHeaderFollowsSettings(t *testing.T) {
	st := onlyModes(map[Kind]Mode{KindPercentile: ModeExport})
	reg := NewRegistry(st)
	d := reg.Filter(ChannelExport)[0]
	assert.Equal(t, "P90", d.CSVHeader())
	st.Percentile = 99.5
	assert.Equal(t, "P99.5", d.CSVHeader())
}

func TestEmptySessionIsNeutral(t *testing.T) {
	modes := map[Kind]Mode{}
	for _, k := range Kinds() {
		modes[k] = ModeBoth
	}
	engine := NewEngine(NewRegistry(onlyModes(modes)))
	s := session.New("empty", time.Unix(0, 0))

	res := resultsByKind(engine.Compute(s, ChannelExport))
	assert.Equal(t, "0", res[KindAttempts].Segment)
	assert.Equal(t, "0.00%", res[KindSuccessRate].Segment)
	assert.Equal(t, "0.000", res[KindAverage].Segment)
	assert.Equal(t, "0.000", res[KindSumOfBest].Segment)
	assert.Equal(t, noValue, res[KindResetShare].Segment)
	assert.Equal(t, noValue, res[KindPeaks].Segment)
	assert.Empty(t, res[KindAverage].Rooms)
}

func TestSameSettings(t *testing.T) {
	st := onlyModes(map[Kind]Mode{KindAverage: ModeOverlay, KindSuccessRate: ModeOverlay})
	engine := NewEngine(NewRegistry(st))
	s := fixture(t)

	assert.False(t, engine.SameSettings(), "no overlay pass yet")
	engine.Compute(s, ChannelOverlay)
	assert.True(t, engine.SameSettings())

	engine.Compute(s, ChannelExport)
	assert.True(t, engine.SameSettings(), "export passes do not touch the overlay set")

	st.Target = second
	assert.False(t, engine.SameSettings(), "names depend on the target")
	engine.Compute(s, ChannelOverlay)
	assert.True(t, engine.SameSettings())

	st.SetMode(KindBest, ModeBoth)
	assert.False(t, engine.SameSettings())
}

func TestDescriptorEqualByName(t *testing.T) {
	a := NewRegistry(nil).All()
	b := NewRegistry(nil).All()
	assert.True(t, a[KindAverage].Equal(b[KindAverage]))
	assert.False(t, a[KindAverage].Equal(b[KindMedian]))
}

func TestParseKindAndMode(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("nope")
	assert.Error(t, err)

	m, err := ParseMode("both")
	require.NoError(t, err)
	assert.True(t, m.Enabled(ChannelOverlay))
	assert.True(t, m.Enabled(ChannelExport))
	assert.False(t, ModeOff.Enabled(ChannelOverlay))
	_, err = ParseMode("sometimes")
	assert.Error(t, err)
}
