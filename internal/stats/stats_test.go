package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/roomtrack/internal/model"
	"github.com/verte-zerg/roomtrack/internal/session"
)

// run describes one attempt for test fixtures: per-room ticks and,
// when dnf > 0, the time spent in the room after the last completed one.
type run struct {
	rooms []model.TimeTicks
	dnf   model.TimeTicks
}

func buildSession(t *testing.T, runs ...run) *session.PracticeSession {
	t.Helper()
	s := session.New("test", time.Unix(0, 0))
	for _, r := range runs {
		b := model.NewAttemptBuilder(s.NextIndex(), time.Unix(0, 0))
		var cumulative model.TimeTicks
		for i, ticks := range r.rooms {
			cumulative += ticks
			if err := b.CompleteRoom(model.RoomIndex(i), cumulative); err != nil {
				t.Fatalf("complete room: %v", err)
			}
		}
		if r.dnf > 0 {
			if err := b.SetDnf(model.RoomIndex(len(r.rooms)), cumulative+r.dnf); err != nil {
				t.Fatalf("set dnf: %v", err)
			}
		}
		a, err := b.Build()
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		s.AddAttempt(a)
	}
	return s
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if !approxEqual(got[i], want[i]) {
			t.Fatalf("MovingAverage[%d] = %f, want %f", i, got[i], want[i])
		}
	}
	if same := MovingAverage([]float64{1, 2}, 1); same[0] != 1 || same[1] != 2 {
		t.Fatalf("window 1 must copy input, got %v", same)
	}
}

func TestBestSoFar(t *testing.T) {
	got := BestSoFar([]float64{5, 7, 3, 4, 1})
	want := []float64{5, 5, 3, 3, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("BestSoFar = %v, want %v", got, want)
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil); got != "" {
		t.Fatalf("expected empty sparkline, got %q", got)
	}
	if got := Sparkline([]float64{3, 3, 3}); got != "+++" {
		t.Fatalf("expected flat sparkline, got %q", got)
	}
	if got := Sparkline([]float64{0, 10}); got != " @" {
		t.Fatalf("expected extremes, got %q", got)
	}
}

func TestRenderSummary(t *testing.T) {
	s := buildSession(t,
		run{rooms: []model.TimeTicks{10_000_000, 20_000_000}},
		run{rooms: []model.TimeTicks{10_000_000}, dnf: 5_000_000},
		run{rooms: []model.TimeTicks{12_000_000, 22_000_000}},
	)
	var buf bytes.Buffer
	if err := RenderSummary(&buf, s); err != nil {
		t.Fatalf("RenderSummary failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Attempts: 3 (completed 2, dnf 1)", "Best: 3.000", "Median: 3.200", "Rooms: 2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := RenderSummary(&buf, session.New("empty", time.Now())); err != nil {
		t.Fatalf("RenderSummary failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No attempts recorded.") {
		t.Fatalf("unexpected empty output: %q", buf.String())
	}
}

func TestRenderRoomTable(t *testing.T) {
	s := buildSession(t,
		run{rooms: []model.TimeTicks{10_000_000, 20_000_000}},
		run{rooms: []model.TimeTicks{10_000_000}, dnf: 5_000_000},
	)
	var buf bytes.Buffer
	if err := RenderRoomTable(&buf, s); err != nil {
		t.Fatalf("RenderRoomTable failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected title, header and two rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[3], "R2") || !strings.Contains(lines[3], "2.000") {
		t.Fatalf("unexpected R2 row: %q", lines[3])
	}
}

func TestSelectWeakRooms(t *testing.T) {
	s := buildSession(t,
		run{rooms: []model.TimeTicks{10, 10, 10}},
		run{rooms: []model.TimeTicks{10}, dnf: 5},
		run{rooms: []model.TimeTicks{10}, dnf: 5},
		run{rooms: []model.TimeTicks{10, 10}, dnf: 5},
	)
	weak := SelectWeakRooms(s, 2)
	if len(weak) != 2 || weak[0] != 1 || weak[1] != 2 {
		t.Fatalf("unexpected weak rooms: %v", weak)
	}
	if all := SelectWeakRooms(s, 0); len(all) != 3 {
		t.Fatalf("expected every reached room, got %v", all)
	}
}
