package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/roomtrack/internal/model"
	"github.com/verte-zerg/roomtrack/internal/session"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// BestSoFar returns the running minimum of values.
func BestSoFar(values []float64) []float64 {
	out := make([]float64, len(values))
	best := math.Inf(1)
	for i, v := range values {
		best = math.Min(best, v)
		out[i] = best
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		idx := int(math.Round((v - lo) / (hi - lo) * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints headline numbers for a session.
func RenderSummary(w io.Writer, s *session.PracticeSession) error {
	if s == nil || s.TotalAttempts() == 0 {
		_, err := fmt.Fprintln(w, "No attempts recorded.")
		return err
	}
	times := Floats(s.SegmentTimes())
	sorted := Sorted(times)
	lines := []string{
		fmt.Sprintf("Session: %s (%s)", s.Name(), s.StartedAt().Local().Format("2006-01-02 15:04")),
		fmt.Sprintf("Rooms: %d", s.HistoryRoomCount()),
		fmt.Sprintf("Attempts: %d (completed %d, dnf %d)", s.TotalAttempts(), s.TotalCompleted(), s.TotalDnfs()),
	}
	if len(sorted) > 0 {
		lines = append(lines,
			"Best: "+model.TicksFromFloat(sorted[0]).String(),
			"Median: "+model.TicksFromFloat(Median(sorted)).String(),
			"Average: "+model.TicksFromFloat(Mean(times)).String(),
			"Runs: "+Sparkline(times),
		)
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderRoomTable prints per-room attempt counts and times.
func RenderRoomTable(w io.Writer, s *session.PracticeSession) error {
	if s == nil || s.RoomCount() == 0 {
		_, err := fmt.Fprintln(w, "No completed attempts yet.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Rooms"); err != nil {
		return err
	}
	headers := []string{"Room", "Attempts", "DNF", "Best", "Median", "Worst"}
	attempts := s.RoomAttemptCounts()
	dnfs := s.RoomDnfCounts()
	rows := make([][]string, 0, s.RoomCount())
	for r := 0; r < s.RoomCount(); r++ {
		room := model.RoomIndex(r)
		sorted := Sorted(Floats(s.RoomTimes(room)))
		best, median, worst := "-", "-", "-"
		if len(sorted) > 0 {
			best = model.TicksFromFloat(sorted[0]).String()
			median = model.TicksFromFloat(Median(sorted)).String()
			worst = model.TicksFromFloat(sorted[len(sorted)-1]).String()
		}
		rows = append(rows, []string{
			room.Label(),
			fmt.Sprintf("%d", attempts[r]),
			fmt.Sprintf("%d", dnfs[r]),
			best,
			median,
			worst,
		})
	}
	aligns := map[int]align{1: alignRight, 2: alignRight, 3: alignTime, 4: alignTime, 5: alignTime}
	return writeTable(w, headers, rows, aligns)
}

// RenderSessionList prints stored sessions.
func RenderSessionList(w io.Writer, sessions []model.SessionSummary) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	headers := []string{"ID", "Name", "Started", "Rooms", "Attempts", "Completed"}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.ID,
			s.Name,
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", s.RoomCount),
			fmt.Sprintf("%d", s.Attempts),
			fmt.Sprintf("%d", s.Completed),
		})
	}
	return writeTable(w, headers, rows, map[int]align{3: alignRight, 4: alignRight, 5: alignRight})
}

// RenderCurves prints segment times with a moving average and the personal best line.
func RenderCurves(w io.Writer, s *session.PracticeSession, window int) error {
	return RenderCurvesWithSize(w, s, window, 0, defaultPlotHeight, false)
}

// RenderCurvesWithSize prints segment curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, s *session.PracticeSession, window, totalWidth, height int, useColor bool) error {
	if s == nil {
		return nil
	}
	times := Floats(s.SegmentTimes())
	if len(times) == 0 {
		return nil
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Segment Times", []Series{
		{Name: "Run", Values: times},
		{Name: fmt.Sprintf("Avg(%d)", window), Values: MovingAverage(times, window)},
		{Name: "Best", Values: BestSoFar(times)},
	}, width, height, useColor)
}

// RenderRoomCurves prints per-room time curves for the selected rooms.
func RenderRoomCurves(w io.Writer, s *session.PracticeSession, rooms []model.RoomIndex, window, totalWidth, height int, useColor bool) error {
	if s == nil || len(rooms) == 0 {
		return nil
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	for _, room := range rooms {
		times := Floats(s.RoomTimes(room))
		if len(times) == 0 {
			continue
		}
		if err := PlotSeriesWithColor(w, "Room "+room.Label(), []Series{
			{Name: "Run", Values: times},
			{Name: fmt.Sprintf("Avg(%d)", window), Values: MovingAverage(times, window)},
		}, width, height, useColor); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(w io.Writer, headers []string, rows [][]string, aligns map[int]align) error {
	for _, line := range formatTable(headers, rows, aligns) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
