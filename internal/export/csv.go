// Package export renders sessions as CSV tables and overlay text.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/verte-zerg/roomtrack/internal/metrics"
	"github.com/verte-zerg/roomtrack/internal/model"
	"github.com/verte-zerg/roomtrack/internal/session"
)

// ErrNothingToExport is returned when a session has no data to write.
var ErrNothingToExport = errors.New("nothing to export")

// MetricsCSV renders the export-channel metrics as a Room/Segment table.
// It returns "" for a session without attempts.
func MetricsCSV(s *session.PracticeSession, engine *metrics.Engine) string {
	if s == nil || s.TotalAttempts() == 0 {
		return ""
	}
	entries := engine.Compute(s, metrics.ChannelExport)

	header := make([]string, 0, len(entries)+1)
	header = append(header, "Room/Segment")
	segment := make([]string, 0, len(entries)+1)
	segment = append(segment, "Segment")
	for _, e := range entries {
		header = append(header, e.Descriptor.CSVHeader())
		segment = append(segment, e.Result.Segment)
	}
	records := [][]string{header, segment}

	for r := 0; r < s.RoomCount(); r++ {
		row := make([]string, 0, len(entries)+1)
		row = append(row, model.RoomIndex(r).Label())
		for _, e := range entries {
			value := ""
			if r < len(e.Result.Rooms) {
				value = e.Result.Rooms[r]
			}
			row = append(row, value)
		}
		records = append(records, row)
	}
	return encode(records)
}

// AttemptsCSV renders one row per attempt with its room times and segment time.
// It returns "" for a session without attempts.
func AttemptsCSV(s *session.PracticeSession) string {
	if s == nil || s.TotalAttempts() == 0 {
		return ""
	}
	rooms := s.HistoryRoomCount()
	header := make([]string, 0, rooms+2)
	header = append(header, "Attempt")
	for r := 0; r < rooms; r++ {
		header = append(header, model.RoomIndex(r).Label())
	}
	header = append(header, "Segment")
	records := [][]string{header}

	for _, a := range s.Attempts() {
		row := make([]string, 0, rooms+2)
		row = append(row, strconv.Itoa(a.Index()+1))
		for r := 0; r < rooms; r++ {
			value := ""
			if t, ok := a.RoomTime(model.RoomIndex(r)); ok {
				value = t.String()
			}
			row = append(row, value)
		}
		segment := ""
		if a.Completed() {
			segment = a.SegmentTime().String()
		}
		records = append(records, append(row, segment))
	}
	return encode(records)
}

// WriteFile writes content to path, creating parent directories.
// Empty content yields ErrNothingToExport and leaves the file system untouched.
func WriteFile(path, content string) error {
	if content == "" {
		return ErrNothingToExport
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

func encode(records [][]string) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	// Writes to a strings.Builder never fail.
	_ = w.WriteAll(records)
	return b.String()
}
