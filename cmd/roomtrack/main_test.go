package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/roomtrack/internal/events"
	"github.com/verte-zerg/roomtrack/internal/export"
	"github.com/verte-zerg/roomtrack/internal/metrics"
	"github.com/verte-zerg/roomtrack/internal/model"
)

const eventLog = `{"type":"session","name":"any%"}
{"type":"room","room":0,"ticks":5000000}
{"type":"room","room":1,"ticks":12000000,"final":true}
{"type":"room","room":0,"ticks":4000000}
{"type":"dnf","room":1,"ticks":6000000}
{"type":"session","name":"glitchless"}
{"type":"room","room":0,"ticks":9000000,"final":true}
`

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return dir
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("roomtrack %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestImportSessionsExport(t *testing.T) {
	dir := isolate(t)
	logPath := filepath.Join(dir, "events.ndjson")
	if err := os.WriteFile(logPath, []byte(eventLog), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out := execute(t, "import", logPath)
	if !strings.Contains(out, "Imported 2 sessions (3 attempts)") {
		t.Fatalf("unexpected import output: %q", out)
	}

	out = execute(t, "sessions")
	if !strings.Contains(out, "any%") || !strings.Contains(out, "glitchless") {
		t.Fatalf("sessions listing missing names:\n%s", out)
	}

	out = execute(t, "sessions", "--name", "any%")
	if strings.Contains(out, "glitchless") {
		t.Fatalf("name filter ignored:\n%s", out)
	}

	out = execute(t, "export", "--kind", "attempts")
	if out != "Attempt,R1,Segment\n1,0.900,0.900\n" {
		t.Fatalf("unexpected attempts export: %q", out)
	}

	csvPath := filepath.Join(dir, "out", "metrics.csv")
	execute(t, "export", "--out", csvPath)
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "Room/Segment,Attempts") {
		t.Fatalf("unexpected metrics export: %q", data)
	}

	out = execute(t, "stats", "--plain", "--name", "any%")
	for _, want := range []string{"Session: any%", "Attempts: 2 (completed 1, dnf 1)", "Best: 1.200", "Weakest rooms: R2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("plain report missing %q:\n%s", want, out)
		}
	}
}

func TestExportEmptyStore(t *testing.T) {
	isolate(t)
	if out := execute(t, "export"); out != "" {
		t.Fatalf("expected no output, got %q", out)
	}
	out := execute(t, "stats", "--plain")
	if !strings.Contains(out, "No attempts recorded.") {
		t.Fatalf("unexpected plain report: %q", out)
	}
}

func TestRejectsBadFlags(t *testing.T) {
	isolate(t)
	cases := [][]string{
		{"export", "--kind", "laps"},
		{"stats", "--plain", "--since", "yesterday"},
		{"stats", "--plain", "--curve-window", "0"},
		{"import", filepath.Join(t.TempDir(), "missing.ndjson")},
	}
	for _, args := range cases {
		root := newRootCmd()
		root.SetOut(io.Discard)
		root.SetErr(io.Discard)
		root.SetArgs(args)
		if err := root.Execute(); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestValidateConfig(t *testing.T) {
	if err := validateConfig(model.Config{SessionName: "any%", Rooms: 3}); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if err := validateConfig(model.Config{SessionName: " "}); err == nil {
		t.Fatalf("expected empty name error")
	}
	if err := validateConfig(model.Config{SessionName: "x", Rooms: -1}); err == nil {
		t.Fatalf("expected rooms error")
	}
}

func TestApplyConfigRespectsFlags(t *testing.T) {
	var name string
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().StringVar(&name, "name", "flag", "")
	fromFile := "file"

	applyStringConfig(cmd, "name", &name, &fromFile)
	if name != "file" {
		t.Fatalf("config value not applied: %s", name)
	}
	if err := cmd.Flags().Set("name", "explicit"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	applyStringConfig(cmd, "name", &name, &fromFile)
	if name != "explicit" {
		t.Fatalf("explicit flag overridden: %s", name)
	}
	applyStringConfig(cmd, "name", &name, nil)
	if name != "explicit" {
		t.Fatalf("nil config changed value: %s", name)
	}
}

func TestOverlayFeedSync(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "events.ndjson")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var published []string
	feed := &overlayFeed{
		follower: events.NewFollower(logPath),
		tracker:  events.NewTracker("live", logger),
		overlay:  export.NewOverlay(metrics.NewEngine(metrics.NewRegistry(nil)), export.LayoutHorizontal),
		name:     "live",
		logger:   logger,
		write: func(text string) error {
			published = append(published, text)
			return nil
		},
	}
	ctx := context.Background()

	if err := feed.sync(ctx); err != nil {
		t.Fatalf("sync on missing file: %v", err)
	}
	if len(published) != 1 || published[0] != "" {
		t.Fatalf("expected one empty publish, got %q", published)
	}

	if err := os.WriteFile(logPath, []byte("{\"type\":\"room\",\"room\":0,\"ticks\":10000000,\"final\":true}\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	if err := feed.sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(published) != 2 || !strings.Contains(published[1], "Best: 1.000") {
		t.Fatalf("overlay not published: %q", published)
	}

	if err := feed.sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(published) != 2 {
		t.Fatalf("unchanged session republished: %q", published)
	}

	if err := os.WriteFile(logPath, []byte("{\"type\":\"session\",\"name\":\"next\"}\n"), 0o644); err != nil {
		t.Fatalf("truncate log: %v", err)
	}
	if err := feed.sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if feed.tracker.Session().Name() != "next" {
		t.Fatalf("expected new session, got %q", feed.tracker.Session().Name())
	}
	if published[len(published)-1] != "" {
		t.Fatalf("overlay not cleared for empty session: %q", published)
	}
}
