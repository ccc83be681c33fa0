// Package main provides the CLI entrypoint for roomtrack.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/roomtrack/internal/config"
	"github.com/verte-zerg/roomtrack/internal/events"
	"github.com/verte-zerg/roomtrack/internal/export"
	"github.com/verte-zerg/roomtrack/internal/metrics"
	"github.com/verte-zerg/roomtrack/internal/model"
	"github.com/verte-zerg/roomtrack/internal/session"
	"github.com/verte-zerg/roomtrack/internal/stats"
	"github.com/verte-zerg/roomtrack/internal/statsui"
	"github.com/verte-zerg/roomtrack/internal/store"
	"github.com/verte-zerg/roomtrack/internal/tui"
)

const (
	defaultSessionName = "practice"
	defaultCurveWindow = 5
	defaultImportName  = "imported"
	weakRoomCount      = 3
)

var (
	debug bool

	practiceName   string
	practiceRooms  int
	practiceRecord string

	statsSession     string
	statsName        string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool

	exportSession string
	exportKind    string
	exportOut     string

	importName string

	watchName       string
	watchOverlayOut string
	watchLayout     string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "roomtrack",
		Short:         "Split timer and statistics for room-by-room practice",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.Flags().StringVar(&practiceName, "name", defaultSessionName, "session name")
	rootCmd.Flags().IntVar(&practiceRooms, "rooms", 0, "rooms per attempt (0: finish with enter)")
	rootCmd.Flags().StringVar(&practiceRecord, "record", "", "append split events to this NDJSON file")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newSessionsCmd())

	return rootCmd
}

// newLogger logs to stderr, or to a file in the data directory while a TUI owns the terminal.
func newLogger(tuiActive bool) (*slog.Logger, func()) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if !tuiActive {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), func() {}
	}
	if !debug {
		return slog.New(slog.NewTextHandler(io.Discard, opts)), func() {}
	}
	path := filepath.Join(config.XDGDataHome(), "roomtrack", "roomtrack.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logErrf("failed to create log directory: %v\n", err)
		return slog.New(slog.NewTextHandler(io.Discard, opts)), func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logErrf("failed to open log file: %v\n", err)
		return slog.New(slog.NewTextHandler(io.Discard, opts)), func() {}
	}
	return slog.New(slog.NewTextHandler(f, opts)), func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close.
			_ = cerr
		}
	}
}

func loadFileConfig() (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	return fileCfg, nil
}

func newEngine(fileCfg config.FileConfig) (*metrics.Engine, error) {
	settings, err := fileCfg.MetricSettings()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return metrics.NewEngine(metrics.NewRegistry(settings)), nil
}

func openStore() (*store.Store, func(), error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}, nil
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "name", &practiceName, fileCfg.Practice.Name)
	applyIntConfig(cmd, "rooms", &practiceRooms, fileCfg.Practice.Rooms)

	cfg := model.Config{
		SessionName: practiceName,
		Rooms:       practiceRooms,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	engine, err := newEngine(fileCfg)
	if err != nil {
		return err
	}
	layout, err := overlayLayout(cmd, "", fileCfg)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	logger, closeLog := newLogger(true)
	defer closeLog()

	var recorder *events.Recorder
	if practiceRecord != "" {
		recorder, err = events.NewRecorder(practiceRecord)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := recorder.Close(); cerr != nil {
				logErrf("failed to close event log: %v\n", cerr)
			}
		}()
	}

	m := tui.NewModel(tui.Options{
		Name:     cfg.SessionName,
		Rooms:    cfg.Rooms,
		Store:    st,
		Overlay:  export.NewOverlay(engine, layout),
		Recorder: recorder,
		Logger:   logger,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if _, err := config.WriteTemplate(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSession, "session", "", "session ID (default: latest)")
	cmd.Flags().StringVar(&statsName, "name", "", "session name filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a plain text report instead of the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	if statsCurveWindow <= 0 {
		return fmt.Errorf("--curve-window must be > 0")
	}
	sinceTime, err := parseSince(statsSince)
	if err != nil {
		return err
	}
	cfg := model.StatsConfig{
		SessionID:   statsSession,
		Name:        statsName,
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}

	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(fileCfg)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if statsPlain {
		report, err := stats.BuildReport(cmd.Context(), st, cfg)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		return writePlainReport(cmd.OutOrStdout(), report.Session, engine, cfg.CurveWindow)
	}

	m := statsui.NewModel(st, cfg, engine)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func writePlainReport(w io.Writer, s *session.PracticeSession, engine *metrics.Engine, window int) error {
	if err := stats.RenderSummary(w, s); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if s == nil || s.TotalAttempts() == 0 {
		return nil
	}
	if err := stats.RenderRoomTable(w, s); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	for _, e := range engine.Compute(s, metrics.ChannelExport) {
		if _, err := fmt.Fprintf(w, "%s: %s\n", e.Descriptor.CSVHeader(), e.Result.Segment); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if weak := stats.SelectWeakRooms(s, weakRoomCount); len(weak) > 0 {
		labels := make([]string, len(weak))
		for i, r := range weak {
			labels[i] = r.Label()
		}
		if _, err := fmt.Fprintf(w, "Weakest rooms: %s\n", strings.Join(labels, ", ")); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderCurves(w, s, window); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a session as CSV",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportSession, "session", "", "session ID (default: latest)")
	cmd.Flags().StringVar(&exportKind, "kind", "metrics", "export kind: metrics or attempts")
	cmd.Flags().StringVar(&exportOut, "out", "", "output file (default: stdout)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	kind := strings.ToLower(strings.TrimSpace(exportKind))
	if kind != "metrics" && kind != "attempts" {
		return fmt.Errorf("--kind must be metrics or attempts")
	}
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(fileCfg)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	s, err := loadSession(cmd.Context(), st, exportSession)
	if err != nil {
		return err
	}
	var content string
	if s != nil {
		if kind == "metrics" {
			content = export.MetricsCSV(s, engine)
		} else {
			content = export.AttemptsCSV(s)
		}
	}

	if exportOut == "" {
		if content == "" {
			logErrln("Nothing to export.")
			return nil
		}
		if _, err := io.WriteString(cmd.OutOrStdout(), content); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if err := export.WriteFile(exportOut, content); err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			logErrln("Nothing to export.")
			return nil
		}
		return err
	}
	logErrf("Wrote %s\n", exportOut)
	return nil
}

func loadSession(ctx context.Context, st *store.Store, id string) (*session.PracticeSession, error) {
	if id != "" {
		s, err := st.LoadSession(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		return s, nil
	}
	s, err := st.LatestSession(ctx)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest session: %w", err)
	}
	return s, nil
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <events.ndjson>",
		Short: "Import sessions from a split event log",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
	cmd.Flags().StringVar(&importName, "name", defaultImportName, "name for sessions without a session event")
	return cmd
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	evs, err := events.ReadFile(args[0])
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(false)
	defer closeLog()

	sessions, err := events.Replay(evs, importName, logger)
	if err != nil {
		return fmt.Errorf("failed to replay events: %w", err)
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	attempts := 0
	for _, s := range sessions {
		if err := st.SaveSession(cmd.Context(), s); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		attempts += s.TotalAttempts()
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Imported %d sessions (%d attempts)\n", len(sessions), attempts); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE:  runSessionsCmd,
	}
	cmd.Flags().StringVar(&statsName, "name", "", "session name filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	return cmd
}

func runSessionsCmd(cmd *cobra.Command, _ []string) error {
	sinceTime, err := parseSince(statsSince)
	if err != nil {
		return err
	}
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	sessions, err := st.ListSessions(cmd.Context(), model.StatsConfig{Name: statsName, Since: sinceTime})
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if statsLast > 0 && len(sessions) > statsLast {
		sessions = sessions[len(sessions)-statsLast:]
	}
	if err := stats.RenderSessionList(cmd.OutOrStdout(), sessions); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func parseSince(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --since value: %w", err)
	}
	return &parsed, nil
}

// overlayLayout resolves the layout from the flag named flag, falling back to the config file.
func overlayLayout(cmd *cobra.Command, flag string, fileCfg config.FileConfig) (export.Layout, error) {
	value := ""
	if flag != "" {
		value, _ = cmd.Flags().GetString(flag)
	}
	if flag == "" || !cmd.Flags().Changed(flag) {
		if fileCfg.Overlay.Layout != nil {
			value = *fileCfg.Overlay.Layout
		}
	}
	layout, err := export.ParseLayout(value)
	if err != nil {
		return export.LayoutHorizontal, fmt.Errorf("invalid overlay layout: %w", err)
	}
	return layout, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func validateConfig(cfg model.Config) error {
	if strings.TrimSpace(cfg.SessionName) == "" {
		return fmt.Errorf("--name must not be empty")
	}
	if cfg.Rooms < 0 {
		return fmt.Errorf("--rooms must be >= 0")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
