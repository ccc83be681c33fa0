package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/roomtrack/internal/events"
	"github.com/verte-zerg/roomtrack/internal/export"
	"github.com/verte-zerg/roomtrack/internal/session"
	"github.com/verte-zerg/roomtrack/internal/store"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <events.ndjson>",
		Short: "Follow a split event log and keep the overlay file current",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatchCmd,
	}
	cmd.Flags().StringVar(&watchName, "name", defaultSessionName, "name for sessions without a session event")
	cmd.Flags().StringVar(&watchOverlayOut, "overlay-out", "", "overlay text file (default: stdout)")
	cmd.Flags().StringVar(&watchLayout, "layout", "horizontal", "overlay layout: horizontal or vertical")
	return cmd
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "name", &watchName, fileCfg.Practice.Name)
	applyStringConfig(cmd, "overlay-out", &watchOverlayOut, fileCfg.Overlay.File)

	engine, err := newEngine(fileCfg)
	if err != nil {
		return err
	}
	layout, err := overlayLayout(cmd, "layout", fileCfg)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	logger, closeLog := newLogger(false)
	defer closeLog()

	feed := &overlayFeed{
		follower: events.NewFollower(args[0]),
		tracker:  events.NewTracker(watchName, logger),
		overlay:  export.NewOverlay(engine, layout),
		name:     watchName,
		logger:   logger,
		store:    st,
		write:    overlayWriter(cmd.OutOrStdout(), watchOverlayOut),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := events.NewWatcher(events.DefaultDebounce, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := watcher.Stop(); cerr != nil {
			// Best-effort close.
			_ = cerr
		}
	}()

	changes := make(chan struct{}, 1)
	if err := watcher.Watch(args[0], func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}); err != nil {
		return err
	}
	logger.Info("watching event log", "path", args[0])

	if err := feed.sync(ctx); err != nil {
		logger.Error("failed to read event log", "err", err)
	}
	for {
		select {
		case <-ctx.Done():
			feed.flush(context.Background())
			return nil
		case <-changes:
			if err := feed.sync(ctx); err != nil {
				logger.Error("failed to read event log", "err", err)
			}
		}
	}
}

// overlayWriter writes the overlay to path, or prints it to w when path is empty.
func overlayWriter(w io.Writer, path string) func(string) error {
	if path == "" {
		return func(text string) error {
			_, err := fmt.Fprintln(w, text)
			return err
		}
	}
	return func(text string) error {
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write overlay: %w", err)
		}
		return nil
	}
}

// overlayFeed applies new events from the log and republishes the overlay.
// All methods run on the watch loop goroutine.
type overlayFeed struct {
	follower *events.Follower
	tracker  *events.Tracker
	overlay  *export.Overlay
	name     string
	logger   *slog.Logger
	store    *store.Store
	write    func(string) error

	published bool
	last      string
}

func (f *overlayFeed) sync(ctx context.Context) error {
	evs, reset, err := f.follower.Next()
	if reset {
		f.logger.Info("event log truncated, starting over")
		f.save(ctx, f.tracker.Session())
		f.tracker = events.NewTracker(f.name, f.logger)
	}
	// Malformed lines are skipped by the follower; the rest still apply.
	for _, ev := range evs {
		if ev.Type == events.TypeSession {
			next := ev.Name
			if next == "" {
				next = f.name
			}
			f.save(ctx, f.tracker.StartSession(next))
			continue
		}
		if aerr := f.tracker.Apply(ev); errors.Is(aerr, events.ErrUnknownEvent) {
			f.logger.Warn("skipping event", "err", aerr)
		}
	}
	if f.overlay.Update(f.tracker.Session()) {
		f.publish()
	}
	return err
}

func (f *overlayFeed) publish() {
	text := f.overlay.Text()
	if f.published && text == f.last {
		return
	}
	if err := f.write(text); err != nil {
		f.logger.Error("failed to publish overlay", "err", err)
		return
	}
	f.published = true
	f.last = text
}

// flush stores the session in progress.
func (f *overlayFeed) flush(ctx context.Context) {
	f.save(ctx, f.tracker.Session())
}

func (f *overlayFeed) save(ctx context.Context, s *session.PracticeSession) {
	if f.store == nil || s == nil || s.TotalAttempts() == 0 {
		return
	}
	if err := f.store.SaveSession(ctx, s); err != nil {
		f.logger.Error("failed to save session", "session", s.ID(), "err", err)
		return
	}
	f.logger.Debug("session saved", "session", s.ID(), "attempts", s.TotalAttempts())
}
