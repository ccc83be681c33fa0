package events

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses bursts of writes to the event log into one callback.
const DefaultDebounce = 50 * time.Millisecond

// Watcher reports changes to a single event log file.
type Watcher struct {
	fw       *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration
	done     chan struct{}
	mu       sync.Mutex
	stopped  bool
	timer    *time.Timer
}

// NewWatcher creates a watcher. A nil logger uses slog.Default.
func NewWatcher(debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		fw:       fw,
		logger:   logger,
		debounce: debounce,
		done:     make(chan struct{}),
	}, nil
}

// Watch calls onChange after path is written, created or replaced.
// The parent directory is watched so editors and hosts that rewrite the file are seen.
// onChange runs on a timer goroutine once writes have been quiet for the debounce interval.
func (w *Watcher) Watch(path string, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
					w.schedule(onChange)
				}
			case err, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				w.logger.Debug("watcher error", "err", err)
			case <-w.done:
				return
			}
		}
	}()
	return nil
}

func (w *Watcher) schedule(onChange func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		stopped := w.stopped
		w.mu.Unlock()
		if !stopped {
			w.logger.Debug("event log changed")
			onChange()
		}
	})
}

// Stop ends monitoring and releases all resources. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.done)
	return w.fw.Close()
}
