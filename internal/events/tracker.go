package events

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/verte-zerg/roomtrack/internal/model"
	"github.com/verte-zerg/roomtrack/internal/session"
)

// Tracker turns room transitions into attempts of the current session.
// It is not safe for concurrent use.
type Tracker struct {
	logger  *slog.Logger
	now     func() time.Time
	session *session.PracticeSession
	builder *model.AttemptBuilder
}

// NewTracker starts tracking a fresh session called name. A nil logger uses slog.Default.
func NewTracker(name string, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{logger: logger, now: time.Now}
	t.session = session.New(name, t.now())
	return t
}

// Session returns the session attempts are added to.
func (t *Tracker) Session() *session.PracticeSession {
	return t.session
}

// InProgress reports whether an attempt has been started but not finished.
func (t *Tracker) InProgress() bool {
	return t.builder != nil
}

// RoomsCompleted returns the rooms completed by the in-progress attempt.
func (t *Tracker) RoomsCompleted() int {
	if t.builder == nil {
		return 0
	}
	return t.builder.RoomsCompleted()
}

// SegmentTime returns the cumulative time of the in-progress attempt.
func (t *Tracker) SegmentTime() model.TimeTicks {
	if t.builder == nil {
		return 0
	}
	return t.builder.SegmentTime()
}

// Begin opens an attempt that started at at. An attempt already in progress is dropped.
// Without Begin, the first transition opens the attempt at the current time.
func (t *Tracker) Begin(at time.Time) {
	if t.builder != nil {
		t.logger.Warn("dropping attempt in progress", "session", t.session.ID(), "rooms", t.builder.RoomsCompleted())
		t.builder = nil
	}
	t.attempt(at)
}

// RoomCompleted records room finished at the cumulative segment time.
// A final room finishes the attempt. A rejected transition aborts the attempt.
func (t *Tracker) RoomCompleted(room model.RoomIndex, cumulative model.TimeTicks, final bool) error {
	return t.roomCompleted(room, cumulative, final, time.Time{})
}

// Abandoned records a reset in room at the cumulative segment time and finishes the attempt.
func (t *Tracker) Abandoned(room model.RoomIndex, cumulative model.TimeTicks) error {
	return t.abandoned(room, cumulative, time.Time{})
}

// StartSession replaces the current session and returns the previous one.
// An attempt in progress is dropped.
func (t *Tracker) StartSession(name string) *session.PracticeSession {
	return t.startSession(name, time.Time{})
}

// Apply dispatches one host event.
func (t *Tracker) Apply(ev Event) error {
	switch ev.Type {
	case TypeRoom:
		return t.roomCompleted(ev.Room, ev.Ticks, ev.Final, ev.At)
	case TypeDnf:
		return t.abandoned(ev.Room, ev.Ticks, ev.At)
	case TypeSession:
		t.startSession(ev.Name, ev.At)
		return nil
	}
	return ev.validate()
}

func (t *Tracker) roomCompleted(room model.RoomIndex, cumulative model.TimeTicks, final bool, at time.Time) error {
	b := t.attempt(at)
	if err := b.CompleteRoom(room, cumulative); err != nil {
		t.abort(err)
		return err
	}
	t.logger.Debug("room completed", "room", room.Label(), "ticks", cumulative, "final", final)
	if final {
		return t.finish()
	}
	return nil
}

func (t *Tracker) abandoned(room model.RoomIndex, cumulative model.TimeTicks, at time.Time) error {
	b := t.attempt(at)
	if err := b.SetDnf(room, cumulative); err != nil {
		t.abort(err)
		return err
	}
	return t.finish()
}

func (t *Tracker) startSession(name string, at time.Time) *session.PracticeSession {
	if t.builder != nil {
		t.logger.Warn("dropping attempt in progress", "session", t.session.ID(), "rooms", t.builder.RoomsCompleted())
		t.builder = nil
	}
	prev := t.session
	t.session = session.New(name, t.stamp(at))
	t.logger.Debug("session started", "session", t.session.ID(), "name", name)
	return prev
}

func (t *Tracker) attempt(at time.Time) *model.AttemptBuilder {
	if t.builder == nil {
		t.builder = model.NewAttemptBuilder(t.session.NextIndex(), t.stamp(at))
	}
	return t.builder
}

func (t *Tracker) finish() error {
	a, err := t.builder.Build()
	t.builder = nil
	if err != nil {
		return err
	}
	t.session.AddAttempt(a)
	t.logger.Debug("attempt recorded",
		"session", t.session.ID(),
		"attempt", a.Index()+1,
		"outcome", a.Outcome().String(),
		"segment", a.SegmentTime().String(),
	)
	return nil
}

func (t *Tracker) abort(err error) {
	t.logger.Error("attempt aborted", "session", t.session.ID(), "attempt", t.session.NextIndex()+1, "err", err)
	t.builder = nil
}

func (t *Tracker) stamp(at time.Time) time.Time {
	if at.IsZero() {
		return t.now()
	}
	return at
}

// Replay builds sessions from an event list. Sessions without attempts are skipped.
// Rejected transitions abort their attempt and are logged; unknown events stop the replay.
func Replay(evs []Event, name string, logger *slog.Logger) ([]*session.PracticeSession, error) {
	t := NewTracker(name, logger)
	var out []*session.PracticeSession
	for i, ev := range evs {
		if ev.Type == TypeSession {
			next := ev.Name
			if next == "" {
				next = name
			}
			if prev := t.startSession(next, ev.At); prev.TotalAttempts() > 0 {
				out = append(out, prev)
			}
			continue
		}
		if err := t.Apply(ev); errors.Is(err, ErrUnknownEvent) {
			return out, fmt.Errorf("event %d: %w", i+1, err)
		}
	}
	if t.session.TotalAttempts() > 0 {
		out = append(out, t.session)
	}
	return out, nil
}
