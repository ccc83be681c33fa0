// Package session aggregates attempts for one practice context.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/roomtrack/internal/model"
)

// PracticeSession is an ordered, append-only list of attempts.
// All derived views are recomputed from the attempt list on every call.
type PracticeSession struct {
	id        string
	name      string
	startedAt time.Time
	roomCount int
	attempts  []*model.Attempt
	revision  uint64
}

// New creates an empty session with a fresh ID.
func New(name string, startedAt time.Time) *PracticeSession {
	return Restore(uuid.NewString(), name, startedAt)
}

// Restore creates an empty session with a known ID, for sessions loaded from storage.
func Restore(id, name string, startedAt time.Time) *PracticeSession {
	return &PracticeSession{
		id:        id,
		name:      name,
		startedAt: startedAt,
	}
}

// ID returns the session identifier.
func (s *PracticeSession) ID() string {
	return s.id
}

// Name returns the display name.
func (s *PracticeSession) Name() string {
	return s.name
}

// StartedAt returns when the session started.
func (s *PracticeSession) StartedAt() time.Time {
	return s.startedAt
}

// Revision increases by one on every AddAttempt.
func (s *PracticeSession) Revision() uint64 {
	return s.revision
}

// RoomCount is the canonical number of rooms, 0 until the first completed attempt.
func (s *PracticeSession) RoomCount() int {
	return s.roomCount
}

// NextIndex returns the ordinal for the next attempt.
func (s *PracticeSession) NextIndex() int {
	return len(s.attempts)
}

// AddAttempt appends a finished attempt.
func (s *PracticeSession) AddAttempt(a *model.Attempt) {
	if a == nil {
		return
	}
	if s.roomCount == 0 && a.Completed() {
		s.roomCount = a.CompletedRoomCount()
	}
	s.attempts = append(s.attempts, a)
	s.revision++
}

// Attempts returns the attempts in insertion order.
func (s *PracticeSession) Attempts() []*model.Attempt {
	out := make([]*model.Attempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}

// TotalAttempts returns the number of attempts.
func (s *PracticeSession) TotalAttempts() int {
	return len(s.attempts)
}

// TotalDnfs returns the number of abandoned attempts.
func (s *PracticeSession) TotalDnfs() int {
	n := 0
	for _, a := range s.attempts {
		if !a.Completed() {
			n++
		}
	}
	return n
}

// TotalCompleted returns the number of completed attempts.
func (s *PracticeSession) TotalCompleted() int {
	return len(s.attempts) - s.TotalDnfs()
}

// RoomAttemptCounts counts, per room, attempts that completed the room or died in it.
func (s *PracticeSession) RoomAttemptCounts() []int {
	counts := make([]int, s.roomCount)
	for _, a := range s.attempts {
		for r := range counts {
			if a.Reached(model.RoomIndex(r)) {
				counts[r]++
			}
		}
	}
	return counts
}

// RoomDnfCounts counts, per room, attempts that died in the room.
func (s *PracticeSession) RoomDnfCounts() []int {
	counts := make([]int, s.roomCount)
	for _, a := range s.attempts {
		info, ok := a.Dnf()
		if !ok {
			continue
		}
		if r := int(info.Room); r >= 0 && r < len(counts) {
			counts[r]++
		}
	}
	return counts
}

// RoomCompletionCounts counts, per room, attempts that completed the room.
func (s *PracticeSession) RoomCompletionCounts() []int {
	counts := make([]int, s.roomCount)
	for _, a := range s.attempts {
		for _, rt := range a.CompletedRooms() {
			if r := int(rt.Room); r >= 0 && r < len(counts) {
				counts[r]++
			}
		}
	}
	return counts
}

// SegmentTimes returns the segment time of every completed attempt, in order.
func (s *PracticeSession) SegmentTimes() []model.TimeTicks {
	out := make([]model.TimeTicks, 0, len(s.attempts))
	for _, a := range s.attempts {
		if a.Completed() {
			out = append(out, a.SegmentTime())
		}
	}
	return out
}

// RoomTimes returns the time of one room across completed attempts, in order.
func (s *PracticeSession) RoomTimes(room model.RoomIndex) []model.TimeTicks {
	out := make([]model.TimeTicks, 0, len(s.attempts))
	for _, a := range s.attempts {
		if !a.Completed() {
			continue
		}
		if t, ok := a.RoomTime(room); ok {
			out = append(out, t)
		}
	}
	return out
}

// HistoryRoomCount is the number of room columns needed to show every attempt.
func (s *PracticeSession) HistoryRoomCount() int {
	if s.roomCount > 0 {
		return s.roomCount
	}
	widest := 0
	for _, a := range s.attempts {
		for _, rt := range a.CompletedRooms() {
			if int(rt.Room)+1 > widest {
				widest = int(rt.Room) + 1
			}
		}
	}
	return widest
}
