package model

import "time"

// Outcome tags how an attempt ended.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeDnf
)

// String returns the storage/display name of the outcome.
func (o Outcome) String() string {
	if o == OutcomeDnf {
		return "dnf"
	}
	return "completed"
}

// DnfInfo records where an abandoned attempt died.
type DnfInfo struct {
	Room         RoomIndex
	TimeIntoRoom TimeTicks
}

// RoomTime pairs a room with the time spent completing it.
type RoomTime struct {
	Room  RoomIndex
	Ticks TimeTicks
}

// Attempt is one finished run. It is immutable once built.
type Attempt struct {
	index     int
	startedAt time.Time
	outcome   Outcome
	rooms     []RoomTime
	byRoom    map[RoomIndex]TimeTicks
	dnf       *DnfInfo
	segment   TimeTicks
}

// Index returns the ordinal of the attempt within its session.
func (a *Attempt) Index() int {
	return a.index
}

// StartedAt returns when the attempt began.
func (a *Attempt) StartedAt() time.Time {
	return a.startedAt
}

// Outcome returns how the attempt ended.
func (a *Attempt) Outcome() Outcome {
	return a.outcome
}

// Completed reports whether the attempt finished every room it was given.
func (a *Attempt) Completed() bool {
	return a.outcome == OutcomeCompleted
}

// CompletedRooms returns the completed rooms in completion order.
func (a *Attempt) CompletedRooms() []RoomTime {
	out := make([]RoomTime, len(a.rooms))
	copy(out, a.rooms)
	return out
}

// RoomTime returns the duration of a completed room.
func (a *Attempt) RoomTime(room RoomIndex) (TimeTicks, bool) {
	t, ok := a.byRoom[room]
	return t, ok
}

// Dnf returns the abandonment info for DNF attempts.
func (a *Attempt) Dnf() (DnfInfo, bool) {
	if a.dnf == nil {
		return DnfInfo{}, false
	}
	return *a.dnf, true
}

// SegmentTime is the sum of all completed room durations.
func (a *Attempt) SegmentTime() TimeTicks {
	return a.segment
}

// CompletedRoomCount returns the number of rooms completed in the attempt.
func (a *Attempt) CompletedRoomCount() int {
	return len(a.rooms)
}

// TotalRoomCount counts completed rooms plus the room a DNF died in.
func (a *Attempt) TotalRoomCount() int {
	if a.dnf != nil {
		return len(a.rooms) + 1
	}
	return len(a.rooms)
}

// Reached reports whether the attempt completed the room or died in it.
func (a *Attempt) Reached(room RoomIndex) bool {
	if _, ok := a.byRoom[room]; ok {
		return true
	}
	return a.dnf != nil && a.dnf.Room == room
}
