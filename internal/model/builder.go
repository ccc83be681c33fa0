package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRoomAlreadyCompleted is returned when a room is completed twice.
	ErrRoomAlreadyCompleted = errors.New("room already completed")
	// ErrCompleteAfterDnf is returned when a room is completed after the attempt was abandoned.
	ErrCompleteAfterDnf = errors.New("cannot complete room after DNF")
	// ErrDnfAlreadySet is returned when an attempt is abandoned twice.
	ErrDnfAlreadySet = errors.New("DNF already set")
	// ErrBuilderConsumed is returned by any call after Build.
	ErrBuilderConsumed = errors.New("attempt builder already built")
)

// BuilderState is the lifecycle state of an AttemptBuilder.
type BuilderState int

const (
	StateActive BuilderState = iota
	StateDnfPending
	StateBuilt
)

// AttemptBuilder accumulates room completions for one in-progress run.
// It is not safe for concurrent use.
type AttemptBuilder struct {
	index     int
	startedAt time.Time
	rooms     []RoomTime
	byRoom    map[RoomIndex]TimeTicks
	segment   TimeTicks
	dnf       *DnfInfo
	state     BuilderState
}

// NewAttemptBuilder starts a new attempt with the given ordinal.
func NewAttemptBuilder(index int, startedAt time.Time) *AttemptBuilder {
	return &AttemptBuilder{
		index:     index,
		startedAt: startedAt,
		byRoom:    map[RoomIndex]TimeTicks{},
	}
}

// State returns the current builder state.
func (b *AttemptBuilder) State() BuilderState {
	return b.state
}

// SegmentTime returns the cumulative time of the rooms completed so far.
func (b *AttemptBuilder) SegmentTime() TimeTicks {
	return b.segment
}

// RoomsCompleted returns the number of rooms completed so far.
func (b *AttemptBuilder) RoomsCompleted() int {
	return len(b.rooms)
}

// CompleteRoom records a room finished at the given cumulative segment time.
func (b *AttemptBuilder) CompleteRoom(room RoomIndex, cumulative TimeTicks) error {
	switch b.state {
	case StateBuilt:
		return ErrBuilderConsumed
	case StateDnfPending:
		return fmt.Errorf("room %s: %w", room.Label(), ErrCompleteAfterDnf)
	}
	if _, ok := b.byRoom[room]; ok {
		return fmt.Errorf("room %s: %w", room.Label(), ErrRoomAlreadyCompleted)
	}
	duration := cumulative - b.segment
	b.rooms = append(b.rooms, RoomTime{Room: room, Ticks: duration})
	b.byRoom[room] = duration
	b.segment = cumulative
	return nil
}

// SetDnf marks the attempt abandoned in room at the given cumulative segment time.
func (b *AttemptBuilder) SetDnf(room RoomIndex, cumulative TimeTicks) error {
	switch b.state {
	case StateBuilt:
		return ErrBuilderConsumed
	case StateDnfPending:
		return ErrDnfAlreadySet
	}
	b.dnf = &DnfInfo{Room: room, TimeIntoRoom: cumulative - b.segment}
	b.state = StateDnfPending
	return nil
}

// Build finalizes the attempt. The builder must not be used afterwards.
func (b *AttemptBuilder) Build() (*Attempt, error) {
	if b.state == StateBuilt {
		return nil, ErrBuilderConsumed
	}
	outcome := OutcomeCompleted
	if b.dnf != nil {
		outcome = OutcomeDnf
	}
	a := &Attempt{
		index:     b.index,
		startedAt: b.startedAt,
		outcome:   outcome,
		rooms:     b.rooms,
		byRoom:    b.byRoom,
		dnf:       b.dnf,
		segment:   b.segment,
	}
	b.rooms = nil
	b.byRoom = nil
	b.dnf = nil
	b.state = StateBuilt
	return a, nil
}
