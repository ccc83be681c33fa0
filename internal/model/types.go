// Package model defines shared data structures.
package model

import "time"

// Config defines practice settings.
type Config struct {
	SessionName string
	Rooms       int
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	SessionID   string
	Name        string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// SessionSummary describes a stored session for listings.
type SessionSummary struct {
	ID        string
	Name      string
	StartedAt time.Time
	RoomCount int
	Attempts  int
	Completed int
}
