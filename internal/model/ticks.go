package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TicksPerSecond is the resolution of TimeTicks (100ns ticks).
const TicksPerSecond = 10_000_000

const (
	ticksPerMillisecond = TicksPerSecond / 1000
	ticksPerMinute      = 60 * TicksPerSecond
)

// TimeTicks is a signed duration counted in 100ns ticks.
type TimeTicks int64

// RoomIndex identifies a room by its zero-based position within a run.
type RoomIndex int

// Label returns the one-based display label of the room, e.g. "R1".
func (r RoomIndex) Label() string {
	return "R" + strconv.Itoa(int(r)+1)
}

// TicksFromDuration converts a time.Duration to ticks, truncating below 100ns.
func TicksFromDuration(d time.Duration) TimeTicks {
	return TimeTicks(d / 100)
}

// TicksFromFloat rounds a real tick count to the nearest tick.
func TicksFromFloat(v float64) TimeTicks {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return TimeTicks(math.Round(v))
}

// Float returns the tick count as a real number. All ratio math goes through here.
func (t TimeTicks) Float() float64 {
	return float64(t)
}

// Seconds returns the duration in seconds.
func (t TimeTicks) Seconds() float64 {
	return float64(t) / TicksPerSecond
}

// Duration converts ticks to a time.Duration.
func (t TimeTicks) Duration() time.Duration {
	return time.Duration(t) * 100
}

// String formats as M:SS.fff at or above one minute, S.fff below.
func (t TimeTicks) String() string {
	sign := ""
	abs := int64(t)
	if abs < 0 {
		sign = "-"
		abs = -abs
	}
	millis := (abs % TicksPerSecond) / ticksPerMillisecond
	if abs >= ticksPerMinute {
		minutes := abs / ticksPerMinute
		seconds := (abs % ticksPerMinute) / TicksPerSecond
		return fmt.Sprintf("%s%d:%02d.%03d", sign, minutes, seconds, millis)
	}
	return fmt.Sprintf("%s%d.%03d", sign, abs/TicksPerSecond, millis)
}

// ParseTicks parses the layouts produced by String ("1:23.456", "12.5", "-0.250").
func ParseTicks(s string) (TimeTicks, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time value")
	}
	negative := strings.HasPrefix(s, "-")
	body := strings.TrimPrefix(s, "-")

	var minutes int64
	if idx := strings.IndexByte(body, ':'); idx >= 0 {
		m, err := strconv.ParseInt(body[:idx], 10, 64)
		if err != nil || m < 0 {
			return 0, fmt.Errorf("invalid minutes in %q", s)
		}
		minutes = m
		body = body[idx+1:]
	}
	secs, err := strconv.ParseFloat(body, 64)
	if err != nil || secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("invalid seconds in %q", s)
	}
	if minutes > 0 && secs >= 60 {
		return 0, fmt.Errorf("seconds out of range in %q", s)
	}
	if (float64(minutes)*60+secs)*TicksPerSecond >= math.MaxInt64 {
		return 0, fmt.Errorf("time out of range in %q", s)
	}
	ticks := TimeTicks(minutes*ticksPerMinute) + TicksFromFloat(secs*TicksPerSecond)
	if negative {
		ticks = -ticks
	}
	return ticks, nil
}
