package export

import (
	"fmt"
	"strings"

	"github.com/verte-zerg/roomtrack/internal/metrics"
	"github.com/verte-zerg/roomtrack/internal/session"
)

// Layout arranges overlay parts.
type Layout int

const (
	LayoutHorizontal Layout = iota
	LayoutVertical
)

// ParseLayout maps "horizontal" or "vertical" to a Layout.
func ParseLayout(v string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "horizontal":
		return LayoutHorizontal, nil
	case "vertical":
		return LayoutVertical, nil
	}
	return LayoutHorizontal, fmt.Errorf("unknown overlay layout %q (want horizontal or vertical)", v)
}

func (l Layout) separator() string {
	if l == LayoutVertical {
		return "\n"
	}
	return " | "
}

// Overlay keeps the live overlay text of one practice context.
// It recomputes only when the session, its revision or the enabled overlay set changed.
type Overlay struct {
	engine    *metrics.Engine
	layout    Layout
	sessionID string
	revision  uint64
	fresh     bool
	text      string
}

// NewOverlay creates an overlay over engine.
func NewOverlay(engine *metrics.Engine, layout Layout) *Overlay {
	return &Overlay{engine: engine, layout: layout}
}

// SetLayout changes the layout; the next Update recomputes.
func (o *Overlay) SetLayout(l Layout) {
	if l != o.layout {
		o.layout = l
		o.fresh = false
	}
}

// Update refreshes the text for s and reports whether it was recomputed.
// A session without completed attempts clears the text and always reports true.
func (o *Overlay) Update(s *session.PracticeSession) bool {
	if s == nil || s.TotalCompleted() == 0 {
		o.text = ""
		o.fresh = false
		return true
	}
	if o.fresh && s.ID() == o.sessionID && s.Revision() == o.revision && o.engine.SameSettings() {
		return false
	}
	entries := o.engine.Compute(s, metrics.ChannelOverlay)
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, e.Descriptor.Name()+": "+e.Result.Segment)
	}
	o.text = strings.Join(parts, o.layout.separator())
	o.sessionID = s.ID()
	o.revision = s.Revision()
	o.fresh = true
	return true
}

// Text returns the last computed overlay text.
func (o *Overlay) Text() string {
	return o.text
}
