package metrics

import (
	"slices"

	"github.com/verte-zerg/roomtrack/internal/session"
)

// Registry is the fixed, ordered metric catalog bound to one Settings value.
// Producers of memoized values come before their consumers.
type Registry struct {
	descriptors []Descriptor
}

// NewRegistry builds the catalog. A nil settings uses DefaultSettings.
func NewRegistry(settings *Settings) *Registry {
	if settings == nil {
		settings = DefaultSettings()
	}
	return &Registry{descriptors: catalog(settings)}
}

// All returns every descriptor in registry order.
func (r *Registry) All() []Descriptor {
	return slices.Clone(r.descriptors)
}

// Filter returns the descriptors enabled for ch, in registry order.
func (r *Registry) Filter(ch Channel) []Descriptor {
	out := make([]Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		if d.Enabled(ch) {
			out = append(out, d)
		}
	}
	return out
}

// Entry pairs a descriptor with its computed result.
type Entry struct {
	Descriptor Descriptor
	Result     Result
}

// Engine runs registry passes and remembers the overlay set of the last overlay pass.
type Engine struct {
	registry    *Registry
	lastOverlay []string
	computed    bool
}

// NewEngine creates an engine over r.
func NewEngine(r *Registry) *Engine {
	return &Engine{registry: r}
}

// Registry returns the engine's registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Compute runs every descriptor enabled for ch against s with one fresh Context.
func (e *Engine) Compute(s *session.PracticeSession, ch Channel) []Entry {
	descriptors := e.registry.Filter(ch)
	ctx := NewContext()
	export := ch == ChannelExport
	entries := make([]Entry, 0, len(descriptors))
	for _, d := range descriptors {
		entries = append(entries, Entry{Descriptor: d, Result: d.Compute(s, ctx, export)})
	}
	if ch == ChannelOverlay {
		e.lastOverlay = names(descriptors)
		e.computed = true
	}
	return entries
}

// SameSettings reports whether the currently enabled overlay set matches the one
// used by the previous overlay pass. It is false before the first overlay pass.
func (e *Engine) SameSettings() bool {
	if !e.computed {
		return false
	}
	return slices.Equal(e.lastOverlay, names(e.registry.Filter(ChannelOverlay)))
}

func names(descriptors []Descriptor) []string {
	out := make([]string, len(descriptors))
	for i, d := range descriptors {
		out[i] = d.Name()
	}
	return out
}
