package metrics

import (
	"fmt"

	"github.com/verte-zerg/roomtrack/internal/session"
)

// Kind identifies one metric of the fixed catalog.
type Kind int

const (
	KindAttempts Kind = iota
	KindCompleted
	KindDNFs
	KindSuccessRate
	KindResetRate
	KindResetShare
	KindAverage
	KindMedian
	KindStdDev
	KindCoefVariation
	KindMAD
	KindBest
	KindWorst
	KindSumOfBest
	KindPercentile
	KindTrend
	KindConsistency
	KindPeaks
	kindCount
)

var kindKeys = [kindCount]string{
	"attempts",
	"completed",
	"dnfs",
	"success_rate",
	"reset_rate",
	"reset_share",
	"average",
	"median",
	"std_dev",
	"coef_variation",
	"mad",
	"best",
	"worst",
	"sum_of_best",
	"percentile",
	"trend",
	"consistency",
	"peaks",
}

// Kinds returns every kind in registry order.
func Kinds() []Kind {
	out := make([]Kind, kindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// String returns the configuration key of the kind.
func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindKeys[k]
}

// ParseKind maps a configuration key back to its kind.
func ParseKind(key string) (Kind, error) {
	for i, name := range kindKeys {
		if name == key {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q", key)
}

// Channel is an output destination for metric values.
type Channel int

const (
	ChannelOverlay Channel = iota
	ChannelExport
)

// Mode selects the channels a metric participates in.
type Mode int

const (
	ModeOff Mode = iota
	ModeOverlay
	ModeExport
	ModeBoth
)

var modeKeys = [...]string{"off", "overlay", "export", "both"}

// String returns the configuration key of the mode.
func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeKeys) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeKeys[m]
}

// ParseMode maps off/overlay/export/both to a Mode.
func ParseMode(key string) (Mode, error) {
	for i, name := range modeKeys {
		if name == key {
			return Mode(i), nil
		}
	}
	return ModeOff, fmt.Errorf("unknown metric mode %q (want off, overlay, export or both)", key)
}

// Enabled reports whether the mode includes ch.
func (m Mode) Enabled(ch Channel) bool {
	switch ch {
	case ChannelOverlay:
		return m == ModeOverlay || m == ModeBoth
	case ChannelExport:
		return m == ModeExport || m == ModeBoth
	}
	return false
}

// Result is a formatted segment value plus per-room values.
// Rooms is empty unless the metric was computed for export and reports rooms.
type Result struct {
	Segment string
	Rooms   []string
}

type computeFunc func(s *session.PracticeSession, ctx *Context, export bool) Result

// Descriptor binds one catalog metric to the registry settings.
type Descriptor struct {
	kind    Kind
	header  func() string
	name    func() string
	compute computeFunc
	mode    func() Mode
}

// Kind returns the catalog entry.
func (d Descriptor) Kind() Kind {
	return d.kind
}

// CSVHeader returns the export column header for the current settings.
func (d Descriptor) CSVHeader() string {
	return d.header()
}

// Name returns the short overlay label for the current settings.
func (d Descriptor) Name() string {
	return d.name()
}

// Enabled reports whether the metric participates in ch.
func (d Descriptor) Enabled(ch Channel) bool {
	return d.mode().Enabled(ch)
}

// Compute runs the metric against s. Per-room values are produced only when export is set.
func (d Descriptor) Compute(s *session.PracticeSession, ctx *Context, export bool) Result {
	return d.compute(s, ctx, export)
}

// Equal reports whether both descriptors currently carry the same name.
func (d Descriptor) Equal(other Descriptor) bool {
	return d.Name() == other.Name()
}
