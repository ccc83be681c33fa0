package metrics

import (
	"github.com/verte-zerg/roomtrack/internal/model"
	"github.com/verte-zerg/roomtrack/internal/stats"
)

const defaultPercentile = 90

// Settings holds the user-facing metric configuration.
// Descriptors read it on every call, so edits take effect on the next Compute.
type Settings struct {
	Modes      map[Kind]Mode
	Target     model.TimeTicks
	Percentile float64
	Peaks      stats.PeakOptions
}

// DefaultSettings returns the stock metric selection.
func DefaultSettings() *Settings {
	return &Settings{
		Modes: map[Kind]Mode{
			KindAttempts:      ModeBoth,
			KindCompleted:     ModeExport,
			KindDNFs:          ModeExport,
			KindSuccessRate:   ModeBoth,
			KindResetRate:     ModeExport,
			KindResetShare:    ModeExport,
			KindAverage:       ModeBoth,
			KindMedian:        ModeExport,
			KindStdDev:        ModeExport,
			KindCoefVariation: ModeExport,
			KindMAD:           ModeExport,
			KindBest:          ModeBoth,
			KindWorst:         ModeExport,
			KindSumOfBest:     ModeBoth,
			KindPercentile:    ModeExport,
			KindTrend:         ModeExport,
			KindConsistency:   ModeExport,
			KindPeaks:         ModeOff,
		},
		Percentile: defaultPercentile,
		Peaks:      stats.DefaultPeakOptions(),
	}
}

// Mode returns the configured mode of k, ModeOff when unset.
func (s *Settings) Mode(k Kind) Mode {
	if s == nil || s.Modes == nil {
		return ModeOff
	}
	return s.Modes[k]
}

// SetMode changes the mode of one metric.
func (s *Settings) SetMode(k Kind, m Mode) {
	if s.Modes == nil {
		s.Modes = map[Kind]Mode{}
	}
	s.Modes[k] = m
}
