// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/roomtrack/internal/metrics"
	"github.com/verte-zerg/roomtrack/internal/model"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Overlay  OverlayConfig  `toml:"overlay"`
	Peaks    PeaksConfig    `toml:"peaks"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Name  *string `toml:"name"`
	Rooms *int    `toml:"rooms"`
}

// MetricsConfig maps metric selection and thresholds.
type MetricsConfig struct {
	Target     *string           `toml:"target"`
	Percentile *float64          `toml:"percentile"`
	Modes      map[string]string `toml:"modes"`
}

// OverlayConfig maps overlay output settings.
type OverlayConfig struct {
	Layout *string `toml:"layout"`
	File   *string `toml:"file"`
}

// PeaksConfig maps the peak detection knobs.
type PeaksConfig struct {
	Bins             *int     `toml:"bins"`
	GapFactor        *float64 `toml:"gap-factor"`
	MinWeight        *float64 `toml:"min-weight"`
	BimodalThreshold *float64 `toml:"bimodal-threshold"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// MetricSettings builds metric settings from the defaults overridden by the file.
func (c FileConfig) MetricSettings() (*metrics.Settings, error) {
	st := metrics.DefaultSettings()
	if c.Metrics.Target != nil {
		target, err := model.ParseTicks(*c.Metrics.Target)
		if err != nil {
			return nil, fmt.Errorf("metrics.target: %w", err)
		}
		st.Target = target
	}
	if c.Metrics.Percentile != nil {
		p := *c.Metrics.Percentile
		if math.IsNaN(p) || p < 0 || p > 100 {
			return nil, fmt.Errorf("metrics.percentile must be within 0..100, got %g", p)
		}
		st.Percentile = p
	}

	keys := make([]string, 0, len(c.Metrics.Modes))
	for k := range c.Metrics.Modes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		kind, err := metrics.ParseKind(key)
		if err != nil {
			return nil, fmt.Errorf("metrics.modes: %w", err)
		}
		mode, err := metrics.ParseMode(c.Metrics.Modes[key])
		if err != nil {
			return nil, fmt.Errorf("metrics.modes.%s: %w", key, err)
		}
		st.SetMode(kind, mode)
	}

	if v := c.Peaks.Bins; v != nil {
		st.Peaks.Bins = *v
	}
	for _, f := range []struct {
		key string
		src *float64
		dst *float64
	}{
		{"gap-factor", c.Peaks.GapFactor, &st.Peaks.GapFactor},
		{"min-weight", c.Peaks.MinWeight, &st.Peaks.MinWeight},
		{"bimodal-threshold", c.Peaks.BimodalThreshold, &st.Peaks.BimodalThreshold},
	} {
		if f.src == nil {
			continue
		}
		if math.IsNaN(*f.src) || math.IsInf(*f.src, 0) {
			return nil, fmt.Errorf("peaks.%s must be a finite number", f.key)
		}
		*f.dst = *f.src
	}
	return st, nil
}

// Template is the commented config written by `roomtrack config`.
const Template = `# roomtrack configuration

[practice]
# name = "any%"
# rooms = 5

[metrics]
# Completed runs at or under the target count as successes.
# target = "1:05.000"
# percentile = 90

# Per metric: off, overlay, export or both.
[metrics.modes]
# attempts = "both"
# success_rate = "both"
# average = "both"
# best = "both"
# sum_of_best = "both"
# peaks = "off"

[overlay]
# layout = "horizontal"
# file = "/tmp/roomtrack-overlay.txt"

[peaks]
# bins = 15
# gap-factor = 1.2
# min-weight = 0.05
# bimodal-threshold = 0.5556
`
