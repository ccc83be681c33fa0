package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/roomtrack/internal/metrics"
	"github.com/verte-zerg/roomtrack/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.Practice.Name != nil || cfg.Metrics.Modes != nil {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := writeConfig(t, `
[practice]
name = "any%"
rooms = 4

[metrics]
target = "1:05.500"
percentile = 75

[metrics.modes]
peaks = "overlay"
attempts = "off"

[overlay]
layout = "vertical"
file = "/tmp/overlay.txt"

[peaks]
bins = 20
gap-factor = 1.5
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Practice.Name == nil || *cfg.Practice.Name != "any%" {
		t.Fatalf("practice.name not decoded")
	}
	if cfg.Practice.Rooms == nil || *cfg.Practice.Rooms != 4 {
		t.Fatalf("practice.rooms not decoded")
	}
	if cfg.Overlay.Layout == nil || *cfg.Overlay.Layout != "vertical" {
		t.Fatalf("overlay.layout not decoded")
	}

	st, err := cfg.MetricSettings()
	if err != nil {
		t.Fatalf("MetricSettings: %v", err)
	}
	want := model.TimeTicks(65*model.TicksPerSecond + 5_000_000)
	if st.Target != want {
		t.Fatalf("target = %d, want %d", st.Target, want)
	}
	if st.Percentile != 75 {
		t.Fatalf("percentile = %g, want 75", st.Percentile)
	}
	if st.Mode(metrics.KindPeaks) != metrics.ModeOverlay {
		t.Fatalf("peaks mode = %s", st.Mode(metrics.KindPeaks))
	}
	if st.Mode(metrics.KindAttempts) != metrics.ModeOff {
		t.Fatalf("attempts mode = %s", st.Mode(metrics.KindAttempts))
	}
	if st.Mode(metrics.KindAverage) != metrics.ModeBoth {
		t.Fatalf("unset modes keep their defaults")
	}
	if st.Peaks.Bins != 20 || st.Peaks.GapFactor != 1.5 {
		t.Fatalf("peaks = %+v", st.Peaks)
	}
	if st.Peaks.MinWeight != 0.05 {
		t.Fatalf("min weight default lost: %+v", st.Peaks)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "[practice]\nlang = \"en\"\n")
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "practice.lang") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestMetricSettingsErrors(t *testing.T) {
	bad := "1:xx"
	pct := 120.0
	nan := math.NaN()
	cases := []struct {
		name string
		cfg  FileConfig
	}{
		{"target", FileConfig{Metrics: MetricsConfig{Target: &bad}}},
		{"percentile", FileConfig{Metrics: MetricsConfig{Percentile: &pct}}},
		{"percentile_nan", FileConfig{Metrics: MetricsConfig{Percentile: &nan}}},
		{"gap_factor_nan", FileConfig{Peaks: PeaksConfig{GapFactor: &nan}}},
		{"kind", FileConfig{Metrics: MetricsConfig{Modes: map[string]string{"speed": "both"}}}},
		{"mode", FileConfig{Metrics: MetricsConfig{Modes: map[string]string{"best": "always"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.cfg.MetricSettings(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestMetricSettingsRejectsNaNFromFile(t *testing.T) {
	path := writeConfig(t, "[metrics]\npercentile = nan\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if _, err := cfg.MetricSettings(); err == nil || !strings.Contains(err.Error(), "percentile") {
		t.Fatalf("expected percentile error, got %v", err)
	}
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roomtrack", "config.toml")
	created, err := WriteTemplate(path)
	if err != nil || !created {
		t.Fatalf("WriteTemplate = %v, %v", created, err)
	}
	created, err = WriteTemplate(path)
	if err != nil || created {
		t.Fatalf("second WriteTemplate = %v, %v", created, err)
	}
	if _, err := LoadConfig(path); err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "roomtrack", "config.toml") {
		t.Fatalf("DefaultConfigPath = %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "roomtrack", "roomtrack.db") {
		t.Fatalf("DefaultDBPath = %s", got)
	}
}
