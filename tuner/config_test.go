package tuner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 13, cfg.Anneal.OuterRounds())
}

func TestLoadConfig_OverlaysDefaults(t *testing.T) {
	// GIVEN a file that sets only a few fields
	path := writeConfig(t, `
seed: 7
paths:
  sketch: /tmp/sketch.tr
anneal:
  attempt_times: 3
  wait_max: 2s
telemetry:
  monitored_switches: [1, 2]
`)

	// WHEN loaded
	cfg, err := LoadConfig(path)

	// THEN the file wins where set and defaults fill the rest
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, "/tmp/sketch.tr", cfg.Paths.Sketch)
	assert.Equal(t, DefaultConfig().Paths.Throughput, cfg.Paths.Throughput)
	assert.Equal(t, 3, cfg.Anneal.AttemptTimes)
	assert.Equal(t, 2*time.Second, cfg.Anneal.WaitMax)
	assert.Equal(t, 80.0, cfg.Anneal.InitialTemperature)
	assert.Equal(t, []int{1, 2}, cfg.Telemetry.MonitoredSwitches)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_RejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "anneal:\n  coolng_rate: 0.9\n")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing sketch path", func(c *Config) { c.Paths.Sketch = "" }},
		{"zero window", func(c *Config) { c.Monitor.WindowSize = 0 }},
		{"history shorter than window", func(c *Config) { c.Monitor.HistoryLimit = c.Monitor.WindowSize }},
		{"cooling rate of one", func(c *Config) { c.Anneal.CoolingRate = 1 }},
		{"no attempts", func(c *Config) { c.Anneal.AttemptTimes = 0 }},
		{"inverted wait backoff", func(c *Config) { c.Anneal.WaitMax = c.Anneal.WaitMin / 2 }},
		{"negative trigger", func(c *Config) { c.Monitor.TriggerThreshold = -1 }},
		{"zero base rtt", func(c *Config) { c.Utility.BaseRTT = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAnnealConfig_OuterRounds(t *testing.T) {
	a := AnnealConfig{InitialTemperature: 80, FinalTemperature: 10, CoolingRate: 0.5}
	// 80, 40, 20 are above 10
	assert.Equal(t, 3, a.OuterRounds())
}
