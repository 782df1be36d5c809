package tuner

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/paraleon-ns3/paraleon/tuner/telemetry"
)

// Config is the complete controller configuration.
// Loaded from YAML via LoadConfig(path); zero sections are not defaulted,
// start from DefaultConfig() instead.
type Config struct {
	Seed      int64            `yaml:"seed"`
	Paths     PathsConfig      `yaml:"paths"`
	Monitor   MonitorConfig    `yaml:"monitor"`
	Anneal    AnnealConfig     `yaml:"anneal"`
	Utility   UtilityConfig    `yaml:"utility"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// PathsConfig locates the files shared with the simulation.
type PathsConfig struct {
	Sketch     string `yaml:"sketch"`
	Throughput string `yaml:"throughput"`
	RTT        string `yaml:"rtt"`
	Pause      string `yaml:"pause"`
	Parameters string `yaml:"parameters"`
	MetricLog  string `yaml:"metric_log"`
}

// MonitorConfig configures flow classification and the trigger.
type MonitorConfig struct {
	// WindowSize is the sliding-window width of the sustained-activity test.
	WindowSize int `yaml:"window_size"`
	// ResetInterval (seconds) scales flow expiry and potential-large weight.
	ResetInterval float64 `yaml:"reset_interval"`
	// LargeFlowThreshold is the cumulative size above which a flow is large.
	LargeFlowThreshold int64 `yaml:"large_flow_threshold"`
	// TriggerThreshold is the KL divergence that starts an episode.
	TriggerThreshold float64 `yaml:"trigger_threshold"`
	// HistoryLimit bounds the per-flow samples retained; at least WindowSize+1.
	HistoryLimit int `yaml:"history_limit"`
	// PollMin and PollMax bound the backoff while the sketch is unchanged.
	PollMin time.Duration `yaml:"poll_min"`
	PollMax time.Duration `yaml:"poll_max"`
}

// AnnealConfig is the simulated-annealing schedule.
type AnnealConfig struct {
	InitialTemperature float64 `yaml:"initial_temperature"`
	FinalTemperature   float64 `yaml:"final_temperature"`
	CoolingRate        float64 `yaml:"cooling_rate"`
	// AttemptTimes is the number of rounds per temperature level.
	AttemptTimes int `yaml:"attempt_times"`
	// TuneInterval is the measurement window of one round, in seconds of
	// simulated time.
	TuneInterval float64 `yaml:"tune_interval"`
	// WaitMin and WaitMax bound the backoff while waiting for telemetry.
	WaitMin time.Duration `yaml:"wait_min"`
	WaitMax time.Duration `yaml:"wait_max"`
}

// OuterRounds returns how many temperature levels an episode visits.
func (c AnnealConfig) OuterRounds() int {
	n := 0
	for t := c.InitialTemperature; t > c.FinalTemperature; t *= c.CoolingRate {
		n++
	}
	return n
}

// DefaultConfig returns the settings of the reference experiments.
func DefaultConfig() Config {
	return Config{
		Seed: 42,
		Paths: PathsConfig{
			Sketch:     "mix/switch_sketch_heavypart.tr",
			Throughput: "mix/switch_portrate.tr",
			RTT:        "mix/rtt.tr",
			Pause:      "mix/pfc.txt",
			Parameters: "mix/parameter.txt",
			MetricLog:  "mix/metric_output.tr",
		},
		Monitor: MonitorConfig{
			WindowSize:         2,
			ResetInterval:      0.001,
			LargeFlowThreshold: 1024,
			TriggerThreshold:   0.01,
			HistoryLimit:       32,
			PollMin:            250 * time.Millisecond,
			PollMax:            3 * time.Second,
		},
		Anneal: AnnealConfig{
			InitialTemperature: 80,
			FinalTemperature:   10,
			CoolingRate:        0.85,
			AttemptTimes:       10,
			TuneInterval:       0.001,
			WaitMin:            50 * time.Millisecond,
			WaitMax:            500 * time.Millisecond,
		},
		Utility: UtilityConfig{
			BaseThroughput: 100,
			BaseRTT:        40,
			PauseTime:      0.000005,
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// LoadConfig reads a YAML configuration on top of DefaultConfig().
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Validate checks that all fields in the config are usable.
func (c Config) Validate() error {
	if c.Paths.Sketch == "" || c.Paths.Throughput == "" || c.Paths.Parameters == "" || c.Paths.MetricLog == "" {
		return fmt.Errorf("paths.sketch, paths.throughput, paths.parameters and paths.metric_log are required")
	}
	if err := c.Monitor.validate(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	if err := c.Anneal.validate(); err != nil {
		return fmt.Errorf("anneal: %w", err)
	}
	if err := c.Utility.Validate(); err != nil {
		return fmt.Errorf("utility: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

func (m MonitorConfig) validate() error {
	if m.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %d", m.WindowSize)
	}
	if err := validateFinitePositive("reset_interval", m.ResetInterval); err != nil {
		return err
	}
	if m.LargeFlowThreshold <= 0 {
		return fmt.Errorf("large_flow_threshold must be positive, got %d", m.LargeFlowThreshold)
	}
	if m.TriggerThreshold < 0 || math.IsNaN(m.TriggerThreshold) {
		return fmt.Errorf("trigger_threshold must be non-negative, got %v", m.TriggerThreshold)
	}
	if m.HistoryLimit < m.WindowSize+1 {
		return fmt.Errorf("history_limit must be at least window_size+1 (%d), got %d", m.WindowSize+1, m.HistoryLimit)
	}
	if m.PollMin <= 0 || m.PollMax < m.PollMin {
		return fmt.Errorf("poll backoff must satisfy 0 < poll_min <= poll_max, got %v..%v", m.PollMin, m.PollMax)
	}
	return nil
}

func (a AnnealConfig) validate() error {
	if err := validateFinitePositive("initial_temperature", a.InitialTemperature); err != nil {
		return err
	}
	if err := validateFinitePositive("final_temperature", a.FinalTemperature); err != nil {
		return err
	}
	if a.CoolingRate <= 0 || a.CoolingRate >= 1 {
		return fmt.Errorf("cooling_rate must be in (0, 1), got %v", a.CoolingRate)
	}
	if a.AttemptTimes <= 0 {
		return fmt.Errorf("attempt_times must be positive, got %d", a.AttemptTimes)
	}
	if err := validateFinitePositive("tune_interval", a.TuneInterval); err != nil {
		return err
	}
	if a.WaitMin <= 0 || a.WaitMax < a.WaitMin {
		return fmt.Errorf("wait backoff must satisfy 0 < wait_min <= wait_max, got %v..%v", a.WaitMin, a.WaitMax)
	}
	return nil
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}
