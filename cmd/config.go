package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/paraleon-ns3/paraleon/tuner"
)

// loadConfig builds the controller config: defaults, then the YAML file,
// then any flag the user set explicitly.
func loadConfig(cmd *cobra.Command) tuner.Config {
	cfg := tuner.DefaultConfig()
	if configPath != "" {
		loaded, err := tuner.LoadConfig(configPath)
		if err != nil {
			logrus.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	applyFlagOverrides(cmd, &cfg)
	return cfg
}

// applyFlagOverrides copies explicitly set flags into cfg. Flags left at
// their default never override the file.
func applyFlagOverrides(cmd *cobra.Command, cfg *tuner.Config) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	overrides := []struct {
		flag  string
		value string
		dst   *string
	}{
		{"sketch", sketchPath, &cfg.Paths.Sketch},
		{"throughput", throughputPath, &cfg.Paths.Throughput},
		{"rtt", rttPath, &cfg.Paths.RTT},
		{"pfc", pausePath, &cfg.Paths.Pause},
		{"parameters", parameterPath, &cfg.Paths.Parameters},
		{"metric-log", metricLogPath, &cfg.Paths.MetricLog},
	}
	for _, o := range overrides {
		if flags.Changed(o.flag) {
			*o.dst = o.value
		}
	}
}
