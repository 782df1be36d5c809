package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paraleon-ns3/paraleon/tuner"
	"github.com/paraleon-ns3/paraleon/tuner/trace"
)

// newOverrideCmd binds the run flags used by applyFlagOverrides to a fresh
// command so tests do not share Changed state.
func newOverrideCmd() *cobra.Command {
	c := &cobra.Command{Use: "test"}
	c.Flags().Int64Var(&seed, "seed", 42, "")
	c.Flags().StringVar(&sketchPath, "sketch", "", "")
	c.Flags().StringVar(&throughputPath, "throughput", "", "")
	c.Flags().StringVar(&rttPath, "rtt", "", "")
	c.Flags().StringVar(&pausePath, "pfc", "", "")
	c.Flags().StringVar(&parameterPath, "parameters", "", "")
	c.Flags().StringVar(&metricLogPath, "metric-log", "", "")
	return c
}

func TestApplyFlagOverrides_OnlyChangedFlags(t *testing.T) {
	// GIVEN a config whose seed and sketch path came from a file
	cfg := tuner.DefaultConfig()
	cfg.Seed = 7
	cfg.Paths.Sketch = "from-file.tr"

	// WHEN only --pfc is set on the command line
	c := newOverrideCmd()
	require.NoError(t, c.ParseFlags([]string{"--pfc", "/data/pfc.txt"}))
	applyFlagOverrides(c, &cfg)

	// THEN unset flags leave the file values alone
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, "from-file.tr", cfg.Paths.Sketch)
	assert.Equal(t, "/data/pfc.txt", cfg.Paths.Pause)
}

func TestApplyFlagOverrides_SeedAndPaths(t *testing.T) {
	cfg := tuner.DefaultConfig()
	c := newOverrideCmd()
	require.NoError(t, c.ParseFlags([]string{"--seed", "99", "--sketch", "s.tr", "--metric-log", "m.tr"}))
	applyFlagOverrides(c, &cfg)

	assert.Equal(t, int64(99), cfg.Seed)
	assert.Equal(t, "s.tr", cfg.Paths.Sketch)
	assert.Equal(t, "m.tr", cfg.Paths.MetricLog)
	assert.Equal(t, tuner.DefaultConfig().Paths.Throughput, cfg.Paths.Throughput)
}

func TestParamsCmd_PrintsDefaults(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	defer rootCmd.SetOut(nil)
	rootCmd.SetArgs([]string{"params"})

	require.NoError(t, rootCmd.Execute())

	space := tuner.DefaultSpace()
	assert.Equal(t, tuner.FormatParameters(space, space.Defaults()), buf.String())
	assert.True(t, strings.HasPrefix(buf.String(), "time_reset=300\n"))
}

func TestParamsCmd_WritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "parameter.txt")
	rootCmd.SetArgs([]string{"params", "--out", out})
	defer func() { paramsOut = "" }()

	require.NoError(t, rootCmd.Execute())

	got, err := tuner.NewParamFile(out, tuner.DefaultSpace()).Load()
	require.NoError(t, err)
	assert.Equal(t, tuner.DefaultSpace().Defaults(), got)
}

func TestExportCmd_WritesParquet(t *testing.T) {
	// GIVEN a metric log with two rounds
	dir := t.TempDir()
	in := filepath.Join(dir, "metric_output.tr")
	out := filepath.Join(dir, "metric_output.parquet")
	log, err := trace.NewMetricLog(in, true)
	require.NoError(t, err)
	require.NoError(t, log.Append(trace.MetricRecord{Time: 0.01, Throughput: 20, RTT: 10, Utility: -1}))
	require.NoError(t, log.Append(trace.MetricRecord{Time: 0.011, Throughput: 22, RTT: 9, Utility: 0.7}))

	// WHEN exported
	rootCmd.SetArgs([]string{"export", "--metric-log", in, "--out", out})
	require.NoError(t, rootCmd.Execute())

	// THEN a non-empty Parquet file exists
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestLogFlowState_ReportsTrackedFlows(t *testing.T) {
	// GIVEN a tracker with three flows on two switches
	hook := test.NewGlobal()
	defer hook.Reset()
	tracker := tuner.NewFlowTracker(0.001, 4)
	tracker.Update(0.001, map[string]map[string]int64{"128": {"a": 1, "b": 2}, "129": {"c": 3}})

	// WHEN the shutdown summary is logged
	logFlowState(tracker)

	// THEN the totals are reported at info level
	require.NotEmpty(t, hook.Entries)
	entry := hook.Entries[0]
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "Tracked 3 flows across 2 switches", entry.Message)
}
