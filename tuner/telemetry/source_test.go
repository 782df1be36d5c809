package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendFile(t *testing.T, path, data string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

type sourceFiles struct {
	throughput, rtt, pause string
}

func newTestSource(t *testing.T) (*FileSource, sourceFiles) {
	t.Helper()
	dir := t.TempDir()
	files := sourceFiles{
		throughput: filepath.Join(dir, "switch_portrate.tr"),
		rtt:        filepath.Join(dir, "rtt.tr"),
		pause:      filepath.Join(dir, "pfc.txt"),
	}
	cfg := Config{MonitoredSwitches: []int{128}, PortMin: 1, PortMax: 2, NoiseFloor: 5, PauseCode: 20000}
	return NewFileSource(files.throughput, files.rtt, files.pause, cfg, 0.001), files
}

func TestFileSource_LatestTime(t *testing.T) {
	src, files := newTestSource(t)

	// Missing file is not ready
	_, err := src.LatestTime()
	assert.ErrorIs(t, err, ErrNotReady)

	// A partial line is not consumed
	appendFile(t, files.throughput, "0.001 128 1 1000\n0.002 128 1")
	latest, err := src.LatestTime()
	require.NoError(t, err)
	assert.Equal(t, 0.001, latest)

	appendFile(t, files.throughput, " 2000\n")
	latest, err = src.LatestTime()
	require.NoError(t, err)
	assert.Equal(t, 0.002, latest)
}

func TestFileSource_Window(t *testing.T) {
	// GIVEN throughput for monitored and unmonitored ports, RTT samples and
	// pause events around the window [0.001, 0.002]
	src, files := newTestSource(t)
	appendFile(t, files.throughput, ""+
		"0.001 128 1 1000000\n"+
		"0.001 128 3 9999999\n"+
		"0.001 130 1 9999999\n"+
		"0.002 128 1 2000000\n"+
		"0.002 128 2 250000\n")
	appendFile(t, files.rtt, "0.0015 1-2 8000\n0.0016 1-2 12000\n0.0017 3-4 0\n")
	appendFile(t, files.pause, ""+
		"0.0005 5 1 2 20000\n"+
		"0.0012 5 1 2 20000\n"+
		"0.0013 5 1 2 20000\n"+
		"0.0014 6 1 1 30000\n"+
		"0.0025 5 1 2 20000\n")

	// WHEN the window is read
	w, err := src.Window(0.001, 0.002)
	require.NoError(t, err)

	// THEN only monitored ports are kept, with their latest counters
	require.Len(t, w.Throughput, 2)
	assert.InDelta(t, 16, w.Throughput[PortKey{Switch: 128, Port: 1}], 1e-9)
	assert.InDelta(t, 2, w.Throughput[PortKey{Switch: 128, Port: 2}], 1e-9)
	// AND the latest RTT per pair in microseconds
	assert.Equal(t, map[PairKey]float64{{Src: 1, Dst: 2}: 12, {Src: 3, Dst: 4}: 0}, w.RTT)
	// AND only pause frames inside the window
	assert.Equal(t, map[IfaceKey]int{{Node: 5, Iface: 2}: 2}, w.Pause)

	s := w.Summarize(5)
	assert.InDelta(t, 16, s.Throughput, 1e-9)
	assert.Equal(t, 12.0, s.RTT)
	assert.Equal(t, 2.0, s.Pause)

	// WHEN the next window is read, the pause row after the first window
	// is counted there
	w, err = src.Window(0.002, 0.003)
	require.NoError(t, err)
	assert.Equal(t, map[IfaceKey]int{{Node: 5, Iface: 2}: 1}, w.Pause)
}

func TestFileSource_WindowWithoutOptionalFiles(t *testing.T) {
	src, files := newTestSource(t)

	_, err := src.Window(0, 0.001)
	assert.ErrorIs(t, err, ErrNotReady)

	appendFile(t, files.throughput, "0.001 128 1 1000000\n")
	w, err := src.Window(0, 0.001)
	require.NoError(t, err)
	assert.Empty(t, w.RTT)
	assert.Empty(t, w.Pause)
	assert.Len(t, w.Throughput, 1)
}

func TestFileSource_RewrittenFileResets(t *testing.T) {
	src, files := newTestSource(t)
	appendFile(t, files.throughput, "0.005 128 1 1000000\n0.006 128 2 1000000\n")
	latest, err := src.LatestTime()
	require.NoError(t, err)
	assert.Equal(t, 0.006, latest)

	// The simulator restarts and rewrites a shorter file
	require.NoError(t, os.WriteFile(files.throughput, []byte("0.001 128 1 500\n"), 0o644))
	latest, err = src.LatestTime()
	require.NoError(t, err)
	assert.Equal(t, 0.001, latest)

	w, err := src.Window(0, 0.001)
	require.NoError(t, err)
	assert.Len(t, w.Throughput, 1)
}

func TestMeanAbove(t *testing.T) {
	assert.Equal(t, 0.0, MeanAbove(nil, 0))
	assert.Equal(t, 0.0, MeanAbove([]float64{1, 2, 5}, 5))
	assert.Equal(t, 8.0, MeanAbove([]float64{1, 6, 10, 5}, 5))
	assert.Equal(t, 2.0, MeanAbove([]float64{3, 1, 2}, 0))
}

func TestParseID(t *testing.T) {
	v, err := parseID("128")
	require.NoError(t, err)
	assert.Equal(t, 128, v)

	v, err = parseID("129.0")
	require.NoError(t, err)
	assert.Equal(t, 129, v)

	_, err = parseID("x")
	assert.Error(t, err)
}
