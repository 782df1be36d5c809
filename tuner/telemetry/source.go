// Package telemetry reads the measurement files written by the network
// simulation: flow sketches, per-port throughput, RTT samples and PFC pause
// events. Readers keep a byte cursor per file so each round only parses the
// lines appended since the previous one.
package telemetry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrNotReady reports telemetry that does not exist yet or carries no rows.
// Callers retry later.
var ErrNotReady = errors.New("telemetry not ready")

// PortKey identifies a monitored switch port.
type PortKey struct {
	Switch int
	Port   int
}

// PairKey identifies a source/destination host pair.
type PairKey struct {
	Src int
	Dst int
}

// IfaceKey identifies a node interface emitting pause frames.
type IfaceKey struct {
	Node  int
	Iface int
}

// Summary is the scalar reduction of a Window.
type Summary struct {
	// Throughput is the mean port throughput in Gbps above the noise floor.
	Throughput float64
	// RTT is the mean nonzero RTT in microseconds.
	RTT float64
	// Pause is the mean pause-frame count over interfaces that paused.
	Pause float64
}

// Window holds the per-round matrices for [Start, Stop].
type Window struct {
	Start      float64
	Stop       float64
	Throughput map[PortKey]float64
	RTT        map[PairKey]float64
	Pause      map[IfaceKey]int
}

// Summarize reduces the window to scalars. Empty selections reduce to 0.
func (w *Window) Summarize(noiseFloor float64) Summary {
	tp := make([]float64, 0, len(w.Throughput))
	for _, v := range w.Throughput {
		tp = append(tp, v)
	}
	rtt := make([]float64, 0, len(w.RTT))
	for _, v := range w.RTT {
		rtt = append(rtt, v)
	}
	pause := make([]float64, 0, len(w.Pause))
	for _, v := range w.Pause {
		pause = append(pause, float64(v))
	}
	return Summary{
		Throughput: MeanAbove(tp, noiseFloor),
		RTT:        MeanAbove(rtt, 0),
		Pause:      MeanAbove(pause, 0),
	}
}

// Source is the pull interface the tuner measures through.
type Source interface {
	// LatestTime returns the newest timestamp present in the telemetry.
	LatestTime() (float64, error)
	// Window returns the measurements attributed to [start, stop].
	Window(start, stop float64) (*Window, error)
}

// FileSource reads the simulator's throughput, RTT and pause files.
// It is safe for concurrent use.
type FileSource struct {
	mu         sync.Mutex
	throughput *throughputReader
	rtt        *rttReader
	pause      *pauseReader
}

// NewFileSource creates a FileSource. interval is the length of one
// measurement window in seconds and converts byte counters to Gbps.
func NewFileSource(throughputPath, rttPath, pausePath string, cfg Config, interval float64) *FileSource {
	return &FileSource{
		throughput: newThroughputReader(throughputPath, cfg, interval),
		rtt:        newRTTReader(rttPath),
		pause:      newPauseReader(pausePath, cfg.PauseCode),
	}
}

// LatestTime returns the time of the last complete throughput row.
func (s *FileSource) LatestTime() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.throughput.refresh(); err != nil {
		return 0, err
	}
	if !s.throughput.seen {
		return 0, fmt.Errorf("%s: %w", s.throughput.cursor.path, ErrNotReady)
	}
	return s.throughput.lastTime, nil
}

// Window reads all three files for [start, stop]. A missing RTT or pause
// file yields an empty matrix; a missing throughput file is ErrNotReady.
func (s *FileSource) Window(start, stop float64) (*Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.throughput.refresh(); err != nil {
		return nil, err
	}
	w := &Window{Start: start, Stop: stop, Throughput: s.throughput.gbps()}

	if err := s.rtt.refresh(); err != nil && !errors.Is(err, ErrNotReady) {
		return nil, err
	}
	w.RTT = s.rtt.snapshot()

	pause, err := s.pause.window(start, stop)
	if err != nil {
		if !errors.Is(err, ErrNotReady) {
			return nil, err
		}
		logrus.Debugf("pause telemetry unavailable: %v", err)
		pause = map[IfaceKey]int{}
	}
	w.Pause = pause
	return w, nil
}
