package tuner

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/paraleon-ns3/paraleon/tuner/telemetry"
	"github.com/paraleon-ns3/paraleon/tuner/trace"
)

// memParams is an in-memory ParamStore that remembers every publish.
type memParams struct {
	mu        sync.Mutex
	space     *ParameterSpace
	published []ParameterVector
}

func newMemParams() *memParams {
	return &memParams{space: DefaultSpace()}
}

func (m *memParams) Load() (ParameterVector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.published) == 0 {
		return m.space.Defaults(), ErrNoParameters
	}
	return m.published[len(m.published)-1], nil
}

func (m *memParams) Publish(v ParameterVector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, v)
	return nil
}

func (m *memParams) history() []ParameterVector {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ParameterVector(nil), m.published...)
}

// memMetrics collects metric records.
type memMetrics struct {
	mu      sync.Mutex
	records []trace.MetricRecord
}

func (m *memMetrics) Append(rec trace.MetricRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memMetrics) all() []trace.MetricRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]trace.MetricRecord(nil), m.records...)
}

// responsiveSource reports telemetry that reacts to the live candidate:
// throughput grows with ai_rate and RTT with kmax. Once open, its clock is
// always past any window.
type responsiveSource struct {
	params *memParams
	gate   chan struct{}
}

func newResponsiveSource(params *memParams) *responsiveSource {
	s := &responsiveSource{params: params, gate: make(chan struct{})}
	close(s.gate)
	return s
}

// newGatedSource returns a source whose clock does not advance until open
// is called.
func newGatedSource(params *memParams) *responsiveSource {
	return &responsiveSource{params: params, gate: make(chan struct{})}
}

func (s *responsiveSource) open() {
	close(s.gate)
}

func (s *responsiveSource) LatestTime() (float64, error) {
	select {
	case <-s.gate:
		return math.MaxFloat64, nil
	default:
		return 0, telemetry.ErrNotReady
	}
}

func (s *responsiveSource) Window(start, stop float64) (*telemetry.Window, error) {
	v, _ := s.params.Load()
	return &telemetry.Window{
		Start:      start,
		Stop:       stop,
		Throughput: map[telemetry.PortKey]float64{{Switch: 128, Port: 1}: 10 + v[AIRate]/5},
		RTT:        map[telemetry.PairKey]float64{{Src: 0, Dst: 1}: 20 + v[KMax]/100},
		Pause:      map[telemetry.IfaceKey]int{},
	}, nil
}

// tickWaiter sleeps briefly or returns when ctx is done.
type tickWaiter struct{}

func (tickWaiter) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Millisecond):
		return nil
	}
}

func (tickWaiter) Reset() {}

// shortAnneal is a schedule of three temperature levels.
func shortAnneal(attempts int) AnnealConfig {
	a := DefaultConfig().Anneal
	a.InitialTemperature = 80
	a.FinalTemperature = 10
	a.CoolingRate = 0.5
	a.AttemptTimes = attempts
	return a
}
