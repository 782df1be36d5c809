package tuner

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// unsetRatio marks the previous snapshot before the first monitoring round.
const unsetRatio = -1

// FlowRatio is the weighted flow mix observed in one monitoring round.
// Potential-large flows contribute a fractional weight to Large.
type FlowRatio struct {
	Large float64
	Small float64
}

// probabilities normalises the pair. ok is false when the pair carries no mass.
func (r FlowRatio) probabilities() (p []float64, ok bool) {
	total := r.Large + r.Small
	if total == 0 || math.IsNaN(total) {
		return nil, false
	}
	return []float64{r.Large / total, r.Small / total}, true
}

// RatioStore owns the current and previous FlowRatio snapshots. It is shared
// by the monitoring loop (writer) and a running episode (reader).
type RatioStore struct {
	mu       sync.RWMutex
	current  FlowRatio
	previous FlowRatio
}

// NewRatioStore returns a store whose previous snapshot is unset.
func NewRatioStore() *RatioStore {
	return &RatioStore{previous: FlowRatio{Large: unsetRatio, Small: unsetRatio}}
}

// Accumulate adds r to the current round's snapshot.
func (s *RatioStore) Accumulate(r FlowRatio) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Large += r.Large
	s.current.Small += r.Small
}

// Snapshot returns the current and previous snapshots.
func (s *RatioStore) Snapshot() (current, previous FlowRatio) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.previous
}

// Rotate moves current into previous and zeroes current.
func (s *RatioStore) Rotate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previous = s.current
	s.current = FlowRatio{}
}

// DirectionShares returns the large and small shares used to bias candidate
// generation: the current snapshot when both components are nonzero, the
// previous one otherwise. A snapshot without positive mass yields 0.5/0.5.
func (s *RatioStore) DirectionShares() (large, small float64) {
	cur, prev := s.Snapshot()
	r := cur
	if cur.Large == 0 || cur.Small == 0 {
		r = prev
	}
	total := r.Large + r.Small
	if total <= 0 {
		return 0.5, 0.5
	}
	return r.Large / total, r.Small / total
}

// KLDivergence returns D(current || previous) over the normalised
// (large, small) distributions. Pairs without mass yield 0.
func KLDivergence(current, previous FlowRatio) float64 {
	p, ok := current.probabilities()
	if !ok {
		return 0
	}
	q, ok := previous.probabilities()
	if !ok {
		return 0
	}
	return stat.KullbackLeibler(p, q)
}

// Decision is the outcome of one divergence check.
type Decision struct {
	// KL is the divergence of the round's snapshot from the previous one.
	KL float64
	// FirstRound is set on the very first monitoring round.
	FirstRound bool
	// Fire requests a tuning episode.
	Fire bool
	// Snapshot is the flow mix the decision was made on.
	Snapshot FlowRatio
}

// Trigger decides when the flow population has shifted enough to re-tune.
type Trigger struct {
	threshold float64
	ratios    *RatioStore
}

// NewTrigger creates a Trigger over ratios firing above threshold.
func NewTrigger(threshold float64, ratios *RatioStore) *Trigger {
	return &Trigger{threshold: threshold, ratios: ratios}
}

// Check compares the current snapshot against the previous one and rotates
// the store. It fires when the divergence exceeds the threshold and no
// episode is active, and always on the first round.
func (t *Trigger) Check(episodeActive bool) Decision {
	cur, prev := t.ratios.Snapshot()
	d := Decision{
		KL:         KLDivergence(cur, prev),
		FirstRound: prev.Small == unsetRatio,
		Snapshot:   cur,
	}
	d.Fire = (d.KL > t.threshold && !episodeActive) || d.FirstRound
	t.ratios.Rotate()
	return d
}
