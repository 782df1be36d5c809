package tuner

import (
	"sort"
	"sync"
)

// unsetTime marks a potential-large timestamp that has not been stamped.
const unsetTime = -1

// FlowClass is the bucket a flow occupies after a classification pass.
type FlowClass int

const (
	ClassNone FlowClass = iota
	ClassSmall
	ClassPotentialLarge
	ClassLarge
)

func (c FlowClass) String() string {
	switch c {
	case ClassSmall:
		return "small"
	case ClassPotentialLarge:
		return "potential_large"
	case ClassLarge:
		return "large"
	default:
		return "none"
	}
}

// FlowRecord is the state kept for one flow seen at one switch.
type FlowRecord struct {
	SwitchID string
	FlowID   string
	Active   bool
	LastSeen float64
	// PotentialStart and PotentialStop bracket the time the flow spent in the
	// potential-large bucket; unsetTime when not stamped.
	PotentialStart float64
	PotentialStop  float64
	Class          FlowClass
	// Total is the cumulative size over the whole lifetime, independent of
	// how much history is retained.
	Total int64

	ring  []int64
	head  int
	count int
}

func newFlowRecord(switchID, flowID string, historyLimit int) *FlowRecord {
	return &FlowRecord{
		SwitchID:       switchID,
		FlowID:         flowID,
		Active:         true,
		PotentialStart: unsetTime,
		PotentialStop:  unsetTime,
		ring:           make([]int64, historyLimit),
	}
}

func (r *FlowRecord) append(delta int64) {
	r.Total += delta
	r.ring[(r.head+r.count)%len(r.ring)] = delta
	if r.count < len(r.ring) {
		r.count++
	} else {
		r.head = (r.head + 1) % len(r.ring)
	}
}

// History returns the retained per-round sizes, oldest first.
func (r *FlowRecord) History() []int64 {
	out := make([]int64, r.count)
	for i := range out {
		out[i] = r.ring[(r.head+i)%len(r.ring)]
	}
	return out
}

func (r *FlowRecord) clone() FlowRecord {
	c := *r
	c.ring = append([]int64(nil), r.ring...)
	return c
}

// FlowTracker keeps per-switch, per-flow history and liveness.
// Records are never removed; a flow that stops reporting is only marked
// inactive.
type FlowTracker struct {
	mu            sync.RWMutex
	resetInterval float64
	historyLimit  int
	switches      map[string]map[string]*FlowRecord
}

// NewFlowTracker creates a tracker that retains historyLimit samples per flow
// and expires flows not seen for half of resetInterval.
func NewFlowTracker(resetInterval float64, historyLimit int) *FlowTracker {
	return &FlowTracker{
		resetInterval: resetInterval,
		historyLimit:  historyLimit,
		switches:      make(map[string]map[string]*FlowRecord),
	}
}

// Update records the sizes reported at now (switch -> flow -> size) and
// ages every active flow.
func (t *FlowTracker) Update(now float64, sizes map[string]map[string]int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for switchID, flows := range sizes {
		known, ok := t.switches[switchID]
		if !ok {
			known = make(map[string]*FlowRecord)
			t.switches[switchID] = known
		}
		for flowID, size := range flows {
			rec, ok := known[flowID]
			if !ok {
				rec = newFlowRecord(switchID, flowID, t.historyLimit)
				known[flowID] = rec
			}
			rec.append(size)
			rec.LastSeen = now
			rec.Active = true
		}
	}

	for _, flows := range t.switches {
		for _, rec := range flows {
			if rec.Active && now-rec.LastSeen > t.resetInterval/2 {
				rec.Active = false
			}
		}
	}
}

// Flow returns a copy of the record for (switchID, flowID).
func (t *FlowTracker) Flow(switchID, flowID string) (FlowRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.switches[switchID][flowID]
	if !ok {
		return FlowRecord{}, false
	}
	return rec.clone(), true
}

// Len returns the number of tracked flows across all switches.
func (t *FlowTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, flows := range t.switches {
		n += len(flows)
	}
	return n
}

// Switches returns the known switch ids in sorted order.
func (t *FlowTracker) Switches() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sortedKeys(t.switches)
}

// Flows returns copies of the records seen at switchID, ordered by flow id.
func (t *FlowTracker) Flows(switchID string) []FlowRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	flows := t.switches[switchID]
	out := make([]FlowRecord, 0, len(flows))
	for _, flowID := range sortedKeys(flows) {
		out = append(out, flows[flowID].clone())
	}
	return out
}

// visit calls fn for every record, switch by switch in sorted order, while
// holding the write lock. fn may mutate the record.
func (t *FlowTracker) visit(fn func(rec *FlowRecord)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, switchID := range sortedKeys(t.switches) {
		flows := t.switches[switchID]
		for _, flowID := range sortedKeys(flows) {
			fn(flows[flowID])
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
