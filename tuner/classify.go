package tuner

import "math"

// Sustained-activity drop thresholds: a window-sum falling by more than
// dropFirst and then by more than dropSecond marks a flow winding down.
const (
	dropFirst  = 10
	dropSecond = 20
)

// Buckets lists the flow ids of one switch per class.
type Buckets struct {
	Large          []string
	PotentialLarge []string
	Small          []string
}

// Classification is the result of one classification pass.
type Classification struct {
	Time     float64
	Switches map[string]*Buckets
	// Ratio is the round's flow mix derived from the buckets.
	Ratio FlowRatio
}

// Counts returns the number of flows per class across all switches.
func (c *Classification) Counts() (large, potential, small int) {
	for _, b := range c.Switches {
		large += len(b.Large)
		potential += len(b.PotentialLarge)
		small += len(b.Small)
	}
	return large, potential, small
}

// Classifier buckets live flows into large, potential-large and small.
type Classifier struct {
	largeThreshold int64
	window         int
	resetInterval  float64
}

// NewClassifier creates a Classifier. Flows whose cumulative size reaches
// largeThreshold are large; window is the sliding-window width of the
// sustained-activity heuristic.
func NewClassifier(largeThreshold int64, window int, resetInterval float64) *Classifier {
	return &Classifier{largeThreshold: largeThreshold, window: window, resetInterval: resetInterval}
}

// Classify rebuilds the buckets for every flow in tracker at time now and
// stamps the potential-large timestamps on the records.
func (c *Classifier) Classify(tracker *FlowTracker, now float64) *Classification {
	out := &Classification{Time: now, Switches: make(map[string]*Buckets)}

	tracker.visit(func(rec *FlowRecord) {
		b, ok := out.Switches[rec.SwitchID]
		if !ok {
			b = &Buckets{}
			out.Switches[rec.SwitchID] = b
		}

		switch {
		case !rec.Active:
			if rec.Class == ClassPotentialLarge && rec.PotentialStop == unsetTime {
				rec.PotentialStop = now
			}
			rec.Class = ClassNone
		case rec.Total >= c.largeThreshold:
			if rec.Class == ClassPotentialLarge {
				rec.PotentialStop = now
			}
			rec.Class = ClassLarge
			b.Large = append(b.Large, rec.FlowID)
		case KeepsSending(rec.History(), c.window):
			if rec.PotentialStart == unsetTime {
				rec.PotentialStart = now
			}
			rec.Class = ClassPotentialLarge
			b.PotentialLarge = append(b.PotentialLarge, rec.FlowID)
			out.Ratio.Large += c.potentialWeight(now - rec.PotentialStart)
		default:
			rec.Class = ClassSmall
			b.Small = append(b.Small, rec.FlowID)
		}
	})

	for _, b := range out.Switches {
		out.Ratio.Large += float64(len(b.Large))
		out.Ratio.Small += float64(len(b.Small))
	}
	return out
}

// potentialWeight maps how long a flow has been potential-large to a
// largeness weight in [0.5, 1).
func (c *Classifier) potentialWeight(duration float64) float64 {
	return 1 / (1 + math.Exp(-duration/c.resetInterval))
}

// KeepsSending reports whether a flow's per-round sizes show sustained
// activity. It needs at least window+1 samples; an interior window-sum of
// zero, or a sharp drop that keeps falling into the next window, fails.
func KeepsSending(history []int64, window int) bool {
	if window <= 0 || len(history) <= window {
		return false
	}

	sums := make([]int64, len(history)-window+1)
	for i := range sums {
		for _, v := range history[i : i+window] {
			sums[i] += v
		}
	}

	for i := 1; i < len(sums)-1; i++ {
		if sums[i] == 0 {
			return false
		}
		if sums[i-1]-sums[i] > dropFirst && len(sums) >= 3 && sums[i]-sums[i+1] > dropSecond {
			return false
		}
	}
	return true
}
