package tuner

import (
	"fmt"

	"github.com/paraleon-ns3/paraleon/tuner/telemetry"
)

// Weights balance the three utility terms.
type Weights struct {
	Throughput float64
	RTT        float64
	Pause      float64
}

var (
	aggressiveWeights   = Weights{Throughput: 0.5, RTT: 0.2, Pause: 0.3}
	conservativeWeights = Weights{Throughput: 0.2, RTT: 0.5, Pause: 0.3}
)

// JudgeMode picks the search mode and utility weights for an episode from
// the flow mix at trigger time.
func JudgeMode(r FlowRatio) (Mode, Weights) {
	if r.Large >= r.Small {
		return ModeAggressive, aggressiveWeights
	}
	return ModeConservative, conservativeWeights
}

// UtilityConfig holds the normalisation constants of the utility function.
type UtilityConfig struct {
	// BaseThroughput is the reference throughput in Gbps.
	BaseThroughput float64 `yaml:"base_throughput"`
	// BaseRTT is the reference round-trip time in microseconds.
	BaseRTT float64 `yaml:"base_rtt"`
	// PauseTime is the duration of one pause frame in seconds.
	PauseTime float64 `yaml:"pause_time"`
}

// Validate returns an error if a normalisation constant is not positive.
func (c UtilityConfig) Validate() error {
	if c.BaseThroughput <= 0 {
		return fmt.Errorf("base_throughput must be positive, got %v", c.BaseThroughput)
	}
	if c.BaseRTT <= 0 {
		return fmt.Errorf("base_rtt must be positive, got %v", c.BaseRTT)
	}
	if c.PauseTime < 0 {
		return fmt.Errorf("pause_time must be non-negative, got %v", c.PauseTime)
	}
	return nil
}

// Evaluate scores a measurement window of length window seconds. Higher is
// better. A zero RTT (no samples) contributes nothing to the RTT term.
func (c UtilityConfig) Evaluate(s telemetry.Summary, w Weights, window float64) float64 {
	u := w.Throughput * s.Throughput / c.BaseThroughput
	if s.RTT > 0 {
		u += w.RTT * c.BaseRTT / s.RTT
	}
	pauseFraction := 0.0
	if window > 0 {
		pauseFraction = s.Pause * c.PauseTime / window
	}
	return u + w.Pause*(1-pauseFraction)
}
