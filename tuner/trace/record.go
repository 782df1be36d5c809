// Package trace records what a tuning episode measured and decided, and
// reads and writes the metric log shared with offline analysis tools.
// This package has no dependencies on tuner/ and stores pure data types.
package trace

// RoundRecord captures one measuring round of an annealing episode.
type RoundRecord struct {
	Round       int
	Time        float64 // end of the measurement window
	Temperature float64
	Throughput  float64
	RTT         float64
	Pause       float64
	Utility     float64
	Accepted    bool      // candidate replaced the current solution
	Candidate   []float64 // vector measured this round, in parameter order
}

// MetricRecord is one line of the metric log:
// "time avg_throughput avg_rtt avg_pfc utility".
type MetricRecord struct {
	Time       float64
	Throughput float64
	RTT        float64
	Pause      float64
	Utility    float64
}
