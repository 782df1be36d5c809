package trace

import "math"

// EpisodeSummary aggregates statistics from an EpisodeTrace.
type EpisodeSummary struct {
	Rounds         int
	AcceptedCount  int
	RejectedCount  int
	AcceptanceRate float64
	MeanUtility    float64
	BestUtility    float64
	Temperatures   int // distinct temperature levels visited
}

// Summarize computes aggregate statistics from an EpisodeTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(et *EpisodeTrace) *EpisodeSummary {
	summary := &EpisodeSummary{}
	if et == nil || len(et.Rounds) == 0 {
		return summary
	}

	summary.Rounds = len(et.Rounds)
	summary.BestUtility = math.Inf(-1)
	total := 0.0
	lastTemp := math.NaN()
	for _, r := range et.Rounds {
		if r.Accepted {
			summary.AcceptedCount++
		} else {
			summary.RejectedCount++
		}
		total += r.Utility
		summary.BestUtility = math.Max(summary.BestUtility, r.Utility)
		if r.Temperature != lastTemp {
			summary.Temperatures++
			lastTemp = r.Temperature
		}
	}
	summary.MeanUtility = total / float64(summary.Rounds)
	summary.AcceptanceRate = float64(summary.AcceptedCount) / float64(summary.Rounds)
	return summary
}
