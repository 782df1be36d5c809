package telemetry

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// MeanAbove returns the mean of the values strictly greater than floor, or 0
// when none qualify. Values are summed in ascending order so the result does
// not depend on map iteration order.
func MeanAbove(values []float64, floor float64) float64 {
	kept := make([]float64, 0, len(values))
	for _, v := range values {
		if v > floor {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return 0
	}
	sort.Float64s(kept)
	return stat.Mean(kept, nil)
}
