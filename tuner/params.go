package tuner

import (
	"fmt"
	"math"
	"math/rand"
)

// Param indexes one of the twelve DCQCN knobs inside a ParameterVector.
type Param int

const (
	TimeReset Param = iota
	AIRate
	HAIRate
	RateOnFirstCNP
	MinDecFactor
	MinRate
	RateGD
	MinTimeBetweenCNPs
	DCETCPG
	InitialAlpha
	KMin
	KMax

	// NumParams is the dimension of the search space.
	NumParams
)

// ParamSpec describes the bounds and search step of a single knob.
type ParamSpec struct {
	Key     string
	Min     float64
	Max     float64
	Step    float64
	Default float64
	// Inverse knobs move opposite to the search direction in aggressive mode
	// (a smaller reset timer or alpha gain means a more aggressive sender).
	Inverse bool
	// Fractional knobs keep their decimal value and are capped at 1.0.
	Fractional bool
}

// ParameterVector holds one value per Param. It is a value type: assigning
// it copies every knob.
type ParameterVector [NumParams]float64

// Mode selects how candidate parameters are generated.
type Mode string

const (
	// ModeDefault yields the fixed default vector.
	ModeDefault Mode = "default"
	// ModeAggressive favours throughput when large flows dominate.
	ModeAggressive Mode = "aggressive"
	// ModeConservative favours latency when small flows dominate.
	ModeConservative Mode = "conservative"
)

// ParameterSpace is the immutable schema of the DCQCN search space.
type ParameterSpace struct {
	specs [NumParams]ParamSpec
	index map[string]Param
}

// DefaultSpace returns the schema used by the DCQCN implementation of the
// simulator.
func DefaultSpace() *ParameterSpace {
	specs := [NumParams]ParamSpec{
		TimeReset:          {Key: "time_reset", Min: 1, Max: 131071, Step: 50, Default: 300, Inverse: true},
		AIRate:             {Key: "ai_rate", Min: 1, Max: 500, Step: 50, Default: 5},
		HAIRate:            {Key: "hai_rate", Min: 10, Max: 5000, Step: 100, Default: 50},
		RateOnFirstCNP:     {Key: "rate_to_set_on_first_cnp", Min: 0.1, Max: 1, Step: 0.1, Default: 0.5, Fractional: true},
		MinDecFactor:       {Key: "rpg_min_dec_fac", Min: 0.1, Max: 1, Step: 0.1, Default: 0.5, Inverse: true, Fractional: true},
		MinRate:            {Key: "rpg_min_rate", Min: 1, Max: 5000, Step: 300, Default: 1},
		RateGD:             {Key: "rpg_gd", Min: 1, Max: 13, Step: 1, Default: 11},
		MinTimeBetweenCNPs: {Key: "min_time_between_cnps", Min: 0, Max: 4095, Step: 16, Default: 4},
		DCETCPG:            {Key: "dce_tcp_g", Min: 1, Max: 1019, Step: 16, Default: 1019, Inverse: true},
		InitialAlpha:       {Key: "initial_alpha_value", Min: 1, Max: 1023, Step: 16, Default: 1023, Inverse: true},
		KMin:               {Key: "kmin", Min: 10, Max: 1600, Step: 100, Default: 400},
		KMax:               {Key: "kmax", Min: 40, Max: 6400, Step: 400, Default: 1600},
	}
	index := make(map[string]Param, NumParams)
	for i, s := range specs {
		index[s.Key] = Param(i)
	}
	return &ParameterSpace{specs: specs, index: index}
}

// Spec returns the schema of knob p.
func (s *ParameterSpace) Spec(p Param) ParamSpec {
	return s.specs[p]
}

// Lookup resolves a parameter-file key to its Param.
func (s *ParameterSpace) Lookup(key string) (Param, bool) {
	p, ok := s.index[key]
	return p, ok
}

// Defaults returns the vector deployed before any tuning.
func (s *ParameterSpace) Defaults() ParameterVector {
	var v ParameterVector
	for i, spec := range s.specs {
		v[i] = spec.Default
	}
	return v
}

// Clamp bounds value to the range of knob p.
func (s *ParameterSpace) Clamp(p Param, value float64) float64 {
	spec := s.specs[p]
	return math.Max(spec.Min, math.Min(spec.Max, value))
}

// Validate returns an error if any knob is out of range or kmin >= kmax.
func (s *ParameterSpace) Validate(v ParameterVector) error {
	for i, spec := range s.specs {
		if math.IsNaN(v[i]) || v[i] < spec.Min || v[i] > spec.Max {
			return fmt.Errorf("%s=%v outside [%v, %v]", spec.Key, v[i], spec.Min, spec.Max)
		}
	}
	if v[KMin] >= v[KMax] {
		return fmt.Errorf("kmin=%v must be below kmax=%v", v[KMin], v[KMax])
	}
	return nil
}

// orderThresholds restores kmin < kmax after independent perturbation.
func (s *ParameterSpace) orderThresholds(v *ParameterVector) {
	if v[KMin] > v[KMax] {
		v[KMin], v[KMax] = v[KMax], v[KMin]
	}
	// kmin tops out well below kmax's ceiling, so kmax+1 stays in range.
	if v[KMin] == v[KMax] {
		v[KMax]++
	}
}

// Generator produces neighbouring candidates for the annealing search.
// The search direction is biased by the flow mix held in the RatioStore.
//
// Thread-safety: NOT thread-safe; owned by a single episode.
type Generator struct {
	space  *ParameterSpace
	ratios *RatioStore
	rng    *rand.Rand
}

// NewGenerator creates a Generator drawing from rng.
func NewGenerator(space *ParameterSpace, ratios *RatioStore, rng *rand.Rand) *Generator {
	return &Generator{space: space, ratios: ratios, rng: rng}
}

// Next returns a candidate derived from current. ModeDefault ignores current
// and returns the default vector.
func (g *Generator) Next(mode Mode, current ParameterVector) ParameterVector {
	if mode == ModeDefault {
		return g.space.Defaults()
	}

	dir := g.direction(mode)
	var next ParameterVector
	for i, spec := range g.space.specs {
		delta := dir * spec.Step * (0.5 + 0.5*g.rng.Float64())
		if spec.Inverse == (mode == ModeAggressive) {
			delta = -delta
		}
		value := current[i] + delta

		if spec.Fractional {
			value = math.Min(value, 1)
		} else {
			value = math.RoundToEven(value)
		}
		next[i] = g.space.Clamp(Param(i), value)
	}
	g.space.orderThresholds(&next)
	return next
}

// direction draws +1 or -1. Aggressive mode moves up with probability equal
// to the large-flow share and conservative mode with the small-flow share,
// capped at 0.8.
func (g *Generator) direction(mode Mode) float64 {
	large, small := g.ratios.DirectionShares()
	share := large
	if mode == ModeConservative {
		share = small
	}
	if g.rng.Float64() <= math.Min(share, 0.8) {
		return 1
	}
	return -1
}
