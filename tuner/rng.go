package tuner

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// SeedKey is the --seed of a controller run. Given the same telemetry, two
// runs with the same key publish the same candidates and make the same
// Metropolis decisions.
type SeedKey int64

// NewSeedKey creates a SeedKey from a seed value.
func NewSeedKey(seed int64) SeedKey {
	return SeedKey(seed)
}

// SubsystemEpisode names the stream of tuning episode id.
func SubsystemEpisode(id int) string {
	return fmt.Sprintf("episode_%d", id)
}

// PartitionedRNG hands every tuning episode its own random stream, seeded
// with seed XOR fnv1a64(name). Episode N replays identically whether or not
// earlier episodes were cut short or drew a different number of values, so
// a single episode can be reproduced from the seed and its id alone.
//
// ForSubsystem is called by the monitoring loop only; each returned
// *rand.Rand is then owned by the episode goroutine it was created for.
type PartitionedRNG struct {
	key        SeedKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SeedKey.
func NewPartitionedRNG(key SeedKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the stream for name, creating it on first use.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// fnv1a64 hashes a stream name into seed space.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
