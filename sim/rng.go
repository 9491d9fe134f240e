package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey and identical scenario configuration
// MUST produce identical processed-event logs and metrics.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// SubsystemRouting is the RNG subsystem used for weighted route selection.
const SubsystemRouting = "routing"

// SubsystemSource returns the RNG subsystem name for source id.
func SubsystemSource(id int) string {
	return fmt.Sprintf("source_%d", id)
}

// SubsystemQueue returns the RNG subsystem name for queue id.
func SubsystemQueue(id int) string {
	return fmt.Sprintf("queue_%d", id)
}

// PartitionedRNG provides deterministic, isolated RNG streams per subsystem.
// Each queue, each source and the routing draw get their own stream derived
// from the master seed (seed XOR fnv1a64(subsystem name)), so adding a node
// to a scenario does not perturb the samples any other node sees.
//
// Thread-safety: NOT thread-safe. The single dispatch loop owns it.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named
// subsystem. The same name always returns the same *rand.Rand instance.
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	derivedSeed := int64(p.key) ^ fnv1a64(name)
	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

// ExpSampler draws exponentially distributed durations from an owned RNG
// stream. It models the memoryless inter-event times of Poisson arrivals
// and exponential service: mean 1/rate, all draws strictly positive.
type ExpSampler struct {
	rng *rand.Rand
}

// NewExpSampler wraps rng. The stream is owned state, never global: two
// samplers over distinct subsystem streams cannot interfere.
func NewExpSampler(rng *rand.Rand) *ExpSampler {
	if rng == nil {
		panic("NewExpSampler: rng must not be nil")
	}
	return &ExpSampler{rng: rng}
}

// Sample returns one exponential draw with the given rate parameter.
// Fails if rate is not strictly positive; no stream state is consumed on
// failure.
func (s *ExpSampler) Sample(rate float64) (float64, error) {
	if rate <= 0 {
		return 0, fmt.Errorf("%w: exponential rate must be positive, got %g", ErrInvalidParameter, rate)
	}
	return s.rng.ExpFloat64() / rate, nil
}
