package evo

import (
	"fmt"
	"math/rand"
	"sync"

	"cipherga/internal/genotype"
)

// StandardMutation makes up to MaxMutations attempts per individual. Each
// attempt fires with probability Rate and replaces the gene at a random key
// with the GeneMutator's output.
type StandardMutation struct {
	Rate         float64
	MaxMutations int
	Mutator      GeneMutator

	mu  sync.Mutex
	rng *rand.Rand
}

func NewStandardMutation(rng *rand.Rand, rate float64, maxMutations int, mutator GeneMutator) *StandardMutation {
	return &StandardMutation{
		Rate:         rate,
		MaxMutations: maxMutations,
		Mutator:      mutator,
		rng:          rng,
	}
}

func (*StandardMutation) Name() string {
	return "standard"
}

func (m *StandardMutation) Mutate(c *genotype.Chromosome) (bool, error) {
	if m.Mutator == nil {
		return false, fmt.Errorf("gene mutator is required")
	}
	keys := c.Keys()
	if len(keys) == 0 || m.MaxMutations <= 0 || m.Rate <= 0 {
		return false, nil
	}

	targets := m.pickTargets(keys)
	mutated := false
	for _, key := range targets {
		current, _ := c.Gene(key)
		next, err := m.Mutator.MutateGene(key, current)
		if err != nil {
			return mutated, fmt.Errorf("mutate gene %s: %w", key, err)
		}
		if next == nil || (current != nil && next.Equal(current)) {
			continue
		}
		if err := c.ReplaceGene(key, next); err != nil {
			return mutated, err
		}
		mutated = true
	}
	return mutated, nil
}

func (m *StandardMutation) pickTargets(keys []string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var targets []string
	for i := 0; i < m.MaxMutations; i++ {
		if m.rng.Float64() >= m.Rate {
			continue
		}
		targets = append(targets, keys[m.rng.Intn(len(keys))])
	}
	return targets
}
