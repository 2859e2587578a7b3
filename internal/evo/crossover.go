package evo

import (
	"fmt"
	"math/rand"
	"sync"

	"cipherga/internal/genotype"
)

// RandomSinglePointCrossover copies the second parent's genes onto a clone of
// the first parent up to and including a random cut position. A child that
// ends up identical to the first parent is discarded.
type RandomSinglePointCrossover struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomSinglePointCrossover(rng *rand.Rand) *RandomSinglePointCrossover {
	return &RandomSinglePointCrossover{rng: rng}
}

func (*RandomSinglePointCrossover) Name() string {
	return "random_single_point"
}

func (c *RandomSinglePointCrossover) Crossover(a, b *genotype.Chromosome) ([]*genotype.Chromosome, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("crossover requires two parents")
	}
	keys := a.Keys()
	for _, key := range keys {
		if gene, ok := b.Gene(key); !ok || gene == nil {
			return nil, &StructuralError{Key: key}
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}

	c.mu.Lock()
	cut := c.rng.Intn(len(keys))
	c.mu.Unlock()

	child := a.Clone()
	for _, key := range keys[:cut+1] {
		gene, _ := b.Gene(key)
		if err := child.ReplaceGene(key, gene.Clone()); err != nil {
			return nil, err
		}
	}
	if child.Equal(a) {
		return nil, nil
	}
	return []*genotype.Chromosome{child}, nil
}
