package evo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"

	"cipherga/internal/genotype"
)

// countingHandler records how many log records were emitted per level.
type countingHandler struct {
	mu     sync.Mutex
	counts map[slog.Level]int
}

func newCountingLogger() (*slog.Logger, *countingHandler) {
	h := &countingHandler{counts: make(map[slog.Level]int)}
	return slog.New(h), h
}

func (h *countingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *countingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[r.Level]++
	return nil
}

func (h *countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *countingHandler) WithGroup(string) slog.Handler { return h }

func (h *countingHandler) count(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[level]
}

type valueGene struct {
	value      string
	match      bool
	chromosome *genotype.Chromosome
}

func (g *valueGene) Clone() genotype.Gene {
	return &valueGene{value: g.value, match: g.match}
}

func (g *valueGene) Chromosome() *genotype.Chromosome     { return g.chromosome }
func (g *valueGene) SetChromosome(c *genotype.Chromosome) { g.chromosome = c }
func (g *valueGene) HasMatch() bool                       { return g.match }
func (g *valueGene) SetHasMatch(match bool)               { g.match = match }
func (g *valueGene) String() string                       { return g.value }

func (g *valueGene) Equal(other genotype.Gene) bool {
	o, ok := other.(*valueGene)
	return ok && o.value == g.value
}

// chromosomeOf builds a chromosome with keys k1..kn holding values.
func chromosomeOf(values ...string) *genotype.Chromosome {
	c := genotype.NewChromosome()
	for i, value := range values {
		c.PutGene(fmt.Sprintf("k%d", i+1), &valueGene{value: value})
	}
	return c
}

func withFitness(c *genotype.Chromosome, fitness float64) *genotype.Chromosome {
	c.SetFitness(fitness)
	return c
}

// scoreEvaluator scores a chromosome by the number of genes whose value is
// "a".
type scoreEvaluator struct {
	calls atomic.Int64
}

func (e *scoreEvaluator) Evaluate(_ context.Context, c *genotype.Chromosome) (float64, error) {
	e.calls.Add(1)
	score := 0.0
	for _, gene := range c.Genes() {
		if gene.String() == "a" {
			score++
		}
	}
	return score, nil
}

type failingEvaluator struct{}

func (failingEvaluator) Evaluate(context.Context, *genotype.Chromosome) (float64, error) {
	return 0, errors.New("evaluator unavailable")
}

// randomBreeder produces chromosomes of size genes drawn from alphabet.
type randomBreeder struct {
	mu       sync.Mutex
	rng      *rand.Rand
	size     int
	alphabet []string
}

func newRandomBreeder(seed int64, size int, alphabet ...string) *randomBreeder {
	return &randomBreeder{rng: rand.New(rand.NewSource(seed)), size: size, alphabet: alphabet}
}

func (b *randomBreeder) Breed(context.Context) (*genotype.Chromosome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	values := make([]string, b.size)
	for i := range values {
		values[i] = b.alphabet[b.rng.Intn(len(b.alphabet))]
	}
	return chromosomeOf(values...), nil
}

// letterSwapMutator replaces a gene with the next value of alphabet.
type letterSwapMutator struct {
	alphabet []string
}

func (m letterSwapMutator) MutateGene(_ string, current genotype.Gene) (genotype.Gene, error) {
	for i, value := range m.alphabet {
		if current.String() == value {
			return &valueGene{value: m.alphabet[(i+1)%len(m.alphabet)]}, nil
		}
	}
	return &valueGene{value: m.alphabet[0]}, nil
}

// subsetMutation reports a change for every chromosome whose first gene has
// one of the configured values, and records which chromosomes it saw.
type subsetMutation struct {
	mu      sync.Mutex
	changed map[string]bool
	seen    []*genotype.Chromosome
}

func (*subsetMutation) Name() string { return "subset" }

func (m *subsetMutation) Mutate(c *genotype.Chromosome) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, c)
	genes := c.Genes()
	if len(genes) == 0 {
		return false, nil
	}
	return m.changed[genes[0].String()], nil
}

type noMutation struct{}

func (noMutation) Name() string { return "none" }

func (noMutation) Mutate(*genotype.Chromosome) (bool, error) { return false, nil }

// cloneCrossover returns a fresh unevaluated copy of the first parent with
// its first gene replaced by the second parent's.
type cloneCrossover struct{}

func (cloneCrossover) Name() string { return "clone" }

func (cloneCrossover) Crossover(a, b *genotype.Chromosome) ([]*genotype.Chromosome, error) {
	child := a.Clone()
	keys := a.Keys()
	if len(keys) > 0 {
		gene, ok := b.Gene(keys[0])
		if !ok {
			return nil, &StructuralError{Key: keys[0]}
		}
		if err := child.ReplaceGene(keys[0], gene.Clone()); err != nil {
			return nil, err
		}
	}
	child.SetEvaluationNeeded(true)
	return []*genotype.Chromosome{child}, nil
}

type errorCrossover struct {
	err error
}

func (errorCrossover) Name() string { return "error" }

func (c errorCrossover) Crossover(*genotype.Chromosome, *genotype.Chromosome) ([]*genotype.Chromosome, error) {
	return nil, c.err
}

func testStrategy(seed int64) Strategy {
	alphabet := []string{"a", "b", "c", "d"}
	return Strategy{
		PopulationSize:            12,
		MaxGenerations:            5,
		Elitism:                   2,
		MutationRate:              0.5,
		MaxMutationsPerIndividual: 2,
		Selector:                  NewTournamentSelector(rand.New(rand.NewSource(seed)), 3),
		Crossover:                 NewRandomSinglePointCrossover(rand.New(rand.NewSource(seed + 1))),
		Mutation:                  NewStandardMutation(rand.New(rand.NewSource(seed + 2)), 0.5, 2, letterSwapMutator{alphabet: alphabet}),
		FitnessEvaluator:          &scoreEvaluator{},
		Breeder:                   newRandomBreeder(seed, 6, alphabet...),
	}
}
