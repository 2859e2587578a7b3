package evo

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cipherga/internal/genotype"
	"cipherga/internal/stats"
	"cipherga/internal/workpool"
)

func sumFitness(individuals []*genotype.Chromosome) float64 {
	total := 0.0
	for _, individual := range individuals {
		total += individual.FitnessOrZero()
	}
	return total
}

func TestPopulationFitnessSumInvariant(t *testing.T) {
	population := NewPopulation(testStrategy(1), workpool.Inline{}, nil)

	assert.False(t, population.AddIndividual(withFitness(chromosomeOf("a"), 1.5)))
	assert.False(t, population.AddIndividual(withFitness(chromosomeOf("b"), -0.5)))
	assert.True(t, population.AddIndividual(chromosomeOf("c")))
	assert.InDelta(t, sumFitness(population.Individuals()), population.TotalFitness(), 1e-9)

	removed := population.RemoveIndividual(0)
	require.NotNil(t, removed)
	assert.Nil(t, removed.Population())
	assert.Equal(t, 2, population.Size())
	assert.InDelta(t, sumFitness(population.Individuals()), population.TotalFitness(), 1e-9)

	population.ClearIndividuals()
	assert.Zero(t, population.Size())
	assert.Zero(t, population.TotalFitness())
}

func TestPopulationConcurrentAdds(t *testing.T) {
	population := NewPopulation(testStrategy(1), workpool.Inline{}, nil)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				population.AddIndividual(withFitness(chromosomeOf("a"), float64(w)+0.25))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 400, population.Size())
	assert.InDelta(t, sumFitness(population.Individuals()), population.TotalFitness(), 1e-6)
	for _, individual := range population.Individuals() {
		assert.Same(t, population, individual.Population())
	}
}

func TestPopulationRemoveInvalidIndex(t *testing.T) {
	logger, handler := newCountingLogger()
	population := NewPopulation(testStrategy(1), workpool.Inline{}, logger)
	population.AddIndividual(withFitness(chromosomeOf("a"), 2))

	assert.Nil(t, population.RemoveIndividual(-1))
	assert.Nil(t, population.RemoveIndividual(1))
	assert.Equal(t, 2, handler.count(slog.LevelError))
	assert.Equal(t, 1, population.Size())
	assert.Equal(t, 2.0, population.TotalFitness())
}

func TestPopulationSortAscendingUnsetFirst(t *testing.T) {
	population := NewPopulation(testStrategy(1), workpool.Inline{}, nil)
	population.AddIndividual(withFitness(chromosomeOf("a"), 3))
	population.AddIndividual(chromosomeOf("b"))
	population.AddIndividual(withFitness(chromosomeOf("c"), -1))
	population.AddIndividual(withFitness(chromosomeOf("d"), 1))

	population.SortIndividuals()

	var order string
	for _, individual := range population.Individuals() {
		order += individual.String()
	}
	assert.Equal(t, "bcda", order)
}

func TestPopulationEntropy(t *testing.T) {
	population := NewPopulation(testStrategy(1), workpool.Inline{}, nil)
	assert.Zero(t, population.CalculateEntropy())

	for i := 0; i < 4; i++ {
		population.AddIndividual(chromosomeOf("a", "b", "c"))
	}
	assert.Zero(t, population.CalculateEntropy())

	population.ClearIndividuals()
	population.AddIndividual(chromosomeOf("a", "a"))
	population.AddIndividual(chromosomeOf("b", "a"))
	// position 1 splits evenly (1 bit), position 2 is uniform (0 bits)
	assert.Equal(t, 0.5, population.CalculateEntropy())

	population.ClearIndividuals()
	population.AddIndividual(chromosomeOf("a"))
	population.AddIndividual(chromosomeOf("b"))
	population.AddIndividual(chromosomeOf("c"))
	population.AddIndividual(chromosomeOf("d"))
	assert.Equal(t, 2.0, population.CalculateEntropy())
}

func TestPopulationBreedFillsTarget(t *testing.T) {
	strategy := testStrategy(4)
	population := NewPopulation(strategy, workpool.NewPool(4), nil)

	failures, err := population.Breed(context.Background())
	require.NoError(t, err)
	assert.Zero(t, failures)
	assert.Equal(t, strategy.PopulationSize, population.Size())
	assert.Equal(t, strategy.PopulationSize, population.TargetSize())
}

type flakyBreeder struct {
	mu    sync.Mutex
	calls int
	inner Breeder
}

func (b *flakyBreeder) Breed(ctx context.Context) (*genotype.Chromosome, error) {
	b.mu.Lock()
	b.calls++
	fail := b.calls%2 == 0
	b.mu.Unlock()
	if fail {
		return nil, errors.New("breeder hiccup")
	}
	return b.inner.Breed(ctx)
}

type brokenBreeder struct{}

func (brokenBreeder) Breed(context.Context) (*genotype.Chromosome, error) {
	return nil, errors.New("broken")
}

func TestPopulationBreedRetriesFailures(t *testing.T) {
	strategy := testStrategy(4)
	strategy.PopulationSize = 4
	strategy.Breeder = &flakyBreeder{inner: newRandomBreeder(1, 3, "a", "b")}
	population := NewPopulation(strategy, workpool.Inline{}, nil)

	failures, err := population.Breed(context.Background())
	require.NoError(t, err)
	assert.Positive(t, failures)
	assert.Equal(t, 4, population.Size())
}

func TestPopulationBreedNothingIsAnError(t *testing.T) {
	strategy := testStrategy(4)
	strategy.Breeder = brokenBreeder{}
	population := NewPopulation(strategy, workpool.Inline{}, nil)

	_, err := population.Breed(context.Background())
	assert.Error(t, err)
}

func TestPopulationEvaluateFitness(t *testing.T) {
	strategy := testStrategy(1)
	evaluator := &scoreEvaluator{}
	strategy.FitnessEvaluator = evaluator
	population := NewPopulation(strategy, workpool.NewPool(3), nil)

	population.AddIndividual(chromosomeOf("a", "a", "b"))
	population.AddIndividual(chromosomeOf("b", "b", "b"))
	population.AddIndividual(withFitness(chromosomeOf("a", "a", "a"), 10))

	gs := stats.GenerationStatistics{}
	population.EvaluateFitness(context.Background(), &gs)

	assert.Equal(t, int64(2), evaluator.calls.Load())
	assert.Equal(t, 2, gs.NumberOfEvaluations)
	assert.Equal(t, 3, gs.PopulationSize)
	assert.Equal(t, 10.0, gs.BestFitness)
	assert.Equal(t, 0.0, gs.WorstFitness)
	assert.InDelta(t, 4.0, gs.AverageFitness, 1e-9)
	assert.InDelta(t, 12.0, population.TotalFitness(), 1e-9)
	assert.Nil(t, gs.KnownSolutionProximity)
	for _, individual := range population.Individuals() {
		assert.False(t, individual.EvaluationNeeded())
	}
}

func TestPopulationEvaluateFitnessFailuresAreCounted(t *testing.T) {
	logger, handler := newCountingLogger()
	strategy := testStrategy(1)
	strategy.FitnessEvaluator = failingEvaluator{}
	population := NewPopulation(strategy, workpool.Inline{}, logger)
	population.AddIndividual(chromosomeOf("a"))
	population.AddIndividual(chromosomeOf("b"))

	gs := stats.GenerationStatistics{}
	population.EvaluateFitness(context.Background(), &gs)

	assert.Equal(t, 2, gs.TaskFailures)
	assert.Zero(t, gs.NumberOfEvaluations)
	assert.Equal(t, 2, handler.count(slog.LevelError))
	for _, individual := range population.Individuals() {
		assert.True(t, individual.EvaluationNeeded())
	}
}

func TestPopulationKnownSolutionProximity(t *testing.T) {
	strategy := testStrategy(1)
	strategy.KnownSolutionEvaluator = &scoreEvaluator{}
	strategy.CompareToKnownSolution = true
	population := NewPopulation(strategy, workpool.Inline{}, nil)
	population.AddIndividual(chromosomeOf("a", "b"))
	population.AddIndividual(chromosomeOf("a", "a"))

	gs := stats.GenerationStatistics{}
	population.EvaluateFitness(context.Background(), &gs)

	require.NotNil(t, gs.KnownSolutionProximity)
	assert.Equal(t, 2.0, *gs.KnownSolutionProximity)
}
