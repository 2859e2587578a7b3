package evo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"cipherga/internal/genotype"
	"cipherga/internal/stats"
	"cipherga/internal/workpool"
)

const maxBreedRounds = 3

// Population is the live set of individuals of one run plus the running
// total of their fitness. The container lives for the whole run; only its
// contents are replaced between generations.
type Population struct {
	mu           sync.Mutex
	individuals  []*genotype.Chromosome
	totalFitness float64

	targetSize     int
	selector       Selector
	evaluator      FitnessEvaluator
	knownSolution  FitnessEvaluator
	compareToKnown bool
	breeder        Breeder
	executor       workpool.TaskExecutor
	logger         *slog.Logger
}

func NewPopulation(strategy Strategy, executor workpool.TaskExecutor, logger *slog.Logger) *Population {
	if logger == nil {
		logger = slog.Default()
	}
	if executor == nil {
		executor = workpool.Inline{}
	}
	return &Population{
		targetSize:     strategy.PopulationSize,
		selector:       strategy.Selector,
		evaluator:      strategy.FitnessEvaluator,
		knownSolution:  strategy.KnownSolutionEvaluator,
		compareToKnown: strategy.CompareToKnownSolution,
		breeder:        strategy.Breeder,
		executor:       executor,
		logger:         logger,
	}
}

// AddIndividual appends c and reports whether it still needs evaluation.
// Safe for concurrent use.
func (p *Population) AddIndividual(c *genotype.Chromosome) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.individuals = append(p.individuals, c)
	c.SetPopulation(p)
	p.totalFitness += c.FitnessOrZero()
	return c.EvaluationNeeded()
}

// RemoveIndividual removes the individual at index. An out-of-range index is
// logged and nil is returned with the population unchanged.
func (p *Population) RemoveIndividual(index int) *genotype.Chromosome {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.individuals) {
		p.logger.Error("remove individual",
			"err", fmt.Errorf("%w: %d", ErrInvalidIndex, index),
			"size", len(p.individuals),
		)
		return nil
	}
	removed := p.individuals[index]
	p.totalFitness -= removed.FitnessOrZero()
	p.individuals = append(p.individuals[:index], p.individuals[index+1:]...)
	removed.SetPopulation(nil)
	return removed
}

func (p *Population) ClearIndividuals() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.individuals = nil
	p.totalFitness = 0
}

// SortIndividuals orders individuals by ascending fitness. Unevaluated
// individuals sort first.
func (p *Population) SortIndividuals() {
	p.mu.Lock()
	defer p.mu.Unlock()

	sort.SliceStable(p.individuals, func(i, j int) bool {
		fi, oki := p.individuals[i].Fitness()
		fj, okj := p.individuals[j].Fitness()
		if oki != okj {
			return !oki
		}
		return fi < fj
	})
}

// Individuals returns a snapshot of the current individuals.
func (p *Population) Individuals() []*genotype.Chromosome {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*genotype.Chromosome, len(p.individuals))
	copy(out, p.individuals)
	return out
}

func (p *Population) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.individuals)
}

func (p *Population) TotalFitness() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalFitness
}

func (p *Population) TargetSize() int {
	return p.targetSize
}

func (p *Population) ReIndexSelector() {
	p.selector.ReIndex(p.Individuals())
}

// SelectIndex draws one index from individuals, which must be the snapshot
// the selector was reindexed against.
func (p *Population) SelectIndex(individuals []*genotype.Chromosome) int {
	return p.selector.NextIndex(individuals)
}

// Breed asks the breeder for new individuals until the population reaches
// its target size. Individual breeder failures are logged and skipped; an
// error is returned only when nothing could be bred.
func (p *Population) Breed(ctx context.Context) (int, error) {
	failures := 0
	for round := 0; round < maxBreedRounds; round++ {
		missing := p.targetSize - p.Size()
		if missing <= 0 {
			break
		}
		results := workpool.Run(ctx, p.executor, missing, func(ctx context.Context, _ int) (*genotype.Chromosome, error) {
			return p.breeder.Breed(ctx)
		})
		for i, result := range results {
			if result.Err == nil && result.Value == nil {
				result.Err = errors.New("breeder returned no individual")
			}
			if result.Err != nil {
				failures++
				p.logger.Error("breed individual", "err", &TaskFailure{Phase: "breed", Task: i, Err: result.Err})
				continue
			}
			p.AddIndividual(result.Value)
		}
	}

	if p.Size() == 0 {
		return failures, fmt.Errorf("breed population: no individuals produced")
	}
	if size := p.Size(); size < p.targetSize {
		p.logger.Warn("population below target size", "size", size, "target", p.targetSize)
	}
	return failures, nil
}

// CalculateEntropy averages, over every gene position, the Shannon entropy in
// bits of the gene values found at that position across the population.
// Positions are the keys of the first individual in insertion order.
func (p *Population) CalculateEntropy() float64 {
	individuals := p.Individuals()
	if len(individuals) == 0 {
		return 0
	}
	keys := individuals[0].Keys()
	if len(keys) == 0 {
		return 0
	}

	perPosition := make([]float64, len(keys))
	for i, key := range keys {
		counts := make(map[string]int)
		order := make([]string, 0)
		for _, individual := range individuals {
			value := ""
			if gene, ok := individual.Gene(key); ok && gene != nil {
				value = gene.String()
			}
			if _, seen := counts[value]; !seen {
				order = append(order, value)
			}
			counts[value]++
		}
		probs := make([]float64, len(order))
		for j, value := range order {
			probs[j] = float64(counts[value]) / float64(len(individuals))
		}
		perPosition[i] = stat.Entropy(probs) / math.Ln2
	}

	mean := floats.SumCompensated(perPosition) / float64(len(keys))
	return math.Round(mean*1e10) / 1e10
}

// EvaluateFitness scores every individual that needs evaluation and folds the
// fitness spread of the whole population into gs. Evaluator failures leave
// the individual flagged and are counted in gs.TaskFailures.
func (p *Population) EvaluateFitness(ctx context.Context, gs *stats.GenerationStatistics) {
	var pending []*genotype.Chromosome
	for _, individual := range p.Individuals() {
		if individual.EvaluationNeeded() {
			pending = append(pending, individual)
		}
	}

	results := workpool.Run(ctx, p.executor, len(pending), func(ctx context.Context, i int) (float64, error) {
		return p.evaluator.Evaluate(ctx, pending[i])
	})
	evaluated := 0
	for i, result := range results {
		if result.Err != nil {
			gs.TaskFailures++
			p.logger.Error("evaluate fitness", "err", &TaskFailure{Phase: "evaluation", Task: i, Err: result.Err})
			continue
		}
		p.applyFitness(pending[i], result.Value)
		evaluated++
	}
	gs.NumberOfEvaluations += evaluated

	p.foldFitness(ctx, gs)
}

func (p *Population) applyFitness(c *genotype.Chromosome, fitness float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.totalFitness += fitness - c.FitnessOrZero()
	c.SetFitness(fitness)
}

func (p *Population) foldFitness(ctx context.Context, gs *stats.GenerationStatistics) {
	individuals := p.Individuals()
	gs.PopulationSize = len(individuals)
	if len(individuals) == 0 {
		return
	}

	best := individuals[0]
	worst := individuals[0]
	for _, individual := range individuals[1:] {
		if individual.FitnessOrZero() > best.FitnessOrZero() {
			best = individual
		}
		if individual.FitnessOrZero() < worst.FitnessOrZero() {
			worst = individual
		}
	}
	gs.BestFitness = best.FitnessOrZero()
	gs.WorstFitness = worst.FitnessOrZero()
	gs.AverageFitness = p.TotalFitness() / float64(len(individuals))

	if !p.compareToKnown || p.knownSolution == nil {
		return
	}
	proximity, err := p.knownSolution.Evaluate(ctx, best)
	if err != nil {
		gs.TaskFailures++
		p.logger.Error("evaluate known solution", "err", err)
		return
	}
	gs.KnownSolutionProximity = &proximity
}
