package evo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cipherga/internal/genotype"
	"cipherga/internal/metrics"
	"cipherga/internal/stats"
	"cipherga/internal/workpool"
)

type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateRunning
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Observer is called after each generation is recorded, including the
// initial spawn.
type Observer func(runID string, gs stats.GenerationStatistics)

type Option func(*GeneticAlgorithm)

func WithLogger(logger *slog.Logger) Option {
	return func(ga *GeneticAlgorithm) {
		if logger != nil {
			ga.logger = logger
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(ga *GeneticAlgorithm) {
		ga.observer = observer
	}
}

// GeneticAlgorithm drives generations of a Population. Every phase of a
// generation is a fork-join over the executor; no task of one phase runs
// concurrently with a task of the next.
type GeneticAlgorithm struct {
	strategy   Strategy
	executor   workpool.TaskExecutor
	population *Population
	logger     *slog.Logger
	observer   Observer

	mu              sync.Mutex
	state           State
	generationCount int
	execution       *stats.ExecutionStatistics
}

func NewGeneticAlgorithm(strategy Strategy, executor workpool.TaskExecutor, opts ...Option) *GeneticAlgorithm {
	ga := &GeneticAlgorithm{
		strategy: strategy,
		executor: executor,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(ga)
	}
	if ga.executor == nil {
		ga.executor = workpool.Inline{}
	}
	ga.population = NewPopulation(strategy, ga.executor, ga.logger)
	return ga
}

func (ga *GeneticAlgorithm) Population() *Population {
	return ga.population
}

func (ga *GeneticAlgorithm) State() State {
	ga.mu.Lock()
	defer ga.mu.Unlock()
	return ga.state
}

func (ga *GeneticAlgorithm) GenerationCount() int {
	ga.mu.Lock()
	defer ga.mu.Unlock()
	return ga.generationCount
}

func (ga *GeneticAlgorithm) setState(state State) {
	ga.mu.Lock()
	ga.state = state
	ga.mu.Unlock()
}

// Initialize validates the strategy, starts a new run record and spawns
// generation 0.
func (ga *GeneticAlgorithm) Initialize(ctx context.Context) error {
	if err := ga.strategy.Validate(); err != nil {
		return err
	}

	ga.mu.Lock()
	ga.generationCount = 0
	ga.execution = stats.NewExecutionStatistics(time.Now(), ga.strategy.Summary())
	ga.mu.Unlock()

	if err := ga.SpawnInitialPopulation(ctx); err != nil {
		ga.reset()
		return err
	}
	ga.setState(StateInitialized)
	return nil
}

func (ga *GeneticAlgorithm) SpawnInitialPopulation(ctx context.Context) error {
	gs := stats.GenerationStatistics{Generation: 0}
	start := time.Now()

	ga.population.ClearIndividuals()
	failures, err := ga.population.Breed(ctx)
	metrics.RecordTaskFailures(metrics.PhaseBreed, failures)
	gs.TaskFailures += failures
	if err != nil {
		return err
	}

	ga.entropyPhase(&gs)
	ga.evaluationPhase(ctx, &gs)

	gs.Performance.Total = time.Since(start)
	ga.logger.Info("spawned initial population",
		"size", ga.population.Size(),
		"took", gs.Performance.Total,
	)
	ga.record(gs)
	return nil
}

// Evolve runs a complete execution: initialize, generations until the limit
// is reached, then Finish. A negative MaxGenerations runs until ctx is
// cancelled, which then counts as a normal stop.
func (ga *GeneticAlgorithm) Evolve(ctx context.Context) (*stats.ExecutionStatistics, error) {
	if err := ga.Initialize(ctx); err != nil {
		metrics.RecordRun("failed")
		return nil, err
	}
	ga.setState(StateRunning)

	for ga.strategy.MaxGenerations < 0 || ga.GenerationCount() < ga.strategy.MaxGenerations {
		if err := ctx.Err(); err != nil {
			metrics.RecordRun("cancelled")
			if ga.strategy.MaxGenerations < 0 {
				return ga.Finish(), nil
			}
			return ga.Finish(), err
		}
		if err := ga.ProceedWithNextGeneration(ctx); err != nil {
			ga.reset()
			metrics.RecordRun("failed")
			return nil, err
		}
	}

	metrics.RecordRun("completed")
	return ga.Finish(), nil
}

// ProceedWithNextGeneration runs one generation. Only a *StructuralError is
// returned; every other task failure is logged, counted and skipped.
func (ga *GeneticAlgorithm) ProceedWithNextGeneration(ctx context.Context) error {
	ga.mu.Lock()
	if ga.execution == nil {
		ga.mu.Unlock()
		return ErrNotInitialized
	}
	generation := ga.generationCount + 1
	ga.mu.Unlock()

	gs := stats.GenerationStatistics{Generation: generation}
	start := time.Now()

	parentsBefore := ga.population.Individuals()
	var children []*genotype.Chromosome
	reproduce := len(parentsBefore) >= 2
	if !reproduce {
		ga.logger.Info("skipping reproduction, population too small", "size", len(parentsBefore))
	} else {
		phaseStart := time.Now()
		pairs := ga.selectionPhase(ctx, parentsBefore, &gs)
		gs.Performance.Selection = time.Since(phaseStart)
		metrics.RecordPhase(metrics.PhaseSelection, gs.Performance.Selection)

		phaseStart = time.Now()
		var err error
		children, err = ga.crossoverPhase(ctx, pairs, &gs)
		gs.Performance.Crossover = time.Since(phaseStart)
		metrics.RecordPhase(metrics.PhaseCrossover, gs.Performance.Crossover)
		if err != nil {
			return err
		}
	}

	elites := ga.elites()
	if reproduce {
		ga.replace(elites, children)
	}

	phaseStart := time.Now()
	gs.NumberOfMutations = ga.mutationPhase(ctx, elites, &gs)
	gs.Performance.Mutation = time.Since(phaseStart)
	metrics.RecordPhase(metrics.PhaseMutation, gs.Performance.Mutation)

	ga.entropyPhase(&gs)
	ga.evaluationPhase(ctx, &gs)

	gs.Performance.Total = time.Since(start)
	ga.record(gs)
	return nil
}

type parents struct {
	mom *genotype.Chromosome
	dad *genotype.Chromosome
}

func (ga *GeneticAlgorithm) selectionPhase(ctx context.Context, individuals []*genotype.Chromosome, gs *stats.GenerationStatistics) []parents {
	ga.population.ReIndexSelector()

	pairCount := len(individuals) - ga.strategy.Elitism
	results := workpool.Run(ctx, ga.executor, pairCount, func(_ context.Context, _ int) (parents, error) {
		mom := ga.population.SelectIndex(individuals)
		dad := ga.population.SelectIndex(individuals)
		if dad == mom {
			if mom == 0 {
				dad++
			} else {
				dad--
			}
		}
		if mom < 0 || mom >= len(individuals) || dad < 0 || dad >= len(individuals) {
			return parents{}, fmt.Errorf("%w: mom=%d dad=%d size=%d", ErrInvalidIndex, mom, dad, len(individuals))
		}
		return parents{mom: individuals[mom], dad: individuals[dad]}, nil
	})

	pairs := make([]parents, 0, len(results))
	failures := 0
	for i, result := range results {
		if result.Err != nil {
			failures++
			ga.logger.Error("select parents", "err", &TaskFailure{Phase: metrics.PhaseSelection, Task: i, Err: result.Err})
			continue
		}
		pairs = append(pairs, result.Value)
	}
	gs.TaskFailures += failures
	metrics.RecordTaskFailures(metrics.PhaseSelection, failures)
	return pairs
}

// crossoverPhase collects every child before any of them is inserted so no
// child can be picked as a parent in the generation it was born in.
func (ga *GeneticAlgorithm) crossoverPhase(ctx context.Context, pairs []parents, gs *stats.GenerationStatistics) ([]*genotype.Chromosome, error) {
	results := workpool.Run(ctx, ga.executor, len(pairs), func(_ context.Context, i int) ([]*genotype.Chromosome, error) {
		return ga.strategy.Crossover.Crossover(pairs[i].mom, pairs[i].dad)
	})

	var children []*genotype.Chromosome
	failures := 0
	for i, result := range results {
		if result.Err != nil {
			var structural *StructuralError
			if errors.As(result.Err, &structural) {
				return nil, fmt.Errorf("generation %d crossover: %w", gs.Generation, result.Err)
			}
			failures++
			ga.logger.Error("crossover", "err", &TaskFailure{Phase: metrics.PhaseCrossover, Task: i, Err: result.Err})
			continue
		}
		children = append(children, result.Value...)
	}
	gs.TaskFailures += failures
	metrics.RecordTaskFailures(metrics.PhaseCrossover, failures)
	gs.NumberOfCrossovers = len(children)

	if expected := len(pairs); len(children) < expected {
		ga.logger.Debug("crossover produced fewer children than pairs", "children", len(children), "pairs", expected)
	}
	return children, nil
}

// elites returns the top Elitism individuals of the current population.
func (ga *GeneticAlgorithm) elites() []*genotype.Chromosome {
	if ga.strategy.Elitism <= 0 {
		return nil
	}
	ga.population.SortIndividuals()
	sorted := ga.population.Individuals()
	n := ga.strategy.Elitism
	if n > len(sorted) {
		n = len(sorted)
	}
	elites := make([]*genotype.Chromosome, 0, n)
	for i := len(sorted) - 1; i >= len(sorted)-n; i-- {
		elites = append(elites, sorted[i])
	}
	return elites
}

func (ga *GeneticAlgorithm) replace(elites, children []*genotype.Chromosome) {
	ga.population.ClearIndividuals()
	for _, elite := range elites {
		ga.population.AddIndividual(elite)
	}
	for _, child := range children {
		ga.population.AddIndividual(child)
	}
}

// mutationPhase mutates every individual that is not an elite and returns
// how many of them changed.
func (ga *GeneticAlgorithm) mutationPhase(ctx context.Context, elites []*genotype.Chromosome, gs *stats.GenerationStatistics) int {
	exempt := make(map[*genotype.Chromosome]struct{}, len(elites))
	for _, elite := range elites {
		exempt[elite] = struct{}{}
	}
	var targets []*genotype.Chromosome
	for _, individual := range ga.population.Individuals() {
		if _, ok := exempt[individual]; !ok {
			targets = append(targets, individual)
		}
	}

	results := workpool.Run(ctx, ga.executor, len(targets), func(_ context.Context, i int) (bool, error) {
		return ga.strategy.Mutation.Mutate(targets[i])
	})

	mutations := 0
	failures := 0
	for i, result := range results {
		if result.Err != nil {
			failures++
			ga.logger.Error("mutate", "err", &TaskFailure{Phase: metrics.PhaseMutation, Task: i, Err: result.Err})
			continue
		}
		if result.Value {
			mutations++
		}
	}
	gs.TaskFailures += failures
	metrics.RecordTaskFailures(metrics.PhaseMutation, failures)
	return mutations
}

func (ga *GeneticAlgorithm) entropyPhase(gs *stats.GenerationStatistics) {
	start := time.Now()
	gs.Entropy = ga.population.CalculateEntropy()
	gs.Performance.Entropy = time.Since(start)
	metrics.RecordPhase(metrics.PhaseEntropy, gs.Performance.Entropy)
}

func (ga *GeneticAlgorithm) evaluationPhase(ctx context.Context, gs *stats.GenerationStatistics) {
	start := time.Now()
	before := gs.TaskFailures
	ga.population.EvaluateFitness(ctx, gs)
	gs.Performance.Evaluation = time.Since(start)
	metrics.RecordPhase(metrics.PhaseEvaluation, gs.Performance.Evaluation)
	metrics.RecordTaskFailures(metrics.PhaseEvaluation, gs.TaskFailures-before)
}

func (ga *GeneticAlgorithm) record(gs stats.GenerationStatistics) {
	ga.mu.Lock()
	execution := ga.execution
	if execution != nil {
		execution.AddGenerationStatistics(gs)
	}
	ga.generationCount = gs.Generation
	ga.mu.Unlock()

	ga.logger.Info(gs.String())
	metrics.RecordGeneration(gs.BestFitness, gs.Entropy, gs.PopulationSize)
	if ga.observer != nil && execution != nil {
		ga.observer(execution.RunID, gs)
	}
}

// Finish closes the current run and returns its statistics. The engine is
// left ready to run again.
func (ga *GeneticAlgorithm) Finish() *stats.ExecutionStatistics {
	ga.mu.Lock()
	execution := ga.execution
	ga.execution = nil
	ga.state = StateFinished
	ga.mu.Unlock()

	if execution == nil {
		return nil
	}
	execution.End = time.Now()
	ga.logger.Info("run finished",
		"run_id", execution.RunID,
		"generations", len(execution.Generations),
		"average_generation_ms", execution.AverageGenerationMillis(),
	)
	return execution
}

func (ga *GeneticAlgorithm) reset() {
	ga.mu.Lock()
	defer ga.mu.Unlock()
	ga.execution = nil
	ga.state = StateUninitialized
}
