package cipherga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"cipherga/internal/cipher"
	"cipherga/internal/evo"
	"cipherga/internal/genotype"
	"cipherga/internal/model"
	"cipherga/internal/stats"
	"cipherga/internal/storage"
	"cipherga/internal/workpool"
)

const defaultDBPath = "cipherga.db"

type Options struct {
	StoreKind string
	DBPath    string
	// Workers bounds the task pool; zero uses one worker per CPU.
	Workers int
	Logger  *slog.Logger
}

type Client struct {
	store   storage.Store
	workers int
	logger  *slog.Logger
}

type SolveRequest struct {
	Cipher    *cipher.Cipher
	Algorithm AlgorithmConfig
}

type KeyEntry struct {
	Symbol string
	Letter string
	Match  bool
}

type SolveResult struct {
	RunID                  string
	Outcome                string
	Generations            int
	BestFitness            float64
	Key                    []KeyEntry
	Plaintext              string
	KnownSolutionProximity *float64
	Execution              *stats.ExecutionStatistics
}

type RunsRequest struct {
	Limit int
}

type GenerationsRequest struct {
	RunID  string
	Latest bool
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:   store,
		workers: opts.Workers,
		logger:  logger,
	}, nil
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Solve evolves keys for req.Cipher and records the run. When the run is
// cut short by ctx the partial result is still saved and returned along
// with the context error.
func (c *Client) Solve(ctx context.Context, req SolveRequest) (SolveResult, error) {
	if req.Cipher == nil {
		return SolveResult{}, errors.New("cipher is required")
	}
	if err := req.Algorithm.Validate(); err != nil {
		return SolveResult{}, err
	}

	strategy, err := c.buildStrategy(req)
	if err != nil {
		return SolveResult{}, err
	}

	pool := workpool.NewPool(c.workers)
	ga := evo.NewGeneticAlgorithm(strategy, pool,
		evo.WithLogger(c.logger),
		evo.WithObserver(c.saveGeneration(ctx)),
	)

	execution, runErr := ga.Evolve(ctx)
	pool.Wait()
	if execution == nil {
		c.logger.Error("solve failed", "cipher", req.Cipher.Name, "err", runErr)
		return SolveResult{}, runErr
	}

	outcome := "completed"
	if runErr != nil || (req.Algorithm.MaxGenerations < 0 && ctx.Err() != nil) {
		outcome = "cancelled"
	}
	result := SolveResult{
		RunID:       execution.RunID,
		Outcome:     outcome,
		Generations: len(execution.Generations) - 1,
		Execution:   execution,
	}
	if last := len(execution.Generations) - 1; last >= 0 {
		result.KnownSolutionProximity = execution.Generations[last].KnownSolutionProximity
	}

	if best := fittest(ga.Population().Individuals()); best != nil {
		result.BestFitness = best.FitnessOrZero()
		result.Key = keyEntries(best)
		plaintext, err := req.Cipher.Decrypt(best)
		if err != nil {
			return result, fmt.Errorf("decrypt best key: %w", err)
		}
		result.Plaintext = plaintext
	}

	record := model.RunRecord{
		VersionedRecord:         storage.CurrentVersion(),
		RunID:                   execution.RunID,
		Start:                   execution.Start,
		End:                     execution.End,
		Outcome:                 outcome,
		Strategy:                execution.Strategy,
		Generations:             result.Generations,
		BestFitness:             result.BestFitness,
		AverageGenerationMillis: execution.AverageGenerationMillis(),
		Plaintext:               result.Plaintext,
	}
	for _, entry := range result.Key {
		record.BestSolution += entry.Letter
	}
	// the run record is written even when ctx is done
	if err := c.store.SaveRun(context.WithoutCancel(ctx), record); err != nil {
		return result, fmt.Errorf("save run %s: %w", execution.RunID, err)
	}

	if runErr != nil {
		c.logger.Warn("solve interrupted", "run_id", execution.RunID, "err", runErr)
	}
	return result, runErr
}

func (c *Client) buildStrategy(req SolveRequest) (evo.Strategy, error) {
	cfg := req.Algorithm
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// each collaborator owns its random source
	source := rand.New(rand.NewSource(seed))
	newRng := func() *rand.Rand {
		return rand.New(rand.NewSource(source.Int63()))
	}

	selector, err := evo.NewSelector(cfg.Selector, evo.SelectorOptions{
		Rng:            newRng(),
		TournamentSize: cfg.TournamentSize,
		Logger:         c.logger,
	})
	if err != nil {
		return evo.Strategy{}, err
	}
	breeder, err := cipher.NewKeyBreeder(req.Cipher, newRng())
	if err != nil {
		return evo.Strategy{}, err
	}
	mutator, err := cipher.NewLetterMutator(req.Cipher, newRng())
	if err != nil {
		return evo.Strategy{}, err
	}
	evaluator, err := cipher.NewChiSquaredEvaluator(req.Cipher)
	if err != nil {
		return evo.Strategy{}, err
	}

	strategy := evo.Strategy{
		PopulationSize:            cfg.PopulationSize,
		MaxGenerations:            cfg.MaxGenerations,
		Elitism:                   cfg.Elitism,
		MutationRate:              cfg.MutationRate,
		MaxMutationsPerIndividual: cfg.MaxMutationsPerIndividual,
		Selector:                  selector,
		Crossover:                 evo.NewRandomSinglePointCrossover(newRng()),
		Mutation:                  evo.NewStandardMutation(newRng(), cfg.MutationRate, cfg.MaxMutationsPerIndividual, mutator),
		FitnessEvaluator:          evaluator,
		Breeder:                   breeder,
	}
	if cfg.CompareToKnownSolution {
		known, err := cipher.NewKnownSolutionEvaluator(req.Cipher)
		if err != nil {
			return evo.Strategy{}, err
		}
		strategy.KnownSolutionEvaluator = known
		strategy.CompareToKnownSolution = true
	}
	return strategy, nil
}

func (c *Client) saveGeneration(ctx context.Context) evo.Observer {
	return func(runID string, gs stats.GenerationStatistics) {
		record := model.GenerationRecord{
			VersionedRecord: storage.CurrentVersion(),
			RunID:           runID,
			Statistics:      gs,
		}
		if err := c.store.SaveGeneration(context.WithoutCancel(ctx), record); err != nil {
			c.logger.Warn("save generation", "run_id", runID, "generation", gs.Generation, "err", err)
		}
	}
}

// Runs lists recorded runs, newest first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]model.RunRecord, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.RunRecord, 0, min(len(runs), req.Limit))
	for i := len(runs) - 1; i >= 0 && len(out) < req.Limit; i-- {
		out = append(out, runs[i])
	}
	return out, nil
}

func (c *Client) Generations(ctx context.Context, req GenerationsRequest) ([]stats.GenerationStatistics, error) {
	if req.RunID != "" && req.Latest {
		return nil, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return nil, errors.New("generations requires run id or latest")
	}

	runID := req.RunID
	if req.Latest {
		runs, err := c.store.ListRuns(ctx)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, storage.ErrRunNotFound
		}
		runID = runs[len(runs)-1].RunID
	}

	records, ok, err := c.store.GetGenerations(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrRunNotFound, runID)
	}
	out := make([]stats.GenerationStatistics, 0, len(records))
	for _, record := range records {
		out = append(out, record.Statistics)
	}
	return out, nil
}

func fittest(individuals []*genotype.Chromosome) *genotype.Chromosome {
	var best *genotype.Chromosome
	for _, individual := range individuals {
		if _, ok := individual.Fitness(); !ok {
			continue
		}
		if best == nil || individual.FitnessOrZero() > best.FitnessOrZero() {
			best = individual
		}
	}
	return best
}

func keyEntries(key *genotype.Chromosome) []KeyEntry {
	entries := make([]KeyEntry, 0, key.Len())
	for _, symbol := range key.Keys() {
		gene, _ := key.Gene(symbol)
		if gene == nil {
			continue
		}
		entries = append(entries, KeyEntry{Symbol: symbol, Letter: gene.String(), Match: gene.HasMatch()})
	}
	return entries
}
