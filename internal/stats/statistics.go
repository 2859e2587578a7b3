package stats

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PerformanceStatistics struct {
	Selection  time.Duration `json:"selection"`
	Crossover  time.Duration `json:"crossover"`
	Mutation   time.Duration `json:"mutation"`
	Entropy    time.Duration `json:"entropy"`
	Evaluation time.Duration `json:"evaluation"`
	Total      time.Duration `json:"total"`
}

// GenerationStatistics is recorded once per generation. Generation 0 is the
// initial spawn of the population.
type GenerationStatistics struct {
	Generation             int                   `json:"generation"`
	PopulationSize         int                   `json:"population_size"`
	Entropy                float64               `json:"entropy"`
	NumberOfCrossovers     int                   `json:"number_of_crossovers"`
	NumberOfMutations      int                   `json:"number_of_mutations"`
	NumberOfEvaluations    int                   `json:"number_of_evaluations"`
	TaskFailures           int                   `json:"task_failures"`
	BestFitness            float64               `json:"best_fitness"`
	AverageFitness         float64               `json:"average_fitness"`
	WorstFitness           float64               `json:"worst_fitness"`
	KnownSolutionProximity *float64              `json:"known_solution_proximity,omitempty"`
	Performance            PerformanceStatistics `json:"performance"`
}

func (g GenerationStatistics) String() string {
	s := fmt.Sprintf("generation=%d size=%d best=%.4f avg=%.4f worst=%.4f entropy=%.6f crossovers=%d mutations=%d evaluations=%d failures=%d total=%s",
		g.Generation, g.PopulationSize, g.BestFitness, g.AverageFitness, g.WorstFitness, g.Entropy,
		g.NumberOfCrossovers, g.NumberOfMutations, g.NumberOfEvaluations, g.TaskFailures, g.Performance.Total)
	if g.KnownSolutionProximity != nil {
		s += fmt.Sprintf(" known=%.2f%%", *g.KnownSolutionProximity*100)
	}
	return s
}

type StrategySummary struct {
	PopulationSize            int     `json:"population_size"`
	MaxGenerations            int     `json:"max_generations"`
	Elitism                   int     `json:"elitism"`
	MutationRate              float64 `json:"mutation_rate"`
	MaxMutationsPerIndividual int     `json:"max_mutations_per_individual"`
	Selector                  string  `json:"selector"`
	Crossover                 string  `json:"crossover"`
	Mutation                  string  `json:"mutation"`
}

// ExecutionStatistics aggregates every generation of one run.
type ExecutionStatistics struct {
	RunID       string                 `json:"run_id"`
	Start       time.Time              `json:"start"`
	End         time.Time              `json:"end"`
	Strategy    StrategySummary        `json:"strategy"`
	Generations []GenerationStatistics `json:"generations"`
}

func NewExecutionStatistics(start time.Time, strategy StrategySummary) *ExecutionStatistics {
	return &ExecutionStatistics{
		RunID:    uuid.NewString(),
		Start:    start,
		Strategy: strategy,
	}
}

func (e *ExecutionStatistics) AddGenerationStatistics(g GenerationStatistics) {
	e.Generations = append(e.Generations, g)
}

// AverageGenerationMillis averages the total time of every generation except
// the initial spawn, rounding up to the next millisecond.
func (e *ExecutionStatistics) AverageGenerationMillis() int64 {
	var total time.Duration
	count := int64(0)
	for _, g := range e.Generations {
		if g.Generation == 0 {
			continue
		}
		total += g.Performance.Total
		count++
	}
	if count == 0 {
		return 0
	}
	millis := total.Milliseconds()
	return (millis + count - 1) / count
}

// Best returns the generation with the highest best fitness.
func (e *ExecutionStatistics) Best() (GenerationStatistics, bool) {
	if len(e.Generations) == 0 {
		return GenerationStatistics{}, false
	}
	best := e.Generations[0]
	for _, g := range e.Generations[1:] {
		if g.BestFitness > best.BestFitness {
			best = g
		}
	}
	return best, true
}

func (e *ExecutionStatistics) Duration() time.Duration {
	if e.End.IsZero() {
		return 0
	}
	return e.End.Sub(e.Start)
}
