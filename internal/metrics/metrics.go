package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cipherga"

const (
	PhaseBreed      = "breed"
	PhaseSelection  = "selection"
	PhaseCrossover  = "crossover"
	PhaseMutation   = "mutation"
	PhaseEntropy    = "entropy"
	PhaseEvaluation = "evaluation"
)

var (
	generationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generations_total",
		Help:      "Generations completed across all runs, including the initial spawn.",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Runs finished by outcome.",
	}, []string{"outcome"})

	// Labels: phase
	phaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "phase_duration_seconds",
		Help:      "Wall time of one generation phase.",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"phase"})

	// Labels: phase
	taskFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "task_failures_total",
		Help:      "Units of work that failed and were excluded from their phase.",
	}, []string{"phase"})

	bestFitness = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "best_fitness",
		Help:      "Best fitness of the most recent generation.",
	})

	entropy = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "population_entropy",
		Help:      "Average per-position gene entropy of the most recent generation.",
	})

	populationSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "population_size",
		Help:      "Individuals alive after the most recent generation.",
	})
)

func RecordPhase(phase string, d time.Duration) {
	phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func RecordTaskFailures(phase string, n int) {
	if n <= 0 {
		return
	}
	taskFailures.WithLabelValues(phase).Add(float64(n))
}

// RecordGeneration publishes the gauges for a finished generation.
func RecordGeneration(best, diversity float64, size int) {
	generationsTotal.Inc()
	bestFitness.Set(best)
	entropy.Set(diversity)
	populationSize.Set(float64(size))
}

// RecordRun counts a finished run. outcome is "completed", "cancelled" or
// "failed".
func RecordRun(outcome string) {
	runsTotal.WithLabelValues(outcome).Inc()
}
