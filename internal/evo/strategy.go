package evo

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"cipherga/internal/genotype"
	"cipherga/internal/stats"
)

// FitnessEvaluator scores a chromosome. Higher is better.
type FitnessEvaluator interface {
	Evaluate(ctx context.Context, c *genotype.Chromosome) (float64, error)
}

// Breeder produces a fresh random individual for the initial population.
type Breeder interface {
	Breed(ctx context.Context) (*genotype.Chromosome, error)
}

// Strategy is the complete set of parameters and collaborators for a run.
// A negative MaxGenerations runs until the context is cancelled.
type Strategy struct {
	PopulationSize            int     `validate:"gt=0"`
	MaxGenerations            int     `validate:"ne=0"`
	Elitism                   int     `validate:"gte=0,ltefield=PopulationSize"`
	MutationRate              float64 `validate:"gte=0,lte=1"`
	MaxMutationsPerIndividual int     `validate:"gte=0"`

	Selector         Selector           `validate:"required"`
	Crossover        CrossoverAlgorithm `validate:"required"`
	Mutation         MutationAlgorithm  `validate:"required"`
	FitnessEvaluator FitnessEvaluator   `validate:"required"`
	Breeder          Breeder            `validate:"required"`

	KnownSolutionEvaluator FitnessEvaluator
	CompareToKnownSolution bool
}

var strategyValidate = validator.New()

// Validate reports every problem at once as a *ConfigurationError.
func (s Strategy) Validate() error {
	var problems []string
	if err := strategyValidate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return &ConfigurationError{Problems: []string{err.Error()}}
		}
		for _, fe := range fieldErrs {
			problems = append(problems, describeFieldError(fe))
		}
	}
	if s.CompareToKnownSolution && s.KnownSolutionEvaluator == nil {
		problems = append(problems, "KnownSolutionEvaluator is required when CompareToKnownSolution is set")
	}
	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be > %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", fe.Field(), fe.Param())
	case "ne":
		return fmt.Sprintf("%s must not be %s", fe.Field(), fe.Param())
	case "ltefield":
		return fmt.Sprintf("%s must not exceed %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// Summary captures the scalar settings for run records.
func (s Strategy) Summary() stats.StrategySummary {
	summary := stats.StrategySummary{
		PopulationSize:            s.PopulationSize,
		MaxGenerations:            s.MaxGenerations,
		Elitism:                   s.Elitism,
		MutationRate:              s.MutationRate,
		MaxMutationsPerIndividual: s.MaxMutationsPerIndividual,
	}
	if s.Selector != nil {
		summary.Selector = s.Selector.Name()
	}
	if s.Crossover != nil {
		summary.Crossover = s.Crossover.Name()
	}
	if s.Mutation != nil {
		summary.Mutation = s.Mutation.Name()
	}
	return summary
}
