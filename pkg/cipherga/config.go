package cipherga

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// AlgorithmConfig holds the tunable parameters of one solve.
type AlgorithmConfig struct {
	PopulationSize            int     `yaml:"populationSize" validate:"gt=0"`
	MaxGenerations            int     `yaml:"maxGenerations" validate:"ne=0"`
	Elitism                   int     `yaml:"elitism" validate:"gte=0,ltefield=PopulationSize"`
	MutationRate              float64 `yaml:"mutationRate" validate:"gte=0,lte=1"`
	MaxMutationsPerIndividual int     `yaml:"maxMutationsPerIndividual" validate:"gte=0"`
	Selector                  string  `yaml:"selector" validate:"required"`
	TournamentSize            int     `yaml:"tournamentSize" validate:"gte=0"`
	CompareToKnownSolution    bool    `yaml:"compareToKnownSolution"`
	Seed                      int64   `yaml:"seed"`
}

func DefaultAlgorithmConfig() AlgorithmConfig {
	return AlgorithmConfig{
		PopulationSize:            500,
		MaxGenerations:            100,
		Elitism:                   10,
		MutationRate:              0.1,
		MaxMutationsPerIndividual: 3,
		Selector:                  "roulette",
		TournamentSize:            3,
	}
}

var configValidate = validator.New()

func (c AlgorithmConfig) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid algorithm config: %w", err)
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			problems = append(problems, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		problems = append(problems, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid algorithm config: %s", strings.Join(problems, "; "))
}
