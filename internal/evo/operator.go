package evo

import "cipherga/internal/genotype"

// CrossoverAlgorithm recombines two parents. It may return zero children.
type CrossoverAlgorithm interface {
	Name() string
	Crossover(a, b *genotype.Chromosome) ([]*genotype.Chromosome, error)
}

// MutationAlgorithm mutates an individual in place and reports whether
// anything changed.
type MutationAlgorithm interface {
	Name() string
	Mutate(c *genotype.Chromosome) (bool, error)
}

// GeneMutator produces a replacement for one gene. It is supplied by the
// problem domain.
type GeneMutator interface {
	MutateGene(key string, current genotype.Gene) (genotype.Gene, error)
}
