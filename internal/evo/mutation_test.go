package evo

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cipherga/internal/genotype"
)

type failingMutator struct{}

func (failingMutator) MutateGene(string, genotype.Gene) (genotype.Gene, error) {
	return nil, errors.New("no replacement")
}

type identityMutator struct{}

func (identityMutator) MutateGene(_ string, current genotype.Gene) (genotype.Gene, error) {
	return current.Clone(), nil
}

func TestStandardMutationAlwaysFires(t *testing.T) {
	mutation := NewStandardMutation(rand.New(rand.NewSource(1)), 1, 3, letterSwapMutator{alphabet: []string{"a", "b"}})
	c := withFitness(chromosomeOf("a", "a", "a", "a"), 4)
	require.False(t, c.EvaluationNeeded())

	changed, err := mutation.Mutate(c)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, c.EvaluationNeeded())
	assert.NotEqual(t, "aaaa", c.String())
	assert.Equal(t, []string{"k1", "k2", "k3", "k4"}, c.Keys())
}

func TestStandardMutationNeverFires(t *testing.T) {
	mutation := NewStandardMutation(rand.New(rand.NewSource(1)), 0, 3, letterSwapMutator{alphabet: []string{"a", "b"}})
	c := withFitness(chromosomeOf("a", "a"), 2)

	changed, err := mutation.Mutate(c)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, c.EvaluationNeeded())
	assert.Equal(t, "aa", c.String())
}

func TestStandardMutationRespectsMaximum(t *testing.T) {
	mutation := NewStandardMutation(rand.New(rand.NewSource(9)), 1, 1, letterSwapMutator{alphabet: []string{"a", "b"}})
	for i := 0; i < 20; i++ {
		c := chromosomeOf("a", "a", "a", "a", "a", "a")
		_, err := mutation.Mutate(c)
		require.NoError(t, err)

		differing := 0
		for _, gene := range c.Genes() {
			if gene.String() != "a" {
				differing++
			}
		}
		assert.Equal(t, 1, differing)
	}
}

func TestStandardMutationUnchangedGeneIsNotAMutation(t *testing.T) {
	mutation := NewStandardMutation(rand.New(rand.NewSource(1)), 1, 2, identityMutator{})
	c := withFitness(chromosomeOf("a", "b"), 1)

	changed, err := mutation.Mutate(c)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, c.EvaluationNeeded())
}

func TestStandardMutationErrors(t *testing.T) {
	mutation := NewStandardMutation(rand.New(rand.NewSource(1)), 1, 2, failingMutator{})
	_, err := mutation.Mutate(chromosomeOf("a"))
	assert.Error(t, err)

	mutation = NewStandardMutation(rand.New(rand.NewSource(1)), 1, 2, nil)
	_, err = mutation.Mutate(chromosomeOf("a"))
	assert.Error(t, err)
}
