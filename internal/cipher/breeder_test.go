package cipher

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyBreederOneGenePerSymbol(t *testing.T) {
	c, err := New("sample", "ABACDB", map[string]string{"A": "t", "B": "h", "C": "e", "D": "n"})
	require.NoError(t, err)
	breeder, err := NewKeyBreeder(c, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		key, err := breeder.Breed(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C", "D"}, key.Keys())
		assert.True(t, key.EvaluationNeeded())
		for _, symbol := range key.Keys() {
			gene, _ := key.Gene(symbol)
			assert.True(t, strings.Contains(Alphabet, gene.String()))
			known, _ := c.KnownLetter(symbol)
			assert.Equal(t, known == gene.String(), gene.HasMatch())
			assert.Same(t, key, gene.Chromosome())
		}
	}
}

func TestKeyBreederHonoursCancellation(t *testing.T) {
	c, err := New("sample", "AB", nil)
	require.NoError(t, err)
	breeder, err := NewKeyBreeder(c, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = breeder.Breed(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewKeyBreederRequiresCollaborators(t *testing.T) {
	_, err := NewKeyBreeder(nil, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
	c, err := New("sample", "AB", nil)
	require.NoError(t, err)
	_, err = NewKeyBreeder(c, nil)
	assert.Error(t, err)
}

func TestLetterMutatorAlwaysChangesLetter(t *testing.T) {
	c, err := New("sample", "AB", map[string]string{"A": "q"})
	require.NoError(t, err)
	mutator, err := NewLetterMutator(c, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	current := NewLetterGene("q")
	for i := 0; i < 200; i++ {
		next, err := mutator.MutateGene("A", current)
		require.NoError(t, err)
		assert.NotEqual(t, "q", next.String())
		assert.False(t, next.HasMatch())
	}

	sawMatch := false
	for i := 0; i < 500 && !sawMatch; i++ {
		next, err := mutator.MutateGene("A", NewLetterGene("a"))
		require.NoError(t, err)
		sawMatch = next.String() == "q" && next.HasMatch()
	}
	assert.True(t, sawMatch)
}

func TestLetterGeneCloneIsDetached(t *testing.T) {
	gene := NewLetterGene("e")
	gene.SetHasMatch(true)
	key := keyOf()
	key.PutGene("X", gene)

	clone := gene.Clone()
	assert.True(t, clone.Equal(gene))
	assert.True(t, clone.HasMatch())
	assert.Nil(t, clone.Chromosome())
	assert.NotSame(t, gene, clone)
}
