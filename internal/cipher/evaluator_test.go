package cipher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChiSquaredPrefersEnglishLetters(t *testing.T) {
	c, err := New("pairs", strings.Repeat("x y ", 10), nil)
	require.NoError(t, err)
	evaluator, err := NewChiSquaredEvaluator(c)
	require.NoError(t, err)

	common, err := evaluator.Evaluate(context.Background(), keyOf("x", "e", "y", "t"))
	require.NoError(t, err)
	rare, err := evaluator.Evaluate(context.Background(), keyOf("x", "z", "y", "q"))
	require.NoError(t, err)

	assert.Greater(t, common, rare)
	assert.LessOrEqual(t, common, 0.0)
}

func TestChiSquaredMissingGeneFails(t *testing.T) {
	c, err := New("pairs", "x y", nil)
	require.NoError(t, err)
	evaluator, err := NewChiSquaredEvaluator(c)
	require.NoError(t, err)

	_, err = evaluator.Evaluate(context.Background(), keyOf("x", "e"))
	assert.Error(t, err)
}

func TestKnownSolutionEvaluator(t *testing.T) {
	c, err := New("known", "abcab", map[string]string{"a": "t", "b": "h", "c": "e"})
	require.NoError(t, err)
	evaluator, err := NewKnownSolutionEvaluator(c)
	require.NoError(t, err)

	key := keyOf("a", "t", "b", "x", "c", "e")
	score, err := evaluator.Evaluate(context.Background(), key)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, score, 1e-12)

	for symbol, want := range map[string]bool{"a": true, "b": false, "c": true} {
		gene, _ := key.Gene(symbol)
		assert.Equal(t, want, gene.HasMatch(), symbol)
	}
}

func TestKnownSolutionEvaluatorRequiresKey(t *testing.T) {
	c, err := New("unknown", "abc", nil)
	require.NoError(t, err)
	_, err = NewKnownSolutionEvaluator(c)
	assert.ErrorIs(t, err, ErrNoKnownSolution)
}
