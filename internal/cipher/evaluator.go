package cipher

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"

	"cipherga/internal/genotype"
)

// englishFrequencies are unigram probabilities of a-z in English text.
var englishFrequencies = [26]float64{
	0.08167, 0.01492, 0.02782, 0.04253, 0.12702, 0.02228, 0.02015,
	0.06094, 0.06966, 0.00153, 0.00772, 0.04025, 0.02406, 0.06749,
	0.07507, 0.01929, 0.00095, 0.05987, 0.06327, 0.09056, 0.02758,
	0.00978, 0.02360, 0.00150, 0.01974, 0.00074,
}

// ChiSquaredEvaluator scores a key by how closely the letter counts of its
// decryption follow English. The score is the negated chi-squared statistic,
// so higher is better and a perfect match scores 0.
type ChiSquaredEvaluator struct {
	cipher   *Cipher
	expected [26]float64
}

func NewChiSquaredEvaluator(c *Cipher) (*ChiSquaredEvaluator, error) {
	if c == nil {
		return nil, errors.New("cipher is required")
	}
	e := &ChiSquaredEvaluator{cipher: c}
	for i, p := range englishFrequencies {
		e.expected[i] = math.Round(p * float64(c.Length()))
	}
	return e, nil
}

func (e *ChiSquaredEvaluator) Evaluate(_ context.Context, key *genotype.Chromosome) (float64, error) {
	plaintext, err := e.cipher.Decrypt(key)
	if err != nil {
		return 0, err
	}
	return -e.chiSquared(plaintext), nil
}

func (e *ChiSquaredEvaluator) chiSquared(plaintext string) float64 {
	var actual [26]float64
	for i := 0; i < len(plaintext); i++ {
		if c := plaintext[i]; c >= 'a' && c <= 'z' {
			actual[c-'a']++
		}
	}
	perLetter := make([]float64, len(actual))
	for i := range actual {
		diff := actual[i] - e.expected[i]
		perLetter[i] = diff * diff / math.Max(1, e.expected[i])
	}
	return floats.Sum(perLetter)
}

// KnownSolutionEvaluator scores a key by the fraction of symbols it maps to
// the same letter as the cipher's known solution. It marks HasMatch on every
// gene it inspects.
type KnownSolutionEvaluator struct {
	cipher *Cipher
}

func NewKnownSolutionEvaluator(c *Cipher) (*KnownSolutionEvaluator, error) {
	if c == nil {
		return nil, errors.New("cipher is required")
	}
	if !c.HasKnownSolution() {
		return nil, ErrNoKnownSolution
	}
	return &KnownSolutionEvaluator{cipher: c}, nil
}

func (e *KnownSolutionEvaluator) Evaluate(_ context.Context, key *genotype.Chromosome) (float64, error) {
	keys := key.Keys()
	if len(keys) == 0 {
		return 0, nil
	}
	matches := 0
	for _, symbol := range keys {
		gene, _ := key.Gene(symbol)
		if gene == nil {
			continue
		}
		known, ok := e.cipher.KnownLetter(symbol)
		match := ok && known == gene.String()
		gene.SetHasMatch(match)
		if match {
			matches++
		}
	}
	return float64(matches) / float64(len(keys)), nil
}
