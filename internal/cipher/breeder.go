package cipher

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"cipherga/internal/genotype"
)

// KeyBreeder creates random keys with one gene per distinct cipher symbol, in
// the order the symbols first appear.
type KeyBreeder struct {
	cipher *Cipher

	mu  sync.Mutex
	rng *rand.Rand
}

func NewKeyBreeder(c *Cipher, rng *rand.Rand) (*KeyBreeder, error) {
	if c == nil {
		return nil, errors.New("cipher is required")
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	return &KeyBreeder{cipher: c, rng: rng}, nil
}

func (b *KeyBreeder) Breed(ctx context.Context) (*genotype.Chromosome, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("breed key: %w", err)
	}
	symbols := b.cipher.Symbols()
	letters := make([]byte, len(symbols))
	b.mu.Lock()
	for i := range letters {
		letters[i] = Alphabet[b.rng.Intn(len(Alphabet))]
	}
	b.mu.Unlock()

	key := genotype.NewChromosome()
	for i, symbol := range symbols {
		gene := NewLetterGene(string(letters[i]))
		markMatch(b.cipher, symbol, gene)
		key.PutGene(symbol, gene)
	}
	return key, nil
}

// LetterMutator replaces a symbol's letter with a different random letter.
type LetterMutator struct {
	cipher *Cipher

	mu  sync.Mutex
	rng *rand.Rand
}

func NewLetterMutator(c *Cipher, rng *rand.Rand) (*LetterMutator, error) {
	if c == nil {
		return nil, errors.New("cipher is required")
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	return &LetterMutator{cipher: c, rng: rng}, nil
}

func (m *LetterMutator) MutateGene(symbol string, current genotype.Gene) (genotype.Gene, error) {
	previous := ""
	if current != nil {
		previous = current.String()
	}

	m.mu.Lock()
	letter := string(Alphabet[m.rng.Intn(len(Alphabet))])
	for letter == previous {
		letter = string(Alphabet[m.rng.Intn(len(Alphabet))])
	}
	m.mu.Unlock()

	gene := NewLetterGene(letter)
	markMatch(m.cipher, symbol, gene)
	return gene, nil
}

func markMatch(c *Cipher, symbol string, gene *LetterGene) {
	if known, ok := c.KnownLetter(symbol); ok {
		gene.SetHasMatch(known == gene.Letter())
	}
}
