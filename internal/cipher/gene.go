package cipher

import "cipherga/internal/genotype"

// LetterGene assigns a plaintext letter to one cipher symbol.
type LetterGene struct {
	letter     string
	hasMatch   bool
	chromosome *genotype.Chromosome
}

func NewLetterGene(letter string) *LetterGene {
	return &LetterGene{letter: letter}
}

func (g *LetterGene) Letter() string {
	return g.letter
}

func (g *LetterGene) Clone() genotype.Gene {
	return &LetterGene{letter: g.letter, hasMatch: g.hasMatch}
}

func (g *LetterGene) Chromosome() *genotype.Chromosome {
	return g.chromosome
}

func (g *LetterGene) SetChromosome(c *genotype.Chromosome) {
	g.chromosome = c
}

func (g *LetterGene) HasMatch() bool {
	return g.hasMatch
}

func (g *LetterGene) SetHasMatch(match bool) {
	g.hasMatch = match
}

func (g *LetterGene) Equal(other genotype.Gene) bool {
	o, ok := other.(*LetterGene)
	return ok && o.letter == g.letter
}

func (g *LetterGene) String() string {
	return g.letter
}
