package genotype

// Gene is one independently mutable unit of a Chromosome. A gene belongs to
// exactly one chromosome at a time; Clone returns a detached deep copy.
type Gene interface {
	Clone() Gene
	Chromosome() *Chromosome
	SetChromosome(c *Chromosome)
	// HasMatch reports whether the gene agrees with a known reference
	// solution. It is diagnostic only.
	HasMatch() bool
	SetHasMatch(match bool)
	Equal(other Gene) bool
	String() string
}
