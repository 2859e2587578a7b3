package genotype

import (
	"errors"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var ErrGeneNotFound = errors.New("gene not found")

// Owner is the population an individual currently belongs to.
type Owner interface {
	Size() int
}

// Chromosome is a candidate solution: an insertion-ordered mapping from gene
// key to Gene plus its fitness bookkeeping. Key order is preserved across
// clones because single-point crossover cuts along it.
type Chromosome struct {
	genes            *orderedmap.OrderedMap[string, Gene]
	fitness          float64
	hasFitness       bool
	evaluationNeeded bool
	population       Owner
}

func NewChromosome() *Chromosome {
	return &Chromosome{
		genes:            orderedmap.New[string, Gene](),
		evaluationNeeded: true,
	}
}

// PutGene appends a gene under a new key, or replaces the gene stored under
// an existing key without changing its position.
func (c *Chromosome) PutGene(key string, gene Gene) {
	if gene != nil {
		gene.SetChromosome(c)
	}
	c.genes.Set(key, gene)
	c.evaluationNeeded = true
}

// ReplaceGene swaps the gene stored under key. The key must already exist.
func (c *Chromosome) ReplaceGene(key string, gene Gene) error {
	if gene == nil {
		return fmt.Errorf("replace gene %s: gene is required", key)
	}
	if _, ok := c.genes.Get(key); !ok {
		return fmt.Errorf("replace gene %s: %w", key, ErrGeneNotFound)
	}
	gene.SetChromosome(c)
	c.genes.Set(key, gene)
	c.evaluationNeeded = true
	return nil
}

func (c *Chromosome) Gene(key string) (Gene, bool) {
	return c.genes.Get(key)
}

// Keys returns the gene keys in insertion order.
func (c *Chromosome) Keys() []string {
	keys := make([]string, 0, c.genes.Len())
	for pair := c.genes.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Genes returns the genes in key order.
func (c *Chromosome) Genes() []Gene {
	genes := make([]Gene, 0, c.genes.Len())
	for pair := c.genes.Oldest(); pair != nil; pair = pair.Next() {
		genes = append(genes, pair.Value)
	}
	return genes
}

func (c *Chromosome) Len() int {
	return c.genes.Len()
}

func (c *Chromosome) Fitness() (float64, bool) {
	return c.fitness, c.hasFitness
}

// FitnessOrZero treats an unevaluated chromosome as zero fitness.
func (c *Chromosome) FitnessOrZero() float64 {
	if !c.hasFitness {
		return 0
	}
	return c.fitness
}

// SetFitness records an evaluation result and clears EvaluationNeeded.
func (c *Chromosome) SetFitness(fitness float64) {
	c.fitness = fitness
	c.hasFitness = true
	c.evaluationNeeded = false
}

func (c *Chromosome) EvaluationNeeded() bool {
	return c.evaluationNeeded
}

func (c *Chromosome) SetEvaluationNeeded(needed bool) {
	c.evaluationNeeded = needed
}

func (c *Chromosome) Population() Owner {
	return c.population
}

func (c *Chromosome) SetPopulation(p Owner) {
	c.population = p
}

// Clone deep-copies every gene in key order. The copy carries the same
// fitness bookkeeping but belongs to no population.
func (c *Chromosome) Clone() *Chromosome {
	out := &Chromosome{
		genes:            orderedmap.New[string, Gene](c.genes.Len()),
		fitness:          c.fitness,
		hasFitness:       c.hasFitness,
		evaluationNeeded: c.evaluationNeeded,
	}
	for pair := c.genes.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == nil {
			out.genes.Set(pair.Key, nil)
			continue
		}
		gene := pair.Value.Clone()
		gene.SetChromosome(out)
		out.genes.Set(pair.Key, gene)
	}
	return out
}

// Equal compares gene values and key order. Fitness is ignored.
func (c *Chromosome) Equal(other *Chromosome) bool {
	if other == nil || c.genes.Len() != other.genes.Len() {
		return false
	}
	a, b := c.genes.Oldest(), other.genes.Oldest()
	for ; a != nil && b != nil; a, b = a.Next(), b.Next() {
		if a.Key != b.Key {
			return false
		}
		if a.Value == nil || b.Value == nil {
			if a.Value != b.Value {
				return false
			}
			continue
		}
		if !a.Value.Equal(b.Value) {
			return false
		}
	}
	return true
}

func (c *Chromosome) String() string {
	var sb strings.Builder
	for pair := c.genes.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value != nil {
			sb.WriteString(pair.Value.String())
		}
	}
	return sb.String()
}
