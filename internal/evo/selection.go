package evo

import (
	"log/slog"
	"math/rand"
	"sort"
	"sync"

	"cipherga/internal/genotype"
)

// Selector chooses parent indexes from the current population. ReIndex is
// called once per generation, single-threaded, before any NextIndex call;
// NextIndex may then be called concurrently.
type Selector interface {
	Name() string
	ReIndex(individuals []*genotype.Chromosome)
	NextIndex(individuals []*genotype.Chromosome) int
}

// RouletteSelector picks individuals with probability proportional to
// fitness. Negative fitness values are shifted so the weakest individual has
// weight zero; a population with no weight at all is sampled uniformly.
type RouletteSelector struct {
	mu         sync.Mutex
	rng        *rand.Rand
	cumulative []float64
}

func NewRouletteSelector(rng *rand.Rand) *RouletteSelector {
	return &RouletteSelector{rng: rng}
}

func (*RouletteSelector) Name() string {
	return "roulette"
}

func (s *RouletteSelector) ReIndex(individuals []*genotype.Chromosome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cumulative = cumulativeFitness(individuals)
}

func (s *RouletteSelector) NextIndex(individuals []*genotype.Chromosome) int {
	if len(individuals) == 0 {
		return -1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cumulative) != len(individuals) {
		s.cumulative = cumulativeFitness(individuals)
	}
	total := s.cumulative[len(s.cumulative)-1]
	pick := s.rng.Float64() * total
	idx := sort.Search(len(s.cumulative), func(i int) bool {
		return s.cumulative[i] > pick
	})
	if idx >= len(s.cumulative) {
		idx = len(s.cumulative) - 1
	}
	return idx
}

func cumulativeFitness(individuals []*genotype.Chromosome) []float64 {
	if len(individuals) == 0 {
		return nil
	}
	shift := 0.0
	for _, individual := range individuals {
		if f := individual.FitnessOrZero(); f < -shift {
			shift = -f
		}
	}
	out := make([]float64, len(individuals))
	running := 0.0
	for i, individual := range individuals {
		running += individual.FitnessOrZero() + shift
		out[i] = running
	}
	if running > 0 {
		return out
	}
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

// AlphaSelector always picks the fittest individual.
type AlphaSelector struct {
	Logger *slog.Logger
}

func (AlphaSelector) Name() string {
	return "alpha"
}

func (AlphaSelector) ReIndex([]*genotype.Chromosome) {}

func (s AlphaSelector) NextIndex(individuals []*genotype.Chromosome) int {
	if len(individuals) == 0 {
		logger := s.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("attempted to select from an empty population", "selector", s.Name())
		return -1
	}
	best := 0
	bestFitness := individuals[0].FitnessOrZero()
	for i := 1; i < len(individuals); i++ {
		if f := individuals[i].FitnessOrZero(); f > bestFitness {
			best, bestFitness = i, f
		}
	}
	return best
}

// TournamentSelector samples Size individuals uniformly and picks the best
// fitness among them.
type TournamentSelector struct {
	Size int

	mu  sync.Mutex
	rng *rand.Rand
}

func NewTournamentSelector(rng *rand.Rand, size int) *TournamentSelector {
	return &TournamentSelector{Size: size, rng: rng}
}

func (*TournamentSelector) Name() string {
	return "tournament"
}

func (*TournamentSelector) ReIndex([]*genotype.Chromosome) {}

func (s *TournamentSelector) NextIndex(individuals []*genotype.Chromosome) int {
	if len(individuals) == 0 {
		return -1
	}
	size := s.Size
	if size <= 0 {
		size = 3
	}
	if size > len(individuals) {
		size = len(individuals)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	best := s.rng.Intn(len(individuals))
	for i := 1; i < size; i++ {
		candidate := s.rng.Intn(len(individuals))
		if individuals[candidate].FitnessOrZero() > individuals[best].FitnessOrZero() {
			best = candidate
		}
	}
	return best
}
