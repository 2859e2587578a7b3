package evo

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrSelectorExists   = errors.New("selector already registered")
	ErrSelectorNotFound = errors.New("selector not found")
)

type SelectorOptions struct {
	Rng            *rand.Rand
	TournamentSize int
	Logger         *slog.Logger
}

type SelectorFactory func(opts SelectorOptions) Selector

var selectorRegistry = struct {
	mu sync.RWMutex
	m  map[string]SelectorFactory
}{
	m: builtinSelectors(),
}

func builtinSelectors() map[string]SelectorFactory {
	return map[string]SelectorFactory{
		"roulette": func(opts SelectorOptions) Selector {
			return NewRouletteSelector(opts.Rng)
		},
		"alpha": func(opts SelectorOptions) Selector {
			return AlphaSelector{Logger: opts.Logger}
		},
		"tournament": func(opts SelectorOptions) Selector {
			return NewTournamentSelector(opts.Rng, opts.TournamentSize)
		},
	}
}

// RegisterSelector makes a selector available to NewSelector under name.
func RegisterSelector(name string, factory SelectorFactory) error {
	if name == "" {
		return errors.New("selector name is required")
	}
	if factory == nil {
		return errors.New("selector factory is required")
	}

	selectorRegistry.mu.Lock()
	defer selectorRegistry.mu.Unlock()

	if _, exists := selectorRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrSelectorExists, name)
	}
	selectorRegistry.m[name] = factory
	return nil
}

// NewSelector builds a registered selector. A nil Rng is replaced with a
// time-seeded source.
func NewSelector(name string, opts SelectorOptions) (Selector, error) {
	selectorRegistry.mu.RLock()
	factory, ok := selectorRegistry.m[name]
	selectorRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)", ErrSelectorNotFound, name, strings.Join(ListSelectors(), ", "))
	}
	if opts.Rng == nil {
		opts.Rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return factory(opts), nil
}

func ListSelectors() []string {
	selectorRegistry.mu.RLock()
	defer selectorRegistry.mu.RUnlock()

	names := make([]string, 0, len(selectorRegistry.m))
	for name := range selectorRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetSelectorRegistryForTests() {
	selectorRegistry.mu.Lock()
	defer selectorRegistry.mu.Unlock()
	selectorRegistry.m = builtinSelectors()
}
