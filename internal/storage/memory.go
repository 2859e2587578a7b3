package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"cipherga/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	generations map[string][]model.GenerationRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.generations = make(map[string][]model.GenerationRecord)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.runs[run.RunID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, runID string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].Start.Equal(runs[j].Start) {
			return runs[i].Start.Before(runs[j].Start)
		}
		return runs[i].RunID < runs[j].RunID
	})
	return runs, nil
}

// SaveGeneration replaces an existing record with the same generation number.
func (s *MemoryStore) SaveGeneration(_ context.Context, record model.GenerationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	records := s.generations[record.RunID]
	generation := record.Statistics.Generation
	idx := sort.Search(len(records), func(i int) bool {
		return records[i].Statistics.Generation >= generation
	})
	if idx < len(records) && records[idx].Statistics.Generation == generation {
		records[idx] = record
	} else {
		records = append(records, model.GenerationRecord{})
		copy(records[idx+1:], records[idx:])
		records[idx] = record
	}
	s.generations[record.RunID] = records
	return nil
}

func (s *MemoryStore) GetGenerations(_ context.Context, runID string) ([]model.GenerationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.generations[runID]
	if !ok {
		return nil, false, nil
	}
	copied := append([]model.GenerationRecord(nil), records...)
	return copied, true, nil
}
