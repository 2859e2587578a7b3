package storage

import (
	"context"
	"errors"

	"cipherga/internal/model"
)

var ErrRunNotFound = errors.New("run not found")

// Store persists run and generation statistics for reporting.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, runID string) (model.RunRecord, bool, error)
	// ListRuns returns every run ordered by start time.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveGeneration(ctx context.Context, record model.GenerationRecord) error
	// GetGenerations returns the generations of a run ordered by generation
	// number.
	GetGenerations(ctx context.Context, runID string) ([]model.GenerationRecord, bool, error)
}
