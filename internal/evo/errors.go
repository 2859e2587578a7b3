package evo

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidIndex   = errors.New("invalid individual index")
	ErrNotInitialized = errors.New("genetic algorithm not initialized")
	ErrKeyMismatch    = errors.New("parent gene keys do not match")
)

// ConfigurationError lists every problem found while validating a Strategy.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid strategy: " + strings.Join(e.Problems, "; ")
}

// StructuralError reports that two parents do not share a gene key. It aborts
// the generation in which it occurs.
type StructuralError struct {
	Key string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("gene key %q missing from second parent", e.Key)
}

func (e *StructuralError) Unwrap() error {
	return ErrKeyMismatch
}

// TaskFailure wraps the error of a single unit of work within a phase. The
// phase continues without that unit's result.
type TaskFailure struct {
	Phase string
	Task  int
	Err   error
}

func (e *TaskFailure) Error() string {
	return fmt.Sprintf("%s task %d: %v", e.Phase, e.Task, e.Err)
}

func (e *TaskFailure) Unwrap() error {
	return e.Err
}
