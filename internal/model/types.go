package model

import (
	"time"

	"cipherga/internal/stats"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord summarizes one finished execution. Populations are never
// persisted; only what a run reported about itself.
type RunRecord struct {
	VersionedRecord
	RunID                   string                `json:"run_id"`
	Start                   time.Time             `json:"start"`
	End                     time.Time             `json:"end"`
	Outcome                 string                `json:"outcome"`
	Strategy                stats.StrategySummary `json:"strategy"`
	Generations             int                   `json:"generations"`
	BestFitness             float64               `json:"best_fitness"`
	AverageGenerationMillis int64                 `json:"average_generation_millis"`
	BestSolution            string                `json:"best_solution,omitempty"`
	Plaintext               string                `json:"plaintext,omitempty"`
}

type GenerationRecord struct {
	VersionedRecord
	RunID      string                     `json:"run_id"`
	Statistics stats.GenerationStatistics `json:"statistics"`
}
