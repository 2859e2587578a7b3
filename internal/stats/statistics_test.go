package stats

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExecutionStatisticsAssignsRunID(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	exec := NewExecutionStatistics(start, StrategySummary{PopulationSize: 10})

	_, err := uuid.Parse(exec.RunID)
	require.NoError(t, err)
	assert.Equal(t, start, exec.Start)
	assert.Equal(t, 10, exec.Strategy.PopulationSize)
	assert.Zero(t, exec.Duration())
}

func TestAverageGenerationMillisSkipsInitialSpawn(t *testing.T) {
	exec := NewExecutionStatistics(time.Now(), StrategySummary{})
	exec.AddGenerationStatistics(GenerationStatistics{Generation: 0, Performance: PerformanceStatistics{Total: time.Second}})
	exec.AddGenerationStatistics(GenerationStatistics{Generation: 1, Performance: PerformanceStatistics{Total: 10 * time.Millisecond}})
	exec.AddGenerationStatistics(GenerationStatistics{Generation: 2, Performance: PerformanceStatistics{Total: 11 * time.Millisecond}})

	assert.Equal(t, int64(11), exec.AverageGenerationMillis())
}

func TestAverageGenerationMillisOnlySpawn(t *testing.T) {
	exec := NewExecutionStatistics(time.Now(), StrategySummary{})
	exec.AddGenerationStatistics(GenerationStatistics{Generation: 0, Performance: PerformanceStatistics{Total: time.Second}})

	assert.Zero(t, exec.AverageGenerationMillis())
}

func TestBestGeneration(t *testing.T) {
	exec := NewExecutionStatistics(time.Now(), StrategySummary{})
	_, ok := exec.Best()
	assert.False(t, ok)

	exec.AddGenerationStatistics(GenerationStatistics{Generation: 0, BestFitness: -4})
	exec.AddGenerationStatistics(GenerationStatistics{Generation: 1, BestFitness: -1})
	exec.AddGenerationStatistics(GenerationStatistics{Generation: 2, BestFitness: -2})

	best, ok := exec.Best()
	require.True(t, ok)
	assert.Equal(t, 1, best.Generation)
}

func TestGenerationStatisticsString(t *testing.T) {
	proximity := 0.5
	g := GenerationStatistics{Generation: 3, NumberOfMutations: 7, KnownSolutionProximity: &proximity}
	s := g.String()
	assert.True(t, strings.HasPrefix(s, "generation=3 "))
	assert.Contains(t, s, "mutations=7")
	assert.Contains(t, s, "known=50.00%")
}
