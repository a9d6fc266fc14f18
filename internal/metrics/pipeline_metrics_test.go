package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineMetrics_Creation(t *testing.T) {
	t.Run("successfully create pipeline metrics", func(t *testing.T) {
		metrics, err := NewPipelineMetrics()
		require.NoError(t, err)
		assert.NotNil(t, metrics)
		assert.NotNil(t, metrics.stageRunsCounter)
		assert.NotNil(t, metrics.stageDurationHistogram)
		assert.NotNil(t, metrics.llmCallsCounter)
		assert.NotNil(t, metrics.llmAttemptsCounter)
		assert.NotNil(t, metrics.llmDurationHistogram)
		assert.NotNil(t, metrics.generationsCreatedCounter)
		assert.NotNil(t, metrics.generationsDoneCounter)
		assert.NotNil(t, metrics.generationDuration)
		assert.NotNil(t, metrics.generationsActiveGauge)
		assert.NotNil(t, metrics.continuationsCounter)
	})
}

func TestPipelineMetrics_RecordStage(t *testing.T) {
	metrics, err := NewPipelineMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	for stage := 1; stage <= 3; stage++ {
		for _, outcome := range []string{"success", "MissingPrerequisiteError", "UpstreamError"} {
			assert.NotPanics(t, func() {
				metrics.RecordStage(ctx, stage, outcome, 1500*time.Millisecond)
			})
		}
	}
}

func TestPipelineMetrics_RecordLLMCall(t *testing.T) {
	metrics, err := NewPipelineMetrics()
	require.NoError(t, err)

	t.Run("successful call", func(t *testing.T) {
		assert.NotPanics(t, func() {
			metrics.RecordLLMCall(context.Background(), "invoke", "success", 1, 2*time.Second)
		})
	})

	t.Run("cache hit has no attempts", func(t *testing.T) {
		assert.NotPanics(t, func() {
			metrics.RecordLLMCall(context.Background(), "invoke", "cache_hit", 0, time.Millisecond)
		})
	})

	t.Run("failed after retries", func(t *testing.T) {
		assert.NotPanics(t, func() {
			metrics.RecordLLMCall(context.Background(), "complete", "UpstreamError", 4, 40*time.Second)
		})
	})
}

func TestPipelineMetrics_GenerationLifecycle(t *testing.T) {
	metrics, err := NewPipelineMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("completed generation", func(t *testing.T) {
		assert.NotPanics(t, func() {
			metrics.RecordGenerationCreated(ctx)
			metrics.RecordContinuation(ctx)
			metrics.RecordContinuation(ctx)
			metrics.RecordGenerationFinished(ctx, "completed", "", 3*time.Minute)
		})
	})

	t.Run("failed generation", func(t *testing.T) {
		assert.NotPanics(t, func() {
			metrics.RecordGenerationCreated(ctx)
			metrics.RecordGenerationFinished(ctx, "failed", "JsonParseError", 10*time.Second)
		})
	})

	t.Run("concurrent generations", func(t *testing.T) {
		done := make(chan struct{})
		for i := 0; i < 10; i++ {
			go func() {
				defer func() { done <- struct{}{} }()
				metrics.RecordGenerationCreated(ctx)
				metrics.RecordGenerationFinished(ctx, "completed", "", time.Second)
			}()
		}
		for i := 0; i < 10; i++ {
			<-done
		}
	})
}
