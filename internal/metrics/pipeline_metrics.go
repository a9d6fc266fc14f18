package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("architect-pipeline")

// PipelineMetrics provides metrics collection for stages, LLM calls and book generations
type PipelineMetrics struct {
	stageRunsCounter          metric.Int64Counter
	stageDurationHistogram    metric.Float64Histogram
	llmCallsCounter           metric.Int64Counter
	llmAttemptsCounter        metric.Int64Counter
	llmDurationHistogram      metric.Float64Histogram
	generationsCreatedCounter metric.Int64Counter
	generationsDoneCounter    metric.Int64Counter
	generationDuration        metric.Float64Histogram
	generationsActiveGauge    metric.Int64UpDownCounter
	continuationsCounter      metric.Int64Counter
}

// NewPipelineMetrics creates a new pipeline metrics collector
func NewPipelineMetrics() (*PipelineMetrics, error) {
	stageRunsCounter, err := meter.Int64Counter(
		"architect.stage.runs",
		metric.WithDescription("Total number of pipeline stage runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	stageDurationHistogram, err := meter.Float64Histogram(
		"architect.stage.duration",
		metric.WithDescription("Duration of pipeline stage runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	llmCallsCounter, err := meter.Int64Counter(
		"architect.llm.calls",
		metric.WithDescription("Total number of logical LLM invocations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	llmAttemptsCounter, err := meter.Int64Counter(
		"architect.llm.attempts",
		metric.WithDescription("Total number of HTTP attempts against the LLM API, retries included"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	llmDurationHistogram, err := meter.Float64Histogram(
		"architect.llm.duration",
		metric.WithDescription("Duration of LLM invocations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	generationsCreatedCounter, err := meter.Int64Counter(
		"architect.book_generations.created",
		metric.WithDescription("Total number of book generations started"),
		metric.WithUnit("{generation}"),
	)
	if err != nil {
		return nil, err
	}

	generationsDoneCounter, err := meter.Int64Counter(
		"architect.book_generations.finished",
		metric.WithDescription("Total number of book generations that reached a terminal status"),
		metric.WithUnit("{generation}"),
	)
	if err != nil {
		return nil, err
	}

	generationDuration, err := meter.Float64Histogram(
		"architect.book_generation.duration",
		metric.WithDescription("Duration of book generations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	generationsActiveGauge, err := meter.Int64UpDownCounter(
		"architect.book_generations.active",
		metric.WithDescription("Number of currently running book generations"),
		metric.WithUnit("{generation}"),
	)
	if err != nil {
		return nil, err
	}

	continuationsCounter, err := meter.Int64Counter(
		"architect.book.continuations",
		metric.WithDescription("Total number of chapter continuation calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		stageRunsCounter:          stageRunsCounter,
		stageDurationHistogram:    stageDurationHistogram,
		llmCallsCounter:           llmCallsCounter,
		llmAttemptsCounter:        llmAttemptsCounter,
		llmDurationHistogram:      llmDurationHistogram,
		generationsCreatedCounter: generationsCreatedCounter,
		generationsDoneCounter:    generationsDoneCounter,
		generationDuration:        generationDuration,
		generationsActiveGauge:    generationsActiveGauge,
		continuationsCounter:      continuationsCounter,
	}, nil
}

// RecordStage records one stage run
func (pm *PipelineMetrics) RecordStage(ctx context.Context, stage int, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.Int("stage", stage),
		attribute.String("outcome", outcome),
	)
	pm.stageRunsCounter.Add(ctx, 1, attrs)
	pm.stageDurationHistogram.Record(ctx, duration.Seconds(), attrs)
}

// RecordLLMCall records one logical LLM invocation
func (pm *PipelineMetrics) RecordLLMCall(ctx context.Context, operation, outcome string, attempts int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	pm.llmCallsCounter.Add(ctx, 1, attrs)
	pm.llmAttemptsCounter.Add(ctx, int64(attempts), attrs)
	pm.llmDurationHistogram.Record(ctx, duration.Seconds(), attrs)
}

// RecordContinuation records a chapter continuation call
func (pm *PipelineMetrics) RecordContinuation(ctx context.Context) {
	pm.continuationsCounter.Add(ctx, 1)
}

// RecordGenerationCreated records a new book generation
func (pm *PipelineMetrics) RecordGenerationCreated(ctx context.Context) {
	pm.generationsCreatedCounter.Add(ctx, 1)
	pm.generationsActiveGauge.Add(ctx, 1)
}

// RecordGenerationFinished records a book generation reaching a terminal status
func (pm *PipelineMetrics) RecordGenerationFinished(ctx context.Context, status, errorKind string, duration time.Duration) {
	attrs := []attribute.KeyValue{attribute.String("status", status)}
	if errorKind != "" {
		attrs = append(attrs, attribute.String("error.type", errorKind))
	}
	pm.generationsDoneCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	pm.generationDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("status", status)),
	)
	pm.generationsActiveGauge.Add(ctx, -1)
}
