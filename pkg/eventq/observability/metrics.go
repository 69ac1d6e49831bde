package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records queue metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordEmit records a fan-out emit with its row count.
	RecordEmit(ctx context.Context, eventType string, fanout int)

	// RecordClaim records a claimed batch and its size.
	RecordClaim(ctx context.Context, consumerGroup string, batchSize int)

	// RecordProcessed records one handler invocation with its duration
	// and error status.
	RecordProcessed(ctx context.Context, consumerGroup, eventType string, duration time.Duration, err error)

	// RecordDeadLetter records a permanent failure demotion.
	RecordDeadLetter(ctx context.Context, consumerGroup, eventType string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	emitted        metric.Int64Counter
	claimBatchSize metric.Int64Histogram
	processed      metric.Int64Counter
	failures       metric.Int64Counter
	deadLettered   metric.Int64Counter
	handlerLatency metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("eventq")

	emitted, err := meter.Int64Counter("eventq.events.emitted",
		metric.WithDescription("Number of event records written by fan-out"),
	)
	if err != nil {
		return nil, err
	}

	claimBatchSize, err := meter.Int64Histogram("eventq.claim.batch_size",
		metric.WithDescription("Number of records claimed per poll"),
	)
	if err != nil {
		return nil, err
	}

	processed, err := meter.Int64Counter("eventq.events.processed",
		metric.WithDescription("Number of handler invocations"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("eventq.events.failed",
		metric.WithDescription("Number of handler failures"),
	)
	if err != nil {
		return nil, err
	}

	deadLettered, err := meter.Int64Counter("eventq.events.dead_lettered",
		metric.WithDescription("Number of records demoted to dead_letter"),
	)
	if err != nil {
		return nil, err
	}

	handlerLatency, err := meter.Float64Histogram("eventq.handler.latency_ms",
		metric.WithDescription("Handler invocation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		emitted:        emitted,
		claimBatchSize: claimBatchSize,
		processed:      processed,
		failures:       failures,
		deadLettered:   deadLettered,
		handlerLatency: handlerLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordEmit records a fan-out emit.
func (m *otelMetrics) RecordEmit(ctx context.Context, eventType string, fanout int) {
	m.emitted.Add(ctx, int64(fanout), metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}

// RecordClaim records a claimed batch.
func (m *otelMetrics) RecordClaim(ctx context.Context, consumerGroup string, batchSize int) {
	m.claimBatchSize.Record(ctx, int64(batchSize), metric.WithAttributes(
		attribute.String("consumer_group", consumerGroup),
	))
}

// RecordProcessed records one handler invocation.
func (m *otelMetrics) RecordProcessed(ctx context.Context, consumerGroup, eventType string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("consumer_group", consumerGroup),
		attribute.String("event_type", eventType),
	}

	m.processed.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.handlerLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.failures.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordDeadLetter records a dead-letter demotion.
func (m *otelMetrics) RecordDeadLetter(ctx context.Context, consumerGroup, eventType string) {
	m.deadLettered.Add(ctx, 1, metric.WithAttributes(
		attribute.String("consumer_group", consumerGroup),
		attribute.String("event_type", eventType),
	))
}
