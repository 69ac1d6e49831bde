// Package observability provides structured logging and metrics for the
// event queue.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled;
// every logging helper accepts a nil logger.
package observability

import (
	"log/slog"
	"time"
)

// LogEmit logs a fan-out emit after the insert transaction commits.
func LogEmit(logger *slog.Logger, eventType, correlationID string, groups []string) {
	if logger == nil {
		return
	}
	logger.Info("event emitted",
		slog.String("event_type", eventType),
		slog.String("correlation_id", correlationID),
		slog.Int("fanout", len(groups)),
		slog.Any("consumer_groups", groups),
	)
}

// LogWorkerStart logs persistent-mode worker startup.
func LogWorkerStart(logger *slog.Logger, consumerGroup, workerID string, pollInterval time.Duration, batchSize int) {
	if logger == nil {
		return
	}
	logger.Info("worker starting",
		slog.String("consumer_group", consumerGroup),
		slog.String("worker_id", workerID),
		slog.Duration("poll_interval", pollInterval),
		slog.Int("batch_size", batchSize),
	)
}

// LogWorkerStop logs worker shutdown.
func LogWorkerStop(logger *slog.Logger, consumerGroup, workerID string) {
	if logger == nil {
		return
	}
	logger.Info("worker stopping",
		slog.String("consumer_group", consumerGroup),
		slog.String("worker_id", workerID),
	)
}

// LogBatchClaimed logs a successful claim.
func LogBatchClaimed(logger *slog.Logger, consumerGroup, workerID string, count int) {
	if logger == nil {
		return
	}
	logger.Debug("batch claimed",
		slog.String("consumer_group", consumerGroup),
		slog.String("worker_id", workerID),
		slog.Int("count", count),
	)
}

// LogEventCompleted logs a successful handler invocation.
func LogEventCompleted(logger *slog.Logger, id int64, eventType string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("event completed",
		slog.Int64("event_id", id),
		slog.String("event_type", eventType),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogEventRetry logs a handler failure that was re-queued with backoff.
func LogEventRetry(logger *slog.Logger, id int64, eventType string, attempt int, nextRetryAt time.Time, err error) {
	if logger == nil {
		return
	}
	logger.Warn("event failed, retry scheduled",
		slog.Int64("event_id", id),
		slog.String("event_type", eventType),
		slog.Int("attempt", attempt),
		slog.Time("next_retry_at", nextRetryAt),
		slog.String("error", err.Error()),
	)
}

// LogEventDeadLettered logs a permanent handler failure.
func LogEventDeadLettered(logger *slog.Logger, id int64, eventType string, attempt int, err error) {
	if logger == nil {
		return
	}
	logger.Error("event dead-lettered",
		slog.Int64("event_id", id),
		slog.String("event_type", eventType),
		slog.Int("attempt", attempt),
		slog.String("error", err.Error()),
	)
}

// LogEventSkipped logs a record skipped by the pre-handler race guard.
func LogEventSkipped(logger *slog.Logger, id int64, status string) {
	if logger == nil {
		return
	}
	logger.Debug("event skipped, no longer claimed",
		slog.Int64("event_id", id),
		slog.String("status", status),
	)
}

// LogStoreError logs an infrastructure error (non-fatal at the loop level).
func LogStoreError(logger *slog.Logger, op string, err error) {
	if logger == nil {
		return
	}
	logger.Error("store operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogPrune logs a maintenance prune pass.
func LogPrune(logger *slog.Logger, status string, deleted int64, retention time.Duration) {
	if logger == nil {
		return
	}
	logger.Info("events pruned",
		slog.String("status", status),
		slog.Int64("deleted", deleted),
		slog.Duration("retention", retention),
	)
}

// LogRetryDeadLetter logs a bulk dead-letter retry.
func LogRetryDeadLetter(logger *slog.Logger, requeued int64, eventType, consumerGroup string) {
	if logger == nil {
		return
	}
	logger.Info("dead-letter events re-queued",
		slog.Int64("requeued", requeued),
		slog.String("event_type", eventType),
		slog.String("consumer_group", consumerGroup),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in
// milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
