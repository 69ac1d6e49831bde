package eventq

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/marketpulse/eventq/pkg/eventq/observability"
	"github.com/marketpulse/eventq/pkg/eventq/store"
)

// WorkerConfig configures the polling engine.
type WorkerConfig struct {
	// PollInterval is the idle sleep between empty polls in persistent
	// mode. Default: 5 seconds.
	PollInterval time.Duration

	// BatchSize is the maximum number of records claimed per poll.
	// Default: 10.
	BatchSize int

	// WorkerID uniquely identifies this running instance. Generated when
	// empty.
	WorkerID string
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger attaches a structured logger.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = logger }
}

// WithWorkerMetrics attaches a metrics recorder.
func WithWorkerMetrics(m observability.MetricsRecorder) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

// Worker is the claim-and-process engine for one consumer group. Multiple
// instances for the same group may run concurrently; the store's atomic
// claim guarantees no record is processed twice.
type Worker struct {
	store    store.Store
	consumer Consumer
	cfg      WorkerConfig
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
}

// NewWorker creates a worker for the consumer's group. A consumer with an
// empty group name is a ConfigError.
func NewWorker(st store.Store, consumer Consumer, cfg WorkerConfig, opts ...WorkerOption) (*Worker, error) {
	if consumer == nil || consumer.ConsumerGroup() == "" {
		return nil, &ConfigError{
			Field:   "consumer_group",
			Message: "worker requires a non-empty consumer group",
		}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.WorkerID == "" {
		cfg.WorkerID = "worker-" + uuid.New().String()
	}

	w := &Worker{
		store:    st,
		consumer: consumer,
		cfg:      cfg,
		metrics:  observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// WorkerID returns the unique id of this instance.
func (w *Worker) WorkerID() string {
	return w.cfg.WorkerID
}

// Drain claims and processes batches until a poll yields zero claims,
// then returns the total number of records processed. Intended for
// bounded, cron-style invocations. An infrastructure error ends the drain
// early with the partial total.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n := w.pollOnce(ctx)
		if n == 0 {
			return total, nil
		}
		total += n
	}
}

// Run polls until ctx is cancelled, sleeping PollInterval after each
// empty poll. Cancellation is observed between batches, so an in-flight
// batch always finishes; wire signal handling at the caller (e.g.
// signal.NotifyContext) for graceful shutdown.
func (w *Worker) Run(ctx context.Context) error {
	group := w.consumer.ConsumerGroup()
	observability.LogWorkerStart(w.logger, group, w.cfg.WorkerID, w.cfg.PollInterval, w.cfg.BatchSize)
	defer observability.LogWorkerStop(w.logger, group, w.cfg.WorkerID)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if w.pollOnce(ctx) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.cfg.PollInterval):
			}
		}
	}
}

// pollOnce claims one batch and processes every claimed record. It
// returns the claimed count regardless of per-record outcomes. Claim
// failures are infrastructure errors: logged and reported as zero
// progress so persistent mode backs off instead of spinning.
func (w *Worker) pollOnce(ctx context.Context) int {
	group := w.consumer.ConsumerGroup()

	claimed, err := w.store.ClaimBatch(ctx, group, w.cfg.WorkerID, w.cfg.BatchSize)
	if err != nil {
		observability.LogStoreError(w.logger, "claim_batch", err)
		return 0
	}
	if len(claimed) == 0 {
		return 0
	}

	observability.LogBatchClaimed(w.logger, group, w.cfg.WorkerID, len(claimed))
	w.metrics.RecordClaim(ctx, group, len(claimed))

	for _, evt := range claimed {
		w.processOne(ctx, evt.ID)
	}
	return len(claimed)
}

// processOne finalizes a single claimed record in its own transaction.
// One record's failure never affects its batch siblings.
func (w *Worker) processOne(ctx context.Context, id int64) {
	group := w.consumer.ConsumerGroup()

	// Re-read fresh; a record no longer claimed by this worker was
	// concurrently modified and must not be overwritten.
	evt, err := w.store.Get(ctx, id)
	if err != nil {
		observability.LogStoreError(w.logger, "get_event", err)
		return
	}
	if evt.Status != store.StatusClaimed || evt.ClaimedBy != w.cfg.WorkerID {
		observability.LogEventSkipped(w.logger, id, string(evt.Status))
		return
	}

	done := observability.TimedOperation()
	result, procErr := w.consumer.Process(ctx, evt.EventType, evt.Payload)
	duration := time.Duration(done() * float64(time.Millisecond))

	if procErr == nil {
		ok, err := w.store.MarkCompleted(ctx, id, w.cfg.WorkerID, result)
		if err != nil {
			observability.LogStoreError(w.logger, "mark_completed", err)
			return
		}
		if ok {
			observability.LogEventCompleted(w.logger, id, evt.EventType, done())
			w.metrics.RecordProcessed(ctx, group, evt.EventType, duration, nil)
		}
		return
	}

	w.metrics.RecordProcessed(ctx, group, evt.EventType, duration, procErr)

	if evt.Attempt >= evt.MaxAttempts {
		ok, err := w.store.MarkDeadLetter(ctx, id, w.cfg.WorkerID, procErr.Error())
		if err != nil {
			observability.LogStoreError(w.logger, "mark_dead_letter", err)
			return
		}
		if ok {
			observability.LogEventDeadLettered(w.logger, id, evt.EventType, evt.Attempt, procErr)
			w.metrics.RecordDeadLetter(ctx, group, evt.EventType)
		}
		return
	}

	retryAt := NextRetryAt(time.Now(), evt.Attempt)
	ok, err := w.store.MarkRetry(ctx, id, w.cfg.WorkerID, procErr.Error(), retryAt)
	if err != nil {
		observability.LogStoreError(w.logger, "mark_retry", err)
		return
	}
	if ok {
		observability.LogEventRetry(w.logger, id, evt.EventType, evt.Attempt, retryAt, procErr)
	}
}
