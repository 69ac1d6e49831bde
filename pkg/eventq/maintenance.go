package eventq

import (
	"context"
	"log/slog"
	"time"

	"github.com/marketpulse/eventq/pkg/eventq/observability"
	"github.com/marketpulse/eventq/pkg/eventq/store"
)

// Maintenance bundles the out-of-band queue operations: pruning terminal
// records, bulk dead-letter retry, and read-only inspection. It operates
// directly on storage, independent of any worker loop.
type Maintenance struct {
	store  store.Store
	logger *slog.Logger
}

// MaintenanceOption configures Maintenance.
type MaintenanceOption func(*Maintenance)

// WithMaintenanceLogger attaches a structured logger.
func WithMaintenanceLogger(logger *slog.Logger) MaintenanceOption {
	return func(m *Maintenance) { m.logger = logger }
}

// NewMaintenance creates maintenance operations over the given store.
func NewMaintenance(st store.Store, opts ...MaintenanceOption) *Maintenance {
	m := &Maintenance{store: st}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PruneCompleted deletes completed records older than the retention
// window and returns the count deleted.
func (m *Maintenance) PruneCompleted(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	n, err := m.store.PruneCompleted(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	observability.LogPrune(m.logger, "completed", n, retention)
	return n, nil
}

// PruneDeadLetter deletes dead-letter records whose last update is older
// than the retention window and returns the count deleted.
func (m *Maintenance) PruneDeadLetter(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	n, err := m.store.PruneDeadLetter(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	observability.LogPrune(m.logger, "dead_letter", n, retention)
	return n, nil
}

// RetryDeadLetter re-queues up to f.Limit dead-letter records matching the
// filter and returns the count re-queued. Each record resets to pending
// with attempt 0 and cleared error, claim, and retry fields. This is the
// only path from dead_letter back to pending and is always
// operator-initiated.
func (m *Maintenance) RetryDeadLetter(ctx context.Context, f store.RetryFilter) (int64, error) {
	n, err := m.store.RetryDeadLetter(ctx, f)
	if err != nil {
		return 0, err
	}
	observability.LogRetryDeadLetter(m.logger, n, f.EventType, f.ConsumerGroup)
	return n, nil
}

// Stats returns record counts grouped by consumer group and status.
func (m *Maintenance) Stats(ctx context.Context) ([]store.GroupStatusCount, error) {
	return m.store.Stats(ctx)
}

// List returns recent events matching the filter, newest first.
func (m *Maintenance) List(ctx context.Context, f store.Filter) ([]*store.Event, error) {
	return m.store.List(ctx, f)
}
