// Package store persists event records and implements the atomic claim,
// finalize, and maintenance operations the queue is built on.
//
// Three implementations are provided:
//   - MemoryStore: mutex-guarded in-memory store for tests and
//     single-process use
//   - SQLiteStore: embedded relational store (modernc.org/sqlite)
//   - PostgresStore: shared relational store (jackc/pgx), claims via
//     FOR UPDATE SKIP LOCKED
//
// All implementations guarantee that two concurrent ClaimBatch calls for
// the same consumer group never return the same record, and that the
// finalize operations are guarded: they apply only while the record is
// still claimed by the named worker, and report false otherwise.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrNotFound is returned when no event has the requested id.
	ErrNotFound = errors.New("event not found")
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status        Status
	EventType     string
	ConsumerGroup string

	// Limit caps the number of returned events. Defaults to 50.
	Limit int
}

// RetryFilter narrows RetryDeadLetter. Zero values match everything.
type RetryFilter struct {
	EventType     string
	ConsumerGroup string

	// Limit caps the number of re-queued events. Defaults to 100.
	Limit int
}

// GroupStatusCount is one row of the Stats aggregate.
type GroupStatusCount struct {
	ConsumerGroup string
	Status        Status
	Count         int64
}

// Store is the narrow storage boundary the queue depends on. The engine
// behind it must provide atomic row claiming and per-operation durability.
type Store interface {
	// InsertBatch durably inserts all events in one atomic transaction
	// and returns their assigned ids in insertion order. On error no
	// rows are written.
	InsertBatch(ctx context.Context, events []*Event) ([]int64, error)

	// ClaimBatch atomically claims up to limit eligible pending records
	// for the consumer group: status becomes claimed, claimed_by and
	// claimed_at are set, attempt increments, next_retry_at clears.
	// Concurrent callers never receive the same record.
	ClaimBatch(ctx context.Context, consumerGroup, workerID string, limit int) ([]*Event, error)

	// Get returns the current state of one event.
	Get(ctx context.Context, id int64) (*Event, error)

	// MarkCompleted finalizes a claimed record as completed with an
	// optional result document. Returns false without mutating when the
	// record is no longer claimed by workerID.
	MarkCompleted(ctx context.Context, id int64, workerID string, result Document) (bool, error)

	// MarkRetry re-queues a claimed record as pending with the failure
	// message and next eligible time recorded. Returns false without
	// mutating when the record is no longer claimed by workerID.
	MarkRetry(ctx context.Context, id int64, workerID, errMsg string, nextRetryAt time.Time) (bool, error)

	// MarkDeadLetter finalizes a claimed record as dead_letter with the
	// failure message recorded. Returns false without mutating when the
	// record is no longer claimed by workerID.
	MarkDeadLetter(ctx context.Context, id int64, workerID, errMsg string) (bool, error)

	// RetryDeadLetter re-queues up to f.Limit dead_letter records
	// matching the filter: status pending, attempt 0, error and claim
	// fields cleared, next_retry_at cleared. Returns the count re-queued.
	RetryDeadLetter(ctx context.Context, f RetryFilter) (int64, error)

	// PruneCompleted deletes completed records whose completed_at is
	// before cutoff. Returns the count deleted.
	PruneCompleted(ctx context.Context, cutoff time.Time) (int64, error)

	// PruneDeadLetter deletes dead_letter records whose updated_at is
	// before cutoff. Returns the count deleted.
	PruneDeadLetter(ctx context.Context, cutoff time.Time) (int64, error)

	// Stats returns record counts grouped by consumer group and status.
	Stats(ctx context.Context) ([]GroupStatusCount, error)

	// List returns recent events matching the filter, newest first.
	List(ctx context.Context, f Filter) ([]*Event, error)

	// Close releases the store. Further operations return ErrStoreClosed.
	Close() error
}

const (
	defaultListLimit  = 50
	defaultRetryLimit = 100
)

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

func (f RetryFilter) limit() int {
	if f.Limit <= 0 {
		return defaultRetryLimit
	}
	return f.Limit
}
