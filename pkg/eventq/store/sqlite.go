package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// timeFormat is a fixed-width RFC3339 layout. Fixed fractional digits keep
// lexicographic ordering of stored UTC timestamps identical to time
// ordering, so the claim and prune predicates can compare TEXT columns.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists event records to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewSQLiteStore creates a SQLite-backed store. The path should be a file
// path (e.g., "./eventq.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection serializes writers, so a claim is one atomic
	// statement with no busy retries.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type     TEXT NOT NULL,
			consumer_group TEXT NOT NULL,
			payload        TEXT,
			status         TEXT NOT NULL DEFAULT 'pending',
			claimed_by     TEXT,
			claimed_at     TEXT,
			completed_at   TEXT,
			result         TEXT,
			error          TEXT,
			attempt        INTEGER NOT NULL DEFAULT 0,
			max_attempts   INTEGER NOT NULL DEFAULT 3,
			next_retry_at  TEXT,
			source_service TEXT NOT NULL DEFAULT '',
			correlation_id TEXT NOT NULL,
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_events_claim
		 ON events(consumer_group, status, next_retry_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type_status
		 ON events(event_type, status)`,
		`CREATE INDEX IF NOT EXISTS idx_events_completed_at
		 ON events(completed_at)`,
	}
	for _, ddl := range indexes {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("create index: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

const eventColumns = `id, event_type, consumer_group, payload, status,
	claimed_by, claimed_at, completed_at, result, error,
	attempt, max_attempts, next_retry_at, source_service, correlation_id,
	created_at, updated_at`

// InsertBatch implements Store.
func (s *SQLiteStore) InsertBatch(ctx context.Context, events []*Event) ([]int64, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(timeFormat)
	ids := make([]int64, 0, len(events))
	for _, evt := range events {
		payload, err := evt.Payload.JSON()
		if err != nil {
			return nil, err
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO events (
				event_type, consumer_group, payload, status,
				attempt, max_attempts, source_service, correlation_id,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?)
		`, evt.EventType, evt.ConsumerGroup, nullBytes(payload), string(StatusPending),
			evt.MaxAttempts, evt.SourceService, evt.CorrelationID, now, now)
		if err != nil {
			return nil, fmt.Errorf("insert event: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("insert event id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}
	return ids, nil
}

// ClaimBatch implements Store. The claim is a single conditional UPDATE,
// so concurrent callers on one store never claim the same row.
func (s *SQLiteStore) ClaimBatch(ctx context.Context, consumerGroup, workerID string, limit int) ([]*Event, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(timeFormat)
	rows, err := s.db.QueryContext(ctx, `
		UPDATE events
		SET status = 'claimed',
			claimed_by = ?,
			claimed_at = ?,
			attempt = attempt + 1,
			next_retry_at = NULL,
			updated_at = ?
		WHERE id IN (
			SELECT id FROM events
			WHERE consumer_group = ?
			  AND status = 'pending'
			  AND (next_retry_at IS NULL OR next_retry_at <= ?)
			ORDER BY id
			LIMIT ?
		)
		RETURNING `+eventColumns,
		workerID, now, now, consumerGroup, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Event, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	evt, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return evt, nil
}

// MarkCompleted implements Store.
func (s *SQLiteStore) MarkCompleted(ctx context.Context, id int64, workerID string, result Document) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}

	data, err := result.JSON()
	if err != nil {
		return false, err
	}
	now := time.Now().UTC().Format(timeFormat)
	res, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET status = 'completed', completed_at = ?, result = ?, updated_at = ?
		WHERE id = ? AND status = 'claimed' AND claimed_by = ?
	`, now, nullBytes(data), now, id, workerID)
	if err != nil {
		return false, fmt.Errorf("mark completed: %w", err)
	}
	return applied(res)
}

// MarkRetry implements Store.
func (s *SQLiteStore) MarkRetry(ctx context.Context, id int64, workerID, errMsg string, nextRetryAt time.Time) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}

	now := time.Now().UTC().Format(timeFormat)
	res, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET status = 'pending', error = ?, next_retry_at = ?, updated_at = ?
		WHERE id = ? AND status = 'claimed' AND claimed_by = ?
	`, errMsg, nextRetryAt.UTC().Format(timeFormat), now, id, workerID)
	if err != nil {
		return false, fmt.Errorf("mark retry: %w", err)
	}
	return applied(res)
}

// MarkDeadLetter implements Store.
func (s *SQLiteStore) MarkDeadLetter(ctx context.Context, id int64, workerID, errMsg string) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}

	now := time.Now().UTC().Format(timeFormat)
	res, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET status = 'dead_letter', error = ?, updated_at = ?
		WHERE id = ? AND status = 'claimed' AND claimed_by = ?
	`, errMsg, now, id, workerID)
	if err != nil {
		return false, fmt.Errorf("mark dead letter: %w", err)
	}
	return applied(res)
}

// RetryDeadLetter implements Store.
func (s *SQLiteStore) RetryDeadLetter(ctx context.Context, f RetryFilter) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}

	where := []string{"status = 'dead_letter'"}
	args := []any{}
	if f.EventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, f.EventType)
	}
	if f.ConsumerGroup != "" {
		where = append(where, "consumer_group = ?")
		args = append(args, f.ConsumerGroup)
	}

	now := time.Now().UTC().Format(timeFormat)
	query := fmt.Sprintf(`
		UPDATE events
		SET status = 'pending', attempt = 0, error = NULL,
			claimed_by = NULL, claimed_at = NULL, next_retry_at = NULL,
			updated_at = ?
		WHERE id IN (
			SELECT id FROM events WHERE %s ORDER BY id LIMIT ?
		)
	`, strings.Join(where, " AND "))

	args = append([]any{now}, append(args, f.limit())...)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry dead letter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("retry dead letter count: %w", err)
	}
	return n, nil
}

// PruneCompleted implements Store.
func (s *SQLiteStore) PruneCompleted(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.prune(ctx, `
		DELETE FROM events
		WHERE status = 'completed' AND completed_at < ?
	`, cutoff)
}

// PruneDeadLetter implements Store.
func (s *SQLiteStore) PruneDeadLetter(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.prune(ctx, `
		DELETE FROM events
		WHERE status = 'dead_letter' AND updated_at < ?
	`, cutoff)
}

func (s *SQLiteStore) prune(ctx context.Context, query string, cutoff time.Time) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, query, cutoff.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune count: %w", err)
	}
	return n, nil
}

// Stats implements Store.
func (s *SQLiteStore) Stats(ctx context.Context) ([]GroupStatusCount, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT consumer_group, status, COUNT(*)
		FROM events
		GROUP BY consumer_group, status
		ORDER BY consumer_group, status
	`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var stats []GroupStatusCount
	for rows.Next() {
		var c GroupStatusCount
		var status string
		if err := rows.Scan(&c.ConsumerGroup, &status, &c.Count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		c.Status = Status(status)
		stats = append(stats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]*Event, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	where := []string{"1 = 1"}
	args := []any{}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.EventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, f.EventType)
	}
	if f.ConsumerGroup != "" {
		where = append(where, "consumer_group = ?")
		args = append(args, f.ConsumerGroup)
	}
	args = append(args, f.limit())

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM events
		WHERE %s
		ORDER BY id DESC
		LIMIT ?
	`, eventColumns, strings.Join(where, " AND ")), args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func applied(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func nullBytes(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}

// scanner abstracts *sql.Row and *sql.Rows for scanEvent.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (*Event, error) {
	var (
		evt                    Event
		payload, result        sql.NullString
		claimedBy, errMsg      sql.NullString
		claimedAt, completedAt sql.NullString
		nextRetryAt            sql.NullString
		status                 string
		createdAt, updatedAt   string
	)
	if err := sc.Scan(
		&evt.ID, &evt.EventType, &evt.ConsumerGroup, &payload, &status,
		&claimedBy, &claimedAt, &completedAt, &result, &errMsg,
		&evt.Attempt, &evt.MaxAttempts, &nextRetryAt,
		&evt.SourceService, &evt.CorrelationID, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	evt.Status = Status(status)
	evt.ClaimedBy = claimedBy.String
	evt.Error = errMsg.String

	var err error
	if evt.Payload, err = DocumentFromJSON([]byte(payload.String)); err != nil {
		return nil, err
	}
	if evt.Result, err = DocumentFromJSON([]byte(result.String)); err != nil {
		return nil, err
	}
	if evt.ClaimedAt, err = parseNullTime(claimedAt); err != nil {
		return nil, err
	}
	if evt.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}
	if evt.NextRetryAt, err = parseNullTime(nextRetryAt); err != nil {
		return nil, err
	}
	if evt.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if evt.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &evt, nil
}

func scanEvents(rows *sql.Rows) ([]*Event, error) {
	var events []*Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeFormat, v.String)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	return &t, nil
}
