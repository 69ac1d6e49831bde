package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of an event record.
type Status string

const (
	// StatusPending marks a record waiting to be claimed. Newly created
	// records and records re-queued for retry are pending.
	StatusPending Status = "pending"

	// StatusClaimed marks a record owned by exactly one worker instance.
	StatusClaimed Status = "claimed"

	// StatusCompleted is the terminal success state.
	StatusCompleted Status = "completed"

	// StatusFailed marks a handler failure that has not yet been routed
	// to retry or dead-letter. It only appears transiently; finalization
	// writes pending or dead_letter directly.
	StatusFailed Status = "failed"

	// StatusDeadLetter is the terminal failure state after exhausting
	// retry attempts. Only a manual bulk retry leaves it.
	StatusDeadLetter Status = "dead_letter"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusClaimed, StatusCompleted, StatusFailed, StatusDeadLetter:
		return true
	}
	return false
}

// Terminal reports whether no automatic transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusDeadLetter
}

// String returns the status as a string.
func (s Status) String() string {
	return string(s)
}

// Document is an opaque structured payload. The queue stores and returns
// it verbatim; only the consumer that claims an event interprets it.
type Document map[string]any

// JSON serializes the document for storage. A nil document serializes to
// nil so it maps to a NULL column.
func (d Document) JSON() ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

// DocumentFromJSON deserializes a stored document. Empty input yields a
// nil document.
func DocumentFromJSON(data []byte) (Document, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return d, nil
}

// Event is the persisted unit of work. One logical occurrence fans out
// into one Event per registered consumer group; each copy moves through
// the status lifecycle independently.
type Event struct {
	ID            int64
	EventType     string
	ConsumerGroup string
	Payload       Document
	Status        Status

	// Claim ownership. Set when a worker claims the record; retained as
	// last-holder provenance after the record leaves claimed state.
	ClaimedBy string
	ClaimedAt *time.Time

	// Terminal success fields.
	CompletedAt *time.Time
	Result      Document

	// Error holds the most recent handler failure message.
	Error string

	// Attempt increments on every claim. MaxAttempts is fixed at creation.
	Attempt     int
	MaxAttempts int

	// NextRetryAt is the earliest eligible claim time after a failure.
	// Nil means immediately eligible.
	NextRetryAt *time.Time

	// Provenance.
	SourceService string
	CorrelationID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of the event. Stores hand out clones so
// callers cannot mutate persisted state in place.
func (e *Event) Clone() *Event {
	c := *e
	if e.ClaimedAt != nil {
		t := *e.ClaimedAt
		c.ClaimedAt = &t
	}
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		c.CompletedAt = &t
	}
	if e.NextRetryAt != nil {
		t := *e.NextRetryAt
		c.NextRetryAt = &t
	}
	if e.Payload != nil {
		p := make(Document, len(e.Payload))
		for k, v := range e.Payload {
			p[k] = v
		}
		c.Payload = p
	}
	if e.Result != nil {
		r := make(Document, len(e.Result))
		for k, v := range e.Result {
			r[k] = v
		}
		c.Result = r
	}
	return &c
}

// Eligible reports whether the record can be claimed at the given time.
// A nil NextRetryAt is always eligible; the boundary is inclusive.
func (e *Event) Eligible(now time.Time) bool {
	if e.Status != StatusPending {
		return false
	}
	return e.NextRetryAt == nil || !e.NextRetryAt.After(now)
}
