package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation. It is suitable for
// tests and single-process use; all guarantees are enforced under one
// mutex.
type MemoryStore struct {
	mu     sync.Mutex
	events map[int64]*Event
	nextID int64
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[int64]*Event),
		nextID: 1,
	}
}

// InsertBatch implements Store.
func (s *MemoryStore) InsertBatch(ctx context.Context, events []*Event) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	now := time.Now().UTC()
	ids := make([]int64, 0, len(events))
	for _, evt := range events {
		stored := evt.Clone()
		stored.ID = s.nextID
		s.nextID++
		stored.Status = StatusPending
		stored.Attempt = 0
		stored.CreatedAt = now
		stored.UpdatedAt = now
		s.events[stored.ID] = stored
		ids = append(ids, stored.ID)
	}
	return ids, nil
}

// ClaimBatch implements Store.
func (s *MemoryStore) ClaimBatch(ctx context.Context, consumerGroup, workerID string, limit int) ([]*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	now := time.Now().UTC()
	ids := s.sortedIDs()

	var claimed []*Event
	for _, id := range ids {
		if len(claimed) >= limit {
			break
		}
		evt := s.events[id]
		if evt.ConsumerGroup != consumerGroup || !evt.Eligible(now) {
			continue
		}
		evt.Status = StatusClaimed
		evt.ClaimedBy = workerID
		claimedAt := now
		evt.ClaimedAt = &claimedAt
		evt.Attempt++
		evt.NextRetryAt = nil
		evt.UpdatedAt = now
		claimed = append(claimed, evt.Clone())
	}
	return claimed, nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id int64) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	evt, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return evt.Clone(), nil
}

// MarkCompleted implements Store.
func (s *MemoryStore) MarkCompleted(ctx context.Context, id int64, workerID string, result Document) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrStoreClosed
	}
	evt, ok := s.heldBy(id, workerID)
	if !ok {
		return false, nil
	}
	now := time.Now().UTC()
	evt.Status = StatusCompleted
	completedAt := now
	evt.CompletedAt = &completedAt
	evt.Result = result
	evt.UpdatedAt = now
	return true, nil
}

// MarkRetry implements Store.
func (s *MemoryStore) MarkRetry(ctx context.Context, id int64, workerID, errMsg string, nextRetryAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrStoreClosed
	}
	evt, ok := s.heldBy(id, workerID)
	if !ok {
		return false, nil
	}
	retryAt := nextRetryAt.UTC()
	evt.Status = StatusPending
	evt.Error = errMsg
	evt.NextRetryAt = &retryAt
	evt.UpdatedAt = time.Now().UTC()
	return true, nil
}

// MarkDeadLetter implements Store.
func (s *MemoryStore) MarkDeadLetter(ctx context.Context, id int64, workerID, errMsg string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrStoreClosed
	}
	evt, ok := s.heldBy(id, workerID)
	if !ok {
		return false, nil
	}
	evt.Status = StatusDeadLetter
	evt.Error = errMsg
	evt.UpdatedAt = time.Now().UTC()
	return true, nil
}

// RetryDeadLetter implements Store.
func (s *MemoryStore) RetryDeadLetter(ctx context.Context, f RetryFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	now := time.Now().UTC()
	limit := f.limit()

	var count int64
	for _, id := range s.sortedIDs() {
		if count >= int64(limit) {
			break
		}
		evt := s.events[id]
		if evt.Status != StatusDeadLetter {
			continue
		}
		if f.EventType != "" && evt.EventType != f.EventType {
			continue
		}
		if f.ConsumerGroup != "" && evt.ConsumerGroup != f.ConsumerGroup {
			continue
		}
		evt.Status = StatusPending
		evt.Attempt = 0
		evt.Error = ""
		evt.ClaimedBy = ""
		evt.ClaimedAt = nil
		evt.NextRetryAt = nil
		evt.UpdatedAt = now
		count++
	}
	return count, nil
}

// PruneCompleted implements Store.
func (s *MemoryStore) PruneCompleted(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var count int64
	for id, evt := range s.events {
		if evt.Status == StatusCompleted && evt.CompletedAt != nil && evt.CompletedAt.Before(cutoff) {
			delete(s.events, id)
			count++
		}
	}
	return count, nil
}

// PruneDeadLetter implements Store.
func (s *MemoryStore) PruneDeadLetter(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var count int64
	for id, evt := range s.events {
		if evt.Status == StatusDeadLetter && evt.UpdatedAt.Before(cutoff) {
			delete(s.events, id)
			count++
		}
	}
	return count, nil
}

// Stats implements Store.
func (s *MemoryStore) Stats(ctx context.Context) ([]GroupStatusCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	type key struct {
		group  string
		status Status
	}
	counts := make(map[key]int64)
	for _, evt := range s.events {
		counts[key{evt.ConsumerGroup, evt.Status}]++
	}

	stats := make([]GroupStatusCount, 0, len(counts))
	for k, n := range counts {
		stats = append(stats, GroupStatusCount{
			ConsumerGroup: k.group,
			Status:        k.status,
			Count:         n,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].ConsumerGroup != stats[j].ConsumerGroup {
			return stats[i].ConsumerGroup < stats[j].ConsumerGroup
		}
		return stats[i].Status < stats[j].Status
	})
	return stats, nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, f Filter) ([]*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	ids := s.sortedIDs()
	limit := f.limit()

	var result []*Event
	// Newest first.
	for i := len(ids) - 1; i >= 0 && len(result) < limit; i-- {
		evt := s.events[ids[i]]
		if f.Status != "" && evt.Status != f.Status {
			continue
		}
		if f.EventType != "" && evt.EventType != f.EventType {
			continue
		}
		if f.ConsumerGroup != "" && evt.ConsumerGroup != f.ConsumerGroup {
			continue
		}
		result = append(result, evt.Clone())
	}
	return result, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// heldBy returns the event if it is still claimed by workerID.
// Must hold the lock.
func (s *MemoryStore) heldBy(id int64, workerID string) (*Event, bool) {
	evt, ok := s.events[id]
	if !ok || evt.Status != StatusClaimed || evt.ClaimedBy != workerID {
		return nil, false
	}
	return evt, true
}

// sortedIDs returns all ids in ascending order. Must hold the lock.
func (s *MemoryStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(s.events))
	for id := range s.events {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
