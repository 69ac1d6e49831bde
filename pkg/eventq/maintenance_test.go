package eventq_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketpulse/eventq/pkg/eventq"
	"github.com/marketpulse/eventq/pkg/eventq/store"
)

// drainAll runs a consumer over the backlog until empty.
func drainAll(t *testing.T, st store.Store, group string, fn eventq.ProcessFunc) int {
	t.Helper()
	worker, err := eventq.NewWorker(st, eventq.NewConsumer(group, fn), eventq.WorkerConfig{})
	require.NoError(t, err)
	total, err := worker.Drain(context.Background())
	require.NoError(t, err)
	return total
}

func TestMaintenance_PruneCompleted(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	producer := eventq.NewProducer(st, testRegistry())
	ctx := context.Background()

	emitN(t, producer, "analysis_completed", 3)
	drainAll(t, st, "notifications", func(context.Context, string, store.Document) (store.Document, error) {
		return nil, nil
	})

	maint := eventq.NewMaintenance(st)

	// A wide retention window keeps freshly completed records.
	n, err := maint.PruneCompleted(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Zero retention removes everything already completed.
	n, err = maint.PruneCompleted(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	remaining, err := st.List(ctx, store.Filter{Status: store.StatusCompleted})
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestMaintenance_PruneCompletedLeavesOtherStatuses(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	producer := eventq.NewProducer(st, testRegistry())
	ctx := context.Background()

	emitN(t, producer, "analysis_completed", 2)

	maint := eventq.NewMaintenance(st)
	n, err := maint.PruneCompleted(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	pending, err := st.List(ctx, store.Filter{Status: store.StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestMaintenance_PruneDeadLetter(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	producer := eventq.NewProducer(st, testRegistry())
	ctx := context.Background()

	_, err := producer.Emit(ctx, eventq.EmitRequest{
		EventType:   "analysis_completed",
		MaxAttempts: 1,
	})
	require.NoError(t, err)
	drainAll(t, st, "notifications", func(context.Context, string, store.Document) (store.Document, error) {
		return nil, errors.New("permanent failure")
	})

	maint := eventq.NewMaintenance(st)

	n, err := maint.PruneDeadLetter(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = maint.PruneDeadLetter(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMaintenance_RetryDeadLetterRequeues(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	producer := eventq.NewProducer(st, testRegistry())
	ctx := context.Background()

	ids, err := producer.Emit(ctx, eventq.EmitRequest{
		EventType:   "analysis_completed",
		MaxAttempts: 1,
	})
	require.NoError(t, err)
	drainAll(t, st, "notifications", func(context.Context, string, store.Document) (store.Document, error) {
		return nil, errors.New("transient after all")
	})

	maint := eventq.NewMaintenance(st)
	n, err := maint.RetryDeadLetter(ctx, store.RetryFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	evt, err := st.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, evt.Status)
	assert.Zero(t, evt.Attempt)
	assert.Empty(t, evt.Error)
	assert.Nil(t, evt.NextRetryAt)
	assert.Empty(t, evt.ClaimedBy)

	// The re-queued record is immediately processable.
	total := drainAll(t, st, "notifications", func(context.Context, string, store.Document) (store.Document, error) {
		return nil, nil
	})
	assert.Equal(t, 1, total)

	evt, err = st.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, evt.Status)
}

func TestMaintenance_Stats(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	producer := eventq.NewProducer(st, testRegistry())
	ctx := context.Background()

	emitN(t, producer, "analysis_completed", 2)
	_, err := producer.Emit(ctx, eventq.EmitRequest{EventType: "prediction_created"})
	require.NoError(t, err)

	maint := eventq.NewMaintenance(st)
	stats, err := maint.Stats(ctx)
	require.NoError(t, err)

	counts := map[string]int64{}
	for _, s := range stats {
		counts[s.ConsumerGroup+"/"+string(s.Status)] = s.Count
	}
	assert.Equal(t, int64(3), counts["notifications/pending"])
	assert.Equal(t, int64(1), counts["market_data/pending"])
}
