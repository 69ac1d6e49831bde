package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHandler captures log records for testing.
type testHandler struct {
	buf   *bytes.Buffer
	level slog.Level
	attrs []slog.Attr
}

func newTestHandler() *testHandler {
	return &testHandler{
		buf:   &bytes.Buffer{},
		level: slog.LevelDebug,
	}
}

func (h *testHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *testHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, attr := range h.attrs {
		data[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	enc := json.NewEncoder(h.buf)
	return enc.Encode(data)
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newH := &testHandler{
		buf:   h.buf,
		level: h.level,
		attrs: make([]slog.Attr, len(h.attrs)+len(attrs)),
	}
	copy(newH.attrs, h.attrs)
	copy(newH.attrs[len(h.attrs):], attrs)
	return newH
}

func (h *testHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *testHandler) getLastRecord() map[string]any {
	lines := bytes.Split(h.buf.Bytes(), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if len(lines[i]) > 0 {
			var m map[string]any
			if err := json.Unmarshal(lines[i], &m); err == nil {
				return m
			}
		}
	}
	return nil
}

func TestLogEmit(t *testing.T) {
	t.Run("logs type, correlation, and fan-out", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		LogEmit(logger, "prediction_created", "corr-1", []string{"market_data", "notifications"})

		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "event emitted", record["msg"])
		assert.Equal(t, "prediction_created", record["event_type"])
		assert.Equal(t, "corr-1", record["correlation_id"])
		assert.Equal(t, float64(2), record["fanout"])
	})

	t.Run("nil logger is safe", func(t *testing.T) {
		assert.NotPanics(t, func() {
			LogEmit(nil, "prediction_created", "corr-1", nil)
		})
	})
}

func TestLogWorkerLifecycle(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogWorkerStart(logger, "notifications", "worker-1", 5*time.Second, 10)
	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "worker starting", record["msg"])
	assert.Equal(t, "notifications", record["consumer_group"])
	assert.Equal(t, "worker-1", record["worker_id"])

	LogWorkerStop(logger, "notifications", "worker-1")
	record = h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "worker stopping", record["msg"])
}

func TestLogEventOutcomes(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogEventCompleted(logger, 42, "analysis_completed", 12.5)
	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "DEBUG", record["level"])
	assert.Equal(t, float64(42), record["event_id"])

	LogEventRetry(logger, 42, "analysis_completed", 1, time.Now().Add(time.Minute), errors.New("boom"))
	record = h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "boom", record["error"])
	assert.Equal(t, float64(1), record["attempt"])

	LogEventDeadLettered(logger, 42, "analysis_completed", 3, errors.New("gone"))
	record = h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "gone", record["error"])
}

func TestLogHelpers_NilLoggerSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		LogWorkerStart(nil, "g", "w", time.Second, 1)
		LogWorkerStop(nil, "g", "w")
		LogBatchClaimed(nil, "g", "w", 3)
		LogEventCompleted(nil, 1, "t", 1.0)
		LogEventRetry(nil, 1, "t", 1, time.Now(), errors.New("x"))
		LogEventDeadLettered(nil, 1, "t", 1, errors.New("x"))
		LogEventSkipped(nil, 1, "completed")
		LogStoreError(nil, "claim_batch", errors.New("x"))
		LogPrune(nil, "completed", 0, time.Hour)
		LogRetryDeadLetter(nil, 0, "", "")
	})
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(5 * time.Millisecond)
	elapsed := done()
	assert.GreaterOrEqual(t, elapsed, float64(0))
}
