package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopMetrics_ImplementsInterface(t *testing.T) {
	var _ MetricsRecorder = NoopMetrics{}
}

func TestNoopMetrics_DoesNotPanic(t *testing.T) {
	m := NoopMetrics{}
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordEmit(ctx, "prediction_created", 2)
		m.RecordClaim(ctx, "notifications", 10)
		m.RecordProcessed(ctx, "notifications", "prediction_created", 100*time.Millisecond, nil)
		m.RecordProcessed(ctx, "notifications", "prediction_created", 0, errors.New("test"))
		m.RecordDeadLetter(ctx, "notifications", "prediction_created")
	})

	t.Run("nil context", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordEmit(nil, "", 0)
			m.RecordClaim(nil, "", 0)
			m.RecordProcessed(nil, "", "", 0, nil)
			m.RecordDeadLetter(nil, "", "")
		})
	})
}
