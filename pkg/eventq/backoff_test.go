package eventq_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/marketpulse/eventq/pkg/eventq"
)

func TestBackoff_Exponential(t *testing.T) {
	assert.Equal(t, 60*time.Second, eventq.Backoff(1))
	assert.Equal(t, 120*time.Second, eventq.Backoff(2))
	assert.Equal(t, 240*time.Second, eventq.Backoff(3))
}

func TestBackoff_CappedAtOneHour(t *testing.T) {
	assert.Equal(t, time.Hour, eventq.Backoff(7))
	assert.Equal(t, time.Hour, eventq.Backoff(8))
	assert.Equal(t, time.Hour, eventq.Backoff(1000))
}

func TestBackoff_MonotonicallyNonDecreasing(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 0; attempt <= 20; attempt++ {
		d := eventq.Backoff(attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		assert.LessOrEqual(t, d, time.Hour)
		prev = d
	}
}

func TestBackoff_NegativeAttempt(t *testing.T) {
	assert.Equal(t, 30*time.Second, eventq.Backoff(-1))
	assert.Equal(t, 30*time.Second, eventq.Backoff(0))
}

func TestNextRetryAt(t *testing.T) {
	failedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, failedAt.Add(60*time.Second), eventq.NextRetryAt(failedAt, 1))
	assert.Equal(t, failedAt.Add(time.Hour), eventq.NextRetryAt(failedAt, 10))
}
