package eventq

import "time"

const (
	backoffBase = 30 * time.Second
	backoffCap  = time.Hour
)

// Backoff returns the retry delay after the given attempt number
// (1-based, the value recorded at claim time): base * 2^attempt, capped.
// The delay grows strictly until the cap, so successive failures of one
// record push next_retry_at monotonically further out.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// 30s << 7 already exceeds the cap; larger shifts would overflow.
	if attempt > 7 {
		return backoffCap
	}
	d := backoffBase << uint(attempt)
	if d > backoffCap {
		return backoffCap
	}
	return d
}

// NextRetryAt computes the earliest re-claim time for a record that
// failed at failedAt on the given attempt.
func NextRetryAt(failedAt time.Time, attempt int) time.Time {
	return failedAt.UTC().Add(Backoff(attempt))
}
