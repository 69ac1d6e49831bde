package eventq

import (
	"context"

	"github.com/marketpulse/eventq/pkg/eventq/store"
)

// Consumer is the capability a worker is built around: a fixed consumer
// group name and a handler for claimed payloads. Implementations are
// composed into a Worker rather than inherited from.
//
// Process receives the event type and the opaque payload and returns an
// optional result document. A returned error is routine control flow: the
// record retries with backoff or dead-letters once its attempts are
// exhausted. Errors never crash the poll loop.
type Consumer interface {
	ConsumerGroup() string
	Process(ctx context.Context, eventType string, payload store.Document) (store.Document, error)
}

// ProcessFunc is the handler signature for function-based consumers.
type ProcessFunc func(ctx context.Context, eventType string, payload store.Document) (store.Document, error)

// NewConsumer adapts a function to the Consumer interface.
func NewConsumer(group string, fn ProcessFunc) Consumer {
	return &funcConsumer{group: group, fn: fn}
}

type funcConsumer struct {
	group string
	fn    ProcessFunc
}

func (c *funcConsumer) ConsumerGroup() string {
	return c.group
}

func (c *funcConsumer) Process(ctx context.Context, eventType string, payload store.Document) (store.Document, error) {
	return c.fn(ctx, eventType, payload)
}
