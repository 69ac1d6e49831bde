package eventq

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/marketpulse/eventq/pkg/eventq/observability"
	"github.com/marketpulse/eventq/pkg/eventq/store"
)

// DefaultMaxAttempts is applied when an EmitRequest leaves MaxAttempts
// unset.
const DefaultMaxAttempts = 3

// EmitRequest describes one logical occurrence to fan out.
type EmitRequest struct {
	// EventType must be present in the producer's registry.
	EventType string

	// Payload is passed through opaquely to every consumer group.
	Payload store.Document

	// SourceService records which producer created the rows.
	SourceService string

	// CorrelationID links all rows spawned from one logical occurrence,
	// including downstream chained events. Generated when empty.
	CorrelationID string

	// MaxAttempts caps retries per row. Defaults to DefaultMaxAttempts.
	MaxAttempts int
}

// ProducerOption configures a Producer.
type ProducerOption func(*Producer)

// WithProducerLogger attaches a structured logger.
func WithProducerLogger(logger *slog.Logger) ProducerOption {
	return func(p *Producer) { p.logger = logger }
}

// WithProducerMetrics attaches a metrics recorder.
func WithProducerMetrics(m observability.MetricsRecorder) ProducerOption {
	return func(p *Producer) { p.metrics = m }
}

// Producer writes one pending event record per registered consumer group
// for each emitted occurrence, atomically.
type Producer struct {
	store    store.Store
	registry *Registry
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
}

// NewProducer creates a producer over the given store and registry.
func NewProducer(st store.Store, registry *Registry, opts ...ProducerOption) *Producer {
	p := &Producer{
		store:    st,
		registry: registry,
		metrics:  observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit fans the occurrence out to every consumer group registered for its
// event type and returns the assigned ids in insertion order. All rows
// share one correlation id and are written in a single transaction.
//
// An unknown event type is a ConfigError and writes nothing. A terminal
// event type (registered with zero consumer groups) writes nothing and
// returns an empty id list with no error.
func (p *Producer) Emit(ctx context.Context, req EmitRequest) ([]int64, error) {
	groups, ok := p.registry.ConsumerGroups(req.EventType)
	if !ok {
		return nil, &ConfigError{
			Field:   "event_type",
			Message: "unknown event type: " + req.EventType,
		}
	}
	if len(groups) == 0 {
		return []int64{}, nil
	}

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	events := make([]*store.Event, 0, len(groups))
	for _, group := range groups {
		events = append(events, &store.Event{
			EventType:     req.EventType,
			ConsumerGroup: group,
			Payload:       req.Payload,
			Status:        store.StatusPending,
			MaxAttempts:   maxAttempts,
			SourceService: req.SourceService,
			CorrelationID: correlationID,
		})
	}

	ids, err := p.store.InsertBatch(ctx, events)
	if err != nil {
		return nil, err
	}

	// Observability only; not part of the transactional contract.
	observability.LogEmit(p.logger, req.EventType, correlationID, groups)
	p.metrics.RecordEmit(ctx, req.EventType, len(groups))

	return ids, nil
}
