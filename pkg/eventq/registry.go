package eventq

import "sort"

// Registry is the immutable mapping from event type to the ordered list
// of consumer groups that receive a copy on fan-out. It is constructed
// once at process start and passed explicitly into the Producer.
//
// An event type mapped to an empty list is a valid terminal type: emitting
// it writes nothing. An event type absent from the registry is a
// configuration error at emit time.
type Registry struct {
	groups map[string][]string
}

// NewRegistry builds a registry from the given mapping. The mapping is
// copied; later changes to the argument do not affect the registry.
func NewRegistry(mapping map[string][]string) *Registry {
	groups := make(map[string][]string, len(mapping))
	for eventType, consumers := range mapping {
		groups[eventType] = append([]string(nil), consumers...)
	}
	return &Registry{groups: groups}
}

// ConsumerGroups returns the consumer groups registered for eventType, in
// fan-out order, and whether the event type is known. The returned slice
// is a copy.
func (r *Registry) ConsumerGroups(eventType string) ([]string, bool) {
	consumers, ok := r.groups[eventType]
	if !ok {
		return nil, false
	}
	return append([]string(nil), consumers...), true
}

// Has reports whether eventType is registered.
func (r *Registry) Has(eventType string) bool {
	_, ok := r.groups[eventType]
	return ok
}

// Types returns all registered event types in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.groups))
	for t := range r.groups {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultRegistry returns the fan-out mapping for the prediction
// pipeline. Terminal types carry an empty list on purpose.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string][]string{
		"prediction_created": {"market_data", "notifications"},
		"prediction_stored":  {"analysis"},
		"analysis_completed": {"notifications"},
		"backfill_requested": {"harvesting"},
		"notification_sent":  {},
	})
}
