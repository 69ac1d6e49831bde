package eventq_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketpulse/eventq/pkg/eventq"
)

func TestRegistry_Lookup(t *testing.T) {
	r := eventq.NewRegistry(map[string][]string{
		"prediction_created": {"market_data", "notifications"},
		"notification_sent":  {},
	})

	groups, ok := r.ConsumerGroups("prediction_created")
	require.True(t, ok)
	assert.Equal(t, []string{"market_data", "notifications"}, groups)

	groups, ok = r.ConsumerGroups("notification_sent")
	assert.True(t, ok, "terminal event type is still registered")
	assert.Empty(t, groups)

	_, ok = r.ConsumerGroups("unknown")
	assert.False(t, ok)

	assert.True(t, r.Has("prediction_created"))
	assert.False(t, r.Has("unknown"))
	assert.Equal(t, []string{"notification_sent", "prediction_created"}, r.Types())
}

func TestRegistry_Immutable(t *testing.T) {
	mapping := map[string][]string{
		"prediction_created": {"market_data"},
	}
	r := eventq.NewRegistry(mapping)

	// Mutating the source mapping must not leak into the registry.
	mapping["prediction_created"][0] = "changed"
	mapping["new_type"] = []string{"x"}

	groups, ok := r.ConsumerGroups("prediction_created")
	require.True(t, ok)
	assert.Equal(t, []string{"market_data"}, groups)
	assert.False(t, r.Has("new_type"))

	// Mutating a returned slice must not leak either.
	groups[0] = "changed"
	groups, _ = r.ConsumerGroups("prediction_created")
	assert.Equal(t, []string{"market_data"}, groups)
}

func TestDefaultRegistry(t *testing.T) {
	r := eventq.DefaultRegistry()

	groups, ok := r.ConsumerGroups("prediction_created")
	require.True(t, ok)
	assert.Equal(t, []string{"market_data", "notifications"}, groups)

	groups, ok = r.ConsumerGroups("notification_sent")
	assert.True(t, ok)
	assert.Empty(t, groups)
}
