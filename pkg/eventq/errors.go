package eventq

import (
	"errors"
	"fmt"
)

// ConfigError indicates invalid queue configuration: an event type missing
// from the registry, or a worker without a consumer group. It is raised
// synchronously to the caller; no partial state is written.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// IsConfigError reports whether err is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
