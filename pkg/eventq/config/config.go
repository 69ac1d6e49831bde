// Package config loads event queue configuration from YAML or JSON files.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for config files. It accepts a duration
// string ("5s", "1m30s") or a bare number interpreted as seconds.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := coerceDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	raw, err := decodeJSONScalar(data)
	if err != nil {
		return err
	}
	parsed, err := coerceDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func coerceDuration(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("parse duration %q: %w", v, err)
		}
		return parsed, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("invalid duration value: %v", raw)
	}
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres". Default: sqlite.
	Driver string `yaml:"driver" json:"driver"`

	// Path is the SQLite database file. Default: eventq.db.
	Path string `yaml:"path" json:"path"`

	// URL is the Postgres connection URL (postgres driver only).
	URL string `yaml:"url" json:"url"`
}

// WorkerConfig holds worker loop defaults.
type WorkerConfig struct {
	PollInterval Duration `yaml:"poll_interval" json:"poll_interval"`
	BatchSize    int      `yaml:"batch_size" json:"batch_size"`
	MaxAttempts  int      `yaml:"max_attempts" json:"max_attempts"`
}

// Config is the full configuration document.
type Config struct {
	Store  StoreConfig `yaml:"store" json:"store"`
	Worker WorkerConfig `yaml:"worker" json:"worker"`

	// Registry maps event types to their consumer groups. An empty list
	// declares a terminal event type.
	Registry map[string][]string `yaml:"registry" json:"registry"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "eventq.db",
		},
		Worker: WorkerConfig{
			PollInterval: Duration(5 * time.Second),
			BatchSize:    10,
			MaxAttempts:  3,
		},
	}
}

// applyDefaults fills unset fields from Default.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Store.Driver == "" {
		c.Store.Driver = def.Store.Driver
	}
	if c.Store.Path == "" {
		c.Store.Path = def.Store.Path
	}
	if c.Worker.PollInterval <= 0 {
		c.Worker.PollInterval = def.Worker.PollInterval
	}
	if c.Worker.BatchSize <= 0 {
		c.Worker.BatchSize = def.Worker.BatchSize
	}
	if c.Worker.MaxAttempts <= 0 {
		c.Worker.MaxAttempts = def.Worker.MaxAttempts
	}
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("sqlite driver requires store.path")
		}
	case "postgres":
		if c.Store.URL == "" {
			return fmt.Errorf("postgres driver requires store.url")
		}
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	return nil
}
