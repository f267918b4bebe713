package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Config holds configuration for metrics collection.
type Config struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool `mapstructure:"enabled"`

	// Addr is the listen address of the /metrics endpoint served by the
	// mapflow binary. Empty disables the endpoint.
	Addr string `mapstructure:"addr"`

	// Registry is the Prometheus registry to use. If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer `mapstructure:"-"`
}

// DefaultConfig returns a default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Registry: prometheus.DefaultRegisterer,
	}
}

// NewRegistryFromConfig returns nil when metrics are disabled, the shared
// Default registry when no registerer is configured, and a fresh Registry
// otherwise.
func NewRegistryFromConfig(config Config) *Registry {
	if !config.Enabled {
		return nil
	}
	if config.Registry == nil || config.Registry == prometheus.DefaultRegisterer {
		return Default()
	}
	return NewRegistry(config.Registry)
}
