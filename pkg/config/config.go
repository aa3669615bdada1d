package config

import (
	"fmt"

	"github.com/ajitpratap0/prism/pkg/logger"
)

// EngineConfig is the process-level configuration of a projector factory.
// It is organized into sections:
//   - Cache: capacity of the compiled projector cache
//   - Build: cache-key sharding and build deduplication
//   - Codegen: settings that flow into every compiled Configuration
//   - Logging, Metrics, Tracing: observability
type EngineConfig struct {
	// Cache settings for the compiled projector cache
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Build controls how cache misses are compiled
	Build BuildConfig `yaml:"build" mapstructure:"build"`

	// Codegen settings become the default Configuration
	Codegen CodegenConfig `yaml:"codegen" mapstructure:"codegen"`

	// Logging configures the zap logger
	Logging logger.Config `yaml:"logging" mapstructure:"logging"`

	// Metrics configures prometheus collectors
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`

	// Tracing configures OpenTelemetry spans
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
}

// CacheConfig sizes the projector cache.
type CacheConfig struct {
	// Capacity is the maximum number of cached projectors
	Capacity int64 `yaml:"capacity" mapstructure:"capacity"`
	// Counters is the number of frequency counters kept by the admission
	// policy; zero means ten per cached entry
	Counters int64 `yaml:"counters" mapstructure:"counters"`
}

// BuildConfig controls the build pipeline.
type BuildConfig struct {
	// SingleFlight makes concurrent misses on the same key share one compilation
	SingleFlight bool `yaml:"single_flight" mapstructure:"single_flight"`
	// PatternShards is the number of cache shards used for pattern-matching
	// expressions; 1 disables sharding
	PatternShards int `yaml:"pattern_shards" mapstructure:"pattern_shards"`
}

// CodegenConfig mirrors the Configuration options.
type CodegenConfig struct {
	Optimize      bool `yaml:"optimize" mapstructure:"optimize"`
	TargetHostCPU bool `yaml:"target_host_cpu" mapstructure:"target_host_cpu"`
}

// MetricsConfig configures prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" mapstructure:"enabled"`
	Exporter     string  `yaml:"exporter" mapstructure:"exporter"` // "stdout" or "none"
	SamplingRate float64 `yaml:"sampling_rate" mapstructure:"sampling_rate"`
}

const (
	// DefaultCacheCapacity is the default number of cached projectors
	DefaultCacheCapacity = 5000
	// DefaultPatternShards is the default number of shards for pattern expressions
	DefaultPatternShards = 16
)

// DefaultEngineConfig returns the configuration used when nothing is loaded.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Cache: CacheConfig{
			Capacity: DefaultCacheCapacity,
		},
		Build: BuildConfig{
			SingleFlight:  false,
			PatternShards: DefaultPatternShards,
		},
		Codegen: CodegenConfig{
			Optimize:      true,
			TargetHostCPU: true,
		},
		Logging: logger.Config{
			Level:    "info",
			Encoding: "json",
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "prism",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "stdout",
			SamplingRate: 1.0,
		},
	}
}

// Validate checks that values are within acceptable ranges.
func (c *EngineConfig) Validate() error {
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache.capacity must be positive")
	}
	if c.Cache.Counters < 0 {
		return fmt.Errorf("cache.counters cannot be negative")
	}
	if c.Build.PatternShards <= 0 {
		return fmt.Errorf("build.pattern_shards must be positive")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return fmt.Errorf("tracing.sampling_rate must be within [0, 1]")
	}
	switch c.Tracing.Exporter {
	case "", "stdout", "none":
	default:
		return fmt.Errorf("tracing.exporter %q is not supported", c.Tracing.Exporter)
	}
	return nil
}

// Configuration derives the codegen Configuration from the Codegen section.
func (c *EngineConfig) Configuration() *Configuration {
	return NewBuilder().
		WithOptimize(c.Codegen.Optimize).
		WithTargetHostCPU(c.Codegen.TargetHostCPU).
		Build()
}

// CounterCount returns the admission counter count, defaulting to ten per entry.
func (c *CacheConfig) CounterCount() int64 {
	if c.Counters <= 0 {
		return c.Capacity * 10
	}
	return c.Counters
}
