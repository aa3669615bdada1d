package config

import (
	"fmt"

	"github.com/segmentio/fasthash/fnv1a"
)

// Configuration is the immutable set of options a projector is compiled
// with. Two configurations that compare Equal produce interchangeable
// compiled routines, so the configuration hash is part of the cache key.
type Configuration struct {
	optimize      bool
	targetHostCPU bool
}

// Optimize reports whether build-time optimizations (constant folding,
// pattern precompilation) are enabled.
func (c *Configuration) Optimize() bool { return c.optimize }

// TargetHostCPU reports whether kernels may specialize for the host CPU.
func (c *Configuration) TargetHostCPU() bool { return c.targetHostCPU }

// Hash returns the content hash of the configuration.
func (c *Configuration) Hash() uint64 {
	h := fnv1a.Init64
	h = fnv1a.AddUint64(h, boolBits(c.optimize))
	h = fnv1a.AddUint64(h, boolBits(c.targetHostCPU))
	return h
}

// Equal reports value equality.
func (c *Configuration) Equal(other *Configuration) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.optimize == other.optimize && c.targetHostCPU == other.targetHostCPU
}

func (c *Configuration) String() string {
	return fmt.Sprintf("Configuration{optimize=%t, target_host_cpu=%t}", c.optimize, c.targetHostCPU)
}

func boolBits(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Builder assembles a Configuration.
type Builder struct {
	cfg Configuration
}

// NewBuilder returns a builder seeded with the default options.
func NewBuilder() *Builder {
	return &Builder{cfg: Configuration{optimize: true, targetHostCPU: true}}
}

// WithOptimize toggles build-time optimizations.
func (b *Builder) WithOptimize(optimize bool) *Builder {
	b.cfg.optimize = optimize
	return b
}

// WithTargetHostCPU toggles host CPU specialization.
func (b *Builder) WithTargetHostCPU(target bool) *Builder {
	b.cfg.targetHostCPU = target
	return b
}

// Build returns a new immutable Configuration.
func (b *Builder) Build() *Configuration {
	cfg := b.cfg
	return &cfg
}

// Default returns the default configuration. Each call returns a fresh
// value; all of them are Equal.
func Default() *Configuration {
	return NewBuilder().Build()
}
