// Package metrics provides Prometheus instrumentation for the projector
// factory and the projectors it builds.
//
// # Overview
//
// A Collector owns one set of projector metrics and registers them on the
// prometheus.Registerer it is given. No metric is registered globally, so
// several factories (or tests) can each own a collector on their own
// registry.
//
// # Basic Usage
//
//	reg := prometheus.NewRegistry()
//	collector, err := metrics.NewCollector(reg, "prism")
//	if err != nil {
//	    return err
//	}
//	factory, err := projector.NewFactory(projector.WithMetrics(collector))
//
// # Metrics
//
//	<ns>_cache_lookups_total{result="hit|miss"}
//	<ns>_builds_total{status="success|failure"}
//	<ns>_build_duration_seconds
//	<ns>_evaluations_total{path="caller|pool",status="success|failure"}
//	<ns>_rows_evaluated_total
//
// A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Label values.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"

	StatusSuccess = "success"
	StatusFailure = "failure"

	// PathCaller is an evaluation into caller-supplied buffers.
	PathCaller = "caller"
	// PathPool is an evaluation into pool-allocated buffers.
	PathPool = "pool"
)

// DefaultNamespace prefixes every metric name when none is given.
const DefaultNamespace = "prism"

// Collector records projector cache, build and evaluation metrics.
type Collector struct {
	cacheLookups  *prometheus.CounterVec // Cache lookups by result
	builds        *prometheus.CounterVec // Builds by status
	buildDuration prometheus.Histogram   // Wall time of successful builds
	evaluations   *prometheus.CounterVec // Evaluations by path and status
	rowsEvaluated prometheus.Counter     // Active rows of successful evaluations
}

// NewCollector creates the projector metrics under namespace and registers
// them on reg.
//
// Example:
//
//	collector, err := metrics.NewCollector(prometheus.DefaultRegisterer, "prism")
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Projector cache lookups",
			},
			[]string{"result"},
		),
		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_total",
				Help:      "Projector builds",
			},
			[]string{"status"},
		),
		buildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "build_duration_seconds",
				Help:      "Time spent validating and compiling a projector",
				Buckets: []float64{
					1e-5, // 10μs - trivial expressions
					1e-4, // 100μs
					1e-3, // 1ms - typical expression sets
					1e-2, // 10ms
					1e-1, // 100ms - large expression sets
					1,    // 1s
				},
			},
		),
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Projector evaluations",
			},
			[]string{"path", "status"},
		),
		rowsEvaluated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_evaluated_total",
				Help:      "Active rows evaluated by projectors",
			},
		),
	}

	if reg != nil {
		for _, m := range []prometheus.Collector{c.cacheLookups, c.builds, c.buildDuration, c.evaluations, c.rowsEvaluated} {
			if err := reg.Register(m); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// CacheLookup records a cache hit or miss.
func (c *Collector) CacheLookup(hit bool) {
	if c == nil {
		return
	}
	result := ResultMiss
	if hit {
		result = ResultHit
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

// Build records a build outcome. The duration is observed only for
// successful builds.
func (c *Collector) Build(d time.Duration, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.builds.WithLabelValues(StatusFailure).Inc()
		return
	}
	c.builds.WithLabelValues(StatusSuccess).Inc()
	c.buildDuration.Observe(d.Seconds())
}

// Evaluation records an evaluation outcome on path over rows active rows.
func (c *Collector) Evaluation(path string, rows int, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.evaluations.WithLabelValues(path, StatusFailure).Inc()
		return
	}
	c.evaluations.WithLabelValues(path, StatusSuccess).Inc()
	c.rowsEvaluated.Add(float64(rows))
}

// Timer measures the duration of an operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the time elapsed since the timer started. It can be called
// more than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
