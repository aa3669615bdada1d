package projector

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ajitpratap0/prism/pkg/cache"
	"github.com/ajitpratap0/prism/pkg/config"
	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/expr"
	"github.com/ajitpratap0/prism/pkg/logger"
	"github.com/ajitpratap0/prism/pkg/metrics"
	"github.com/ajitpratap0/prism/pkg/observability"
	"github.com/ajitpratap0/prism/pkg/selection"
)

// Cache is the store a Factory keeps projectors in.
type Cache = cache.Cache[*CacheKey, *Projector]

// NewCache returns a projector cache holding at most capacity projectors.
func NewCache(capacity int64) (*Cache, error) {
	return cache.New[*CacheKey, *Projector](cache.Config{Capacity: capacity, Metrics: true})
}

// Factory builds projectors and caches them. It is safe for concurrent use.
type Factory struct {
	cache        *Cache
	ownsCache    bool
	newBackend   BackendFactory
	disambiguate Disambiguator
	config       *config.Configuration

	singleFlight bool
	group        singleflight.Group

	logger  *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// Option configures a Factory.
type Option func(*Factory)

// WithCache makes the factory use c instead of a cache of its own. The
// caller keeps ownership of c.
func WithCache(c *Cache) Option {
	return func(f *Factory) { f.cache = c }
}

// WithBackend sets the backend factory. The default is the built-in closure
// compiler.
func WithBackend(b BackendFactory) Option {
	return func(f *Factory) { f.newBackend = b }
}

// WithDisambiguator sets how cache keys are spread over shards.
func WithDisambiguator(d Disambiguator) Option {
	return func(f *Factory) { f.disambiguate = d }
}

// WithConfiguration sets the configuration Make compiles with.
func WithConfiguration(cfg *config.Configuration) Option {
	return func(f *Factory) { f.config = cfg }
}

// WithSingleFlight makes concurrent misses on the same key share one build.
func WithSingleFlight(enabled bool) Option {
	return func(f *Factory) { f.singleFlight = enabled }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Factory) { f.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(f *Factory) { f.metrics = c }
}

// WithTracer sets the tracer. The default is the global prism tracer.
func WithTracer(t trace.Tracer) Option {
	return func(f *Factory) { f.tracer = t }
}

// NewFactory creates a factory. Without WithCache it owns a cache of
// config.DefaultCacheCapacity projectors, released by Close.
func NewFactory(opts ...Option) (*Factory, error) {
	f := &Factory{}
	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = logger.Get().Named("projector")
	}
	if f.cache == nil {
		c, err := NewCache(config.DefaultCacheCapacity)
		if err != nil {
			return nil, err
		}
		f.cache = c
		f.ownsCache = true
	}
	if f.newBackend == nil {
		f.newBackend = CodegenBackend(f.logger.Named("codegen"))
	}
	if f.disambiguate == nil {
		f.disambiguate = DefaultDisambiguator()
	}
	if f.config == nil {
		f.config = config.Default()
	}
	if f.tracer == nil {
		f.tracer = observability.Tracer()
	}
	return f, nil
}

// NewFactoryFromConfig creates a factory from an engine configuration.
// Options are applied after the configuration and take precedence. When
// metrics are enabled and no collector is given, one is registered on
// prometheus.DefaultRegisterer.
func NewFactoryFromConfig(cfg *config.EngineConfig, opts ...Option) (*Factory, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("engine configuration must be non-null")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid engine configuration")
	}

	c, err := cache.New[*CacheKey, *Projector](cache.Config{
		Capacity: cfg.Cache.Capacity,
		Counters: cfg.Cache.CounterCount(),
		Metrics:  true,
	})
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithCache(c),
		WithConfiguration(cfg.Configuration()),
		WithSingleFlight(cfg.Build.SingleFlight),
		WithDisambiguator(ShardedDisambiguator(uint32(cfg.Build.PatternShards), ContainsLike)),
	}
	f, err := NewFactory(append(base, opts...)...)
	if err != nil {
		c.Close()
		return nil, err
	}
	if f.cache == c {
		f.ownsCache = true
	} else {
		c.Close()
	}

	if cfg.Metrics.Enabled && f.metrics == nil {
		collector, err := metrics.NewCollector(prometheus.DefaultRegisterer, cfg.Metrics.Namespace)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to register metrics")
		}
		f.metrics = collector
	}
	return f, nil
}

// Close releases the factory's own cache.
func (f *Factory) Close() {
	if f.ownsCache {
		f.cache.Close()
	}
}

// Cache returns the cache the factory stores projectors in.
func (f *Factory) Cache() *Cache { return f.cache }

// Make builds a projector for exprs over schema with the factory's
// configuration and no selection vector.
func (f *Factory) Make(ctx context.Context, schema *arrow.Schema, exprs []*expr.Expression) (*Projector, error) {
	return f.MakeWithMode(ctx, schema, exprs, selection.ModeNone, f.config)
}

// MakeWithConfig builds a projector for exprs over schema with cfg and no
// selection vector.
func (f *Factory) MakeWithConfig(ctx context.Context, schema *arrow.Schema, exprs []*expr.Expression, cfg *config.Configuration) (*Projector, error) {
	return f.MakeWithMode(ctx, schema, exprs, selection.ModeNone, cfg)
}

// MakeWithMode builds a projector for exprs over schema with cfg that
// accepts selection vectors of the given mode. A cached projector for the
// same key is returned without rebuilding.
func (f *Factory) MakeWithMode(ctx context.Context, schema *arrow.Schema, exprs []*expr.Expression, mode selection.Mode, cfg *config.Configuration) (p *Projector, err error) {
	if schema == nil {
		return nil, errors.InvalidArgument("schema must be non-null")
	}
	if len(exprs) == 0 {
		return nil, errors.InvalidArgument("expressions must be non-empty")
	}
	for i, e := range exprs {
		if e == nil {
			return nil, errors.InvalidArgument("expression %d must be non-null", i)
		}
	}
	if cfg == nil {
		return nil, errors.InvalidArgument("configuration must be non-null")
	}

	ctx, span := observability.StartSpan(ctx, f.tracer, "projector.Make",
		attribute.Int("expressions", len(exprs)),
		attribute.String("mode", mode.String()))
	defer func() { span.End(err) }()

	strs := make([]string, len(exprs))
	for i, e := range exprs {
		strs[i] = e.String()
	}
	key := newCacheKey(schema, cfg, strs, mode, f.disambiguate(ctx, strs))
	log := logger.FromContext(ctx, f.logger).With(zap.Uint64("key", key.Hash()))

	if cached, ok := f.cache.GetModule(key); ok {
		f.metrics.CacheLookup(true)
		span.SetAttribute("cache.hit", true)
		log.Debug("projector cache hit")
		return cached, nil
	}
	f.metrics.CacheLookup(false)
	span.SetAttribute("cache.hit", false)
	log.Debug("projector cache miss", zap.Uint32("uniqifier", key.Uniqifier()))

	if !f.singleFlight {
		return f.build(ctx, key, schema, exprs, mode, cfg)
	}
	v, err, shared := f.group.Do(key.Fingerprint(), func() (interface{}, error) {
		return f.build(ctx, key, schema, exprs, mode, cfg)
	})
	span.SetAttribute("build.shared", shared)
	if err != nil {
		return nil, err
	}
	return v.(*Projector), nil
}

// build validates and compiles exprs and inserts the result under key.
func (f *Factory) build(ctx context.Context, key *CacheKey, schema *arrow.Schema, exprs []*expr.Expression, mode selection.Mode, cfg *config.Configuration) (*Projector, error) {
	log := logger.FromContext(ctx, f.logger).With(zap.Uint64("key", key.Hash()))
	timer := metrics.NewTimer()

	backend, err := f.newBackend(schema, cfg)
	if err != nil {
		f.metrics.Build(timer.Stop(), err)
		log.Warn("failed to create backend", zap.Error(err))
		return nil, err
	}

	v := backend.Validator(schema)
	for i, e := range exprs {
		if err := v.Validate(e); err != nil {
			f.metrics.Build(timer.Stop(), err)
			log.Warn("expression failed validation", zap.Int("index", i), zap.String("expression", e.String()), zap.Error(err))
			return nil, err
		}
	}

	if err := backend.Build(exprs, mode); err != nil {
		f.metrics.Build(timer.Stop(), err)
		log.Warn("failed to compile expressions", zap.Error(err))
		return nil, err
	}
	buildTime := timer.Stop()

	fields := make([]arrow.Field, len(exprs))
	for i, e := range exprs {
		fields[i] = e.Result
	}

	p := &Projector{
		schema:    schema,
		fields:    fields,
		config:    cfg,
		mode:      mode,
		backend:   backend,
		buildTime: buildTime,
		logger:    f.logger,
		metrics:   f.metrics,
		tracer:    f.tracer,
	}
	f.cache.PutModule(key, cache.Value[*Projector]{Module: p, BuildTime: buildTime})
	f.metrics.Build(buildTime, nil)

	log.Info("built projector",
		zap.Int("expressions", len(exprs)),
		zap.Stringer("mode", mode),
		zap.Duration("build_time", buildTime))
	return p, nil
}

func (f *Factory) String() string {
	return fmt.Sprintf("Factory{config=%s, single_flight=%t}", f.config, f.singleFlight)
}
