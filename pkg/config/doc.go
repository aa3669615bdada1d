// Package config holds the two kinds of configuration used by prism.
//
// # Configuration
//
// Configuration is the immutable option set a projector is compiled with.
// It exposes a content hash and value equality and is therefore part of the
// projector cache key:
//
//	cfg := config.NewBuilder().WithOptimize(false).Build()
//	p, err := factory.MakeWithConfig(ctx, schema, exprs, cfg)
//
// # EngineConfig
//
// EngineConfig configures a projector factory: cache capacity, build
// deduplication, logging, metrics and tracing. It is loaded from YAML with
// ${VAR} substitution and PRISM_* environment overrides:
//
//	cfg, err := config.Load("prism.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	factory, err := projector.NewFactoryFromConfig(cfg)
//
// Example file:
//
//	cache:
//	  capacity: 500
//	build:
//	  single_flight: true
//	  pattern_shards: 8
//	codegen:
//	  optimize: true
//	logging:
//	  level: ${PRISM_LOG_LEVEL}
package config
