// Package prism compiles scalar expressions over a fixed Arrow schema into
// reusable projectors, caches them, and evaluates them against Arrow record
// batches.
//
// # Architecture
//
// A request to build a projector flows through four stages:
//
// 1. Cache key: the schema, the canonical expression strings, the selection
// mode and the configuration are folded into a projector.CacheKey.
//
// 2. Lookup: a hit in the ristretto-backed pkg/cache returns the previously
// compiled projector.
//
// 3. Build: on a miss every expression is validated (internal/validator) and
// the whole set is compiled by the backend (internal/codegen) into closure
// programs over the function kernels in internal/function.
//
// 4. Evaluate: output buffers are either supplied by the caller and checked
// against the Arrow layout rules, or allocated from a memory pool
// (pkg/layout), and the compiled routine writes validity bitmaps, offsets and
// values into them.
//
// # Quick Start
//
//	import (
//	    "context"
//
//	    "github.com/apache/arrow-go/v18/arrow"
//	    "github.com/apache/arrow-go/v18/arrow/memory"
//	    "github.com/ajitpratap0/prism/pkg/expr"
//	    "github.com/ajitpratap0/prism/pkg/projector"
//	)
//
//	factory, err := projector.NewFactory()
//	if err != nil {
//	    return err
//	}
//	defer factory.Close()
//
//	exprs := []*expr.Expression{
//	    expr.MakeExpressionFn("upper", []arrow.Field{name}, arrow.Field{Name: "upper_name", Type: arrow.BinaryTypes.String}),
//	}
//	p, err := factory.Make(ctx, schema, exprs)
//	if err != nil {
//	    return err
//	}
//	outputs, err := p.Evaluate(ctx, batch, nil, memory.DefaultAllocator)
//
// # Package Organization
//
//   - pkg/projector: factory, cache key and projector
//   - pkg/expr: expression trees and their YAML form
//   - pkg/selection: selection vectors
//   - pkg/layout: output buffer sizing, allocation and validation
//   - pkg/cache: bounded projector cache
//   - pkg/config: engine configuration and compile options
//   - pkg/errors: structured errors
//   - pkg/logger, pkg/metrics, pkg/observability: logging, Prometheus metrics
//     and OpenTelemetry tracing
//   - pkg/pool: scratch buffer pools
//   - internal/function: function registry and kernels
//   - internal/validator: expression validation
//   - internal/codegen: expression compiler and executor
//   - cmd/prism: command line interface
package prism
