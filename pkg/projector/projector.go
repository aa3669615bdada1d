// Package projector compiles sets of expressions over an Arrow schema into
// reusable projectors and evaluates them against record batches.
//
// # Overview
//
// A Factory builds projectors and keeps them in a bounded cache keyed by a
// canonical fingerprint of the schema, the expressions, the selection mode
// and the configuration. Building the same expressions again returns the
// cached projector without recompiling.
//
// # Basic Usage
//
//	factory, err := projector.NewFactory()
//	if err != nil {
//	    return err
//	}
//	defer factory.Close()
//
//	sum := expr.MakeExpression(
//	    expr.MakeFunction("add", []expr.Node{expr.MakeField(a), expr.MakeLiteral(int32(1))}, arrow.PrimitiveTypes.Int32),
//	    arrow.Field{Name: "a_plus_one", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
//	)
//	p, err := factory.Make(ctx, schema, []*expr.Expression{sum})
//	if err != nil {
//	    return err
//	}
//	outputs, err := p.Evaluate(ctx, batch, nil, memory.DefaultAllocator)
//
// # Output Buffers
//
// Evaluate allocates output buffers from a memory pool and returns arrays
// the caller must release. EvaluateInto writes into caller-supplied buffer
// groups laid out as [validity bitmap, (offsets,) data], checking their
// capacity first; variable-length data buffers must be resizable.
//
// # Thread Safety
//
// Factories and projectors are safe for concurrent use.
package projector

import (
	"context"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/prism/pkg/config"
	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/layout"
	"github.com/ajitpratap0/prism/pkg/logger"
	"github.com/ajitpratap0/prism/pkg/metrics"
	"github.com/ajitpratap0/prism/pkg/observability"
	"github.com/ajitpratap0/prism/pkg/selection"
)

// Projector is a compiled set of expressions over one schema. It is
// immutable once built and is only created by a Factory.
type Projector struct {
	schema    *arrow.Schema
	fields    []arrow.Field
	config    *config.Configuration
	mode      selection.Mode
	backend   Backend
	buildTime time.Duration

	logger  *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// Schema returns the input schema.
func (p *Projector) Schema() *arrow.Schema { return p.schema }

// OutputFields returns one field per expression, in expression order.
func (p *Projector) OutputFields() []arrow.Field {
	out := make([]arrow.Field, len(p.fields))
	copy(out, p.fields)
	return out
}

// Configuration returns the configuration the projector was compiled with.
func (p *Projector) Configuration() *config.Configuration { return p.config }

// Mode returns the selection mode the projector accepts.
func (p *Projector) Mode() selection.Mode { return p.mode }

// BuildTime returns how long validation and compilation took.
func (p *Projector) BuildTime() time.Duration { return p.buildTime }

// DumpIR returns a listing of the compiled routine.
func (p *Projector) DumpIR() string { return p.backend.DumpIR() }

// EvaluateInto evaluates the projector over batch and writes the results
// into outputs, one buffer group per output field. sel may be nil, in which
// case every row is evaluated. The outputs remain owned by the caller.
func (p *Projector) EvaluateInto(ctx context.Context, batch arrow.Record, sel selection.Vector, outputs []*array.Data) (err error) {
	ctx, span := p.startEvaluate(ctx, metrics.PathCaller)
	n := 0
	defer func() { p.finishEvaluate(ctx, span, metrics.PathCaller, n, err) }()

	if n, err = p.activeRows(batch, sel); err != nil {
		return err
	}
	if len(outputs) != len(p.fields) {
		return errors.InvalidArgument("number of output buffer groups %d does not match number of output fields %d",
			len(outputs), len(p.fields))
	}
	for i, out := range outputs {
		field := p.fields[i]
		if out == nil {
			return errors.InvalidArgument("output buffer group for field %s is null", field.Name).
				WithDetail("field", field.Name)
		}
		if !arrow.TypeEqual(out.DataType(), field.Type) {
			return errors.InvalidArgument("output buffer group for field %s has type %s, expected %s",
				field.Name, out.DataType(), field.Type).
				WithDetail("field", field.Name)
		}
		if err := layout.ValidateCapacity(out, field, int64(n)); err != nil {
			return err
		}
	}
	return p.backend.Execute(batch, sel, outputs)
}

// Evaluate evaluates the projector over batch into buffers allocated from
// pool and returns one array per output field. sel may be nil. The caller
// must release the returned arrays. On failure no arrays are returned and
// everything allocated is released.
func (p *Projector) Evaluate(ctx context.Context, batch arrow.Record, sel selection.Vector, pool memory.Allocator) (arrays []arrow.Array, err error) {
	ctx, span := p.startEvaluate(ctx, metrics.PathPool)
	n := 0
	defer func() { p.finishEvaluate(ctx, span, metrics.PathPool, n, err) }()

	if n, err = p.activeRows(batch, sel); err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, errors.InvalidArgument("memory pool must be non-null")
	}

	outputs := make([]*array.Data, 0, len(p.fields))
	defer func() {
		for _, d := range outputs {
			d.Release()
		}
	}()
	for _, field := range p.fields {
		d, err := layout.Allocate(field, int64(n), pool)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, d)
	}

	if err := p.backend.Execute(batch, sel, outputs); err != nil {
		return nil, err
	}

	arrays = make([]arrow.Array, len(outputs))
	for i, d := range outputs {
		arrays[i] = array.MakeFromData(d)
	}
	return arrays, nil
}

// activeRows checks batch and returns the number of rows to evaluate.
func (p *Projector) activeRows(batch arrow.Record, sel selection.Vector) (int, error) {
	if batch == nil {
		return 0, errors.InvalidArgument("batch must be non-null")
	}
	if !batch.Schema().Equal(p.schema) {
		return 0, errors.InvalidArgument("schema mismatch: batch has %s, projector expects %s", batch.Schema(), p.schema)
	}
	if batch.NumRows() == 0 {
		return 0, errors.InvalidArgument("empty batch")
	}
	if sel != nil {
		return sel.NumSlots(), nil
	}
	return int(batch.NumRows()), nil
}

func (p *Projector) startEvaluate(ctx context.Context, path string) (context.Context, *observability.Span) {
	return observability.StartSpan(ctx, p.tracer, "projector.Evaluate",
		attribute.String("path", path),
		attribute.Int("outputs", len(p.fields)))
}

func (p *Projector) finishEvaluate(ctx context.Context, span *observability.Span, path string, rows int, err error) {
	span.SetAttribute("rows", rows)
	span.End(err)
	p.metrics.Evaluation(path, rows, err)
	if err != nil {
		logger.FromContext(ctx, p.logger).Warn("evaluation failed",
			zap.String("path", path),
			zap.Int("rows", rows),
			zap.Error(err))
	}
}
