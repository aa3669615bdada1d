// Package codegen compiles validated expressions into executable programs
// and runs them over record batches.
//
// Each expression is lowered into a tree of closures over widened column
// vectors, alongside a textual instruction listing returned by DumpIR. With
// Configuration.Optimize set, subtrees made only of literals are evaluated
// once at build time and LIKE patterns are compiled once.
package codegen

import (
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"github.com/ajitpratap0/prism/internal/function"
	"github.com/ajitpratap0/prism/internal/validator"
	"github.com/ajitpratap0/prism/pkg/config"
	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/expr"
	"github.com/ajitpratap0/prism/pkg/selection"
)

// Generator compiles one set of expressions over one schema. Build must be
// called exactly once; afterwards the generator is read-only and Execute may
// be called concurrently.
type Generator struct {
	schema   *arrow.Schema
	config   *config.Configuration
	registry *function.Registry
	logger   *zap.Logger

	built    bool
	mode     selection.Mode
	programs []*program
	ir       string
}

// Option configures a Generator.
type Option func(*Generator)

// WithRegistry sets the function registry. The default is function.Default().
func WithRegistry(r *function.Registry) Option {
	return func(g *Generator) { g.registry = r }
}

// WithLogger sets the logger used for build diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// New returns a generator for expressions over schema.
func New(schema *arrow.Schema, cfg *config.Configuration, opts ...Option) *Generator {
	if cfg == nil {
		cfg = config.Default()
	}
	g := &Generator{
		schema:   schema,
		config:   cfg,
		registry: function.Default(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Types returns the data types the generator can evaluate.
func (g *Generator) Types() []arrow.DataType {
	return []arrow.DataType{
		arrow.FixedWidthTypes.Boolean,
		arrow.PrimitiveTypes.Int8, arrow.PrimitiveTypes.Int16, arrow.PrimitiveTypes.Int32, arrow.PrimitiveTypes.Int64,
		arrow.PrimitiveTypes.Uint8, arrow.PrimitiveTypes.Uint16, arrow.PrimitiveTypes.Uint32, arrow.PrimitiveTypes.Uint64,
		arrow.PrimitiveTypes.Float32, arrow.PrimitiveTypes.Float64,
		arrow.BinaryTypes.String, arrow.BinaryTypes.Binary,
		arrow.FixedWidthTypes.Date32, arrow.FixedWidthTypes.Date64,
	}
}

// Validator returns a validator for schema bound to the generator's registry.
func (g *Generator) Validator(schema *arrow.Schema) *validator.Validator {
	return validator.New(schema, g.registry)
}

// Build compiles exprs for the given selection mode.
func (g *Generator) Build(exprs []*expr.Expression, mode selection.Mode) error {
	if g.built {
		return errors.New(errors.ErrorTypeCodegen, "generator already built")
	}
	start := time.Now()

	var ir strings.Builder
	fmt.Fprintf(&ir, "; mode=%s optimize=%t target_host_cpu=%t\n", mode, g.config.Optimize(), g.config.TargetHostCPU())

	programs := make([]*program, 0, len(exprs))
	for i, e := range exprs {
		fmt.Fprintf(&ir, "\n; expr %d: %s\n", i, e)
		l := &lowering{g: g, ir: &ir}
		root, err := l.lower(e.Root)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeCodegen, fmt.Sprintf("failed to compile %s", e.Result.Name))
		}
		fmt.Fprintf(&ir, "ret %%%d -> %s\n", root.reg, e.Result.Name)
		programs = append(programs, &program{result: e.Result, root: root})
	}

	g.programs = programs
	g.mode = mode
	g.ir = ir.String()
	g.built = true

	g.logger.Debug("compiled expressions",
		zap.Int("expressions", len(exprs)),
		zap.Stringer("mode", mode),
		zap.Bool("optimize", g.config.Optimize()),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// DumpIR returns the instruction listing of the compiled programs.
func (g *Generator) DumpIR() string {
	return g.ir
}

// Mode returns the selection mode the generator was built for.
func (g *Generator) Mode() selection.Mode {
	return g.mode
}

type program struct {
	result arrow.Field
	root   *compiled
}
