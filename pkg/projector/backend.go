package projector

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"go.uber.org/zap"

	"github.com/ajitpratap0/prism/internal/codegen"
	"github.com/ajitpratap0/prism/pkg/config"
	"github.com/ajitpratap0/prism/pkg/expr"
	"github.com/ajitpratap0/prism/pkg/selection"
)

// Validator checks one expression before it is compiled.
type Validator interface {
	Validate(e *expr.Expression) error
}

// Backend compiles a set of expressions into one routine and runs it.
// Build is called once; Execute may then be called concurrently.
type Backend interface {
	// Validator returns a validator for expressions over schema.
	Validator(schema *arrow.Schema) Validator
	// Build compiles exprs for the selection mode.
	Build(exprs []*expr.Expression, mode selection.Mode) error
	// Execute evaluates the compiled routine over batch into outputs, one
	// buffer group per expression.
	Execute(batch arrow.Record, sel selection.Vector, outputs []*array.Data) error
	// DumpIR returns a listing of the compiled routine.
	DumpIR() string
}

// BackendFactory creates an unbuilt backend bound to cfg.
type BackendFactory func(schema *arrow.Schema, cfg *config.Configuration) (Backend, error)

// codegenBackend adapts codegen.Generator to Backend.
type codegenBackend struct {
	*codegen.Generator
}

func (b codegenBackend) Validator(schema *arrow.Schema) Validator {
	return b.Generator.Validator(schema)
}

// CodegenBackend returns the factory of the built-in closure compiler.
func CodegenBackend(logger *zap.Logger) BackendFactory {
	return func(schema *arrow.Schema, cfg *config.Configuration) (Backend, error) {
		return codegenBackend{codegen.New(schema, cfg, codegen.WithLogger(logger))}, nil
	}
}
