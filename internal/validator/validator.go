// Package validator checks expressions against an input schema and the
// function registry before they are compiled.
package validator

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/prism/internal/function"
	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/expr"
)

// Validator validates expressions over one schema.
type Validator struct {
	schema   *arrow.Schema
	registry *function.Registry
}

// New returns a validator for schema. A nil registry means the built-in one.
func New(schema *arrow.Schema, registry *function.Registry) *Validator {
	if registry == nil {
		registry = function.Default()
	}
	return &Validator{schema: schema, registry: registry}
}

// Validate reports the first problem found in e.
func (v *Validator) Validate(e *expr.Expression) error {
	if e == nil || e.Root == nil {
		return errors.New(errors.ErrorTypeValidation, "expression has no root")
	}
	if err := v.fields(e); err != nil {
		return err
	}
	if err := v.node(e.Root); err != nil {
		return err
	}
	if !arrow.TypeEqual(e.Result.Type, e.Root.ReturnType()) {
		return invalid(e.Root, "result field %s has type %s but expression returns %s",
			e.Result.Name, e.Result.Type, e.Root.ReturnType())
	}
	return nil
}

// fields reports every input field of e that the schema lacks.
func (v *Validator) fields(e *expr.Expression) error {
	var missing []string
	for _, f := range expr.Fields(e) {
		if !v.schema.HasField(f.Name) {
			missing = append(missing, f.Name)
		}
	}
	switch len(missing) {
	case 0:
		return nil
	case 1:
		return errors.Newf(errors.ErrorTypeValidation, "field %s not in schema", missing[0]).
			WithDetail("fields", missing)
	}
	return errors.Newf(errors.ErrorTypeValidation, "fields %s not in schema", strings.Join(missing, ", ")).
		WithDetail("fields", missing)
}

// node checks n and its children. Field existence has already been checked.
func (v *Validator) node(n expr.Node) error {
	if n.ReturnType() == nil {
		return invalid(n, "node has no return type")
	}
	if !function.Supported(n.ReturnType()) {
		return invalid(n, "type %s is not supported", n.ReturnType())
	}

	switch n := n.(type) {
	case *expr.FieldNode:
		idx := v.schema.FieldIndices(n.Field.Name)
		if want := v.schema.Field(idx[0]).Type; !arrow.TypeEqual(want, n.Field.Type) {
			return invalid(n, "field %s has type %s in schema, expression uses %s", n.Field.Name, want, n.Field.Type)
		}
		return nil

	case *expr.LiteralNode:
		if _, err := function.Scalar(n.Type, n.Value); err != nil {
			return invalid(n, "bad literal: %v", err)
		}
		return nil

	case *expr.FunctionNode:
		params := make([]arrow.DataType, len(n.Args))
		for i, a := range n.Args {
			if err := v.node(a); err != nil {
				return err
			}
			params[i] = a.ReturnType()
		}
		f, ok := v.registry.Lookup(n.Name, params)
		if !ok {
			return invalid(n, "no function %s matches the argument types", n.Name)
		}
		if !arrow.TypeEqual(f.Return, n.Type) {
			return invalid(n, "function %s returns %s, declared %s", n.Name, f.Return, n.Type)
		}
		if n.Name == "like" {
			if _, ok := n.Args[1].(*expr.LiteralNode); !ok {
				return invalid(n, "like pattern must be a literal")
			}
		}
		return nil

	case *expr.IfNode:
		for _, c := range n.Children() {
			if err := v.node(c); err != nil {
				return err
			}
		}
		if n.Condition.ReturnType().ID() != arrow.BOOL {
			return invalid(n, "if condition must be bool, got %s", n.Condition.ReturnType())
		}
		if !arrow.TypeEqual(n.Then.ReturnType(), n.Type) || !arrow.TypeEqual(n.Else.ReturnType(), n.Type) {
			return invalid(n, "if branches must both return %s", n.Type)
		}
		return nil

	case *expr.BooleanNode:
		if len(n.Args) < 2 {
			return invalid(n, "%s requires at least two arguments", n.Op)
		}
		for _, a := range n.Args {
			if err := v.node(a); err != nil {
				return err
			}
			if a.ReturnType().ID() != arrow.BOOL {
				return invalid(a, "%s argument must be bool, got %s", n.Op, a.ReturnType())
			}
		}
		return nil
	}
	return invalid(n, "unknown node type %T", n)
}

func invalid(n expr.Node, format string, args ...interface{}) error {
	return errors.Newf(errors.ErrorTypeValidation, format, args...).WithDetail("node", n.String())
}
