package expr

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// MakeField returns a reference to field.
func MakeField(field arrow.Field) Node {
	return &FieldNode{Field: field}
}

// MakeLiteral returns a literal typed after the Go type of v: bool, int8
// through int64, uint8 through uint64, float32, float64, string or []byte.
// It panics on any other type; use MakeTypedLiteral for dates.
func MakeLiteral(v interface{}) Node {
	var dt arrow.DataType
	switch v.(type) {
	case bool:
		dt = arrow.FixedWidthTypes.Boolean
	case int8:
		dt = arrow.PrimitiveTypes.Int8
	case int16:
		dt = arrow.PrimitiveTypes.Int16
	case int32:
		dt = arrow.PrimitiveTypes.Int32
	case int64:
		dt = arrow.PrimitiveTypes.Int64
	case uint8:
		dt = arrow.PrimitiveTypes.Uint8
	case uint16:
		dt = arrow.PrimitiveTypes.Uint16
	case uint32:
		dt = arrow.PrimitiveTypes.Uint32
	case uint64:
		dt = arrow.PrimitiveTypes.Uint64
	case float32:
		dt = arrow.PrimitiveTypes.Float32
	case float64:
		dt = arrow.PrimitiveTypes.Float64
	case string:
		dt = arrow.BinaryTypes.String
	case []byte:
		dt = arrow.BinaryTypes.Binary
	default:
		panic("expr: unsupported literal type")
	}
	return &LiteralNode{Type: dt, Value: v}
}

// MakeTypedLiteral returns a literal with an explicit type.
func MakeTypedLiteral(dt arrow.DataType, v interface{}) Node {
	return &LiteralNode{Type: dt, Value: v}
}

// MakeNull returns a typed null literal.
func MakeNull(dt arrow.DataType) Node {
	return &LiteralNode{Type: dt}
}

// MakeFunction returns a call of the named function.
func MakeFunction(name string, args []Node, returnType arrow.DataType) Node {
	return &FunctionNode{Name: name, Args: args, Type: returnType}
}

// MakeIf returns a conditional.
func MakeIf(condition, then, els Node, returnType arrow.DataType) Node {
	return &IfNode{Condition: condition, Then: then, Else: els, Type: returnType}
}

// MakeAnd returns the conjunction of args.
func MakeAnd(args ...Node) Node {
	return &BooleanNode{Op: And, Args: args}
}

// MakeOr returns the disjunction of args.
func MakeOr(args ...Node) Node {
	return &BooleanNode{Op: Or, Args: args}
}

// MakeExpression binds root to its result field.
func MakeExpression(root Node, result arrow.Field) *Expression {
	return &Expression{Root: root, Result: result}
}

// MakeExpressionFn is shorthand for an expression calling fn on input fields.
func MakeExpressionFn(fn string, inFields []arrow.Field, outField arrow.Field) *Expression {
	args := make([]Node, len(inFields))
	for i, f := range inFields {
		args[i] = MakeField(f)
	}
	return MakeExpression(MakeFunction(fn, args, outField.Type), outField)
}
