package validator

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/expr"
)

var (
	fieldA = arrow.Field{Name: "a", Type: arrow.PrimitiveTypes.Int32}
	fieldS = arrow.Field{Name: "s", Type: arrow.BinaryTypes.String}
	schema = arrow.NewSchema([]arrow.Field{fieldA, fieldS}, nil)

	int32Type = arrow.PrimitiveTypes.Int32
	boolType  = arrow.FixedWidthTypes.Boolean
)

func result(dt arrow.DataType) arrow.Field {
	return arrow.Field{Name: "r", Type: dt}
}

func TestValidateAccepts(t *testing.T) {
	v := New(schema, nil)

	sum := expr.MakeFunction("add", []expr.Node{expr.MakeField(fieldA), expr.MakeLiteral(int32(1))}, int32Type)
	require.NoError(t, v.Validate(expr.MakeExpression(sum, result(int32Type))))

	like := expr.MakeFunction("like", []expr.Node{expr.MakeField(fieldS), expr.MakeLiteral("%x%")}, boolType)
	cond := expr.MakeIf(
		expr.MakeAnd(like, expr.MakeFunction("isnotnull", []expr.Node{expr.MakeField(fieldA)}, boolType)),
		expr.MakeField(fieldA),
		expr.MakeNull(int32Type),
		int32Type,
	)
	require.NoError(t, v.Validate(expr.MakeExpression(cond, result(int32Type))))
}

func TestValidateReportsAllMissingFields(t *testing.T) {
	v := New(schema, nil)
	x := arrow.Field{Name: "x", Type: int32Type}
	y := arrow.Field{Name: "y", Type: int32Type}
	sum := expr.MakeFunction("add", []expr.Node{
		expr.MakeField(x),
		expr.MakeFunction("add", []expr.Node{expr.MakeField(fieldA), expr.MakeField(y)}, int32Type),
	}, int32Type)

	err := v.Validate(expr.MakeExpression(sum, result(int32Type)))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "fields x, y not in schema")

	var verr *errors.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"x", "y"}, verr.Details["fields"])
}

func TestValidateRejects(t *testing.T) {
	v := New(schema, nil)
	int64Type := arrow.PrimitiveTypes.Int64

	tests := []struct {
		name string
		e    *expr.Expression
		msg  string
	}{
		{
			name: "result type mismatch",
			e:    expr.MakeExpression(expr.MakeField(fieldA), result(int64Type)),
			msg:  "result field r has type int64",
		},
		{
			name: "unknown field",
			e:    expr.MakeExpression(expr.MakeField(arrow.Field{Name: "zz", Type: int32Type}), result(int32Type)),
			msg:  "field zz not in schema",
		},
		{
			name: "field type mismatch",
			e:    expr.MakeExpression(expr.MakeField(arrow.Field{Name: "a", Type: int64Type}), result(int64Type)),
			msg:  "has type int32 in schema",
		},
		{
			name: "unknown function",
			e:    expr.MakeExpressionFn("frobnicate", []arrow.Field{fieldA}, result(int32Type)),
			msg:  "no function frobnicate",
		},
		{
			name: "wrong declared return type",
			e:    expr.MakeExpressionFn("add", []arrow.Field{fieldA, fieldA}, result(int64Type)),
			msg:  "returns int32, declared int64",
		},
		{
			name: "non-literal like pattern",
			e:    expr.MakeExpressionFn("like", []arrow.Field{fieldS, fieldS}, result(boolType)),
			msg:  "pattern must be a literal",
		},
		{
			name: "non-bool condition",
			e: expr.MakeExpression(
				expr.MakeIf(expr.MakeField(fieldA), expr.MakeField(fieldA), expr.MakeField(fieldA), int32Type),
				result(int32Type)),
			msg: "condition must be bool",
		},
		{
			name: "branch mismatch",
			e: expr.MakeExpression(
				expr.MakeIf(expr.MakeLiteral(true), expr.MakeField(fieldA), expr.MakeField(fieldS), int32Type),
				result(int32Type)),
			msg: "branches must both return int32",
		},
		{
			name: "single and argument",
			e:    expr.MakeExpression(expr.MakeAnd(expr.MakeLiteral(true)), result(boolType)),
			msg:  "at least two arguments",
		},
		{
			name: "non-bool or argument",
			e:    expr.MakeExpression(expr.MakeOr(expr.MakeLiteral(true), expr.MakeField(fieldA)), result(boolType)),
			msg:  "argument must be bool",
		},
		{
			name: "unsupported type",
			e: expr.MakeExpression(
				expr.MakeNull(arrow.ListOf(int32Type)),
				result(arrow.ListOf(int32Type))),
			msg: "is not supported",
		},
		{
			name: "literal value mismatch",
			e:    expr.MakeExpression(expr.MakeTypedLiteral(int32Type, "one"), result(int32Type)),
			msg:  "bad literal",
		},
		{
			name: "missing root",
			e:    &expr.Expression{Result: result(int32Type)},
			msg:  "no root",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.e)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
