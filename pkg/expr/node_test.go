package expr

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fieldA = arrow.Field{Name: "a", Type: arrow.PrimitiveTypes.Int32}
	fieldS = arrow.Field{Name: "s", Type: arrow.BinaryTypes.String}
)

func TestExpressionString(t *testing.T) {
	sum := MakeFunction("add", []Node{MakeField(fieldA), MakeLiteral(int32(1))}, arrow.PrimitiveTypes.Int32)
	e := MakeExpression(sum, arrow.Field{Name: "result", Type: arrow.PrimitiveTypes.Int32})

	assert.Equal(t, "int32 add((int32) a, (const int32) 1) -> result: int32", e.String())
}

func TestLiteralString(t *testing.T) {
	tests := []struct {
		node Node
		want string
	}{
		{MakeLiteral(true), "(const bool) true"},
		{MakeLiteral("x%"), "(const utf8) 'x%'"},
		{MakeLiteral([]byte{0xca, 0xfe}), "(const binary) 0xcafe"},
		{MakeLiteral(2.5), "(const float64) 2.5"},
		{MakeNull(arrow.PrimitiveTypes.Int64), "(const int64) null"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.node.String())
	}
	assert.True(t, MakeNull(arrow.PrimitiveTypes.Int64).(*LiteralNode).IsNull())
	assert.False(t, MakeLiteral(int64(0)).(*LiteralNode).IsNull())
}

func TestMakeLiteralPanicsOnUnknownType(t *testing.T) {
	assert.Panics(t, func() { MakeLiteral(struct{}{}) })
}

func TestIfAndBooleanString(t *testing.T) {
	cond := MakeFunction("greater_than", []Node{MakeField(fieldA), MakeLiteral(int32(0))}, arrow.FixedWidthTypes.Boolean)
	n := MakeIf(cond, MakeField(fieldA), MakeLiteral(int32(0)), arrow.PrimitiveTypes.Int32)
	assert.Equal(t,
		"if (bool greater_than((int32) a, (const int32) 0)) { (int32) a } else { (const int32) 0 }",
		n.String())

	and := MakeAnd(cond, MakeLiteral(true))
	assert.Equal(t, "(bool greater_than((int32) a, (const int32) 0) && (const bool) true)", and.String())
	or := MakeOr(MakeLiteral(false), MakeLiteral(true), MakeLiteral(false))
	assert.Equal(t, "((const bool) false || (const bool) true || (const bool) false)", or.String())
	assert.Equal(t, arrow.FixedWidthTypes.Boolean, or.ReturnType())
}

func TestStructurallyEqualTreesPrintEqually(t *testing.T) {
	build := func() *Expression {
		like := MakeFunction("like", []Node{MakeField(fieldS), MakeLiteral("%x%")}, arrow.FixedWidthTypes.Boolean)
		return MakeExpression(like, arrow.Field{Name: "m", Type: arrow.FixedWidthTypes.Boolean})
	}
	assert.Equal(t, build().String(), build().String())
	assert.Contains(t, build().String(), " like(")
}

func TestWalkOrderAndStop(t *testing.T) {
	sum := MakeFunction("add", []Node{MakeField(fieldA), MakeLiteral(int32(1))}, arrow.PrimitiveTypes.Int32)

	var visited []string
	Walk(sum, func(n Node) bool {
		visited = append(visited, n.String())
		return true
	})
	require.Len(t, visited, 3)
	assert.Equal(t, "(int32) a", visited[0])
	assert.Equal(t, sum.String(), visited[2])

	count := 0
	completed := Walk(sum, func(Node) bool {
		count++
		return false
	})
	assert.False(t, completed)
	assert.Equal(t, 1, count)
}

func TestFields(t *testing.T) {
	b := arrow.Field{Name: "b", Type: arrow.PrimitiveTypes.Int32}
	root := MakeFunction("add", []Node{
		MakeField(b),
		MakeFunction("multiply", []Node{MakeField(fieldA), MakeField(b)}, arrow.PrimitiveTypes.Int32),
	}, arrow.PrimitiveTypes.Int32)

	fields := Fields(MakeExpression(root, arrow.Field{Name: "r", Type: arrow.PrimitiveTypes.Int32}))
	require.Len(t, fields, 2)
	assert.Equal(t, "b", fields[0].Name)
	assert.Equal(t, "a", fields[1].Name)
}

func TestMakeExpressionFn(t *testing.T) {
	b := arrow.Field{Name: "b", Type: arrow.PrimitiveTypes.Int32}
	out := arrow.Field{Name: "sum", Type: arrow.PrimitiveTypes.Int32}
	e := MakeExpressionFn("add", []arrow.Field{fieldA, b}, out)

	assert.Equal(t, "int32 add((int32) a, (int32) b) -> sum: int32", e.String())
	assert.Equal(t, out, e.Result)
}
