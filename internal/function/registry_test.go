package function

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/prism/pkg/errors"
)

func intVector(vals ...int64) *Vector {
	v := NewVector(KindInt, len(vals))
	copy(v.Ints, vals)
	return v
}

func strVector(vals ...string) *Vector {
	v := NewVector(KindString, len(vals))
	copy(v.Strs, vals)
	return v
}

func call(t *testing.T, name string, params []arrow.DataType, args ...*Vector) (*Vector, error) {
	t.Helper()
	f, ok := Default().Lookup(name, params)
	require.True(t, ok, "missing %s%v", name, params)
	return f.Call(f.Kernel(), args, args[0].Len())
}

func TestLookup(t *testing.T) {
	r := Default()

	f, ok := r.Lookup("add", []arrow.DataType{int32Type, int32Type})
	require.True(t, ok)
	assert.Equal(t, "int32 add(int32, int32)", f.String())

	_, ok = r.Lookup("add", []arrow.DataType{int32Type, int64Type})
	assert.False(t, ok)
	_, ok = r.Lookup("nope", nil)
	assert.False(t, ok)

	dt, err := r.ReturnType("char_length", []arrow.DataType{stringType})
	require.NoError(t, err)
	assert.Equal(t, int32Type, dt)

	_, err = r.ReturnType("add", []arrow.DataType{stringType, stringType})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	assert.Contains(t, r.Names(), "like")
	assert.Len(t, r.Overloads("add"), len(numericTypes))
}

func TestRegisterRejectsDuplicatesAndUnsupportedTypes(t *testing.T) {
	r := NewRegistry()
	sig := Signature{Name: "twice", Params: []arrow.DataType{int64Type}, Return: int64Type}
	k := unary(ints, ints, func(a int64) int64 { return 2 * a })

	require.NoError(t, r.Register(sig, k))
	assert.Error(t, r.Register(sig, k))

	bad := Signature{Name: "first", Params: []arrow.DataType{arrow.ListOf(int32Type)}, Return: int32Type}
	assert.True(t, errors.IsType(r.Register(bad, k), errors.ErrorTypeUnsupported))
}

func TestArithmeticWrapsAtDeclaredWidth(t *testing.T) {
	out, err := call(t, "add", []arrow.DataType{int32Type, int32Type},
		intVector(math.MaxInt32, 1), intVector(1, 1))
	require.NoError(t, err)
	assert.Equal(t, []int64{math.MinInt32, 2}, out.Ints)

	out, err = call(t, "add", []arrow.DataType{int64Type, int64Type},
		intVector(math.MaxInt32, 1), intVector(1, 1))
	require.NoError(t, err)
	assert.Equal(t, []int64{math.MaxInt32 + 1, 2}, out.Ints)
}

func TestArithmeticNullIfNull(t *testing.T) {
	a := intVector(1, 2, 3)
	a.SetValid(1, false)

	out, err := call(t, "multiply", []arrow.DataType{int64Type, int64Type}, a, intVector(10, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, out.Valid)
	assert.Equal(t, int64(10), out.Ints[0])
	assert.Equal(t, int64(30), out.Ints[2])
	assert.Equal(t, 1, out.NullCount())
}

func TestDivideByZero(t *testing.T) {
	_, err := call(t, "divide", []arrow.DataType{int32Type, int32Type}, intVector(4), intVector(0))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExecution))

	// Null rows are never evaluated.
	b := intVector(0)
	b.SetValid(0, false)
	out, err := call(t, "mod", []arrow.DataType{int32Type, int32Type}, intVector(4), b)
	require.NoError(t, err)
	assert.False(t, out.IsValid(0))
}

func TestFloatArithmetic(t *testing.T) {
	a := NewVector(KindFloat, 2)
	a.Floats[0], a.Floats[1] = 1.5, -2
	b := NewVector(KindFloat, 2)
	b.Floats[0], b.Floats[1] = 0.25, 3

	out, err := call(t, "subtract", []arrow.DataType{float64Type, float64Type}, a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.25, -5}, out.Floats)

	out, err = call(t, "abs", []arrow.DataType{float64Type}, a)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2}, out.Floats)
}

func TestComparisons(t *testing.T) {
	params := []arrow.DataType{int32Type, int32Type}
	a, b := intVector(1, 2, 3), intVector(2, 2, 2)

	tests := map[string][]bool{
		"equal":                    {false, true, false},
		"not_equal":                {true, false, true},
		"less_than":                {true, false, false},
		"less_than_or_equal_to":    {true, true, false},
		"greater_than":             {false, false, true},
		"greater_than_or_equal_to": {false, true, true},
	}
	for name, want := range tests {
		out, err := call(t, name, params, a, b)
		require.NoError(t, err)
		assert.Equal(t, want, out.Bools, name)
	}

	out, err := call(t, "less_than", []arrow.DataType{stringType, stringType}, strVector("a", "b"), strVector("b", "a"))
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, out.Bools)
}

func TestStrings(t *testing.T) {
	s := strVector("héllo", "World")

	out, err := call(t, "upper", []arrow.DataType{stringType}, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"HÉLLO", "WORLD"}, out.Strs)

	out, err = call(t, "char_length", []arrow.DataType{stringType}, s)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 5}, out.Ints)

	out, err = call(t, "concat", []arrow.DataType{stringType, stringType}, s, strVector("!", "?"))
	require.NoError(t, err)
	assert.Equal(t, []string{"héllo!", "World?"}, out.Strs)

	out, err = call(t, "starts_with", []arrow.DataType{stringType, stringType}, s, strVector("hé", "w"))
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, out.Bools)
}

func TestLikeToRegexp(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"%x%", `(?s)^.*x.*$`},
		{"a_c", `(?s)^a.c$`},
		{`100\%`, `(?s)^100%$`},
		{"a.b", `(?s)^a\.b$`},
		{`a\\b`, `(?s)^a\\b$`},
	}
	for _, tt := range tests {
		got, err := LikeToRegexp(tt.pattern)
		require.NoError(t, err, tt.pattern)
		assert.Equal(t, tt.want, got, tt.pattern)
	}

	_, err := LikeToRegexp(`a\b`)
	assert.Error(t, err)
	_, err = LikeToRegexp(`abc\`)
	assert.Error(t, err)
}

func TestLikeKernels(t *testing.T) {
	f, ok := Default().Lookup("like", []arrow.DataType{stringType, stringType})
	require.True(t, ok)

	s := strVector("xyz", "abc", "axb")
	p := strVector("%x%", "%x%", "%x%")

	out, err := f.Call(f.Kernel(), []*Vector{s, p}, 3)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, out.Bools)

	bound, err := f.Bind([]*Vector{nil, strVector("a%")})
	require.NoError(t, err)
	out, err = f.Call(bound, []*Vector{s, p}, 3)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, true}, out.Bools)

	_, err = f.Bind([]*Vector{nil, strVector(`bad\`)})
	assert.Error(t, err)
}

func TestNullTests(t *testing.T) {
	a := intVector(1, 2)
	a.SetValid(0, false)

	out, err := call(t, "isnull", []arrow.DataType{int32Type}, a)
	require.NoError(t, err)
	assert.Nil(t, out.Valid)
	assert.Equal(t, []bool{true, false}, out.Bools)

	out, err = call(t, "isnotnull", []arrow.DataType{int32Type}, a)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, out.Bools)
}

func TestCasts(t *testing.T) {
	out, err := call(t, "castBIGINT", []arrow.DataType{stringType}, strVector(" 42", "-7"))
	require.NoError(t, err)
	assert.Equal(t, []int64{42, -7}, out.Ints)

	_, err = call(t, "castINT", []arrow.DataType{stringType}, strVector("x"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeExecution))

	out, err = call(t, "castINT", []arrow.DataType{int64Type}, intVector(1<<32+5))
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, out.Ints)

	out, err = call(t, "castVARCHAR", []arrow.DataType{int32Type}, intVector(12, -3))
	require.NoError(t, err)
	assert.Equal(t, []string{"12", "-3"}, out.Strs)
}

func TestCallMaskedSkipsInactiveRows(t *testing.T) {
	f, ok := Default().Lookup("divide", []arrow.DataType{int64Type, int64Type})
	require.True(t, ok)

	out, err := f.CallMasked(f.Kernel(), []*Vector{intVector(6, 6), intVector(0, 3)}, 2, []bool{false, true})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, out.Valid)
	assert.Equal(t, int64(2), out.Ints[1])
}
