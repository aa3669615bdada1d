package expr

import (
	"fmt"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = arrow.NewSchema([]arrow.Field{
	{Name: "a", Type: arrow.PrimitiveTypes.Int32},
	{Name: "s", Type: arrow.BinaryTypes.String},
}, nil)

func sameAsFirst(name string, args []arrow.DataType) (arrow.DataType, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: no args", name)
	}
	return args[0], nil
}

func TestParseYAML(t *testing.T) {
	doc := `
- name: result
  expr:
    fn: add
    args:
      - field: a
      - literal: 1
- name: matches
  type: bool
  expr:
    fn: like
    type: bool
    args:
      - field: s
      - literal: "%x%"
`
	exprs, err := ParseYAML([]byte(doc), testSchema, sameAsFirst)
	require.NoError(t, err)
	require.Len(t, exprs, 2)

	assert.Equal(t, "int32 add((int32) a, (const int32) 1) -> result: int32", exprs[0].String())
	assert.Equal(t, "bool like((utf8) s, (const utf8) '%x%') -> matches: bool", exprs[1].String())
}

func TestParseYAMLConditional(t *testing.T) {
	doc := `
- name: clamped
  expr:
    if:
      fn: less_than
      type: bool
      args: [{field: a}, {literal: 0}]
    then: {literal: 0, type: int32}
    else: {field: a}
- name: both
  expr:
    and:
      - {literal: true}
      - {null: bool}
`
	exprs, err := ParseYAML([]byte(doc), testSchema, nil)
	require.NoError(t, err)
	require.Len(t, exprs, 2)

	assert.Equal(t,
		"if (bool less_than((int32) a, (const int32) 0)) { (const int32) 0 } else { (int32) a } -> clamped: int32",
		exprs[0].String())
	assert.Equal(t, "((const bool) true && (const bool) null) -> both: bool", exprs[1].String())
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		msg  string
	}{
		{"empty", `[]`, "no expressions"},
		{"malformed", `{`, "failed to parse"},
		{"missing name", `[{expr: {field: a}}]`, "name is required"},
		{"unknown field", `[{name: r, expr: {field: zz}}]`, `field "zz" not in schema`},
		{"unknown type", `[{name: r, expr: {null: decimal512}}]`, "unknown type"},
		{"no return type", `[{name: r, expr: {fn: add, args: [{field: a}]}}]`, "return type is required"},
		{"empty node", `[{name: r, expr: {}}]`, "node has none"},
		{"bad literal", `[{name: r, expr: {literal: abc, type: int32}}]`, "invalid syntax"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.doc), testSchema, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseType(t *testing.T) {
	for name, want := range map[string]arrow.DataType{
		"boolean": arrow.FixedWidthTypes.Boolean,
		"INT":     arrow.PrimitiveTypes.Int32,
		"bigint":  arrow.PrimitiveTypes.Int64,
		"double":  arrow.PrimitiveTypes.Float64,
		"utf8":    arrow.BinaryTypes.String,
		"date32":  arrow.FixedWidthTypes.Date32,
	} {
		got, err := ParseType(name)
		require.NoError(t, err, name)
		assert.True(t, arrow.TypeEqual(want, got), name)
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(arrow.PrimitiveTypes.Int16, "-7")
	require.NoError(t, err)
	assert.Equal(t, int16(-7), v)

	v, err = ParseValue(arrow.FixedWidthTypes.Date32, "1970-01-11")
	require.NoError(t, err)
	assert.Equal(t, arrow.Date32(10), v)

	_, err = ParseValue(arrow.PrimitiveTypes.Uint8, "300")
	assert.Error(t, err)
}
