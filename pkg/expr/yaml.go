package expr

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"gopkg.in/yaml.v3"
)

// ReturnTypeResolver resolves the return type of a function call from its
// argument types. It lets YAML documents omit the type of function nodes.
type ReturnTypeResolver func(name string, args []arrow.DataType) (arrow.DataType, error)

// exprSpec is one entry of a YAML expression document.
type exprSpec struct {
	Name string   `yaml:"name"`
	Type string   `yaml:"type"`
	Expr nodeSpec `yaml:"expr"`
}

// nodeSpec is the YAML form of a node. Exactly one of the kind keys
// (field, literal, null, fn, if, and, or) is set.
type nodeSpec struct {
	Field   string     `yaml:"field"`
	Literal *yaml.Node `yaml:"literal"`
	Null    string     `yaml:"null"`
	Fn      string     `yaml:"fn"`
	Args    []nodeSpec `yaml:"args"`
	If      *nodeSpec  `yaml:"if"`
	Then    *nodeSpec  `yaml:"then"`
	Else    *nodeSpec  `yaml:"else"`
	And     []nodeSpec `yaml:"and"`
	Or      []nodeSpec `yaml:"or"`
	Type    string     `yaml:"type"`
}

// ParseYAML decodes a list of expressions over schema:
//
//	- name: result
//	  expr:
//	    fn: add
//	    args: [{field: a}, {literal: 1}]
//
// Untyped numeric literals inside a call adopt the numeric type of their
// first typed sibling. Function return types may be omitted when resolve is
// non-nil.
func ParseYAML(data []byte, schema *arrow.Schema, resolve ReturnTypeResolver) ([]*Expression, error) {
	var specs []exprSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("failed to parse expressions: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no expressions defined")
	}

	p := &yamlParser{schema: schema, resolve: resolve}
	out := make([]*Expression, 0, len(specs))
	for i, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("expression %d: name is required", i)
		}
		root, err := p.node(&s.Expr, nil)
		if err != nil {
			return nil, fmt.Errorf("expression %s: %w", s.Name, err)
		}
		resultType := root.ReturnType()
		if s.Type != "" {
			if resultType, err = ParseType(s.Type); err != nil {
				return nil, fmt.Errorf("expression %s: %w", s.Name, err)
			}
		}
		out = append(out, MakeExpression(root, arrow.Field{Name: s.Name, Type: resultType, Nullable: true}))
	}
	return out, nil
}

type yamlParser struct {
	schema  *arrow.Schema
	resolve ReturnTypeResolver
}

// node converts s. hint is the type untyped numeric literals should take.
func (p *yamlParser) node(s *nodeSpec, hint arrow.DataType) (Node, error) {
	switch {
	case s.Field != "":
		idx := p.schema.FieldIndices(s.Field)
		if len(idx) == 0 {
			return nil, fmt.Errorf("field %q not in schema", s.Field)
		}
		return MakeField(p.schema.Field(idx[0])), nil

	case s.Literal != nil:
		return p.literal(s, hint)

	case s.Null != "":
		dt, err := ParseType(s.Null)
		if err != nil {
			return nil, err
		}
		return MakeNull(dt), nil

	case s.Fn != "":
		args, err := p.args(s.Args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Fn, err)
		}
		dt, err := p.returnType(s, args)
		if err != nil {
			return nil, err
		}
		return MakeFunction(s.Fn, args, dt), nil

	case s.If != nil:
		if s.Then == nil || s.Else == nil {
			return nil, fmt.Errorf("if requires then and else")
		}
		cond, err := p.node(s.If, nil)
		if err != nil {
			return nil, err
		}
		branches, err := p.args([]nodeSpec{*s.Then, *s.Else})
		if err != nil {
			return nil, err
		}
		dt := branches[0].ReturnType()
		if s.Type != "" {
			if dt, err = ParseType(s.Type); err != nil {
				return nil, err
			}
		}
		return MakeIf(cond, branches[0], branches[1], dt), nil

	case len(s.And) > 0:
		args, err := p.args(s.And)
		if err != nil {
			return nil, err
		}
		return MakeAnd(args...), nil

	case len(s.Or) > 0:
		args, err := p.args(s.Or)
		if err != nil {
			return nil, err
		}
		return MakeOr(args...), nil
	}
	return nil, fmt.Errorf("node has none of field, literal, null, fn, if, and, or")
}

// args converts sibling nodes, typing bare numeric literals after the first
// typed numeric sibling.
func (p *yamlParser) args(specs []nodeSpec) ([]Node, error) {
	out := make([]Node, len(specs))
	var hint arrow.DataType
	for i := range specs {
		if isBareNumber(&specs[i]) {
			continue
		}
		n, err := p.node(&specs[i], nil)
		if err != nil {
			return nil, err
		}
		if hint == nil && isNumeric(n.ReturnType()) {
			hint = n.ReturnType()
		}
		out[i] = n
	}
	for i := range specs {
		if out[i] != nil {
			continue
		}
		n, err := p.node(&specs[i], hint)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (p *yamlParser) returnType(s *nodeSpec, args []Node) (arrow.DataType, error) {
	if s.Type != "" {
		return ParseType(s.Type)
	}
	if p.resolve == nil {
		return nil, fmt.Errorf("%s: return type is required", s.Fn)
	}
	types := make([]arrow.DataType, len(args))
	for i, a := range args {
		types[i] = a.ReturnType()
	}
	return p.resolve(s.Fn, types)
}

func (p *yamlParser) literal(s *nodeSpec, hint arrow.DataType) (Node, error) {
	raw := s.Literal.Value
	dt := hint
	if s.Type != "" {
		var err error
		if dt, err = ParseType(s.Type); err != nil {
			return nil, err
		}
	}
	if dt == nil {
		switch s.Literal.ShortTag() {
		case "!!int":
			dt = arrow.PrimitiveTypes.Int64
		case "!!float":
			dt = arrow.PrimitiveTypes.Float64
		case "!!bool":
			dt = arrow.FixedWidthTypes.Boolean
		default:
			dt = arrow.BinaryTypes.String
		}
	}
	v, err := ParseValue(dt, raw)
	if err != nil {
		return nil, err
	}
	return MakeTypedLiteral(dt, v), nil
}

func isBareNumber(s *nodeSpec) bool {
	return s.Literal != nil && s.Type == "" && (s.Literal.ShortTag() == "!!int" || s.Literal.ShortTag() == "!!float")
}

func isNumeric(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64:
		return true
	}
	return false
}

// ParseType converts a type name to an arrow type.
func ParseType(name string) (arrow.DataType, error) {
	switch strings.ToLower(name) {
	case "bool", "boolean":
		return arrow.FixedWidthTypes.Boolean, nil
	case "int8":
		return arrow.PrimitiveTypes.Int8, nil
	case "int16":
		return arrow.PrimitiveTypes.Int16, nil
	case "int32", "int":
		return arrow.PrimitiveTypes.Int32, nil
	case "int64", "bigint":
		return arrow.PrimitiveTypes.Int64, nil
	case "uint8":
		return arrow.PrimitiveTypes.Uint8, nil
	case "uint16":
		return arrow.PrimitiveTypes.Uint16, nil
	case "uint32":
		return arrow.PrimitiveTypes.Uint32, nil
	case "uint64":
		return arrow.PrimitiveTypes.Uint64, nil
	case "float32", "float":
		return arrow.PrimitiveTypes.Float32, nil
	case "float64", "double":
		return arrow.PrimitiveTypes.Float64, nil
	case "string", "utf8":
		return arrow.BinaryTypes.String, nil
	case "binary":
		return arrow.BinaryTypes.Binary, nil
	case "date32":
		return arrow.FixedWidthTypes.Date32, nil
	case "date64":
		return arrow.FixedWidthTypes.Date64, nil
	}
	return nil, fmt.Errorf("unknown type %q", name)
}

// ParseValue converts the textual form of a literal to the Go value
// MakeTypedLiteral expects for dt.
func ParseValue(dt arrow.DataType, raw string) (interface{}, error) {
	switch dt.ID() {
	case arrow.BOOL:
		return strconv.ParseBool(raw)
	case arrow.INT8:
		v, err := strconv.ParseInt(raw, 10, 8)
		return int8(v), err
	case arrow.INT16:
		v, err := strconv.ParseInt(raw, 10, 16)
		return int16(v), err
	case arrow.INT32:
		v, err := strconv.ParseInt(raw, 10, 32)
		return int32(v), err
	case arrow.INT64:
		return strconv.ParseInt(raw, 10, 64)
	case arrow.UINT8:
		v, err := strconv.ParseUint(raw, 10, 8)
		return uint8(v), err
	case arrow.UINT16:
		v, err := strconv.ParseUint(raw, 10, 16)
		return uint16(v), err
	case arrow.UINT32:
		v, err := strconv.ParseUint(raw, 10, 32)
		return uint32(v), err
	case arrow.UINT64:
		return strconv.ParseUint(raw, 10, 64)
	case arrow.FLOAT32:
		v, err := strconv.ParseFloat(raw, 32)
		return float32(v), err
	case arrow.FLOAT64:
		return strconv.ParseFloat(raw, 64)
	case arrow.STRING:
		return raw, nil
	case arrow.BINARY:
		return []byte(raw), nil
	case arrow.DATE32:
		t, err := time.Parse(time.DateOnly, raw)
		return arrow.Date32FromTime(t), err
	case arrow.DATE64:
		t, err := time.Parse(time.DateOnly, raw)
		return arrow.Date64FromTime(t), err
	}
	return nil, fmt.Errorf("cannot parse literal of type %s", dt)
}
