// Package expr provides the expression trees compiled by projectors.
//
// Trees are built from field references, literals, function calls,
// conditionals and boolean connectives. Each node has a declared return type
// and a canonical string form; the canonical form of a whole expression is
// what projector cache keys are computed from, so two structurally identical
// trees always print identically.
//
//	a := arrow.Field{Name: "a", Type: arrow.PrimitiveTypes.Int32}
//	sum := expr.MakeFunction("add", []expr.Node{expr.MakeField(a), expr.MakeLiteral(int32(1))}, arrow.PrimitiveTypes.Int32)
//	e := expr.MakeExpression(sum, arrow.Field{Name: "result", Type: arrow.PrimitiveTypes.Int32})
//	e.String() // int32 add((int32) a, (const int32) 1) -> result: int32
package expr

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Node is a node of an expression tree.
type Node interface {
	// ReturnType is the type the node evaluates to.
	ReturnType() arrow.DataType
	// Children returns the direct children in evaluation order.
	Children() []Node
	// String returns the canonical form of the node.
	String() string
}

// FieldNode references a column of the input schema.
type FieldNode struct {
	Field arrow.Field
}

func (n *FieldNode) ReturnType() arrow.DataType { return n.Field.Type }
func (n *FieldNode) Children() []Node           { return nil }
func (n *FieldNode) String() string {
	return fmt.Sprintf("(%s) %s", n.Field.Type, n.Field.Name)
}

// LiteralNode is a typed constant. A nil Value is a typed null.
type LiteralNode struct {
	Type  arrow.DataType
	Value interface{}
}

func (n *LiteralNode) ReturnType() arrow.DataType { return n.Type }
func (n *LiteralNode) Children() []Node           { return nil }

// IsNull reports whether the literal is a typed null.
func (n *LiteralNode) IsNull() bool { return n.Value == nil }

func (n *LiteralNode) String() string {
	var v string
	switch val := n.Value.(type) {
	case nil:
		v = "null"
	case string:
		v = "'" + val + "'"
	case []byte:
		v = fmt.Sprintf("0x%x", val)
	default:
		v = fmt.Sprintf("%v", val)
	}
	return fmt.Sprintf("(const %s) %s", n.Type, v)
}

// FunctionNode calls a registered function.
type FunctionNode struct {
	Name string
	Args []Node
	Type arrow.DataType
}

func (n *FunctionNode) ReturnType() arrow.DataType { return n.Type }
func (n *FunctionNode) Children() []Node           { return n.Args }
func (n *FunctionNode) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s %s(%s)", n.Type, n.Name, strings.Join(args, ", "))
}

// IfNode evaluates Then where Condition is true and Else elsewhere.
type IfNode struct {
	Condition Node
	Then      Node
	Else      Node
	Type      arrow.DataType
}

func (n *IfNode) ReturnType() arrow.DataType { return n.Type }
func (n *IfNode) Children() []Node           { return []Node{n.Condition, n.Then, n.Else} }
func (n *IfNode) String() string {
	return fmt.Sprintf("if (%s) { %s } else { %s }", n.Condition, n.Then, n.Else)
}

// BooleanOp is the connective of a BooleanNode.
type BooleanOp int

const (
	And BooleanOp = iota
	Or
)

func (op BooleanOp) String() string {
	if op == And {
		return "&&"
	}
	return "||"
}

// BooleanNode combines two or more boolean children with SQL three-valued logic.
type BooleanNode struct {
	Op   BooleanOp
	Args []Node
}

func (n *BooleanNode) ReturnType() arrow.DataType { return arrow.FixedWidthTypes.Boolean }
func (n *BooleanNode) Children() []Node           { return n.Args }
func (n *BooleanNode) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return "(" + strings.Join(args, " "+n.Op.String()+" ") + ")"
}

// Expression is a root node together with the field it produces.
type Expression struct {
	Root   Node
	Result arrow.Field
}

// String returns the canonical form of the expression.
func (e *Expression) String() string {
	return fmt.Sprintf("%s -> %s: %s", e.Root, e.Result.Name, e.Result.Type)
}

// Walk visits n and its descendants depth first, children before parents.
// Returning false from fn stops the walk.
func Walk(n Node, fn func(Node) bool) bool {
	for _, c := range n.Children() {
		if !Walk(c, fn) {
			return false
		}
	}
	return fn(n)
}

// Fields returns the distinct input fields referenced by e, in first-use order.
func Fields(e *Expression) []arrow.Field {
	var out []arrow.Field
	seen := make(map[string]bool)
	Walk(e.Root, func(n Node) bool {
		if f, ok := n.(*FieldNode); ok && !seen[f.Field.Name] {
			seen[f.Field.Name] = true
			out = append(out, f.Field)
		}
		return true
	})
	return out
}
