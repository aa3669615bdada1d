package codegen

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"github.com/ajitpratap0/prism/internal/function"
	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/expr"
)

// evalFn computes a node over the active rows of ec. Rows where mask is
// false are not needed by the caller; a nil mask means every row is.
type evalFn func(ec *execContext, mask []bool) (*function.Vector, error)

// compiled is a lowered node.
type compiled struct {
	eval evalFn
	// konst is set when the node's value is known at build time.
	konst *function.Vector
	reg   int
}

type lowering struct {
	g    *Generator
	ir   *strings.Builder
	next int
}

func (l *lowering) emit(format string, args ...interface{}) int {
	reg := l.next
	l.next++
	fmt.Fprintf(l.ir, "%%%d = ", reg)
	fmt.Fprintf(l.ir, format, args...)
	l.ir.WriteByte('\n')
	return reg
}

func (l *lowering) constant(v *function.Vector, dt arrow.DataType, note string) *compiled {
	reg := l.emit("const %s %s%s", dt, v.Format(0), note)
	return &compiled{
		konst: v,
		reg:   reg,
		eval: func(ec *execContext, _ []bool) (*function.Vector, error) {
			return v.Broadcast(ec.n), nil
		},
	}
}

// fold evaluates c on a single row when folding is enabled and every input
// is constant. A node that fails to evaluate is left unfolded so that the
// error is raised only for rows that reach it.
func (l *lowering) fold(c *compiled, dt arrow.DataType, inputs []*compiled) *compiled {
	if !l.g.config.Optimize() {
		return c
	}
	for _, in := range inputs {
		if in.konst == nil {
			return c
		}
	}
	v, err := c.eval(&execContext{n: 1}, nil)
	if err != nil {
		l.g.logger.Debug("constant folding skipped", zap.Int("reg", c.reg), zap.Error(err))
		return c
	}
	return l.constant(v, dt, fmt.Sprintf(" ; folded %%%d", c.reg))
}

func (l *lowering) lower(n expr.Node) (*compiled, error) {
	switch n := n.(type) {
	case *expr.FieldNode:
		return l.field(n)
	case *expr.LiteralNode:
		v, err := function.Scalar(n.Type, n.Value)
		if err != nil {
			return nil, err
		}
		return l.constant(v, n.Type, ""), nil
	case *expr.FunctionNode:
		return l.call(n)
	case *expr.IfNode:
		return l.ifElse(n)
	case *expr.BooleanNode:
		return l.boolean(n)
	}
	return nil, errors.Newf(errors.ErrorTypeCodegen, "cannot compile node %T", n)
}

func (l *lowering) field(n *expr.FieldNode) (*compiled, error) {
	idx := l.g.schema.FieldIndices(n.Field.Name)
	if len(idx) == 0 {
		return nil, errors.Newf(errors.ErrorTypeCodegen, "field %s not in schema", n.Field.Name)
	}
	col := idx[0]
	kind, err := function.KindOf(n.Field.Type)
	if err != nil {
		return nil, err
	}
	reg := l.emit("load %s %s [col %d]", n.Field.Type, n.Field.Name, col)
	return &compiled{
		reg: reg,
		eval: func(ec *execContext, _ []bool) (*function.Vector, error) {
			return ec.column(col, kind)
		},
	}, nil
}

func (l *lowering) call(n *expr.FunctionNode) (*compiled, error) {
	args := make([]*compiled, len(n.Args))
	params := make([]arrow.DataType, len(n.Args))
	regs := make([]string, len(n.Args))
	for i, a := range n.Args {
		c, err := l.lower(a)
		if err != nil {
			return nil, err
		}
		args[i] = c
		params[i] = a.ReturnType()
		regs[i] = fmt.Sprintf("%%%d", c.reg)
	}

	fn, ok := l.g.registry.Lookup(n.Name, params)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeCodegen, "no function %s for %s", n.Name, n)
	}

	kernel := fn.Kernel()
	note := ""
	if l.g.config.Optimize() {
		consts := make([]*function.Vector, len(args))
		for i, a := range args {
			consts[i] = a.konst
		}
		if bound, err := fn.Bind(consts); err == nil {
			kernel = bound
		} else {
			l.g.logger.Debug("kernel binding skipped", zap.String("function", n.Name), zap.Error(err))
		}
	}
	if fn.Nulls == function.NullNever {
		note = " ; null-never"
	}

	reg := l.emit("call %s %s%s", fn.Signature, strings.Join(regs, ", "), note)
	c := &compiled{
		reg: reg,
		eval: func(ec *execContext, mask []bool) (*function.Vector, error) {
			vals := make([]*function.Vector, len(args))
			for i, a := range args {
				v, err := a.eval(ec, mask)
				if err != nil {
					return nil, err
				}
				vals[i] = v
			}
			return fn.CallMasked(kernel, vals, ec.n, mask)
		},
	}
	return l.fold(c, n.Type, args), nil
}

func (l *lowering) ifElse(n *expr.IfNode) (*compiled, error) {
	cond, err := l.lower(n.Condition)
	if err != nil {
		return nil, err
	}
	then, err := l.lower(n.Then)
	if err != nil {
		return nil, err
	}
	els, err := l.lower(n.Else)
	if err != nil {
		return nil, err
	}
	kind, err := function.KindOf(n.Type)
	if err != nil {
		return nil, err
	}

	reg := l.emit("if %%%d then %%%d else %%%d", cond.reg, then.reg, els.reg)
	c := &compiled{
		reg: reg,
		eval: func(ec *execContext, mask []bool) (*function.Vector, error) {
			cv, err := cond.eval(ec, mask)
			if err != nil {
				return nil, err
			}
			thenMask := make([]bool, ec.n)
			elseMask := make([]bool, ec.n)
			for i := range thenMask {
				active := mask == nil || mask[i]
				taken := cv.IsValid(i) && cv.Bools[i]
				thenMask[i] = active && taken
				elseMask[i] = active && !taken
			}
			tv, err := then.eval(ec, thenMask)
			if err != nil {
				return nil, err
			}
			ev, err := els.eval(ec, elseMask)
			if err != nil {
				return nil, err
			}
			out := function.NewVector(kind, ec.n)
			for i := range thenMask {
				if thenMask[i] {
					out.CopyRow(i, tv, i)
				} else {
					out.CopyRow(i, ev, i)
				}
			}
			return out, nil
		},
	}
	return l.fold(c, n.Type, []*compiled{cond, then, els}), nil
}

// boolean implements SQL three-valued AND and OR. Once a row's outcome is
// decided, later arguments are evaluated with that row masked out.
func (l *lowering) boolean(n *expr.BooleanNode) (*compiled, error) {
	args := make([]*compiled, len(n.Args))
	regs := make([]string, len(n.Args))
	for i, a := range n.Args {
		c, err := l.lower(a)
		if err != nil {
			return nil, err
		}
		args[i] = c
		regs[i] = fmt.Sprintf("%%%d", c.reg)
	}
	// decisive is the value that settles the outcome: false for AND, true for OR.
	decisive := n.Op == expr.Or
	op := "and"
	if decisive {
		op = "or"
	}

	reg := l.emit("%s %s", op, strings.Join(regs, ", "))
	c := &compiled{
		reg: reg,
		eval: func(ec *execContext, mask []bool) (*function.Vector, error) {
			out := function.NewVector(function.KindBool, ec.n)
			decided := make([]bool, ec.n)
			sawNull := make([]bool, ec.n)
			active := make([]bool, ec.n)
			for i := range active {
				active[i] = mask == nil || mask[i]
			}
			for _, a := range args {
				v, err := a.eval(ec, active)
				if err != nil {
					return nil, err
				}
				for i := range active {
					if !active[i] {
						continue
					}
					switch {
					case !v.IsValid(i):
						sawNull[i] = true
					case v.Bools[i] == decisive:
						decided[i] = true
						active[i] = false
					}
				}
			}
			for i := range decided {
				switch {
				case decided[i]:
					out.Bools[i] = decisive
				case sawNull[i]:
					out.SetValid(i, false)
				default:
					out.Bools[i] = !decisive
				}
			}
			return out, nil
		},
	}
	return l.fold(c, arrow.FixedWidthTypes.Boolean, args), nil
}
