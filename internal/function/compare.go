package function

import (
	"cmp"

	"github.com/apache/arrow-go/v18/arrow"
)

type comparison struct {
	name string
	test func(c int) bool
}

var comparisons = []comparison{
	{"equal", func(c int) bool { return c == 0 }},
	{"not_equal", func(c int) bool { return c != 0 }},
	{"less_than", func(c int) bool { return c < 0 }},
	{"less_than_or_equal_to", func(c int) bool { return c <= 0 }},
	{"greater_than", func(c int) bool { return c > 0 }},
	{"greater_than_or_equal_to", func(c int) bool { return c >= 0 }},
}

func compareKernel[T cmp.Ordered](in func(*Vector) []T, test func(int) bool) Kernel {
	return binary(in, bools, func(a, b T) bool { return test(cmp.Compare(a, b)) })
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func registerComparison(r *Registry) {
	ordered := append(append([]arrow.DataType{}, numericTypes...), stringType, date32Type)
	for _, c := range comparisons {
		for _, dt := range ordered {
			sig := Signature{Name: c.name, Params: []arrow.DataType{dt, dt}, Return: boolType}
			kind, _ := KindOf(dt)
			switch kind {
			case KindInt:
				r.mustRegister(sig, compareKernel(ints, c.test))
			case KindFloat:
				r.mustRegister(sig, compareKernel(floats, c.test))
			case KindString:
				r.mustRegister(sig, compareKernel(strs, c.test))
			}
		}
		if c.name == "equal" || c.name == "not_equal" {
			test := c.test
			r.mustRegister(Signature{Name: c.name, Params: []arrow.DataType{boolType, boolType}, Return: boolType},
				binary(bools, bools, func(a, b bool) bool { return test(compareBools(a, b)) }))
		}
	}
}

func registerLogical(r *Registry) {
	r.mustRegister(Signature{Name: "not", Params: []arrow.DataType{boolType}, Return: boolType},
		unary(bools, bools, func(a bool) bool { return !a }))
}
