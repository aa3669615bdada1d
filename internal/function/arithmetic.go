package function

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/prism/pkg/errors"
)

type arithmeticOp struct {
	name  string
	ints  func(a, b int64) (int64, error)
	float func(a, b float64) float64
}

func errDivideByZero() error {
	return errors.New(errors.ErrorTypeExecution, "divide by zero")
}

var arithmeticOps = []arithmeticOp{
	{
		name:  "add",
		ints:  func(a, b int64) (int64, error) { return a + b, nil },
		float: func(a, b float64) float64 { return a + b },
	},
	{
		name:  "subtract",
		ints:  func(a, b int64) (int64, error) { return a - b, nil },
		float: func(a, b float64) float64 { return a - b },
	},
	{
		name:  "multiply",
		ints:  func(a, b int64) (int64, error) { return a * b, nil },
		float: func(a, b float64) float64 { return a * b },
	},
	{
		name: "divide",
		ints: func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, errDivideByZero()
			}
			return a / b, nil
		},
		float: func(a, b float64) float64 { return a / b },
	},
	{
		name: "mod",
		ints: func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, errDivideByZero()
			}
			return a % b, nil
		},
		float: math.Mod,
	},
}

func registerArithmetic(r *Registry) {
	for _, op := range arithmeticOps {
		for _, dt := range numericTypes {
			sig := Signature{Name: op.name, Params: []arrow.DataType{dt, dt}, Return: dt}
			if isFloat(dt) {
				r.mustRegister(sig, binary(floats, floats, op.float))
			} else {
				r.mustRegister(sig, binaryErr(ints, ints, op.ints))
			}
		}
	}

	for _, dt := range numericTypes {
		one := []arrow.DataType{dt}
		if isFloat(dt) {
			r.mustRegister(Signature{Name: "negative", Params: one, Return: dt},
				unary(floats, floats, func(a float64) float64 { return -a }))
			r.mustRegister(Signature{Name: "abs", Params: one, Return: dt},
				unary(floats, floats, math.Abs))
			continue
		}
		r.mustRegister(Signature{Name: "negative", Params: one, Return: dt},
			unary(ints, ints, func(a int64) int64 { return -a }))
		r.mustRegister(Signature{Name: "abs", Params: one, Return: dt},
			unary(ints, ints, func(a int64) int64 {
				if a < 0 {
					return -a
				}
				return a
			}))
	}
}

func isFloat(dt arrow.DataType) bool {
	return dt.ID() == arrow.FLOAT32 || dt.ID() == arrow.FLOAT64
}
