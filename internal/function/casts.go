package function

import (
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/prism/pkg/errors"
)

func identity[T any](v T) T { return v }

func floatToInt(f float64) int64 { return int64(f) }

func intToFloat(i int64) float64 { return float64(i) }

func parseInt(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, errors.Newf(errors.ErrorTypeExecution, "failed to cast %q to integer", s)
	}
	return v, nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.Newf(errors.ErrorTypeExecution, "failed to cast %q to floating point", s)
	}
	return v, nil
}

func formatFloat(bits int) func(float64) string {
	return func(f float64) string { return strconv.FormatFloat(f, 'g', -1, bits) }
}

func registerCasts(r *Registry) {
	cast := func(name string, from, to arrow.DataType, k Kernel) {
		r.mustRegister(Signature{Name: name, Params: []arrow.DataType{from}, Return: to}, k)
	}

	cast("castINT", int64Type, int32Type, unary(ints, ints, identity[int64]))
	cast("castINT", float32Type, int32Type, unary(floats, ints, floatToInt))
	cast("castINT", float64Type, int32Type, unary(floats, ints, floatToInt))
	cast("castINT", stringType, int32Type, unaryErr(strs, ints, parseInt))

	cast("castBIGINT", int32Type, int64Type, unary(ints, ints, identity[int64]))
	cast("castBIGINT", float32Type, int64Type, unary(floats, ints, floatToInt))
	cast("castBIGINT", float64Type, int64Type, unary(floats, ints, floatToInt))
	cast("castBIGINT", stringType, int64Type, unaryErr(strs, ints, parseInt))

	cast("castFLOAT4", int32Type, float32Type, unary(ints, floats, intToFloat))
	cast("castFLOAT4", int64Type, float32Type, unary(ints, floats, intToFloat))
	cast("castFLOAT4", float64Type, float32Type, unary(floats, floats, identity[float64]))

	cast("castFLOAT8", int32Type, float64Type, unary(ints, floats, intToFloat))
	cast("castFLOAT8", int64Type, float64Type, unary(ints, floats, intToFloat))
	cast("castFLOAT8", float32Type, float64Type, unary(floats, floats, identity[float64]))
	cast("castFLOAT8", stringType, float64Type, unaryErr(strs, floats, parseFloat))

	cast("castVARCHAR", int32Type, stringType, unary(ints, strs, func(i int64) string { return strconv.FormatInt(i, 10) }))
	cast("castVARCHAR", int64Type, stringType, unary(ints, strs, func(i int64) string { return strconv.FormatInt(i, 10) }))
	cast("castVARCHAR", float32Type, stringType, unary(floats, strs, formatFloat(32)))
	cast("castVARCHAR", float64Type, stringType, unary(floats, strs, formatFloat(64)))
	cast("castVARCHAR", boolType, stringType, unary(bools, strs, strconv.FormatBool))
}
