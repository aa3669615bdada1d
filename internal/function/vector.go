package function

import (
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/prism/pkg/errors"
)

// Kind is the widened storage class a column is evaluated in.
type Kind uint8

const (
	KindBool Kind = iota
	KindInt
	KindUint
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	}
	return "unknown"
}

// KindOf returns the storage class of dt. Signed integers and dates widen to
// int64, unsigned integers to uint64, floats to float64, and string and
// binary values to string.
func KindOf(dt arrow.DataType) (Kind, error) {
	if dt == nil {
		return 0, errors.Unsupported("nil data type")
	}
	switch dt.ID() {
	case arrow.BOOL:
		return KindBool, nil
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64, arrow.DATE32, arrow.DATE64:
		return KindInt, nil
	case arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return KindUint, nil
	case arrow.FLOAT32, arrow.FLOAT64:
		return KindFloat, nil
	case arrow.STRING, arrow.BINARY:
		return KindString, nil
	}
	return 0, errors.Unsupported("data type %s is not supported by the evaluator", dt)
}

// Supported reports whether values of dt can be evaluated.
func Supported(dt arrow.DataType) bool {
	_, err := KindOf(dt)
	return err == nil
}

// Vector is a dense column of widened values. Only the slice matching Kind
// is populated.
type Vector struct {
	Kind Kind
	// Valid is nil when every row is valid.
	Valid  []bool
	Bools  []bool
	Ints   []int64
	Uints  []uint64
	Floats []float64
	Strs   []string
}

// NewVector allocates a vector of n valid zero values.
func NewVector(kind Kind, n int) *Vector {
	v := &Vector{Kind: kind}
	switch kind {
	case KindBool:
		v.Bools = make([]bool, n)
	case KindInt:
		v.Ints = make([]int64, n)
	case KindUint:
		v.Uints = make([]uint64, n)
	case KindFloat:
		v.Floats = make([]float64, n)
	case KindString:
		v.Strs = make([]string, n)
	}
	return v
}

// Len returns the number of rows.
func (v *Vector) Len() int {
	switch v.Kind {
	case KindBool:
		return len(v.Bools)
	case KindInt:
		return len(v.Ints)
	case KindUint:
		return len(v.Uints)
	case KindFloat:
		return len(v.Floats)
	default:
		return len(v.Strs)
	}
}

// IsValid reports whether row i holds a value.
func (v *Vector) IsValid(i int) bool {
	return v.Valid == nil || v.Valid[i]
}

// SetValid marks row i valid or null.
func (v *Vector) SetValid(i int, ok bool) {
	if v.Valid == nil {
		if ok {
			return
		}
		v.Valid = make([]bool, v.Len())
		for j := range v.Valid {
			v.Valid[j] = true
		}
	}
	v.Valid[i] = ok
}

// NullCount returns the number of null rows.
func (v *Vector) NullCount() int {
	if v.Valid == nil {
		return 0
	}
	n := 0
	for _, ok := range v.Valid {
		if !ok {
			n++
		}
	}
	return n
}

// Broadcast returns a vector repeating row 0 of v n times.
func (v *Vector) Broadcast(n int) *Vector {
	out := NewVector(v.Kind, n)
	for i := 0; i < n; i++ {
		switch v.Kind {
		case KindBool:
			out.Bools[i] = v.Bools[0]
		case KindInt:
			out.Ints[i] = v.Ints[0]
		case KindUint:
			out.Uints[i] = v.Uints[0]
		case KindFloat:
			out.Floats[i] = v.Floats[0]
		case KindString:
			out.Strs[i] = v.Strs[0]
		}
	}
	if !v.IsValid(0) {
		out.Valid = make([]bool, n)
	}
	return out
}

// Narrow truncates values to the width of dt so integer arithmetic wraps
// the way it would in the declared type.
func (v *Vector) Narrow(dt arrow.DataType) {
	switch dt.ID() {
	case arrow.INT8:
		for i, x := range v.Ints {
			v.Ints[i] = int64(int8(x))
		}
	case arrow.INT16:
		for i, x := range v.Ints {
			v.Ints[i] = int64(int16(x))
		}
	case arrow.INT32, arrow.DATE32:
		for i, x := range v.Ints {
			v.Ints[i] = int64(int32(x))
		}
	case arrow.UINT8:
		for i, x := range v.Uints {
			v.Uints[i] = uint64(uint8(x))
		}
	case arrow.UINT16:
		for i, x := range v.Uints {
			v.Uints[i] = uint64(uint16(x))
		}
	case arrow.UINT32:
		for i, x := range v.Uints {
			v.Uints[i] = uint64(uint32(x))
		}
	case arrow.FLOAT32:
		for i, x := range v.Floats {
			v.Floats[i] = float64(float32(x))
		}
	}
}

// Scalar builds a one-row vector from a literal value of type dt. A nil
// value yields a null row.
func Scalar(dt arrow.DataType, value interface{}) (*Vector, error) {
	kind, err := KindOf(dt)
	if err != nil {
		return nil, err
	}
	v := NewVector(kind, 1)
	if value == nil {
		v.Valid = []bool{false}
		return v, nil
	}
	if !kindMatches(kind, value) {
		return nil, errors.InvalidArgument("literal %v does not match type %s", value, dt)
	}
	switch x := value.(type) {
	case bool:
		v.Bools[0] = x
	case int8:
		v.Ints[0] = int64(x)
	case int16:
		v.Ints[0] = int64(x)
	case int32:
		v.Ints[0] = int64(x)
	case int64:
		v.Ints[0] = x
	case int:
		v.Ints[0] = int64(x)
	case arrow.Date32:
		v.Ints[0] = int64(x)
	case arrow.Date64:
		v.Ints[0] = int64(x)
	case uint8:
		v.Uints[0] = uint64(x)
	case uint16:
		v.Uints[0] = uint64(x)
	case uint32:
		v.Uints[0] = uint64(x)
	case uint64:
		v.Uints[0] = x
	case float32:
		v.Floats[0] = float64(x)
	case float64:
		v.Floats[0] = x
	case string:
		v.Strs[0] = x
	case []byte:
		v.Strs[0] = string(x)
	}
	return v, nil
}

func kindMatches(kind Kind, value interface{}) bool {
	switch value.(type) {
	case bool:
		return kind == KindBool
	case int8, int16, int32, int64, int, arrow.Date32, arrow.Date64:
		return kind == KindInt
	case uint8, uint16, uint32, uint64:
		return kind == KindUint
	case float32, float64:
		return kind == KindFloat
	case string, []byte:
		return kind == KindString
	}
	return false
}

// CopyRow copies row j of src, value and validity, into row i of v. Both
// vectors must have the same Kind.
func (v *Vector) CopyRow(i int, src *Vector, j int) {
	switch v.Kind {
	case KindBool:
		v.Bools[i] = src.Bools[j]
	case KindInt:
		v.Ints[i] = src.Ints[j]
	case KindUint:
		v.Uints[i] = src.Uints[j]
	case KindFloat:
		v.Floats[i] = src.Floats[j]
	case KindString:
		v.Strs[i] = src.Strs[j]
	}
	v.SetValid(i, src.IsValid(j))
}

// Format renders row i for listings.
func (v *Vector) Format(i int) string {
	if !v.IsValid(i) {
		return "null"
	}
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bools[i])
	case KindInt:
		return strconv.FormatInt(v.Ints[i], 10)
	case KindUint:
		return strconv.FormatUint(v.Uints[i], 10)
	case KindFloat:
		return strconv.FormatFloat(v.Floats[i], 'g', -1, 64)
	default:
		return strconv.Quote(v.Strs[i])
	}
}
