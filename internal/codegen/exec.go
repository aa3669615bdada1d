package codegen

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/prism/internal/function"
	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/pool"
	"github.com/ajitpratap0/prism/pkg/selection"
)

// execContext is the per-call state of one Execute.
type execContext struct {
	batch arrow.Record
	rows  []int
	n     int
	cols  map[int]*function.Vector
}

// column gathers column col at the active rows, once per call.
func (ec *execContext) column(col int, kind function.Kind) (*function.Vector, error) {
	if v, ok := ec.cols[col]; ok {
		return v, nil
	}
	v, err := gather(ec.batch.Column(col), ec.rows, kind)
	if err != nil {
		return nil, err
	}
	ec.cols[col] = v
	return v, nil
}

// Execute evaluates every compiled expression over batch and writes the
// results into outputs, one array data per expression, dense over the active
// rows.
func (g *Generator) Execute(batch arrow.Record, sel selection.Vector, outputs []*array.Data) error {
	if !g.built {
		return errors.New(errors.ErrorTypeExecution, "generator has not been built")
	}
	mode := selection.ModeNone
	if sel != nil {
		mode = sel.Mode()
	}
	if mode != g.mode {
		return errors.Newf(errors.ErrorTypeExecution, "selection vector mode %s does not match compiled mode %s", mode, g.mode)
	}
	if len(outputs) != len(g.programs) {
		return errors.Newf(errors.ErrorTypeExecution, "expected %d outputs, got %d", len(g.programs), len(outputs))
	}
	for i, p := range g.programs {
		if outputs[i] == nil || !arrow.TypeEqual(outputs[i].DataType(), p.result.Type) {
			return errors.Newf(errors.ErrorTypeExecution, "output for %s must have type %s", p.result.Name, p.result.Type)
		}
	}

	numRows := int(batch.NumRows())
	n := numRows
	if sel != nil {
		n = sel.NumSlots()
	}
	buf := pool.GetIndexBuffer(n)
	defer pool.PutIndexBuffer(buf)
	for i := range buf.Rows {
		if sel == nil {
			buf.Rows[i] = i
			continue
		}
		idx := sel.Index(i)
		if idx >= uint64(numRows) {
			return errors.Newf(errors.ErrorTypeExecution, "selection slot %d points at row %d, batch has %d rows", i, idx, numRows)
		}
		buf.Rows[i] = int(idx)
	}

	ec := &execContext{batch: batch, rows: buf.Rows, n: n, cols: make(map[int]*function.Vector)}
	for i, p := range g.programs {
		v, err := p.root.eval(ec, nil)
		if err != nil {
			if errors.TypeOf(err) != errors.ErrorTypeExecution {
				err = errors.Wrap(err, errors.ErrorTypeExecution, "evaluation failed")
			}
			return errors.Wrap(err, errors.ErrorTypeExecution, "failed to evaluate "+p.result.Name)
		}
		if err := store(outputs[i], p.result.Type, v, n); err != nil {
			return err
		}
	}
	return nil
}

type valuer[T any] interface {
	Value(i int) T
}

type signed interface {
	~int8 | ~int16 | ~int32 | ~int64
}

type unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

type float interface {
	~float32 | ~float64
}

func loadInts[T signed](a valuer[T], rows []int, dst []int64) {
	for i, r := range rows {
		dst[i] = int64(a.Value(r))
	}
}

func loadUints[T unsigned](a valuer[T], rows []int, dst []uint64) {
	for i, r := range rows {
		dst[i] = uint64(a.Value(r))
	}
}

func loadFloats[T float](a valuer[T], rows []int, dst []float64) {
	for i, r := range rows {
		dst[i] = float64(a.Value(r))
	}
}

// gather copies the values of col at rows into a dense vector.
func gather(col arrow.Array, rows []int, kind function.Kind) (*function.Vector, error) {
	v := function.NewVector(kind, len(rows))
	switch a := col.(type) {
	case *array.Boolean:
		for i, r := range rows {
			v.Bools[i] = a.Value(r)
		}
	case *array.Int8:
		loadInts[int8](a, rows, v.Ints)
	case *array.Int16:
		loadInts[int16](a, rows, v.Ints)
	case *array.Int32:
		loadInts[int32](a, rows, v.Ints)
	case *array.Int64:
		loadInts[int64](a, rows, v.Ints)
	case *array.Date32:
		loadInts[arrow.Date32](a, rows, v.Ints)
	case *array.Date64:
		loadInts[arrow.Date64](a, rows, v.Ints)
	case *array.Uint8:
		loadUints[uint8](a, rows, v.Uints)
	case *array.Uint16:
		loadUints[uint16](a, rows, v.Uints)
	case *array.Uint32:
		loadUints[uint32](a, rows, v.Uints)
	case *array.Uint64:
		loadUints[uint64](a, rows, v.Uints)
	case *array.Float32:
		loadFloats[float32](a, rows, v.Floats)
	case *array.Float64:
		loadFloats[float64](a, rows, v.Floats)
	case *array.String:
		for i, r := range rows {
			v.Strs[i] = a.Value(r)
		}
	case *array.Binary:
		for i, r := range rows {
			v.Strs[i] = string(a.Value(r))
		}
	default:
		return nil, errors.Unsupported("cannot read column of type %s", col.DataType())
	}
	if col.NullN() > 0 {
		for i, r := range rows {
			if col.IsNull(r) {
				v.SetValid(i, false)
			}
		}
	}
	return v, nil
}

func storeInts[T signed](dst []T, src []int64) {
	for i, x := range src {
		dst[i] = T(x)
	}
}

func storeUints[T unsigned](dst []T, src []uint64) {
	for i, x := range src {
		dst[i] = T(x)
	}
}

func storeFloats[T float](dst []T, src []float64) {
	for i, x := range src {
		dst[i] = T(x)
	}
}

// store writes the first n rows of v into out as type dt. The buffers of out
// have already been checked for capacity against dt.
func store(out *array.Data, dt arrow.DataType, v *function.Vector, n int) error {
	buffers := out.Buffers()
	bitmap := bytesOf(buffers[0])
	for i := 0; i < n; i++ {
		bitutil.SetBitTo(bitmap, i, v.IsValid(i))
	}

	data := bytesOf(buffers[1])
	switch dt.ID() {
	case arrow.BOOL:
		for i := 0; i < n; i++ {
			bitutil.SetBitTo(data, i, v.Bools[i])
		}
	case arrow.INT8:
		storeInts(arrow.Int8Traits.CastFromBytes(data), v.Ints)
	case arrow.INT16:
		storeInts(arrow.Int16Traits.CastFromBytes(data), v.Ints)
	case arrow.INT32:
		storeInts(arrow.Int32Traits.CastFromBytes(data), v.Ints)
	case arrow.INT64:
		storeInts(arrow.Int64Traits.CastFromBytes(data), v.Ints)
	case arrow.DATE32:
		storeInts(arrow.Date32Traits.CastFromBytes(data), v.Ints)
	case arrow.DATE64:
		storeInts(arrow.Date64Traits.CastFromBytes(data), v.Ints)
	case arrow.UINT8:
		storeUints(arrow.Uint8Traits.CastFromBytes(data), v.Uints)
	case arrow.UINT16:
		storeUints(arrow.Uint16Traits.CastFromBytes(data), v.Uints)
	case arrow.UINT32:
		storeUints(arrow.Uint32Traits.CastFromBytes(data), v.Uints)
	case arrow.UINT64:
		storeUints(arrow.Uint64Traits.CastFromBytes(data), v.Uints)
	case arrow.FLOAT32:
		storeFloats(arrow.Float32Traits.CastFromBytes(data), v.Floats)
	case arrow.FLOAT64:
		storeFloats(arrow.Float64Traits.CastFromBytes(data), v.Floats)
	case arrow.STRING, arrow.BINARY:
		storeVarLen(out, v, n)
	default:
		return errors.Unsupported("cannot write output of type %s", dt)
	}
	out.SetNullN(v.NullCount())
	return nil
}

func bytesOf(buf *memory.Buffer) []byte {
	if buf == nil {
		return nil
	}
	return buf.Buf()
}

func storeVarLen(out *array.Data, v *function.Vector, n int) {
	buffers := out.Buffers()
	offsets := arrow.Int32Traits.CastFromBytes(buffers[1].Buf())

	total := 0
	for i := 0; i < n; i++ {
		if v.IsValid(i) {
			total += len(v.Strs[i])
		}
	}
	values := buffers[2]
	values.Resize(total)
	dst := values.Bytes()

	pos := 0
	for i := 0; i < n; i++ {
		offsets[i] = int32(pos)
		if v.IsValid(i) {
			pos += copy(dst[pos:], v.Strs[i])
		}
	}
	offsets[n] = int32(pos)
}
