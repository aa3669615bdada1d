// Package layout computes, allocates and validates the buffers backing
// projector output columns.
//
// Every output column is an Arrow array made of a buffer group:
//
//	fixed width:     [validity bitmap, data]
//	variable length: [validity bitmap, offsets, data]
//
// For n rows the bitmap holds ceil(n/8) bytes, the offsets buffer holds
// n+1 32-bit offsets and a fixed-width data buffer holds n values of the
// type's bit width, rounded up to whole bytes. The variable-length data
// buffer starts empty and must be resizable because its final size is only
// known once the routine has run.
package layout

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/prism/pkg/errors"
)

// OffsetBitWidth is the width of one variable-length offset slot.
const OffsetBitWidth = 32

// Category is the layout class of an output type.
type Category int

const (
	// CategoryUnsupported types cannot be produced by a projector.
	CategoryUnsupported Category = iota
	// CategoryFixedWidth types have a bitmap and a data buffer sized by bit width.
	CategoryFixedWidth
	// CategoryVarLen types have a bitmap, 32-bit offsets and a resizable data buffer.
	CategoryVarLen
)

func (c Category) String() string {
	switch c {
	case CategoryFixedWidth:
		return "fixed_width"
	case CategoryVarLen:
		return "variable_length"
	default:
		return "unsupported"
	}
}

// CategoryOf classifies dt.
func CategoryOf(dt arrow.DataType) Category {
	if dt == nil {
		return CategoryUnsupported
	}
	switch dt.ID() {
	case arrow.BOOL,
		arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64,
		arrow.DATE32, arrow.DATE64,
		arrow.TIME32, arrow.TIME64, arrow.TIMESTAMP, arrow.DURATION,
		arrow.INTERVAL_MONTHS, arrow.INTERVAL_DAY_TIME, arrow.INTERVAL_MONTH_DAY_NANO,
		arrow.DECIMAL128, arrow.DECIMAL256:
		if _, ok := dt.(arrow.FixedWidthDataType); ok {
			return CategoryFixedWidth
		}
		return CategoryUnsupported
	case arrow.STRING, arrow.BINARY:
		return CategoryVarLen
	default:
		return CategoryUnsupported
	}
}

// BytesForBits returns the number of bytes needed to hold bits bits.
func BytesForBits(bits int64) int64 {
	return bitutil.BytesForBits(bits)
}

// BitmapSize returns the validity bitmap size for n rows.
func BitmapSize(n int64) int64 {
	return BytesForBits(n)
}

// OffsetsSize returns the offsets buffer size for n rows: n+1 offset slots
// of OffsetBitWidth bits each.
func OffsetsSize(n int64) int64 {
	return BytesForBits((n + 1) * OffsetBitWidth)
}

// DataSize returns the data buffer size for n rows of fixed-width type dt.
func DataSize(dt arrow.FixedWidthDataType, n int64) int64 {
	return BytesForBits(n * int64(dt.BitWidth()))
}

// Requirements describes the buffer group needed for one output column.
type Requirements struct {
	Category Category
	// NumBuffers is the number of buffers in the group
	NumBuffers int
	// Bitmap is the validity bitmap size in bytes
	Bitmap int64
	// Offsets is the offsets buffer size; zero for fixed-width types
	Offsets int64
	// Data is the data buffer size; zero for variable-length types
	Data int64
	// ResizableData reports whether the data buffer must be resizable
	ResizableData bool
}

// strategy computes, allocates and validates one category of buffer group.
type strategy struct {
	requirements func(dt arrow.DataType, n int64) Requirements
	allocate     func(dt arrow.DataType, req Requirements, pool memory.Allocator) []*memory.Buffer
	validate     func(data arrow.ArrayData, field arrow.Field, req Requirements) error
}

var strategies = map[Category]strategy{
	CategoryFixedWidth: fixedWidthStrategy,
	CategoryVarLen:     varLenStrategy,
}

func lookup(dt arrow.DataType) (strategy, error) {
	s, ok := strategies[CategoryOf(dt)]
	if !ok {
		return strategy{}, errors.Unsupported("unsupported output data type %s", typeName(dt)).
			WithDetail("type", typeName(dt))
	}
	return s, nil
}

// Plan returns the buffer requirements of type dt for n rows.
func Plan(dt arrow.DataType, n int64) (Requirements, error) {
	s, err := lookup(dt)
	if err != nil {
		return Requirements{}, err
	}
	return s.requirements(dt, n), nil
}

// Allocate allocates a buffer group for n rows of field's type from pool
// and returns it as array data of length n. The caller owns the result.
func Allocate(field arrow.Field, n int64, pool memory.Allocator) (*array.Data, error) {
	if pool == nil {
		return nil, errors.InvalidArgument("memory pool must be non-nil")
	}
	req, err := Plan(field.Type, n)
	if err != nil {
		return nil, err
	}
	buffers := strategies[req.Category].allocate(field.Type, req, pool)
	data := array.NewData(field.Type, int(n), buffers, nil, array.UnknownNullCount, 0)
	for _, b := range buffers {
		b.Release()
	}
	return data, nil
}

// ValidateCapacity checks that a caller-supplied buffer group can hold n
// rows of field's type.
func ValidateCapacity(data arrow.ArrayData, field arrow.Field, n int64) error {
	buffers := data.Buffers()
	if len(buffers) < 2 {
		return errors.InvalidArgument("array data for %s must have at least 2 buffers, got %d", field.Name, len(buffers)).
			WithDetail("field", field.Name)
	}

	minBitmap := BitmapSize(n)
	if bitmap := capacity(buffers[0]); bitmap < minBitmap {
		return errors.InvalidArgument("bitmap buffer too small for %s: expected minimum %d, actual %d", field.Name, minBitmap, bitmap).
			WithDetail("field", field.Name).
			WithDetail("minimum", minBitmap).
			WithDetail("actual", bitmap)
	}

	req, err := Plan(field.Type, n)
	if err != nil {
		return err
	}
	return strategies[req.Category].validate(data, field, req)
}

// capacity returns the allocated size of buf; a missing buffer has none.
func capacity(buf *memory.Buffer) int64 {
	if buf == nil {
		return 0
	}
	return int64(buf.Cap())
}

// resizable reports whether buf owns allocator-backed memory it can grow.
// Buffers wrapping plain byte slices are immutable and fixed in size.
func resizable(buf *memory.Buffer) bool {
	return buf != nil && buf.Mutable()
}

func newBuffer(size int64, pool memory.Allocator) *memory.Buffer {
	buf := memory.NewResizableBuffer(pool)
	buf.Resize(int(size))
	return buf
}

func typeName(dt arrow.DataType) string {
	if dt == nil {
		return "<nil>"
	}
	return dt.String()
}
