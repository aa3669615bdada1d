package layout

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/prism/pkg/errors"
)

func TestBitmapSize(t *testing.T) {
	tests := []struct {
		rows int64
		want int64
	}{
		{0, 0}, {1, 1}, {7, 1}, {8, 1}, {9, 2}, {1000, 125},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BitmapSize(tt.rows), "rows=%d", tt.rows)
	}
}

func TestOffsetsSize(t *testing.T) {
	for _, n := range []int64{0, 1, 8} {
		assert.Equal(t, (n+1)*4, OffsetsSize(n), "rows=%d", n)
	}
}

func TestDataSize(t *testing.T) {
	assert.Equal(t, int64(40), DataSize(arrow.PrimitiveTypes.Int32, 10))
	assert.Equal(t, int64(2), DataSize(arrow.FixedWidthTypes.Boolean, 10))
	assert.Equal(t, int64(160), DataSize(&arrow.Decimal128Type{Precision: 10, Scale: 2}, 10))
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		dt   arrow.DataType
		want Category
	}{
		{arrow.FixedWidthTypes.Boolean, CategoryFixedWidth},
		{arrow.PrimitiveTypes.Int8, CategoryFixedWidth},
		{arrow.PrimitiveTypes.Uint64, CategoryFixedWidth},
		{arrow.PrimitiveTypes.Float64, CategoryFixedWidth},
		{arrow.FixedWidthTypes.Date32, CategoryFixedWidth},
		{arrow.FixedWidthTypes.Timestamp_us, CategoryFixedWidth},
		{&arrow.Decimal128Type{Precision: 38, Scale: 0}, CategoryFixedWidth},
		{arrow.BinaryTypes.String, CategoryVarLen},
		{arrow.BinaryTypes.Binary, CategoryVarLen},
		{arrow.BinaryTypes.LargeString, CategoryUnsupported},
		{arrow.ListOf(arrow.PrimitiveTypes.Int32), CategoryUnsupported},
		{arrow.Null, CategoryUnsupported},
		{nil, CategoryUnsupported},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CategoryOf(tt.dt), "%v", tt.dt)
	}
}

func TestPlan(t *testing.T) {
	req, err := Plan(arrow.BinaryTypes.String, 8)
	require.NoError(t, err)
	assert.Equal(t, Requirements{
		Category:      CategoryVarLen,
		NumBuffers:    3,
		Bitmap:        1,
		Offsets:       36,
		ResizableData: true,
	}, req)

	req, err = Plan(arrow.PrimitiveTypes.Int32, 10)
	require.NoError(t, err)
	assert.Equal(t, Requirements{
		Category:   CategoryFixedWidth,
		NumBuffers: 2,
		Bitmap:     2,
		Data:       40,
	}, req)

	_, err = Plan(arrow.ListOf(arrow.PrimitiveTypes.Int32), 10)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupported))
}

func TestAllocateFixedWidth(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	data, err := Allocate(arrow.Field{Name: "r", Type: arrow.PrimitiveTypes.Int32}, 10, mem)
	require.NoError(t, err)
	defer data.Release()

	buffers := data.Buffers()
	require.Len(t, buffers, 2)
	assert.Equal(t, 2, buffers[0].Len())
	assert.Equal(t, 40, buffers[1].Len())
	assert.Equal(t, 10, data.Len())
}

func TestAllocateBooleanZeroed(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	data, err := Allocate(arrow.Field{Name: "b", Type: arrow.FixedWidthTypes.Boolean}, 10, mem)
	require.NoError(t, err)
	defer data.Release()

	values := data.Buffers()[1]
	assert.Equal(t, 2, values.Len())
	assert.Equal(t, []byte{0, 0}, values.Bytes())
}

func TestAllocateVarLen(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	for _, n := range []int64{0, 1, 8} {
		data, err := Allocate(arrow.Field{Name: "s", Type: arrow.BinaryTypes.String}, n, mem)
		require.NoError(t, err)

		buffers := data.Buffers()
		require.Len(t, buffers, 3)
		assert.Equal(t, int(BitmapSize(n)), buffers[0].Len())
		assert.Equal(t, int((n+1)*4), buffers[1].Len())
		assert.Equal(t, 0, buffers[2].Len())
		assert.True(t, buffers[2].Mutable())

		data.Release()
	}
}

func TestAllocateUnsupported(t *testing.T) {
	_, err := Allocate(arrow.Field{Name: "l", Type: arrow.ListOf(arrow.PrimitiveTypes.Int32)}, 4, memory.NewGoAllocator())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupported))
	assert.Contains(t, err.Error(), "list")
}

func TestAllocateNilPool(t *testing.T) {
	_, err := Allocate(arrow.Field{Name: "r", Type: arrow.PrimitiveTypes.Int32}, 4, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
}

func fixedBuffers(sizes ...int) []*memory.Buffer {
	out := make([]*memory.Buffer, len(sizes))
	for i, s := range sizes {
		out[i] = memory.NewBufferBytes(make([]byte, s))
	}
	return out
}

func TestValidateCapacityAcceptsAllocated(t *testing.T) {
	mem := memory.NewGoAllocator()
	for _, dt := range []arrow.DataType{arrow.PrimitiveTypes.Int32, arrow.FixedWidthTypes.Boolean, arrow.BinaryTypes.String} {
		field := arrow.Field{Name: "f", Type: dt}
		data, err := Allocate(field, 100, mem)
		require.NoError(t, err)
		assert.NoError(t, ValidateCapacity(data, field, 100), "%s", dt)
		data.Release()
	}
}

func TestValidateCapacityUndersizedBitmap(t *testing.T) {
	field := arrow.Field{Name: "result", Type: arrow.PrimitiveTypes.Int32}
	data := array.NewData(field.Type, 10, fixedBuffers(0, 40), nil, 0, 0)

	err := ValidateCapacity(data, field, 10)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
	assert.Contains(t, err.Error(), "result")
	assert.Contains(t, err.Error(), "expected minimum 2")
	assert.Contains(t, err.Error(), "actual 0")

	var perr *errors.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, int64(2), perr.Details["minimum"])
	assert.Equal(t, int64(0), perr.Details["actual"])
}

func TestValidateCapacityFailures(t *testing.T) {
	intField := arrow.Field{Name: "i", Type: arrow.PrimitiveTypes.Int32}
	strField := arrow.Field{Name: "s", Type: arrow.BinaryTypes.String}
	listField := arrow.Field{Name: "l", Type: arrow.ListOf(arrow.PrimitiveTypes.Int32)}

	resizableData := memory.NewResizableBuffer(memory.NewGoAllocator())
	defer resizableData.Release()

	tests := []struct {
		name    string
		field   arrow.Field
		buffers []*memory.Buffer
		errType errors.ErrorType
		msg     string
	}{
		{"single buffer", intField, fixedBuffers(2), errors.ErrorTypeInvalidArgument, "at least 2 buffers"},
		{"small data", intField, fixedBuffers(2, 39), errors.ErrorTypeInvalidArgument, "data buffer too small"},
		{"small offsets", strField, append(fixedBuffers(2, 43), resizableData), errors.ErrorTypeInvalidArgument, "offsets buffer too small"},
		{"missing data", strField, fixedBuffers(2, 44), errors.ErrorTypeInvalidArgument, "must have 3 buffers"},
		{"fixed data", strField, fixedBuffers(2, 44, 100), errors.ErrorTypeInvalidArgument, "must be resizable"},
		{"unsupported", listField, fixedBuffers(2, 100), errors.ErrorTypeUnsupported, "unsupported output data type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := array.NewData(tt.field.Type, 10, tt.buffers, nil, 0, 0)
			err := ValidateCapacity(data, tt.field, 10)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, tt.errType), err.Error())
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestValidateCapacityVarLenOK(t *testing.T) {
	strField := arrow.Field{Name: "s", Type: arrow.BinaryTypes.String}
	dataBuf := memory.NewResizableBuffer(memory.NewGoAllocator())
	defer dataBuf.Release()

	data := array.NewData(strField.Type, 10, append(fixedBuffers(2, 44), dataBuf), nil, 0, 0)
	assert.NoError(t, ValidateCapacity(data, strField, 10))
}
