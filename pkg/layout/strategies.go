package layout

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/prism/pkg/errors"
)

var fixedWidthStrategy = strategy{
	requirements: func(dt arrow.DataType, n int64) Requirements {
		return Requirements{
			Category:   CategoryFixedWidth,
			NumBuffers: 2,
			Bitmap:     BitmapSize(n),
			Data:       DataSize(dt.(arrow.FixedWidthDataType), n),
		}
	},
	allocate: func(dt arrow.DataType, req Requirements, pool memory.Allocator) []*memory.Buffer {
		bitmap := newBuffer(req.Bitmap, pool)
		data := newBuffer(req.Data, pool)
		// Boolean values are written bit by bit; start from a clean slate so
		// untouched padding bits are never read uninitialized.
		if dt.ID() == arrow.BOOL {
			memory.Set(data.Bytes(), 0)
		}
		return []*memory.Buffer{bitmap, data}
	},
	validate: func(data arrow.ArrayData, field arrow.Field, req Requirements) error {
		buffers := data.Buffers()
		if actual := capacity(buffers[1]); actual < req.Data {
			return errors.InvalidArgument("data buffer too small for %s: expected minimum %d, actual %d", field.Name, req.Data, actual).
				WithDetail("field", field.Name).
				WithDetail("minimum", req.Data).
				WithDetail("actual", actual)
		}
		return nil
	},
}

var varLenStrategy = strategy{
	requirements: func(dt arrow.DataType, n int64) Requirements {
		return Requirements{
			Category:      CategoryVarLen,
			NumBuffers:    3,
			Bitmap:        BitmapSize(n),
			Offsets:       OffsetsSize(n),
			ResizableData: true,
		}
	},
	allocate: func(dt arrow.DataType, req Requirements, pool memory.Allocator) []*memory.Buffer {
		bitmap := newBuffer(req.Bitmap, pool)
		offsets := newBuffer(req.Offsets, pool)
		data := newBuffer(0, pool)
		return []*memory.Buffer{bitmap, offsets, data}
	},
	validate: func(data arrow.ArrayData, field arrow.Field, req Requirements) error {
		buffers := data.Buffers()
		if len(buffers) < req.NumBuffers {
			return errors.InvalidArgument("array data for %s must have %d buffers, got %d", field.Name, req.NumBuffers, len(buffers)).
				WithDetail("field", field.Name)
		}
		if actual := capacity(buffers[1]); actual < req.Offsets {
			return errors.InvalidArgument("offsets buffer too small for %s: expected minimum %d, actual %d", field.Name, req.Offsets, actual).
				WithDetail("field", field.Name).
				WithDetail("minimum", req.Offsets).
				WithDetail("actual", actual)
		}
		if !resizable(buffers[2]) {
			return errors.InvalidArgument("data buffer for variable-length output %s must be resizable", field.Name).
				WithDetail("field", field.Name)
		}
		return nil
	},
}
