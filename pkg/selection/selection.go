// Package selection provides selection vectors: dense lists of row indices
// that restrict evaluation to a subset of a record batch.
//
// A selection vector is backed by a single arrow buffer holding unsigned
// indices of 16, 32 or 64 bits. The width is the vector's Mode and is baked
// into compiled projectors, so a projector built for ModeUint32 only accepts
// uint32 selection vectors.
package selection

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/prism/pkg/errors"
)

// Mode identifies how rows are addressed during evaluation.
type Mode int

const (
	// ModeNone evaluates every row of the batch.
	ModeNone Mode = iota
	// ModeUint16 addresses rows through uint16 indices.
	ModeUint16
	// ModeUint32 addresses rows through uint32 indices.
	ModeUint32
	// ModeUint64 addresses rows through uint64 indices.
	ModeUint64
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "NONE"
	case ModeUint16:
		return "UINT16"
	case ModeUint32:
		return "UINT32"
	case ModeUint64:
		return "UINT64"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a mode name (as printed by String, case sensitive) to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "NONE", "":
		return ModeNone, nil
	case "UINT16":
		return ModeUint16, nil
	case "UINT32":
		return ModeUint32, nil
	case "UINT64":
		return ModeUint64, nil
	}
	return ModeNone, errors.InvalidArgument("unknown selection vector mode %q", s)
}

// MaxIndex returns the largest row index representable in mode m.
func (m Mode) MaxIndex() uint64 {
	switch m {
	case ModeUint16:
		return math.MaxUint16
	case ModeUint32:
		return math.MaxUint32
	case ModeUint64:
		return math.MaxUint64
	default:
		return 0
	}
}

// Vector is a selection vector.
type Vector interface {
	// Mode returns the index width of the vector.
	Mode() Mode
	// Index returns the row index stored in slot.
	Index(slot int) uint64
	// SetIndex stores a row index in slot.
	SetIndex(slot int, index uint64)
	// NumSlots returns the number of populated slots, which is the active
	// row count of an evaluation using this vector.
	NumSlots() int
	// SetNumSlots sets the number of populated slots.
	SetNumSlots(n int) error
	// MaxSlots returns the capacity of the vector.
	MaxSlots() int
	// PopulateFromBitmap fills the vector with the positions of the set
	// bits in the first length bits of bitmap. Positions above maxIndex
	// are rejected.
	PopulateFromBitmap(bitmap []byte, length int, maxIndex uint64) error
	// ToArray returns an arrow array over the populated slots.
	ToArray() arrow.Array
	// Buffer returns the backing buffer.
	Buffer() *memory.Buffer
	// Release releases the backing buffer.
	Release()
}

type index interface {
	~uint16 | ~uint32 | ~uint64
}

type vector[T index] struct {
	mode     Mode
	dtype    arrow.DataType
	buf      *memory.Buffer
	values   []T
	numSlots int
	maxSlots int
}

// MakeUint16 allocates a uint16 selection vector with maxSlots capacity.
func MakeUint16(maxSlots int, pool memory.Allocator) (Vector, error) {
	return makeVector[uint16](ModeUint16, arrow.PrimitiveTypes.Uint16, maxSlots, pool, arrow.Uint16Traits.CastFromBytes)
}

// MakeUint32 allocates a uint32 selection vector with maxSlots capacity.
func MakeUint32(maxSlots int, pool memory.Allocator) (Vector, error) {
	return makeVector[uint32](ModeUint32, arrow.PrimitiveTypes.Uint32, maxSlots, pool, arrow.Uint32Traits.CastFromBytes)
}

// MakeUint64 allocates a uint64 selection vector with maxSlots capacity.
func MakeUint64(maxSlots int, pool memory.Allocator) (Vector, error) {
	return makeVector[uint64](ModeUint64, arrow.PrimitiveTypes.Uint64, maxSlots, pool, arrow.Uint64Traits.CastFromBytes)
}

// Make allocates a selection vector of the given mode.
func Make(mode Mode, maxSlots int, pool memory.Allocator) (Vector, error) {
	switch mode {
	case ModeUint16:
		return MakeUint16(maxSlots, pool)
	case ModeUint32:
		return MakeUint32(maxSlots, pool)
	case ModeUint64:
		return MakeUint64(maxSlots, pool)
	default:
		return nil, errors.InvalidArgument("cannot allocate a selection vector for mode %s", mode)
	}
}

// FromIndices builds a selection vector of the given mode holding indices.
func FromIndices(mode Mode, indices []uint64, pool memory.Allocator) (Vector, error) {
	sv, err := Make(mode, len(indices), pool)
	if err != nil {
		return nil, err
	}
	for i, idx := range indices {
		if idx > mode.MaxIndex() {
			sv.Release()
			return nil, errors.InvalidArgument("index %d exceeds the maximum %d for mode %s", idx, mode.MaxIndex(), mode)
		}
		sv.SetIndex(i, idx)
	}
	if err := sv.SetNumSlots(len(indices)); err != nil {
		sv.Release()
		return nil, err
	}
	return sv, nil
}

func makeVector[T index](mode Mode, dtype arrow.DataType, maxSlots int, pool memory.Allocator, cast func([]byte) []T) (*vector[T], error) {
	if maxSlots < 0 {
		return nil, errors.InvalidArgument("max slots must be non-negative, got %d", maxSlots)
	}
	if pool == nil {
		return nil, errors.InvalidArgument("memory pool must be non-nil")
	}
	width := dtype.(arrow.FixedWidthDataType).BitWidth()
	buf := memory.NewResizableBuffer(pool)
	buf.Resize(int(bitutil.BytesForBits(int64(maxSlots) * int64(width))))
	return &vector[T]{
		mode:     mode,
		dtype:    dtype,
		buf:      buf,
		values:   cast(buf.Bytes())[:maxSlots],
		maxSlots: maxSlots,
	}, nil
}

func (v *vector[T]) Mode() Mode { return v.mode }

func (v *vector[T]) Index(slot int) uint64 { return uint64(v.values[slot]) }

func (v *vector[T]) SetIndex(slot int, index uint64) { v.values[slot] = T(index) }

func (v *vector[T]) NumSlots() int { return v.numSlots }

func (v *vector[T]) MaxSlots() int { return v.maxSlots }

func (v *vector[T]) SetNumSlots(n int) error {
	if n < 0 || n > v.maxSlots {
		return errors.InvalidArgument("num slots %d must be within [0, %d]", n, v.maxSlots)
	}
	v.numSlots = n
	return nil
}

func (v *vector[T]) PopulateFromBitmap(bitmap []byte, length int, maxIndex uint64) error {
	if maxIndex > v.mode.MaxIndex() {
		return errors.InvalidArgument("max index %d exceeds the limit %d for mode %s", maxIndex, v.mode.MaxIndex(), v.mode)
	}
	if int64(len(bitmap)) < bitutil.BytesForBits(int64(length)) {
		return errors.InvalidArgument("bitmap of %d bytes cannot hold %d bits", len(bitmap), length)
	}

	slot := 0
	for pos := 0; pos < length; pos++ {
		if !bitutil.BitIsSet(bitmap, pos) {
			continue
		}
		if uint64(pos) > maxIndex {
			return errors.InvalidArgument("bitmap position %d exceeds max index %d", pos, maxIndex)
		}
		if slot >= v.maxSlots {
			return errors.InvalidArgument("selection vector has only %d slots", v.maxSlots)
		}
		v.values[slot] = T(pos)
		slot++
	}
	v.numSlots = slot
	return nil
}

func (v *vector[T]) ToArray() arrow.Array {
	width := v.dtype.(arrow.FixedWidthDataType).BitWidth()
	length := int(bitutil.BytesForBits(int64(v.numSlots) * int64(width)))
	values := memory.SliceBuffer(v.buf, 0, length)
	defer values.Release()
	data := array.NewData(v.dtype, v.numSlots, []*memory.Buffer{nil, values}, nil, 0, 0)
	defer data.Release()
	return array.MakeFromData(data)
}

func (v *vector[T]) Buffer() *memory.Buffer { return v.buf }

func (v *vector[T]) Release() {
	if v.buf != nil {
		v.buf.Release()
		v.buf = nil
		v.values = nil
	}
}
