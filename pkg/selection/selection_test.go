package selection

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/prism/pkg/errors"
)

func TestModeString(t *testing.T) {
	for _, m := range []Mode{ModeNone, ModeUint16, ModeUint32, ModeUint64} {
		parsed, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	_, err := ParseMode("INT8")
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
}

func TestSetAndGet(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	for _, mode := range []Mode{ModeUint16, ModeUint32, ModeUint64} {
		t.Run(mode.String(), func(t *testing.T) {
			sv, err := Make(mode, 4, mem)
			require.NoError(t, err)
			defer sv.Release()

			assert.Equal(t, mode, sv.Mode())
			assert.Equal(t, 4, sv.MaxSlots())
			assert.Equal(t, 0, sv.NumSlots())

			sv.SetIndex(0, 3)
			sv.SetIndex(1, 9)
			require.NoError(t, sv.SetNumSlots(2))

			assert.Equal(t, uint64(3), sv.Index(0))
			assert.Equal(t, uint64(9), sv.Index(1))
			assert.Equal(t, 2, sv.NumSlots())

			assert.Error(t, sv.SetNumSlots(5))
			assert.Error(t, sv.SetNumSlots(-1))
		})
	}
}

func TestMakeRejectsNone(t *testing.T) {
	_, err := Make(ModeNone, 4, memory.NewGoAllocator())
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
}

func TestMakeRejectsNilPool(t *testing.T) {
	_, err := MakeUint32(4, nil)
	assert.Error(t, err)
}

func TestFromIndices(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	sv, err := FromIndices(ModeUint32, []uint64{0, 2, 5}, mem)
	require.NoError(t, err)
	defer sv.Release()

	assert.Equal(t, 3, sv.NumSlots())
	assert.Equal(t, uint64(5), sv.Index(2))

	_, err = FromIndices(ModeUint16, []uint64{70000}, mem)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
}

func TestPopulateFromBitmap(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	sv, err := MakeUint16(16, mem)
	require.NoError(t, err)
	defer sv.Release()

	// bits 0, 3, 9 set
	bitmap := []byte{0b0000_1001, 0b0000_0010}
	require.NoError(t, sv.PopulateFromBitmap(bitmap, 16, 15))

	require.Equal(t, 3, sv.NumSlots())
	assert.Equal(t, uint64(0), sv.Index(0))
	assert.Equal(t, uint64(3), sv.Index(1))
	assert.Equal(t, uint64(9), sv.Index(2))

	assert.Error(t, sv.PopulateFromBitmap(bitmap, 16, 5), "position 9 exceeds max index 5")
	assert.Error(t, sv.PopulateFromBitmap(bitmap, 16, 1<<20), "max index beyond uint16")
	assert.Error(t, sv.PopulateFromBitmap(bitmap[:1], 16, 15), "bitmap too short")
}

func TestPopulateFromBitmapOverflow(t *testing.T) {
	sv, err := MakeUint32(1, memory.NewGoAllocator())
	require.NoError(t, err)
	defer sv.Release()

	assert.Error(t, sv.PopulateFromBitmap([]byte{0b11}, 2, 10))
}

func TestToArray(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	sv, err := FromIndices(ModeUint32, []uint64{1, 4}, mem)
	require.NoError(t, err)
	defer sv.Release()

	arr := sv.ToArray()
	defer arr.Release()

	typed, ok := arr.(*array.Uint32)
	require.True(t, ok)
	assert.Equal(t, []uint32{1, 4}, typed.Uint32Values())
}
