package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewVolume verifies allocation, strides and invalid shapes
func TestNewVolume(t *testing.T) {
	v, err := New(2, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, v.Shape())
	assert.Equal(t, 24, v.Len())
	assert.Equal(t, []int{12, 4, 1}, v.strides)
	for i := 0; i < v.Len(); i++ {
		assert.Zero(t, v.AtIndex(i))
	}

	for _, shape := range [][]int{nil, {0}, {3, -1}} {
		_, err := New(shape...)
		assert.ErrorIs(t, err, ErrInvalidShape, "shape %v", shape)
	}
}

// TestFromSliceRowMajor verifies row-major addressing of wrapped data
func TestFromSliceRowMajor(t *testing.T) {
	v, err := FromSlice([]uint64{0, 1, 2, 3, 4, 5}, 2, 3)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), v.At([]int{0, 0}))
	assert.Equal(t, uint64(2), v.At([]int{0, 2}))
	assert.Equal(t, uint64(3), v.At([]int{1, 0}))
	assert.Equal(t, uint64(5), v.At([]int{1, 2}))

	_, err = FromSlice([]uint64{1, 2, 3}, 2, 2)
	assert.ErrorIs(t, err, ErrInvalidShape)
}

// TestShapeIsCopied verifies that the volume shape cannot be changed through its arguments or results
func TestShapeIsCopied(t *testing.T) {
	shape := []int{2, 2}
	v, err := New(shape...)
	require.NoError(t, err)

	shape[0] = 9
	got := v.Shape()
	got[1] = 7
	assert.Equal(t, []int{2, 2}, v.Shape())
}

// TestSet verifies writes and out of bounds coordinates
func TestSet(t *testing.T) {
	v, err := New(2, 2, 2)
	require.NoError(t, err)

	require.NoError(t, v.Set([]int{1, 0, 1}, 42))
	assert.Equal(t, uint64(42), v.At([]int{1, 0, 1}))
	assert.Equal(t, uint64(42), v.AtIndex(5))

	assert.ErrorIs(t, v.Set([]int{2, 0, 0}, 1), ErrOutOfBounds)
	assert.ErrorIs(t, v.Set([]int{0, 0}, 1), ErrOutOfBounds)
	assert.ErrorIs(t, v.Set([]int{0, -1, 0}, 1), ErrOutOfBounds)
}

// TestPermute verifies flat permutations and invalid permutations
func TestPermute(t *testing.T) {
	v, err := FromSlice([]uint64{10, 20, 30, 40}, 2, 2)
	require.NoError(t, err)

	p, err := v.Permute([]int{3, 1, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, []uint64{40, 20, 10, 30}, p.Labels())
	assert.Equal(t, []uint64{10, 20, 30, 40}, v.Labels())

	_, err = v.Permute([]int{0, 1})
	assert.ErrorIs(t, err, ErrInvalidShape)
	_, err = v.Permute([]int{0, 1, 1, 2})
	assert.Error(t, err)
	_, err = v.Permute([]int{0, 1, 2, 4})
	assert.Error(t, err)
}

// TestRegion verifies box extraction and out of bounds regions
func TestRegion(t *testing.T) {
	data := make([]uint64, 3*4*5)
	for i := range data {
		data[i] = uint64(i)
	}
	v, err := FromSlice(data, 3, 4, 5)
	require.NoError(t, err)

	r, err := v.Region([]int{1, 1, 2}, []int{2, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 3}, r.Shape())
	for z := 0; z < 2; z++ {
		for y := 0; y < 2; y++ {
			for x := 0; x < 3; x++ {
				assert.Equal(t, v.At([]int{1 + z, 1 + y, 2 + x}), r.At([]int{z, y, x}))
			}
		}
	}

	_, err = v.Region([]int{2, 0, 0}, []int{2, 1, 1})
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = v.Region([]int{0, 0}, []int{1, 1})
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = v.Region([]int{0, 0, 0}, []int{1, 0, 1})
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

// TestShapeOverflow verifies that shapes larger than an int can address are rejected
func TestShapeOverflow(t *testing.T) {
	for _, shape := range [][]int{{4, 1<<62 + 1}, {1 << 32, 1 << 32}} {
		_, err := New(shape...)
		assert.ErrorIs(t, err, ErrInvalidShape, "shape %v", shape)
		_, err = FromSlice(nil, shape...)
		assert.ErrorIs(t, err, ErrInvalidShape, "shape %v", shape)
	}
}
