// Package volume provides dense N-dimensional label arrays and the adapters
// that load them from image stacks and tensors.
package volume

import (
	"math"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidShape is returned for empty shapes, non-positive dimensions or
	// backing data of the wrong length
	ErrInvalidShape = errors.New("volume: invalid shape")

	// ErrOutOfBounds is returned when a coordinate or region leaves the volume
	ErrOutOfBounds = errors.New("volume: coordinate out of bounds")
)

// Volume is a dense label array stored in row-major order, last axis fastest.
// A Volume is safe for concurrent reads once it is no longer written
type Volume struct {
	data    []uint64
	shape   []int
	strides []int
}

// New allocates a zero (all background) volume of the given shape
func New(shape ...int) (*Volume, error) {
	size, err := sizeOf(shape)
	if err != nil {
		return nil, err
	}
	return newVolume(make([]uint64, size), shape), nil
}

// FromSlice wraps data as a volume without copying it
func FromSlice(data []uint64, shape ...int) (*Volume, error) {
	size, err := sizeOf(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != size {
		return nil, errors.Wrapf(ErrInvalidShape, "shape %v needs %d labels, got %d", shape, size, len(data))
	}
	return newVolume(data, shape), nil
}

func sizeOf(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, errors.Wrap(ErrInvalidShape, "no dimensions")
	}
	size := 1
	for d, n := range shape {
		if n <= 0 {
			return 0, errors.Wrapf(ErrInvalidShape, "dimension %d has size %d", d, n)
		}
		if size > math.MaxInt/n {
			return 0, errors.Wrapf(ErrInvalidShape, "shape %v exceeds %d positions", shape, math.MaxInt)
		}
		size *= n
	}
	return size, nil
}

func newVolume(data []uint64, shape []int) *Volume {
	s := make([]int, len(shape))
	copy(s, shape)
	strides := make([]int, len(s))
	stride := 1
	for d := len(s) - 1; d >= 0; d-- {
		strides[d] = stride
		stride *= s[d]
	}
	return &Volume{data: data, shape: s, strides: strides}
}

// Shape returns a copy of the volume extent
func (v *Volume) Shape() []int {
	s := make([]int, len(v.shape))
	copy(s, v.shape)
	return s
}

// Len returns the number of positions
func (v *Volume) Len() int { return len(v.data) }

// At returns the label at coord. coord must lie inside the volume
func (v *Volume) At(coord []int) uint64 {
	return v.data[v.offset(coord)]
}

// AtIndex returns the label at row-major index i
func (v *Volume) AtIndex(i int) uint64 { return v.data[i] }

// Set stores label at coord
func (v *Volume) Set(coord []int, label uint64) error {
	if !v.contains(coord) {
		return errors.Wrapf(ErrOutOfBounds, "coordinate %v, shape %v", coord, v.shape)
	}
	v.data[v.offset(coord)] = label
	return nil
}

// Labels returns the backing store. Callers must not modify it while the
// volume is being read
func (v *Volume) Labels() []uint64 { return v.data }

func (v *Volume) offset(coord []int) int {
	off := 0
	for d, c := range coord {
		off += c * v.strides[d]
	}
	return off
}

func (v *Volume) contains(coord []int) bool {
	if len(coord) != len(v.shape) {
		return false
	}
	for d, c := range coord {
		if c < 0 || c >= v.shape[d] {
			return false
		}
	}
	return true
}

// Permute returns a volume of the same shape whose k-th position holds the
// label at position perm[k] of v. perm must be a permutation of [0, Len())
func (v *Volume) Permute(perm []int) (*Volume, error) {
	if len(perm) != len(v.data) {
		return nil, errors.Wrapf(ErrInvalidShape, "permutation of length %d for %d labels", len(perm), len(v.data))
	}
	seen := make([]bool, len(perm))
	out := make([]uint64, len(v.data))
	for k, src := range perm {
		if src < 0 || src >= len(v.data) || seen[src] {
			return nil, errors.Errorf("volume: invalid permutation entry %d at %d", src, k)
		}
		seen[src] = true
		out[k] = v.data[src]
	}
	return newVolume(out, v.shape), nil
}

// Region copies the box starting at start with the given size
func (v *Volume) Region(start, size []int) (*Volume, error) {
	if len(start) != len(v.shape) || len(size) != len(v.shape) {
		return nil, errors.Wrapf(ErrOutOfBounds, "region rank %d/%d, volume rank %d", len(start), len(size), len(v.shape))
	}
	for d := range v.shape {
		if start[d] < 0 || size[d] <= 0 || start[d]+size[d] > v.shape[d] {
			return nil, errors.Wrapf(ErrOutOfBounds, "region [%d, %d) on axis %d of size %d", start[d], start[d]+size[d], d, v.shape[d])
		}
	}

	out, err := New(size...)
	if err != nil {
		return nil, err
	}
	coord := make([]int, len(size))
	src := make([]int, len(size))
	for k := range out.data {
		for d := range coord {
			src[d] = start[d] + coord[d]
		}
		out.data[k] = v.At(src)
		for d := len(coord) - 1; d >= 0; d-- {
			coord[d]++
			if coord[d] < size[d] {
				break
			}
			coord[d] = 0
		}
	}
	return out, nil
}
