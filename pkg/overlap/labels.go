// Package overlap builds the label-overlap (confusion) matrix between a
// ground-truth and a predicted instance segmentation of the same domain.
//
// Cell (i, j) of the matrix counts the positions where ground-truth label of
// rank i and prediction label of rank j coincide. Label 0 is background and is
// never counted. Ranks are dense zero-based indices local to one Matrix.
package overlap

import (
	"math"

	"github.com/pkg/errors"
)

// Background is the label value ignored by every histogram and matrix cell
const Background uint64 = 0

var (
	// ErrShapeMismatch is returned when the two label arrays do not share the
	// same extent. It is reported before any traversal
	ErrShapeMismatch = errors.New("overlap: label arrays have different shapes")

	// ErrInvalidShape is returned when an extent has no dimensions or a
	// non-positive dimension
	ErrInvalidShape = errors.New("overlap: invalid label array shape")

	// ErrNilLabels is returned when either input is nil
	ErrNilLabels = errors.New("overlap: nil label array")

	// ErrRankOutOfRange is returned by the checked accessors
	ErrRankOutOfRange = errors.New("overlap: rank out of range")
)

// Labels is a read-only N-dimensional array of labels with a fixed extent.
// Implementations must be safe for concurrent reads
type Labels interface {
	// Shape returns the extent of the array, one entry per dimension
	Shape() []int

	// At returns the label stored at coord, addressed in row-major order
	At(coord []int) uint64
}

// Indexed is an optional fast path for Labels stored in row-major order.
// When both inputs implement it the builder walks linear indices and never
// materializes coordinates
type Indexed interface {
	Labels
	Len() int
	AtIndex(i int) uint64
}

// extent describes a row-major coordinate space
type extent struct {
	shape []int
	size  int
}

func newExtent(shape []int) (extent, error) {
	if len(shape) == 0 {
		return extent{}, errors.Wrap(ErrInvalidShape, "no dimensions")
	}
	size := 1
	for d, n := range shape {
		if n <= 0 {
			return extent{}, errors.Wrapf(ErrInvalidShape, "dimension %d has size %d", d, n)
		}
		if size > math.MaxInt/n {
			return extent{}, errors.Wrapf(ErrInvalidShape, "shape %v exceeds %d positions", shape, math.MaxInt)
		}
		size *= n
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return extent{shape: s, size: size}, nil
}

// unravel writes the coordinate of linear index i into coord
func (e extent) unravel(i int, coord []int) {
	for d := len(e.shape) - 1; d >= 0; d-- {
		coord[d] = i % e.shape[d]
		i /= e.shape[d]
	}
}

// next advances coord by one position in row-major order
func (e extent) next(coord []int) {
	for d := len(e.shape) - 1; d >= 0; d-- {
		coord[d]++
		if coord[d] < e.shape[d] {
			return
		}
		coord[d] = 0
	}
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// walker visits pairs of labels over a half-open range of linear indices
type walker struct {
	gt, pred       Labels
	gtIdx, predIdx Indexed
	ext            extent
}

func newWalker(gt, pred Labels) (*walker, error) {
	if gt == nil || pred == nil {
		return nil, ErrNilLabels
	}
	gtShape, predShape := gt.Shape(), pred.Shape()
	if !sameShape(gtShape, predShape) {
		return nil, errors.Wrapf(ErrShapeMismatch, "ground truth %v, prediction %v", gtShape, predShape)
	}
	ext, err := newExtent(gtShape)
	if err != nil {
		return nil, err
	}

	w := &walker{gt: gt, pred: pred, ext: ext}
	gi, gok := gt.(Indexed)
	pi, pok := pred.(Indexed)
	if gok && pok && gi.Len() == ext.size && pi.Len() == ext.size {
		w.gtIdx, w.predIdx = gi, pi
	}
	return w, nil
}

// walk calls visit(g, p) for every position in [start, end)
func (w *walker) walk(start, end int, visit func(g, p uint64)) {
	if start >= end {
		return
	}
	if w.gtIdx != nil {
		for i := start; i < end; i++ {
			visit(w.gtIdx.AtIndex(i), w.predIdx.AtIndex(i))
		}
		return
	}

	coord := make([]int, len(w.ext.shape))
	w.ext.unravel(start, coord)
	for i := start; i < end; i++ {
		visit(w.gt.At(coord), w.pred.At(coord))
		w.ext.next(coord)
	}
}

// shards splits [0, size) into at most n contiguous ranges
func (w *walker) shards(n int) [][2]int {
	size := w.ext.size
	if n < 1 {
		n = 1
	}
	if n > size {
		n = size
	}
	per := (size + n - 1) / n
	out := make([][2]int, 0, n)
	for start := 0; start < size; start += per {
		end := start + per
		if end > size {
			end = size
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
