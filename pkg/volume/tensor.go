package volume

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ErrUnsupportedDtype is returned for tensors that do not hold integers
var ErrUnsupportedDtype = errors.New("volume: tensor dtype cannot hold labels")

// FromTensor copies an integer tensor into a Volume of the same shape.
// Negative values are rejected since labels are non-negative
func FromTensor(t *tensor.Dense) (*Volume, error) {
	shape := []int(t.Shape())
	size, err := sizeOf(shape)
	if err != nil {
		return nil, err
	}

	var data []uint64
	switch backing := t.Data().(type) {
	case []uint8:
		data = widen(backing)
	case []uint16:
		data = widen(backing)
	case []uint32:
		data = widen(backing)
	case []uint64:
		data = append([]uint64(nil), backing...)
	case []uint:
		data = widen(backing)
	case []int8:
		data, err = widenSigned(backing)
	case []int16:
		data, err = widenSigned(backing)
	case []int32:
		data, err = widenSigned(backing)
	case []int64:
		data, err = widenSigned(backing)
	case []int:
		data, err = widenSigned(backing)
	default:
		return nil, errors.Wrapf(ErrUnsupportedDtype, "%v", t.Dtype())
	}
	if err != nil {
		return nil, err
	}
	if len(data) != size {
		return nil, errors.Wrapf(ErrInvalidShape, "tensor shape %v holds %d values", shape, len(data))
	}
	return FromSlice(data, shape...)
}

func widen[T uint8 | uint16 | uint32 | uint](src []T) []uint64 {
	out := make([]uint64, len(src))
	for i, x := range src {
		out[i] = uint64(x)
	}
	return out
}

func widenSigned[T int8 | int16 | int32 | int64 | int](src []T) ([]uint64, error) {
	out := make([]uint64, len(src))
	for i, x := range src {
		if x < 0 {
			return nil, errors.Errorf("volume: negative label %d at index %d", x, i)
		}
		out[i] = uint64(x)
	}
	return out, nil
}
