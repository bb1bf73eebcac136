package volume

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"segoverlap/internal/models"
)

var (
	// ErrNoSlices is returned when a directory holds no matching slice images
	ErrNoSlices = errors.New("volume: no slice images found")

	// ErrUnsupportedImage is returned for images that are not 8 or 16-bit gray.
	// Colour or lossy images cannot carry exact label values
	ErrUnsupportedImage = errors.New("volume: unsupported label image")

	// ErrLabelOverflow is returned when a label does not fit a 16-bit slice
	ErrLabelOverflow = errors.New("volume: label exceeds 16 bits")
)

// DefaultPattern matches the slice files read by LoadSlices
const DefaultPattern = "*.png"

// LoadSlices stacks the 2D label images in dir that match pattern into a
// (z, y, x) volume. Slices are ordered by the number embedded in their file
// name and must all share the same size
func LoadSlices(dir, pattern string) (*Volume, []models.Slice, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "volume: bad pattern %q", pattern)
	}
	if len(files) == 0 {
		return nil, nil, errors.Wrapf(ErrNoSlices, "%s/%s", dir, pattern)
	}

	// Sort by slice number so the stack keeps its anatomical order
	sort.SliceStable(files, func(i, j int) bool {
		return extractNumber(files[i]) < extractNumber(files[j])
	})

	var (
		data          []uint64
		slices        []models.Slice
		width, height int
	)
	for z, path := range files {
		img, err := loadImage(path)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "volume: failed to load %s", path)
		}
		bounds := img.Bounds()
		if z == 0 {
			width, height = bounds.Dx(), bounds.Dy()
			data = make([]uint64, 0, width*height*len(files))
		} else if bounds.Dx() != width || bounds.Dy() != height {
			return nil, nil, errors.Wrapf(ErrInvalidShape, "%s is %dx%d, expected %dx%d",
				path, bounds.Dx(), bounds.Dy(), width, height)
		}

		data, err = appendLabels(data, img)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "volume: %s", path)
		}
		slices = append(slices, models.Slice{
			Index:    z,
			Filename: filepath.Base(path),
			Width:    width,
			Height:   height,
		})
	}

	v, err := FromSlice(data, len(files), height, width)
	if err != nil {
		return nil, nil, err
	}
	return v, slices, nil
}

// SaveSlices writes a 3D volume as one 16-bit PNG per z plane, named
// prefix_000.png, prefix_001.png, ..
func SaveSlices(v *Volume, dir, prefix string) error {
	if len(v.shape) != 3 {
		return errors.Wrapf(ErrInvalidShape, "slices need a 3D volume, got %v", v.shape)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "volume: failed to create slice directory")
	}

	for z := 0; z < v.shape[0]; z++ {
		img, err := v.Plane(models.AxisZ, z)
		if err != nil {
			return err
		}
		filename := filepath.Join(dir, fmt.Sprintf("%s_%03d.png", prefix, z))
		if err := saveImage(img, filename); err != nil {
			return errors.Wrapf(err, "volume: failed to save %s", filename)
		}
	}
	return nil
}

// Plane extracts the 2D slice of a (z, y, x) volume at pos along axis as a
// 16-bit label image
func (v *Volume) Plane(axis models.Axis, pos int) (*image.Gray16, error) {
	if len(v.shape) != 3 {
		return nil, errors.Wrapf(ErrInvalidShape, "planes need a 3D volume, got %v", v.shape)
	}
	depth, height, width := v.shape[0], v.shape[1], v.shape[2]

	var (
		w, h int
		at   func(x, y int) []int
	)
	switch axis {
	case models.AxisZ:
		w, h = width, height
		at = func(x, y int) []int { return []int{pos, y, x} }
	case models.AxisY:
		w, h = width, depth
		at = func(x, y int) []int { return []int{y, pos, x} }
	case models.AxisX:
		w, h = depth, height
		at = func(x, y int) []int { return []int{x, y, pos} }
	default:
		return nil, errors.Errorf("volume: invalid axis %d", axis)
	}
	if pos < 0 || pos >= v.shape[axis] {
		return nil, errors.Wrapf(ErrOutOfBounds, "position %d on axis %d of size %d", pos, axis, v.shape[axis])
	}

	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			label := v.At(at(x, y))
			if label > 0xffff {
				return nil, errors.Wrapf(ErrLabelOverflow, "label %d", label)
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(label)})
		}
	}
	return img, nil
}

// appendLabels appends the labels of img in row-major order
func appendLabels(data []uint64, img image.Image) ([]uint64, error) {
	b := img.Bounds()
	switch src := img.(type) {
	case *image.Gray16:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				data = append(data, uint64(src.Gray16At(x, y).Y))
			}
		}
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				data = append(data, uint64(src.GrayAt(x, y).Y))
			}
		}
	default:
		return nil, errors.Wrapf(ErrUnsupportedImage, "color model %T", img.ColorModel())
	}
	return data, nil
}

// extractNumber extracts the digits of a file name as a slice number
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}

	if numStr != "" {
		num, err := strconv.Atoi(numStr)
		if err == nil {
			return num
		}
	}
	return 0
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return png.Decode(file)
}

func saveImage(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
