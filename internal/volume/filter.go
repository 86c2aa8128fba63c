package volume

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ConvOutputSize returns the number of valid window positions along one
// dimension: floor((length - size + stride) / stride).
//
// The result is <= 0 when no window fits.
func ConvOutputSize(length, size, stride int) int {
	n := length - size + stride
	if n <= 0 {
		return 0
	}
	return n / stride
}

// PoolOutputSize returns the number of pooling windows along one dimension:
// ceil((length - size + stride) / stride).
//
// Unlike ConvOutputSize this rounds up, so a trailing partial window is kept.
func PoolOutputSize(length, size, stride int) int {
	n := length - size + stride
	if n <= 0 {
		return 0
	}
	return (n + stride - 1) / stride
}

// FilterBank holds Out × In square kernels of Size × Size taps.
//
// Weights is laid out [out][in][row][col]; Kernel returns the slice for one
// (out, in) pair.
type FilterBank struct {
	Out     int
	In      int
	Size    int
	Weights []float64
}

// KernelLen returns Size*Size.
func (b FilterBank) KernelLen() int {
	return b.Size * b.Size
}

// Kernel returns the taps connecting input plane in to output plane out.
func (b FilterBank) Kernel(out, in int) []float64 {
	n := b.KernelLen()
	off := (out*b.In + in) * n
	return b.Weights[off : off+n]
}

// Validate checks that the weight slice matches the declared dimensions.
func (b FilterBank) Validate() error {
	if b.Out <= 0 || b.In <= 0 || b.Size <= 0 {
		return fmt.Errorf("invalid filter bank %dx%dx%d", b.Out, b.In, b.Size)
	}
	if len(b.Weights) != b.Out*b.In*b.KernelLen() {
		return fmt.Errorf("filter bank weights: want %d values, got %d",
			b.Out*b.In*b.KernelLen(), len(b.Weights))
	}
	return nil
}

// ApplyFilter convolves plane p with one kernel (valid, no padding) and
// accumulates the result into dst.
//
// dst must hold outH*outW values where outH and outW follow ConvOutputSize.
// Each window row is reduced with a single dot product.
func (v *Volume) ApplyFilter(dst, kernel []float64, p, size, stride int) {
	outH := ConvOutputSize(v.shape.Height, size, stride)
	outW := ConvOutputSize(v.shape.Width, size, stride)
	plane := v.Plane(p)
	w := v.shape.Width

	for oy := 0; oy < outH; oy++ {
		for ox := 0; ox < outW; ox++ {
			sum := 0.0
			for ky := 0; ky < size; ky++ {
				rowStart := (oy*stride+ky)*w + ox*stride
				sum += floats.Dot(kernel[ky*size:(ky+1)*size], plane[rowStart:rowStart+size])
			}
			dst[oy*outW+ox] += sum
		}
	}
}

// ApplyFilters performs a valid convolution with a filter bank.
//
// Output plane o is the sum over input planes i of the convolution of plane i
// with bank.Kernel(o, i). Output size per dimension is
// floor((in - size + stride) / stride).
//
// Returns a *ShapeError when the bank does not match the volume's planes or no
// window fits.
func (v *Volume) ApplyFilters(bank FilterBank, stride int) (*Volume, error) {
	if err := bank.Validate(); err != nil {
		return nil, err
	}
	if stride <= 0 {
		return nil, fmt.Errorf("volume.ApplyFilters: invalid stride %d", stride)
	}
	if bank.In != v.shape.Planes {
		return nil, &ShapeError{
			Op:   "volume.ApplyFilters",
			Want: Shape{Planes: bank.In, Height: v.shape.Height, Width: v.shape.Width},
			Got:  v.shape,
		}
	}
	outH := ConvOutputSize(v.shape.Height, bank.Size, stride)
	outW := ConvOutputSize(v.shape.Width, bank.Size, stride)
	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("volume.ApplyFilters: kernel %d does not fit input %v: %w",
			bank.Size, v.shape, ErrShapeMismatch)
	}

	out := New(bank.Out, outH, outW)
	for o := 0; o < bank.Out; o++ {
		dst := out.Plane(o)
		for i := 0; i < bank.In; i++ {
			v.ApplyFilter(dst, bank.Kernel(o, i), i, bank.Size, stride)
		}
	}
	return out, nil
}
