// Package volume implements the rank-3 numeric container used by every layer.
//
// A Volume holds Planes × Height × Width float64 values in one dense,
// row-major slice (plane-major, then row, then column). Operations never
// modify their receiver; they return new Volumes.
//
// The package provides:
//   - Construction: New, FromSlice, Clone
//   - Valid convolution: ApplyFilter, ApplyFilters
//   - Max pooling with argmax routing: ApplyMax
//   - Padding and elementwise mapping: Pad, Map
//   - Connection maps for convolution backward passes: ConnectionMapFor
package volume

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Shape describes the dimensions of a Volume.
type Shape struct {
	Planes int
	Height int
	Width  int
}

// Len returns the number of scalars a volume of this shape holds.
func (s Shape) Len() int {
	return s.Planes * s.Height * s.Width
}

// PlaneLen returns the number of scalars in one plane.
func (s Shape) PlaneLen() int {
	return s.Height * s.Width
}

// Validate checks that every dimension is positive.
func (s Shape) Validate() error {
	if s.Planes <= 0 || s.Height <= 0 || s.Width <= 0 {
		return fmt.Errorf("invalid shape %v: all dimensions must be > 0", s)
	}
	return nil
}

// String returns the shape as PxHxW.
func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Planes, s.Height, s.Width)
}

// Volume is a dense Planes × Height × Width array of float64.
type Volume struct {
	shape Shape
	data  []float64
}

// New creates a zero-filled volume.
//
// Panics if any dimension is not positive. Use FromSlice for validated
// construction from external data.
func New(planes, height, width int) *Volume {
	s := Shape{Planes: planes, Height: height, Width: width}
	if err := s.Validate(); err != nil {
		panic(fmt.Sprintf("volume.New: %v", err))
	}
	return &Volume{shape: s, data: make([]float64, s.Len())}
}

// Zeros creates a zero-filled volume of the given shape.
func Zeros(s Shape) *Volume {
	return New(s.Planes, s.Height, s.Width)
}

// FromSlice wraps data as a volume of the given shape.
//
// The slice is used directly (not copied). Returns an error if the shape is
// invalid or the slice length does not match it.
func FromSlice(s Shape, data []float64) (*Volume, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(data) != s.Len() {
		return nil, &ShapeError{Op: "volume.FromSlice", Want: s, Got: Shape{Planes: 1, Height: 1, Width: len(data)}}
	}
	return &Volume{shape: s, data: data}, nil
}

// Vector creates a 1×1×len(values) volume holding a copy of values.
//
// This is the layout produced by fully-connected and softmax layers.
func Vector(values ...float64) *Volume {
	v := New(1, 1, len(values))
	copy(v.data, values)
	return v
}

// Shape returns the volume's dimensions.
func (v *Volume) Shape() Shape { return v.shape }

// Planes returns the plane count.
func (v *Volume) Planes() int { return v.shape.Planes }

// Height returns the plane height.
func (v *Volume) Height() int { return v.shape.Height }

// Width returns the plane width.
func (v *Volume) Width() int { return v.shape.Width }

// Len returns the total number of scalars.
func (v *Volume) Len() int { return len(v.data) }

// Data returns the backing slice. Mutations are visible to the volume.
func (v *Volume) Data() []float64 { return v.data }

// Plane returns the backing slice of plane p.
func (v *Volume) Plane(p int) []float64 {
	n := v.shape.PlaneLen()
	return v.data[p*n : (p+1)*n]
}

// Index returns the flat offset of (p, y, x).
func (v *Volume) Index(p, y, x int) int {
	return (p*v.shape.Height+y)*v.shape.Width + x
}

// At returns the value at (p, y, x).
func (v *Volume) At(p, y, x int) float64 {
	return v.data[v.Index(p, y, x)]
}

// Set stores val at (p, y, x).
func (v *Volume) Set(p, y, x int, val float64) {
	v.data[v.Index(p, y, x)] = val
}

// Clone returns a deep copy.
func (v *Volume) Clone() *Volume {
	data := make([]float64, len(v.data))
	copy(data, v.data)
	return &Volume{shape: v.shape, data: data}
}

// Equal reports whether both volumes have the same shape and values.
func (v *Volume) Equal(other *Volume) bool {
	return v.shape == other.shape && floats.Equal(v.data, other.data)
}

// Pad returns a copy surrounded by a symmetric zero border of the given width.
func (v *Volume) Pad(amount int) *Volume {
	if amount < 0 {
		panic(fmt.Sprintf("volume.Pad: negative amount %d", amount))
	}
	if amount == 0 {
		return v.Clone()
	}
	out := New(v.shape.Planes, v.shape.Height+2*amount, v.shape.Width+2*amount)
	for p := 0; p < v.shape.Planes; p++ {
		for y := 0; y < v.shape.Height; y++ {
			src := v.data[v.Index(p, y, 0) : v.Index(p, y, 0)+v.shape.Width]
			dst := out.Index(p, y+amount, amount)
			copy(out.data[dst:dst+v.shape.Width], src)
		}
	}
	return out
}

// Map applies fn to every element and returns the result.
func (v *Volume) Map(fn func(float64) float64) *Volume {
	out := &Volume{shape: v.shape, data: make([]float64, len(v.data))}
	for i, x := range v.data {
		out.data[i] = fn(x)
	}
	return out
}

// Sub returns v - other elementwise.
func (v *Volume) Sub(other *Volume) (*Volume, error) {
	if v.shape != other.shape {
		return nil, &ShapeError{Op: "volume.Sub", Want: v.shape, Got: other.shape}
	}
	out := &Volume{shape: v.shape, data: make([]float64, len(v.data))}
	floats.SubTo(out.data, v.data, other.data)
	return out, nil
}

// SumSquares returns the sum of squared elements.
func (v *Volume) SumSquares() float64 {
	return floats.Dot(v.data, v.data)
}

// ArgMax returns the flat index of the largest element (first on ties).
func (v *Volume) ArgMax() int {
	return floats.MaxIdx(v.data)
}

// String returns a short description, not the contents.
func (v *Volume) String() string {
	return fmt.Sprintf("Volume(%v)", v.shape)
}
