// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package volume

import "github.com/born-ml/volnet/internal/volume"

// Shape is the (planes, height, width) extent of a volume.
type Shape = volume.Shape

// Volume is a dense rank-3 array of float64.
type Volume = volume.Volume

// New creates a zero volume. Panics if any dimension is not positive.
func New(planes, height, width int) *Volume {
	return volume.New(planes, height, width)
}

// Zeros creates a zero volume of the given shape.
func Zeros(s Shape) *Volume {
	return volume.Zeros(s)
}

// FromSlice wraps data (row-major, plane by plane) without copying.
func FromSlice(s Shape, data []float64) (*Volume, error) {
	return volume.FromSlice(s, data)
}

// Vector creates a 1×1×n volume holding values.
func Vector(values ...float64) *Volume {
	return volume.Vector(values...)
}

// Errors

// ErrShapeMismatch is the sentinel wrapped by every shape error.
var ErrShapeMismatch = volume.ErrShapeMismatch

// ShapeError reports a rejected volume with the declared and received shapes.
type ShapeError = volume.ShapeError

// Convolution and pooling

// FilterBank is a set of square kernels laid out [out][in][size][size].
type FilterBank = volume.FilterBank

// NoSource marks a pooled cell whose window had no in-bounds input.
const NoSource = volume.NoSource

// ConvOutputSize returns floor((length - size + stride) / stride).
func ConvOutputSize(length, size, stride int) int {
	return volume.ConvOutputSize(length, size, stride)
}

// PoolOutputSize returns ceil((length - size + stride) / stride).
func PoolOutputSize(length, size, stride int) int {
	return volume.PoolOutputSize(length, size, stride)
}

// ConnectionMap lists, per input position, the (output position, kernel tap)
// pairs of a strided 1-D window.
type ConnectionMap = volume.ConnectionMap

// Tap is one entry of a ConnectionMap.
type Tap = volume.Tap

// ConnectionMapFor returns the shared map for (length, size, stride).
func ConnectionMapFor(length, size, stride int) *ConnectionMap {
	return volume.ConnectionMapFor(length, size, stride)
}
