package layer

import (
	"fmt"

	"github.com/born-ml/volnet/internal/volume"
)

// MaxPooling downsamples every plane by taking the maximum of each window.
//
// Windows may overlap (stride < size) and may run past the border, in which
// case out-of-bounds cells are ignored. Output size uses ceiling division.
type MaxPooling struct {
	stateless
	size   int
	stride int
	in     volume.Shape
	out    volume.Shape
}

// NewMaxPooling creates a pooling layer. A zero stride defaults to size.
func NewMaxPooling(in volume.Shape, size, stride int) (*MaxPooling, error) {
	if stride == 0 {
		stride = size
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	if size <= 0 || stride <= 0 {
		return nil, fmt.Errorf("%w: pooling size=%d stride=%d", ErrInvalidGeometry, size, stride)
	}
	out := volume.Shape{
		Planes: in.Planes,
		Height: volume.PoolOutputSize(in.Height, size, stride),
		Width:  volume.PoolOutputSize(in.Width, size, stride),
	}
	if out.Height <= 0 || out.Width <= 0 {
		return nil, fmt.Errorf("%w: window %d does not fit input %v", ErrInvalidGeometry, size, in)
	}
	return &MaxPooling{size: size, stride: stride, in: in, out: out}, nil
}

// InShape returns the declared input shape.
func (m *MaxPooling) InShape() volume.Shape { return m.in }

// OutShape returns the pooled shape.
func (m *MaxPooling) OutShape() volume.Shape { return m.out }

// Forward pools the input and records the winning source of every cell.
func (m *MaxPooling) Forward(in *volume.Volume) (*volume.Volume, Trace, error) {
	if err := volume.CheckShape("maxpool.Forward", in, m.in); err != nil {
		return nil, Trace{}, err
	}
	out, argmax, err := in.ApplyMax(m.size, m.stride)
	if err != nil {
		return nil, Trace{}, fmt.Errorf("maxpool.Forward: %w", err)
	}
	return out, Trace{Input: in, Output: out, argmax: argmax}, nil
}

// Backward routes each pooled gradient to its source cell. Sources shared by
// overlapping windows receive the sum.
func (m *MaxPooling) Backward(tr Trace, grad *volume.Volume) (*volume.Volume, error) {
	if err := checkBackward("maxpool.Backward", tr, grad, m.in, m.out); err != nil {
		return nil, err
	}
	if len(tr.argmax) != m.out.Len() {
		return nil, fmt.Errorf("maxpool.Backward: %w: argmax map has %d entries, want %d",
			ErrInvalidTrace, len(tr.argmax), m.out.Len())
	}
	down := volume.Zeros(m.in)
	d := down.Data()
	for i, g := range grad.Data() {
		if src := tr.argmax[i]; src != volume.NoSource {
			d[src] += g
		}
	}
	return down, nil
}

// MergeGradients checks the replicas' type; pooling has nothing to merge.
func (m *MaxPooling) MergeGradients(replicas []Layer) error {
	return mergeGradients[*MaxPooling](nil, replicas)
}

// Clone returns a copy of the pooling geometry.
func (m *MaxPooling) Clone() Layer {
	clone := *m
	return &clone
}

func (m *MaxPooling) String() string {
	return fmt.Sprintf("MaxPooling(%v -> %v, size=%d stride=%d)", m.in, m.out, m.size, m.stride)
}
