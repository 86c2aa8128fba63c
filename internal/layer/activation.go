package layer

import (
	"fmt"

	"github.com/born-ml/volnet/internal/activation"
	"github.com/born-ml/volnet/internal/volume"
)

// Activation applies an activation function to every element.
type Activation struct {
	stateless
	fn    activation.Func
	shape volume.Shape
}

// NewActivation creates an elementwise activation layer. A zero parameter
// selects the kind's default (sigmoid steepness 2, leaky slope 0.01).
func NewActivation(shape volume.Shape, fn activation.Func) (*Activation, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	if fn.Param == 0 {
		fn = activation.Default(fn.Kind)
	}
	return &Activation{fn: fn, shape: shape}, nil
}

// InShape returns the declared shape.
func (a *Activation) InShape() volume.Shape { return a.shape }

// OutShape returns the declared shape.
func (a *Activation) OutShape() volume.Shape { return a.shape }

// Func returns the activation function.
func (a *Activation) Func() activation.Func { return a.fn }

// Forward applies the function elementwise.
func (a *Activation) Forward(in *volume.Volume) (*volume.Volume, Trace, error) {
	if err := volume.CheckShape("activation.Forward", in, a.shape); err != nil {
		return nil, Trace{}, err
	}
	out := in.Map(a.fn.Apply)
	return out, Trace{Input: in, Output: out}, nil
}

// Backward returns grad ⊙ f'(input).
func (a *Activation) Backward(tr Trace, grad *volume.Volume) (*volume.Volume, error) {
	if err := checkBackward("activation.Backward", tr, grad, a.shape, a.shape); err != nil {
		return nil, err
	}
	down := tr.Input.Map(a.fn.Derivative)
	d := down.Data()
	for i, g := range grad.Data() {
		d[i] *= g
	}
	return down, nil
}

// MergeGradients checks the replicas' type; there is nothing to merge.
func (a *Activation) MergeGradients(replicas []Layer) error {
	return mergeGradients[*Activation](nil, replicas)
}

// Clone returns a copy.
func (a *Activation) Clone() Layer {
	clone := *a
	return &clone
}

func (a *Activation) String() string {
	return fmt.Sprintf("Activation(%v, %v)", a.shape, a.fn)
}
