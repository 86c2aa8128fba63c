// Package layer implements the closed set of network layers.
//
// This package provides:
//   - Layer interface: forward, backward, update, gradient merge and clone
//   - Convolution: general k×k convolution with stride and zero padding
//   - Convolution3x3: vectorized 3×3, stride 1, padding 1 convolution
//   - MaxPooling: strided/overlapping max pooling with argmax routing
//   - FullyConnected: dense projection followed by an activation
//   - Softmax: dense projection followed by softmax normalization
//   - Activation: elementwise activation
//
// Layers keep no per-call state. Forward returns a Trace that carries
// everything Backward needs (the retained input, pre-activations, argmax
// maps), so one layer can serve concurrent inference and every clone owns
// nothing but its weights and gradient accumulator.
//
// Every layer declares its input and output shapes at construction and
// rejects other shapes with volume.ErrShapeMismatch.
package layer

import (
	"fmt"

	"github.com/born-ml/volnet/internal/optim"
	"github.com/born-ml/volnet/internal/volume"
	"gonum.org/v1/gonum/floats"
)

// Layer is the capability set shared by every layer kind.
type Layer interface {
	// InShape returns the declared input shape.
	InShape() volume.Shape

	// OutShape returns the shape Forward produces.
	OutShape() volume.Shape

	// Forward computes the layer output and the trace Backward needs.
	//
	// Forward does not mutate the layer.
	Forward(in *volume.Volume) (*volume.Volume, Trace, error)

	// Backward consumes the upstream gradient (shape OutShape), adds this
	// sample's contribution to the gradient accumulator and returns the
	// downstream gradient (shape InShape).
	//
	// A convolution flagged as first layer returns a nil downstream gradient.
	Backward(tr Trace, grad *volume.Volume) (*volume.Volume, error)

	// Update flushes the accumulated gradient into the weights and zeroes it.
	Update()

	// MergeGradients adds the gradient accumulators of replicas of this
	// layer into the receiver's accumulator.
	MergeGradients(replicas []Layer) error

	// Clone returns an independent copy with the same weights and a zeroed
	// gradient accumulator.
	Clone() Layer

	// Weights returns the live weight buffer (nil for layers without weights).
	Weights() []float64

	// Gradients returns the live gradient accumulator.
	Gradients() []float64

	fmt.Stringer
}

// Trace is the per-call record passed from Forward to Backward.
type Trace struct {
	Input  *volume.Volume // Input as the layer consumed it (padded for convolutions)
	Output *volume.Volume

	pre    []float64 // Pre-activation state of projection layers
	argmax []int     // Winning source index per pooled cell
}

// params holds a trainable weight buffer and its gradient accumulator.
type params struct {
	weights []float64
	grads   []float64
	rule    optim.Rule
	fanOut  int
}

func newParams(n, fanOut int, rule optim.Rule) params {
	return params{
		weights: make([]float64, n),
		grads:   make([]float64, n),
		rule:    rule,
		fanOut:  fanOut,
	}
}

// Weights returns the live weight buffer.
func (p *params) Weights() []float64 { return p.weights }

// Gradients returns the live gradient accumulator.
func (p *params) Gradients() []float64 { return p.grads }

// LR returns the learning rate of the layer's update rule.
func (p *params) LR() float64 { return p.rule.LR() }

// Update applies the update rule and zeroes the accumulator.
func (p *params) Update() {
	p.rule.Step(p.weights, p.grads, p.fanOut)
}

// clone copies the weights; the gradient starts at zero. Rules are stateless
// and shared.
func (p *params) clone() params {
	c := newParams(len(p.weights), p.fanOut, p.rule)
	copy(c.weights, p.weights)
	return c
}

// mergeGradients sums the accumulators of replicas of type T into dst.
func mergeGradients[T Layer](dst []float64, replicas []Layer) error {
	for i, r := range replicas {
		other, ok := r.(T)
		if !ok {
			return fmt.Errorf("%w: replica %d is %T", ErrIncompatibleLayer, i, r)
		}
		g := other.Gradients()
		if len(g) != len(dst) {
			return fmt.Errorf("%w: replica %d has %d gradients, want %d",
				ErrIncompatibleLayer, i, len(g), len(dst))
		}
		if len(dst) > 0 {
			floats.Add(dst, g)
		}
	}
	return nil
}

// stateless is embedded by layers without weights.
type stateless struct{}

// Weights returns nil.
func (stateless) Weights() []float64 { return nil }

// Gradients returns nil.
func (stateless) Gradients() []float64 { return nil }

// Update is a no-op.
func (stateless) Update() {}

// checkBackward validates the upstream gradient and the trace input.
func checkBackward(op string, tr Trace, grad *volume.Volume, in, out volume.Shape) error {
	if err := volume.CheckShape(op, grad, out); err != nil {
		return err
	}
	if tr.Input == nil || tr.Input.Shape() != in {
		return fmt.Errorf("%s: %w: trace input does not match", op, ErrInvalidTrace)
	}
	return nil
}
