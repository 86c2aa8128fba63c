package layer

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/born-ml/volnet/internal/activation"
	"github.com/born-ml/volnet/internal/optim"
	"github.com/born-ml/volnet/internal/volume"
	"gonum.org/v1/gonum/mat"
)

// projection is the bias-free linear map shared by FullyConnected and
// Softmax. Weights form a row-major neurons × inputs matrix over the flattened
// input volume.
type projection struct {
	params
	in      volume.Shape
	neurons int
}

func newProjection(in volume.Shape, neurons int, lr float64) (projection, error) {
	if err := in.Validate(); err != nil {
		return projection{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	if neurons <= 0 {
		return projection{}, fmt.Errorf("%w: %d neurons", ErrInvalidGeometry, neurons)
	}
	return projection{
		params:  newParams(neurons*in.Len(), neurons, optim.NewStabilized(optim.Config{LR: lr})),
		in:      in,
		neurons: neurons,
	}, nil
}

func (p *projection) matrix() *mat.Dense {
	return mat.NewDense(p.neurons, p.in.Len(), p.weights)
}

// InShape returns the declared input shape.
func (p *projection) InShape() volume.Shape { return p.in }

// OutShape returns 1×1×neurons.
func (p *projection) OutShape() volume.Shape {
	return volume.Shape{Planes: 1, Height: 1, Width: p.neurons}
}

// Neurons returns the number of output neurons.
func (p *projection) Neurons() int { return p.neurons }

// project computes W·x.
func (p *projection) project(x []float64) []float64 {
	pre := make([]float64, p.neurons)
	mat.NewVecDense(p.neurons, pre).MulVec(p.matrix(), mat.NewVecDense(len(x), x))
	return pre
}

// backprop accumulates outer(delta, x) into the gradient and returns Wᵀ·delta
// shaped like the input.
func (p *projection) backprop(delta, x []float64) *volume.Volume {
	dv := mat.NewVecDense(p.neurons, delta)

	g := mat.NewDense(p.neurons, len(x), p.grads)
	g.RankOne(g, 1, dv, mat.NewVecDense(len(x), x))

	down := volume.Zeros(p.in)
	mat.NewVecDense(down.Len(), down.Data()).MulVec(p.matrix().T(), dv)
	return down
}

// DenseConfig configures a FullyConnected layer.
type DenseConfig struct {
	Neurons    int
	Activation activation.Func // Zero parameter selects the kind's default (sigmoid: T=2)
	LR         float64         // Learning rate (default: optim.DefaultLR)
}

// FullyConnected connects every input value to every neuron and applies an
// activation function. There is no bias term. Updates use the stabilized rule.
type FullyConnected struct {
	projection
	act activation.Func
}

// NewFullyConnected creates a fully-connected layer over inputs of the given
// shape.
//
// Sigmoid layers draw weights from N(0, 2/fanIn); other activations from
// N(0, sqrt(2/fanIn)/10).
func NewFullyConnected(in volume.Shape, cfg DenseConfig, rng *rand.Rand) (*FullyConnected, error) {
	p, err := newProjection(in, cfg.Neurons, cfg.LR)
	if err != nil {
		return nil, err
	}
	act := cfg.Activation
	if act.Param == 0 {
		act = activation.Default(act.Kind)
	}

	fanIn := float64(in.Len())
	std := math.Sqrt(2/fanIn) / 10
	if act.Kind == activation.KindSigmoid {
		std = 2 / fanIn
	}
	gaussian(randOrDefault(rng), p.weights, std)

	return &FullyConnected{projection: p, act: act}, nil
}

// Activation returns the layer's activation function.
func (f *FullyConnected) Activation() activation.Func { return f.act }

// Forward computes activation(W·x).
func (f *FullyConnected) Forward(in *volume.Volume) (*volume.Volume, Trace, error) {
	if err := volume.CheckShape("dense.Forward", in, f.in); err != nil {
		return nil, Trace{}, err
	}
	pre := f.project(in.Data())
	out := volume.Zeros(f.OutShape())
	for i, z := range pre {
		out.Data()[i] = f.act.Apply(z)
	}
	return out, Trace{Input: in, Output: out, pre: pre}, nil
}

// Backward accumulates the weight gradient and returns Wᵀ·(grad ⊙ f'(pre)).
func (f *FullyConnected) Backward(tr Trace, grad *volume.Volume) (*volume.Volume, error) {
	if err := checkBackward("dense.Backward", tr, grad, f.in, f.OutShape()); err != nil {
		return nil, err
	}
	if len(tr.pre) != f.neurons {
		return nil, fmt.Errorf("dense.Backward: %w: missing pre-activation", ErrInvalidTrace)
	}
	delta := make([]float64, f.neurons)
	for i, g := range grad.Data() {
		delta[i] = g * f.act.Derivative(tr.pre[i])
	}
	return f.backprop(delta, tr.Input.Data()), nil
}

// MergeGradients adds the replicas' weight gradients.
func (f *FullyConnected) MergeGradients(replicas []Layer) error {
	return mergeGradients[*FullyConnected](f.grads, replicas)
}

// Clone returns a copy with the same weights and a zeroed gradient.
func (f *FullyConnected) Clone() Layer {
	clone := *f
	clone.params = f.params.clone()
	return &clone
}

func (f *FullyConnected) String() string {
	return fmt.Sprintf("FullyConnected(%v -> %d, %v)", f.in, f.neurons, f.act)
}
