package layer

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/born-ml/volnet/internal/volume"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SoftmaxConfig configures a Softmax output layer.
type SoftmaxConfig struct {
	Classes int
	LR      float64 // Learning rate (default: optim.DefaultLR)
}

// Softmax is a bias-free projection followed by softmax normalization.
// Outputs are positive and sum to one.
type Softmax struct {
	projection
}

// NewSoftmax creates a softmax layer. Weights are drawn from
// N(0, sqrt(2/fanIn))/100.
func NewSoftmax(in volume.Shape, cfg SoftmaxConfig, rng *rand.Rand) (*Softmax, error) {
	p, err := newProjection(in, cfg.Classes, cfg.LR)
	if err != nil {
		return nil, err
	}
	gaussian(randOrDefault(rng), p.weights, math.Sqrt(2/float64(in.Len()))/100)
	return &Softmax{projection: p}, nil
}

// softmax normalizes z in place, shifting by the maximum for stability.
func softmax(z []float64) {
	shift := floats.Max(z)
	for i, v := range z {
		z[i] = math.Exp(v - shift)
	}
	floats.Scale(1/floats.Sum(z), z)
}

// Forward computes softmax(W·x).
func (s *Softmax) Forward(in *volume.Volume) (*volume.Volume, Trace, error) {
	if err := volume.CheckShape("softmax.Forward", in, s.in); err != nil {
		return nil, Trace{}, err
	}
	y := s.project(in.Data())
	softmax(y)
	out, err := volume.FromSlice(s.OutShape(), y)
	if err != nil {
		return nil, Trace{}, err
	}
	return out, Trace{Input: in, Output: out}, nil
}

// jacobian returns the symmetric softmax Jacobian diag(y) - y·yᵀ.
func jacobian(y []float64) *mat.SymDense {
	n := len(y)
	j := mat.NewSymDense(n, nil)
	for r := 0; r < n; r++ {
		j.SetSym(r, r, y[r]*(1-y[r]))
		for c := r + 1; c < n; c++ {
			j.SetSym(r, c, -y[r]*y[c])
		}
	}
	return j
}

// Backward multiplies the upstream gradient by the softmax Jacobian, then
// accumulates the weight gradient and returns the downstream gradient.
func (s *Softmax) Backward(tr Trace, grad *volume.Volume) (*volume.Volume, error) {
	if err := checkBackward("softmax.Backward", tr, grad, s.in, s.OutShape()); err != nil {
		return nil, err
	}
	if tr.Output == nil || tr.Output.Len() != s.neurons {
		return nil, fmt.Errorf("softmax.Backward: %w: missing output", ErrInvalidTrace)
	}
	delta := make([]float64, s.neurons)
	mat.NewVecDense(s.neurons, delta).MulVec(
		jacobian(tr.Output.Data()),
		mat.NewVecDense(s.neurons, grad.Data()),
	)
	return s.backprop(delta, tr.Input.Data()), nil
}

// MergeGradients adds the replicas' weight gradients.
func (s *Softmax) MergeGradients(replicas []Layer) error {
	return mergeGradients[*Softmax](s.grads, replicas)
}

// Clone returns a copy with the same weights and a zeroed gradient.
func (s *Softmax) Clone() Layer {
	clone := *s
	clone.params = s.params.clone()
	return &clone
}

func (s *Softmax) String() string {
	return fmt.Sprintf("Softmax(%v -> %d)", s.in, s.neurons)
}
