package optim

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// StabilizedThreshold is the largest ratio between the biggest gradient entry
// and sqrt(2/fanOut) that is applied without scaling.
const StabilizedThreshold = 0.05

// Stabilized implements gradient descent with a magnitude clamp.
//
// Update rule:
//
//	ratio = max|g| / sqrt(2 / fanOut)
//	coef  = 0.05 / ratio   if ratio > 0.05
//	        1              otherwise
//	coef  = min(lr, coef)
//	weights = weights - coef * grads
//
// Large gradients therefore move the weights by a bounded amount whatever the
// learning rate. The fully-connected and softmax layers use this rule.
type Stabilized struct {
	lr float64
}

// NewStabilized creates a stabilized rule. A zero LR defaults to DefaultLR.
func NewStabilized(config Config) *Stabilized {
	return &Stabilized{lr: config.lr()}
}

// Coefficient returns the step size Step would use for grads.
func (s *Stabilized) Coefficient(grads []float64, fanOut int) float64 {
	if len(grads) == 0 || fanOut <= 0 {
		return s.lr
	}
	maxAbs := floats.Norm(grads, math.Inf(1))
	ratio := maxAbs / math.Sqrt(2/float64(fanOut))

	coef := 1.0
	if ratio > StabilizedThreshold {
		coef = StabilizedThreshold / ratio
	}
	return math.Min(s.lr, coef)
}

// Step applies the clamped update and zeroes grads.
func (s *Stabilized) Step(weights, grads []float64, fanOut int) float64 {
	coef := s.Coefficient(grads, fanOut)
	floats.AddScaled(weights, -coef, grads)
	zero(grads)
	return coef
}

// LR returns the configured learning rate.
func (s *Stabilized) LR() float64 {
	return s.lr
}
