package optim

import "gonum.org/v1/gonum/floats"

// SGD implements plain stochastic gradient descent.
//
// Update rule:
//
//	weights = weights - lr * grads
//
// The convolution layers use this rule.
type SGD struct {
	lr float64
}

// NewSGD creates a plain SGD rule. A zero LR defaults to DefaultLR.
func NewSGD(config Config) *SGD {
	return &SGD{lr: config.lr()}
}

// Step applies weights -= lr * grads and zeroes grads.
func (s *SGD) Step(weights, grads []float64, _ int) float64 {
	floats.AddScaled(weights, -s.lr, grads)
	zero(grads)
	return s.lr
}

// LR returns the learning rate.
func (s *SGD) LR() float64 {
	return s.lr
}
