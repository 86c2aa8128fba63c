// Package optim implements the weight update rules applied by trainable
// layers at the end of every batch.
//
// This package provides:
//   - Rule interface: flushes an accumulated gradient into a weight buffer
//   - SGD: plain gradient descent, w -= lr * g
//   - Stabilized: gradient descent whose step is clamped by the largest
//     gradient entry, bounding divergence under unbounded activations
//
// Rules operate on flat []float64 buffers owned by the layer and always
// leave the gradient buffer zeroed.
//
// Example usage:
//
//	rule := optim.NewStabilized(optim.Config{LR: 0.01})
//	coef := rule.Step(weights, grads, neurons)
package optim

// Rule applies one update step.
//
// Step subtracts coefficient * grads from weights, zeroes grads and returns the
// coefficient it used. fanOut is the number of output units of the layer
// (neurons or output planes) and scales the stabilized clamp.
type Rule interface {
	Step(weights, grads []float64, fanOut int) float64

	// LR returns the configured learning rate.
	LR() float64
}

// Config holds the configuration shared by all rules.
type Config struct {
	LR float64 // Learning rate (default: 0.001)
}

// DefaultLR is used when Config.LR is zero.
const DefaultLR = 0.001

func (c Config) lr() float64 {
	if c.LR == 0 {
		return DefaultLR
	}
	return c.LR
}

// zero clears a gradient buffer.
func zero(grads []float64) {
	for i := range grads {
		grads[i] = 0
	}
}
