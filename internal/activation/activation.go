// Package activation provides the scalar activation functions used by the
// fully-connected and elementwise activation layers, together with their
// derivatives.
//
// Each Func carries its own parameter: the steepness T of the sigmoid
// 1/(1+exp(-T·x)) and the negative slope of leaky ReLU. ReLU ignores it.
package activation

import (
	"fmt"
	"math"
	"strings"
)

// Kind identifies an activation function.
type Kind int

// Supported activation kinds.
const (
	KindSigmoid Kind = iota
	KindReLU
	KindLeakyReLU
)

// Default parameters.
const (
	DefaultSteepness  = 2.0  // Sigmoid steepness T
	DefaultLeakySlope = 0.01 // Leaky ReLU negative slope
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindSigmoid:
		return "sigmoid"
	case KindReLU:
		return "relu"
	case KindLeakyReLU:
		return "leaky_relu"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a name ("sigmoid", "relu", "leaky_relu") to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "_")) {
	case "sigmoid":
		return KindSigmoid, nil
	case "relu":
		return KindReLU, nil
	case "leaky_relu", "leakyrelu":
		return KindLeakyReLU, nil
	default:
		return 0, fmt.Errorf("unknown activation %q", name)
	}
}

// Func is an activation function with its parameter.
type Func struct {
	Kind  Kind
	Param float64
}

// Sigmoid returns 1/(1+exp(-steepness·x)).
func Sigmoid(steepness float64) Func {
	return Func{Kind: KindSigmoid, Param: steepness}
}

// ReLU returns max(0, x).
func ReLU() Func {
	return Func{Kind: KindReLU}
}

// LeakyReLU returns x for x > 0 and slope·x otherwise.
func LeakyReLU(slope float64) Func {
	return Func{Kind: KindLeakyReLU, Param: slope}
}

// Default returns the function of the given kind with its default parameter.
func Default(k Kind) Func {
	switch k {
	case KindSigmoid:
		return Sigmoid(DefaultSteepness)
	case KindLeakyReLU:
		return LeakyReLU(DefaultLeakySlope)
	default:
		return ReLU()
	}
}

// Apply evaluates the function at x.
func (f Func) Apply(x float64) float64 {
	switch f.Kind {
	case KindSigmoid:
		return 1 / (1 + math.Exp(-f.Param*x))
	case KindLeakyReLU:
		if x > 0 {
			return x
		}
		return f.Param * x
	default:
		if x > 0 {
			return x
		}
		return 0
	}
}

// Derivative evaluates df/dx at x (x is the function's input, not its output).
func (f Func) Derivative(x float64) float64 {
	switch f.Kind {
	case KindSigmoid:
		s := f.Apply(x)
		return f.Param * s * (1 - s)
	case KindLeakyReLU:
		if x > 0 {
			return 1
		}
		return f.Param
	default:
		if x > 0 {
			return 1
		}
		return 0
	}
}

// String returns e.g. "sigmoid(2)" or "relu".
func (f Func) String() string {
	if f.Kind == KindReLU {
		return f.Kind.String()
	}
	return fmt.Sprintf("%s(%g)", f.Kind, f.Param)
}
