// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand/v2"

	"github.com/born-ml/volnet/internal/activation"
	"github.com/born-ml/volnet/internal/layer"
	"github.com/born-ml/volnet/internal/volume"
)

// Layer is the interface shared by every layer kind.
type Layer = layer.Layer

// Trace carries per-call state from Forward to Backward.
type Trace = layer.Trace

// Layer errors.
var (
	ErrInvalidGeometry   = layer.ErrInvalidGeometry
	ErrIncompatibleLayer = layer.ErrIncompatibleLayer
	ErrInvalidTrace      = layer.ErrInvalidTrace
)

// NewRand returns a seeded generator for weight initialization.
func NewRand(seed uint64) *rand.Rand {
	return layer.NewRand(seed)
}

// Convolution

// Convolution is a multi-channel 2D convolution.
type Convolution = layer.Convolution

// ConvConfig configures a Convolution.
type ConvConfig = layer.ConvConfig

// NewConvolution creates a convolution over inputs of shape in.
//
// Example:
//
//	conv, err := nn.NewConvolution(in, nn.ConvConfig{Planes: 8, Size: 5, Stride: 1, Padding: 2}, rng)
func NewConvolution(in volume.Shape, cfg ConvConfig, rng *rand.Rand) (*Convolution, error) {
	return layer.NewConvolution(in, cfg, rng)
}

// Convolution3x3 is the 3×3, stride 1, padding 1 fast path.
type Convolution3x3 = layer.Convolution3x3

// Conv3x3Config configures a Convolution3x3.
type Conv3x3Config = layer.Conv3x3Config

// NewConvolution3x3 creates a 3×3 convolution over inputs of shape in.
func NewConvolution3x3(in volume.Shape, cfg Conv3x3Config, rng *rand.Rand) (*Convolution3x3, error) {
	return layer.NewConvolution3x3(in, cfg, rng)
}

// Pooling

// MaxPooling is a strided max-pooling layer.
type MaxPooling = layer.MaxPooling

// NewMaxPooling creates a pooling layer. A zero stride defaults to size.
func NewMaxPooling(in volume.Shape, size, stride int) (*MaxPooling, error) {
	return layer.NewMaxPooling(in, size, stride)
}

// Dense

// FullyConnected is a bias-free dense layer with an activation.
type FullyConnected = layer.FullyConnected

// DenseConfig configures a FullyConnected layer.
type DenseConfig = layer.DenseConfig

// NewFullyConnected creates a dense layer over inputs of shape in.
func NewFullyConnected(in volume.Shape, cfg DenseConfig, rng *rand.Rand) (*FullyConnected, error) {
	return layer.NewFullyConnected(in, cfg, rng)
}

// Softmax is a bias-free dense layer with softmax output.
type Softmax = layer.Softmax

// SoftmaxConfig configures a Softmax layer.
type SoftmaxConfig = layer.SoftmaxConfig

// NewSoftmax creates a softmax output layer.
func NewSoftmax(in volume.Shape, cfg SoftmaxConfig, rng *rand.Rand) (*Softmax, error) {
	return layer.NewSoftmax(in, cfg, rng)
}

// Activations

// Activation applies a function elementwise.
type Activation = layer.Activation

// NewActivation creates an elementwise activation layer.
func NewActivation(shape volume.Shape, fn ActivationFunc) (*Activation, error) {
	return layer.NewActivation(shape, fn)
}

// ActivationFunc is an activation function with its parameter.
type ActivationFunc = activation.Func

// Sigmoid returns 1/(1+exp(-steepness·x)).
func Sigmoid(steepness float64) ActivationFunc {
	return activation.Sigmoid(steepness)
}

// ReLU returns max(0, x).
func ReLU() ActivationFunc {
	return activation.ReLU()
}

// LeakyReLU returns x for x > 0 and slope·x otherwise.
func LeakyReLU(slope float64) ActivationFunc {
	return activation.LeakyReLU(slope)
}
