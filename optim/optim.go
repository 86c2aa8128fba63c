// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the weight update rules used by network layers.
//
// # Overview
//
// This package contains:
//   - SGD: w -= lr·g, used by convolution layers
//   - Stabilized: SGD with a coefficient clamped by the gradient's largest
//     entry, used by fully-connected and softmax layers
//   - Rule interface for custom rules
//
// Every rule zeroes the gradient after applying it.
package optim

import "github.com/born-ml/volnet/internal/optim"

// Rule applies an accumulated gradient to a weight buffer.
type Rule = optim.Rule

// Config holds the learning rate shared by all rules.
type Config = optim.Config

// DefaultLR is used when Config.LR is zero.
const DefaultLR = optim.DefaultLR

// StabilizedThreshold bounds the gradient-to-init-scale ratio before the
// stabilized rule shrinks its coefficient.
const StabilizedThreshold = optim.StabilizedThreshold

// SGD is plain stochastic gradient descent.
type SGD = optim.SGD

// NewSGD creates a new SGD rule.
func NewSGD(config Config) *SGD {
	return optim.NewSGD(config)
}

// Stabilized is SGD with a clamped coefficient.
type Stabilized = optim.Stabilized

// NewStabilized creates a new stabilized rule.
//
// Example:
//
//	rule := optim.NewStabilized(optim.Config{LR: 0.01})
//	coef := rule.Step(weights, grads, fanOut)
func NewStabilized(config Config) *Stabilized {
	return optim.NewStabilized(config)
}
