// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides network layers, the network container and its
// sequential and data-parallel trainers.
//
// # Overview
//
// This package contains:
//   - Layers: Convolution, Convolution3x3, MaxPooling, FullyConnected,
//     Softmax, Activation
//   - Activations: Sigmoid (steepness T), ReLU, LeakyReLU
//   - Network: forward/backward chain, MSE and accuracy evaluation
//   - Training: TrainSequential, TrainParallel, Config
//   - Data: Sample, OneHot, LoadIDX (MNIST)
//   - Topologies: YAML descriptions, LeNet and VGG presets
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/volnet/nn"
//	    "github.com/born-ml/volnet/volume"
//	)
//
//	func main() {
//	    samples, err := nn.LoadIDX("train-images-idx3-ubyte.gz", "train-labels-idx1-ubyte.gz", 5000)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    net, err := nn.BuildNetwork(nn.VGG(), nn.NewRand(1))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    cfg := nn.DefaultConfig()
//	    cfg.Epochs = 20
//	    cfg.BatchSize = 200
//	    result, err := net.TrainParallel(samples, cfg)
//	}
//
// # Layers
//
// Every layer declares its input and output shapes at construction. Forward
// returns the output and a Trace; Backward takes the Trace back together
// with the upstream gradient, adds to the layer's gradient accumulator and
// returns the downstream gradient. Update applies the accumulated gradient.
//
// Convolution: k×k kernels with stride and zero padding, plain SGD updates
//
// Convolution3x3: 3×3, stride 1, padding 1 fast path
//
// MaxPooling: overlapping or disjoint windows, ceiling output size
//
// FullyConnected: bias-free dense layer with an activation
//
// Softmax: bias-free dense layer with softmax output
//
// # Training
//
// TrainParallel clones the network once per replica for every batch. The
// replica count is the largest divisor of the batch length not above
// Config.Replicas; the replicas' gradients are summed and applied once.
package nn
