// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand/v2"

	"github.com/born-ml/volnet/internal/dataset"
	"github.com/born-ml/volnet/internal/network"
	"github.com/born-ml/volnet/internal/topology"
)

// Network is an ordered stack of layers.
type Network = network.Network

// New chains layers into a network, checking neighbour shapes.
func New(layers ...Layer) (*Network, error) {
	return network.New(layers...)
}

// Config holds training hyperparameters.
type Config = network.Config

// DefaultConfig returns the default training configuration.
func DefaultConfig() Config {
	return network.DefaultConfig()
}

// Report is one MSE evaluation during training.
type Report = network.Report

// Result summarizes a training run.
type Result = network.Result

// Network errors.
var (
	ErrEmptyNetwork  = network.ErrEmptyNetwork
	ErrNoSamples     = network.ErrNoSamples
	ErrInvalidConfig = network.ErrInvalidConfig
)

// Data

// Sample is an (input, target) pair.
type Sample = dataset.Sample

// OneHot returns a 1×1×classes target with a 1 at label.
var OneHot = dataset.OneHot

// LoadIDX reads MNIST IDX image and label files (plain or gzip).
func LoadIDX(imagesPath, labelsPath string, limit int) ([]Sample, error) {
	return dataset.LoadIDX(imagesPath, labelsPath, limit)
}

// Topologies

// Description is a declarative network topology.
type Description = topology.Description

// LayerSpec describes one layer of a Description.
type LayerSpec = topology.LayerSpec

// ParseTopology decodes a YAML topology.
func ParseTopology(data []byte) (*Description, error) {
	return topology.Parse(data)
}

// BuildNetwork instantiates a topology.
func BuildNetwork(d *Description, rng *rand.Rand) (*Network, error) {
	return topology.BuildNetwork(d, rng)
}

// LeNet returns the LeNet-style MNIST topology.
func LeNet() *Description { return topology.LeNet() }

// VGG returns the VGG-style MNIST topology.
func VGG() *Description { return topology.VGG() }
