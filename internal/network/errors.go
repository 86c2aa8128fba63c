package network

import "errors"

// Sentinel errors returned by the network and its trainers.
var (
	// ErrEmptyNetwork is returned when a network is built without layers.
	ErrEmptyNetwork = errors.New("network has no layers")

	// ErrNoSamples is returned when training or evaluation gets no samples.
	ErrNoSamples = errors.New("no samples")

	// ErrInvalidConfig is returned for negative training parameters.
	ErrInvalidConfig = errors.New("invalid training config")
)
