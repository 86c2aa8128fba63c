package topology

import (
	"fmt"
	"strings"

	"github.com/born-ml/volnet/internal/volume"
)

// MNISTInput is the 28×28 grayscale input shape shared by the presets.
var MNISTInput = volume.Shape{Planes: 1, Height: 28, Width: 28}

// PresetLR is the learning rate used by the presets.
const PresetLR = 0.01

// LeNet returns a LeNet-style network: two 3×3 convolution and overlapping
// pooling stages followed by three sigmoid fully-connected layers.
func LeNet() *Description {
	return &Description{
		Input: MNISTInput,
		LR:    PresetLR,
		Layers: []LayerSpec{
			{Type: TypeConv3x3, Planes: 5, FirstLayer: true},
			{Type: TypeMaxPool, Size: 3, Stride: 2},
			{Type: TypeConv3x3, Planes: 10},
			{Type: TypeMaxPool, Size: 3, Stride: 2},
			{Type: TypeDense, Neurons: 120, Activation: "sigmoid"},
			{Type: TypeDense, Neurons: 84, Activation: "sigmoid"},
			{Type: TypeDense, Neurons: 10, Activation: "sigmoid"},
		},
	}
}

// VGG returns a VGG-style network: three 3×3 convolution, ReLU and pooling
// stages, two leaky-ReLU fully-connected layers and a softmax output.
func VGG() *Description {
	stage := func(first bool) []LayerSpec {
		return []LayerSpec{
			{Type: TypeConv3x3, Planes: 30, FirstLayer: first},
			{Type: TypeActivation, Activation: "relu"},
			{Type: TypeMaxPool, Size: 3, Stride: 2},
		}
	}
	var layers []LayerSpec
	layers = append(layers, stage(true)...)
	layers = append(layers, stage(false)...)
	layers = append(layers, stage(false)...)
	layers = append(layers,
		LayerSpec{Type: TypeDense, Neurons: 120, Activation: "leaky_relu"},
		LayerSpec{Type: TypeDense, Neurons: 84, Activation: "leaky_relu"},
		LayerSpec{Type: TypeSoftmax, Classes: 10},
	)
	return &Description{Input: MNISTInput, LR: PresetLR, Layers: layers}
}

// Preset returns the description registered under name ("lenet" or "vgg").
func Preset(name string) (*Description, error) {
	switch strings.ToLower(name) {
	case "lenet":
		return LeNet(), nil
	case "vgg":
		return VGG(), nil
	default:
		return nil, fmt.Errorf("topology: unknown preset %q", name)
	}
}
