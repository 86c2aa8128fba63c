// Package topology builds layer stacks from declarative descriptions.
//
// A Description names the input shape and lists layers in order; each
// layer's input shape is inferred from the previous layer's output, so only
// the layer's own parameters are written down:
//
//	input: {planes: 1, height: 28, width: 28}
//	lr: 0.01
//	layers:
//	  - {type: conv3x3, planes: 5, first_layer: true}
//	  - {type: maxpool, size: 3, stride: 2}
//	  - {type: dense, neurons: 84, activation: sigmoid}
//	  - {type: softmax, classes: 10}
package topology

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"github.com/born-ml/volnet/internal/activation"
	"github.com/born-ml/volnet/internal/layer"
	"github.com/born-ml/volnet/internal/network"
	"github.com/born-ml/volnet/internal/volume"
	"gopkg.in/yaml.v3"
)

// ErrUnknownLayer is returned for a layer type the builder does not know.
var ErrUnknownLayer = errors.New("unknown layer type")

// Layer type names.
const (
	TypeConv       = "conv"
	TypeConv3x3    = "conv3x3"
	TypeMaxPool    = "maxpool"
	TypeDense      = "dense"
	TypeSoftmax    = "softmax"
	TypeActivation = "activation"
)

// LayerSpec describes one layer. Fields unused by the type are ignored.
type LayerSpec struct {
	Type string `yaml:"type"`

	// Convolution
	Planes     int  `yaml:"planes,omitempty"`
	Size       int  `yaml:"size,omitempty"` // Also the pooling window
	Stride     int  `yaml:"stride,omitempty"`
	Padding    int  `yaml:"padding,omitempty"`
	FirstLayer bool `yaml:"first_layer,omitempty"`

	// Dense and softmax
	Neurons int `yaml:"neurons,omitempty"`
	Classes int `yaml:"classes,omitempty"`

	// Dense and activation
	Activation string  `yaml:"activation,omitempty"`
	Param      float64 `yaml:"param,omitempty"` // Sigmoid steepness or leaky slope

	LR float64 `yaml:"lr,omitempty"` // Overrides Description.LR
}

// Description is a full network topology.
type Description struct {
	Input  volume.Shape `yaml:"input"`
	LR     float64      `yaml:"lr,omitempty"` // Default learning rate
	Layers []LayerSpec  `yaml:"layers"`
}

// Parse decodes a YAML description. Unknown keys are rejected.
func Parse(data []byte) (*Description, error) {
	var desc Description
	if err := decodeStrict(bytes.NewReader(data), &desc); err != nil {
		return nil, fmt.Errorf("topology: %w", err)
	}
	return &desc, nil
}

func decodeStrict(r io.Reader, v any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Marshal encodes a description as YAML.
func (d *Description) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

func (s LayerSpec) activation() (activation.Func, error) {
	if s.Activation == "" {
		return activation.Func{Kind: activation.KindSigmoid, Param: s.Param}, nil
	}
	kind, err := activation.ParseKind(s.Activation)
	if err != nil {
		return activation.Func{}, err
	}
	return activation.Func{Kind: kind, Param: s.Param}, nil
}

// Build instantiates the layers of d, drawing initial weights from rng.
func Build(d *Description, rng *rand.Rand) ([]layer.Layer, error) {
	if len(d.Layers) == 0 {
		return nil, network.ErrEmptyNetwork
	}
	layers := make([]layer.Layer, 0, len(d.Layers))
	in := d.Input
	for i, spec := range d.Layers {
		lr := spec.LR
		if lr == 0 {
			lr = d.LR
		}
		l, err := buildLayer(spec, in, lr, rng)
		if err != nil {
			return nil, fmt.Errorf("topology: layer %d (%s): %w", i, spec.Type, err)
		}
		layers = append(layers, l)
		in = l.OutShape()
	}
	return layers, nil
}

func buildLayer(spec LayerSpec, in volume.Shape, lr float64, rng *rand.Rand) (layer.Layer, error) {
	switch strings.ToLower(spec.Type) {
	case TypeConv:
		return layer.NewConvolution(in, layer.ConvConfig{
			Planes:     spec.Planes,
			Size:       spec.Size,
			Stride:     spec.Stride,
			Padding:    spec.Padding,
			FirstLayer: spec.FirstLayer,
			LR:         lr,
		}, rng)
	case TypeConv3x3:
		return layer.NewConvolution3x3(in, layer.Conv3x3Config{
			Planes:     spec.Planes,
			FirstLayer: spec.FirstLayer,
			LR:         lr,
		}, rng)
	case TypeMaxPool:
		return layer.NewMaxPooling(in, spec.Size, spec.Stride)
	case TypeDense:
		fn, err := spec.activation()
		if err != nil {
			return nil, err
		}
		return layer.NewFullyConnected(in, layer.DenseConfig{Neurons: spec.Neurons, Activation: fn, LR: lr}, rng)
	case TypeSoftmax:
		classes := spec.Classes
		if classes == 0 {
			classes = spec.Neurons
		}
		return layer.NewSoftmax(in, layer.SoftmaxConfig{Classes: classes, LR: lr}, rng)
	case TypeActivation:
		fn, err := spec.activation()
		if err != nil {
			return nil, err
		}
		return layer.NewActivation(in, fn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayer, spec.Type)
	}
}

// BuildNetwork builds the layers of d and chains them into a network.
func BuildNetwork(d *Description, rng *rand.Rand) (*network.Network, error) {
	layers, err := Build(d, rng)
	if err != nil {
		return nil, err
	}
	return network.New(layers...)
}
