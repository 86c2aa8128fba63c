// Package network chains layers into a trainable network and provides the
// sequential and data-parallel trainers.
//
// A Network's topology is fixed at construction. Forward is free of side
// effects, so one network can evaluate many samples concurrently; Backward
// only adds to the layers' gradient accumulators, and Update flushes them.
//
// Example:
//
//	rng := layer.NewRand(1)
//	in := volume.Shape{Planes: 1, Height: 28, Width: 28}
//	conv, _ := layer.NewConvolution3x3(in, layer.Conv3x3Config{Planes: 8, FirstLayer: true}, rng)
//	pool, _ := layer.NewMaxPooling(conv.OutShape(), 2, 2)
//	out, _ := layer.NewSoftmax(pool.OutShape(), layer.SoftmaxConfig{Classes: 10}, rng)
//
//	net, err := network.New(conv, pool, out)
//	if err != nil {
//	    return err
//	}
//	result, err := net.TrainParallel(samples, network.DefaultConfig())
package network

import (
	"fmt"
	"io"
	"strings"

	"github.com/born-ml/volnet/internal/dataset"
	"github.com/born-ml/volnet/internal/layer"
	"github.com/born-ml/volnet/internal/parallel"
	"github.com/born-ml/volnet/internal/volume"
)

// Network is an ordered stack of layers with matching neighbour shapes.
type Network struct {
	layers []layer.Layer
	eval   parallel.Config
}

// New validates that every layer's output shape equals the next layer's
// input shape and returns the network.
func New(layers ...layer.Layer) (*Network, error) {
	if len(layers) == 0 {
		return nil, ErrEmptyNetwork
	}
	for i := 0; i+1 < len(layers); i++ {
		out, in := layers[i].OutShape(), layers[i+1].InShape()
		if out != in {
			return nil, &volume.ShapeError{
				Op:   fmt.Sprintf("network.New: layer %d (%v) -> layer %d (%v)", i, layers[i], i+1, layers[i+1]),
				Want: in,
				Got:  out,
			}
		}
	}
	return &Network{
		layers: append([]layer.Layer(nil), layers...),
		eval:   parallel.DefaultConfig(),
	}, nil
}

// Layers returns the layer stack. The slice must not be modified.
func (n *Network) Layers() []layer.Layer { return n.layers }

// InShape returns the input shape of the first layer.
func (n *Network) InShape() volume.Shape { return n.layers[0].InShape() }

// OutShape returns the output shape of the last layer.
func (n *Network) OutShape() volume.Shape { return n.layers[len(n.layers)-1].OutShape() }

// Forward runs the input through every layer and returns the prediction with
// one trace per layer.
func (n *Network) Forward(in *volume.Volume) (*volume.Volume, []layer.Trace, error) {
	traces := make([]layer.Trace, len(n.layers))
	v := in
	for i, l := range n.layers {
		out, tr, err := l.Forward(v)
		if err != nil {
			return nil, nil, fmt.Errorf("layer %d: %w", i, err)
		}
		traces[i] = tr
		v = out
	}
	return v, traces, nil
}

// Predict runs Forward and drops the traces.
func (n *Network) Predict(in *volume.Volume) (*volume.Volume, error) {
	out, _, err := n.Forward(in)
	return out, err
}

// Backward propagates the output gradient through the layers in reverse,
// accumulating every layer's weight gradient. It stops early at a layer that
// returns no downstream gradient (a first-layer convolution).
func (n *Network) Backward(traces []layer.Trace, grad *volume.Volume) error {
	if len(traces) != len(n.layers) {
		return fmt.Errorf("%w: %d traces for %d layers", layer.ErrInvalidTrace, len(traces), len(n.layers))
	}
	g := grad
	for i := len(n.layers) - 1; i >= 0; i-- {
		down, err := n.layers[i].Backward(traces[i], g)
		if err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		if down == nil {
			return nil
		}
		g = down
	}
	return nil
}

// accumulate runs one sample forward and backward with the output gradient
// prediction − target.
func (n *Network) accumulate(s dataset.Sample) error {
	out, traces, err := n.Forward(s.Input)
	if err != nil {
		return err
	}
	grad, err := out.Sub(s.Target)
	if err != nil {
		return err
	}
	return n.Backward(traces, grad)
}

// Update flushes every layer's accumulated gradient into its weights.
func (n *Network) Update() {
	for _, l := range n.layers {
		l.Update()
	}
}

// Clone returns an independent copy: same weights, zeroed gradients.
func (n *Network) Clone() *Network {
	layers := make([]layer.Layer, len(n.layers))
	for i, l := range n.layers {
		layers[i] = l.Clone()
	}
	return &Network{layers: layers, eval: n.eval}
}

// MergeGradients adds the gradient accumulators of the replicas into this
// network, layer by layer.
func (n *Network) MergeGradients(replicas []*Network) error {
	for _, r := range replicas {
		if len(r.layers) != len(n.layers) {
			return fmt.Errorf("%w: replica has %d layers, want %d",
				layer.ErrIncompatibleLayer, len(r.layers), len(n.layers))
		}
	}
	peers := make([]layer.Layer, len(replicas))
	for i, l := range n.layers {
		for j, r := range replicas {
			peers[j] = r.layers[i]
		}
		if err := l.MergeGradients(peers); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return nil
}

// MeanSquaredError returns Σ‖prediction − target‖² / len(samples).
// Forward passes run concurrently.
func (n *Network) MeanSquaredError(samples []dataset.Sample) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}
	sq := make([]float64, len(samples))
	err := parallel.For(len(samples), n.eval, func(i int) error {
		out, err := n.Predict(samples[i].Input)
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		diff, err := out.Sub(samples[i].Target)
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		sq[i] = diff.SumSquares()
		return nil
	})
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, v := range sq {
		total += v
	}
	return total / float64(len(samples)), nil
}

// Accuracy returns the fraction of samples whose largest output matches the
// largest target value.
func (n *Network) Accuracy(samples []dataset.Sample) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}
	hits := make([]bool, len(samples))
	err := parallel.For(len(samples), n.eval, func(i int) error {
		out, err := n.Predict(samples[i].Input)
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		hits[i] = out.ArgMax() == samples[i].Label()
		return nil
	})
	if err != nil {
		return 0, err
	}
	correct := 0
	for _, h := range hits {
		if h {
			correct++
		}
	}
	return float64(correct) / float64(len(samples)), nil
}

// Dump writes every layer and its weights to w.
func (n *Network) Dump(w io.Writer) error {
	for i, l := range n.layers {
		if _, err := fmt.Fprintf(w, "layer %d: %v\n", i, l); err != nil {
			return err
		}
		weights := l.Weights()
		if len(weights) == 0 {
			continue
		}
		var sb strings.Builder
		for j, v := range weights {
			if j > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%.6g", v)
		}
		if _, err := fmt.Fprintf(w, "  weights[%d]: %s\n", len(weights), sb.String()); err != nil {
			return err
		}
	}
	return nil
}

func (n *Network) String() string {
	parts := make([]string, len(n.layers))
	for i, l := range n.layers {
		parts[i] = l.String()
	}
	return "Network[" + strings.Join(parts, " -> ") + "]"
}
