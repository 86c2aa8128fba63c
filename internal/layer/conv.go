package layer

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/volnet/internal/optim"
	"github.com/born-ml/volnet/internal/volume"
	"gonum.org/v1/gonum/floats"
)

// ConvConfig configures a Convolution layer.
type ConvConfig struct {
	Planes     int     // Output planes (number of kernels per input plane)
	Size       int     // Kernel size (square)
	Stride     int     // Window step (default: 1)
	Padding    int     // Zero border added on every side
	FirstLayer bool    // Skip downstream gradient computation
	LR         float64 // Learning rate (default: optim.DefaultLR)
}

// Convolution is a multi-channel 2D convolution.
//
// Kernels are laid out [out][in][size][size]; every output plane sums the
// convolution of each input plane with its own kernel. Input is padded
// symmetrically with zeros before the valid convolution. Updates use plain SGD.
type Convolution struct {
	params
	cfg ConvConfig
	in  volume.Shape
	pad volume.Shape // Input shape after padding
	out volume.Shape
}

// NewConvolution creates a convolution over inputs of the given shape.
//
// Weights are drawn from N(0, 1/size²). A nil rng is replaced by a
// time-seeded generator.
func NewConvolution(in volume.Shape, cfg ConvConfig, rng *rand.Rand) (*Convolution, error) {
	if cfg.Stride == 0 {
		cfg.Stride = 1
	}
	pad, out, err := convGeometry(in, cfg)
	if err != nil {
		return nil, err
	}

	c := &Convolution{
		params: newParams(cfg.Planes*in.Planes*cfg.Size*cfg.Size, cfg.Planes, optim.NewSGD(optim.Config{LR: cfg.LR})),
		cfg:    cfg,
		in:     in,
		pad:    pad,
		out:    out,
	}
	gaussian(randOrDefault(rng), c.weights, 1/float64(cfg.Size))
	return c, nil
}

func convGeometry(in volume.Shape, cfg ConvConfig) (pad, out volume.Shape, err error) {
	if err := in.Validate(); err != nil {
		return pad, out, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	if cfg.Planes <= 0 || cfg.Size <= 0 || cfg.Stride <= 0 || cfg.Padding < 0 {
		return pad, out, fmt.Errorf("%w: convolution planes=%d size=%d stride=%d padding=%d",
			ErrInvalidGeometry, cfg.Planes, cfg.Size, cfg.Stride, cfg.Padding)
	}
	pad = volume.Shape{
		Planes: in.Planes,
		Height: in.Height + 2*cfg.Padding,
		Width:  in.Width + 2*cfg.Padding,
	}
	out = volume.Shape{
		Planes: cfg.Planes,
		Height: volume.ConvOutputSize(pad.Height, cfg.Size, cfg.Stride),
		Width:  volume.ConvOutputSize(pad.Width, cfg.Size, cfg.Stride),
	}
	if out.Height <= 0 || out.Width <= 0 {
		return pad, out, fmt.Errorf("%w: kernel %d does not fit padded input %v",
			ErrInvalidGeometry, cfg.Size, pad)
	}
	return pad, out, nil
}

// InShape returns the declared input shape.
func (c *Convolution) InShape() volume.Shape { return c.in }

// OutShape returns the output shape.
func (c *Convolution) OutShape() volume.Shape { return c.out }

// Config returns the layer configuration.
func (c *Convolution) Config() ConvConfig { return c.cfg }

// Bank returns the kernels as a filter bank over the live weights.
func (c *Convolution) Bank() volume.FilterBank {
	return volume.FilterBank{Out: c.cfg.Planes, In: c.in.Planes, Size: c.cfg.Size, Weights: c.weights}
}

func (c *Convolution) gradBank() volume.FilterBank {
	return volume.FilterBank{Out: c.cfg.Planes, In: c.in.Planes, Size: c.cfg.Size, Weights: c.grads}
}

// Forward pads the input and convolves it with every kernel.
func (c *Convolution) Forward(in *volume.Volume) (*volume.Volume, Trace, error) {
	if err := volume.CheckShape("conv.Forward", in, c.in); err != nil {
		return nil, Trace{}, err
	}
	padded := in
	if c.cfg.Padding > 0 {
		padded = in.Pad(c.cfg.Padding)
	}
	out, err := padded.ApplyFilters(c.Bank(), c.cfg.Stride)
	if err != nil {
		return nil, Trace{}, fmt.Errorf("conv.Forward: %w", err)
	}
	return out, Trace{Input: padded, Output: out}, nil
}

// Backward accumulates kernel gradients and, unless the layer is the first
// one, returns the gradient with respect to the unpadded input.
func (c *Convolution) Backward(tr Trace, grad *volume.Volume) (*volume.Volume, error) {
	if err := checkBackward("conv.Backward", tr, grad, c.pad, c.out); err != nil {
		return nil, err
	}
	size, stride := c.cfg.Size, c.cfg.Stride
	outW := c.out.Width
	gBank := c.gradBank()

	for o := 0; o < c.out.Planes; o++ {
		gPlane := grad.Plane(o)
		for i := 0; i < c.in.Planes; i++ {
			inPlane := tr.Input.Plane(i)
			gk := gBank.Kernel(o, i)
			for oy := 0; oy < c.out.Height; oy++ {
				for ox := 0; ox < outW; ox++ {
					alpha := gPlane[oy*outW+ox]
					if alpha == 0 {
						continue
					}
					for s := 0; s < size; s++ {
						row := (stride*oy+s)*c.pad.Width + stride*ox
						floats.AddScaled(gk[s*size:(s+1)*size], alpha, inPlane[row:row+size])
					}
				}
			}
		}
	}

	if c.cfg.FirstLayer {
		return nil, nil
	}
	return c.downstream(grad), nil
}

// downstream routes the upstream gradient back through the connection maps,
// dropping the padding border.
func (c *Convolution) downstream(grad *volume.Volume) *volume.Volume {
	size, padding := c.cfg.Size, c.cfg.Padding
	mapY := volume.ConnectionMapFor(c.pad.Height, size, c.cfg.Stride)
	mapX := volume.ConnectionMapFor(c.pad.Width, size, c.cfg.Stride)
	bank := c.Bank()
	outW := c.out.Width

	down := volume.Zeros(c.in)
	for i := 0; i < c.in.Planes; i++ {
		dPlane := down.Plane(i)
		for o := 0; o < c.out.Planes; o++ {
			gPlane := grad.Plane(o)
			k := bank.Kernel(o, i)
			for y := padding; y < c.pad.Height-padding; y++ {
				for x := padding; x < c.pad.Width-padding; x++ {
					sum := 0.0
					for _, a := range mapY.At(y) {
						gRow := gPlane[a.Dst*outW:]
						kRow := k[a.Tap*size:]
						for _, b := range mapX.At(x) {
							sum += gRow[b.Dst] * kRow[b.Tap]
						}
					}
					dPlane[(y-padding)*c.in.Width+(x-padding)] += sum
				}
			}
		}
	}
	return down
}

// MergeGradients adds the replicas' kernel gradients.
func (c *Convolution) MergeGradients(replicas []Layer) error {
	return mergeGradients[*Convolution](c.grads, replicas)
}

// Clone returns a copy with the same kernels and a zeroed gradient.
func (c *Convolution) Clone() Layer {
	clone := *c
	clone.params = c.params.clone()
	return &clone
}

func (c *Convolution) String() string {
	return fmt.Sprintf("Convolution(%v -> %v, size=%d stride=%d padding=%d)",
		c.in, c.out, c.cfg.Size, c.cfg.Stride, c.cfg.Padding)
}
