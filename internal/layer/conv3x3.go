package layer

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/volnet/internal/optim"
	"github.com/born-ml/volnet/internal/volume"
)

// Conv3x3Config configures a Convolution3x3 layer.
type Conv3x3Config struct {
	Planes     int     // Output planes
	FirstLayer bool    // Skip downstream gradient computation
	LR         float64 // Learning rate (default: optim.DefaultLR)
}

// Convolution3x3 is the fast path for the common 3×3 kernel with stride 1
// and padding 1, which preserves the spatial size.
//
// Kernel rows are handled as [3]float64 arrays so the inner loops reduce to
// fixed three-term dot products. Results match Convolution with the same
// weights up to floating-point rounding.
type Convolution3x3 struct {
	params
	cfg Conv3x3Config
	in  volume.Shape
	out volume.Shape
}

// NewConvolution3x3 creates a 3×3 convolution over inputs of the given shape.
func NewConvolution3x3(in volume.Shape, cfg Conv3x3Config, rng *rand.Rand) (*Convolution3x3, error) {
	_, out, err := convGeometry(in, ConvConfig{Planes: cfg.Planes, Size: 3, Stride: 1, Padding: 1})
	if err != nil {
		return nil, err
	}
	c := &Convolution3x3{
		params: newParams(cfg.Planes*in.Planes*9, cfg.Planes, optim.NewSGD(optim.Config{LR: cfg.LR})),
		cfg:    cfg,
		in:     in,
		out:    out,
	}
	gaussian(randOrDefault(rng), c.weights, 1.0/3)
	return c, nil
}

// InShape returns the declared input shape.
func (c *Convolution3x3) InShape() volume.Shape { return c.in }

// OutShape returns the output shape (same height and width as the input).
func (c *Convolution3x3) OutShape() volume.Shape { return c.out }

// Bank returns the kernels as a filter bank over the live weights.
func (c *Convolution3x3) Bank() volume.FilterBank {
	return volume.FilterBank{Out: c.cfg.Planes, In: c.in.Planes, Size: 3, Weights: c.weights}
}

func dot3(a, b *[3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func rows3(k []float64) (r0, r1, r2 *[3]float64) {
	return (*[3]float64)(k[0:3]), (*[3]float64)(k[3:6]), (*[3]float64)(k[6:9])
}

// Forward pads the input by one and convolves it.
func (c *Convolution3x3) Forward(in *volume.Volume) (*volume.Volume, Trace, error) {
	if err := volume.CheckShape("conv3x3.Forward", in, c.in); err != nil {
		return nil, Trace{}, err
	}
	padded := in.Pad(1)
	wp := padded.Width()
	h, w := c.out.Height, c.out.Width
	bank := c.Bank()

	out := volume.Zeros(c.out)
	for o := 0; o < c.out.Planes; o++ {
		dst := out.Plane(o)
		for i := 0; i < c.in.Planes; i++ {
			k0, k1, k2 := rows3(bank.Kernel(o, i))
			src := padded.Plane(i)
			for y := 0; y < h; y++ {
				r0, r1, r2 := src[y*wp:], src[(y+1)*wp:], src[(y+2)*wp:]
				for x := 0; x < w; x++ {
					dst[y*w+x] += dot3(k0, (*[3]float64)(r0[x:x+3])) +
						dot3(k1, (*[3]float64)(r1[x:x+3])) +
						dot3(k2, (*[3]float64)(r2[x:x+3]))
				}
			}
		}
	}
	return out, Trace{Input: padded, Output: out}, nil
}

// Backward accumulates kernel gradients and returns the downstream gradient
// (nil for a first layer).
func (c *Convolution3x3) Backward(tr Trace, grad *volume.Volume) (*volume.Volume, error) {
	padShape := volume.Shape{Planes: c.in.Planes, Height: c.in.Height + 2, Width: c.in.Width + 2}
	if err := checkBackward("conv3x3.Backward", tr, grad, padShape, c.out); err != nil {
		return nil, err
	}
	wp := padShape.Width
	h, w := c.out.Height, c.out.Width

	for o := 0; o < c.out.Planes; o++ {
		gPlane := grad.Plane(o)
		for i := 0; i < c.in.Planes; i++ {
			off := (o*c.in.Planes + i) * 9
			g0, g1, g2 := rows3(c.grads[off : off+9])
			src := tr.Input.Plane(i)
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					alpha := gPlane[y*w+x]
					if alpha == 0 {
						continue
					}
					for s, g := range [3]*[3]float64{g0, g1, g2} {
						r := (*[3]float64)(src[(y+s)*wp+x : (y+s)*wp+x+3])
						g[0] += alpha * r[0]
						g[1] += alpha * r[1]
						g[2] += alpha * r[2]
					}
				}
			}
		}
	}

	if c.cfg.FirstLayer {
		return nil, nil
	}
	return c.downstream(grad, padShape), nil
}

func (c *Convolution3x3) downstream(grad *volume.Volume, pad volume.Shape) *volume.Volume {
	mapY := volume.ConnectionMapFor(pad.Height, 3, 1)
	bank := c.Bank()
	w := c.out.Width

	down := volume.Zeros(c.in)
	var window [3]float64
	for i := 0; i < c.in.Planes; i++ {
		dPlane := down.Plane(i)
		for o := 0; o < c.out.Planes; o++ {
			gPlane := grad.Plane(o)
			k := bank.Kernel(o, i)
			for y := 1; y < pad.Height-1; y++ {
				for x := 1; x < pad.Width-1; x++ {
					sum := 0.0
					for _, a := range mapY.At(y) {
						gRow := gPlane[a.Dst*w : (a.Dst+1)*w]
						for t := 0; t < 3; t++ {
							window[t] = 0
							if d := x - t; d >= 0 && d < w {
								window[t] = gRow[d]
							}
						}
						sum += dot3((*[3]float64)(k[a.Tap*3:a.Tap*3+3]), &window)
					}
					dPlane[(y-1)*c.in.Width+(x-1)] += sum
				}
			}
		}
	}
	return down
}

// MergeGradients adds the replicas' kernel gradients.
func (c *Convolution3x3) MergeGradients(replicas []Layer) error {
	return mergeGradients[*Convolution3x3](c.grads, replicas)
}

// Clone returns a copy with the same kernels and a zeroed gradient.
func (c *Convolution3x3) Clone() Layer {
	clone := *c
	clone.params = c.params.clone()
	return &clone
}

func (c *Convolution3x3) String() string {
	return fmt.Sprintf("Convolution3x3(%v -> %v)", c.in, c.out)
}
