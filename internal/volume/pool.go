package volume

import (
	"fmt"
	"math"
)

// NoSource marks a pooled cell whose window had no in-bounds input cell.
// This only happens when stride exceeds the window size.
const NoSource = -1

// ApplyMax performs max pooling and records where each maximum came from.
//
// For every plane and output cell the size × size window starting at
// (oy*stride, ox*stride) is scanned in row-major order. Window cells outside
// the input are skipped, not treated as zeros. Comparison is strict, so the
// first-scanned position wins ties.
//
// Output size per dimension is ceil((in - size + stride) / stride).
//
// The returned argmax slice has one entry per output cell (in output flat
// order) holding the flat index of the winning input cell, or NoSource.
func (v *Volume) ApplyMax(size, stride int) (*Volume, []int, error) {
	if size <= 0 || stride <= 0 {
		return nil, nil, fmt.Errorf("volume.ApplyMax: invalid size %d / stride %d", size, stride)
	}
	outH := PoolOutputSize(v.shape.Height, size, stride)
	outW := PoolOutputSize(v.shape.Width, size, stride)
	if outH <= 0 || outW <= 0 {
		return nil, nil, fmt.Errorf("volume.ApplyMax: window %d does not fit input %v: %w",
			size, v.shape, ErrShapeMismatch)
	}

	h, w := v.shape.Height, v.shape.Width
	out := New(v.shape.Planes, outH, outW)
	argmax := make([]int, out.Len())

	for p := 0; p < v.shape.Planes; p++ {
		planeOff := p * h * w
		plane := v.data[planeOff : planeOff+h*w]
		for oy := 0; oy < outH; oy++ {
			for ox := 0; ox < outW; ox++ {
				best := math.Inf(-1)
				src := NoSource
				for y := oy * stride; y < oy*stride+size && y < h; y++ {
					for x := ox * stride; x < ox*stride+size && x < w; x++ {
						if val := plane[y*w+x]; src == NoSource || val > best {
							best = val
							src = planeOff + y*w + x
						}
					}
				}
				idx := out.Index(p, oy, ox)
				if src == NoSource {
					best = 0
				}
				out.data[idx] = best
				argmax[idx] = src
			}
		}
	}
	return out, argmax, nil
}
