// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package volume provides the rank-3 (planes × height × width) value type
// that flows between network layers.
//
// # Overview
//
// This package contains:
//   - Shape and Volume: dense row-major float64 storage
//   - Convolution helpers: FilterBank, ApplyFilters, ConnectionMap
//   - Max pooling with argmax routing: ApplyMax
//   - Shape errors: ErrShapeMismatch, ShapeError
//
// # Basic Usage
//
//	import "github.com/born-ml/volnet/volume"
//
//	func main() {
//	    img := volume.New(1, 28, 28)
//	    img.Set(0, 14, 14, 1.0)
//
//	    padded := img.Pad(1)              // 1x30x30
//	    pooled, argmax, err := img.ApplyMax(2, 2) // 1x14x14
//	}
//
// Volumes returned by layers are never modified afterwards; a layer that
// needs a variant allocates a new volume.
package volume
