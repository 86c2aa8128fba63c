// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package volume_test

import (
	"testing"

	"github.com/born-ml/volnet/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicAPI(t *testing.T) {
	v := volume.New(1, 4, 4)
	v.Set(0, 1, 2, 5)

	pooled, argmax, err := v.ApplyMax(2, 2)
	require.NoError(t, err)
	assert.Equal(t, volume.Shape{Planes: 1, Height: 2, Width: 2}, pooled.Shape())
	assert.Equal(t, 5.0, pooled.At(0, 0, 1))
	assert.Equal(t, v.Index(0, 1, 2), argmax[1])

	_, err = volume.FromSlice(volume.Shape{Planes: 1, Height: 2, Width: 2}, []float64{1})
	assert.ErrorIs(t, err, volume.ErrShapeMismatch)

	assert.Equal(t, 14, volume.ConvOutputSize(28, 2, 2))
	assert.Equal(t, 14, volume.PoolOutputSize(28, 3, 2))
	assert.Same(t, volume.ConnectionMapFor(10, 3, 1), volume.ConnectionMapFor(10, 3, 1))
}
