package dataset

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/volnet/internal/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idxImages(t *testing.T, rows, cols int, pixels ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian,
		[4]uint32{MagicImages, uint32(len(pixels)), uint32(rows), uint32(cols)}))
	for _, p := range pixels {
		buf.Write(p)
	}
	return buf.Bytes()
}

func idxLabels(t *testing.T, labels ...byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, [2]uint32{MagicLabels, uint32(len(labels))}))
	buf.Write(labels)
	return buf.Bytes()
}

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadIDX(t *testing.T) {
	dir := t.TempDir()
	images := idxImages(t, 2, 2,
		[]byte{0, 255, 51, 102},
		[]byte{255, 255, 0, 0},
		[]byte{1, 2, 3, 4},
	)
	labels := idxLabels(t, 7, 0, 9)

	tests := []struct {
		name   string
		images []byte
		labels []byte
	}{
		{"plain", images, labels},
		{"gzip", gzipped(t, images), gzipped(t, labels)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip := writeFile(t, dir, tt.name+"-images", tt.images)
			lp := writeFile(t, dir, tt.name+"-labels", tt.labels)

			samples, err := LoadIDX(ip, lp, 0)
			require.NoError(t, err)
			require.Len(t, samples, 3)

			s := samples[0]
			assert.Equal(t, volume.Shape{Planes: 1, Height: 2, Width: 2}, s.Input.Shape())
			assert.InDeltaSlice(t, []float64{0, 1, 0.2, 0.4}, s.Input.Data(), 1e-12)
			assert.Equal(t, volume.Shape{Planes: 1, Height: 1, Width: Classes}, s.Target.Shape())
			assert.Equal(t, 7, s.Label())
			assert.Equal(t, 1.0, s.Target.Data()[7])
			assert.Equal(t, 1.0, s.Target.SumSquares())

			assert.Equal(t, 0, samples[1].Label())
			assert.Equal(t, 9, samples[2].Label())
		})
	}
}

func TestLoadIDX_Limit(t *testing.T) {
	dir := t.TempDir()
	ip := writeFile(t, dir, "images", idxImages(t, 1, 1, []byte{1}, []byte{2}, []byte{3}))
	lp := writeFile(t, dir, "labels", idxLabels(t, 1, 2, 3))

	samples, err := LoadIDX(ip, lp, 2)
	require.NoError(t, err)
	assert.Len(t, samples, 2)
}

func TestLoadIDX_Errors(t *testing.T) {
	dir := t.TempDir()
	images := idxImages(t, 1, 1, []byte{1}, []byte{2})
	labels := idxLabels(t, 1, 2)

	t.Run("swapped files", func(t *testing.T) {
		ip := writeFile(t, dir, "a", idxLabels(t, 1, 2, 3, 4, 5, 6, 7, 8))
		lp := writeFile(t, dir, "b", images)
		_, err := LoadIDX(ip, lp, 0)
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("count mismatch", func(t *testing.T) {
		ip := writeFile(t, dir, "c", images)
		lp := writeFile(t, dir, "d", idxLabels(t, 1))
		_, err := LoadIDX(ip, lp, 0)
		assert.ErrorContains(t, err, "2 images but 1 labels")
	})

	t.Run("truncated", func(t *testing.T) {
		ip := writeFile(t, dir, "e", images[:len(images)-1])
		lp := writeFile(t, dir, "f", labels)
		_, err := LoadIDX(ip, lp, 0)
		assert.Error(t, err)
	})

	t.Run("label out of range", func(t *testing.T) {
		ip := writeFile(t, dir, "g", images)
		lp := writeFile(t, dir, "h", idxLabels(t, 1, 12))
		_, err := LoadIDX(ip, lp, 0)
		assert.ErrorContains(t, err, "out of range")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadIDX(filepath.Join(dir, "nope"), filepath.Join(dir, "nope"), 0)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestValidate(t *testing.T) {
	in := volume.Shape{Planes: 1, Height: 1, Width: 2}
	out := volume.Shape{Planes: 1, Height: 1, Width: 1}
	good := Sample{Input: volume.Vector(0, 1), Target: volume.Vector(1)}

	assert.NoError(t, Validate([]Sample{good, good}, in, out))

	bad := Sample{Input: volume.Vector(0, 1, 2), Target: volume.Vector(1)}
	err := Validate([]Sample{good, bad}, in, out)
	assert.ErrorIs(t, err, volume.ErrShapeMismatch)
	assert.ErrorContains(t, err, "sample 1 input")
}

func TestSplit(t *testing.T) {
	samples := make([]Sample, 5)
	train, test := Split(samples, 2)
	assert.Len(t, train, 3)
	assert.Len(t, test, 2)

	train, test = Split(samples, 10)
	assert.Empty(t, train)
	assert.Len(t, test, 5)
}

func TestOneHot(t *testing.T) {
	v, err := OneHot(4, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 0}, v.Data())

	_, err = OneHot(4, 4)
	assert.Error(t, err)
}
