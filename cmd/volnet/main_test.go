package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/volnet/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIDX(t *testing.T, dir string, n int) (images, labels string) {
	t.Helper()
	var img bytes.Buffer
	require.NoError(t, binary.Write(&img, binary.BigEndian, [4]uint32{dataset.MagicImages, uint32(n), 4, 4}))
	var lbl bytes.Buffer
	require.NoError(t, binary.Write(&lbl, binary.BigEndian, [2]uint32{dataset.MagicLabels, uint32(n)}))
	for i := range n {
		class := i % 2
		for p := range 16 {
			v := byte(0)
			if (p%4 < 2) == (class == 0) {
				v = 255
			}
			img.WriteByte(v)
		}
		lbl.WriteByte(byte(class))
	}
	images = filepath.Join(dir, "images.idx")
	labels = filepath.Join(dir, "labels.idx")
	require.NoError(t, os.WriteFile(images, img.Bytes(), 0o600))
	require.NoError(t, os.WriteFile(labels, lbl.Bytes(), 0o600))
	return images, labels
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"version"}, &out, &out))
	assert.Contains(t, out.String(), version)
}

func TestRun_Usage(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, run(nil, &out, &errOut))
	assert.Contains(t, out.String(), "train -config")

	assert.Error(t, run([]string{"serve"}, &out, &errOut))
}

func TestRun_Train(t *testing.T) {
	dir := t.TempDir()
	images, labels := writeIDX(t, dir, 8)

	doc := "data:\n" +
		"  images: " + images + "\n" +
		"  labels: " + labels + "\n" +
		"  test_images: " + images + "\n" +
		"  test_labels: " + labels + "\n" +
		"topology:\n" +
		"  input: {planes: 1, height: 4, width: 4}\n" +
		"  lr: 0.1\n" +
		"  layers:\n" +
		"    - {type: conv3x3, planes: 2, first_layer: true}\n" +
		"    - {type: maxpool, size: 2}\n" +
		"    - {type: softmax, classes: 10}\n" +
		"training: {mode: sequential, epochs: 2, batch_size: 4, seed: 7}\n"
	config := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(config, []byte(doc), 0o600))

	var out, logs bytes.Buffer
	require.NoError(t, run([]string{"train", "-config", config, "-v", "-dump"}, &out, &logs))

	assert.Contains(t, out.String(), "final MSE")
	assert.Contains(t, out.String(), "recognition rate")
	assert.Contains(t, out.String(), "layer 0:")
	assert.Contains(t, logs.String(), "msg=evaluation")
	assert.Contains(t, logs.String(), "level=DEBUG")
}

func TestRun_TrainMissingConfig(t *testing.T) {
	var out, logs bytes.Buffer
	err := run([]string{"train", "-config", filepath.Join(t.TempDir(), "nope.yaml")}, &out, &logs)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
