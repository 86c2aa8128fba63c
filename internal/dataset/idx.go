package dataset

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/volnet/internal/volume"
)

// IDX magic numbers.
const (
	MagicImages uint32 = 0x00000803 // 2051
	MagicLabels uint32 = 0x00000801 // 2049
)

// Classes is the number of MNIST digit classes.
const Classes = 10

// Images holds decoded IDX image data.
type Images struct {
	Count  int
	Rows   int
	Cols   int
	Pixels [][]byte // [Count][Rows*Cols]
}

// ReadImages decodes an IDX image stream.
//
// IDX file format for images:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes
//	number of cols: 4 bytes
//	pixel data: unsigned bytes (0-255)
//
// limit > 0 stops after that many images.
func ReadImages(r io.Reader, limit int) (*Images, error) {
	var header [4]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	if header[0] != MagicImages {
		return nil, fmt.Errorf("%w: got %#08x, want %#08x", ErrInvalidMagic, header[0], MagicImages)
	}

	count := int(header[1])
	if limit > 0 && limit < count {
		count = limit
	}
	imgs := &Images{Count: count, Rows: int(header[2]), Cols: int(header[3])}
	size := imgs.Rows * imgs.Cols

	imgs.Pixels = make([][]byte, count)
	for i := range imgs.Pixels {
		imgs.Pixels[i] = make([]byte, size)
		if _, err := io.ReadFull(r, imgs.Pixels[i]); err != nil {
			return nil, fmt.Errorf("failed to read image %d: %w", i, err)
		}
	}
	return imgs, nil
}

// ReadLabels decodes an IDX label stream.
//
// IDX file format for labels:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes (0-9)
func ReadLabels(r io.Reader, limit int) ([]byte, error) {
	var header [2]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read label header: %w", err)
	}
	if header[0] != MagicLabels {
		return nil, fmt.Errorf("%w: got %#08x, want %#08x", ErrInvalidMagic, header[0], MagicLabels)
	}

	count := int(header[1])
	if limit > 0 && limit < count {
		count = limit
	}
	labels := make([]byte, count)
	if _, err := io.ReadFull(r, labels); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return labels, nil
}

// open returns a reader for path, transparently decompressing gzip data.
func open(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		return zr, func() error {
			zr.Close()
			return f.Close()
		}, nil
	}
	return br, f.Close, nil
}

// LoadIDX reads an image file and a label file (plain or gzip) and returns
// samples with 1×rows×cols inputs scaled to [0, 1] and one-hot 1×1×10
// targets. limit > 0 caps the number of samples.
func LoadIDX(imagesPath, labelsPath string, limit int) ([]Sample, error) {
	ir, closeImages, err := open(imagesPath)
	if err != nil {
		return nil, err
	}
	defer closeImages()

	imgs, err := ReadImages(ir, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", imagesPath, err)
	}

	lr, closeLabels, err := open(labelsPath)
	if err != nil {
		return nil, err
	}
	defer closeLabels()

	labels, err := ReadLabels(lr, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", labelsPath, err)
	}

	return Decode(imgs, labels)
}

// Decode turns raw IDX images and labels into samples.
func Decode(imgs *Images, labels []byte) ([]Sample, error) {
	if len(labels) != imgs.Count {
		return nil, fmt.Errorf("dataset: %d images but %d labels", imgs.Count, len(labels))
	}
	shape := volume.Shape{Planes: 1, Height: imgs.Rows, Width: imgs.Cols}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}

	samples := make([]Sample, imgs.Count)
	for i, px := range imgs.Pixels {
		data := make([]float64, len(px))
		for j, b := range px {
			data[j] = float64(b) / 255
		}
		input, err := volume.FromSlice(shape, data)
		if err != nil {
			return nil, err
		}
		target, err := OneHot(Classes, int(labels[i]))
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		samples[i] = Sample{Input: input, Target: target}
	}
	return samples, nil
}
