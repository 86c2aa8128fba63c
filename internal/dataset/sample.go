// Package dataset provides training samples and the MNIST IDX sample
// provider.
package dataset

import (
	"errors"
	"fmt"

	"github.com/born-ml/volnet/internal/volume"
)

// ErrInvalidMagic is returned when an IDX file does not start with the
// expected magic number.
var ErrInvalidMagic = errors.New("invalid IDX magic number")

// Sample is an (input, target) pair. Samples are read-only once built.
type Sample struct {
	Input  *volume.Volume
	Target *volume.Volume
}

// OneHot returns a 1×1×classes target with a single 1 at label.
func OneHot(classes, label int) (*volume.Volume, error) {
	if classes <= 0 || label < 0 || label >= classes {
		return nil, fmt.Errorf("dataset.OneHot: label %d out of range [0, %d)", label, classes)
	}
	v := volume.New(1, 1, classes)
	v.Data()[label] = 1
	return v, nil
}

// Validate checks that every sample has the given input and target shapes.
func Validate(samples []Sample, in, out volume.Shape) error {
	for i, s := range samples {
		if err := volume.CheckShape(fmt.Sprintf("sample %d input", i), s.Input, in); err != nil {
			return err
		}
		if err := volume.CheckShape(fmt.Sprintf("sample %d target", i), s.Target, out); err != nil {
			return err
		}
	}
	return nil
}

// Split returns the first len(samples)-holdout samples for training and the
// rest for testing. The slices share the backing array.
func Split(samples []Sample, holdout int) (train, test []Sample) {
	holdout = min(max(holdout, 0), len(samples))
	cut := len(samples) - holdout
	return samples[:cut], samples[cut:]
}

// Label returns the index of the largest target value, i.e. the class of a
// one-hot target.
func (s Sample) Label() int {
	return s.Target.ArgMax()
}
