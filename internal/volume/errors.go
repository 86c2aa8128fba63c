package volume

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when a volume does not have the shape an
// operation declared. Volumes are never cropped or padded to fit.
var ErrShapeMismatch = errors.New("shape mismatch")

// ShapeError reports which operation rejected which shape.
type ShapeError struct {
	Op   string // Operation that rejected the volume (e.g. "conv.Forward")
	Want Shape  // Declared shape
	Got  Shape  // Received shape
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %v: want %v, got %v", e.Op, ErrShapeMismatch, e.Want, e.Got)
}

// Unwrap returns ErrShapeMismatch so errors.Is works on wrapped values.
func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}

// CheckShape returns a *ShapeError if v does not have shape want.
func CheckShape(op string, v *Volume, want Shape) error {
	if v == nil {
		return &ShapeError{Op: op, Want: want}
	}
	if v.shape != want {
		return &ShapeError{Op: op, Want: want, Got: v.shape}
	}
	return nil
}
