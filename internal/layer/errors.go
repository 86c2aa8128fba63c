package layer

import "errors"

// Common errors.
var (
	// ErrInvalidGeometry is returned by constructors whose arguments leave no
	// output cell or use non-positive sizes.
	ErrInvalidGeometry = errors.New("invalid layer geometry")

	// ErrIncompatibleLayer is returned by MergeGradients when a replica is not
	// the same kind and size as the receiver.
	ErrIncompatibleLayer = errors.New("incompatible layer")

	// ErrInvalidTrace is returned by Backward when the trace was not produced
	// by this layer's Forward.
	ErrInvalidTrace = errors.New("invalid trace")
)
