package embedding

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrNotTrained is returned when inference is requested before Train
	// has produced encoder parameters.
	ErrNotTrained = errors.New("embedding model not trained")

	// ErrMissingFeature is returned when a required feature dimension is
	// absent (NaN) at encode time. Fatal for the single encode call only.
	ErrMissingFeature = errors.New("missing feature dimension")

	// ErrDimensionMismatch is returned when an input vector's length does
	// not match the dimensionality the model was trained on.
	ErrDimensionMismatch = errors.New("feature vector dimension mismatch")

	// ErrNoTrainingData is returned when Train is called with no usable
	// samples.
	ErrNoTrainingData = errors.New("no usable training samples")
)
