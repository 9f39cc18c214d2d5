package domain

import "errors"

// Scoring error taxonomy. The core raises these; the service boundary
// decides status codes.
var (
	// ErrInsufficientHistory: the corridor exists but has too few rows
	// for the requested features or score.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrModelNotTrained: no persisted model artifact for the requested
	// scope yet.
	ErrModelNotTrained = errors.New("model not trained")

	// ErrUnsupportedCorridor: no historical rows at all for the pair.
	ErrUnsupportedCorridor = errors.New("unsupported corridor")
)
