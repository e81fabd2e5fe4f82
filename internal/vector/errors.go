package vector

import "errors"

var (
	// ErrDimensionMismatch is returned when a vector does not have the
	// dimension the index was built with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrDegenerateVector is returned for vectors with zero magnitude or
	// non-finite components.
	ErrDegenerateVector = errors.New("degenerate embedding")
	// ErrEmptyID is returned when an entry has no id.
	ErrEmptyID = errors.New("empty entry id")
)
