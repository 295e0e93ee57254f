package report

import "errors"

var (
	// ErrUnsupportedFormat is returned when a writer is requested for an
	// unknown output format.
	ErrUnsupportedFormat = errors.New("unsupported report format")

	// ErrNoResult is returned when a session without a result is written
	// where a result is required.
	ErrNoResult = errors.New("session has no result")

	// ErrInvalidResult is returned when a loaded result record violates
	// its invariants (unsorted names or a wrong name count).
	ErrInvalidResult = errors.New("invalid result record")
)
