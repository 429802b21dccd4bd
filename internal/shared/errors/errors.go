package errors

import "errors"

// Domain errors
var (
	// Target errors
	ErrEmptyURL          = errors.New("target url cannot be empty")
	ErrInvalidTarget     = errors.New("invalid audit target")
	ErrUnsupportedScheme = errors.New("target url must use http or https")
	ErrInvalidTimeout    = errors.New("timeout must be positive")
	ErrInvalidThreshold  = errors.New("scam keyword threshold must be between 0 and 1")

	// Audit errors
	ErrNoCategoriesComputed = errors.New("no audit categories were computed")
	ErrBatchCancelled       = errors.New("batch cancelled before target was admitted")

	// Job errors
	ErrJobNotFound     = errors.New("job not found")
	ErrJobNotCompleted = errors.New("job has not completed")

	// Report errors
	ErrUnsupportedFormat = errors.New("unsupported report format")
)
