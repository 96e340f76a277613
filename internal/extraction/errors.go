package extraction

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrInvalidResponse is returned when the upstream call succeeds but the
	// response carries no result or no text.
	ErrInvalidResponse = errors.New("invalid response from upstream")

	// ErrUpstream is returned when the upstream call itself fails: transport,
	// authentication, quota or a service-side rejection of the image.
	ErrUpstream = errors.New("upstream request failed")

	// ErrImageDecode is returned when the input cannot be opened as an image.
	ErrImageDecode = errors.New("cannot decode image")

	// ErrImageTooLarge is returned when the upload exceeds MaxImageBytes.
	ErrImageTooLarge = errors.New("image exceeds the maximum size limit (20MB)")

	// ErrUnsupportedFormat is returned when a filename extension is not in the allow-list.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrMissingCredential is returned when no API key is available.
	ErrMissingCredential = errors.New("missing API key")

	// ErrUnknownBackend is returned for a backend name that is not registered.
	ErrUnknownBackend = errors.New("unknown extraction backend")
)

// ExtractionError wraps errors with additional context about the failure.
type ExtractionError struct {
	// Op is the operation that failed (e.g., "Extract", "DecodeImage").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context, such as the upstream message.
	Details string

	// cause is the upstream error behind ErrUpstream, kept for matching
	// context cancellation and deadlines.
	cause error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extraction: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extraction: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ExtractionError) Is(target error) bool {
	if errors.Is(e.Err, target) {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// NewExtractionError creates a new ExtractionError.
func NewExtractionError(op string, err error, details string) *ExtractionError {
	return &ExtractionError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapExtractionError wraps an error as an ExtractionError if it isn't already one.
func WrapExtractionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return err
	}

	return NewExtractionError(op, err, details)
}

// upstreamError records a failed upstream call. The upstream message is kept
// verbatim so it can be shown to the user.
func upstreamError(op string, cause error) error {
	return &ExtractionError{
		Op:      op,
		Err:     ErrUpstream,
		Details: cause.Error(),
		cause:   cause,
	}
}
