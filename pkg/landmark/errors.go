package landmark

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrServiceUnavailable is returned when the landmark service cannot be reached.
	ErrServiceUnavailable = errors.New("landmark: service unavailable")

	// ErrInvalidFrame is returned when the frame fails validation.
	ErrInvalidFrame = errors.New("landmark: invalid frame")

	// ErrMalformedResponse is returned when the service reply cannot be used.
	ErrMalformedResponse = errors.New("landmark: malformed response")
)

// ArityError is returned when an extractor produces a result count that is
// neither zero nor one per input box.
type ArityError struct {
	Want int
	Got  int
}

// Error implements the error interface.
func (e *ArityError) Error() string {
	return fmt.Sprintf("landmark: extractor returned %d results for %d boxes", e.Got, e.Want)
}

// ServiceError wraps a failure talking to the landmark service.
type ServiceError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("landmark: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}
