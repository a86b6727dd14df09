package domain

import (
	"errors"
	"fmt"
)

// Adapter-level sentinels. Adapters wrap these so callers can classify
// failures with errors.Is.
var (
	// ErrNotFound means the geocoder had no match for the postal code.
	ErrNotFound = errors.New("no match found")

	// ErrTransientFetch means an upstream call failed in transport
	// (timeout, connection error, cancellation, non-success status).
	ErrTransientFetch = errors.New("transient fetch error")

	// ErrDataUnavailable means an upstream payload did not have the expected shape.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrNoValidData means every sample in a series was a sentinel.
	ErrNoValidData = errors.New("no valid data")
)

// ErrorKind classifies an AssessmentError.
type ErrorKind string

const (
	KindInvalidInput    ErrorKind = "invalid_input"
	KindNotFound        ErrorKind = "not_found"
	KindTransientFetch  ErrorKind = "transient_fetch"
	KindDataUnavailable ErrorKind = "data_unavailable"
	KindNoValidData     ErrorKind = "no_valid_data"
	KindNoYield         ErrorKind = "no_yield"
	KindInternal        ErrorKind = "internal"
)

// AssessmentError is the structured failure returned by impact and viability
// assessments. Message is safe to show to end users.
type AssessmentError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AssessmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AssessmentError) Unwrap() error {
	return e.Err
}

// NewAssessmentError builds an AssessmentError of the given kind.
func NewAssessmentError(kind ErrorKind, message string, err error) *AssessmentError {
	return &AssessmentError{Kind: kind, Message: message, Err: err}
}

// KindOf maps an error to its ErrorKind. Errors that are not AssessmentErrors
// are classified through the adapter sentinels, falling back to KindInternal.
func KindOf(err error) ErrorKind {
	var ae *AssessmentError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrTransientFetch):
		return KindTransientFetch
	case errors.Is(err, ErrDataUnavailable):
		return KindDataUnavailable
	case errors.Is(err, ErrNoValidData):
		return KindNoValidData
	default:
		return KindInternal
	}
}
