package analytics

import (
	"errors"
	"fmt"
)

// ErrInsufficientData matches any *InsufficientDataError through errors.Is.
var ErrInsufficientData = errors.New("insufficient data")

// ValidationError reports malformed or out of range input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientDataError is returned when a series is too short to project.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: have %d points, need %d", e.Have, e.Need)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// DataUnavailableError wraps a failed fetch from the record store.
type DataUnavailableError struct {
	Source string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Err
}

func unavailable(source string, err error) error {
	return &DataUnavailableError{Source: source, Err: err}
}
