package outage

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDate is wrapped by ParseError when a schedule date cannot be parsed.
	ErrInvalidDate = errors.New("outage: invalid schedule date")

	// ErrInvalidPair marks a pre-computed period that could not be decoded.
	ErrInvalidPair = errors.New("outage: invalid outage pair")

	// ErrNoLocation is returned when no timezone anchor was supplied.
	ErrNoLocation = errors.New("outage: timezone anchor is required")
)

// ParseError reports a schedule date that violates the data contract.
// It is distinct from missing data, which is not an error.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("outage: cannot parse date %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrInvalidDate, e.Err}
}
