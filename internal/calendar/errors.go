package calendar

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDate marks a record date that cannot be keyed.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidSelection marks a malformed YYYY-MM-DD selection.
	ErrInvalidSelection = errors.New("invalid selection")
)

// InvalidDateError is returned by DayKey for values that do not resolve to an instant.
type InvalidDateError struct {
	Input  string
	Reason string
}

func (e *InvalidDateError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid date %q", e.Input)
	}
	return fmt.Sprintf("invalid date %q: %s", e.Input, e.Reason)
}

func (e *InvalidDateError) Is(target error) bool {
	return target == ErrInvalidDate
}

// InvalidSelectionError is returned by ParseSelection.
type InvalidSelectionError struct {
	Input  string
	Reason string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid selection %q: %s", e.Input, e.Reason)
}

func (e *InvalidSelectionError) Is(target error) bool {
	return target == ErrInvalidSelection
}
