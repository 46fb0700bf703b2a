package board

import (
	"errors"
	"fmt"
)

var (
	ErrTransport        = errors.New("transport failure")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrDataUnavailable  = errors.New("data unavailable")
	ErrLoadInProgress   = errors.New("load already in progress")
)

// TransportError wraps a failed request: network, timeout or non-2xx status.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport failure: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// MalformedPayloadError means a response arrived but was not a sequence of records.
type MalformedPayloadError struct {
	Reason string
	Err    error
}

func (e *MalformedPayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed payload: %s: %v", e.Reason, e.Err)
	}
	return "malformed payload: " + e.Reason
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }

func (e *MalformedPayloadError) Is(target error) bool { return target == ErrMalformedPayload }

// DataUnavailableError is the terminal result of a load once retries are exhausted.
type DataUnavailableError struct {
	Attempts int
	Err      error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data unavailable after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

func (e *DataUnavailableError) Is(target error) bool { return target == ErrDataUnavailable }
