package llm

import (
	"errors"
	"fmt"
)

// InvalidInputError reports a request that is missing a required field.
// It is always returned before any provider call is made.
type InvalidInputError struct {
	Flow   string
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "is required"
	}
	if e.Flow == "" {
		return fmt.Sprintf("invalid input: %s %s", e.Field, reason)
	}
	return fmt.Sprintf("%s: invalid input: %s %s", e.Flow, e.Field, reason)
}

// TransportError reports a failure to reach the provider or a provider-side error.
type TransportError struct {
	Flow string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Flow == "" {
		return fmt.Sprintf("provider transport failure: %v", e.Err)
	}
	return fmt.Sprintf("%s: provider transport failure: %v", e.Flow, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// InvalidResponseError reports a provider reply that does not satisfy the expected output shape.
type InvalidResponseError struct {
	Flow   string
	Reason string
	Err    error
}

func (e *InvalidResponseError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	if e.Flow == "" {
		return "invalid provider response: " + msg
	}
	return fmt.Sprintf("%s: invalid provider response: %s", e.Flow, msg)
}

func (e *InvalidResponseError) Unwrap() error {
	return e.Err
}

// IsInvalidInput reports whether err carries an InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

// IsTransport reports whether err carries a TransportError.
func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsInvalidResponse reports whether err carries an InvalidResponseError.
func IsInvalidResponse(err error) bool {
	var target *InvalidResponseError
	return errors.As(err, &target)
}

func invalidResponse(reason string, err error) error {
	return &InvalidResponseError{Reason: reason, Err: err}
}
