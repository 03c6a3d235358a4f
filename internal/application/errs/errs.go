package errs

import (
	"errors"
	"fmt"
)

var ErrNoTemplate = errors.New("no certificate template available")

type RetryableError struct {
	Err error
}

func (t RetryableError) Error() string {
	return fmt.Sprintf("retryable error: %v", t.Err)
}

func (t RetryableError) Unwrap() error { return t.Err }

type ValidationError struct {
	Err error
}

func (t ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %v", t.Err)
}

func (t ValidationError) Unwrap() error { return t.Err }

type NotFoundError struct {
	What string
	Err  error
}

func (t NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", t.What)
}

func (t NotFoundError) Unwrap() error { return t.Err }

type ConflictError struct {
	Err error
}

func (t ConflictError) Error() string {
	return fmt.Sprintf("conflict: %v", t.Err)
}

func (t ConflictError) Unwrap() error { return t.Err }

// StepError marks the failed step of a multi step operation. Message is safe to show to callers,
// Err carries the details.
type StepError struct {
	Step    string
	Message string
	Err     error
}

func (t StepError) Error() string {
	return fmt.Sprintf("%s: %v", t.Message, t.Err)
}

func (t StepError) Unwrap() error { return t.Err }
