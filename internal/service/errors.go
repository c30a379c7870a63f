package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrPostNotDispatchable = errors.New("post is not in a dispatchable state")
	ErrPostBusy            = errors.New("post is being published")
	ErrGeneratorDisabled   = errors.New("content generation is not configured")
)

// ValidationError is returned when a request is rejected before any state
// change or network call happens.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
