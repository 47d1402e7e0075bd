package utils

import (
	"errors"
	"fmt"
)

// Sentinel errors matching the coordinator's failure taxonomy. Callers are
// expected to branch with errors.Is and treat NotFound as routine, since
// disconnect and cancel races make stale IDs a normal occurrence.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyResolved = errors.New("already resolved")
	ErrMalformedInput  = errors.New("malformed input")
)

// ServiceError carries a wire-visible code alongside the underlying cause.
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Cause   error  `json:"-"`
}

func (e ServiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e ServiceError) Unwrap() error {
	return e.Cause
}

func NewNotFoundError(resource string) error {
	return ServiceError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
		Cause:   ErrNotFound,
	}
}

func NewAlreadyResolvedError(requestID string) error {
	return ServiceError{
		Code:    "ALREADY_RESOLVED",
		Message: "request is no longer open",
		Details: requestID,
		Cause:   ErrAlreadyResolved,
	}
}

func NewMalformedInputError(details string) error {
	return ServiceError{
		Code:    "MALFORMED_INPUT",
		Message: "event payload failed validation",
		Details: details,
		Cause:   ErrMalformedInput,
	}
}

// GetServiceError extracts a ServiceError from an error chain.
func GetServiceError(err error) (ServiceError, bool) {
	var serviceErr ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return ServiceError{}, false
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyResolved(err error) bool {
	return errors.Is(err, ErrAlreadyResolved)
}

func IsMalformedInput(err error) bool {
	return errors.Is(err, ErrMalformedInput)
}
