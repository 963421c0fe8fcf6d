package shared

import (
	"errors"
	"fmt"
)

// Code identifies an engine failure category. Codes map 1:1 to the
// error payloads returned by the HTTP layer.
type Code string

const (
	CodeValidation           Code = "VALIDATION_ERROR"
	CodeProgramInactive      Code = "PROGRAM_INACTIVE"
	CodeBelowMinimumPurchase Code = "BELOW_MINIMUM_PURCHASE"
	CodeDailyCapReached      Code = "DAILY_CAP_REACHED"
	CodeRewardUnavailable    Code = "REWARD_UNAVAILABLE"
	CodeInsufficientBalance  Code = "INSUFFICIENT_BALANCE"
	CodeConflict             Code = "CONFLICT"
	CodeStoreUnavailable     Code = "STORE_UNAVAILABLE"
)

// Error is the tagged failure type returned by all engine operations.
// Field is set for validation failures to name the violated field.
type Error struct {
	Code    Code
	Message string
	Field   string
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error carrying the same Code, so callers can test
// errors.Is(err, &Error{Code: CodeInsufficientBalance}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates a tagged engine error.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewValidationError creates a validation failure citing the violated field.
func NewValidationError(field, message string) *Error {
	return &Error{Code: CodeValidation, Message: message, Field: field}
}

// WrapStoreUnavailable tags a transient infrastructure failure while
// preserving the underlying error for logging.
func WrapStoreUnavailable(err error) *Error {
	return &Error{Code: CodeStoreUnavailable, Message: "persistence store unavailable", cause: err}
}

// CodeOf extracts the engine code from an error chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// IsRetryable reports whether the failure is safe to retry. Only store
// outages qualify: engine writes are idempotent on their key, so replays
// cannot double-apply.
func IsRetryable(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodeStoreUnavailable
}
