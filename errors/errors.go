package errors

import (
	"errors"
	"fmt"
)

// Core error definitions for the security policy package.
// Policy rejections (weak password, rate limited) are returned as result values
// by the core components; these errors exist for the convenience wrappers and
// the storage and provider boundaries.

// Validation-related errors
var (
	// ErrWeakPassword indicates the password does not meet the policy
	ErrWeakPassword = errors.New("password does not meet strength requirements")

	// ErrValidationFailed indicates general validation failure
	ErrValidationFailed = errors.New("validation failed")

	// ErrRequiredFieldMissing indicates a required field is missing
	ErrRequiredFieldMissing = errors.New("required field is missing")
)

// Rate limiting errors
var (
	// ErrRateLimitExceeded indicates the caller has exhausted its attempts
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrUnknownAction indicates an action type without a configured policy
	ErrUnknownAction = errors.New("unknown rate limit action")
)

// Storage errors
var (
	// ErrServiceUnavailable indicates the service is temporarily unavailable
	ErrServiceUnavailable = errors.New("service temporarily unavailable")

	// ErrStorageUnavailable indicates the persistence boundary could not be reached
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrCacheMiss indicates a cache miss occurred
	ErrCacheMiss = errors.New("cache miss")

	// ErrCorruptValue indicates a stored value could not be decoded
	ErrCorruptValue = errors.New("stored value could not be decoded")
)

// Configuration errors
var (
	// ErrConfigurationError indicates a configuration error
	ErrConfigurationError = errors.New("configuration error")
)

// Identity provider errors
var (
	// ErrProviderRejected indicates the identity provider refused the request
	ErrProviderRejected = errors.New("identity provider rejected the request")
)

// ErrorCode represents standardized error codes for API responses
type ErrorCode string

const (
	// Account error codes
	CodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeUserDisabled       ErrorCode = "USER_DISABLED"
	CodeDuplicateEmail     ErrorCode = "DUPLICATE_EMAIL"
	CodeWeakPassword       ErrorCode = "WEAK_PASSWORD"
	CodeReauthRequired     ErrorCode = "REAUTHENTICATION_REQUIRED"

	// Action code (email link) error codes
	CodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"

	// Validation error codes
	CodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	CodeInvalidEmailFormat ErrorCode = "INVALID_EMAIL_FORMAT"
	CodeEmptyField         ErrorCode = "EMPTY_FIELD"

	// Interactive sign-in error codes
	CodeSignInCancelled ErrorCode = "SIGN_IN_CANCELLED"
	CodeAccountConflict ErrorCode = "ACCOUNT_CONFLICT"

	// System error codes
	CodeInternalError      ErrorCode = "INTERNAL_ERROR"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeNetworkFailure     ErrorCode = "NETWORK_FAILURE"
	CodeRateLimitExceeded  ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	CodeConfiguration      ErrorCode = "CONFIGURATION_ERROR"
	CodeNotImplemented     ErrorCode = "NOT_IMPLEMENTED"
)

// AppError represents a structured application error with context
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"` // Don't serialize the underlying error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code and message
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewAppErrorWithCause creates a new AppError with an underlying cause
func NewAppErrorWithCause(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with additional details
func NewAppErrorWithDetails(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// NewWeakPasswordError creates a weak password error
func NewWeakPasswordError(requirements string) *AppError {
	return &AppError{
		Code:    CodeWeakPassword,
		Message: "Password does not meet requirements",
		Details: requirements,
		Cause:   ErrWeakPassword,
	}
}

// NewRateLimitError creates a rate limit error carrying the retry delay
func NewRateLimitError(action string, retryAfterSeconds int) *AppError {
	return &AppError{
		Code:    CodeRateLimitExceeded,
		Message: "Too many attempts",
		Details: fmt.Sprintf("Action: %s, Retry after: %ds", action, retryAfterSeconds),
		Cause:   ErrRateLimitExceeded,
	}
}

// NewStorageError wraps a persistence fault
func NewStorageError(operation, key string, cause error) *AppError {
	return &AppError{
		Code:    CodeStorageUnavailable,
		Message: "Storage operation failed",
		Details: fmt.Sprintf("Operation: %s, Key: %s", operation, key),
		Cause:   fmt.Errorf("%w: %w", ErrStorageUnavailable, cause),
	}
}

// NewValidationError creates a validation error
func NewValidationError(field, reason string) *AppError {
	return &AppError{
		Code:    CodeValidationFailed,
		Message: "Validation failed",
		Details: fmt.Sprintf("Field: %s, Reason: %s", field, reason),
		Cause:   ErrValidationFailed,
	}
}

// NewRequiredFieldError reports an empty required field
func NewRequiredFieldError(field, message string) *AppError {
	return &AppError{
		Code:    CodeEmptyField,
		Message: message,
		Details: fmt.Sprintf("Field: %s", field),
		Cause:   ErrRequiredFieldMissing,
	}
}

// NewConfigurationError creates a configuration error for the given key
func NewConfigurationError(key, reason string) *AppError {
	return &AppError{
		Code:    CodeConfiguration,
		Message: "Invalid configuration",
		Details: fmt.Sprintf("Key: %s, Reason: %s", key, reason),
		Cause:   ErrConfigurationError,
	}
}

// NewUnknownActionError reports a rate limit policy configured for an action
// that has no configuration key
func NewUnknownActionError(action string) *AppError {
	return &AppError{
		Code:    CodeConfiguration,
		Message: "Invalid configuration",
		Details: fmt.Sprintf("Action: %s", action),
		Cause:   fmt.Errorf("%w: %w", ErrConfigurationError, ErrUnknownAction),
	}
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, target error) bool {
	return errors.Is(err, target)
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}
