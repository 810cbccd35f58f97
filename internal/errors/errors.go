package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound          = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists     = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation        = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation  = new(ErrCodeInvalidOperation, "invalid operation")
	ErrUnauthorized      = new(ErrCodeUnauthorized, "unauthorized")
	ErrPermissionDenied  = new(ErrCodePermissionDenied, "permission denied")
	ErrInsufficientFunds = new(ErrCodeInsufficientFunds, "insufficient funds")
	ErrAlreadyOwned      = new(ErrCodeAlreadyOwned, "organization already owned")
	ErrAlreadyCompleted  = new(ErrCodeAlreadyCompleted, "job already completed")
	ErrProvider          = new(ErrCodeProvider, "provider error")
	ErrStoreUnavailable  = new(ErrCodeStoreUnavailable, "store unavailable")
	ErrHTTPClient        = new(ErrCodeHTTPClient, "http client error")
	ErrDatabase          = new(ErrCodeDatabase, "database error")
	ErrSystem            = new(ErrCodeSystemError, "system error")
	// statusCodes maps errors to http status codes. An error can carry several
	// marks, the first match wins: transient and upstream failures before
	// caller mistakes.
	statusCodes = []struct {
		err    error
		status int
	}{
		{ErrStoreUnavailable, http.StatusServiceUnavailable},
		{ErrProvider, http.StatusInternalServerError},
		{ErrHTTPClient, http.StatusInternalServerError},
		{ErrInsufficientFunds, http.StatusPaymentRequired},
		{ErrAlreadyOwned, http.StatusConflict},
		{ErrAlreadyCompleted, http.StatusConflict},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrPermissionDenied, http.StatusForbidden},
		{ErrNotFound, http.StatusNotFound},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrInvalidOperation, http.StatusConflict},
		{ErrValidation, http.StatusBadRequest},
		{ErrDatabase, http.StatusInternalServerError},
		{ErrSystem, http.StatusInternalServerError},
	}
)

const (
	ErrCodeHTTPClient        = "http_client_error"
	ErrCodeSystemError       = "system_error"
	ErrCodeNotFound          = "not_found"
	ErrCodeAlreadyExists     = "already_exists"
	ErrCodeValidation        = "validation_error"
	ErrCodeInvalidOperation  = "invalid_operation"
	ErrCodeUnauthorized      = "unauthorized"
	ErrCodePermissionDenied  = "permission_denied"
	ErrCodeInsufficientFunds = "insufficient_funds"
	ErrCodeAlreadyOwned      = "already_owned"
	ErrCodeAlreadyCompleted  = "already_completed"
	ErrCodeProvider          = "provider_error"
	ErrCodeStoreUnavailable  = "store_unavailable"
	ErrCodeDatabase          = "database_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

// New creates a new InternalError
func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is reports whether any error in err's chain matches the reference
func Is(err, reference error) bool {
	return errors.Is(err, reference)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsUnauthorized checks if an error is an unauthorized error
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsPermissionDenied checks if an error is a permission denied error
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsInsufficientFunds checks if a debit was rejected for lack of balance
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// IsAlreadyOwned checks if an ownership claim lost against an existing owner
func IsAlreadyOwned(err error) bool {
	return errors.Is(err, ErrAlreadyOwned)
}

// IsAlreadyCompleted checks if a launch was rejected because the job is terminal
func IsAlreadyCompleted(err error) bool {
	return errors.Is(err, ErrAlreadyCompleted)
}

// IsProvider checks if an error came from a generation provider
func IsProvider(err error) bool {
	return errors.Is(err, ErrProvider)
}

// IsStoreUnavailable checks if an error is transient and the operation may be retried
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsHTTPClient checks if an error is an http client error
func IsHTTPClient(err error) bool {
	return errors.Is(err, ErrHTTPClient)
}

func HTTPStatusFromErr(err error) int {
	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return sc.status
		}
	}
	return http.StatusInternalServerError
}
