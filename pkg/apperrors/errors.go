package apperrors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the application-wide error type. Domain names the component
// that produced the error (chat, notifications, presence, ...).
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Domain   string      `json:"domain"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details,omitempty"`
	Err      error       `json:"-"`
	HTTPCode int         `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s (%v)", e.Domain, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Domain, e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, domain, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Domain:   domain,
		Message:  message,
		HTTPCode: httpCode,
	}
}

func Wrap(err error, code ErrorCode, domain, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Domain:   domain,
		Message:  message,
		Err:      err,
		HTTPCode: httpCode,
	}
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Is reports whether err carries the given code. Used to distinguish
// expected no-ops (not found, unauthorized, quota) from real failures.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// AsAppError converts err to *AppError when possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// --- common constructors ---

func InternalError(err error) *AppError {
	return Wrap(err, CodeInternalError, "system", "Internal server error", http.StatusInternalServerError)
}

func DatabaseError(domain string, err error) *AppError {
	return Wrap(err, CodeDatabaseError, domain, "Database operation failed", http.StatusInternalServerError)
}

func NotFound(domain, message string) *AppError {
	return New(CodeNotFound, domain, message, http.StatusNotFound)
}

func ValidationError(domain string, details interface{}) *AppError {
	return New(CodeValidationFailed, domain, "Validation failed", http.StatusBadRequest).WithDetails(details)
}

func Unauthorized(domain, message string) *AppError {
	return New(CodeUnauthorized, domain, message, http.StatusUnauthorized)
}

func Forbidden(domain, message string) *AppError {
	return New(CodeForbidden, domain, message, http.StatusForbidden)
}

func QuotaExceeded(domain, message string) *AppError {
	return New(CodeQuotaExceeded, domain, message, http.StatusTooManyRequests)
}

func DeliveryFailed(domain string, err error) *AppError {
	return Wrap(err, CodeDeliveryFailed, domain, "Delivery attempt failed", http.StatusBadGateway)
}

func Conflict(domain, message string) *AppError {
	return New(CodeConflict, domain, message, http.StatusConflict)
}

func NotImplemented(domain, message string) *AppError {
	return New(CodeNotImplemented, domain, message, http.StatusNotImplemented)
}
