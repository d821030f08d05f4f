package apperrors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies application errors for the retry and error-hook paths.
type ErrorCode string

const (
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeAlreadyExists      ErrorCode = "ALREADY_EXISTS"
	ErrCodeUnsupportedContent ErrorCode = "UNSUPPORTED_CONTENT"
	ErrCodeDependency         ErrorCode = "DEPENDENCY_ERROR"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// AppError carries an error code alongside a message and an optional cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewInvalidInput creates a validation error. Validation failures are fatal
// for the message; they retry identically and end up in the error queue.
func NewInvalidInput(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// NewAlreadyExists creates a benign duplicate-content error.
func NewAlreadyExists(message string) *AppError {
	return &AppError{Code: ErrCodeAlreadyExists, Message: message}
}

// NewUnsupportedContent creates a benign classification error (unknown type
// or no URL in the submission).
func NewUnsupportedContent(message string) *AppError {
	return &AppError{Code: ErrCodeUnsupportedContent, Message: message}
}

// NewDependency creates a transient dependency error (model, crawl service,
// metadata or vector sink).
func NewDependency(message string, err error) *AppError {
	return &AppError{Code: ErrCodeDependency, Message: message, Err: err}
}

// NewInternal creates an internal error.
func NewInternal(message string, err error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message, Err: err}
}

func codeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsAlreadyExists reports whether err is an ALREADY_EXISTS error.
func IsAlreadyExists(err error) bool {
	return codeOf(err) == ErrCodeAlreadyExists
}

// IsUnsupportedContent reports whether err is an UNSUPPORTED_CONTENT error.
func IsUnsupportedContent(err error) bool {
	return codeOf(err) == ErrCodeUnsupportedContent
}

// IsInvalidInput reports whether err is an INVALID_INPUT error.
func IsInvalidInput(err error) bool {
	return codeOf(err) == ErrCodeInvalidInput
}
