// Package apperr defines the closed error taxonomy shared by every layer.
// Handlers convert any failure into one of these before it crosses the
// protocol boundary.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Code identifies an error kind.
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeNotFound     Code = "NOT_FOUND"
	CodeDatabase     Code = "DATABASE_ERROR"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED" // reserved, unused
)

// Error carries a taxonomy code, a human-readable message, and optional
// structured details (e.g. the per-tag violation list).
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Validation builds a VALIDATION_ERROR with a formatted message.
func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationDetails builds a VALIDATION_ERROR carrying structured details.
func ValidationDetails(message string, details any) *Error {
	return &Error{Code: CodeValidation, Message: message, Details: details}
}

// NotFound builds a NOT_FOUND error for a missing resource.
func NotFound(resource, id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s with id '%s' not found", resource, id)}
}

// Database builds a DATABASE_ERROR carrying the store's message.
func Database(message string) *Error {
	return &Error{Code: CodeDatabase, Message: message}
}

// Internal builds an INTERNAL_ERROR.
func Internal(message string) *Error {
	return &Error{Code: CodeInternal, Message: message}
}

// From extracts the taxonomy error from err, wrapping unknown failures as
// INTERNAL_ERROR so nothing raw leaks outward.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if err != nil {
		return Internal(err.Error())
	}
	return Internal("an unexpected error occurred")
}

// Format renders err as the pretty-printed JSON body used in failed tool
// results.
func Format(err error) string {
	data, marshalErr := json.MarshalIndent(From(err), "", "  ")
	if marshalErr != nil {
		return `{"code":"INTERNAL_ERROR","message":"failed to encode error"}`
	}
	return string(data)
}

// Is lets errors.Is match two taxonomy errors by code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// IsCode reports whether err is a taxonomy error with the given code.
func IsCode(err error, code Code) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
