package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

// NewDuplicateEmail signals a registration attempt with an email already taken.
func NewDuplicateEmail() error {
	return NewDomainError("DUPLICATE_EMAIL", "email already exists", http.StatusBadRequest, nil)
}

// NewLoginFailure covers both unknown email and bad password.
func NewLoginFailure() error {
	return NewDomainError("LOGIN_FAILURE", "Login failure. check email or password", http.StatusBadRequest, nil)
}

func NewUserNotFound(id int64) error {
	return NewDomainError("USER_NOT_FOUND", fmt.Sprintf("user not found by id: %d", id), http.StatusBadRequest, nil)
}

// NewInvalidToken wraps token parse/signature failures.
func NewInvalidToken(err error) error {
	return &DomainError{
		Code:       "INVALID_TOKEN",
		Message:    "invalid token",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewUnauthorized() error {
	return NewDomainError("UNAUTHORIZED", "Unauthorized", http.StatusUnauthorized, nil)
}

func NewForbidden() error {
	return NewDomainError("FORBIDDEN", "Forbidden", http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError. Unknown errors map to a
// generic 500 so no internal detail leaks to clients.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := "INTERNAL_ERROR"
		switch fiberErr.Code {
		case http.StatusBadRequest:
			code = "BAD_REQUEST"
		case http.StatusUnauthorized:
			code = "UNAUTHORIZED"
		case http.StatusForbidden:
			code = "FORBIDDEN"
		case http.StatusNotFound:
			code = "NOT_FOUND"
		}
		return NewDomainError(code, fiberErr.Message, fiberErr.Code, nil)
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err carries the given domain error code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

func MapError(err error) error {
	return ToDomainError(err)
}
