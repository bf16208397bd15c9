// Package errors defines the coded errors ltsgraph reports to users.
//
// Core numerics never fail; these errors come from the edges of the
// system: model files, configuration, the layout cache and the HTTP API.
// Each carries a [Code] that the CLI prints and the server turns into a
// status via [HTTPStatus]:
//
//   - INVALID_*    rejected input, model, path or configuration (400)
//   - *NOT_FOUND   missing file, document or point (404)
//   - UNSUPPORTED  a backend or format that is not available (501)
//   - TIMEOUT      a deadline ran out (504)
//   - anything else, and uncoded errors (500)
//
// Wrap keeps the cause reachable for the standard errors.Is and errors.As:
//
//	m, err := io.ReadAUT(r)
//	if err != nil {
//	    return errors.Wrap(errors.ErrCodeInvalidModel, err, "parse %s", path)
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code is a machine-readable error class.
type Code string

const (
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidModel  Code = "INVALID_MODEL"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"
	ErrCodeSessionNotFound Code = "SESSION_NOT_FOUND"

	ErrCodeCache       Code = "CACHE_ERROR"
	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Status returns the HTTP status for errors of class c.
func (c Code) Status() int {
	switch {
	case c == "":
		return http.StatusInternalServerError
	case strings.HasSuffix(string(c), "NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasPrefix(string(c), "INVALID_"):
		return http.StatusBadRequest
	case c == ErrCodeUnsupported:
		return http.StatusNotImplemented
	case c == ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error formats as "CODE: message" or "CODE: message: cause".
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an error of class code without a cause.
func New(code Code, format string, args ...any) *Error {
	return Wrap(code, nil, format, args...)
}

// Wrap returns an error of class code caused by cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// coded finds the outermost *Error in err's chain.
func coded(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Is reports whether the outermost *Error in err's chain has class code.
func Is(err error, code Code) bool {
	e, ok := coded(err)
	return ok && e.Code == code
}

// GetCode returns the class of the outermost *Error in err's chain, or ""
// if there is none.
func GetCode(err error) Code {
	if e, ok := coded(err); ok {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of the outermost *Error without its
// code and cause, or err's text for uncoded errors.
func UserMessage(err error) string {
	if e, ok := coded(err); ok {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps err to the status the API responds with.
func HTTPStatus(err error) int { return GetCode(err).Status() }
