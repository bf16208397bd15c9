package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test message: %s", "value")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_INPUT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeCache, cause, "redis get")

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{"matching code", New(ErrCodeInvalidModel, "test"), ErrCodeInvalidModel, true},
		{"different code", New(ErrCodeInvalidModel, "test"), ErrCodeNotFound, false},
		{"wrapped", fmt.Errorf("context: %w", New(ErrCodeNotFound, "x")), ErrCodeNotFound, true},
		{"plain error", errors.New("plain"), ErrCodeInternal, false},
		{"nil", nil, ErrCodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCodeAndUserMessage(t *testing.T) {
	err := fmt.Errorf("load: %w", New(ErrCodeFileNotFound, "model.aut not found"))
	if got := GetCode(err); got != ErrCodeFileNotFound {
		t.Errorf("GetCode() = %v", got)
	}
	if got := UserMessage(err); got != "model.aut not found" {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := UserMessage(errors.New("plain")); got != "plain" {
		t.Errorf("UserMessage(plain) = %q", got)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %q", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(ErrCodeSessionNotFound, "x"), http.StatusNotFound},
		{New(ErrCodeNotFound, "x"), http.StatusNotFound},
		{New(ErrCodeInvalidConfig, "x"), http.StatusBadRequest},
		{New(ErrCodeInvalidModel, "x"), http.StatusBadRequest},
		{New(ErrCodeUnsupported, "x"), http.StatusNotImplemented},
		{New(ErrCodeCache, "x"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCodeStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{"", http.StatusInternalServerError},
		{ErrCodeFileNotFound, http.StatusNotFound},
		{ErrCodeInvalidPath, http.StatusBadRequest},
		{ErrCodeTimeout, http.StatusGatewayTimeout},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.code.Status(); got != tt.want {
			t.Errorf("%q.Status() = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func ExampleWrap() {
	cause := fmt.Errorf("line 3: expected '('")
	err := Wrap(ErrCodeInvalidModel, cause, "parse %s", "abp.aut")
	fmt.Println(err)
	fmt.Println(UserMessage(err))
	// Output:
	// INVALID_MODEL: parse abp.aut: line 3: expected '('
	// parse abp.aut
}
