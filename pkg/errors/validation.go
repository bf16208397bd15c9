package errors

import (
	"math"
	"strings"
	"unicode"
)

// ValidateFilePath validates a model or layout file path supplied by a user.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidateFilePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateNonNegative checks that a named setting is a finite number >= 0.
func ValidateNonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidConfig, "%s must be finite, got %g", name, v)
	}
	if v < 0 {
		return New(ErrCodeInvalidConfig, "%s must be >= 0, got %g", name, v)
	}
	return nil
}

// ValidatePositive checks that a named setting is a finite number > 0.
func ValidatePositive(name string, v float64) error {
	if err := ValidateNonNegative(name, v); err != nil {
		return err
	}
	if v == 0 {
		return New(ErrCodeInvalidConfig, "%s must be > 0", name)
	}
	return nil
}
