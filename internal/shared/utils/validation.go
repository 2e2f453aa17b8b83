package utils

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Size limits (in bytes)
const (
	MaxSourceSize  = 512 * 1024 // editor source text
	MaxMessageSize = 1024 * 1024
	MaxValueSize   = 16 * 1024 // event payload value
)

// TargetPattern matches sandbox node identifiers
var TargetPattern = regexp.MustCompile(`^[0-9]{1,9}$`)

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// ValidateSource checks editor source text
func ValidateSource(source string) error {
	if len(source) > MaxSourceSize {
		return &ValidationError{
			Field:   "text",
			Message: fmt.Sprintf("exceeds maximum size of %d bytes", MaxSourceSize),
		}
	}
	if !utf8.ValidString(source) {
		return &ValidationError{Field: "text", Message: "must be valid UTF-8"}
	}
	return nil
}

// ValidateTarget checks an event target node identifier
func ValidateTarget(target string) error {
	if !TargetPattern.MatchString(target) {
		return &ValidationError{Field: "target", Message: "must be a node identifier"}
	}
	return nil
}

// ValidateValue checks an event payload value
func ValidateValue(value string) error {
	if len(value) > MaxValueSize {
		return &ValidationError{
			Field:   "value",
			Message: fmt.Sprintf("exceeds maximum size of %d bytes", MaxValueSize),
		}
	}
	return nil
}
