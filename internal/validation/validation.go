// Package validation composes per-field rules into an entity pipeline that
// reports every failed rule instead of stopping at the first one.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// Rule checks a single value and returns a message when it fails.
type Rule func(value string) (message string, ok bool)

// Field binds a value to the rules it must satisfy.
type Field struct {
	Name  string
	Value string
	Rules []Rule
}

// Required fails on empty or whitespace-only values.
func Required(message string) Rule {
	return func(value string) (string, bool) {
		if strings.TrimSpace(value) == "" {
			return message, false
		}
		return "", true
	}
}

// Matches fails when a non-empty value does not match pattern.
// Empty values are left to Required.
func Matches(pattern *regexp.Regexp, message string) Rule {
	return func(value string) (string, bool) {
		if value == "" || pattern.MatchString(value) {
			return "", true
		}
		return message, false
	}
}

// MinLength fails when a non-empty value has fewer than n characters.
func MinLength(n int, message string) Rule {
	return func(value string) (string, bool) {
		if value == "" || utf8.RuneCountInString(value) >= n {
			return "", true
		}
		return message, false
	}
}

// MaxBytes fails when a value is longer than n bytes.
func MaxBytes(n int, message string) Rule {
	return func(value string) (string, bool) {
		if len(value) <= n {
			return "", true
		}
		return message, false
	}
}

// OneOf fails when a non-empty value is not in allowed.
func OneOf(message string, allowed ...string) Rule {
	return func(value string) (string, bool) {
		if value == "" {
			return "", true
		}
		for _, candidate := range allowed {
			if value == candidate {
				return "", true
			}
		}
		return message, false
	}
}

// Check runs every rule of every field and collects the failures.
func Check(fields ...Field) []apperrors.FieldFailure {
	var failures []apperrors.FieldFailure
	for _, field := range fields {
		for _, rule := range field.Rules {
			if message, ok := rule(field.Value); !ok {
				failures = append(failures, apperrors.FieldFailure{Field: field.Name, Message: message})
			}
		}
	}
	return failures
}

// Validate returns a ValidationError listing all failures, or nil.
func Validate(fields ...Field) error {
	if failures := Check(fields...); len(failures) > 0 {
		return apperrors.NewFieldValidationError(failures)
	}
	return nil
}
