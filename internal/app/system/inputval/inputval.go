// Package inputval provides request input validation using
// waffle/pantry/validate plus the domain-specific checks that run before any
// network call: name rules, duplicate detection inputs, and size caps.
//
// Define an input struct with validate tags, populate it from the request,
// and call Validate to get user-friendly error messages.
package inputval

import (
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/waffle/pantry/validate"
)

// Result holds validation results with user-friendly messages.
type Result struct {
	Errors []FieldError
}

// FieldError represents a validation error for a single field.
type FieldError struct {
	Field   string
	Label   string
	Message string
}

// HasErrors returns true if there are any validation errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// First returns the first error message, or empty string if no errors.
func (r *Result) First() string {
	if len(r.Errors) > 0 {
		return r.Errors[0].Message
	}
	return ""
}

// All returns all error messages joined with "; ".
func (r *Result) All() string {
	if len(r.Errors) == 0 {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

var (
	customValidator *validate.Validator
	validatorOnce   sync.Once
)

// getValidator returns the singleton validator with custom rules.
func getValidator() *validate.Validator {
	validatorOnce.Do(func() {
		customValidator = validate.New(validate.WithStopOnFirstError())

		// entryname: a usable file or folder display name
		customValidator.RegisterRuleFunc("entryname", func(value any) bool {
			if s, ok := value.(string); ok {
				return IsValidEntryName(s)
			}
			return false
		}, "entryname")
	})
	return customValidator
}

// IsValidEntryName reports whether s works as a file or folder display name:
// non-blank after trimming and free of path separators.
func IsValidEntryName(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || len(trimmed) > 255 {
		return false
	}
	return !strings.ContainsAny(trimmed, "/\\")
}

// Validate validates a struct and returns a Result with user-friendly
// errors. The struct should have `validate` tags for rules and optional
// `label` tags for display names.
func Validate(s any) *Result {
	result := &Result{}

	v := getValidator()
	err := v.Struct(s)
	if err == nil {
		return result
	}

	labels := getFieldLabels(s)

	if errs, ok := err.(validate.Errors); ok {
		for _, e := range errs {
			label := labels[e.Field]
			if label == "" {
				label = e.Field
			}
			result.Errors = append(result.Errors, FieldError{
				Field:   e.Field,
				Label:   label,
				Message: formatMessage(label, e.Rule, e.Param),
			})
		}
	}
	return result
}

// getFieldLabels extracts the "label" tag from struct fields.
func getFieldLabels(s any) map[string]string {
	labels := make(map[string]string)

	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return labels
	}

	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if label := field.Tag.Get("label"); label != "" {
			labels[field.Name] = label
		}
	}
	return labels
}

// formatMessage builds a user-friendly message for a failed rule.
func formatMessage(label, rule, param string) string {
	switch rule {
	case "required":
		return label + " is required"
	case "max":
		return label + " must be at most " + param + " characters"
	case "min":
		return label + " must be at least " + param + " characters"
	case "oneof":
		return label + " must be one of: " + param
	case "entryname":
		return label + " must not be blank or contain path separators"
	default:
		return label + " is invalid"
	}
}
