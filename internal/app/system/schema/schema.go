// Package schema is the validation boundary between the remote store and the
// rest of the application.
//
// Records in the datastore are loosely-typed JSON blobs; nothing guarantees
// their shape at rest. Every entity decoded from the store passes through
// Check immediately after the read. Point reads reject malformed records with
// an error; enumerations skip them with a warning (quarantine) so one corrupt
// record cannot take down a whole listing.
package schema

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Check validates an entity decoded from the store using its struct tags.
func Check(v any) error {
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into one readable message.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("malformed record: %s failed '%s' (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return fmt.Errorf("malformed record: %w", err)
}
