package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the validator instance used for request bodies and path params.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

func (v *Validator) ValidateStruct(s any) error {
	return v.validate.Struct(s)
}

// FormatValidationError turns validator errors into field -> message pairs
// without leaking Go struct names.
func FormatValidationError(err error) map[string]string {
	if err == nil {
		return nil
	}
	errs := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errs["error"] = "invalid request format"
		return errs
	}
	for _, e := range validationErrors {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			errs[field] = "this field is required"
		case "min":
			errs[field] = fmt.Sprintf("must be at least %s", e.Param())
		case "max":
			errs[field] = fmt.Sprintf("must be at most %s", e.Param())
		case "oneof":
			errs[field] = fmt.Sprintf("must be one of: %s", e.Param())
		case "alphanum":
			errs[field] = "must be alphanumeric"
		default:
			errs[field] = "invalid value"
		}
	}
	return errs
}
