package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// CodeRegex is the canonical SHiFT code shape: five groups of five
// uppercase alphanumerics joined by hyphens.
var CodeRegex = regexp.MustCompile(`^[A-Z0-9]{5}(?:-[A-Z0-9]{5}){4}$`)

// Validator is a wrapper around the validator library.
type Validator struct {
	validate *validator.Validate
}

// New creates a new Validator instance with the "shiftcode" tag registered.
func New() *Validator {
	v := validator.New()
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("shiftcode", func(fl validator.FieldLevel) bool {
		return CodeRegex.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// ValidateStruct validates a struct based on its tags.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
