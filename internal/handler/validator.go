package handler

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the validator instance
type Validator struct {
	validate *validator.Validate
}

var factionPattern = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

// GetValidator returns the shared validator. Field errors are keyed by JSON name so they
// match what the client sent.
var GetValidator = sync.OnceValue(func() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("faction", validateFaction)
	return &Validator{validate: v}
})

// ValidateStruct validates a struct using tags
func (v *Validator) ValidateStruct(s any) error {
	return v.validate.Struct(s)
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return strings.ToLower(f.Name)
	}
	return name
}

// FormatValidationError maps each failing field to a short user-facing message.
func FormatValidationError(err error) map[string]string {
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return map[string]string{"error": "Invalid request format"}
	}

	errs := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		errs[e.Field()] = describeFieldError(e)
	}
	return errs
}

func describeFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "faction":
		return "Faction must be 1-32 lowercase letters, digits, '-' or '_'"
	case "max":
		return fmt.Sprintf("Must be at most %s", e.Param())
	case "min", "gte":
		return fmt.Sprintf("Must be at least %s", e.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", e.Param())
	case "excludesall":
		return "Contains invalid characters"
	}
	return "Invalid value"
}

// validateFaction allows empty values; "required" covers presence.
func validateFaction(fl validator.FieldLevel) bool {
	faction := fl.Field().String()
	return faction == "" || factionPattern.MatchString(faction)
}
