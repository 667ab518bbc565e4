package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/courseworks/registration-service/internal/errors"
	"github.com/courseworks/registration-service/internal/models"
)

// Validator wraps a validator.Validate instance with the custom rules used
// across services and handlers.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	RegisterCustomValidators(v)
	return &Validator{validate: v}
}

// Struct validates a tagged struct, converting failures to the shared
// ValidationErrors type.
func (v *Validator) Struct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		if converted := apperrors.ToValidationErrors(err); len(converted) > 0 {
			return converted
		}
		return err
	}
	return nil
}

// Custom validation functions

func ValidateUserRole(fl validator.FieldLevel) bool {
	return models.UserRole(fl.Field().String()).Valid()
}

func ValidateAvailabilityStatus(fl validator.FieldLevel) bool {
	_, err := models.ParseAvailabilityStatus(int(fl.Field().Int()))
	return err == nil
}

// RegisterCustomValidators registers all custom validators
func RegisterCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("user_role", ValidateUserRole)
	validate.RegisterValidation("availability_status", ValidateAvailabilityStatus)

	// Register custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
