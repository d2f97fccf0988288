package dto

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/trombinoscope-api/internal/models"
)

// NewValidator returns a validator with the roster-specific tags registered.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	RegisterValidations(validate)
	return validate
}

// RegisterValidations adds project_status, step_status and photo_ref, and
// reports fields by their json names.
func RegisterValidations(validate *validator.Validate) {
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("project_status", func(fl validator.FieldLevel) bool {
		return models.ProjectStatus(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("step_status", func(fl validator.FieldLevel) bool {
		value := models.StepStatus(fl.Field().String())
		for _, step := range models.StepStatuses {
			if value == step {
				return true
			}
		}
		return false
	})
	_ = validate.RegisterValidation("photo_ref", func(fl validator.FieldLevel) bool {
		value := strings.TrimSpace(fl.Field().String())
		return strings.HasPrefix(value, "data:image/") ||
			strings.HasPrefix(value, "https://") ||
			strings.HasPrefix(value, "http://")
	})
}
