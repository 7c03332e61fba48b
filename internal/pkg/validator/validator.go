package validator

import (
	"github.com/go-playground/validator/v10"

	"teesheet/internal/pkg/clock"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := clock.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("civildate", func(fl validator.FieldLevel) bool {
		_, err := clock.ParseDate(fl.Field().String())
		return err == nil
	})
}

// Validate struct fields
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errors["_"] = err.Error()
		return errors
	}
	for _, err := range verrs {
		errors[err.Field()] = err.Tag()
	}
	return errors
}
