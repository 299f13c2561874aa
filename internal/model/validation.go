package model

import (
	"github.com/go-playground/validator/v10"
)

// RegisterValidations adds the domain's custom binding rules to gin's
// validator engine.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("request_status", func(fl validator.FieldLevel) bool {
		return ValidRequestStatus(RequestStatus(fl.Field().String()))
	})
}
