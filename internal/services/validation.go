package services

import (
	"errors"

	"miniola/internal/validators"
)

func validateRequest(req interface{}) error {
	err := validators.ValidateStruct(req)
	if err == nil {
		return nil
	}

	var fieldErrors validators.ValidationErrors
	if errors.As(err, &fieldErrors) {
		return FieldValidationError(fieldErrors.Fields(), err)
	}
	return ValidationError(err.Error())
}
