package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/apperrors"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/logger"
)

// RequestValidator checks request structs against their validate tags
type RequestValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewRequestValidator(log *logger.Logger) *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	log.Debug("Request validator initialized")

	return &RequestValidator{
		validate: v,
		logger:   log,
	}
}

func (v *RequestValidator) Validate(req any) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *RequestValidator) translateValidationErrors(errs validator.ValidationErrors) apperrors.ValidationErrors {
	var validationErrors apperrors.ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = "is required"
		case "min":
			message = fmt.Sprintf("must be at least %s", err.Param())
		case "max":
			message = fmt.Sprintf("must be at most %s", err.Param())
		case "gt":
			message = fmt.Sprintf("must be greater than %s", err.Param())
		case "lte":
			message = fmt.Sprintf("must be at most %s", err.Param())
		case "oneof":
			message = fmt.Sprintf("must be one of: %s", err.Param())
		case "datetime":
			message = fmt.Sprintf("must match the layout %s", err.Param())
		}

		validationErrors = append(validationErrors, apperrors.ValidationError{
			Field: err.Field(),
			Msg:   message,
		})
	}

	return validationErrors
}
