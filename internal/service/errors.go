package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrUserNotProvisioned = errors.New("user is not registered")
	ErrUnavailable        = errors.New("identity provider unavailable")
	ErrForbidden          = errors.New("access denied")
	ErrRoomNotFound       = errors.New("study room not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrMediaNotFound      = errors.New("media not found")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrPayloadTooLarge    = errors.New("payload too large")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func conflictError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// validateStruct runs struct tag validation and reports the first failing
// field as an ErrValidation.
func validateStruct(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return validationError("%v", err)
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return validationError("%s is required", fe.Field())
	case "email":
		return validationError("%s must be a valid email address", fe.Field())
	case "max":
		return validationError("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min", "gte", "lte":
		return validationError("%s is out of range", fe.Field())
	case "oneof":
		return validationError("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return validationError("%s is invalid", fe.Field())
	}
}
