package service

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/readquestapp/readquest-server/internal/errors"
)

// validate is shared by every service. Field names in validation errors
// come from the JSON tag so API clients see the names they sent.
var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

func formatValidationError(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return domainerrors.Validation("invalid request")
	}

	e := errs[0]
	switch e.Tag() {
	case "required":
		return domainerrors.Validationf("%s is required", e.Field())
	case "email":
		return domainerrors.Validationf("%s must be a valid email address", e.Field())
	case "min":
		return domainerrors.Validationf("%s must be at least %s", e.Field(), e.Param())
	case "max":
		return domainerrors.Validationf("%s must be at most %s", e.Field(), e.Param())
	case "gt":
		return domainerrors.Validationf("%s must be greater than %s", e.Field(), e.Param())
	case "gte":
		return domainerrors.Validationf("%s must be at least %s", e.Field(), e.Param())
	case "oneof":
		return domainerrors.Validationf("%s must be one of: %s", e.Field(), e.Param())
	default:
		return domainerrors.Validationf("%s is invalid", e.Field())
	}
}
