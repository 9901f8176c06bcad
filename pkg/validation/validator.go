package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance
var validate *validator.Validate

// ErrInvalid is wrapped by every error returned from this package.
var ErrInvalid = errors.New("invalid value")

func init() {
	validate = validator.New()
	// "finite" rejects NaN and ±Inf on float kinds, including unit types.
	validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		switch f.Kind() {
		case reflect.Float32, reflect.Float64:
			v := f.Float()
			return !math.IsNaN(v) && !math.IsInf(v, 0)
		}
		return true
	})
	// "probability" accepts finite values in [0, 1].
	validate.RegisterValidation("probability", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		switch f.Kind() {
		case reflect.Float32, reflect.Float64:
			v := f.Float()
			return v >= 0 && v <= 1
		}
		return false
	})
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// Struct validates a struct using its `validate` tags.
func Struct(v any) error {
	if v == nil {
		return fmt.Errorf("nil struct: %w", ErrInvalid)
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// Var validates a single value against a tag expression such as
// "finite,gt=0".
func Var(v any, tag string) error {
	if tag == "" {
		return nil
	}
	if err := validate.Var(v, tag); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("%v: %w", err, ErrInvalid)
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Namespace()
		if field == "" {
			field = "value"
		}
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required: %w", field, ErrInvalid)
		case "finite":
			return fmt.Errorf("%s: must be finite, got %v: %w", field, e.Value(), ErrInvalid)
		case "probability":
			return fmt.Errorf("%s: must be within [0, 1], got %v: %w", field, e.Value(), ErrInvalid)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s, got %v: %w", field, param, e.Value(), ErrInvalid)
		case "gte", "min":
			return fmt.Errorf("%s: must be at least %s, got %v: %w", field, param, e.Value(), ErrInvalid)
		case "lt":
			return fmt.Errorf("%s: must be less than %s, got %v: %w", field, param, e.Value(), ErrInvalid)
		case "lte", "max":
			return fmt.Errorf("%s: must not exceed %s, got %v: %w", field, param, e.Value(), ErrInvalid)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s], got %v: %w", field, param, e.Value(), ErrInvalid)
		case "dive":
			return fmt.Errorf("%s: invalid element: %w", field, ErrInvalid)
		default:
			return fmt.Errorf("%s: validation failed (%s): %w", field, e.Tag(), ErrInvalid)
		}
	}

	return fmt.Errorf("%v: %w", err, ErrInvalid)
}
