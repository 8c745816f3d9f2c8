package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

func structValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New()
		validatorInst.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
		_ = validatorInst.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			_, err := ParseClock(fl.Field().String())
			return err == nil
		})
	})
	return validatorInst
}

// validate runs the struct tags and converts the first failure into a ValidationError.
func validate(value any) error {
	err := structValidator().Struct(value)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return &ValidationError{Field: "entity", Reason: err.Error(), Err: err}
	}

	fieldError := fieldErrors[0]
	field := fieldError.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	return &ValidationError{Field: field, Reason: reason(fieldError), Err: err}
}

func reason(fieldError validator.FieldError) string {
	switch fieldError.Tag() {
	case "required":
		return "must not be empty"
	case "email":
		return "must be a valid email address"
	case "clock":
		return fmt.Sprintf("must be a HH:MM time, got %q", fieldError.Value())
	case "oneof":
		return fmt.Sprintf("must be one of [%v], got %q", fieldError.Param(), fmt.Sprint(fieldError.Value()))
	case "gt":
		return fmt.Sprintf("must be greater than %v", fieldError.Param())
	case "gte", "min":
		return fmt.Sprintf("must be at least %v", fieldError.Param())
	case "lte", "max":
		return fmt.Sprintf("must be at most %v", fieldError.Param())
	default:
		return fmt.Sprintf("failed %q validation", fieldError.Tag())
	}
}
