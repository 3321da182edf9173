package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"artgram/internal/model"
)

var (
	validate *validator.Validate

	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
)

func init() {
	validate = validator.New()

	// Report JSON field names instead of Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// Letters, digits and @/./+/-/_ only.
	_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
}

// validateStruct runs the struct's validate tags and reports the first failure
// as a *model.ValidationError.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate request: %w", err)
	}

	fe := fieldErrs[0]
	return &model.ValidationError{Field: fe.Field(), Message: validationMessage(fe)}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "username":
		return fmt.Sprintf("%s may contain only letters, digits and @/./+/-/_", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// trimPtr trims an optional field in place.
func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
