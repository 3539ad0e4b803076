package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mindfulpath/internal/apperr"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
}

// validateStruct 校验请求参数，并把 validator 的错误转换为字段级问题。
func validateStruct(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return apperr.Internal(err)
	}
	problems := make([]apperr.FieldProblem, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		problems = append(problems, apperr.FieldProblem{Field: fe.Field(), Reason: fieldReason(fe)})
	}
	return apperr.Validation("validation failed", problems...)
}

// validateEmail checks a single address, ignoring surrounding whitespace.
func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperr.Field("email", "is required")
	}
	if err := validate.Var(email, "email"); err != nil {
		return apperr.Field("email", "must be a valid email address")
	}
	return nil
}

func fieldReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "numeric":
		return "must contain only digits"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
