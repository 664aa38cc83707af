package common

import (
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs struct tag validation and converts failures into an AppError
// with per-field details.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	fields, ok := err.(validator.ValidationErrors)
	if !ok {
		return NewAppError("VALIDATION_ERROR", "invalid payload", http.StatusBadRequest, err)
	}
	details := make(map[string]string, len(fields))
	for _, f := range fields {
		details[strings.ToLower(f.Field())] = f.Tag()
	}
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "invalid payload",
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}
