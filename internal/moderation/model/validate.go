package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the struct tags on a Report, ModerationAction or Appeal and
// returns an *ErrValidation naming the first failing field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ErrValidation{Msg: err.Error()}
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return &ErrValidation{Msg: field + " is required"}
	case "max":
		return &ErrValidation{Msg: fmt.Sprintf("%s must be at most %s characters", field, fe.Param())}
	default:
		return &ErrValidation{Msg: fmt.Sprintf("%s is invalid", field)}
	}
}
