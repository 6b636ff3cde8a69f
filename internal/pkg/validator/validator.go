package validator

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground validator
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// New creates a new validator instance
func New() *Validator {
	v := validator.New()

	// Report event field names ("instance-id") instead of Go names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validate: v,
	}
}

// Validate validates a struct
func (v *Validator) Validate(i interface{}) []ValidationError {
	var validationErrors []ValidationError

	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationError{{Tag: "invalid", Message: err.Error()}}
	}

	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Value:   fmt.Sprintf("%v", fe.Value()),
			Message: msgForTag(fe),
		})
	}

	return validationErrors
}

// Summary joins the messages of errs into a single line.
func Summary(errs []ValidationError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

func msgForTag(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "startswith":
		return fmt.Sprintf("%s must start with %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation for tag: %s", field, fe.Tag())
	}
}

var (
	globalValidator *Validator
	globalOnce      sync.Once
)

// Validate validates a struct using the package-level validator
func Validate(i interface{}) []ValidationError {
	globalOnce.Do(func() { globalValidator = New() })
	return globalValidator.Validate(i)
}
