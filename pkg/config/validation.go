package config

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/XiaoConstantine/ace-go/pkg/ace"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// ValidationError describes a single invalid config field.
type ValidationError struct {
	Field   string
	Tag     string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("field '%s': %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid field so a user can fix the
// whole file in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	messages := make([]string, 0, len(e))
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

var (
	validatorOnce   sync.Once
	structValidator *validator.Validate
)

// getValidator returns the shared validator. Field names are taken from
// the yaml tags so reported paths match what the user wrote.
func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		structValidator = validator.New()
		structValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return structValidator
}

// Validate checks every field against its constraints plus the rules the
// struct tags cannot express. The returned error wraps a ValidationErrors
// listing each offending field.
func (c *Config) Validate() error {
	verrs := ValidationErrors{}

	if err := getValidator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !stderrors.As(err, &fieldErrs) {
			return errors.Wrap(err, errors.ValidationFailed, "invalid configuration")
		}
		for _, fe := range fieldErrs {
			verrs = append(verrs, ValidationError{
				Field:   strings.TrimPrefix(fe.Namespace(), "Config."),
				Tag:     fe.Tag(),
				Value:   fe.Value(),
				Message: validationMessage(fe),
			})
		}
	}

	verrs = append(verrs, c.crossFieldErrors()...)

	if len(verrs) > 0 {
		return errors.Wrap(verrs, errors.ValidationFailed, "invalid configuration")
	}
	return nil
}

// crossFieldErrors covers constraints that span fields or live outside
// the validator's tag vocabulary.
func (c *Config) crossFieldErrors() ValidationErrors {
	var verrs ValidationErrors

	if _, err := ace.ParseRefineMode(c.Playbook.RefineMode); err != nil {
		verrs = append(verrs, ValidationError{
			Field:   "playbook.refine_mode",
			Tag:     "oneof",
			Value:   c.Playbook.RefineMode,
			Message: "must be one of: eager lazy",
		})
	}

	return verrs
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "value is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed '%s' validation", fe.Tag())
	}
}
