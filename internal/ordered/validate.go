package ordered

import (
	"errors"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate = newValidator()

	// customMessages holds the messages of tags added by RegisterValidation.
	customMessages = map[string]string{}
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name so clients can map errors to inputs.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// RegisterValidation adds a custom tag, e.g. the grade-name rule, with the
// message reported when it fails.  Call it from an init function before any
// store is used.
func RegisterValidation(tag, msg string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic("ordered: register validation " + tag + ": " + err.Error())
	}
	customMessages[tag] = msg
}

// Validate checks v's `validate` tags and returns the first failure as a
// *ValidationError.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &ValidationError{Field: fe.Field(), Message: message(fe)}
}

// ValidateColumns is Validate limited to the fields whose db column is in
// cols.  Failures on other fields are ignored, so a stored row that predates
// a rule can still take updates to its other columns.
func ValidateColumns(v any, cols []string) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	typ := reflect.Indirect(reflect.ValueOf(v)).Type()
	for _, fe := range verrs {
		sf, ok := typ.FieldByName(fe.StructField())
		if !ok {
			continue
		}
		col, _, _ := strings.Cut(sf.Tag.Get("db"), ",")
		if slices.Contains(cols, col) {
			return &ValidationError{Field: fe.Field(), Message: message(fe)}
		}
	}
	return nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "email":
		return "must be an email address"
	case "datetime":
		return "must be a date formatted " + fe.Param()
	case "url|startswith=/":
		return "must be an absolute URL or a site path"
	}
	if msg, ok := customMessages[fe.Tag()]; ok {
		return msg
	}
	return "failed " + fe.Tag() + " check"
}
