package shared

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a field path to its first complaint.
type FieldErrors map[string]string

// Add records msg for field unless the field already has a complaint.
func (fe FieldErrors) Add(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

// Merge copies other into fe, keeping existing complaints.
func (fe FieldErrors) Merge(other FieldErrors) {
	for k, v := range other {
		fe.Add(k, v)
	}
}

// Only keeps the complaints about the named fields, including their nested
// paths such as "items[0].name" for "items".
func (fe FieldErrors) Only(fields ...string) FieldErrors {
	out := FieldErrors{}
	for key, msg := range fe {
		for _, f := range fields {
			if key == f || strings.HasPrefix(key, f+"[") || strings.HasPrefix(key, f+".") {
				out[key] = msg
				break
			}
		}
	}
	return out
}

// Err returns nil when fe is empty, otherwise a *ValidationError.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	fields := make(map[string][]string, len(fe))
	names := make([]string, 0, len(fe))
	for k, v := range fe {
		fields[k] = []string{v}
		names = append(names, k)
	}
	sort.Strings(names)
	return &ValidationError{
		Message: fmt.Sprintf("%d field(s) need attention: %s", len(fe), strings.Join(names, ", ")),
		Fields:  fields,
	}
}

// Validator wraps go-playground/validator and reports every violation at once
// keyed by JSON field name.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a Validator using JSON tag names in field paths.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Struct validates s and returns the collected field errors, empty when s is
// valid.
func (val *Validator) Struct(s any) FieldErrors {
	out := FieldErrors{}
	err := val.v.Struct(s)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out.Add("general", err.Error())
		return out
	}
	for _, fe := range verrs {
		out.Add(fieldPath(fe), message(fe))
	}
	return out
}

// fieldPath drops the root struct name: "Form.items[0].quantity" becomes
// "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte", "min":
		if fe.Kind() == reflect.String {
			return "must have at least " + fe.Param() + " characters"
		}
		if fe.Kind() == reflect.Slice {
			return "must have at least " + fe.Param() + " entries"
		}
		return "must be at least " + fe.Param()
	case "lte", "max":
		if fe.Kind() == reflect.String {
			return "must have at most " + fe.Param() + " characters"
		}
		if fe.Kind() == reflect.Slice {
			return "must have at most " + fe.Param() + " entries"
		}
		return "must be at most " + fe.Param()
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "numeric":
		return "must be a number"
	case "datetime":
		return "must be a date in the format " + fe.Param()
	case "alphanum":
		return "must contain only letters and digits"
	default:
		return "is invalid"
	}
}
