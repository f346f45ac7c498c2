// Package validator converts ozzo-validation errors into layered errors
package validator

import (
	"errors"
	"sort"

	"github.com/KOMKZ/go-yogan-settings/errcode"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validatable is anything with ozzo-style self validation
type Validatable interface {
	Validate() error
}

// Validate runs v.Validate. Field errors are converted into base with a "fields"
// data entry; any other error is returned unchanged.
func Validate(v Validatable, base *errcode.LayeredError) error {
	err := v.Validate()
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if errors.As(err, &errs) {
		return ConvertValidationError(errs, base)
	}
	return err
}

// ConvertValidationError converts field errors into base
func ConvertValidationError(errs validation.Errors, base *errcode.LayeredError) *errcode.LayeredError {
	fields := Fields(errs)
	keys := SortedKeys(fields)

	msg := base.Message()
	if len(keys) > 0 {
		msg += ": " + keys[0] + ": " + fields[keys[0]]
		if len(keys) > 1 {
			msg += " (and more)"
		}
	}
	return base.WithMsg(msg).WithData("fields", fields)
}

// Fields flattens nested validation.Errors into dotted keys
func Fields(errs validation.Errors) map[string]string {
	fields := make(map[string]string)
	flatten("", errs, fields)
	return fields
}

func flatten(prefix string, errs validation.Errors, out map[string]string) {
	for field, fieldErr := range errs {
		if fieldErr == nil {
			continue
		}
		key := field
		if prefix != "" {
			key = prefix + "." + field
		}

		var nested validation.Errors
		if errors.As(fieldErr, &nested) {
			flatten(key, nested, out)
			continue
		}
		out[key] = fieldErr.Error()
	}
}

// SortedKeys returns the field names in a stable order
func SortedKeys(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
