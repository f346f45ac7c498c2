package settings

import (
	"context"
	"errors"
	"strings"

	"github.com/KOMKZ/go-yogan-settings/validator"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ExtendedValidator checks settings that already passed the schema.
// Its error is returned from Initialize unchanged.
type ExtendedValidator func(ctx context.Context, settings any) error

// RulesValidator builds an ExtendedValidator from ozzo-validation key rules
// applied to the settings object. Unlisted keys are allowed.
//
//	settings.RulesValidator(
//	    validation.Key("port", validation.Required, validation.Min(1024.0)),
//	    validation.Key("name", validation.Required, validation.Length(1, 64)),
//	)
//
// Numbers in settings are float64, so numeric thresholds must be floats too.
func RulesValidator(keys ...*validation.KeyRules) ExtendedValidator {
	rule := validation.Map(keys...).AllowExtraKeys()

	return func(ctx context.Context, settings any) error {
		m, ok := settings.(map[string]any)
		if !ok {
			return &ValidationError{Failures: []FailedConstraint{{
				Location: "rules",
				Message:  "settings must be an object",
			}}}
		}

		err := validation.ValidateWithContext(ctx, m, rule)
		if err == nil {
			return nil
		}
		var errs validation.Errors
		if !errors.As(err, &errs) {
			return err
		}

		fields := validator.Fields(errs)
		failures := make([]FailedConstraint, 0, len(fields))
		for _, key := range validator.SortedKeys(fields) {
			failures = append(failures, FailedConstraint{
				Location: "rules/" + key,
				Message:  fields[key],
				Instance: "/" + strings.ReplaceAll(key, ".", "/"),
			})
		}
		return &ValidationError{Failures: failures}
	}
}

func runExtendedValidator(ctx context.Context, fn ExtendedValidator, settings any) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, settings)
}
