package settings

import (
	"fmt"
	"strings"

	"github.com/KOMKZ/go-yogan-settings/errcode"
)

const (
	moduleCode = 21
	moduleName = "settings"
)

func newError(businessCode int, key, msg string) *errcode.LayeredError {
	return errcode.Register(errcode.New(moduleCode, businessCode, moduleName, "error.settings."+key, msg))
}

var (
	// ErrInvalidOptions the Options value failed validation
	ErrInvalidOptions = newError(1, "invalid_options", "invalid settings options")
	// ErrSourceNotConfigured no explicit source, env var or command line flag yielded a source
	ErrSourceNotConfigured = newError(2, "source_not_configured", "settings source not configured")
	// ErrMissingCmdLineValue the command line flag is the last argument
	ErrMissingCmdLineValue = newError(3, "missing_cmdline_value", "missing value for settings command line parameter")
	// ErrLoad reading, executing or parsing the settings document failed
	ErrLoad = newError(4, "load", "unable to load configuration")
	// ErrSchemaLoad the schema file could not be read or parsed
	ErrSchemaLoad = newError(5, "schema_load", "unable to load schema")
	// ErrInvalidSchemaSpec Options.Schema is neither a path nor a schema object
	ErrInvalidSchemaSpec = newError(6, "invalid_schema_spec", "invalid schema specification")
	// ErrSchemaCompile the schema document is not a valid JSON Schema
	ErrSchemaCompile = newError(7, "schema_compile", "unable to compile schema")
	// ErrValidation settings violate the schema; see ValidationError
	ErrValidation = newError(8, "validation", "settings validation failed")
	// ErrSettingsRequestTimeout a worker got no reply from the primary in time
	ErrSettingsRequestTimeout = newError(9, "request_timeout", "timed out waiting for settings from primary")
	// ErrInitializeInProgress Initialize was called while another call on the same manager runs
	ErrInitializeInProgress = newError(10, "initialize_in_progress", "settings initialization already in progress")
	// ErrTransport the primary/worker channel failed
	ErrTransport = newError(11, "transport", "settings transport failure")
	// ErrNotInitialized settings were read before a successful Initialize
	ErrNotInitialized = newError(12, "not_initialized", "settings not initialized")
)

// FailedConstraint is one violated rule
type FailedConstraint struct {
	// Location is the schema path of the rule, e.g. "#/properties/port/type"
	Location string `json:"location"`
	// Message is empty when the validator gives no explanation
	Message string `json:"message"`
	// Instance is the JSON pointer of the offending value ("" for the root)
	Instance string `json:"instance"`
}

func (f FailedConstraint) String() string {
	if f.Message == "" {
		return f.Location
	}
	return f.Location + ": " + f.Message
}

// ValidationError carries every constraint the settings violate.
// errors.Is(err, ErrValidation) holds for it.
type ValidationError struct {
	Failures []FailedConstraint
}

func (e *ValidationError) Error() string {
	if len(e.Failures) == 0 {
		return ErrValidation.Message()
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Message(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
