package validator

import (
	"errors"
	"testing"

	"github.com/KOMKZ/go-yogan-settings/errcode"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errInvalid = errcode.New(99, 1, "test", "error.test.invalid", "invalid input")

type mockValidatable struct {
	err error
}

func (m mockValidatable) Validate() error {
	return m.err
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(mockValidatable{}, errInvalid))
}

func TestValidate_FieldErrors(t *testing.T) {
	err := Validate(mockValidatable{err: validation.Errors{
		"timeout": errors.New("must be no less than 0"),
		"param":   errors.New("must be in a valid format"),
	}}, errInvalid)
	require.Error(t, err)
	assert.ErrorIs(t, err, errInvalid)

	var layered *errcode.LayeredError
	require.True(t, errors.As(err, &layered))
	assert.Equal(t, "invalid input: param: must be in a valid format (and more)", layered.Message())

	fields, ok := layered.Data()["fields"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be no less than 0", fields["timeout"])
	assert.Equal(t, "must be in a valid format", fields["param"])
}

func TestValidate_OtherError(t *testing.T) {
	custom := errors.New("boom")
	assert.Same(t, custom, Validate(mockValidatable{err: custom}, errInvalid))
}

func TestFields_Nested(t *testing.T) {
	fields := Fields(validation.Errors{
		"server": validation.Errors{
			"port": errors.New("cannot be blank"),
		},
		"name": errors.New("too short"),
		"skip": nil,
	})

	assert.Equal(t, map[string]string{
		"server.port": "cannot be blank",
		"name":        "too short",
	}, fields)
	assert.Equal(t, []string{"name", "server.port"}, SortedKeys(fields))
}

func TestConvertValidationError_SingleField(t *testing.T) {
	err := ConvertValidationError(validation.Errors{"port": errors.New("is required")}, errInvalid)
	assert.Equal(t, "invalid input: port: is required", err.Error())
	assert.Equal(t, errInvalid.Code(), err.Code())
}
