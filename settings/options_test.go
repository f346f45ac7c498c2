package settings

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-settings/errcode"
	"github.com/KOMKZ/go-yogan-settings/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		field string
	}{
		{"zero value", Options{}, ""},
		{"full", Options{Source: "a.json", EnvVar: "APP_SETTINGS", CmdLineParam: "config", RequestTimeout: time.Second}, ""},
		{"dashes in param", Options{CmdLineParam: "--settings"}, "CmdLineParam"},
		{"space in env var", Options{EnvVar: "APP SETTINGS"}, "EnvVar"},
		{"negative timeout", Options{RequestTimeout: -time.Second}, "RequestTimeout"},
		{"cluster without multi process", Options{Cluster: &fakeCluster{}}, "Cluster"},
		{"cluster with multi process", Options{Cluster: &fakeCluster{}, MultiProcess: true}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.opts, ErrInvalidOptions)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidOptions)

			var layered *errcode.LayeredError
			require.True(t, errors.As(err, &layered))
			fields := layered.Data()["fields"].(map[string]string)
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestOptions_WithDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	assert.Equal(t, DefaultCmdLineParam, opts.CmdLineParam)
	assert.Equal(t, DefaultRequestTimeout, opts.RequestTimeout)
	assert.Equal(t, os.Args, opts.Args)

	opts = Options{CmdLineParam: "cfg", RequestTimeout: time.Millisecond, Args: []string{}}.withDefaults()
	assert.Equal(t, "cfg", opts.CmdLineParam)
	assert.Equal(t, time.Millisecond, opts.RequestTimeout)
	assert.Empty(t, opts.Args)
}
