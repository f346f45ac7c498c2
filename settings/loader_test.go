package settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/KOMKZ/go-yogan-settings/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDocument_RelaxedJSON(t *testing.T) {
	value, location, err := loadDocument(context.Background(), "testdata/settings_relaxed.json", Options{})
	require.NoError(t, err)

	abs, _ := filepath.Abs("testdata/settings_relaxed.json")
	assert.Equal(t, abs, location)
	assert.Equal(t, map[string]any{
		"port": float64(8080),
		"name": "demo",
		"tags": []any{"a", "b"},
	}, value)
}

func TestLoadDocument_Failures(t *testing.T) {
	for _, source := range []string{"testdata/missing.json", "testdata/settings_broken.json", "testdata"} {
		_, _, err := loadDocument(context.Background(), source, Options{})
		require.Error(t, err, source)
		assert.ErrorIs(t, err, ErrLoad)
		assert.Contains(t, err.Error(), "unable to load configuration ["+source+"]")
	}
}

func TestLoadDocument_Executable(t *testing.T) {
	dir := t.TempDir()
	script := testutil.WriteExecutable(t, dir, "settings.sh", "#!/bin/sh\necho '{\"port\": 9090, // generated\n}'\n")

	value, _, err := loadDocument(context.Background(), script, Options{AllowExecutableSource: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"port": float64(9090)}, value)
}

func TestLoadDocument_ExecutableNotAllowed(t *testing.T) {
	dir := t.TempDir()
	script := testutil.WriteExecutable(t, dir, "settings.sh", "#!/bin/sh\necho '{}'\n")

	// without the opt-in the script is read as text, which is not JSON
	_, _, err := loadDocument(context.Background(), script, Options{})
	assert.ErrorIs(t, err, ErrLoad)
}

func TestLoadDocument_ExecutableFails(t *testing.T) {
	dir := t.TempDir()
	script := testutil.WriteExecutable(t, dir, "settings.sh", "#!/bin/sh\necho 'vault sealed' >&2\nexit 3\n")

	_, _, err := loadDocument(context.Background(), script, Options{AllowExecutableSource: true})
	require.ErrorIs(t, err, ErrLoad)
	assert.Contains(t, err.Error(), "vault sealed")
}

func TestLoadDocument_CustomLoader(t *testing.T) {
	t.Run("raw text", func(t *testing.T) {
		loader := func(_ context.Context, source string) (Document, error) {
			assert.Equal(t, "vault://app", source)
			return RawText([]byte(`{"port": 1, /* c */}`)), nil
		}
		value, location, err := loadDocument(context.Background(), "vault://app", Options{Loader: loader})
		require.NoError(t, err)
		assert.Equal(t, "vault://app", location)
		assert.Equal(t, map[string]any{"port": float64(1)}, value)
	})

	t.Run("structured", func(t *testing.T) {
		type upstream struct {
			Host string `json:"host"`
			Port int    `json:"port"`
		}
		loader := func(context.Context, string) (Document, error) {
			return Structured(map[string]any{"upstream": upstream{Host: "db", Port: 5432}}), nil
		}
		value, _, err := loadDocument(context.Background(), "memory", Options{Loader: loader})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"upstream": map[string]any{"host": "db", "port": float64(5432)},
		}, value)
	})

	t.Run("loader error", func(t *testing.T) {
		cause := errors.New("connection refused")
		loader := func(context.Context, string) (Document, error) { return Document{}, cause }
		_, _, err := loadDocument(context.Background(), "remote", Options{Loader: loader})
		assert.ErrorIs(t, err, ErrLoad)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("empty document", func(t *testing.T) {
		loader := func(context.Context, string) (Document, error) { return Document{}, nil }
		_, _, err := loadDocument(context.Background(), "remote", Options{Loader: loader})
		assert.ErrorIs(t, err, ErrLoad)
	})

	t.Run("unmarshalable value", func(t *testing.T) {
		loader := func(context.Context, string) (Document, error) { return Structured(make(chan int)), nil }
		_, _, err := loadDocument(context.Background(), "remote", Options{Loader: loader})
		assert.ErrorIs(t, err, ErrLoad)
	})
}

func TestDocument_Kind(t *testing.T) {
	assert.Equal(t, KindRawText, RawText(nil).Kind())
	assert.Equal(t, KindStructured, Structured(1).Kind())
	assert.Equal(t, "raw-text", KindRawText.String())
	assert.Equal(t, "structured", KindStructured.String())
	assert.Equal(t, "unknown", Document{}.Kind().String())
}
