package settings

import (
	"testing"

	"github.com/KOMKZ/go-yogan-settings/logger"
	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type appSettings struct {
	Port int `json:"port"`
}

func TestProvideSettings(t *testing.T) {
	log, logs := logger.NewTestLogger("settings")
	injector := do.New()
	do.ProvideValue(injector, log)
	do.Provide(injector, ProvideManager())
	do.Provide(injector, ProvideSettings[appSettings](Options{
		Source: "testdata/settings_good.json",
		Schema: "testdata/settings.schema.json",
	}))

	cfg, err := do.Invoke[*appSettings](injector)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)

	m := do.MustInvoke[*Manager](injector)
	assert.True(t, m.Store().Loaded())
	assert.True(t, logs.HasLog("INFO", "settings initialized"))
}

func TestProvideSettings_Failure(t *testing.T) {
	injector := do.New()
	do.Provide(injector, ProvideManagerValue(NewManager(WithLogger(logger.NewNop()))))
	do.Provide(injector, ProvideSettings[appSettings](Options{
		Source: "testdata/settings_bad.json",
		Schema: "testdata/settings.schema.json",
	}))

	_, err := do.Invoke[*appSettings](injector)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings validation failed")
}
