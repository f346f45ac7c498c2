package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManager_GetLoggerIsCached(t *testing.T) {
	m := NewManager(ManagerConfig{EnableConsole: false})

	first := m.GetLogger("settings")
	second := m.GetLogger("settings")
	other := m.GetLogger("ipc")

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)
	assert.Equal(t, "settings", first.Module())
}

func TestManager_FileOutput(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(ManagerConfig{
		BaseLogDir:            dir,
		Level:                 "info",
		EnableFile:            true,
		EnableLevelInFilename: true,
		EnableDateInFilename:  false,
	})

	log := m.GetLogger("settings")
	log.Info("settings loaded", zap.String("source", "settings.json"))
	log.Error("settings load failed")
	log.Debug("below level")
	m.CloseAll()

	info, err := os.ReadFile(filepath.Join(dir, "settings", "settings-info.log"))
	require.NoError(t, err)
	assert.Contains(t, string(info), "settings loaded")
	assert.Contains(t, string(info), `"module":"settings"`)
	assert.NotContains(t, string(info), "below level")
	assert.NotContains(t, string(info), "settings load failed")

	errLog, err := os.ReadFile(filepath.Join(dir, "settings", "settings-error.log"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(errLog), "settings load failed"))
}

func TestManager_Config(t *testing.T) {
	m := NewManager(ManagerConfig{AppName: "settingsctl"})
	cfg := m.Config()
	assert.Equal(t, "settingsctl", cfg.AppName)
	assert.Equal(t, "info", cfg.Level)
}

func TestGetLogger_Global(t *testing.T) {
	l := GetLogger("global-test")
	assert.NotNil(t, l)
	assert.Same(t, l, GetLogger("global-test"))
}
