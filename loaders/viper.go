// Package loaders provides settings.LoaderFunc implementations for sources
// other than relaxed JSON files.
package loaders

import (
	"context"
	"strings"

	"github.com/KOMKZ/go-yogan-settings/settings"
	"github.com/spf13/viper"
)

// ViperOptions configure the Viper loader
type ViperOptions struct {
	// ConfigType forces the format (yaml, toml, json, ...); by default the
	// file extension decides
	ConfigType string
	// EnvPrefix enables environment overrides, e.g. APP_SERVER_PORT for server.port
	EnvPrefix string
}

// Viper reads the source file with viper. Keys are lower-cased by viper.
func Viper(opts ViperOptions) settings.LoaderFunc {
	return func(_ context.Context, source string) (settings.Document, error) {
		v := viper.New()
		v.SetConfigFile(source)
		if opts.ConfigType != "" {
			v.SetConfigType(opts.ConfigType)
		}
		if opts.EnvPrefix != "" {
			v.SetEnvPrefix(opts.EnvPrefix)
			v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
			v.AutomaticEnv()
		}

		if err := v.ReadInConfig(); err != nil {
			return settings.Document{}, err
		}
		return settings.Structured(v.AllSettings()), nil
	}
}
