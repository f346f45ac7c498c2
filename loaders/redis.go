package loaders

import (
	"context"
	"errors"
	"fmt"

	"github.com/KOMKZ/go-yogan-settings/settings"
	"github.com/redis/go-redis/v9"
)

// Redis reads the settings document stored at keyPrefix+source
func Redis(client redis.UniversalClient, keyPrefix string) settings.LoaderFunc {
	return func(ctx context.Context, source string) (settings.Document, error) {
		key := keyPrefix + source
		val, err := client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return settings.Document{}, fmt.Errorf("redis key %q %w", key, ErrKeyNotFound)
		}
		if err != nil {
			return settings.Document{}, fmt.Errorf("redis get %q: %w", key, err)
		}
		return settings.RawText(val), nil
	}
}
