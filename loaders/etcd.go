package loaders

import (
	"context"
	"fmt"

	"github.com/KOMKZ/go-yogan-settings/settings"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Etcd reads the settings document stored at keyPrefix+source.
// kv is usually a *clientv3.Client.
func Etcd(kv clientv3.KV, keyPrefix string) settings.LoaderFunc {
	return func(ctx context.Context, source string) (settings.Document, error) {
		key := keyPrefix + source
		resp, err := kv.Get(ctx, key)
		if err != nil {
			return settings.Document{}, fmt.Errorf("etcd get %q: %w", key, err)
		}
		if len(resp.Kvs) == 0 {
			return settings.Document{}, fmt.Errorf("etcd key %q %w", key, ErrKeyNotFound)
		}
		return settings.RawText(resp.Kvs[0].Value), nil
	}
}
