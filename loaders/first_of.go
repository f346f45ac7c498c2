package loaders

import (
	"context"
	"errors"

	"github.com/KOMKZ/go-yogan-settings/settings"
)

// FirstOf tries loaders in order and returns the first success.
// If all fail, the joined errors are returned.
func FirstOf(loaders ...settings.LoaderFunc) settings.LoaderFunc {
	return func(ctx context.Context, source string) (settings.Document, error) {
		if len(loaders) == 0 {
			return settings.Document{}, errors.New("no loaders configured")
		}
		errs := make([]error, 0, len(loaders))
		for _, load := range loaders {
			doc, err := load(ctx, source)
			if err == nil {
				return doc, nil
			}
			errs = append(errs, err)
		}
		return settings.Document{}, errors.Join(errs...)
	}
}
