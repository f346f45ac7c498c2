package loaders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KOMKZ/go-yogan-settings/logger"
	"github.com/KOMKZ/go-yogan-settings/retry"
	"github.com/KOMKZ/go-yogan-settings/settings"
	"go.uber.org/zap"
)

// ErrKeyNotFound the remote store has no document under the key
var ErrKeyNotFound = errors.New("not found")

// RetryOptions tunes Retrying
type RetryOptions struct {
	// Attempts includes the first call, default 3
	Attempts int
	// Backoff defaults to exponential from 100ms
	Backoff retry.BackoffStrategy
	// AttemptTimeout bounds each call, 0 means no bound
	AttemptTimeout time.Duration
	Logger         *logger.CtxZapLogger
}

// Retrying re-runs load on transport failures. A missing key and a
// canceled context fail at once.
func Retrying(load settings.LoaderFunc, opts RetryOptions) settings.LoaderFunc {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger("settings")
	}
	return func(ctx context.Context, source string) (settings.Document, error) {
		doc, err := retry.DoWithData(ctx, func(ctx context.Context) (settings.Document, error) {
			return load(ctx, source)
		},
			retry.MaxAttempts(opts.Attempts),
			retry.WithBackoff(opts.Backoff),
			retry.AttemptTimeout(opts.AttemptTimeout),
			retry.If(retry.And(
				retry.Not(retry.OnErrors(ErrKeyNotFound, context.Canceled)),
				retry.Always(),
			)),
			retry.OnRetry(func(attempt int, err error, wait time.Duration) {
				log.WarnCtx(ctx, "settings fetch failed, retrying",
					zap.String("source", source),
					zap.Int("attempt", attempt),
					zap.Duration("wait", wait),
					zap.Error(err))
			}),
		)
		if err != nil {
			var multi *retry.MultiError
			if errors.As(err, &multi) && multi.Attempts > 1 {
				return settings.Document{}, fmt.Errorf("%d attempts: %w", multi.Attempts, err)
			}
			return settings.Document{}, err
		}
		return doc, nil
	}
}
