package health

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// CheckerFunc adapts a function to Checker
type CheckerFunc struct {
	CheckName string
	Fn        func(ctx context.Context) error
}

func (c CheckerFunc) Name() string                    { return c.CheckName }
func (c CheckerFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// Redis pings the settings redis
func Redis(client redis.UniversalClient) Checker {
	return CheckerFunc{CheckName: "redis", Fn: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
}

// Etcd queries the status of every endpoint; one reachable member is enough
func Etcd(client *clientv3.Client) Checker {
	return CheckerFunc{CheckName: "etcd", Fn: func(ctx context.Context) error {
		var lastErr error
		for _, ep := range client.Endpoints() {
			if _, err := client.Status(ctx, ep); err != nil {
				lastErr = err
				continue
			}
			return nil
		}
		if lastErr == nil {
			return fmt.Errorf("no etcd endpoints configured")
		}
		return lastErr
	}}
}
