package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/KOMKZ/go-yogan-settings/flagx"
	"github.com/KOMKZ/go-yogan-settings/health"
	"github.com/KOMKZ/go-yogan-settings/loaders"
	"github.com/KOMKZ/go-yogan-settings/logger"
	"github.com/KOMKZ/go-yogan-settings/settings"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	clientv3 "go.etcd.io/etcd/client/v3"
)

type sourceFlags struct {
	Settings      string   `flag:"settings,s" usage:"settings source: a file path, or a key for the redis and etcd loaders"`
	EnvVar        string   `flag:"env-var" usage:"environment variable holding the settings source"`
	Schema        string   `flag:"schema" usage:"JSON Schema file (relaxed JSON)"`
	Loader        string   `flag:"loader" default:"file" usage:"file, viper, redis or etcd"`
	AllowExec     bool     `flag:"allow-exec" usage:"run executable settings files and parse their output"`
	RedisAddr     string   `flag:"redis-addr" default:"127.0.0.1:6379" usage:"redis address for --loader redis"`
	EtcdEndpoints []string `flag:"etcd-endpoints" default:"127.0.0.1:2379" usage:"etcd endpoints for --loader etcd"`
	KeyPrefix     string   `flag:"key-prefix" usage:"prepended to the source by the redis and etcd loaders"`
	Attempts      int      `flag:"attempts" default:"3" usage:"fetch attempts for the redis and etcd loaders"`
}

// source is what the flags resolve to: settings options, readiness checks
// for the remote store, and a release func for loader clients
type source struct {
	opts     settings.Options
	checkers []health.Checker
	release  func()
}

func (f sourceFlags) prepare(log *logger.CtxZapLogger) (*source, error) {
	src := &source{
		opts: settings.Options{
			Source:                f.Settings,
			EnvVar:                f.EnvVar,
			Schema:                f.Schema,
			AllowExecutableSource: f.AllowExec,
			Args:                  []string{},
		},
		release: func() {},
	}
	retryOpts := loaders.RetryOptions{Attempts: f.Attempts, Logger: log}

	switch f.Loader {
	case "", "file":
	case "viper":
		src.opts.Loader = loaders.Viper(loaders.ViperOptions{})
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: f.RedisAddr})
		src.opts.Loader = loaders.Retrying(loaders.Redis(client, f.KeyPrefix), retryOpts)
		src.checkers = append(src.checkers, health.Redis(client))
		src.release = func() { _ = client.Close() }
	case "etcd":
		client, err := clientv3.New(clientv3.Config{Endpoints: f.EtcdEndpoints, DialTimeout: 5 * time.Second})
		if err != nil {
			return nil, err
		}
		src.opts.Loader = loaders.Retrying(loaders.Etcd(client, f.KeyPrefix), retryOpts)
		src.checkers = append(src.checkers, health.Etcd(client))
		src.release = func() { _ = client.Close() }
	default:
		return nil, fmt.Errorf("unknown loader %q", f.Loader)
	}
	return src, nil
}

func newCheckCmd(a *app) *cobra.Command {
	var f sourceFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load and validate settings, then print them as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flagx.ParseFlags(cmd, &f); err != nil {
				return err
			}
			src, err := f.prepare(a.logs.GetLogger("settings"))
			if err != nil {
				return err
			}
			defer src.release()

			m, err := a.newManager()
			if err != nil {
				return err
			}
			value, err := m.Initialize(commandContext(cmd), src.opts)
			if err != nil {
				return reportError(cmd.ErrOrStderr(), err)
			}
			return printReport(cmd.OutOrStdout(), report{Source: m.GetSource(), Settings: value}, true)
		},
	}
	if err := flagx.BindFlags(cmd, &f); err != nil {
		panic(err)
	}
	return cmd
}

// reportError lists validation failures one per line
func reportError(w io.Writer, err error) error {
	var ve *settings.ValidationError
	if errors.As(err, &ve) {
		fmt.Fprintf(w, "settings are invalid (%d failures):\n", len(ve.Failures))
		for _, f := range ve.Failures {
			fmt.Fprintf(w, "  %s at %q: %s\n", f.Location, f.Instance, f.Message)
		}
		return err
	}
	fmt.Fprintln(w, "error:", err)
	return err
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
