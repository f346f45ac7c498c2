// Command settingsctl loads and validates settings documents and demonstrates
// primary/worker settings distribution.
//
//	settingsctl check --settings app.json --schema app.schema.json
//	settingsctl check --loader redis --redis-addr 127.0.0.1:6379 --settings api
//	settingsctl cluster --settings app.json --workers 4
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/KOMKZ/go-yogan-settings/flagx"
	"github.com/KOMKZ/go-yogan-settings/logger"
	"github.com/KOMKZ/go-yogan-settings/settings"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	LogLevel    string `flag:"log-level" default:"warn" usage:"log level (debug, info, warn, error)"`
	LogEncoding string `flag:"log-encoding" default:"console" usage:"log encoding (json, console)"`
	LogDir      string `flag:"log-dir" usage:"also write rotated log files under this directory"`
}

// app carries what every subcommand shares
type app struct {
	flags      rootFlags
	logs       *logger.Manager
	executable func() (string, error)
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := flagx.ParseFlags(cmd, &a.flags); err != nil {
		return err
	}

	cfg := logger.DefaultManagerConfig()
	cfg.LoggerName = "settingsctl"
	cfg.Level = a.flags.LogLevel
	cfg.Encoding = a.flags.LogEncoding
	if a.flags.LogDir != "" {
		cfg.EnableFile = true
		cfg.BaseLogDir = a.flags.LogDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.logs = logger.NewManager(cfg)
	return nil
}

func (a *app) newManager() (*settings.Manager, error) {
	metrics, err := settings.NewMetrics(otel.GetMeterProvider().Meter("settingsctl"))
	if err != nil {
		return nil, err
	}
	return settings.NewManager(
		settings.WithLogger(a.logs.GetLogger("settings")),
		settings.WithMetrics(metrics),
	), nil
}

func newRootCmd() *cobra.Command {
	a := &app{executable: os.Executable}

	root := &cobra.Command{
		Use:           "settingsctl",
		Short:         "Load, validate and distribute settings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logs != nil {
				a.logs.CloseAll()
			}
		},
	}
	if err := flagx.BindPersistentFlags(root, &a.flags); err != nil {
		panic(err)
	}

	root.AddCommand(newCheckCmd(a), newClusterCmd(a), newHealthCmd(a), newWorkerCmd(a))
	return root
}

// report is what check, cluster and worker print
type report struct {
	Worker   string `json:"worker,omitempty"`
	Source   string `json:"source"`
	Settings any    `json:"settings"`
}

func printReport(w io.Writer, r report, indent bool) error {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(r, "", "  ")
	} else {
		data, err = json.Marshal(r)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// syncWriter serializes writes from several worker output copiers
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
