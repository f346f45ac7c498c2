package main

import (
	"fmt"
	"time"

	"github.com/KOMKZ/go-yogan-settings/cluster"
	"github.com/KOMKZ/go-yogan-settings/flagx"
	"github.com/KOMKZ/go-yogan-settings/settings"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type clusterFlags struct {
	sourceFlags
	Workers int           `flag:"workers,w" default:"2" usage:"number of worker processes"`
	Timeout time.Duration `flag:"timeout" default:"2s" usage:"how long a worker waits for the primary"`
}

func newClusterCmd(a *app) *cobra.Command {
	var f clusterFlags
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Load settings as primary and hand them to worker processes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flagx.ParseFlags(cmd, &f.sourceFlags); err != nil {
				return err
			}
			if err := flagx.ParseFlags(cmd, &f); err != nil {
				return err
			}
			if f.Workers < 1 {
				return fmt.Errorf("--workers must be at least 1")
			}
			exe, err := a.executable()
			if err != nil {
				return err
			}

			src, err := f.prepare(a.logs.GetLogger("settings"))
			if err != nil {
				return err
			}
			defer src.release()
			opts := src.opts

			ctx := commandContext(cmd)
			node := cluster.NewPrimary(nil)
			opts.MultiProcess = true
			opts.Cluster = node
			opts.OnReplyDropped = func(d settings.ReplyDrop) {
				fmt.Fprintf(cmd.ErrOrStderr(), "reply to %s dropped: %v\n", d.WorkerID, d.Reason)
			}

			m, err := a.newManager()
			if err != nil {
				return err
			}
			value, err := m.Initialize(ctx, opts)
			if err != nil {
				return reportError(cmd.ErrOrStderr(), err)
			}
			defer m.Close()
			if err := printReport(cmd.OutOrStdout(), report{Worker: "primary", Source: m.GetSource(), Settings: value}, false); err != nil {
				return err
			}

			log := a.logs.GetLogger("cluster")
			out := &syncWriter{w: cmd.OutOrStdout()}
			errOut := &syncWriter{w: cmd.ErrOrStderr()}
			sup := cluster.NewSupervisor(ctx, node, log)
			for i := 0; i < f.Workers; i++ {
				spec := cluster.WorkerSpec{
					ID:     fmt.Sprintf("worker-%d", i+1),
					Path:   exe,
					Args:   []string{"worker", "--timeout", f.Timeout.String(), "--log-level", a.flags.LogLevel},
					Stdout: out,
					Stderr: errOut,
				}
				if err := sup.Spawn(spec); err != nil {
					log.Error("spawn failed", zap.String("worker_id", spec.ID), zap.Error(err))
					return err
				}
			}
			return sup.Wait()
		},
	}
	if err := flagx.BindFlags(cmd, &f.sourceFlags); err != nil {
		panic(err)
	}
	if err := flagx.BindFlags(cmd, &f); err != nil {
		panic(err)
	}
	return cmd
}
