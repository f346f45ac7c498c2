package main

import (
	"fmt"
	"time"

	"github.com/KOMKZ/go-yogan-settings/cluster"
	"github.com/KOMKZ/go-yogan-settings/flagx"
	"github.com/KOMKZ/go-yogan-settings/settings"
	"github.com/spf13/cobra"
)

type workerFlags struct {
	Timeout time.Duration `flag:"timeout" default:"2s" usage:"how long to wait for the primary"`
}

func newWorkerCmd(a *app) *cobra.Command {
	var f workerFlags
	cmd := &cobra.Command{
		Use:    "worker",
		Short:  "Obtain settings from the primary (started by cluster)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flagx.ParseFlags(cmd, &f); err != nil {
				return err
			}
			node, err := cluster.Current()
			if err != nil {
				return err
			}
			defer node.Close()
			if node.IsPrimary() {
				return fmt.Errorf("worker must be started by %q", "settingsctl cluster")
			}

			m, err := a.newManager()
			if err != nil {
				return err
			}
			value, err := m.Initialize(commandContext(cmd), settings.Options{
				MultiProcess:   true,
				Cluster:        node,
				RequestTimeout: f.Timeout,
			})
			if err != nil {
				return reportError(cmd.ErrOrStderr(), err)
			}
			return printReport(cmd.OutOrStdout(), report{Worker: node.WorkerID(), Source: m.GetSource(), Settings: value}, false)
		},
	}
	if err := flagx.BindFlags(cmd, &f); err != nil {
		panic(err)
	}
	return cmd
}
