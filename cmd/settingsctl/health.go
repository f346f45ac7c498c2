package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/KOMKZ/go-yogan-settings/flagx"
	"github.com/KOMKZ/go-yogan-settings/health"
	"github.com/spf13/cobra"
)

type healthFlags struct {
	sourceFlags
	Timeout time.Duration `flag:"timeout" default:"5s" usage:"overall check timeout"`
}

func newHealthCmd(a *app) *cobra.Command {
	var f healthFlags
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Report whether settings load and their store is reachable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flagx.ParseFlags(cmd, &f.sourceFlags); err != nil {
				return err
			}
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
			ctx := commandContext(cmd)
			// a failed load shows up as the settings check
			_, _ = m.Initialize(ctx, src.opts)

			agg := health.NewAggregator(f.Timeout)
			agg.Register(m)
			agg.Register(src.checkers...)
			resp := agg.Check(ctx)

			data, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			if !resp.IsHealthy() {
				return fmt.Errorf("status %s", resp.Status)
			}
			return nil
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
