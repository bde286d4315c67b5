package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/30Piraten/ecs-pipeline/internal/ops"
)

func newWatchDeploymentCmd(a *app) *cobra.Command {
	var (
		interval = ops.DefaultPollInterval
		timeout  = ops.DefaultWaitTimeout
	)
	cmd := &cobra.Command{
		Use:   "watch-deployment <deployment-id>",
		Short: "Wait for a blue/green deployment to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, err := a.clients(cmd.Context())
			if err != nil {
				return err
			}
			watcher := ops.NewDeploymentWatcher(clients.CodeDeploy, a.logger,
				ops.WithPollInterval(interval), ops.WithTimeout(timeout))
			status, err := watcher.Wait(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", args[0], status)
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", interval, "Polling interval")
	cmd.Flags().DurationVar(&timeout, "timeout", timeout, "Give up after this long")
	return cmd
}
