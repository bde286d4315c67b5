package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/30Piraten/ecs-pipeline/internal/ops"
)

func newCheckSecretCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-secret",
		Short: "Check that the source token secret exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := a.cfg.Collaborators().SourceToken.Resolve()
			clients, err := a.clients(cmd.Context())
			if err != nil {
				return err
			}
			status, err := ops.NewSecretChecker(clients.SecretsManager, a.logger).Check(cmd.Context(), secret)
			if err != nil {
				return err
			}
			changed := "never"
			if !status.LastChanged.IsZero() {
				changed = status.LastChanged.Format(time.RFC3339)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s ok (%s, last changed %s)\n", status.Ref, status.ARN, changed)
			return nil
		},
	}
}
