package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the configuration assembles into a valid pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Report every missing collaborator, not just the first.
			if err := a.cfg.Collaborators().RequireAllThrough(a.cfg.Version(), a.cfg.Pipeline.Through); err != nil {
				return err
			}
			topo, err := a.assemble()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pipeline %s (version %d) is valid: %s\n",
				topo.Pipeline.Name(), topo.Version, strings.Join(topo.Pipeline.StageNames(), " -> "))
			return nil
		},
	}
}
