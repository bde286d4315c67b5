package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDashboardCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print the build dashboard layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			topo, err := a.assemble()
			if err != nil {
				return err
			}
			if topo.Dashboard == nil {
				return fmt.Errorf("pipeline version %d has no dashboard", topo.Version)
			}
			return encode(cmd.OutOrStdout(), format, topo.Dashboard)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatJSON, "Output format: json or yaml")
	return cmd
}
