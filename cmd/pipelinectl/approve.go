package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/30Piraten/ecs-pipeline/internal/ops"
	"github.com/30Piraten/ecs-pipeline/topology"
)

func newApproveCmd(a *app) *cobra.Command {
	req := ops.ApprovalRequest{}
	var reject bool
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve or reject the pending production approval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			topo, err := a.assemble()
			if err != nil {
				return err
			}
			if _, ok := topo.Pipeline.Stage(req.Stage); !ok {
				return fmt.Errorf("pipeline %s has no stage %q", topo.Pipeline.Name(), req.Stage)
			}
			req.Pipeline = topo.Pipeline.Name()
			req.Approve = !reject

			clients, err := a.clients(cmd.Context())
			if err != nil {
				return err
			}
			if err := ops.NewApprover(clients.CodePipeline, a.logger).Approve(cmd.Context(), req); err != nil {
				return err
			}
			verdict := "approved"
			if reject {
				verdict = "rejected"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s/%s %s\n", req.Stage, req.Action, verdict)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Stage, "stage", topology.StageProduction, "Stage holding the approval action")
	cmd.Flags().StringVar(&req.Action, "action", topology.ActionApprove, "Approval action name")
	cmd.Flags().StringVar(&req.Summary, "summary", "", "Comment recorded with the result")
	cmd.Flags().BoolVar(&reject, "reject", false, "Reject instead of approve")
	return cmd
}
