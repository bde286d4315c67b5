package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/30Piraten/ecs-pipeline/config"
	"github.com/30Piraten/ecs-pipeline/internal/ops"
	"github.com/30Piraten/ecs-pipeline/topology"
)

// app carries what PersistentPreRunE loads into the subcommands.
type app struct {
	configPath string

	cfg    *config.Config
	logger *slog.Logger

	newClients func(ctx context.Context, region string) (*ops.Clients, error)
}

func newRootCmd() *cobra.Command {
	return newCommand(ops.NewClients)
}

func newCommand(newClients func(context.Context, string) (*ops.Clients, error)) *cobra.Command {
	a := &app{newClients: newClients}

	cmd := &cobra.Command{
		Use:   "pipelinectl",
		Short: "Inspect and operate the ECS delivery pipeline",
		Long: "pipelinectl assembles the pipeline topology from configuration and " +
			"runs the operator actions a deployed pipeline needs.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"Pipeline config file (defaults to $"+config.EnvConfigFile+")")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().String("region", "", "AWS region (overrides stack.region)")

	cmd.AddCommand(
		newDescribeCmd(a),
		newValidateCmd(a),
		newDashboardCmd(a),
		newApproveCmd(a),
		newWatchDeploymentCmd(a),
		newCheckSecretCmd(a),
		newArtifactsCmd(a),
	)
	return cmd
}

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"log-level": "logging.level",
	"region":    "stack.region",
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadWithOverrides(a.configPath, config.FlagOverrides(cmd.Flags(), flagKeys))
	if err != nil {
		return err
	}
	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func (a *app) assemble() (topology.Topology, error) {
	topo, err := a.cfg.Assemble()
	if err != nil {
		return topology.Topology{}, err
	}
	a.logger.Debug("assembled pipeline", "pipeline", topo.Pipeline.Name(), "version", int(topo.Version))
	return topo, nil
}

func (a *app) clients(ctx context.Context) (*ops.Clients, error) {
	clients, err := a.newClients(ctx, a.cfg.Stack.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS clients: %w", err)
	}
	return clients, nil
}
