package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/30Piraten/ecs-pipeline/internal/ops"
)

func newArtifactsCmd(a *app) *cobra.Command {
	var bucket, prefix string
	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "List objects in the build artifact bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bucket == "" {
				bucket = a.cfg.ArtifactStore.BucketName
			}
			if bucket == "" {
				return fmt.Errorf("no bucket: set artifact_store.bucket_name or pass --bucket")
			}
			clients, err := a.clients(cmd.Context())
			if err != nil {
				return err
			}
			objects, err := ops.NewArtifactLister(clients.S3, a.logger).List(cmd.Context(), bucket, prefix)
			if err != nil {
				return err
			}
			return printObjects(cmd, objects)
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "Bucket to list (defaults to artifact_store.bucket_name)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only list keys with this prefix")
	return cmd
}

func printObjects(cmd *cobra.Command, objects []ops.Object) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSIZE\tLAST MODIFIED")
	for _, o := range objects {
		fmt.Fprintf(w, "%s\t%d\t%s\n", o.Key, o.Size, o.LastModified.Format(time.RFC3339))
	}
	return w.Flush()
}
