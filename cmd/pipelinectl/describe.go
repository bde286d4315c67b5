package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatYAML = "yaml"
	formatJSON = "json"
)

func newDescribeCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the assembled pipeline topology",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			topo, err := a.assemble()
			if err != nil {
				return err
			}
			return encode(cmd.OutOrStdout(), format, topo)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatYAML, "Output format: yaml or json")
	return cmd
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return fmt.Errorf("unsupported output format %q", format)
}
