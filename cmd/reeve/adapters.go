package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reeveops/reeve/internal/adapter"
)

func newAdaptersCmd(registry *adapter.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "adapters",
		Short: "List registered adapters",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-12s %-10s %s\n", "NAME", "VERSION", "DESCRIPTION")
			for _, name := range registry.List() {
				meta, ok := registry.Lookup(name)
				if !ok {
					continue
				}
				fmt.Fprintf(out, "%-12s %-10s %s\n", meta.Name, meta.Version, meta.Description)
			}
			return nil
		},
	}
}
