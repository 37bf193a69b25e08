package main

import (
	"github.com/spf13/cobra"

	"github.com/reeveops/reeve/internal/adapter"
)

type rootFlags struct {
	verbose bool
	dryRun  bool
}

func newRootCmd(registry *adapter.Registry) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "reeve",
		Short:         "Reeve converges remote targets on declared state",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "Preview changes without touching targets")

	cmd.AddCommand(newApplyCmd(registry, flags))
	cmd.AddCommand(newCheckCmd(registry, flags))
	cmd.AddCommand(newServeCmd(registry, flags))
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newAdaptersCmd(registry))
	cmd.AddCommand(newStoreCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}
