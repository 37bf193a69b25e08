package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/reeveops/reeve/internal/adapter"
)

var checkCmdRunner = runApply

func newCheckCmd(registry *adapter.Registry, root *rootFlags) *cobra.Command {
	opts := applyOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report drift without changing targets",
		Long: `Check runs the plan's guard pass only: every target is probed and diffed
against its declared state, but no action is ever dispatched. Exit code 0
means every target is already in its desired state, 1 means at least one
target would be changed, 2 means a target could not be checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DryRun = true
			opts.Verbose = root.verbose
			opts.NonInteractive = !term.IsTerminal(int(os.Stdout.Fd()))

			if err := validatePlanPath(opts.PlanPath); err != nil {
				return err
			}

			return checkCmdRunner(registry, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.PlanPath, "plan", "p", "", "Path to plan file")
	cmd.Flags().StringVar(&opts.StorePath, "secure", "", "Path to a secure store file (overrides the plan's store)")
	cmd.Flags().StringVar(&opts.HistoryDir, "history-dir", defaultHistoryDir(), "Directory for the job history database")
	cmd.MarkFlagRequired("plan") //nolint:errcheck

	return cmd
}
