package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/reeveops/reeve/internal/history"
	"github.com/reeveops/reeve/internal/logger"
)

func newHistoryCmd() *cobra.Command {
	dir := defaultHistoryDir()

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded job history",
	}

	cmd.PersistentFlags().StringVar(&dir, "dir", dir, "History database directory")

	cmd.AddCommand(newHistoryListCmd(&dir))
	cmd.AddCommand(newHistoryShowCmd(&dir))
	cmd.AddCommand(newHistoryPruneCmd(&dir))

	return cmd
}

func newHistoryListCmd(dir *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			hist, err := openHistory(*dir)
			if err != nil {
				return err
			}
			defer hist.Close() //nolint:errcheck

			records, err := hist.List(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "no jobs recorded")
				return nil
			}

			fmt.Fprintf(out, "%-22s %-20s %-8s %-10s %-10s %s\n", "JID", "PLAN", "OUTCOME", "CHANGED", "FAILED", "STARTED")
			for _, rec := range records {
				plan := rec.Plan
				if rec.DryRun {
					plan += " (preview)"
				}
				fmt.Fprintf(out, "%-22s %-20s %-8s %-10d %-10d %s\n",
					rec.JID,
					plan,
					recordOutcome(rec),
					rec.Changed+rec.WouldChange,
					rec.Failed,
					rec.StartedAt.Format(time.RFC3339),
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to list")

	return cmd
}

func newHistoryShowCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <jid>",
		Short: "Show one job's full result envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hist, err := openHistory(*dir)
			if err != nil {
				return err
			}
			defer hist.Close() //nolint:errcheck

			rec, err := hist.Get(args[0])
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newHistoryPruneCmd(dir *string) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete job records older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			hist, err := openHistory(*dir)
			if err != nil {
				return err
			}
			defer hist.Close() //nolint:errcheck

			pruned, err := hist.Prune(time.Now().Add(-olderThan))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d job record(s)\n", pruned)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age beyond which records are deleted")

	return cmd
}

func openHistory(dir string) (*history.Store, error) {
	log, err := logger.New(logger.Options{Level: "error", HumanReadable: true})
	if err != nil {
		return nil, err
	}
	return history.Open(dir, log)
}

func recordOutcome(rec *history.Record) string {
	switch rec.ExitCode() {
	case 2:
		return "failed"
	case 1:
		return "drift"
	default:
		return "clean"
	}
}
