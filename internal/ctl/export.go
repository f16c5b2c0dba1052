package ctl

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"finanzapp/internal/storage"
)

func exportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Inspect the spreadsheet export queue",
	}
	cmd.AddCommand(exportStatusCmd(a), exportRetryCmd(a))
	return cmd
}

func exportStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Count expenses by export status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			stats, err := s.ExportStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("read export stats: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, status := range []string{storage.ExportPending, storage.ExportDone, storage.ExportError} {
				fmt.Fprintf(out, "%-8s %s\n", status, humanize.Comma(int64(stats[status])))
			}
			return nil
		},
	}
}

func exportRetryCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Queue failed exports again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			if !yes {
				ok, err := a.opts.Prompter.Confirm(cmd.Context(), "Queue every failed export again?", true)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing changed")
					return nil
				}
			}
			n, err := s.RetryFailedExports(cmd.Context())
			if err != nil {
				return fmt.Errorf("retry exports: %w", err)
			}
			a.logger.Info("Failed exports re-queued", "count", n)
			fmt.Fprintf(cmd.OutOrStdout(), "Re-queued %s %s\n", humanize.Comma(n), plural(n, "export", "exports"))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
