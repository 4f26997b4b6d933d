package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Resubmit failed jobs below the attempt ceiling",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			summary, err := rt.retries.Sweep(cmd.Context(), limit)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Retried %d of %d failed jobs: %d succeeded, %d failed again\n",
				summary.Retried, summary.Scanned, summary.Succeeded, summary.StillFailed)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum jobs to retry (0 for all eligible)")
	return cmd
}
