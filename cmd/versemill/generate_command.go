package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Produce videos for the next eligible work units",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if count <= 0 {
				count = 1
			}
			summary, err := rt.producer.GenerateBatch(cmd.Context(), count)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d of %d requested (%d failed)\n",
				summary.Succeeded, summary.Requested, summary.Failed)
			if summary.Exhausted {
				fmt.Fprintln(cmd.OutOrStdout(), "No eligible work units remain under the current filters.")
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of videos to generate")
	return cmd
}
