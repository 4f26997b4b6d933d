package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload ready videos within the daily quota budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if !rt.cfg.Publish.Enabled {
				return errors.New("publishing is disabled; set publish.enabled in the configuration")
			}

			summary, err := rt.coordinator.PublishReady(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Uploaded %d of %d ready videos (%d failed)\n",
				summary.Uploaded, summary.Considered, summary.Failed)
			if summary.Rejected > 0 {
				fmt.Fprintf(out, "Rejected %d videos permanently; see versemill stats for details\n",
					summary.Rejected)
			}
			if summary.SkippedBudget > 0 {
				fmt.Fprintf(out, "Skipped %d videos: daily quota budget exhausted (%d units remained)\n",
					summary.SkippedBudget, summary.Budget)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum videos to upload (0 for all ready)")
	return cmd
}
