package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"versemill/internal/queue"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show job counts and recent daily activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			stats, err := rt.store.Stats(cmd.Context(), rt.cfg.Retry.MaxAttempts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			var statusRows [][]string
			for _, status := range queue.AllStatuses() {
				statusRows = append(statusRows, []string{
					string(status),
					strconv.Itoa(stats.ByStatus[status]),
				})
			}
			statusRows = append(statusRows, []string{"total", strconv.Itoa(stats.Total)})
			fmt.Fprintln(out, renderTable(
				[]string{"Status", "Jobs"},
				statusRows,
				[]columnAlignment{alignLeft, alignRight},
			))
			fmt.Fprintf(out, "Failed: %d retryable, %d permanent (ceiling %d attempts)\n\n",
				stats.RetryableFailed, stats.PermanentlyFailed, rt.cfg.Retry.MaxAttempts)

			counters, err := rt.store.RecentCounters(cmd.Context(), days)
			if err != nil {
				return err
			}
			if len(counters) == 0 {
				fmt.Fprintln(out, "No daily activity recorded yet.")
				return nil
			}

			var dayRows [][]string
			for _, day := range counters {
				dayRows = append(dayRows, []string{
					day.Date,
					strconv.Itoa(day.Generated),
					strconv.Itoa(day.Uploaded),
					strconv.Itoa(day.Errors),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Date", "Generated", "Uploaded", "Errors"},
				dayRows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Days of daily counters to show")
	return cmd
}
