package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"versemill/internal/queue"
)

func newModeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "mode [random|sequential]",
		Short:     "Show or switch the work-unit selection mode",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(queue.ModeRandom), string(queue.ModeSequential)},
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				cursor, err := rt.store.Progress(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Selection mode: %s\n", cursor.Mode)
				return nil
			}

			mode, ok := queue.ParseMode(args[0])
			if !ok {
				return fmt.Errorf("unknown mode %q; use random or sequential", args[0])
			}
			if err := rt.store.SetMode(cmd.Context(), mode); err != nil {
				return err
			}
			fmt.Fprintf(out, "Selection mode set to %s\n", mode)
			return nil
		},
	}
}

func newProgressCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show the selection cursor and remaining work units",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			cursor, err := rt.store.Progress(cmd.Context())
			if err != nil {
				return err
			}
			remaining, err := rt.selector.Remaining(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Selection mode:     %s\n", cursor.Mode)
			if cursor.HasPosition() {
				fmt.Fprintf(out, "Sequential cursor:  %s %d:%d\n", cursor.Book, cursor.Chapter, cursor.Verse)
			} else {
				fmt.Fprintln(out, "Sequential cursor:  (start of corpus)")
			}
			fmt.Fprintf(out, "Eligible remaining: %d\n", remaining)
			return nil
		},
	}
}
