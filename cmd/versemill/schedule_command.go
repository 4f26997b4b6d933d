package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"versemill/internal/scheduler"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the production loops until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if !rt.cfg.Scheduler.Enabled {
				return errors.New("scheduler is disabled; set scheduler.enabled in the configuration")
			}

			sched, err := scheduler.New(rt.cfg, rt.store, rt.producer, rt.retries, rt.coordinator, rt.logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := sched.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scheduler running (lock %s); press Ctrl-C to stop\n", sched.LockPath())

			<-runCtx.Done()
			sched.Stop()
			return nil
		},
	}
}
