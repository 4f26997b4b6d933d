package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <job-id>",
		Short: "Upload a single ready video by job id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}

			rt, err := ctx.openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if !rt.cfg.Publish.Enabled {
				return errors.New("publishing is disabled; set publish.enabled in the configuration")
			}

			result, err := rt.coordinator.PublishOne(cmd.Context(), jobID)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded job %d: %s\n", jobID, result.URL)
			return nil
		},
	}
}
