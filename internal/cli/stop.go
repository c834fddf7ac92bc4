package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStopCommand(ctx *commandContext) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "stop [--remove] PATH...",
		Short: "Stop optimising files submitted earlier",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			if err := client.StopRequests(cmd.Context(), args, remove); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stop requested for %d file(s)\n", len(args))
			return nil
		},
	}

	cmd.Flags().BoolVar(&remove, "remove", false, "Also discard partial results")
	return cmd
}
