package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newWaitCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Start Clop if needed and wait until it accepts requests",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}

			limit := cfg.ReadyTimeout()
			if cmd.Flags().Changed("timeout") {
				limit = timeout
			}
			if limit <= 0 {
				return usagef("--timeout must be > 0")
			}
			if !client.WaitUntilReady(cmd.Context(), limit) {
				return fmt.Errorf("%w within %s", errNotReady, limit)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ready (%s)\n", client.Namespace())
			return nil
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "How long to wait (defaults to timeouts.ready)")
	return cmd
}
