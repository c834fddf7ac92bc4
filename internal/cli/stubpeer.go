package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lydakis/clop/internal/stubpeer"
)

// newStubPeerCommand serves a stand-in peer so the other commands can be
// tried without the app.
func newStubPeerCommand(ctx *commandContext) *cobra.Command {
	var opts stubpeer.Options

	cmd := &cobra.Command{
		Use:    "__stub-peer",
		Short:  "Answer requests like Clop without optimising anything",
		Hidden: true,
		Args:   usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			if opts.Namespace == "" {
				opts.Namespace = client.Namespace()
			}

			p, err := stubpeer.Start(client.ChannelDir(), opts)
			if err != nil {
				return err
			}
			defer p.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s in %s\n", p.Namespace(), client.ChannelDir())

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-sigCtx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Namespace, "namespace", "", "Namespace to serve (defaults to the configured one)")
	cmd.Flags().DurationVar(&opts.Delay, "delay", 0, "Wait this long before answering")
	return cmd
}
