package cli

import (
	"github.com/spf13/cobra"

	"github.com/lydakis/clop/internal/mcpserver"
)

func newMCPCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the optimisation tools over MCP on stdin/stdout",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			if err := client.Watch(); err != nil {
				return err
			}
			return mcpserver.ServeStdio(client, buildVersion)
		},
	}
}
