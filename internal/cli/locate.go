package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type locateOutput struct {
	Path      string `json:"path"`
	Namespace string `json:"namespace"`
	Running   bool   `json:"running"`
	Reachable bool   `json:"reachable"`
}

func newLocateCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Show where Clop is installed without starting it",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			loc, err := client.Locate(cmd.Context())
			if err != nil {
				return err
			}
			out := locateOutput{
				Path:      loc.ExecutablePath,
				Namespace: loc.Namespace,
				Running:   loc.Running,
				Reachable: client.IsReachable(),
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			fmt.Fprintf(w, "Path:      %s\n", out.Path)
			fmt.Fprintf(w, "Namespace: %s\n", out.Namespace)
			fmt.Fprintf(w, "Running:   %s\n", yesNo(out.Running))
			fmt.Fprintf(w, "Reachable: %s\n", yesNo(out.Reachable))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
