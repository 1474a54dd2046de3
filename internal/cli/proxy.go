package cli

import (
	"github.com/ovr-platform/ovr-deploy/internal/cli/render"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
	"github.com/spf13/cobra"
)

// NewProxyCmd creates the proxy inspection command
func NewProxyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "proxy <address>",
		Short: "Show the implementation and manifest record of a proxy",
		Long: `Read the ERC-1967 implementation and admin slots of a proxy on the active
network and show what the manifest recorded for it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.InspectProxy.Run(cmd.Context(), usecase.InspectProxyParams{Address: args[0]})
			if err != nil {
				return err
			}

			return render.NewProxyRenderer(cmd.OutOrStdout(), true).Render(result)
		},
	}
}
