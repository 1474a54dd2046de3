package cli

import (
	"github.com/ovr-platform/ovr-deploy/internal/cli/render"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
	"github.com/spf13/cobra"
)

// NewNetworksCmd creates the networks command
func NewNetworksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "networks",
		Short: "List configured networks",
		Long: `List the networks from the built-in configuration and deploy.toml.

Networks missing an RPC URL or a private key after environment expansion
are shown with the reason they cannot be used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.ListNetworks.Run(cmd.Context(), usecase.ListNetworksParams{})
			if err != nil {
				return err
			}

			renderer := render.NewNetworksRenderer(cmd.OutOrStdout(), true)
			return renderer.RenderNetworksList(result)
		},
	}

	return cmd
}
