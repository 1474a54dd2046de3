package cli

import (
	"github.com/ovr-platform/ovr-deploy/internal/cli/render"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
	"github.com/spf13/cobra"
)

// NewArtifactsCmd creates the artifacts command
func NewArtifactsCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "artifacts [filter]",
		Short: "List compiled contracts in the build output",
		Long: `List the contracts found in the Hardhat artifacts/ or Foundry out/ directory.

Interfaces and abstract contracts are hidden unless --all is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			params := usecase.ListArtifactsParams{DeployableOnly: !all}
			if len(args) > 0 {
				params.Filter = args[0]
			}

			result, err := app.ListArtifacts.Run(cmd.Context(), params)
			if err != nil {
				return err
			}

			return render.NewArtifactsRenderer(cmd.OutOrStdout(), true).Render(result)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include interfaces and abstract contracts")

	return cmd
}
