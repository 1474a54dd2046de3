package cli

import (
	"context"
	"io"

	"github.com/ovr-platform/ovr-deploy/internal/app"
	"github.com/ovr-platform/ovr-deploy/internal/cli/render"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [job]",
		Short: "Run a deployment job from deploy.toml",
		Long: `Run one configured job against the active network.

A job names the contract, the mode (deploy, proxy-deploy or proxy-upgrade)
and the constructor or initializer arguments, optionally overridden per
network. Without a job name an interactive picker is shown.

Examples:
  # Deploy the land mapping on the default network
  ovrdeploy run deploy-mapping

  # Upgrade the marketplace proxy on polygon without the confirmation prompt
  ovrdeploy run upgrade-marketplace --network polygon --yes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			var job string
			if len(args) > 0 {
				job = args[0]
			} else {
				jobs, err := app.ListJobs.Run(cmd.Context(), usecase.ListJobsParams{})
				if err != nil {
					return err
				}
				job, err = app.Selector.SelectJob(cmd.Context(), jobs.Jobs)
				if err != nil {
					return err
				}
			}

			return runJob(cmd.Context(), app, job, cmd.OutOrStdout())
		},
	}

	return cmd
}

// runJob runs a configured job and prints its outcome to out
func runJob(ctx context.Context, a *app.App, job string, out io.Writer) error {
	_, err := a.RunDeployment.Run(ctx, usecase.RunDeploymentParams{
		JobName:  job,
		Reporter: render.NewDeploymentRenderer(out, true),
	})
	return err
}
