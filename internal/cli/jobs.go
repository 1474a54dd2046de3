package cli

import (
	"github.com/ovr-platform/ovr-deploy/internal/cli/render"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
	"github.com/spf13/cobra"
)

// NewJobsCmd creates the jobs command
func NewJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List deployment jobs resolved for the active network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.ListJobs.Run(cmd.Context(), usecase.ListJobsParams{})
			if err != nil {
				return err
			}

			return render.NewJobsRenderer(cmd.OutOrStdout(), true).Render(result)
		},
	}
}
