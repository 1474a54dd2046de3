package cli

import (
	"context"
	"fmt"

	"github.com/ovr-platform/ovr-deploy/internal/adapters/progress"
	"github.com/ovr-platform/ovr-deploy/internal/app"
	"github.com/ovr-platform/ovr-deploy/internal/config"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
	"github.com/spf13/cobra"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ovrdeploy",
		Short: "Deploy and upgrade OVR contracts from compiled artifacts",
		Long: `ovrdeploy deploys compiled contracts, UUPS proxies and proxy upgrades
to the configured networks. Jobs in deploy.toml pin the contract, mode and
arguments per network; ad-hoc deployments are available through "deploy".`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			v := config.SetupViper(projectRoot, cmd)

			appInstance, err := app.InitApp(v, newProgressSink(v.GetBool("non_interactive")))
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)

			if appInstance.Config.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, appInstance.Config.Timeout)
				cmd.PostRun = func(cmd *cobra.Command, args []string) {
					cancel()
				}
			}

			cmd.SetContext(ctx)
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("network", "n", "", "Network to use (defaults to default_network in deploy.toml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "Broadcast to live networks without asking")
	rootCmd.PersistentFlags().Bool("unsafe-skip-layout", false, "Upgrade even when a storage layout is unknown and cannot be checked")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "deployment",
		Title: "Deployment Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "inspection",
		Title: "Inspection Commands",
	})

	for _, cmd := range []*cobra.Command{NewRunCmd(), NewDeployCmd()} {
		cmd.GroupID = "deployment"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{NewJobsCmd(), NewArtifactsCmd(), NewProxyCmd(), NewNetworksCmd()} {
		cmd.GroupID = "inspection"
		rootCmd.AddCommand(cmd)
	}

	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// newProgressSink shows a spinner unless prompts and terminal effects are off
func newProgressSink(nonInteractive bool) usecase.ProgressSink {
	if nonInteractive {
		return progress.NewNopSink()
	}
	return progress.NewSpinnerProgressReporter()
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	app, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return app, nil
}
