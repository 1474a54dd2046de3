package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ovr-platform/ovr-deploy/internal/cli/render"
	"github.com/ovr-platform/ovr-deploy/internal/domain"
	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
	"github.com/spf13/cobra"
)

// NewDeployCmd creates the ad-hoc deploy command
func NewDeployCmd() *cobra.Command {
	var (
		proxy       bool
		initializer string
		upgrade     string
	)

	cmd := &cobra.Command{
		Use:   "deploy <contract> [args...]",
		Short: "Deploy a contract, a UUPS proxy or a proxy upgrade without a job",
		Long: `Deploy a compiled contract by name with the given arguments.

Arguments are passed as strings and converted to the constructor (or, with
--proxy, the initializer) parameter types from the artifact ABI.

Examples:
  # Plain deployment
  ovrdeploy deploy OVRLandMapping 0x93C46aA4DdfD0413d95D0eF3c478982997cE9861

  # Implementation plus ERC1967Proxy, calling initialize through the proxy
  ovrdeploy deploy OVRMarketplace --proxy 0x1631... 0x93C4... 0x0 500 0x0171...

  # Upgrade an existing proxy to the current build
  ovrdeploy deploy OVRMarketplace --upgrade 0x7616bFb03e250470386ab4888c447936d065816B`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			req, err := buildDeployRequest(args, proxy, initializer, upgrade)
			if err != nil {
				return err
			}

			_, err = app.RunDeployment.Run(cmd.Context(), usecase.RunDeploymentParams{
				Request:  req,
				Reporter: render.NewDeploymentRenderer(cmd.OutOrStdout(), true),
			})
			return err
		},
	}

	cmd.Flags().BoolVar(&proxy, "proxy", false, "Deploy behind an ERC1967 UUPS proxy")
	cmd.Flags().StringVar(&initializer, "initializer", models.DefaultInitializer, "Initializer called through the proxy")
	cmd.Flags().StringVar(&upgrade, "upgrade", "", "Upgrade the proxy at this address instead of deploying")
	cmd.MarkFlagsMutuallyExclusive("proxy", "upgrade")

	return cmd
}

func buildDeployRequest(args []string, proxy bool, initializer, upgrade string) (*models.DeploymentRequest, error) {
	req := &models.DeploymentRequest{
		ContractName: args[0],
		Mode:         models.ModeDeploy,
	}
	for _, arg := range args[1:] {
		req.ConstructorArgs = append(req.ConstructorArgs, arg)
	}

	switch {
	case upgrade != "":
		if !common.IsHexAddress(upgrade) {
			return nil, domain.NewDeploymentError(domain.ErrInvalidRequest,
				fmt.Errorf("%w: proxy %q", domain.ErrInvalidAddress, upgrade))
		}
		addr := common.HexToAddress(upgrade)
		req.Mode = models.ModeProxyUpgrade
		req.ProxyAddress = &addr
		req.Kind = models.ProxyKindUUPS
	case proxy:
		req.Mode = models.ModeProxyDeploy
		req.Initializer = initializer
		req.Kind = models.ProxyKindUUPS
	}

	return req, nil
}
