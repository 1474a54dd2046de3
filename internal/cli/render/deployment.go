package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
)

// DeploymentRenderer prints the operator-facing lines of a run on stdout.
// The address lines are stable: scripts and people copy them into later jobs.
type DeploymentRenderer struct {
	out   io.Writer
	color bool
}

// NewDeploymentRenderer creates a new deployment renderer
func NewDeploymentRenderer(out io.Writer, color bool) *DeploymentRenderer {
	return &DeploymentRenderer{
		out:   out,
		color: color,
	}
}

// ReportStart announces what is about to be broadcast
func (r *DeploymentRenderer) ReportStart(req *models.DeploymentRequest) {
	switch req.Mode {
	case models.ModeProxyDeploy:
		fmt.Fprintln(r.out, "Deploying implementation(first) and ERC1967Proxy(second)...")
	case models.ModeProxyUpgrade:
		fmt.Fprintf(r.out, "Upgrading proxy %s to %s...\n", req.ProxyAddress.Hex(), req.ContractName)
	}
}

// Report prints the confirmed addresses
func (r *DeploymentRenderer) Report(result *models.DeploymentResult) error {
	addr := r.paint(color.New(color.FgGreen, color.Bold), result.Address.Hex())

	switch result.Mode {
	case models.ModeProxyDeploy:
		fmt.Fprintf(r.out, "Proxy deployed to: %s\n", addr)
		r.renderImplementation(result)
	case models.ModeProxyUpgrade:
		fmt.Fprintf(r.out, "Proxy Upgraded: %s\n", addr)
		r.renderImplementation(result)
	default:
		fmt.Fprintf(r.out, "%s deployed to: %s\n", result.ContractName, addr)
	}

	if len(result.TxHashes) > 0 {
		last := result.TxHashes[len(result.TxHashes)-1]
		fmt.Fprintln(r.out, r.paint(color.New(color.Faint),
			fmt.Sprintf("  tx %s (block %d, gas %d)", last.Hex(), result.BlockNumber, result.GasUsed)))
	}
	return nil
}

func (r *DeploymentRenderer) renderImplementation(result *models.DeploymentResult) {
	line := fmt.Sprintf("  Implementation: %s", result.Implementation.Hex())
	if result.ImplementationReused {
		line += " (reused)"
	}
	fmt.Fprintln(r.out, r.paint(color.New(color.Faint), line))
}

func (r *DeploymentRenderer) paint(c *color.Color, s string) string {
	if !r.color {
		return s
	}
	return c.Sprint(s)
}

var _ usecase.DeploymentReporter = (*DeploymentRenderer)(nil)
