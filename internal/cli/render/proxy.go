package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
)

// ProxyRenderer renders what is known about a proxy
type ProxyRenderer struct {
	out   io.Writer
	color bool
}

// NewProxyRenderer creates a new proxy renderer
func NewProxyRenderer(out io.Writer, color bool) *ProxyRenderer {
	return &ProxyRenderer{
		out:   out,
		color: color,
	}
}

func (r *ProxyRenderer) Render(result *usecase.InspectProxyResult) error {
	info := result.Info
	color.New(color.FgCyan, color.Bold).Fprintf(r.out, "Proxy: %s\n", info.Address.Hex())
	fmt.Fprintf(r.out, "  Network: %s (chain %d)\n", result.Network, info.ChainID)

	if !info.HasCode {
		fmt.Fprintln(r.out, FormatWarning("no contract code at this address"))
		return nil
	}

	fmt.Fprintf(r.out, "  Implementation: %s\n", FormatAddress(info.Implementation))
	fmt.Fprintf(r.out, "  Admin: %s\n", FormatAddress(info.Admin))

	if info.Record == nil {
		fmt.Fprintln(r.out, FormatWarning("not recorded in the manifest"))
		return nil
	}

	fmt.Fprintf(r.out, "  Contract: %s\n", color.New(color.FgYellow).Sprint(info.Record.Contract))
	fmt.Fprintf(r.out, "  Kind: %s\n", info.Record.Kind)
	fmt.Fprintf(r.out, "  Last updated: %s (tx %s)\n", info.Record.UpdatedAt.Format("2006-01-02 15:04:05"), info.Record.TxHash.Hex())
	if info.Record.Implementation != info.Implementation {
		fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("manifest records implementation %s", info.Record.Implementation.Hex())))
	}
	if info.ImplRecord != nil && info.ImplRecord.Layout == nil {
		fmt.Fprintln(r.out, FormatWarning("implementation has no storage layout; upgrades skip the layout check"))
	}
	return nil
}
