package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/ovr-platform/ovr-deploy/internal/usecase"
)

// NetworksRenderer renders network lists
type NetworksRenderer struct {
	out   io.Writer
	color bool
}

// NewNetworksRenderer creates a new networks renderer
func NewNetworksRenderer(out io.Writer, color bool) *NetworksRenderer {
	return &NetworksRenderer{
		out:   out,
		color: color,
	}
}

// RenderNetworksList renders the configured networks, marking the active one
func (r *NetworksRenderer) RenderNetworksList(result *usecase.ListNetworksResult) error {
	if len(result.Networks) == 0 {
		fmt.Fprintln(r.out, "No networks configured")
		return nil
	}

	fmt.Fprintln(r.out, "🌐 Available Networks:")
	fmt.Fprintln(r.out)

	rows := make(TableData, 0, len(result.Networks))
	for _, network := range result.Networks {
		name := network.Name
		if network.Active {
			name += " *"
		}
		status := "✅"
		if network.Error != nil {
			status = "❌ " + network.Error.Error()
		}
		kind := "live"
		if network.Local {
			kind = "local"
		}
		rows = append(rows, []string{
			name,
			strconv.FormatUint(network.ChainID, 10),
			kind,
			strconv.FormatUint(network.Confirmations, 10),
			status,
		})
	}

	fmt.Fprintln(r.out, renderTable([]string{"NETWORK", "CHAIN ID", "KIND", "CONFIRMATIONS", "STATUS"}, rows))
	return nil
}
