package usecase

import (
	"context"
	"sort"

	"github.com/ovr-platform/ovr-deploy/internal/domain/config"
)

// ListNetworksParams contains parameters for listing networks
type ListNetworksParams struct{}

// ListNetworksResult contains the result of listing networks
type ListNetworksResult struct {
	Networks []NetworkStatus
}

// NetworkStatus is a configured network as seen by the operator
type NetworkStatus struct {
	Name          string
	ChainID       uint64
	RPCURL        string
	Confirmations uint64
	Local         bool
	Active        bool
	// Error explains why the network cannot be used as configured
	Error error
}

// ListNetworks is a use case for listing available networks
type ListNetworks struct {
	config *config.RuntimeConfig
}

// NewListNetworks creates a new ListNetworks use case
func NewListNetworks(cfg *config.RuntimeConfig) *ListNetworks {
	return &ListNetworks{config: cfg}
}

// Run executes the use case
func (uc *ListNetworks) Run(ctx context.Context, params ListNetworksParams) (*ListNetworksResult, error) {
	networks := make([]NetworkStatus, 0, len(uc.config.Networks))
	for name, n := range uc.config.Networks {
		status := NetworkStatus{
			Name:          name,
			RPCURL:        n.RPCURL,
			Confirmations: n.Confirmations,
			Local:         n.Local,
			Active:        uc.config.Network != nil && uc.config.Network.Name == name,
		}
		if n.ChainID != nil {
			status.ChainID = n.ChainID.Uint64()
		}
		switch {
		case n.RPCURL == "":
			status.Error = errMissingRPC
		case n.PrivateKey == "":
			status.Error = errMissingKey
		}
		networks = append(networks, status)
	}

	sort.Slice(networks, func(i, j int) bool {
		return networks[i].Name < networks[j].Name
	})

	return &ListNetworksResult{Networks: networks}, nil
}
