package usecase

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ovr-platform/ovr-deploy/internal/domain"
	"github.com/ovr-platform/ovr-deploy/internal/domain/config"
	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
)

// InspectProxyParams contains parameters for inspecting a proxy
type InspectProxyParams struct {
	Address string
}

// InspectProxyResult contains the on-chain and recorded state of a proxy
type InspectProxyResult struct {
	Network string
	Info    *models.ProxyInfo
}

// InspectProxy is a use case for reading the ERC-1967 slots of a proxy
type InspectProxy struct {
	config  *config.RuntimeConfig
	chain   ChainClient
	proxies ProxyToolkit
}

// NewInspectProxy creates a new InspectProxy use case
func NewInspectProxy(cfg *config.RuntimeConfig, chain ChainClient, proxies ProxyToolkit) *InspectProxy {
	return &InspectProxy{config: cfg, chain: chain, proxies: proxies}
}

// Run executes the use case
func (uc *InspectProxy) Run(ctx context.Context, params InspectProxyParams) (*InspectProxyResult, error) {
	if !common.IsHexAddress(params.Address) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, params.Address)
	}

	if err := uc.chain.Connect(ctx); err != nil {
		return nil, err
	}
	defer uc.chain.Close()

	info, err := uc.proxies.Inspect(ctx, common.HexToAddress(params.Address))
	if err != nil {
		return nil, err
	}

	result := &InspectProxyResult{Info: info}
	if uc.config.Network != nil {
		result.Network = uc.config.Network.Name
	}
	return result, nil
}
