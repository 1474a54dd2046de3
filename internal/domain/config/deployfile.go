package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
)

// DeployFileConfig is the on-disk shape of deploy.toml / deploy.yaml
type DeployFileConfig struct {
	DefaultNetwork   string                   `toml:"default_network,omitempty" yaml:"default_network,omitempty"`
	Artifacts        string                   `toml:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	ProxyArtifact    string                   `toml:"proxy_artifact,omitempty" yaml:"proxy_artifact,omitempty"`
	ManifestDir      string                   `toml:"manifest_dir,omitempty" yaml:"manifest_dir,omitempty"`
	StrictAddresses  *bool                    `toml:"strict_addresses,omitempty" yaml:"strict_addresses,omitempty"`
	UnsafeSkipLayout *bool                    `toml:"unsafe_skip_layout,omitempty" yaml:"unsafe_skip_layout,omitempty"`
	Networks         map[string]NetworkConfig `toml:"networks,omitempty" yaml:"networks,omitempty"`
	Jobs             map[string]JobConfig     `toml:"jobs,omitempty" yaml:"jobs,omitempty"`
}

// NetworkConfig is a network entry before environment expansion
type NetworkConfig struct {
	RPCURL        string `toml:"rpc_url" yaml:"rpc_url"`
	ChainID       uint64 `toml:"chain_id,omitempty" yaml:"chain_id,omitempty"`
	PrivateKey    string `toml:"private_key,omitempty" yaml:"private_key,omitempty"` //nolint:gosec // holds env var reference, not a literal secret
	Confirmations uint64 `toml:"confirmations,omitempty" yaml:"confirmations,omitempty"`
	Timeout       string `toml:"timeout,omitempty" yaml:"timeout,omitempty"`
	GasLimit      uint64 `toml:"gas_limit,omitempty" yaml:"gas_limit,omitempty"`
	Explorer      string `toml:"explorer,omitempty" yaml:"explorer,omitempty"`
	Local         bool   `toml:"local,omitempty" yaml:"local,omitempty"`
}

// JobConfig is a named deployment with its literal arguments
type JobConfig struct {
	Description string                      `toml:"description,omitempty" yaml:"description,omitempty"`
	Contract    string                      `toml:"contract" yaml:"contract"`
	Mode        string                      `toml:"mode,omitempty" yaml:"mode,omitempty"`
	Args        []any                       `toml:"args,omitempty" yaml:"args,omitempty"`
	Proxy       string                      `toml:"proxy,omitempty" yaml:"proxy,omitempty"`
	Initializer string                      `toml:"initializer,omitempty" yaml:"initializer,omitempty"`
	Kind        string                      `toml:"kind,omitempty" yaml:"kind,omitempty"`
	Networks    map[string]JobNetworkConfig `toml:"networks,omitempty" yaml:"networks,omitempty"`
}

// JobNetworkConfig overrides a job's arguments or proxy on one network
type JobNetworkConfig struct {
	Args  []any  `toml:"args,omitempty" yaml:"args,omitempty"`
	Proxy string `toml:"proxy,omitempty" yaml:"proxy,omitempty"`
}

// RequestFor builds the deployment request for a job on the given network
func (j JobConfig) RequestFor(name, network string) (*models.DeploymentRequest, error) {
	mode, err := models.ParseDeploymentMode(j.Mode)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", name, err)
	}

	args := j.Args
	proxy := j.Proxy
	if override, ok := j.Networks[network]; ok {
		if override.Args != nil {
			args = override.Args
		}
		if override.Proxy != "" {
			proxy = override.Proxy
		}
	}

	req := &models.DeploymentRequest{
		Label:           name,
		ContractName:    j.Contract,
		ConstructorArgs: append([]any(nil), args...),
		Mode:            mode,
		Initializer:     j.Initializer,
		Kind:            models.ProxyKind(j.Kind),
	}

	if proxy != "" {
		if !common.IsHexAddress(proxy) {
			return nil, fmt.Errorf("job %s: proxy %q is not a valid address", name, proxy)
		}
		addr := common.HexToAddress(proxy)
		req.ProxyAddress = &addr
	}

	return req, nil
}
