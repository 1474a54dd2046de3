package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ovr-platform/ovr-deploy/internal/domain/config"
)

const defaultNetworkTimeout = 5 * time.Minute

// loadEnvFiles loads .env then .env.local from the project root.
// Variables already set in the process environment are kept.
func loadEnvFiles(projectRoot string) {
	for _, name := range []string{".env", ".env.local"} {
		envFile := filepath.Join(projectRoot, name)
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			// Log warning but don't fail
			fmt.Fprintf(os.Stderr, "Warning: Failed to load %s: %v\n", envFile, err)
		}
	}
}

// resolveNetwork expands environment references in a network entry
func resolveNetwork(name string, nc config.NetworkConfig) (*config.Network, error) {
	network := &config.Network{
		Name:          name,
		RPCURL:        strings.TrimSpace(os.ExpandEnv(nc.RPCURL)),
		PrivateKey:    strings.TrimSpace(os.ExpandEnv(nc.PrivateKey)),
		Confirmations: nc.Confirmations,
		Timeout:       defaultNetworkTimeout,
		GasLimit:      nc.GasLimit,
		ExplorerURL:   os.ExpandEnv(nc.Explorer),
		Local:         nc.Local,
	}
	if nc.ChainID != 0 {
		network.ChainID = new(big.Int).SetUint64(nc.ChainID)
	}
	if nc.Timeout != "" {
		d, err := time.ParseDuration(nc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("network %s: invalid timeout %q: %w", name, nc.Timeout, err)
		}
		network.Timeout = d
	}
	return network, nil
}

// resolveNetworks expands every network entry of the deploy file
func resolveNetworks(file *config.DeployFileConfig) (map[string]*config.Network, error) {
	networks := make(map[string]*config.Network, len(file.Networks))
	for name, nc := range file.Networks {
		network, err := resolveNetwork(name, nc)
		if err != nil {
			return nil, err
		}
		networks[name] = network
	}
	return networks, nil
}

// NetworkNames returns the configured network names, sorted
func NetworkNames(networks map[string]*config.Network) []string {
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
