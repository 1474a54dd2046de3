package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/ovr-platform/ovr-deploy/internal/domain/config"
	"gopkg.in/yaml.v3"
)

//go:embed builtin.toml
var builtinDeployFile []byte

// deployFileNames are checked in order; the first one present wins
var deployFileNames = []string{"deploy.toml", "deploy.yaml", "deploy.yml"}

// loadBuiltinDeployFile decodes the jobs and networks shipped with the binary
func loadBuiltinDeployFile() (*config.DeployFileConfig, error) {
	var cfg config.DeployFileConfig
	if _, err := toml.Decode(string(builtinDeployFile), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse built-in deploy config: %w", err)
	}
	return &cfg, nil
}

// findDeployFile returns the deploy file in projectRoot, or "" when there is none
func findDeployFile(projectRoot string) string {
	for _, name := range deployFileNames {
		path := filepath.Join(projectRoot, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadDeployFile parses a deploy.toml or deploy.yaml file
func loadDeployFile(path string) (*config.DeployFileConfig, error) {
	var cfg config.DeployFileConfig

	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	default:
		return nil, fmt.Errorf("unsupported deploy file %s", path)
	}

	return &cfg, nil
}

// mergeDeployFiles overlays user on base. Scalars are replaced when set;
// networks and jobs are replaced per name.
func mergeDeployFiles(base, user *config.DeployFileConfig) *config.DeployFileConfig {
	merged := *base
	merged.Networks = make(map[string]config.NetworkConfig, len(base.Networks))
	for name, n := range base.Networks {
		merged.Networks[name] = n
	}
	merged.Jobs = make(map[string]config.JobConfig, len(base.Jobs))
	for name, j := range base.Jobs {
		merged.Jobs[name] = j
	}

	if user == nil {
		return &merged
	}

	if user.DefaultNetwork != "" {
		merged.DefaultNetwork = user.DefaultNetwork
	}
	if user.Artifacts != "" {
		merged.Artifacts = user.Artifacts
	}
	if user.ProxyArtifact != "" {
		merged.ProxyArtifact = user.ProxyArtifact
	}
	if user.ManifestDir != "" {
		merged.ManifestDir = user.ManifestDir
	}
	if user.StrictAddresses != nil {
		merged.StrictAddresses = user.StrictAddresses
	}
	if user.UnsafeSkipLayout != nil {
		merged.UnsafeSkipLayout = user.UnsafeSkipLayout
	}
	for name, n := range user.Networks {
		merged.Networks[name] = n
	}
	for name, j := range user.Jobs {
		merged.Jobs[name] = j
	}

	return &merged
}
