package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ovr-platform/ovr-deploy/internal/domain"
	"github.com/ovr-platform/ovr-deploy/internal/domain/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// projectMarkers identify the root of a contracts project
var projectMarkers = []string{
	"deploy.toml",
	"deploy.yaml",
	"deploy.yml",
	"hardhat.config.js",
	"hardhat.config.ts",
	"foundry.toml",
}

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	loadEnvFiles(projectRoot)

	builtin, err := loadBuiltinDeployFile()
	if err != nil {
		return nil, err
	}

	var user *config.DeployFileConfig
	source := findDeployFile(projectRoot)
	if source != "" {
		user, err = loadDeployFile(source)
		if err != nil {
			return nil, err
		}
	}
	file := mergeDeployFiles(builtin, user)

	networks, err := resolveNetworks(file)
	if err != nil {
		return nil, err
	}

	cfg := &config.RuntimeConfig{
		ProjectRoot:     projectRoot,
		ConfigSource:    source,
		ArtifactsDir:    resolveArtifactsDir(projectRoot, firstNonEmpty(v.GetString("artifacts"), file.Artifacts)),
		ManifestDir:     projectPath(projectRoot, firstNonEmpty(v.GetString("manifest_dir"), file.ManifestDir)),
		ProxyArtifact:   file.ProxyArtifact,
		StrictAddresses: file.StrictAddresses != nil && *file.StrictAddresses,
		DefaultNetwork:  file.DefaultNetwork,
		Networks:        networks,
		Jobs:            file.Jobs,
		Debug:           v.GetBool("debug"),
		NonInteractive:  v.GetBool("non_interactive"),
		AssumeYes:       v.GetBool("yes"),
		Timeout:         v.GetDuration("timeout"),
	}
	cfg.UnsafeSkipLayout = v.GetBool("unsafe_skip_layout") ||
		(file.UnsafeSkipLayout != nil && *file.UnsafeSkipLayout)

	networkName := firstNonEmpty(v.GetString("network"), file.DefaultNetwork)
	if networkName != "" {
		network, ok := networks[networkName]
		if !ok {
			return nil, fmt.Errorf("network %q: %w (configured: %s)",
				networkName, domain.ErrNotFound, strings.Join(NetworkNames(networks), ", "))
		}
		cfg.Network = network
	}

	return cfg, nil
}

// FindProjectRoot walks up from the current directory looking for a deploy
// file or a Hardhat/Foundry project. Falls back to the working directory so
// the built-in jobs stay usable anywhere.
func FindProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance
func SetupViper(projectRoot string, cmd *cobra.Command) *viper.Viper {
	v := viper.New()

	// Set up environment variables
	v.SetEnvPrefix("OVR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Set defaults
	v.SetDefault("timeout", "30m")
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("yes", false)
	v.SetDefault("unsafe_skip_layout", false)
	v.SetDefault("project_root", projectRoot)

	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil {
				panic(err)
			}
		})
	}

	return v
}

// resolveArtifactsDir prefers the configured directory, falling back to
// Foundry's out/ when a Hardhat artifacts/ tree is absent.
func resolveArtifactsDir(projectRoot, dir string) string {
	resolved := projectPath(projectRoot, dir)
	if _, err := os.Stat(resolved); err == nil {
		return resolved
	}
	out := filepath.Join(projectRoot, "out")
	if _, err := os.Stat(out); err == nil {
		return out
	}
	return resolved
}

func projectPath(projectRoot, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(projectRoot, p)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
