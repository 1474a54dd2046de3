package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ovr-platform/ovr-deploy/internal/domain/config"
	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
)

// ManifestStoreAdapter implements ManifestStore with one JSON file per chain
type ManifestStoreAdapter struct {
	dir   string
	ozDir string
}

// NewManifestStoreAdapter creates a store under cfg.ManifestDir. Layouts of
// implementations deployed with hardhat-upgrades are read from
// <project>/.openzeppelin.
func NewManifestStoreAdapter(cfg *config.RuntimeConfig) *ManifestStoreAdapter {
	return &ManifestStoreAdapter{
		dir:   cfg.ManifestDir,
		ozDir: filepath.Join(cfg.ProjectRoot, ".openzeppelin"),
	}
}

// Path returns the manifest file for a chain
func (s *ManifestStoreAdapter) Path(chainID uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("chain-%d.json", chainID))
}

// Load reads the manifest of a chain. Returns an empty manifest if the file does not exist.
func (s *ManifestStoreAdapter) Load(_ context.Context, chainID uint64) (*models.Manifest, error) {
	path := s.Path(chainID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewManifest(chainID), nil
		}
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var manifest models.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if manifest.ChainID != chainID {
		return nil, fmt.Errorf("manifest %s is for chain %d, not %d", path, manifest.ChainID, chainID)
	}

	if manifest.Impls == nil {
		manifest.Impls = make(map[string]*models.ImplementationRecord)
	}
	if manifest.Proxies == nil {
		manifest.Proxies = []models.ProxyRecord{}
	}
	return &manifest, nil
}

// Save writes the manifest atomically, creating the directory if needed.
func (s *ManifestStoreAdapter) Save(_ context.Context, manifest *models.Manifest) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	if manifest.ManifestVersion == "" {
		manifest.ManifestVersion = models.ManifestVersion
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	path := s.Path(manifest.ChainID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return os.Rename(tmpPath, path)
}

var _ usecase.ManifestStore = (*ManifestStoreAdapter)(nil)
