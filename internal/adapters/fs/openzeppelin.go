package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
	"github.com/samber/lo"
)

// openzeppelinNetworks maps chain ids to the file names @openzeppelin/upgrades-core uses.
// Any other chain is stored as unknown-<chainId>.json.
var openzeppelinNetworks = map[uint64]string{
	1:        "mainnet",
	5:        "goerli",
	10:       "optimism",
	56:       "bsc",
	97:       "bsc-testnet",
	137:      "polygon",
	42161:    "arbitrum-one",
	43113:    "avalanche-fuji",
	43114:    "avalanche",
	80001:    "polygon-mumbai",
	11155111: "sepolia",
}

type ozManifest struct {
	Impls map[string]ozImplementation `json:"impls"`
}

type ozImplementation struct {
	Address      common.Address   `json:"address"`
	AllAddresses []common.Address `json:"allAddresses"`
	Layout       *ozLayout        `json:"layout"`
}

// ozLayout keeps only what layout comparison needs. Enum members are plain
// strings there, so types are not decoded as solc StorageTypes.
type ozLayout struct {
	Storage []models.StorageEntry `json:"storage"`
	Types   map[string]struct {
		Label         string `json:"label"`
		NumberOfBytes string `json:"numberOfBytes"`
	} `json:"types"`
}

// OpenZeppelinPaths lists the hardhat-upgrades manifests that may describe a chain
func (s *ManifestStoreAdapter) OpenZeppelinPaths(chainID uint64) []string {
	paths := make([]string, 0, 2)
	if name, ok := openzeppelinNetworks[chainID]; ok {
		paths = append(paths, filepath.Join(s.ozDir, name+".json"))
	}
	return append(paths, filepath.Join(s.ozDir, fmt.Sprintf("unknown-%d.json", chainID)))
}

// ImportedLayout looks impl up in the project's .openzeppelin manifests and
// returns the storage layout hardhat-upgrades recorded for it. It returns
// nil when no manifest knows the implementation.
func (s *ManifestStoreAdapter) ImportedLayout(_ context.Context, chainID uint64, impl common.Address) (*models.StorageLayout, error) {
	for _, path := range s.OpenZeppelinPaths(chainID) {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		var manifest ozManifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		for _, rec := range manifest.Impls {
			if rec.Layout == nil || (rec.Address != impl && !lo.Contains(rec.AllAddresses, impl)) {
				continue
			}
			layout := &models.StorageLayout{
				Storage: rec.Layout.Storage,
				Types:   make(map[string]models.StorageType, len(rec.Layout.Types)),
			}
			for id, t := range rec.Layout.Types {
				layout.Types[id] = models.StorageType{Label: t.Label, NumberOfBytes: t.NumberOfBytes}
			}
			return layout, nil
		}
	}
	return nil, nil
}
