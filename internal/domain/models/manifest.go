package models

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const ManifestVersion = "1"

// Manifest records the proxies and implementations deployed on one chain
type Manifest struct {
	ManifestVersion string                           `json:"manifestVersion"`
	ChainID         uint64                           `json:"chainId"`
	Proxies         []ProxyRecord                    `json:"proxies"`
	Impls           map[string]*ImplementationRecord `json:"impls"`
}

func NewManifest(chainID uint64) *Manifest {
	return &Manifest{
		ManifestVersion: ManifestVersion,
		ChainID:         chainID,
		Proxies:         []ProxyRecord{},
		Impls:           map[string]*ImplementationRecord{},
	}
}

type ProxyRecord struct {
	Address        common.Address `json:"address"`
	Kind           ProxyKind      `json:"kind"`
	Contract       string         `json:"contract"`
	Implementation common.Address `json:"implementation"`
	TxHash         common.Hash    `json:"txHash"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// ImplementationRecord is keyed in the manifest by creation bytecode hash
type ImplementationRecord struct {
	Address  common.Address `json:"address"`
	Contract string         `json:"contract"`
	TxHash   common.Hash    `json:"txHash"`
	Layout   *StorageLayout `json:"layout,omitempty"`
}

func (m *Manifest) FindProxy(addr common.Address) *ProxyRecord {
	for i := range m.Proxies {
		if m.Proxies[i].Address == addr {
			return &m.Proxies[i]
		}
	}
	return nil
}

// FindImplementation looks an implementation up by address
func (m *Manifest) FindImplementation(addr common.Address) *ImplementationRecord {
	for _, impl := range m.Impls {
		if impl.Address == addr {
			return impl
		}
	}
	return nil
}

// UpsertProxy adds the proxy or updates its implementation pointer
func (m *Manifest) UpsertProxy(rec ProxyRecord) {
	if existing := m.FindProxy(rec.Address); existing != nil {
		*existing = rec
		return
	}
	m.Proxies = append(m.Proxies, rec)
}

func ImplementationKey(hash common.Hash) string {
	return strings.ToLower(hash.Hex())
}

// ProxyInfo is what can be learned about a proxy from chain and manifest
type ProxyInfo struct {
	Address        common.Address
	ChainID        uint64
	HasCode        bool
	Implementation common.Address
	Admin          common.Address
	Record         *ProxyRecord
	ImplRecord     *ImplementationRecord
}
