package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Artifact is a compiled contract loaded from build output
type Artifact struct {
	Name       string
	SourceName string
	// Path is the artifact file the contract was read from
	Path             string
	ABI              abi.ABI
	RawABI           json.RawMessage
	Bytecode         []byte
	DeployedBytecode []byte
	LinkReferences   map[string]map[string][]LinkReference
	// Unlinked is set when the bytecode still contains library placeholders
	Unlinked      bool
	StorageLayout *StorageLayout
}

// LinkReference marks a library placeholder in creation bytecode
type LinkReference struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

func (a *Artifact) FullyQualifiedName() string {
	if a.SourceName == "" {
		return a.Name
	}
	return fmt.Sprintf("%s:%s", a.SourceName, a.Name)
}

// BytecodeHash identifies an implementation across runs
func (a *Artifact) BytecodeHash() common.Hash {
	return crypto.Keccak256Hash(a.Bytecode)
}

func (a *Artifact) NeedsLinking() bool {
	return a.Unlinked || len(a.LinkReferences) > 0
}

// IsDeployable reports whether the artifact carries creation code.
// Interfaces and abstract contracts compile to empty bytecode.
func (a *Artifact) IsDeployable() bool {
	return len(a.Bytecode) > 0
}

func (a *Artifact) HasMethod(name string) bool {
	_, ok := a.ABI.Methods[name]
	return ok
}

// StorageLayout mirrors solc's storageLayout output
type StorageLayout struct {
	Storage []StorageEntry         `json:"storage"`
	Types   map[string]StorageType `json:"types"`
}

type StorageEntry struct {
	AstID    int    `json:"astId,omitempty"`
	Contract string `json:"contract"`
	Label    string `json:"label"`
	Offset   int    `json:"offset"`
	Slot     string `json:"slot"`
	Type     string `json:"type"`
}

type StorageType struct {
	Encoding      string         `json:"encoding"`
	Label         string         `json:"label"`
	NumberOfBytes string         `json:"numberOfBytes"`
	Members       []StorageEntry `json:"members,omitempty"`
}

// SlotNumber parses the decimal slot string solc emits
func (e StorageEntry) SlotNumber() (uint64, error) {
	return strconv.ParseUint(e.Slot, 10, 64)
}

// TypeLabel resolves the human readable type of an entry, falling back to the type id
func (l *StorageLayout) TypeLabel(typeID string) string {
	if t, ok := l.Types[typeID]; ok && t.Label != "" {
		return t.Label
	}
	return typeID
}

// TypeSize returns the byte size of a type, or 0 when unknown
func (l *StorageLayout) TypeSize(typeID string) uint64 {
	t, ok := l.Types[typeID]
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(t.NumberOfBytes, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
