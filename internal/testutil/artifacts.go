package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
	"github.com/stretchr/testify/require"
)

const (
	MappingABI = `[{"type":"constructor","inputs":[{"name":"_OVRLand","type":"address"}],"stateMutability":"nonpayable"}]`

	ExperienceABI = `[{"type":"constructor","inputs":[
  {"name":"_OVRLand","type":"address"},
  {"name":"_renting","type":"address"}],"stateMutability":"nonpayable"}]`

	ProxyABI = `[{"type":"constructor","inputs":[
  {"name":"_logic","type":"address"},
  {"name":"_data","type":"bytes"}],"stateMutability":"payable"}]`

	uupsMethods = `
  {"type":"function","name":"upgradeTo","inputs":[{"name":"newImplementation","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"upgradeToAndCall","inputs":[{"name":"newImplementation","type":"address"},{"name":"data","type":"bytes"}],"outputs":[],"stateMutability":"payable"},
  {"type":"function","name":"proxiableUUID","inputs":[],"outputs":[{"name":"","type":"bytes32"}],"stateMutability":"view"}`

	marketplaceInit = `
  {"type":"function","name":"initialize","inputs":[
    {"name":"_tokenAddress","type":"address"},
    {"name":"_OVRLandAddress","type":"address"},
    {"name":"_OVRLandContainer","type":"address"},
    {"name":"_feePerc","type":"uint256"},
    {"name":"_feeReceiver","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"feePerc","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"}`

	MarketplaceABI = `[` + marketplaceInit + `,` + uupsMethods + `]`

	MarketplaceV2ABI = `[` + marketplaceInit + `,` + uupsMethods + `,
  {"type":"function","name":"version","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"pure"}]`

	RentingABI = `[
  {"type":"function","name":"initialize","inputs":[
    {"name":"_tokenAddress","type":"address"},
    {"name":"_OVRLandAddress","type":"address"},
    {"name":"_OVRLandExperience","type":"address"},
    {"name":"_OVRLandHosting","type":"address"},
    {"name":"_feeReceiver","type":"address"},
    {"name":"_noRentPrice","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"noRentPrice","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},` + uupsMethods + `]`

	// UpgradeOnlyABI exposes no initializer and no upgradeTo
	UpgradeOnlyABI = `[{"type":"function","name":"upgradeToAndCall","inputs":[{"name":"newImplementation","type":"address"},{"name":"data","type":"bytes"}],"outputs":[],"stateMutability":"payable"},
  {"type":"function","name":"initialize","inputs":[],"outputs":[],"stateMutability":"nonpayable"}]`
)

// Storage layouts of the marketplace fixture. V2 keeps V1 and shrinks the gap.
const (
	MarketplaceLayoutV1 = `{"storage":[
  {"astId":1,"contract":"contracts/OVRMarketplace.sol:OVRMarketplace","label":"feePerc","offset":0,"slot":"0","type":"t_uint256"},
  {"astId":2,"contract":"contracts/OVRMarketplace.sol:OVRMarketplace","label":"_initialized","offset":0,"slot":"1","type":"t_bool"},
  {"astId":3,"contract":"contracts/OVRMarketplace.sol:OVRMarketplace","label":"__gap","offset":0,"slot":"2","type":"t_array(t_uint256)50_storage"}],
 "types":{
  "t_uint256":{"encoding":"inplace","label":"uint256","numberOfBytes":"32"},
  "t_bool":{"encoding":"inplace","label":"bool","numberOfBytes":"1"},
  "t_array(t_uint256)50_storage":{"encoding":"inplace","label":"uint256[50]","numberOfBytes":"1600"}}}`

	MarketplaceLayoutV2 = `{"storage":[
  {"astId":1,"contract":"contracts/OVRMarketplace.sol:OVRMarketplace","label":"feePerc","offset":0,"slot":"0","type":"t_uint256"},
  {"astId":2,"contract":"contracts/OVRMarketplace.sol:OVRMarketplace","label":"_initialized","offset":0,"slot":"1","type":"t_bool"},
  {"astId":4,"contract":"contracts/OVRMarketplace.sol:OVRMarketplace","label":"listingCount","offset":0,"slot":"2","type":"t_uint256"},
  {"astId":3,"contract":"contracts/OVRMarketplace.sol:OVRMarketplace","label":"__gap","offset":0,"slot":"3","type":"t_array(t_uint256)49_storage"}],
 "types":{
  "t_uint256":{"encoding":"inplace","label":"uint256","numberOfBytes":"32"},
  "t_bool":{"encoding":"inplace","label":"bool","numberOfBytes":"1"},
  "t_array(t_uint256)49_storage":{"encoding":"inplace","label":"uint256[49]","numberOfBytes":"1568"}}}`

	// MarketplaceLayoutBroken retypes feePerc
	MarketplaceLayoutBroken = `{"storage":[
  {"astId":1,"contract":"contracts/OVRMarketplace.sol:OVRMarketplace","label":"feePerc","offset":0,"slot":"0","type":"t_address"},
  {"astId":2,"contract":"contracts/OVRMarketplace.sol:OVRMarketplace","label":"_initialized","offset":0,"slot":"1","type":"t_bool"}],
 "types":{
  "t_address":{"encoding":"inplace","label":"address","numberOfBytes":"20"},
  "t_bool":{"encoding":"inplace","label":"bool","numberOfBytes":"1"}}}`
)

// ArtifactFixture is a compiled contract to write into a fake build output
type ArtifactFixture struct {
	Name             string
	Source           string
	ABI              string
	Bytecode         []byte
	DeployedBytecode []byte
	// BytecodeHex overrides Bytecode, e.g. to carry link placeholders
	BytecodeHex string
	// Layout is a raw solc storageLayout object
	Layout string
}

func (f ArtifactFixture) bytecodeHex() string {
	if f.BytecodeHex != "" {
		return f.BytecodeHex
	}
	return hexutil.Encode(f.Bytecode)
}

// Artifact builds the in-memory artifact the registry would load for f
func (f ArtifactFixture) Artifact() *models.Artifact {
	a := &models.Artifact{
		Name:             f.Name,
		SourceName:       f.Source,
		ABI:              ParseABI(f.ABI),
		RawABI:           json.RawMessage(f.ABI),
		Bytecode:         f.Bytecode,
		DeployedBytecode: f.DeployedBytecode,
	}
	if f.Layout != "" {
		a.StorageLayout = &models.StorageLayout{}
		if err := json.Unmarshal([]byte(f.Layout), a.StorageLayout); err != nil {
			panic(err)
		}
	}
	return a
}

// RevertingArtifact fails during construction
func RevertingArtifact() ArtifactFixture {
	return ArtifactFixture{
		Name:     "Reverting",
		Source:   "contracts/Reverting.sol",
		ABI:      `[]`,
		Bytecode: RevertingCreationCode(),
	}
}

// WriteHardhatArtifact writes root/<Source>/<Name>.json and returns its path
func WriteHardhatArtifact(t *testing.T, root string, f ArtifactFixture) string {
	t.Helper()

	doc := map[string]any{
		"_format":                "hh-sol-artifact-1",
		"contractName":           f.Name,
		"sourceName":             f.Source,
		"abi":                    json.RawMessage(f.ABI),
		"bytecode":               f.bytecodeHex(),
		"deployedBytecode":       hexutil.Encode(f.DeployedBytecode),
		"linkReferences":         map[string]any{},
		"deployedLinkReferences": map[string]any{},
	}
	if f.Layout != "" {
		doc["storageLayout"] = json.RawMessage(f.Layout)
	}

	path := filepath.Join(root, f.Source, f.Name+".json")
	writeJSON(t, path, doc)
	return path
}

// WriteHardhatDebugFile points an artifact at a build-info file holding its layout
func WriteHardhatDebugFile(t *testing.T, root string, f ArtifactFixture, buildInfoID string) {
	t.Helper()

	dir := filepath.Join(root, f.Source)
	rel, err := filepath.Rel(dir, filepath.Join(root, "build-info", buildInfoID+".json"))
	require.NoError(t, err)

	writeJSON(t, filepath.Join(dir, f.Name+".dbg.json"), map[string]any{
		"_format":   "hh-sol-dbg-1",
		"buildInfo": rel,
	})
	writeJSON(t, filepath.Join(root, "build-info", buildInfoID+".json"), map[string]any{
		"id": buildInfoID,
		"output": map[string]any{
			"contracts": map[string]any{
				f.Source: map[string]any{
					f.Name: map[string]any{"storageLayout": json.RawMessage(f.Layout)},
				},
			},
		},
	})
}

// WriteFoundryArtifact writes root/<File.sol>/<Name>.json in forge's layout
func WriteFoundryArtifact(t *testing.T, root string, f ArtifactFixture) string {
	t.Helper()

	doc := map[string]any{
		"abi": json.RawMessage(f.ABI),
		"bytecode": map[string]any{
			"object":         f.bytecodeHex(),
			"linkReferences": map[string]any{},
		},
		"deployedBytecode": map[string]any{
			"object": hexutil.Encode(f.DeployedBytecode),
		},
		"metadata": map[string]any{
			"settings": map[string]any{
				"compilationTarget": map[string]string{f.Source: f.Name},
			},
		},
	}
	if f.Layout != "" {
		doc["storageLayout"] = json.RawMessage(f.Layout)
	}

	path := filepath.Join(root, filepath.Base(f.Source), f.Name+".json")
	writeJSON(t, path, doc)
	return path
}

// MappingArtifact deploys with one address argument and no logic
func MappingArtifact() ArtifactFixture {
	runtime := []byte{opSTOP}
	return ArtifactFixture{
		Name:             "OVRLandMapping",
		Source:           "contracts/OVRLandMapping.sol",
		ABI:              MappingABI,
		Bytecode:         CreationCode(runtime),
		DeployedBytecode: runtime,
	}
}

func ExperienceArtifact() ArtifactFixture {
	runtime := []byte{opSTOP, opSTOP}
	return ArtifactFixture{
		Name:             "OVRLandExperience",
		Source:           "contracts/OVRLandExperience.sol",
		ABI:              ExperienceABI,
		Bytecode:         CreationCode(runtime),
		DeployedBytecode: runtime,
	}
}

// MarketplaceArtifact is a UUPS implementation storing feePerc in slot 0.
// Version 2 adds version() and a different storage layout.
func MarketplaceArtifact(version int) ArtifactFixture {
	spec := ImplementationSpec{
		Initializer:  "initialize",
		InitArgIndex: 3,
		Getter:       "feePerc",
	}
	raw, layout := MarketplaceABI, MarketplaceLayoutV1
	if version >= 2 {
		raw, layout = MarketplaceV2ABI, MarketplaceLayoutV2
		spec.Version = "version"
		spec.VersionValue = byte(version)
	}
	spec.ABI = ParseABI(raw)

	runtime := ImplementationRuntime(spec)
	return ArtifactFixture{
		Name:             "OVRMarketplace",
		Source:           "contracts/OVRMarketplace.sol",
		ABI:              raw,
		Bytecode:         CreationCode(runtime),
		DeployedBytecode: runtime,
		Layout:           layout,
	}
}

func RentingArtifact() ArtifactFixture {
	runtime := ImplementationRuntime(ImplementationSpec{
		ABI:          ParseABI(RentingABI),
		Initializer:  "initialize",
		InitArgIndex: 5,
		Getter:       "noRentPrice",
	})
	return ArtifactFixture{
		Name:             "OVRLandRenting",
		Source:           "contracts/OVRLandRenting.sol",
		ABI:              RentingABI,
		Bytecode:         CreationCode(runtime),
		DeployedBytecode: runtime,
	}
}

func ProxyArtifact() ArtifactFixture {
	return ArtifactFixture{
		Name:             "ERC1967Proxy",
		Source:           "@openzeppelin/contracts/proxy/ERC1967/ERC1967Proxy.sol",
		ABI:              ProxyABI,
		Bytecode:         ProxyCreationCode(),
		DeployedBytecode: ProxyRuntime(),
	}
}

// WriteProjectArtifacts writes the contracts every job needs as Hardhat artifacts
func WriteProjectArtifacts(t *testing.T, root string) {
	t.Helper()
	for _, f := range []ArtifactFixture{
		MappingArtifact(),
		ExperienceArtifact(),
		MarketplaceArtifact(1),
		RentingArtifact(),
		ProxyArtifact(),
	} {
		WriteHardhatArtifact(t, root, f)
	}
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}
