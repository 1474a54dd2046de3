package proxy

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ovr-platform/ovr-deploy/internal/adapters/artifacts"
	"github.com/ovr-platform/ovr-deploy/internal/adapters/blockchain"
	"github.com/ovr-platform/ovr-deploy/internal/adapters/fs"
	"github.com/ovr-platform/ovr-deploy/internal/domain"
	"github.com/ovr-platform/ovr-deploy/internal/domain/config"
	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
	"github.com/ovr-platform/ovr-deploy/internal/testutil"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var marketplaceArgs = []any{
	common.HexToAddress("0x1631244689EC1fEcbDD22fb5916E920dFC9b8D30"),
	common.HexToAddress("0x93C46aA4DdfD0413d95D0eF3c478982997cE9861"),
	common.Address{},
	big.NewInt(500),
	common.HexToAddress("0x0171a49e97e6f55f344408f6e6faea52e0158f10"),
}

type toolkitEnv struct {
	root     string
	cfg      *config.RuntimeConfig
	sim      *testutil.SimChain
	chain    *blockchain.ClientAdapter
	registry *artifacts.Registry
	store    *fs.ManifestStoreAdapter
	toolkit  *Toolkit
}

func newToolkitEnv(t *testing.T, opts ...func(*config.RuntimeConfig)) *toolkitEnv {
	t.Helper()
	root := t.TempDir()
	artifactsDir := filepath.Join(root, "artifacts")
	testutil.WriteProjectArtifacts(t, artifactsDir)

	cfg := &config.RuntimeConfig{
		ProjectRoot:   root,
		ArtifactsDir:  artifactsDir,
		ManifestDir:   filepath.Join(root, ".ovr"),
		ProxyArtifact: "ERC1967Proxy",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	sim := testutil.NewSimChain(t)
	cfg.Network = sim.Network()
	log := testutil.DiscardLogger()
	chain := blockchain.NewClientAdapterWithBackend(cfg.Network, sim.Client, log)
	require.NoError(t, chain.Connect(context.Background()))

	env := &toolkitEnv{
		root:     root,
		cfg:      cfg,
		sim:      sim,
		chain:    chain,
		registry: artifacts.NewRegistry(cfg, log),
		store:    fs.NewManifestStoreAdapter(cfg),
	}
	env.toolkit = env.newToolkit(chain)
	return env
}

func (e *toolkitEnv) newToolkit(chain usecase.ChainClient) *Toolkit {
	toolkit := NewToolkit(e.cfg, chain, e.registry, e.store, testutil.DiscardLogger())
	toolkit.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return toolkit
}

func proxyRequest(mode models.DeploymentMode, proxy *common.Address) *models.DeploymentRequest {
	return &models.DeploymentRequest{
		ContractName: "OVRMarketplace",
		Mode:         mode,
		ProxyAddress: proxy,
		Initializer:  models.DefaultInitializer,
		Kind:         models.ProxyKindUUPS,
	}
}

// confirmAndRecord does what the runner does after submission
func (e *toolkitEnv) confirmAndRecord(t *testing.T, pending *models.PendingDeployment, artifact *models.Artifact, req *models.DeploymentRequest) {
	t.Helper()
	ctx := context.Background()
	for _, tx := range pending.Transactions {
		if tx.Receipt == nil {
			_, err := e.chain.WaitConfirmed(ctx, tx)
			require.NoError(t, err)
		}
	}
	pending.Artifact = artifact
	pending.Request = req
	require.NoError(t, e.toolkit.Record(ctx, pending))
}

func (e *toolkitEnv) deployMarketplace(t *testing.T) (*models.PendingDeployment, *models.Artifact) {
	t.Helper()
	artifact := testutil.MarketplaceArtifact(1).Artifact()
	req := proxyRequest(models.ModeProxyDeploy, nil)

	pending, err := e.toolkit.DeployProxy(context.Background(), artifact, req, marketplaceArgs)
	require.NoError(t, err)
	e.confirmAndRecord(t, pending, artifact, req)
	return pending, artifact
}

func (e *toolkitEnv) callUint(t *testing.T, addr common.Address, rawABI, method string) *big.Int {
	t.Helper()
	bound := bind.NewBoundContract(addr, testutil.ParseABI(rawABI), e.sim.Client, e.sim.Client, e.sim.Client)
	var out []any
	require.NoError(t, bound.Call(&bind.CallOpts{Context: context.Background()}, &out, method))
	require.Len(t, out, 1)
	return out[0].(*big.Int)
}

func (e *toolkitEnv) implementationOf(t *testing.T, proxy common.Address) common.Address {
	t.Helper()
	word, err := e.chain.StorageAt(context.Background(), proxy, ImplementationSlot)
	require.NoError(t, err)
	return common.BytesToAddress(word.Bytes())
}

func TestDeployProxy(t *testing.T) {
	env := newToolkitEnv(t)
	pending, artifact := env.deployMarketplace(t)

	require.Len(t, pending.Transactions, 2)
	assert.Equal(t, models.TxImplementation, pending.Transactions[0].Purpose)
	assert.Equal(t, models.TxProxy, pending.Transactions[1].Purpose)
	assert.False(t, pending.ImplementationReused)
	assert.NotEqual(t, pending.Address, pending.Implementation)

	// the proxy points at the implementation and was initialized through it
	assert.Equal(t, pending.Implementation, env.implementationOf(t, pending.Address))
	assert.Equal(t, int64(500), env.callUint(t, pending.Address, testutil.MarketplaceABI, "feePerc").Int64())

	manifest, err := env.store.Load(context.Background(), testutil.SimChainID)
	require.NoError(t, err)
	rec := manifest.FindProxy(pending.Address)
	require.NotNil(t, rec)
	assert.Equal(t, "OVRMarketplace", rec.Contract)
	assert.Equal(t, pending.Implementation, rec.Implementation)
	assert.Equal(t, pending.Transactions[1].Hash, rec.TxHash)

	impl := manifest.Impls[models.ImplementationKey(artifact.BytecodeHash())]
	require.NotNil(t, impl)
	assert.Equal(t, pending.Implementation, impl.Address)
	assert.Equal(t, pending.Transactions[0].Hash, impl.TxHash)
	require.NotNil(t, impl.Layout)
}

func TestDeployProxyReusesImplementation(t *testing.T) {
	env := newToolkitEnv(t)
	first, artifact := env.deployMarketplace(t)

	req := proxyRequest(models.ModeProxyDeploy, nil)
	second, err := env.toolkit.DeployProxy(context.Background(), artifact, req, marketplaceArgs)
	require.NoError(t, err)
	env.confirmAndRecord(t, second, artifact, req)

	assert.True(t, second.ImplementationReused)
	require.Len(t, second.Transactions, 1)
	assert.Equal(t, first.Implementation, second.Implementation)
	assert.NotEqual(t, first.Address, second.Address)

	manifest, err := env.store.Load(context.Background(), testutil.SimChainID)
	require.NoError(t, err)
	assert.Len(t, manifest.Proxies, 2)
	assert.Len(t, manifest.Impls, 1)
}

func TestDeployProxyRejects(t *testing.T) {
	env := newToolkitEnv(t)
	ctx := context.Background()

	t.Run("not upgradeable", func(t *testing.T) {
		req := proxyRequest(models.ModeProxyDeploy, nil)
		_, err := env.toolkit.DeployProxy(ctx, testutil.MappingArtifact().Artifact(), req, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		assert.ErrorContains(t, err, "not UUPS upgradeable")
	})

	t.Run("missing initializer", func(t *testing.T) {
		req := proxyRequest(models.ModeProxyDeploy, nil)
		req.Initializer = "initializeV2"
		_, err := env.toolkit.DeployProxy(ctx, testutil.MarketplaceArtifact(1).Artifact(), req, marketplaceArgs)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		assert.ErrorContains(t, err, `no initializer "initializeV2"`)
	})

	t.Run("bad initializer args", func(t *testing.T) {
		req := proxyRequest(models.ModeProxyDeploy, nil)
		_, err := env.toolkit.DeployProxy(ctx, testutil.MarketplaceArtifact(1).Artifact(), req, marketplaceArgs[:2])
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})
}

func TestUpgradeProxy(t *testing.T) {
	env := newToolkitEnv(t)
	deployed, _ := env.deployMarketplace(t)
	proxy := deployed.Address

	v2 := testutil.MarketplaceArtifact(2).Artifact()
	req := proxyRequest(models.ModeProxyUpgrade, &proxy)
	pending, err := env.toolkit.UpgradeProxy(context.Background(), v2, req)
	require.NoError(t, err)
	env.confirmAndRecord(t, pending, v2, req)

	require.Len(t, pending.Transactions, 2)
	assert.Equal(t, models.TxUpgrade, pending.Transactions[1].Purpose)
	assert.Equal(t, proxy, pending.Address)
	assert.NotEqual(t, deployed.Implementation, pending.Implementation)

	assert.Equal(t, pending.Implementation, env.implementationOf(t, proxy))
	assert.Equal(t, int64(2), env.callUint(t, proxy, testutil.MarketplaceV2ABI, "version").Int64())
	// storage written by the initializer survives the upgrade
	assert.Equal(t, int64(500), env.callUint(t, proxy, testutil.MarketplaceV2ABI, "feePerc").Int64())

	manifest, err := env.store.Load(context.Background(), testutil.SimChainID)
	require.NoError(t, err)
	assert.Equal(t, pending.Implementation, manifest.FindProxy(proxy).Implementation)
	assert.Len(t, manifest.Proxies, 1)
	assert.Len(t, manifest.Impls, 2)
}

func TestUpgradeProxyWithUpgradeToAndCall(t *testing.T) {
	env := newToolkitEnv(t)
	deployed, _ := env.deployMarketplace(t)
	proxy := deployed.Address

	raw := testutil.UpgradeOnlyABI
	runtime := testutil.ImplementationRuntime(testutil.ImplementationSpec{
		ABI:         testutil.ParseABI(raw),
		Initializer: "initialize",
	})
	fixture := testutil.ArtifactFixture{
		Name:             "OVRMarketplace",
		Source:           "contracts/OVRMarketplace.sol",
		ABI:              raw,
		Bytecode:         testutil.CreationCode(runtime),
		DeployedBytecode: runtime,
		Layout:           testutil.MarketplaceLayoutV1,
	}

	req := proxyRequest(models.ModeProxyUpgrade, &proxy)
	pending, err := env.toolkit.UpgradeProxy(context.Background(), fixture.Artifact(), req)
	require.NoError(t, err)
	env.confirmAndRecord(t, pending, fixture.Artifact(), req)

	assert.Equal(t, pending.Implementation, env.implementationOf(t, proxy))
}

func TestUpgradeProxyMismatch(t *testing.T) {
	env := newToolkitEnv(t)
	ctx := context.Background()
	deployed, _ := env.deployMarketplace(t)
	proxy := deployed.Address

	t.Run("incompatible layout", func(t *testing.T) {
		fixture := testutil.MarketplaceArtifact(2)
		fixture.Layout = testutil.MarketplaceLayoutBroken
		_, err := env.toolkit.UpgradeProxy(ctx, fixture.Artifact(), proxyRequest(models.ModeProxyUpgrade, &proxy))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUpgradeTargetMismatch)
		assert.ErrorContains(t, err, "feePerc: type changed from uint256 to address")
	})

	t.Run("different contract", func(t *testing.T) {
		_, err := env.toolkit.UpgradeProxy(ctx, testutil.RentingArtifact().Artifact(), proxyRequest(models.ModeProxyUpgrade, &proxy))
		assert.ErrorIs(t, err, domain.ErrUpgradeTargetMismatch)
		assert.ErrorContains(t, err, "proxy was deployed for OVRMarketplace")
	})

	t.Run("no code", func(t *testing.T) {
		eoa := common.HexToAddress("0x7616bFb03e250470386ab4888c447936d065816B")
		_, err := env.toolkit.UpgradeProxy(ctx, testutil.MarketplaceArtifact(2).Artifact(), proxyRequest(models.ModeProxyUpgrade, &eoa))
		assert.ErrorIs(t, err, domain.ErrUpgradeTargetMismatch)
		assert.ErrorContains(t, err, "no contract code")
	})

	t.Run("not a proxy", func(t *testing.T) {
		plain, err := env.chain.Deploy(ctx, testutil.MappingArtifact().Artifact(), common.Address{})
		require.NoError(t, err)
		_, err = env.chain.WaitConfirmed(ctx, plain)
		require.NoError(t, err)

		_, err = env.toolkit.UpgradeProxy(ctx, testutil.MarketplaceArtifact(2).Artifact(), proxyRequest(models.ModeProxyUpgrade, &plain.ContractAddress))
		assert.ErrorIs(t, err, domain.ErrUpgradeTargetMismatch)
		assert.ErrorContains(t, err, "implementation slot is empty")
	})

	t.Run("new implementation not upgradeable", func(t *testing.T) {
		fixture := testutil.MappingArtifact()
		fixture.Name = "OVRMarketplace"
		_, err := env.toolkit.UpgradeProxy(ctx, fixture.Artifact(), proxyRequest(models.ModeProxyUpgrade, &proxy))
		assert.ErrorIs(t, err, domain.ErrUpgradeTargetMismatch)
		assert.ErrorContains(t, err, "would lose upgradeability")
	})

	// nothing was changed by the refused upgrades
	assert.Equal(t, deployed.Implementation, env.implementationOf(t, proxy))
}

func TestInspect(t *testing.T) {
	env := newToolkitEnv(t)
	deployed, _ := env.deployMarketplace(t)

	info, err := env.toolkit.Inspect(context.Background(), deployed.Address)
	require.NoError(t, err)
	assert.True(t, info.HasCode)
	assert.Equal(t, uint64(testutil.SimChainID), info.ChainID)
	assert.Equal(t, deployed.Implementation, info.Implementation)
	assert.Equal(t, common.Address{}, info.Admin)
	require.NotNil(t, info.Record)
	require.NotNil(t, info.ImplRecord)
	assert.Equal(t, "contracts/OVRMarketplace.sol:OVRMarketplace", info.ImplRecord.Contract)

	unknown, err := env.toolkit.Inspect(context.Background(), common.HexToAddress("0x000000000000000000000000000000000000dEaD"))
	require.NoError(t, err)
	assert.False(t, unknown.HasCode)
	assert.Nil(t, unknown.Record)
	assert.Nil(t, unknown.ImplRecord)
}

func TestDeployProxyFallsBackToBundledProxy(t *testing.T) {
	env := newToolkitEnv(t, func(cfg *config.RuntimeConfig) {
		cfg.ProxyArtifact = "NotCompiledProxy"
	})
	pending, _ := env.deployMarketplace(t)

	code, err := env.chain.CodeAt(context.Background(), pending.Address)
	require.NoError(t, err)
	bundled, err := artifacts.BuiltinERC1967Proxy()
	require.NoError(t, err)
	assert.Equal(t, bundled.DeployedBytecode, code)

	assert.Equal(t, pending.Implementation, env.implementationOf(t, pending.Address))
	assert.Equal(t, int64(500), env.callUint(t, pending.Address, testutil.MarketplaceABI, "feePerc").Int64())
}

// proxyFailingChain submits everything except the proxy contract
type proxyFailingChain struct {
	usecase.ChainClient
}

func (c proxyFailingChain) Deploy(ctx context.Context, artifact *models.Artifact, args ...any) (*models.PendingTransaction, error) {
	if artifact.Name == "ERC1967Proxy" {
		return nil, fmt.Errorf("%w: nonce too low", domain.ErrSubmission)
	}
	return c.ChainClient.Deploy(ctx, artifact, args...)
}

func TestDeployProxyRecordsImplementationBeforeProxy(t *testing.T) {
	env := newToolkitEnv(t)
	ctx := context.Background()
	artifact := testutil.MarketplaceArtifact(1).Artifact()

	failing := env.newToolkit(proxyFailingChain{ChainClient: env.chain})
	_, err := failing.DeployProxy(ctx, artifact, proxyRequest(models.ModeProxyDeploy, nil), marketplaceArgs)
	require.ErrorIs(t, err, domain.ErrSubmission)

	manifest, err := env.store.Load(ctx, testutil.SimChainID)
	require.NoError(t, err)
	assert.Empty(t, manifest.Proxies)
	impl := manifest.Impls[models.ImplementationKey(artifact.BytecodeHash())]
	require.NotNil(t, impl)
	assert.Equal(t, "contracts/OVRMarketplace.sol:OVRMarketplace", impl.Contract)
	assert.NotEqual(t, common.Hash{}, impl.TxHash)
	require.NotNil(t, impl.Layout)

	// the retry reuses the orphaned implementation
	req := proxyRequest(models.ModeProxyDeploy, nil)
	pending, err := env.toolkit.DeployProxy(ctx, artifact, req, marketplaceArgs)
	require.NoError(t, err)
	env.confirmAndRecord(t, pending, artifact, req)
	assert.True(t, pending.ImplementationReused)
	assert.Equal(t, impl.Address, pending.Implementation)
	require.Len(t, pending.Transactions, 1)
}

// forgetLayouts drops the layouts our manifest holds, as for a proxy
// deployed by another tool
func (e *toolkitEnv) forgetLayouts(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	manifest, err := e.store.Load(ctx, testutil.SimChainID)
	require.NoError(t, err)
	for _, impl := range manifest.Impls {
		impl.Layout = nil
	}
	require.NoError(t, e.store.Save(ctx, manifest))
}

func (e *toolkitEnv) writeOpenZeppelinManifest(t *testing.T, impl common.Address, layout string) {
	t.Helper()
	manifest := fmt.Sprintf(`{
  "manifestVersion": "3.2",
  "proxies": [],
  "impls": {
    "5b2a9ad0bb9c40a7c0da8a29fd3a1dcb2b5a4c6e5bd1c7a3e1e6e9f7c0a1b2c3": {
      "address": %q,
      "txHash": "0x01",
      "layout": %s
    }
  }
}`, impl.Hex(), layout)
	dir := filepath.Join(e.root, ".openzeppelin")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("unknown-%d.json", testutil.SimChainID)), []byte(manifest), 0o644))
}

func TestUpgradeProxyLayoutSources(t *testing.T) {
	ctx := context.Background()

	t.Run("refused without a known layout", func(t *testing.T) {
		env := newToolkitEnv(t)
		deployed, _ := env.deployMarketplace(t)
		env.forgetLayouts(t)

		_, err := env.toolkit.UpgradeProxy(ctx, testutil.MarketplaceArtifact(2).Artifact(), proxyRequest(models.ModeProxyUpgrade, &deployed.Address))
		require.ErrorIs(t, err, domain.ErrUpgradeTargetMismatch)
		assert.ErrorContains(t, err, "no storage layout is known for the current implementation "+deployed.Implementation.Hex())
		assert.Equal(t, deployed.Implementation, env.implementationOf(t, deployed.Address))
	})

	t.Run("refused when the new artifact has no layout", func(t *testing.T) {
		env := newToolkitEnv(t)
		deployed, _ := env.deployMarketplace(t)

		fixture := testutil.MarketplaceArtifact(2)
		fixture.Layout = ""
		_, err := env.toolkit.UpgradeProxy(ctx, fixture.Artifact(), proxyRequest(models.ModeProxyUpgrade, &deployed.Address))
		require.ErrorIs(t, err, domain.ErrUpgradeTargetMismatch)
		assert.ErrorContains(t, err, "OVRMarketplace has no storage layout")
	})

	t.Run("layout imported from openzeppelin manifest", func(t *testing.T) {
		env := newToolkitEnv(t)
		deployed, _ := env.deployMarketplace(t)
		env.forgetLayouts(t)
		env.writeOpenZeppelinManifest(t, deployed.Implementation, testutil.MarketplaceLayoutV1)

		v2 := testutil.MarketplaceArtifact(2).Artifact()
		req := proxyRequest(models.ModeProxyUpgrade, &deployed.Address)
		pending, err := env.toolkit.UpgradeProxy(ctx, v2, req)
		require.NoError(t, err)
		env.confirmAndRecord(t, pending, v2, req)
		assert.Equal(t, pending.Implementation, env.implementationOf(t, deployed.Address))
	})

	t.Run("imported layout still checked", func(t *testing.T) {
		env := newToolkitEnv(t)
		deployed, _ := env.deployMarketplace(t)
		env.forgetLayouts(t)
		env.writeOpenZeppelinManifest(t, deployed.Implementation, testutil.MarketplaceLayoutV1)

		fixture := testutil.MarketplaceArtifact(2)
		fixture.Layout = testutil.MarketplaceLayoutBroken
		_, err := env.toolkit.UpgradeProxy(ctx, fixture.Artifact(), proxyRequest(models.ModeProxyUpgrade, &deployed.Address))
		require.ErrorIs(t, err, domain.ErrUpgradeTargetMismatch)
		assert.ErrorContains(t, err, "feePerc: type changed from uint256 to address")
	})

	t.Run("unsafe skip allows unknown layout", func(t *testing.T) {
		env := newToolkitEnv(t, func(cfg *config.RuntimeConfig) {
			cfg.UnsafeSkipLayout = true
		})
		deployed, _ := env.deployMarketplace(t)
		env.forgetLayouts(t)

		v2 := testutil.MarketplaceArtifact(2).Artifact()
		req := proxyRequest(models.ModeProxyUpgrade, &deployed.Address)
		pending, err := env.toolkit.UpgradeProxy(ctx, v2, req)
		require.NoError(t, err)
		env.confirmAndRecord(t, pending, v2, req)
		assert.Equal(t, pending.Implementation, env.implementationOf(t, deployed.Address))
	})
}
