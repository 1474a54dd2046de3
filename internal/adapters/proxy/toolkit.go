package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ovr-platform/ovr-deploy/internal/adapters/artifacts"
	"github.com/ovr-platform/ovr-deploy/internal/domain"
	"github.com/ovr-platform/ovr-deploy/internal/domain/config"
	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
	"github.com/samber/lo"
)

// ERC-1967 storage slots
var (
	ImplementationSlot = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")
	AdminSlot          = common.HexToHash("0xb53127684a568b3173ae13b9f8a6016e243e63b6e8ee1178d6a717850b5d6103")
)

const (
	methodUpgradeTo        = "upgradeTo"
	methodUpgradeToAndCall = "upgradeToAndCall"
)

// Toolkit deploys and upgrades UUPS proxies and keeps the per-chain manifest
type Toolkit struct {
	proxyArtifact    string
	unsafeSkipLayout bool
	chain            usecase.ChainClient
	registry         usecase.ArtifactRegistry
	manifests        usecase.ManifestStore
	log              *slog.Logger
	now              func() time.Time
}

// NewToolkit creates a toolkit deploying cfg.ProxyArtifact as the proxy
// contract, or the bundled ERC1967Proxy when the project has none
func NewToolkit(
	cfg *config.RuntimeConfig,
	chain usecase.ChainClient,
	registry usecase.ArtifactRegistry,
	manifests usecase.ManifestStore,
	log *slog.Logger,
) *Toolkit {
	return &Toolkit{
		proxyArtifact:    cfg.ProxyArtifact,
		unsafeSkipLayout: cfg.UnsafeSkipLayout,
		chain:            chain,
		registry:         registry,
		manifests:        manifests,
		log:              log.With("component", "proxy"),
		now:              time.Now,
	}
}

// DeployProxy deploys (or reuses) the implementation, waits for it, then
// deploys ERC1967Proxy(implementation, initializer calldata)
func (t *Toolkit) DeployProxy(ctx context.Context, artifact *models.Artifact, req *models.DeploymentRequest, initArgs []any) (*models.PendingDeployment, error) {
	if !isUUPS(artifact) {
		return nil, fmt.Errorf("%w: %s is not UUPS upgradeable (no %s or %s)",
			domain.ErrInvalidRequest, artifact.Name, methodUpgradeTo, methodUpgradeToAndCall)
	}
	if !artifact.HasMethod(req.Initializer) {
		return nil, fmt.Errorf("%w: %s has no initializer %q", domain.ErrInvalidRequest, artifact.Name, req.Initializer)
	}
	initData, err := artifact.ABI.Pack(req.Initializer, initArgs...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode %s call: %v", domain.ErrInvalidRequest, req.Initializer, err)
	}

	proxyArtifact, err := t.resolveProxyArtifact(ctx)
	if err != nil {
		return nil, err
	}

	impl, err := t.deployImplementation(ctx, artifact)
	if err != nil {
		return nil, err
	}

	proxyTx, err := t.chain.Deploy(ctx, proxyArtifact, impl.address, initData)
	if err != nil {
		return nil, err
	}
	proxyTx.Purpose = models.TxProxy
	t.log.Debug("proxy deployment sent", "contract", artifact.Name, "implementation", impl.address.Hex(), "proxy", proxyTx.ContractAddress.Hex())

	return &models.PendingDeployment{
		Transactions:         append(impl.txs, proxyTx),
		Address:              proxyTx.ContractAddress,
		Implementation:       impl.address,
		ImplementationReused: impl.reused,
	}, nil
}

// UpgradeProxy checks the proxy can take the new implementation, deploys it
// and points the proxy at it
func (t *Toolkit) UpgradeProxy(ctx context.Context, artifact *models.Artifact, req *models.DeploymentRequest) (*models.PendingDeployment, error) {
	if req.ProxyAddress == nil {
		return nil, fmt.Errorf("%w: proxy address is required", domain.ErrInvalidRequest)
	}
	proxy := *req.ProxyAddress

	current, err := t.checkUpgrade(ctx, artifact, proxy)
	if err != nil {
		return nil, err
	}

	impl, err := t.deployImplementation(ctx, artifact)
	if err != nil {
		return nil, err
	}
	if impl.address == current {
		t.log.Warn("proxy already points at this implementation", "proxy", proxy.Hex(), "implementation", current.Hex())
	}

	var upgradeTx *models.PendingTransaction
	if artifact.HasMethod(methodUpgradeTo) {
		upgradeTx, err = t.chain.Transact(ctx, proxy, artifact.ABI, methodUpgradeTo, impl.address)
	} else {
		upgradeTx, err = t.chain.Transact(ctx, proxy, artifact.ABI, methodUpgradeToAndCall, impl.address, []byte{})
	}
	if err != nil {
		return nil, err
	}
	upgradeTx.Purpose = models.TxUpgrade

	return &models.PendingDeployment{
		Transactions:         append(impl.txs, upgradeTx),
		Address:              proxy,
		Implementation:       impl.address,
		ImplementationReused: impl.reused,
	}, nil
}

// checkUpgrade returns the current implementation of proxy, or an
// UpgradeMismatchErr listing every reason the upgrade is refused
func (t *Toolkit) checkUpgrade(ctx context.Context, artifact *models.Artifact, proxy common.Address) (common.Address, error) {
	mismatch := func(reasons ...string) error {
		return domain.UpgradeMismatchErr{Proxy: proxy, Reasons: reasons}
	}

	code, err := t.chain.CodeAt(ctx, proxy)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to read code at %s: %w", proxy.Hex(), err)
	}
	if len(code) == 0 {
		return common.Address{}, mismatch("no contract code at the proxy address")
	}

	word, err := t.chain.StorageAt(ctx, proxy, ImplementationSlot)
	if err != nil {
		return common.Address{}, err
	}
	current := common.BytesToAddress(word.Bytes())
	if current == (common.Address{}) {
		return common.Address{}, mismatch("implementation slot is empty; not an ERC-1967 proxy")
	}

	var reasons []string
	if !isUUPS(artifact) {
		reasons = append(reasons, fmt.Sprintf("%s has no %s or %s; the proxy would lose upgradeability",
			artifact.Name, methodUpgradeTo, methodUpgradeToAndCall))
	}

	manifest, err := t.loadManifest(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if rec := manifest.FindProxy(proxy); rec != nil && rec.Contract != "" && rec.Contract != artifact.Name {
		reasons = append(reasons, fmt.Sprintf("proxy was deployed for %s, not %s", rec.Contract, artifact.Name))
	}

	oldLayout, err := t.currentLayout(ctx, manifest, current)
	if err != nil {
		return common.Address{}, err
	}
	switch {
	case oldLayout == nil && t.unsafeSkipLayout:
		t.log.Warn("no storage layout known for the current implementation; skipping layout check",
			"proxy", proxy.Hex(), "implementation", current.Hex())
	case oldLayout == nil:
		reasons = append(reasons, fmt.Sprintf(
			"no storage layout is known for the current implementation %s; record it in .openzeppelin or pass --unsafe-skip-layout",
			current.Hex()))
	case artifact.StorageLayout == nil && t.unsafeSkipLayout:
		t.log.Warn("artifact has no storage layout; skipping layout check", "contract", artifact.Name)
	case artifact.StorageLayout == nil:
		reasons = append(reasons, fmt.Sprintf(
			"%s has no storage layout; enable the storageLayout compiler output or pass --unsafe-skip-layout",
			artifact.Name))
	default:
		reasons = append(reasons, CompareLayouts(oldLayout, artifact.StorageLayout)...)
	}

	if len(reasons) > 0 {
		return common.Address{}, mismatch(reasons...)
	}
	return current, nil
}

// currentLayout finds the layout of the implementation a proxy points at,
// first in our manifest and then in the project's .openzeppelin manifests
func (t *Toolkit) currentLayout(ctx context.Context, manifest *models.Manifest, current common.Address) (*models.StorageLayout, error) {
	if rec := manifest.FindImplementation(current); rec != nil && rec.Layout != nil {
		return rec.Layout, nil
	}
	layout, err := t.manifests.ImportedLayout(ctx, manifest.ChainID, current)
	if err != nil {
		return nil, fmt.Errorf("failed to read imported layouts: %w", err)
	}
	if layout != nil {
		t.log.Debug("using imported storage layout", "implementation", current.Hex())
	}
	return layout, nil
}

// resolveProxyArtifact prefers the project's own proxy contract
func (t *Toolkit) resolveProxyArtifact(ctx context.Context) (*models.Artifact, error) {
	artifact, err := t.registry.Resolve(ctx, t.proxyArtifact)
	if err == nil {
		return artifact, nil
	}
	if !errors.Is(err, domain.ErrArtifactNotFound) {
		return nil, fmt.Errorf("failed to resolve proxy contract: %w", err)
	}
	t.log.Info("proxy contract not in build output, using bundled ERC1967Proxy", "name", t.proxyArtifact)
	return artifacts.BuiltinERC1967Proxy()
}

type implementation struct {
	address common.Address
	reused  bool
	txs     []*models.PendingTransaction
}

// deployImplementation reuses an implementation with the same creation
// bytecode when the manifest knows one that still has code, otherwise it
// deploys a new one, waits for it to confirm and records it
func (t *Toolkit) deployImplementation(ctx context.Context, artifact *models.Artifact) (*implementation, error) {
	manifest, err := t.loadManifest(ctx)
	if err != nil {
		return nil, err
	}

	key := models.ImplementationKey(artifact.BytecodeHash())
	if rec, ok := manifest.Impls[key]; ok {
		code, err := t.chain.CodeAt(ctx, rec.Address)
		if err == nil && len(code) > 0 {
			t.log.Info("reusing implementation", "contract", artifact.Name, "address", rec.Address.Hex())
			return &implementation{address: rec.Address, reused: true}, nil
		}
		t.log.Debug("recorded implementation has no code, deploying again", "address", rec.Address.Hex())
	}

	tx, err := t.chain.Deploy(ctx, artifact)
	if err != nil {
		return nil, err
	}
	tx.Purpose = models.TxImplementation

	if _, err := t.chain.WaitConfirmed(ctx, tx); err != nil {
		return nil, err
	}

	// record it before the proxy step runs
	manifest.Impls[key] = &models.ImplementationRecord{
		Address:  tx.ContractAddress,
		Contract: artifact.FullyQualifiedName(),
		TxHash:   tx.Hash,
		Layout:   artifact.StorageLayout,
	}
	if err := t.manifests.Save(ctx, manifest); err != nil {
		t.log.Warn("failed to record implementation", "address", tx.ContractAddress.Hex(), "error", err)
	}
	return &implementation{address: tx.ContractAddress, txs: []*models.PendingTransaction{tx}}, nil
}

// Record writes a confirmed proxy deployment or upgrade to the manifest
func (t *Toolkit) Record(ctx context.Context, pending *models.PendingDeployment) error {
	if pending.Artifact == nil || pending.Request == nil {
		return fmt.Errorf("incomplete deployment: missing artifact or request")
	}
	manifest, err := t.loadManifest(ctx)
	if err != nil {
		return err
	}

	artifact := pending.Artifact
	key := models.ImplementationKey(artifact.BytecodeHash())
	rec, ok := manifest.Impls[key]
	if !ok || rec.Address != pending.Implementation {
		rec = &models.ImplementationRecord{
			Address:  pending.Implementation,
			Contract: artifact.FullyQualifiedName(),
		}
		if implTx, found := lo.Find(pending.Transactions, func(tx *models.PendingTransaction) bool {
			return tx.Purpose == models.TxImplementation
		}); found {
			rec.TxHash = implTx.Hash
		}
		manifest.Impls[key] = rec
	}
	if rec.Layout == nil {
		rec.Layout = artifact.StorageLayout
	}

	var txHash common.Hash
	if last := pending.Last(); last != nil {
		txHash = last.Hash
	}
	manifest.UpsertProxy(models.ProxyRecord{
		Address:        pending.Address,
		Kind:           pending.Request.Kind,
		Contract:       artifact.Name,
		Implementation: pending.Implementation,
		TxHash:         txHash,
		UpdatedAt:      t.now().UTC(),
	})

	if err := t.manifests.Save(ctx, manifest); err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}
	t.log.Debug("recorded proxy", "proxy", pending.Address.Hex(), "implementation", pending.Implementation.Hex())
	return nil
}

// Inspect reads the ERC-1967 slots of proxy and joins them with the manifest
func (t *Toolkit) Inspect(ctx context.Context, proxy common.Address) (*models.ProxyInfo, error) {
	info := &models.ProxyInfo{Address: proxy}
	if id := t.chain.ChainID(); id != nil {
		info.ChainID = id.Uint64()
	}

	code, err := t.chain.CodeAt(ctx, proxy)
	if err != nil {
		return nil, fmt.Errorf("failed to read code at %s: %w", proxy.Hex(), err)
	}
	info.HasCode = len(code) > 0

	implWord, err := t.chain.StorageAt(ctx, proxy, ImplementationSlot)
	if err != nil {
		return nil, err
	}
	adminWord, err := t.chain.StorageAt(ctx, proxy, AdminSlot)
	if err != nil {
		return nil, err
	}
	info.Implementation = common.BytesToAddress(implWord.Bytes())
	info.Admin = common.BytesToAddress(adminWord.Bytes())

	manifest, err := t.loadManifest(ctx)
	if err != nil {
		return nil, err
	}
	info.Record = manifest.FindProxy(proxy)
	if info.Implementation != (common.Address{}) {
		info.ImplRecord = manifest.FindImplementation(info.Implementation)
	}
	return info, nil
}

func (t *Toolkit) loadManifest(ctx context.Context) (*models.Manifest, error) {
	chainID := t.chain.ChainID()
	if chainID == nil {
		return nil, fmt.Errorf("chain id unknown: client is not connected")
	}
	manifest, err := t.manifests.Load(ctx, chainID.Uint64())
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	return manifest, nil
}

func isUUPS(artifact *models.Artifact) bool {
	return artifact.HasMethod(methodUpgradeTo) || artifact.HasMethod(methodUpgradeToAndCall)
}

var _ usecase.ProxyToolkit = (*Toolkit)(nil)
