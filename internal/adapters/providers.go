package adapters

import (
	"github.com/google/wire"
	"github.com/ovr-platform/ovr-deploy/internal/adapters/abi"
	"github.com/ovr-platform/ovr-deploy/internal/adapters/artifacts"
	"github.com/ovr-platform/ovr-deploy/internal/adapters/blockchain"
	"github.com/ovr-platform/ovr-deploy/internal/adapters/fs"
	"github.com/ovr-platform/ovr-deploy/internal/adapters/interactive"
	"github.com/ovr-platform/ovr-deploy/internal/adapters/proxy"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
)

// FSSet provides filesystem-based implementations
var FSSet = wire.NewSet(
	fs.NewManifestStoreAdapter,
	wire.Bind(new(usecase.ManifestStore), new(*fs.ManifestStoreAdapter)),
)

// ArtifactSet provides the build output registry and argument encoding
var ArtifactSet = wire.NewSet(
	artifacts.NewRegistry,
	wire.Bind(new(usecase.ArtifactRegistry), new(*artifacts.Registry)),

	abi.NewCoercer,
	wire.Bind(new(usecase.ArgumentEncoder), new(*abi.Coercer)),
)

// BlockchainSet provides the signing chain client and the proxy toolkit
var BlockchainSet = wire.NewSet(
	blockchain.NewClientAdapter,
	wire.Bind(new(usecase.ChainClient), new(*blockchain.ClientAdapter)),

	proxy.NewToolkit,
	wire.Bind(new(usecase.ProxyToolkit), new(*proxy.Toolkit)),
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewConfirmerAdapter,
	wire.Bind(new(usecase.BroadcastConfirmer), new(*interactive.ConfirmerAdapter)),

	interactive.NewSelectorAdapter,
	wire.Bind(new(usecase.JobSelector), new(*interactive.SelectorAdapter)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	FSSet,
	ArtifactSet,
	BlockchainSet,
	InteractiveSet,
)
