package usecase

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
)

// ArtifactRegistry provides access to compiled contracts
type ArtifactRegistry interface {
	// Resolve finds an artifact by contract name or path:Name
	Resolve(ctx context.Context, name string) (*models.Artifact, error)
	List(ctx context.Context) ([]*models.Artifact, error)
}

// ArgumentEncoder converts configured literals into ABI-typed Go values
type ArgumentEncoder interface {
	Coerce(inputs abi.Arguments, values []any) ([]any, error)
}

// ChainClient is the signing connection to the active network
type ChainClient interface {
	// Connect dials the network, verifies its chain ID and loads the signer
	Connect(ctx context.Context) error
	ChainID() *big.Int
	Sender() common.Address
	Deploy(ctx context.Context, artifact *models.Artifact, args ...any) (*models.PendingTransaction, error)
	Transact(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...any) (*models.PendingTransaction, error)
	// WaitConfirmed blocks until the transaction is mined and buried under the
	// network's confirmation depth. The receipt is also stored on tx.
	WaitConfirmed(ctx context.Context, tx *models.PendingTransaction) (*types.Receipt, error)
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)
	StorageAt(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error)
	Close()
}

// ProxyToolkit deploys and upgrades UUPS proxies
type ProxyToolkit interface {
	DeployProxy(ctx context.Context, artifact *models.Artifact, req *models.DeploymentRequest, initArgs []any) (*models.PendingDeployment, error)
	UpgradeProxy(ctx context.Context, artifact *models.Artifact, req *models.DeploymentRequest) (*models.PendingDeployment, error)
	// Record persists a confirmed proxy deployment or upgrade
	Record(ctx context.Context, pending *models.PendingDeployment) error
	Inspect(ctx context.Context, proxy common.Address) (*models.ProxyInfo, error)
}

// ManifestStore persists proxy and implementation records per chain
type ManifestStore interface {
	Load(ctx context.Context, chainID uint64) (*models.Manifest, error)
	Save(ctx context.Context, manifest *models.Manifest) error
	// ImportedLayout returns the layout another upgrades tool recorded for
	// impl, or nil when there is none
	ImportedLayout(ctx context.Context, chainID uint64, impl common.Address) (*models.StorageLayout, error)
}

// BroadcastConfirmer asks the operator before anything is sent to a live network
type BroadcastConfirmer interface {
	ConfirmBroadcast(ctx context.Context, summary BroadcastSummary) (bool, error)
}

// BroadcastSummary describes what is about to be broadcast
type BroadcastSummary struct {
	Network  string
	ChainID  *big.Int
	Sender   common.Address
	Contract string
	Mode     models.DeploymentMode
	Proxy    *common.Address
}

// JobSelector lets the operator pick a job when none was named
type JobSelector interface {
	SelectJob(ctx context.Context, jobs []JobSummary) (string, error)
}

// DeploymentReporter writes operator-facing output for a run
type DeploymentReporter interface {
	ReportStart(req *models.DeploymentRequest)
	Report(result *models.DeploymentResult) error
}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage   ExecutionStage
	Message string
	Spinner bool
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// ExecutionStage represents a stage in the execution process
type ExecutionStage string

const (
	StageResolving  ExecutionStage = "Resolving"
	StageConnecting ExecutionStage = "Connecting"
	StageSubmitting ExecutionStage = "Submitting"
	StageConfirming ExecutionStage = "Confirming"
	StageRecording  ExecutionStage = "Recording"
	StageCompleted  ExecutionStage = "Completed"
)
