package usecase_test

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
	"github.com/stretchr/testify/mock"
)

// MockArtifactRegistry is a mock implementation of ArtifactRegistry
type MockArtifactRegistry struct {
	mock.Mock
}

func (m *MockArtifactRegistry) Resolve(ctx context.Context, name string) (*models.Artifact, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Artifact), args.Error(1)
}

func (m *MockArtifactRegistry) List(ctx context.Context) ([]*models.Artifact, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Artifact), args.Error(1)
}

// passthroughEncoder checks arity and converts hex strings to addresses
type passthroughEncoder struct{}

func (passthroughEncoder) Coerce(inputs abi.Arguments, values []any) ([]any, error) {
	if len(inputs) != len(values) {
		return nil, errArity
	}
	out := make([]any, len(values))
	for i, v := range values {
		if s, ok := v.(string); ok && inputs[i].Type.T == abi.AddressTy {
			out[i] = common.HexToAddress(s)
			continue
		}
		out[i] = v
	}
	return out, nil
}

// MockChainClient is a mock implementation of ChainClient
type MockChainClient struct {
	mock.Mock
}

func (m *MockChainClient) Connect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockChainClient) ChainID() *big.Int {
	return big.NewInt(1337)
}

func (m *MockChainClient) Sender() common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000000000aa")
}

func (m *MockChainClient) Deploy(ctx context.Context, artifact *models.Artifact, params ...any) (*models.PendingTransaction, error) {
	args := m.Called(ctx, artifact, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingTransaction), args.Error(1)
}

func (m *MockChainClient) Transact(ctx context.Context, to common.Address, contractABI abi.ABI, method string, params ...any) (*models.PendingTransaction, error) {
	args := m.Called(ctx, to, method, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingTransaction), args.Error(1)
}

func (m *MockChainClient) WaitConfirmed(ctx context.Context, tx *models.PendingTransaction) (*types.Receipt, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	receipt := args.Get(0).(*types.Receipt)
	tx.Receipt = receipt
	return receipt, args.Error(1)
}

func (m *MockChainClient) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockChainClient) StorageAt(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	args := m.Called(ctx, addr, slot)
	return args.Get(0).(common.Hash), args.Error(1)
}

func (m *MockChainClient) Close() {}

// MockProxyToolkit is a mock implementation of ProxyToolkit
type MockProxyToolkit struct {
	mock.Mock
}

func (m *MockProxyToolkit) DeployProxy(ctx context.Context, artifact *models.Artifact, req *models.DeploymentRequest, initArgs []any) (*models.PendingDeployment, error) {
	args := m.Called(ctx, artifact, req, initArgs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingDeployment), args.Error(1)
}

func (m *MockProxyToolkit) UpgradeProxy(ctx context.Context, artifact *models.Artifact, req *models.DeploymentRequest) (*models.PendingDeployment, error) {
	args := m.Called(ctx, artifact, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingDeployment), args.Error(1)
}

func (m *MockProxyToolkit) Record(ctx context.Context, pending *models.PendingDeployment) error {
	return m.Called(ctx, pending).Error(0)
}

func (m *MockProxyToolkit) Inspect(ctx context.Context, proxy common.Address) (*models.ProxyInfo, error) {
	args := m.Called(ctx, proxy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProxyInfo), args.Error(1)
}

// MockConfirmer is a mock implementation of BroadcastConfirmer
type MockConfirmer struct {
	mock.Mock
}

func (m *MockConfirmer) ConfirmBroadcast(ctx context.Context, summary usecase.BroadcastSummary) (bool, error) {
	args := m.Called(ctx, summary)
	return args.Bool(0), args.Error(1)
}

// MockProgressSink records progress events
type MockProgressSink struct {
	events []usecase.ProgressEvent
}

func (m *MockProgressSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	m.events = append(m.events, event)
}

func (m *MockProgressSink) Info(string)  {}
func (m *MockProgressSink) Error(string) {}

// recordingReporter captures reported output
type recordingReporter struct {
	started []*models.DeploymentRequest
	results []*models.DeploymentResult
}

func (r *recordingReporter) ReportStart(req *models.DeploymentRequest) {
	r.started = append(r.started, req)
}

func (r *recordingReporter) Report(result *models.DeploymentResult) error {
	r.results = append(r.results, result)
	return nil
}
