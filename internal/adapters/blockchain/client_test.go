package blockchain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ovr-platform/ovr-deploy/internal/domain"
	"github.com/ovr-platform/ovr-deploy/internal/domain/config"
	"github.com/ovr-platform/ovr-deploy/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var land = common.HexToAddress("0x93C46aA4DdfD0413d95D0eF3c478982997cE9861")

func connected(t *testing.T) (*ClientAdapter, *testutil.SimChain) {
	t.Helper()
	sim := testutil.NewSimChain(t)
	client := NewClientAdapterWithBackend(sim.Network(), sim.Client, testutil.DiscardLogger())
	client.SetPollInterval(10 * time.Millisecond)
	require.NoError(t, client.Connect(context.Background()))
	return client, sim
}

func TestConnect(t *testing.T) {
	t.Run("loads signer and chain", func(t *testing.T) {
		client, sim := connected(t)
		assert.Equal(t, big.NewInt(testutil.SimChainID), client.ChainID())
		assert.Equal(t, sim.Sender, client.Sender())

		// idempotent
		require.NoError(t, client.Connect(context.Background()))
	})

	t.Run("chain id mismatch", func(t *testing.T) {
		sim := testutil.NewSimChain(t)
		network := sim.Network()
		network.ChainID = big.NewInt(137)

		err := NewClientAdapterWithBackend(network, sim.Client, testutil.DiscardLogger()).Connect(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrSubmission)
		assert.Contains(t, err.Error(), "expects chain 137")
	})

	t.Run("missing key", func(t *testing.T) {
		sim := testutil.NewSimChain(t)
		network := sim.Network()
		network.PrivateKey = ""

		err := NewClientAdapterWithBackend(network, sim.Client, testutil.DiscardLogger()).Connect(context.Background())
		assert.ErrorIs(t, err, domain.ErrSubmission)
		assert.Contains(t, err.Error(), "PRIVATE_KEY")
	})

	t.Run("malformed key is not echoed", func(t *testing.T) {
		sim := testutil.NewSimChain(t)
		network := sim.Network()
		network.PrivateKey = "0xnot-a-key"

		err := NewClientAdapterWithBackend(network, sim.Client, testutil.DiscardLogger()).Connect(context.Background())
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "not-a-key")
	})

	t.Run("missing rpc url", func(t *testing.T) {
		cfg := &config.RuntimeConfig{Network: &config.Network{Name: "polygon"}}
		err := NewClientAdapter(cfg, testutil.DiscardLogger()).Connect(context.Background())
		assert.ErrorIs(t, err, domain.ErrSubmission)
		assert.Contains(t, err.Error(), "rpc url for network polygon")
	})

	t.Run("dial failure", func(t *testing.T) {
		cfg := &config.RuntimeConfig{Network: &config.Network{Name: "polygon", RPCURL: "http://unreachable"}}
		client := NewClientAdapter(cfg, testutil.DiscardLogger())
		client.dial = func(ctx context.Context, url string) (Backend, error) {
			return nil, errors.New("connection refused")
		}
		err := client.Connect(context.Background())
		assert.ErrorIs(t, err, domain.ErrSubmission)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestDeployAndConfirm(t *testing.T) {
	client, sim := connected(t)
	ctx := context.Background()
	mapping := testutil.MappingArtifact()

	pending, err := client.Deploy(ctx, mapping.Artifact(), land)
	require.NoError(t, err)
	assert.NotEqual(t, common.Address{}, pending.ContractAddress)
	assert.Equal(t, crypto.CreateAddress(sim.Sender, 0), pending.ContractAddress)

	receipt, err := client.WaitConfirmed(ctx, pending)
	require.NoError(t, err)
	assert.Same(t, receipt, pending.Receipt)
	assert.Equal(t, pending.ContractAddress, receipt.ContractAddress)

	code, err := client.CodeAt(ctx, pending.ContractAddress)
	require.NoError(t, err)
	assert.Equal(t, mapping.DeployedBytecode, code)
}

func TestTransactAndStorage(t *testing.T) {
	client, _ := connected(t)
	ctx := context.Background()
	impl := testutil.MarketplaceArtifact(1).Artifact()

	deployed, err := client.Deploy(ctx, impl)
	require.NoError(t, err)
	_, err = client.WaitConfirmed(ctx, deployed)
	require.NoError(t, err)

	target := common.HexToAddress("0x7616bFb03e250470386ab4888c447936d065816B")
	call, err := client.Transact(ctx, deployed.ContractAddress, impl.ABI, "upgradeTo", target)
	require.NoError(t, err)
	require.NotNil(t, call.To)
	_, err = client.WaitConfirmed(ctx, call)
	require.NoError(t, err)

	word, err := client.StorageAt(ctx, deployed.ContractAddress, testutil.ImplementationSlot)
	require.NoError(t, err)
	assert.Equal(t, target, common.BytesToAddress(word.Bytes()))
}

func TestWaitConfirmedReverted(t *testing.T) {
	sim := testutil.NewSimChain(t)
	network := sim.Network()
	// skip estimation so the failing creation is mined
	network.GasLimit = 200_000
	client := NewClientAdapterWithBackend(network, sim.Client, testutil.DiscardLogger())
	require.NoError(t, client.Connect(context.Background()))

	pending, err := client.Deploy(context.Background(), testutil.RevertingArtifact().Artifact())
	require.NoError(t, err)

	_, err = client.WaitConfirmed(context.Background(), pending)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransactionReverted)
	assert.Equal(t, domain.ErrTransactionReverted, domain.ErrorKind(err))
}

func TestWaitConfirmedTimeout(t *testing.T) {
	sim := testutil.NewSimChain(t)
	sim.Client.Hold = true
	network := sim.Network()
	network.Timeout = 200 * time.Millisecond
	client := NewClientAdapterWithBackend(network, sim.Client, testutil.DiscardLogger())
	require.NoError(t, client.Connect(context.Background()))

	pending, err := client.Deploy(context.Background(), testutil.MappingArtifact().Artifact(), land)
	require.NoError(t, err)

	_, err = client.WaitConfirmed(context.Background(), pending)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfirmationTimeout)
	assert.Nil(t, pending.Receipt)
}

func TestWaitConfirmedDepth(t *testing.T) {
	sim := testutil.NewSimChain(t)
	network := sim.Network()
	network.Confirmations = 3
	client := NewClientAdapterWithBackend(network, sim.Client, testutil.DiscardLogger())
	client.SetPollInterval(10 * time.Millisecond)
	require.NoError(t, client.Connect(context.Background()))

	pending, err := client.Deploy(context.Background(), testutil.MappingArtifact().Artifact(), land)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		sim.Client.Mine(2)
	}()

	receipt, err := client.WaitConfirmed(context.Background(), pending)
	require.NoError(t, err)

	head, err := sim.Client.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, head, receipt.BlockNumber.Uint64()+2)
}

func TestDeployWithoutFunds(t *testing.T) {
	sim := testutil.NewSimChain(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	network := sim.Network()
	network.PrivateKey = common.Bytes2Hex(crypto.FromECDSA(key))
	network.GasLimit = 200_000

	client := NewClientAdapterWithBackend(network, sim.Client, testutil.DiscardLogger())
	require.NoError(t, client.Connect(context.Background()))

	_, err = client.Deploy(context.Background(), testutil.MappingArtifact().Artifact(), land)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSubmission)
	assert.Contains(t, err.Error(), "OVRLandMapping")
}

func TestNotConnected(t *testing.T) {
	client := NewClientAdapter(&config.RuntimeConfig{}, testutil.DiscardLogger())
	_, err := client.Deploy(context.Background(), testutil.MappingArtifact().Artifact(), land)
	assert.ErrorIs(t, err, domain.ErrSubmission)

	_, err = client.CodeAt(context.Background(), land)
	assert.Error(t, err)
	client.Close()
}
