package blockchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ovr-platform/ovr-deploy/internal/domain"
	"github.com/ovr-platform/ovr-deploy/internal/domain/config"
	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
)

// DefaultPollInterval is how often the block height is polled while
// waiting for confirmation depth
const DefaultPollInterval = 2 * time.Second

// Backend is the node API the client needs. *ethclient.Client satisfies it,
// as does the simulated backend used in tests.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ethereum.ChainStateReader
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// DialFunc opens a backend for an RPC URL
type DialFunc func(ctx context.Context, url string) (Backend, error)

// ClientAdapter signs and submits transactions on the active network
type ClientAdapter struct {
	network      *config.Network
	dial         DialFunc
	log          *slog.Logger
	pollInterval time.Duration

	mu      sync.Mutex
	backend Backend
	owned   bool
	chainID *big.Int
	key     *ecdsa.PrivateKey
	sender  common.Address
}

// NewClientAdapter creates a client for the active network that dials on Connect
func NewClientAdapter(cfg *config.RuntimeConfig, log *slog.Logger) *ClientAdapter {
	return &ClientAdapter{
		network:      cfg.Network,
		dial:         dialEthclient,
		log:          log.With("component", "chain"),
		pollInterval: DefaultPollInterval,
	}
}

// NewClientAdapterWithBackend uses an already connected backend
func NewClientAdapterWithBackend(network *config.Network, backend Backend, log *slog.Logger) *ClientAdapter {
	return &ClientAdapter{
		network:      network,
		backend:      backend,
		log:          log.With("component", "chain"),
		pollInterval: DefaultPollInterval,
	}
}

// SetPollInterval changes the confirmation polling interval
func (c *ClientAdapter) SetPollInterval(d time.Duration) {
	c.pollInterval = d
}

func dialEthclient(ctx context.Context, url string) (Backend, error) {
	return ethclient.DialContext(ctx, url)
}

// Connect dials the node, checks that it serves the configured chain and
// loads the deployer key. Calling it again is a no-op.
func (c *ClientAdapter) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key != nil {
		return nil
	}
	if c.network == nil {
		return submissionError(errors.New("no network selected"))
	}

	if c.backend == nil {
		if c.network.RPCURL == "" {
			return submissionError(fmt.Errorf("rpc url for network %s is not set", c.network.Name))
		}
		c.log.Debug("dialing", "network", c.network.Name, "url", c.network.RPCURL)
		backend, err := c.dial(ctx, c.network.RPCURL)
		if err != nil {
			return submissionError(fmt.Errorf("failed to connect to %s: %w", c.network.Name, err))
		}
		c.backend = backend
		c.owned = true
	}

	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return submissionError(fmt.Errorf("failed to get chain ID: %w", err))
	}
	if expected := c.network.ChainID; expected != nil && expected.Sign() > 0 && expected.Cmp(chainID) != 0 {
		return submissionError(fmt.Errorf("network %s expects chain %s but the node reports %s",
			c.network.Name, expected, chainID))
	}

	if c.network.PrivateKey == "" {
		return submissionError(fmt.Errorf("no private key configured for network %s (set PRIVATE_KEY)", c.network.Name))
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(c.network.PrivateKey), "0x"))
	if err != nil {
		// never echo the key material
		return submissionError(errors.New("failed to parse private key"))
	}

	c.chainID = chainID
	c.key = key
	c.sender = crypto.PubkeyToAddress(key.PublicKey)
	c.log.Debug("connected", "network", c.network.Name, "chain_id", chainID, "sender", c.sender.Hex())
	return nil
}

func (c *ClientAdapter) ChainID() *big.Int {
	return c.chainID
}

func (c *ClientAdapter) Sender() common.Address {
	return c.sender
}

func (c *ClientAdapter) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if c.key == nil {
		return nil, submissionError(errors.New("client is not connected"))
	}
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, submissionError(fmt.Errorf("failed to create transactor: %w", err))
	}
	opts.Context = ctx
	if c.network.GasLimit > 0 {
		opts.GasLimit = c.network.GasLimit
	}
	return opts, nil
}

// Deploy sends a contract creation transaction with ABI-encoded constructor args
func (c *ClientAdapter) Deploy(ctx context.Context, artifact *models.Artifact, args ...any) (*models.PendingTransaction, error) {
	opts, err := c.transactOpts(ctx)
	if err != nil {
		return nil, err
	}

	addr, tx, _, err := bind.DeployContract(opts, artifact.ABI, artifact.Bytecode, c.backend, args...)
	if err != nil {
		return nil, submissionError(fmt.Errorf("failed to deploy %s: %w", artifact.Name, err))
	}
	c.log.Debug("deployment sent", "contract", artifact.Name, "tx", tx.Hash().Hex(), "address", addr.Hex())

	return &models.PendingTransaction{
		Purpose:         models.TxDeploy,
		Hash:            tx.Hash(),
		Nonce:           tx.Nonce(),
		ContractAddress: addr,
		Tx:              tx,
	}, nil
}

// Transact calls a state-changing method on a deployed contract
func (c *ClientAdapter) Transact(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...any) (*models.PendingTransaction, error) {
	opts, err := c.transactOpts(ctx)
	if err != nil {
		return nil, err
	}

	bound := bind.NewBoundContract(to, contractABI, c.backend, c.backend, c.backend)
	tx, err := bound.Transact(opts, method, args...)
	if err != nil {
		return nil, submissionError(fmt.Errorf("failed to call %s on %s: %w", method, to.Hex(), err))
	}
	c.log.Debug("transaction sent", "method", method, "to", to.Hex(), "tx", tx.Hash().Hex())

	return &models.PendingTransaction{
		Hash:  tx.Hash(),
		Nonce: tx.Nonce(),
		To:    &to,
		Tx:    tx,
	}, nil
}

// WaitConfirmed waits for the receipt within the network timeout, then for
// the configured confirmation depth
func (c *ClientAdapter) WaitConfirmed(ctx context.Context, pending *models.PendingTransaction) (*types.Receipt, error) {
	if pending.Tx == nil {
		return nil, submissionError(fmt.Errorf("transaction %s was never sent", pending.Hash.Hex()))
	}

	timeout := c.network.Timeout
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	receipt, err := bind.WaitMined(waitCtx, c.backend, pending.Tx)
	if err != nil {
		return nil, domain.NewDeploymentError(domain.ErrConfirmationTimeout,
			fmt.Errorf("no receipt for %s after %s: %w", pending.Hash.Hex(), timeout, err))
	}
	pending.Receipt = receipt
	if pending.ContractAddress == (common.Address{}) && receipt.ContractAddress != (common.Address{}) {
		pending.ContractAddress = receipt.ContractAddress
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, domain.NewDeploymentError(domain.ErrTransactionReverted,
			fmt.Errorf("transaction %s reverted in block %s", pending.Hash.Hex(), receipt.BlockNumber))
	}

	if err := c.waitDepth(waitCtx, receipt); err != nil {
		return receipt, err
	}
	c.log.Debug("transaction confirmed", "tx", pending.Hash.Hex(), "block", receipt.BlockNumber, "gas_used", receipt.GasUsed)
	return receipt, nil
}

// waitDepth polls the head until the receipt's block has the configured
// number of confirmations, counting its own block as the first
func (c *ClientAdapter) waitDepth(ctx context.Context, receipt *types.Receipt) error {
	depth := c.network.Confirmations
	if depth <= 1 || receipt.BlockNumber == nil {
		return nil
	}
	target := receipt.BlockNumber.Uint64() + depth - 1

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		head, err := c.backend.BlockNumber(ctx)
		if err == nil && head >= target {
			return nil
		}
		if err != nil {
			c.log.Debug("failed to read block number", "error", err)
		}

		select {
		case <-ctx.Done():
			return domain.NewDeploymentError(domain.ErrConfirmationTimeout,
				fmt.Errorf("block %s did not reach %d confirmations: %w", receipt.BlockNumber, depth, ctx.Err()))
		case <-ticker.C:
		}
	}
}

func (c *ClientAdapter) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	if c.backend == nil {
		return nil, errors.New("client is not connected")
	}
	return c.backend.CodeAt(ctx, addr, nil)
}

// StorageAt reads one storage word at the latest block
func (c *ClientAdapter) StorageAt(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	if c.backend == nil {
		return common.Hash{}, errors.New("client is not connected")
	}
	raw, err := c.backend.StorageAt(ctx, addr, slot, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to read slot %s of %s: %w", slot.Hex(), addr.Hex(), err)
	}
	return common.BytesToHash(raw), nil
}

// Close releases a dialed connection. Injected backends are left open.
func (c *ClientAdapter) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.owned || c.backend == nil {
		return
	}
	if closer, ok := c.backend.(interface{ Close() }); ok {
		closer.Close()
	}
	c.backend = nil
	c.owned = false
	c.key = nil
}

func submissionError(err error) error {
	return domain.NewDeploymentError(domain.ErrSubmission, err)
}

var _ usecase.ChainClient = (*ClientAdapter)(nil)
