package testutil

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ovr-platform/ovr-deploy/internal/domain/config"
	"github.com/stretchr/testify/require"
)

// SimChainID is the chain id of the simulated backend
const SimChainID = 1337

// SimChain is an in-process chain with one funded deployer account
type SimChain struct {
	Backend *simulated.Backend
	Client  *AutoCommitClient
	Key     *ecdsa.PrivateKey
	Sender  common.Address
}

// AutoCommitClient mines a block after every submitted transaction
type AutoCommitClient struct {
	simulated.Client
	backend *simulated.Backend
	// Hold leaves transactions pending until Mine is called
	Hold bool
}

func (c *AutoCommitClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := c.Client.SendTransaction(ctx, tx); err != nil {
		return err
	}
	if !c.Hold {
		c.backend.Commit()
	}
	return nil
}

// Mine commits n blocks
func (c *AutoCommitClient) Mine(n int) {
	for i := 0; i < n; i++ {
		c.backend.Commit()
	}
}

// NewSimChain starts a simulated chain funded for a fresh deployer key
func NewSimChain(t *testing.T) *SimChain {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)

	balance := new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18))
	backend := simulated.NewBackend(types.GenesisAlloc{
		sender: {Balance: balance},
	})
	t.Cleanup(func() { _ = backend.Close() })

	return &SimChain{
		Backend: backend,
		Client:  &AutoCommitClient{Client: backend.Client(), backend: backend},
		Key:     key,
		Sender:  sender,
	}
}

// KeyHex is the deployer key in the form network configs carry it
func (s *SimChain) KeyHex() string {
	return hexutil.Encode(crypto.FromECDSA(s.Key))
}

// Network describes the simulated chain as a configured network
func (s *SimChain) Network() *config.Network {
	return &config.Network{
		Name:          "simulated",
		RPCURL:        "simulated://",
		ChainID:       big.NewInt(SimChainID),
		PrivateKey:    s.KeyHex(),
		Confirmations: 1,
		Timeout:       10 * time.Second,
		Local:         true,
	}
}
