package models

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DeploymentMode selects how a contract reaches the chain
type DeploymentMode string

const (
	ModeDeploy       DeploymentMode = "deploy"
	ModeProxyDeploy  DeploymentMode = "proxy-deploy"
	ModeProxyUpgrade DeploymentMode = "proxy-upgrade"
)

// ParseDeploymentMode accepts the canonical mode names and their short aliases.
// An empty string means a plain deployment.
func ParseDeploymentMode(s string) (DeploymentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "deploy", "plain":
		return ModeDeploy, nil
	case "proxy-deploy", "proxy":
		return ModeProxyDeploy, nil
	case "proxy-upgrade", "upgrade":
		return ModeProxyUpgrade, nil
	default:
		return "", fmt.Errorf("unknown deployment mode %q", s)
	}
}

func (m DeploymentMode) IsProxy() bool {
	return m == ModeProxyDeploy || m == ModeProxyUpgrade
}

// ProxyKind is the upgradeable proxy pattern. Only UUPS is supported.
type ProxyKind string

const ProxyKindUUPS ProxyKind = "uups"

// DefaultInitializer is called through the proxy when no initializer is configured
const DefaultInitializer = "initialize"

// DeploymentRequest is a single deploy-or-upgrade instruction
type DeploymentRequest struct {
	// Label is the job name the request came from, empty for ad-hoc deploys
	Label           string
	ContractName    string
	ConstructorArgs []any
	Mode            DeploymentMode
	ProxyAddress    *common.Address
	Initializer     string
	Kind            ProxyKind
}

// Validate checks the request shape and fills defaults for proxy modes.
// Argument types are checked later against the artifact ABI.
func (r *DeploymentRequest) Validate() error {
	if strings.TrimSpace(r.ContractName) == "" {
		return fmt.Errorf("contract name is required")
	}
	if r.Mode == "" {
		r.Mode = ModeDeploy
	}

	switch r.Mode {
	case ModeDeploy:
		if r.ProxyAddress != nil {
			return fmt.Errorf("proxy address is only valid for %s", ModeProxyUpgrade)
		}
	case ModeProxyDeploy:
		if r.ProxyAddress != nil {
			return fmt.Errorf("proxy address is only valid for %s", ModeProxyUpgrade)
		}
	case ModeProxyUpgrade:
		if r.ProxyAddress == nil {
			return fmt.Errorf("proxy address is required for %s", ModeProxyUpgrade)
		}
		if *r.ProxyAddress == (common.Address{}) {
			return fmt.Errorf("proxy address must not be the zero address")
		}
		if len(r.ConstructorArgs) > 0 {
			return fmt.Errorf("%s takes no arguments, got %d", ModeProxyUpgrade, len(r.ConstructorArgs))
		}
	default:
		return fmt.Errorf("unknown deployment mode %q", r.Mode)
	}

	if r.Mode.IsProxy() {
		if r.Initializer == "" {
			r.Initializer = DefaultInitializer
		}
		if r.Kind == "" {
			r.Kind = ProxyKindUUPS
		}
		if r.Kind != ProxyKindUUPS {
			return fmt.Errorf("unsupported proxy kind %q (only %s)", r.Kind, ProxyKindUUPS)
		}
	}
	return nil
}

// RunState is the lifecycle position of a single run
type RunState string

const (
	StateIdle      RunState = "idle"
	StateResolved  RunState = "resolved"
	StateSubmitted RunState = "submitted"
	StateConfirmed RunState = "confirmed"
	StateFailed    RunState = "failed"
)

var runTransitions = map[RunState][]RunState{
	StateIdle:      {StateResolved, StateFailed},
	StateResolved:  {StateSubmitted, StateFailed},
	StateSubmitted: {StateConfirmed, StateFailed},
}

func (s RunState) CanTransition(to RunState) bool {
	for _, next := range runTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s RunState) IsTerminal() bool {
	return s == StateConfirmed || s == StateFailed
}

// TxPurpose tags the transactions a run broadcasts
type TxPurpose string

const (
	TxDeploy         TxPurpose = "deploy"
	TxImplementation TxPurpose = "implementation"
	TxProxy          TxPurpose = "proxy"
	TxUpgrade        TxPurpose = "upgrade"
)

// PendingTransaction is a broadcast transaction not yet known to be confirmed
type PendingTransaction struct {
	Purpose         TxPurpose
	Hash            common.Hash
	Nonce           uint64
	ContractAddress common.Address
	To              *common.Address
	Tx              *types.Transaction
	Receipt         *types.Receipt
}

func (p *PendingTransaction) IsCreation() bool {
	return p.To == nil
}

// PendingDeployment is everything submit produced for one request
type PendingDeployment struct {
	Request              *DeploymentRequest
	Artifact             *Artifact
	Transactions         []*PendingTransaction
	Address              common.Address
	Implementation       common.Address
	ImplementationReused bool
}

// Last returns the transaction whose confirmation completes the deployment
func (p *PendingDeployment) Last() *PendingTransaction {
	if len(p.Transactions) == 0 {
		return nil
	}
	return p.Transactions[len(p.Transactions)-1]
}

// DeploymentResult is the confirmed outcome of a run
type DeploymentResult struct {
	Label                string
	ContractName         string
	Mode                 DeploymentMode
	Network              string
	ChainID              *big.Int
	Address              common.Address
	Implementation       common.Address
	ImplementationReused bool
	TxHashes             []common.Hash
	BlockNumber          uint64
	GasUsed              uint64
}
