package config

import (
	"math/big"
	"time"
)

// RuntimeConfig is the resolved configuration for a single invocation
type RuntimeConfig struct {
	ProjectRoot string
	// ConfigSource is the deploy file merged over the built-ins, empty if none was found
	ConfigSource    string
	ArtifactsDir    string
	ManifestDir     string
	ProxyArtifact   string
	StrictAddresses bool
	// UnsafeSkipLayout allows upgrades whose storage layouts cannot be compared
	UnsafeSkipLayout bool

	DefaultNetwork string
	Network        *Network
	Networks       map[string]*Network
	Jobs           map[string]JobConfig

	Debug          bool
	NonInteractive bool
	AssumeYes      bool
	Timeout        time.Duration
}

// Network is a resolved network entry with environment references expanded
type Network struct {
	Name          string
	RPCURL        string
	ChainID       *big.Int
	PrivateKey    string `json:"-"`
	Confirmations uint64
	Timeout       time.Duration
	GasLimit      uint64
	ExplorerURL   string
	Local         bool
}

// RequiresConfirmation reports whether broadcasting should prompt the operator
func (c *RuntimeConfig) RequiresConfirmation() bool {
	if c.Network == nil || c.Network.Local {
		return false
	}
	return !c.AssumeYes && !c.NonInteractive
}
