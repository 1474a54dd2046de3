package artifacts

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
)

//go:embed builtin/ERC1967Proxy.json
var erc1967ProxyJSON []byte

var builtinProxy = sync.OnceValues(func() (*models.Artifact, error) {
	artifact, err := parseArtifact(erc1967ProxyJSON, "builtin/ERC1967Proxy.json")
	if err != nil {
		return nil, fmt.Errorf("builtin ERC1967Proxy: %w", err)
	}
	return artifact, nil
})

// BuiltinERC1967Proxy returns the bundled ERC1967Proxy(address _logic, bytes _data).
// It stores _logic in the ERC-1967 implementation slot, delegatecalls _data
// when non-empty and forwards every later call to the implementation.
// Callers get a copy they may modify.
func BuiltinERC1967Proxy() (*models.Artifact, error) {
	artifact, err := builtinProxy()
	if err != nil {
		return nil, err
	}
	clone := *artifact
	return &clone, nil
}
