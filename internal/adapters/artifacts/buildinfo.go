package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
)

// buildInfo is the part of a Hardhat build-info file holding storage layouts
type buildInfo struct {
	Output struct {
		Contracts map[string]map[string]struct {
			StorageLayout *models.StorageLayout `json:"storageLayout"`
		} `json:"contracts"`
	} `json:"output"`
}

type debugFile struct {
	BuildInfo string `json:"buildInfo"`
}

// attachStorageLayout fills the layout of a Hardhat artifact from the
// build-info its .dbg.json points to. Missing layouts are left nil.
func (r *Registry) attachStorageLayout(artifact *models.Artifact) {
	if !strings.HasSuffix(artifact.Path, ".json") {
		return
	}
	dbgPath := strings.TrimSuffix(artifact.Path, ".json") + ".dbg.json"

	data, err := os.ReadFile(dbgPath)
	if err != nil {
		return
	}
	var dbg debugFile
	if err := json.Unmarshal(data, &dbg); err != nil || dbg.BuildInfo == "" {
		return
	}

	infoPath := filepath.Clean(filepath.Join(filepath.Dir(dbgPath), dbg.BuildInfo))
	info, err := r.readBuildInfo(infoPath)
	if err != nil {
		r.log.Debug("failed to read build info", "path", infoPath, "error", err)
		return
	}

	if contract, ok := info.Output.Contracts[artifact.SourceName][artifact.Name]; ok {
		artifact.StorageLayout = contract.StorageLayout
	}
}

func (r *Registry) readBuildInfo(path string) (*buildInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info, ok := r.buildInfo[path]; ok {
		return info, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info buildInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	r.buildInfo[path] = &info
	return &info, nil
}
