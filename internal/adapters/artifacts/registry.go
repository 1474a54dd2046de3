package artifacts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ovr-platform/ovr-deploy/internal/domain"
	"github.com/ovr-platform/ovr-deploy/internal/domain/config"
	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
	"github.com/samber/lo"
)

// linkPlaceholder matches a 40 character library placeholder in hex bytecode
var linkPlaceholder = regexp.MustCompile(`__.{36}__`)

// Registry indexes the compiled artifacts of a project. It scans the
// artifacts directory once, on first use.
type Registry struct {
	dir string
	log *slog.Logger

	once      sync.Once
	loadErr   error
	artifacts []*models.Artifact
	byName    map[string][]*models.Artifact

	mu        sync.Mutex
	buildInfo map[string]*buildInfo
}

// NewRegistry creates a registry over cfg.ArtifactsDir
func NewRegistry(cfg *config.RuntimeConfig, log *slog.Logger) *Registry {
	return &Registry{
		dir:       cfg.ArtifactsDir,
		log:       log.With("component", "artifacts"),
		buildInfo: make(map[string]*buildInfo),
	}
}

// Resolve finds an artifact by "Name" or "path/File.sol:Name"
func (r *Registry) Resolve(ctx context.Context, name string) (*models.Artifact, error) {
	if err := r.load(); err != nil {
		return nil, err
	}

	source, contract := splitQualifiedName(name)
	candidates := r.byName[contract]
	if source != "" {
		candidates = lo.Filter(candidates, func(a *models.Artifact, _ int) bool {
			return a.SourceName == source || strings.HasSuffix(a.SourceName, "/"+source)
		})
	}

	switch len(candidates) {
	case 0:
		return nil, domain.ArtifactNotFoundErr{
			Name:        name,
			Suggestions: usecase.SuggestNames(contract, lo.Keys(r.byName)),
		}
	case 1:
	default:
		return nil, domain.AmbiguousArtifactErr{
			Name: name,
			Matches: lo.Map(candidates, func(a *models.Artifact, _ int) string {
				return a.FullyQualifiedName()
			}),
		}
	}

	artifact := candidates[0]
	if artifact.StorageLayout == nil {
		r.attachStorageLayout(artifact)
	}
	return artifact, nil
}

// List returns every artifact sorted by fully qualified name
func (r *Registry) List(ctx context.Context) ([]*models.Artifact, error) {
	if err := r.load(); err != nil {
		return nil, err
	}
	return r.artifacts, nil
}

func (r *Registry) load() error {
	r.once.Do(func() {
		r.loadErr = r.scan()
	})
	return r.loadErr
}

func (r *Registry) scan() error {
	if r.dir == "" {
		return fmt.Errorf("%w: no artifacts directory configured", domain.ErrArtifactNotFound)
	}
	if _, err := os.Stat(r.dir); err != nil {
		return fmt.Errorf("%w: artifacts directory %s does not exist (run the build first)",
			domain.ErrArtifactNotFound, r.dir)
	}

	r.byName = make(map[string][]*models.Artifact)
	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".dbg.json") {
			return nil
		}

		artifact, err := readArtifact(path)
		if err != nil {
			r.log.Debug("skipping artifact", "path", path, "error", err)
			return nil
		}
		if artifact == nil {
			return nil
		}
		r.artifacts = append(r.artifacts, artifact)
		r.byName[artifact.Name] = append(r.byName[artifact.Name], artifact)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan artifacts in %s: %w", r.dir, err)
	}

	sort.Slice(r.artifacts, func(i, j int) bool {
		return r.artifacts[i].FullyQualifiedName() < r.artifacts[j].FullyQualifiedName()
	})
	r.log.Debug("indexed artifacts", "dir", r.dir, "count", len(r.artifacts))
	return nil
}

// rawArtifact covers both the Hardhat and the Foundry artifact layouts
type rawArtifact struct {
	Format           string                                       `json:"_format"`
	ContractName     string                                       `json:"contractName"`
	SourceName       string                                       `json:"sourceName"`
	ABI              json.RawMessage                              `json:"abi"`
	Bytecode         json.RawMessage                              `json:"bytecode"`
	DeployedBytecode json.RawMessage                              `json:"deployedBytecode"`
	LinkReferences   map[string]map[string][]models.LinkReference `json:"linkReferences"`
	StorageLayout    *models.StorageLayout                        `json:"storageLayout"`
	Metadata         json.RawMessage                              `json:"metadata"`
}

type foundryBytecode struct {
	Object         string                                       `json:"object"`
	LinkReferences map[string]map[string][]models.LinkReference `json:"linkReferences"`
}

type foundryMetadata struct {
	Settings struct {
		CompilationTarget map[string]string `json:"compilationTarget"`
	} `json:"settings"`
}

// readArtifact parses one artifact file. It returns nil, nil for JSON files
// that are not contract artifacts.
func readArtifact(path string) (*models.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseArtifact(data, path)
}

func parseArtifact(data []byte, path string) (*models.Artifact, error) {
	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw.ABI) == 0 || len(raw.Bytecode) == 0 {
		return nil, nil
	}

	parsedABI, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("invalid abi: %w", err)
	}

	artifact := &models.Artifact{
		Name:           raw.ContractName,
		SourceName:     raw.SourceName,
		Path:           path,
		ABI:            parsedABI,
		RawABI:         raw.ABI,
		LinkReferences: raw.LinkReferences,
		StorageLayout:  raw.StorageLayout,
	}

	creation, creationLinks, err := decodeBytecodeField(raw.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}
	runtime, _, err := decodeBytecodeField(raw.DeployedBytecode)
	if err != nil {
		return nil, fmt.Errorf("deployedBytecode: %w", err)
	}
	if len(creationLinks) > 0 {
		artifact.LinkReferences = creationLinks
	}

	artifact.Bytecode, artifact.Unlinked, err = decodeHex(creation)
	if err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}
	artifact.DeployedBytecode, _, err = decodeHex(runtime)
	if err != nil {
		return nil, fmt.Errorf("deployedBytecode: %w", err)
	}

	// Foundry artifacts are named after their file and carry the source in metadata
	if artifact.Name == "" {
		artifact.Name = strings.TrimSuffix(filepath.Base(path), ".json")
		if i := strings.Index(artifact.Name, "."); i > 0 {
			artifact.Name = artifact.Name[:i]
		}
	}
	if artifact.SourceName == "" {
		artifact.SourceName = foundrySourceName(raw.Metadata, artifact.Name, path)
	}

	return artifact, nil
}

// decodeBytecodeField accepts Hardhat's "0x.." string or Foundry's {object, linkReferences}
func decodeBytecodeField(field json.RawMessage) (string, map[string]map[string][]models.LinkReference, error) {
	if len(field) == 0 || string(field) == "null" {
		return "", nil, nil
	}
	if field[0] == '"' {
		var s string
		if err := json.Unmarshal(field, &s); err != nil {
			return "", nil, err
		}
		return s, nil, nil
	}
	var obj foundryBytecode
	if err := json.Unmarshal(field, &obj); err != nil {
		return "", nil, err
	}
	return obj.Object, obj.LinkReferences, nil
}

// decodeHex decodes bytecode, zero-filling library placeholders and
// reporting whether any were found
func decodeHex(code string) ([]byte, bool, error) {
	code = strings.TrimSpace(code)
	if code == "" || code == "0x" {
		return nil, false, nil
	}
	if !strings.HasPrefix(code, "0x") {
		code = "0x" + code
	}
	unlinked := linkPlaceholder.MatchString(code)
	if unlinked {
		code = linkPlaceholder.ReplaceAllString(code, strings.Repeat("0", 40))
	}
	b, err := hexutil.Decode(code)
	if err != nil {
		return nil, false, err
	}
	return b, unlinked, nil
}

func foundrySourceName(metadata json.RawMessage, name, path string) string {
	if len(metadata) > 0 && metadata[0] == '{' {
		var meta foundryMetadata
		if err := json.Unmarshal(metadata, &meta); err == nil {
			for source, contract := range meta.Settings.CompilationTarget {
				if contract == name {
					return source
				}
			}
		}
	}
	return filepath.Base(filepath.Dir(path))
}

func splitQualifiedName(name string) (source, contract string) {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

var _ usecase.ArtifactRegistry = (*Registry)(nil)
