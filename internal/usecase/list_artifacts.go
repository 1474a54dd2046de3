package usecase

import (
	"context"
	"strings"

	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
	"github.com/samber/lo"
)

// ListArtifactsParams filters the listing
type ListArtifactsParams struct {
	// Filter is a case-insensitive substring of the contract name
	Filter string
	// DeployableOnly hides interfaces and abstract contracts
	DeployableOnly bool
}

// ListArtifactsResult contains the matching artifacts
type ListArtifactsResult struct {
	Artifacts []*models.Artifact
}

// ListArtifacts is a use case for listing compiled contracts
type ListArtifacts struct {
	artifacts ArtifactRegistry
}

// NewListArtifacts creates a new ListArtifacts use case
func NewListArtifacts(artifacts ArtifactRegistry) *ListArtifacts {
	return &ListArtifacts{artifacts: artifacts}
}

// Run executes the use case
func (uc *ListArtifacts) Run(ctx context.Context, params ListArtifactsParams) (*ListArtifactsResult, error) {
	all, err := uc.artifacts.List(ctx)
	if err != nil {
		return nil, err
	}

	filter := strings.ToLower(params.Filter)
	matching := lo.Filter(all, func(a *models.Artifact, _ int) bool {
		if params.DeployableOnly && !a.IsDeployable() {
			return false
		}
		return filter == "" || strings.Contains(strings.ToLower(a.Name), filter)
	})

	return &ListArtifactsResult{Artifacts: matching}, nil
}
