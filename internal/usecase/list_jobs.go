package usecase

import (
	"context"
	"sort"

	"github.com/ovr-platform/ovr-deploy/internal/domain/config"
	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
)

// ListJobsParams contains parameters for listing jobs
type ListJobsParams struct{}

// ListJobsResult contains the configured jobs resolved for the active network
type ListJobsResult struct {
	Network string
	Jobs    []JobSummary
}

// JobSummary is a job with its request resolved for the active network.
// Error is set when the job configuration cannot produce a valid request.
type JobSummary struct {
	Name        string
	Description string
	Request     *models.DeploymentRequest
	Error       error
}

// ListJobs is a use case for listing configured jobs
type ListJobs struct {
	config *config.RuntimeConfig
}

// NewListJobs creates a new ListJobs use case
func NewListJobs(cfg *config.RuntimeConfig) *ListJobs {
	return &ListJobs{config: cfg}
}

// Run executes the use case
func (uc *ListJobs) Run(ctx context.Context, params ListJobsParams) (*ListJobsResult, error) {
	result := &ListJobsResult{}
	if uc.config.Network != nil {
		result.Network = uc.config.Network.Name
	}

	for name, job := range uc.config.Jobs {
		summary := JobSummary{Name: name, Description: job.Description}
		req, err := job.RequestFor(name, result.Network)
		if err == nil {
			err = req.Validate()
		}
		summary.Request = req
		summary.Error = err
		result.Jobs = append(result.Jobs, summary)
	}

	sort.Slice(result.Jobs, func(i, j int) bool {
		return result.Jobs[i].Name < result.Jobs[j].Name
	})

	return result, nil
}
