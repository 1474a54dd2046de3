package app

import (
	"log/slog"

	"github.com/ovr-platform/ovr-deploy/internal/domain/config"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig
	Log    *slog.Logger

	// Shared dependencies
	Selector usecase.JobSelector

	// Use cases
	RunDeployment *usecase.RunDeployment
	ListJobs      *usecase.ListJobs
	ListArtifacts *usecase.ListArtifacts
	ListNetworks  *usecase.ListNetworks
	InspectProxy  *usecase.InspectProxy
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	selector usecase.JobSelector,
	runDeployment *usecase.RunDeployment,
	listJobs *usecase.ListJobs,
	listArtifacts *usecase.ListArtifacts,
	listNetworks *usecase.ListNetworks,
	inspectProxy *usecase.InspectProxy,
) (*App, error) {
	return &App{
		Config:        cfg,
		Log:           log,
		Selector:      selector,
		RunDeployment: runDeployment,
		ListJobs:      listJobs,
		ListArtifacts: listArtifacts,
		ListNetworks:  listNetworks,
		InspectProxy:  inspectProxy,
	}, nil
}
