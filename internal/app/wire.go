//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/ovr-platform/ovr-deploy/internal/adapters"
	"github.com/ovr-platform/ovr-deploy/internal/config"
	"github.com/ovr-platform/ovr-deploy/internal/logging"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
	"github.com/spf13/viper"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper, sink usecase.ProgressSink) (*App, error) {
	wire.Build(
		// Configuration
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewRunDeployment,
		usecase.NewListJobs,
		usecase.NewListArtifacts,
		usecase.NewListNetworks,
		usecase.NewInspectProxy,

		// App
		NewApp,
	)
	return nil, nil
}
