//go:build wireinject
// +build wireinject

package di

import (
	"AlphaWalk/pkg/config"
	"AlphaWalk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideCache,
		ProvideEventPublisher,

		// Repositories
		ProvidePriceStore,

		// Domain services
		ProvideExtractor,
		ProvideClusterer,
		ProvideEstimator,

		// Use cases
		ProvideSimulator,
		ProvideRunner,

		// HTTP surface and application
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
