//go:build wireinject
// +build wireinject

package di

import (
	"PairFlow/pkg/config"
	"PairFlow/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisClient,

		// Repositories
		ProvideBarStore,
		ProvideTickSource,
		ProvideTickPublisher,

		// Pipeline
		ProvideBuffer,
		ProvideAggregator,
		ProvideAnalyticsEngine,
		ProvideSnapshotService,
		ProvideTickCollector,

		// HTTP
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
