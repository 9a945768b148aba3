//go:build wireinject
// +build wireinject

package di

import (
	"FarePull/pkg/config"
	"FarePull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Stores and sinks
		ProvideLockCache,
		ProvideHistoryStore,
		ProvideClickHouseClient,
		ProvideItineraryStore,
		ProvideEventPublisher,

		// Outbound clients
		ProvideNotifier,
		ProvideFareFetcher,
		ProvideFlagSource,

		// Use cases
		ProvideClassifier,
		ProvideFarePoller,
		ProvideFlagWatcher,
		ProvideScheduler,

		// Application server
		ProvideStatusHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
