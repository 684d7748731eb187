//go:build wireinject
// +build wireinject

package main

import (
	"github.com/camera6912/orb-trader/internal/app"

	"github.com/google/wire"
)

var coreSet = wire.NewSet(
	app.ProvideConfig,
	app.ProvideWorkspace,
	app.ProvideEventStore,
)

// InitializeApp builds the trading process via Wire.
// Caller must call cleanup when done (closes the store, releases the lock).
func InitializeApp(path app.ConfigPath) (*app.App, func(), error) {
	wire.Build(
		coreSet,
		app.ProvideInstanceLock,
		app.ProvideSchedule,
		app.ProvidePlanConfig,
		app.ProvideDayFilter,
		app.ProvideMarketData,
		app.ProvideRegistry,
		app.ProvideMetrics,
		app.ProvideNotifier,
		app.ProvideSnapshots,
		app.ProvideEngine,
		app.ProvideOrchestrator,
		app.ProvideQuoteFeed,
		app.ProvideStatusServer,
		wire.Struct(new(app.App), "*"),
	)
	return nil, nil, nil
}

// InitializeExporter opens the report store only.
func InitializeExporter(path app.ConfigPath) (*app.Exporter, func(), error) {
	wire.Build(
		coreSet,
		wire.Struct(new(app.Exporter), "Store"),
	)
	return nil, nil, nil
}

// InitializeAuditor builds the offline session replayer.
func InitializeAuditor(path app.ConfigPath) (*app.Auditor, func(), error) {
	wire.Build(
		coreSet,
		app.ProvideEngine,
		app.ProvideDayFilter,
		app.ProvideSchedule,
		app.ProvideMarketData,
		app.ProvidePlanConfig,
		wire.Struct(new(app.Auditor), "*"),
	)
	return nil, nil, nil
}
