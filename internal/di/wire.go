//go:build wireinject
// +build wireinject

package di

import (
	"FinCurve/pkg/config"
	"FinCurve/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,

		// Metrics
		ProvideRegistry,
		ProvideMetrics,
		ProvideKafkaMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideCache,
		ProvideJobQueue,
		ProvideKafkaProducer,

		// Repositories
		ProvideCurveStore,
		ProvideSweepJobStore,
		ProvideResultPublisher,

		// Use cases
		ProvideCurveRegistry,
		ProvideSweeper,
		ProvideSweepJobs,
		ProvideKafkaCurvesHandler,
		ProvideKafkaConsumer,

		// Delivery
		ProvideCurvesHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
