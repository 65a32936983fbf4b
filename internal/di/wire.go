//go:build wireinject
// +build wireinject

package di

import (
	"FundPilot/pkg/config"
	"FundPilot/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Data sources
		ProvideMarketData,
		ProvideFundDataClient,
		ProvideFundamentalsSource,
		ProvideInsiderSource,

		// Analysts and decision makers
		ProvideRegistry,
		ProvideRiskAssessor,
		ProvideDecisionMaker,

		// Audit trail
		ProvideAuditStack,

		// Use cases
		ProvidePipeline,
		ProvideJobQueue,

		// HTTP
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
