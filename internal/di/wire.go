//go:build wireinject
// +build wireinject

package di

import (
	"SilverScan/pkg/config"
	"SilverScan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires the full application graph from configuration.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideCalendar,

		// Detection stack
		ProvideLiquidityDetector,
		ProvideGapDetector,
		ProvideBlockDetector,
		ProvideDecisionAgent,
		ProvideAnalyzer,
		ProvideAlertGenerator,

		// Candle acquisition
		ProvideCacheService,
		ProvideYahooClient,
		ProvideClickHouseClient,
		ProvideCandleSource,
		ProvideMarketFetcher,

		// Messaging
		ProvideKafkaProducer,
		ProvidePublisher,
		ProvideKafkaConsumer,
		ProvideCandlesIngestHandler,

		// Persistence and loops
		ProvideCandleSink,
		ProvideStreamCollector,
		ProvideWatcher,

		// HTTP surface
		ProvideMarketDataUseCase,
		ProvideMarketDataHandler,
		ProvideHTTPServer,

		// Application
		ProvideApp,
	)
	return &server.App{}, nil
}
