package di

import (
	"context"
	"fmt"
	"time"

	segkafka "github.com/segmentio/kafka-go"

	domrepo "SilverScan/internal/domain/repository"
	domsvc "SilverScan/internal/domain/service"
	"SilverScan/internal/handler/api"
	mid "SilverScan/internal/middleware"
	internalrepo "SilverScan/internal/repository"
	fetchcache "SilverScan/internal/service/cache"
	"SilverScan/internal/service/calendar"
	"SilverScan/internal/service/ratelimit"
	"SilverScan/internal/service/stream"
	"SilverScan/internal/service/yahoo"
	"SilverScan/internal/services/patterns"
	"SilverScan/internal/usecase"
	pkgcache "SilverScan/pkg/cache"
	pkgch "SilverScan/pkg/clickhouse"
	"SilverScan/pkg/config"
	xhttp "SilverScan/pkg/http"
	pkgkafka "SilverScan/pkg/kafka"
	applogger "SilverScan/pkg/logger"
	"SilverScan/pkg/metrics"
	"SilverScan/pkg/server"
)

// ProvideLogger creates the application logger. Empty fields fall back to a
// console logger on stdout at info level.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "console"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	l, err := applogger.New(lc)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideCalendar creates the exchange calendar from the configured zone.
func ProvideCalendar(cfg *config.Config) (*calendar.Calendar, error) {
	cal, err := calendar.New(cfg.Market.Zone)
	if err != nil {
		return nil, fmt.Errorf("market calendar: %w", err)
	}
	return cal, nil
}

// ProvideLiquidityDetector creates the equal-extreme pool detector.
func ProvideLiquidityDetector(cfg *config.Config) (domsvc.LiquidityDetector, error) {
	return patterns.NewLiquidityDetector(cfg.Patterns.Tolerance)
}

// ProvideGapDetector creates the fair value gap detector bound to the
// exchange clock. Configured windows override the session defaults.
func ProvideGapDetector(cfg *config.Config, cal *calendar.Calendar) (domsvc.GapDetector, error) {
	windows := patterns.DefaultWindows()
	if len(cfg.Patterns.Windows) > 0 {
		windows = make([]patterns.ClockWindow, len(cfg.Patterns.Windows))
		for i, w := range cfg.Patterns.Windows {
			windows[i] = patterns.ClockWindow{From: w.From, To: w.To}
		}
	}
	return patterns.NewGapDetector(windows, cal.ClockHour)
}

// ProvideBlockDetector creates the order block detector.
func ProvideBlockDetector(cfg *config.Config) (domsvc.BlockDetector, error) {
	return patterns.NewBlockDetector(cfg.Patterns.MinBodyFrac, cfg.Patterns.MinVolume)
}

// ProvideDecisionAgent creates the suggestion agent.
func ProvideDecisionAgent(cfg *config.Config) (domsvc.DecisionAgent, error) {
	return patterns.NewAgent(cfg.Patterns.StopBuffer, cfg.Patterns.RewardRatio)
}

// ProvideAnalyzer creates the detector orchestrator.
func ProvideAnalyzer(
	cfg *config.Config,
	pools domsvc.LiquidityDetector,
	gaps domsvc.GapDetector,
	blocks domsvc.BlockDetector,
	m domrepo.Metrics,
	l *applogger.Logger,
) (*usecase.Analyzer, error) {
	return usecase.NewAnalyzer(cfg.Patterns.Lookback, pools, gaps, blocks, m, l)
}

// ProvideAlertGenerator creates the alert narrator in the exchange zone.
func ProvideAlertGenerator(cal *calendar.Calendar) *usecase.AlertGenerator {
	return usecase.NewAlertGenerator(cal.Zone())
}

// ProvideCacheService picks the candle-window cache backend: a Redis-backed
// layered cache when Redis is enabled, otherwise in-process memory.
func ProvideCacheService(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(), nil
	}
	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "silverscan"
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(rc), nil
}

// ProvideYahooClient creates the chart API client.
func ProvideYahooClient(cfg *config.Config, cal *calendar.Calendar, l *applogger.Logger) *yahoo.Client {
	opts := []yahoo.Option{yahoo.WithRateLimiter(ratelimit.New())}
	if cfg.Fetch.BaseURL != "" {
		opts = append(opts, yahoo.WithBaseURL(cfg.Fetch.BaseURL))
	}
	if cfg.Fetch.Attempts > 0 {
		opts = append(opts, yahoo.WithAttempts(cfg.Fetch.Attempts))
	}
	return yahoo.NewClient(cal, l, opts...)
}

// ProvideClickHouseClient connects to ClickHouse when a host is configured.
// Without one the engine runs cache-only: no fallback reads, no persistence.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.ClickHouse.Host == "" {
		return nil, nil
	}
	database := cfg.ClickHouse.Database
	if database == "" {
		database = "silverscan"
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithCompression(cfg.ClickHouse.Compression),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideCandleSource exposes stored candles for fallback reads.
func ProvideCandleSource(ch *pkgch.Client, l *applogger.Logger) domrepo.CandleSource {
	if ch == nil {
		return nil
	}
	store := internalrepo.NewCHCandleStore(ch)
	store.SetLogger(l)
	return store
}

// ProvideCandleSink persists closed bars from the ingest paths.
func ProvideCandleSink(ch *pkgch.Client) domrepo.CandleSink {
	if ch == nil {
		return nil
	}
	return internalrepo.NewClickHouseCandleSink(ch)
}

// ProvideMarketFetcher assembles the fetch chain: upstream chart client,
// wrapped in the TTL cache, wrapped in the storage fallback when ClickHouse
// is present.
func ProvideMarketFetcher(
	cfg *config.Config,
	yc *yahoo.Client,
	cacheSvc pkgcache.Service,
	source domrepo.CandleSource,
	m domrepo.Metrics,
	l *applogger.Logger,
) domrepo.MarketFetcher {
	var copts []fetchcache.Option
	if cfg.Fetch.CacheTTL > 0 {
		copts = append(copts, fetchcache.WithTTL(cfg.Fetch.CacheTTL))
	}
	var fetcher domrepo.MarketFetcher = fetchcache.NewCachedFetcher(yc, cacheSvc, m, l, copts...)
	if source != nil {
		fetcher = internalrepo.NewStoreFallbackFetcher(fetcher, source, m, l)
	}
	return fetcher
}

// ProvideKafkaProducer creates the producer when brokers are configured.
// Hash-by-key keeps a symbol's messages on one partition.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher fans detection output to the configured topics.
func ProvidePublisher(cfg *config.Config, producer *pkgkafka.Producer) domrepo.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(
		producer,
		cfg.Kafka.CandlesTopic,
		cfg.Kafka.AlertsTopic,
		cfg.Kafka.SuggestionsTopic,
	)
}

// ProvideKafkaConsumer creates the ingest consumer when enabled, with a hook
// chain that stamps trace ids and reports slow or failing handlers.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger, m domrepo.Metrics) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(ingestHook(l, m))
	return consumer, nil
}

// ingestHook builds the consumer hook chain: Before stamps start time and
// trace id into the context, After flags slow handling, Err counts retries.
func ingestHook(l *applogger.Logger, m domrepo.Metrics) pkgkafka.ConsumerHook {
	return pkgkafka.NewHookChain(pkgkafka.HookFuncs{
		Before: func(ctx context.Context, topic string, km segkafka.Message, data []byte) (context.Context, segkafka.Message, []byte, error) {
			ctx = pkgkafka.WithStartTime(ctx, time.Now())
			ctx = pkgkafka.WithTraceID(ctx, pkgkafka.ExtractTraceID(km))
			return ctx, km, data, nil
		},
		After: func(ctx context.Context, topic string, km segkafka.Message, data []byte, err error) {
			start, ok := ctx.Value(pkgkafka.CtxStartTime).(time.Time)
			if !ok || err != nil {
				return
			}
			if d := time.Since(start); d > time.Second && l != nil {
				l.Warn("slow candle ingest",
					applogger.String("topic", topic),
					applogger.String("took", d.String()),
				)
			}
		},
		Err: func(ctx context.Context, topic string, km segkafka.Message, data []byte, err error) {
			if m != nil {
				m.RecordError("ingest")
			}
			if l != nil {
				traceID, _ := ctx.Value(pkgkafka.CtxTraceID).(string)
				l.Warn("candle ingest retry",
					applogger.String("topic", topic),
					applogger.String("trace_id", traceID),
					applogger.Error(err),
				)
			}
		},
	})
}

// ProvideCandlesIngestHandler handles the candles topic when the consumer
// runs.
func ProvideCandlesIngestHandler(cfg *config.Config, sink domrepo.CandleSink, m domrepo.Metrics) *usecase.KafkaCandlesHandler {
	if !cfg.Kafka.Consumer.Enabled || sink == nil {
		return nil
	}
	return usecase.NewKafkaCandlesHandler(cfg.Kafka.CandlesTopic, sink, m)
}

// ProvideStreamCollector assembles the live trade path when enabled:
// websocket stream into the bucketing pipeline, out to storage and the bus.
func ProvideStreamCollector(
	cfg *config.Config,
	sink domrepo.CandleSink,
	pub domrepo.Publisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) (*usecase.StreamCollector, error) {
	if !cfg.Stream.Enabled {
		return nil, nil
	}
	ms := stream.New(
		cfg.Stream.APIKey,
		cfg.Stream.WebSocketURL,
		cfg.Stream.Symbols,
		cfg.Stream.ReconnectDelay,
		cfg.Stream.PingInterval,
		l,
	)
	var popts []mid.PipelineOption
	if cfg.Stream.MaxRPS > 0 {
		popts = append(popts, mid.WithMaxRPS(cfg.Stream.MaxRPS))
	}
	if cfg.Stream.BufferSize > 0 {
		popts = append(popts, mid.WithBufferSize(cfg.Stream.BufferSize))
	}
	pipe, err := mid.NewCandlePipeline(domrepo.Interval(cfg.Stream.Interval), sink, pub, m, popts...)
	if err != nil {
		return nil, fmt.Errorf("candle pipeline: %w", err)
	}
	return usecase.NewStreamCollector(ms, pipe, m), nil
}

// ProvideWatcher creates the poll loop when enabled.
func ProvideWatcher(
	cfg *config.Config,
	fetcher domrepo.MarketFetcher,
	analyzer *usecase.Analyzer,
	agent domsvc.DecisionAgent,
	alerts *usecase.AlertGenerator,
	pub domrepo.Publisher,
	seen pkgcache.Service,
	m domrepo.Metrics,
	l *applogger.Logger,
) (*usecase.Watcher, error) {
	if !cfg.Watcher.Enabled {
		return nil, nil
	}
	w, err := usecase.NewWatcher(
		fetcher, analyzer, agent, alerts, pub, seen, m, l,
		cfg.Watcher.Symbols,
		domrepo.Interval(cfg.Watcher.Interval),
		cfg.Watcher.PollEvery,
	)
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	return w, nil
}

// ProvideMarketDataUseCase creates the analysis use case behind the API.
func ProvideMarketDataUseCase(
	fetcher domrepo.MarketFetcher,
	analyzer *usecase.Analyzer,
	agent domsvc.DecisionAgent,
	alerts *usecase.AlertGenerator,
	cal *calendar.Calendar,
	m domrepo.Metrics,
	l *applogger.Logger,
) (*usecase.MarketDataUseCase, error) {
	return usecase.NewMarketDataUseCase(fetcher, analyzer, agent, alerts, cal.Zone(), m, l)
}

// ProvideMarketDataHandler creates the HTTP handler.
func ProvideMarketDataHandler(l *applogger.Logger, uc *usecase.MarketDataUseCase) xhttp.Handler {
	return api.NewMarketDataHandler(l, uc)
}

// ProvideHTTPServer creates the Echo server with metrics and slow-request
// logging.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path),
		xhttp.WithSlowRequestLog(l, 2*time.Second),
	}
	if cfg.Server.Port > 0 {
		opts = append(opts, xhttp.WithPort(cfg.Server.Port))
	}
	return xhttp.NewServer(h, opts...)
}

// errorLogBus adapts the Kafka producer to the log collector's port.
type errorLogBus struct {
	producer *pkgkafka.Producer
}

func (b errorLogBus) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return b.producer.Publish(ctx, topic, nil, payload)
}

// ProvideApp bundles everything into the runnable application. When an
// errors topic is configured the logger's batch collector ships aggregated
// error lines to it through the shared producer.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	watcher *usecase.Watcher,
	collector *usecase.StreamCollector,
	consumer *pkgkafka.Consumer,
	ingest *usecase.KafkaCandlesHandler,
	sink domrepo.CandleSink,
	pub domrepo.Publisher,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *server.App {
	if producer != nil && cfg.Logger.ErrorsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Logger.ErrorsTopic,
			Publisher:      errorLogBus{producer: producer},
		})
	}
	return server.New(cfg, l, httpServer, watcher, collector, consumer, ingest, sink, pub, chClient)
}
