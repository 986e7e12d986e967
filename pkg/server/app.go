package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "SilverScan/internal/domain/repository"
	"SilverScan/internal/usecase"
	pkgch "SilverScan/pkg/clickhouse"
	"SilverScan/pkg/config"
	xhttp "SilverScan/pkg/http"
	pkgkafka "SilverScan/pkg/kafka"
	applogger "SilverScan/pkg/logger"
)

// App owns the component lifecycles. Optional components arrive nil when
// their config section is disabled; Run skips them and shutdown follows the
// data flow in reverse so producers drain before their outputs close.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	watcher    *usecase.Watcher
	collector  *usecase.StreamCollector
	consumer   *pkgkafka.Consumer
	ingest     *usecase.KafkaCandlesHandler
	sink       domrepo.CandleSink
	pub        domrepo.Publisher
	chClient   *pkgch.Client
}

// New creates the application from its wired components.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	watcher *usecase.Watcher,
	collector *usecase.StreamCollector,
	consumer *pkgkafka.Consumer,
	ingest *usecase.KafkaCandlesHandler,
	sink domrepo.CandleSink,
	pub domrepo.Publisher,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		watcher:    watcher,
		collector:  collector,
		consumer:   consumer,
		ingest:     ingest,
		sink:       sink,
		pub:        pub,
		chClient:   chClient,
	}
}

// Run starts every enabled component and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// storage schema must exist before the stream or the consumer writes
	if a.sink != nil {
		initCtx, initCancel := context.WithTimeout(ctx, 10*time.Second)
		err := a.sink.Init(initCtx)
		initCancel()
		if err != nil {
			return fmt.Errorf("candle schema: %w", err)
		}
		a.log.Info("candle schema ready")
	}

	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			a.log.Error("stream collector start failed", applogger.Error(err))
			return fmt.Errorf("stream collector: %w", err)
		}
		a.log.Info("stream collector started",
			applogger.Strings("symbols", a.cfg.Stream.Symbols),
			applogger.String("interval", a.cfg.Stream.Interval),
		)
	}

	if a.watcher != nil {
		a.watcher.Start(ctx)
	}

	if a.consumer != nil && a.ingest != nil {
		a.consumer.RegisterHandler(a.ingest)
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start failed", applogger.Error(err))
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.ingest.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start failed", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	// stop feeding the pipeline before flushing its tail bars
	cancel()
	return a.shutdown()
}

// shutdown stops components in reverse data-flow order: trade intake first so
// tail bars flush into still-open storage and bus connections, those
// connections last.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()

	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.log.Warn("stream collector stop error", applogger.Error(err))
		}
	}

	if a.watcher != nil {
		a.watcher.Stop()
	}

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// final error-batch flush happens before the producer goes away
	a.log.RemoveCollector()

	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
