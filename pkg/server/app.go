package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"PairFlow/internal/aggregator"
	"PairFlow/internal/buffer"
	domrepo "PairFlow/internal/domain/repository"
	"PairFlow/internal/usecase"
	pkgch "PairFlow/pkg/clickhouse"
	"PairFlow/pkg/config"
	xhttp "PairFlow/pkg/http"
	applogger "PairFlow/pkg/logger"
)

// App encapsulates the pipeline lifecycle: tick collection, aggregation,
// snapshot cycles, and the HTTP API. Open bar windows are discarded on
// shutdown; restart replay rebuilds them.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	collector  *usecase.TickCollector
	agg        *aggregator.Aggregator
	buf        *buffer.Buffer
	snapshots  *usecase.SnapshotService
	store      domrepo.BarStore
	chClient   *pkgch.Client // nil with the memory store
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.TickCollector,
	agg *aggregator.Aggregator,
	buf *buffer.Buffer,
	snapshots *usecase.SnapshotService,
	store domrepo.BarStore,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *App {
	httpServer := xhttp.NewServer(handler, log,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
	)
	return &App{
		cfg:        cfg,
		log:        log,
		collector:  collector,
		agg:        agg,
		buf:        buf,
		snapshots:  snapshots,
		store:      store,
		chClient:   chClient,
		httpServer: httpServer,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.collector.Start(ctx); err != nil {
		a.log.Error("collector start failed", applogger.Error(err))
		return err
	}
	a.log.Info("collector started",
		applogger.String("source", a.cfg.Source.Type),
		applogger.Strings("pairs", a.cfg.Source.Pairs))

	go func() {
		if err := a.agg.Run(ctx, a.buf); err != nil {
			a.log.Error("aggregator stopped", applogger.Error(err))
		}
	}()
	a.log.Info("aggregator started", applogger.Strings("timeframes", a.cfg.Aggregator.Timeframes))

	go func() {
		if err := a.snapshots.Run(ctx); err != nil {
			a.log.Error("snapshot service stopped", applogger.Error(err))
		}
	}()
	a.log.Info("snapshot service started",
		applogger.String("pair_x", a.cfg.Analytics.PairX),
		applogger.String("pair_y", a.cfg.Analytics.PairY),
		applogger.Duration("cycle_interval", a.cfg.Analytics.CycleInterval))

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	if err := a.collector.Shutdown(); err != nil {
		a.log.Warn("collector stop error", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("bar store close error", applogger.Error(err))
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
