package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"PairFlow/internal/aggregator"
	"PairFlow/internal/buffer"
	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	"PairFlow/internal/handler/api"
	internalrepo "PairFlow/internal/repository"
	"PairFlow/internal/service/binance"
	"PairFlow/internal/services/analytics"
	"PairFlow/internal/usecase"
	"PairFlow/pkg/cache"
	pkgch "PairFlow/pkg/clickhouse"
	"PairFlow/pkg/config"
	xhttp "PairFlow/pkg/http"
	pkgkafka "PairFlow/pkg/kafka"
	applogger "PairFlow/pkg/logger"
	"PairFlow/pkg/metrics"
	"PairFlow/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Log.Pretty {
		format = "console"
	}
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: format,
		Output: "stdout",
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the
// bars schema. Returns nil when the memory store is configured.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Storage.Type != "clickhouse" {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.BarSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideBarStore selects the bar store backend.
func ProvideBarStore(cfg *config.Config, chClient *pkgch.Client, log *applogger.Logger) (domrepo.BarStore, error) {
	switch cfg.Storage.Type {
	case "clickhouse":
		return internalrepo.NewCHBarStore(chClient, log), nil
	case "memory":
		return internalrepo.NewMemoryBarStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

// ProvideRedisClient creates a Redis client when the source or fanout needs
// one. Returns nil otherwise so the dependency stays optional.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if cfg.Source.Type != "redis" && cfg.Fanout.Type != "redis" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideTickSource selects the tick source backend.
func ProvideTickSource(cfg *config.Config, redisClient *redis.Client, log *applogger.Logger) (domrepo.TickSource, error) {
	switch cfg.Source.Type {
	case "binance":
		return binance.New(
			cfg.Binance.WebSocketURL,
			cfg.Source.Pairs,
			cfg.Binance.ReconnectDelay,
			cfg.Binance.PingInterval,
			log,
		), nil
	case "redis":
		return internalrepo.NewRedisTickSource(redisClient, cfg.Redis.Group, cfg.Source.Pairs, log), nil
	case "kafka":
		return internalrepo.NewKafkaTickSource(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, log), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", cfg.Source.Type)
	}
}

// ProvideTickPublisher selects the fanout backend. A nil publisher means
// fanout is disabled and the collector skips the republish step.
func ProvideTickPublisher(cfg *config.Config, redisClient *redis.Client, log *applogger.Logger) (domrepo.TickPublisher, error) {
	switch cfg.Fanout.Type {
	case "none":
		return nil, nil
	case "redis":
		return internalrepo.NewRedisTickPublisher(redisClient, log), nil
	case "kafka":
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		return internalrepo.NewKafkaTickPublisher(producer, cfg.Kafka.Topic), nil
	default:
		return nil, fmt.Errorf("unsupported fanout type: %s", cfg.Fanout.Type)
	}
}

// ProvideBuffer creates the bounded tick buffer.
func ProvideBuffer(cfg *config.Config, m domrepo.Metrics) *buffer.Buffer {
	return buffer.New(cfg.Buffer.Capacity, m)
}

// ProvideAggregator creates the multi-timeframe aggregator.
func ProvideAggregator(cfg *config.Config, store domrepo.BarStore, m domrepo.Metrics, log *applogger.Logger) (*aggregator.Aggregator, error) {
	timeframes, err := models.ParseTimeframes(cfg.Aggregator.Timeframes)
	if err != nil {
		return nil, fmt.Errorf("aggregator timeframes: %w", err)
	}
	return aggregator.New(store, m, log, aggregator.Config{
		Timeframes:   timeframes,
		RetryMax:     cfg.Aggregator.RetryMax,
		RetryBackoff: cfg.Aggregator.RetryBackoff,
	}), nil
}

// ProvideAnalyticsEngine creates the pair analytics engine.
func ProvideAnalyticsEngine(store domrepo.BarStore, m domrepo.Metrics, log *applogger.Logger) *analytics.Engine {
	return analytics.NewEngine(store, m, log)
}

// ProvideSnapshotService creates the periodic snapshot service for the
// monitored pair.
func ProvideSnapshotService(cfg *config.Config, engine *analytics.Engine, m domrepo.Metrics, log *applogger.Logger) *usecase.SnapshotService {
	return usecase.NewSnapshotService(engine, usecase.SnapshotConfig{
		PairX:         cfg.Analytics.PairX,
		PairY:         cfg.Analytics.PairY,
		Timeframe:     models.NormalizeTimeframe(cfg.Analytics.Timeframe),
		Window:        cfg.Analytics.Window,
		CycleInterval: cfg.Analytics.CycleInterval,
		LagOrder:      cfg.Analytics.LagOrder,
		AlertZScore:   cfg.Analytics.AlertZScore,
		ADFEveryCycle: cfg.Analytics.ADFEveryCycle,
	}, m, log)
}

// ProvideTickCollector creates the tick collector use case.
func ProvideTickCollector(
	source domrepo.TickSource,
	fanout domrepo.TickPublisher,
	buf *buffer.Buffer,
	cfg *config.Config,
	m domrepo.Metrics,
	log *applogger.Logger,
) *usecase.TickCollector {
	return usecase.NewTickCollector(source, fanout, buf, cfg.Source.MaxTicksPerSec, m, log)
}

// ProvideHandler creates the HTTP API handler with its response cache.
func ProvideHandler(
	cfg *config.Config,
	log *applogger.Logger,
	snapshots *usecase.SnapshotService,
	engine *analytics.Engine,
	store domrepo.BarStore,
	source domrepo.TickSource,
) xhttp.Handler {
	responseCache := cache.NewMemory(cache.WithMaxSize(512))
	return api.NewPairsEchoHandler(log, snapshots, engine, store, source, responseCache, cfg.Analytics.CacheTTL)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.TickCollector,
	agg *aggregator.Aggregator,
	buf *buffer.Buffer,
	snapshots *usecase.SnapshotService,
	store domrepo.BarStore,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, collector, agg, buf, snapshots, store, chClient, handler)
}
