package di

import (
	"fmt"
	"time"

	"AlphaWalk/internal/domain/repository"
	"AlphaWalk/internal/handler/api"
	internalrepo "AlphaWalk/internal/repository"
	"AlphaWalk/internal/services/cluster"
	"AlphaWalk/internal/services/features"
	"AlphaWalk/internal/services/optimizer"
	"AlphaWalk/internal/usecase"
	"AlphaWalk/pkg/cache"
	pkgch "AlphaWalk/pkg/clickhouse"
	"AlphaWalk/pkg/config"
	xhttp "AlphaWalk/pkg/http"
	pkgkafka "AlphaWalk/pkg/kafka"
	applogger "AlphaWalk/pkg/logger"
	"AlphaWalk/pkg/metrics"
	"AlphaWalk/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client for the bars table.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideCache creates the panel cache backend selected by config.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if cfg.Cache.Backend == "redis" {
		c, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	}
	return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MaxSize)), nil
}

// ProvidePriceStore creates the ClickHouse price store behind the cache
// decorator.
func ProvidePriceStore(chClient *pkgch.Client, c cache.Service, cfg *config.Config, l *applogger.Logger) repository.PriceStore {
	store := internalrepo.NewCHPriceStore(chClient, cfg.ClickHouse.Table)
	store.SetLogger(l)

	cached := internalrepo.NewCachedPriceStore(store, c, cfg.Cache.TTL)
	cached.SetLogger(l)
	return cached
}

// ProvideEventPublisher creates the Kafka event sink, or nil when Kafka is
// disabled. When enabled it also attaches the aggregating error collector to
// the logger, flushing through the same producer.
func ProvideEventPublisher(cfg *config.Config, l *applogger.Logger) (repository.EventPublisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	l.AddCollector(&applogger.CollectorConfig{
		FlushInterval:  30 * time.Second,
		CountThreshold: 100,
		Topic:          cfg.Kafka.LogsTopic,
		Publisher:      producer,
	})
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideExtractor creates the feature extractor.
func ProvideExtractor(l *applogger.Logger) *features.Extractor {
	return features.NewExtractor(features.WithLogger(l))
}

// ProvideClusterer creates the k-means service with the configured seed.
func ProvideClusterer(cfg *config.Config) *cluster.Service {
	return cluster.NewService(cluster.WithSeed(cfg.Simulation.Seed))
}

// ProvideEstimator creates the universe and covariance estimator.
func ProvideEstimator() *optimizer.Estimator {
	return optimizer.NewEstimator()
}

// ProvideSimulator creates the walk-forward simulator.
func ProvideSimulator(publisher repository.EventPublisher, m repository.Metrics) *usecase.Simulator {
	return usecase.NewSimulator(publisher, m)
}

// ProvideRunner creates the run orchestrator.
func ProvideRunner(
	store repository.PriceStore,
	sim *usecase.Simulator,
	extractor *features.Extractor,
	clusterer *cluster.Service,
	estimator *optimizer.Estimator,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Runner {
	r := usecase.NewRunner(store, sim, extractor, clusterer, estimator, m)
	r.SetLogger(l)
	return r
}

// ProvideHTTPHandler creates the API handler.
func ProvideHTTPHandler(cfg *config.Config, l *applogger.Logger, runner *usecase.Runner, store repository.PriceStore) xhttp.Handler {
	return api.NewSimulationHandler(l, runner, store,
		api.WithMaxRunDuration(cfg.Simulation.MaxRunDuration),
		api.WithProgressBuffer(cfg.Simulation.ProgressBufferSize),
	)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	chClient *pkgch.Client,
	publisher repository.EventPublisher,
	c cache.Service,
) *server.App {
	return server.New(cfg, l, handler, chClient, publisher, c)
}
