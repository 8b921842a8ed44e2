package di

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"FinCurve/internal/domain/models"
	"FinCurve/internal/domain/repository"
	"FinCurve/internal/handler/api"
	internalrepo "FinCurve/internal/repository"
	"FinCurve/internal/usecase"
	"FinCurve/pkg/cache"
	"FinCurve/pkg/config"
	xhttp "FinCurve/pkg/http"
	"FinCurve/pkg/http/middleware"
	pkgkafka "FinCurve/pkg/kafka"
	"FinCurve/pkg/logger"
	"FinCurve/pkg/metrics"
	"FinCurve/pkg/queue"
	"FinCurve/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry every collector registers on.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates the curve metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.NewWithRegisterer(reg)
}

// ProvideKafkaMetrics creates Kafka client metrics.
func ProvideKafkaMetrics(reg *prometheus.Registry) *pkgkafka.Metrics {
	return pkgkafka.NewMetrics(reg)
}

// ProvideRedisCache connects to Redis unless the store is memory only.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if cfg.Store.Type == "memory" {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Store.Redis.Host),
		cache.WithRedisPort(cfg.Store.Redis.Port),
		cache.WithRedisPassword(cfg.Store.Redis.Password),
		cache.WithRedisDB(cfg.Store.Redis.DB),
		cache.WithRedisPoolSize(cfg.Store.Redis.PoolSize),
		cache.WithRedisPrefix(cfg.Store.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache creates the cache backing the curve and job stores.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) (cache.Service, error) {
	switch cfg.Store.Type {
	case "memory":
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Store.MemoryMaxSize)), nil
	case "redis":
		return rc, nil
	case "layered":
		return cache.NewLayeredCache(rc,
			cache.WithLayeredMemorySize(cfg.Store.MemoryMaxSize),
			cache.WithLayeredMemoryTTL(cfg.Store.CacheTTL),
		), nil
	}
	return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
}

// ProvideJobQueue creates the sweep job queue: Redis backed when the store
// is shared, in process otherwise.
func ProvideJobQueue(cfg *config.Config, rc *cache.RedisCache, l *logger.Logger) queue.Queue {
	qcfg := queue.Config{
		Workers:    cfg.Jobs.Workers,
		QueueSize:  cfg.Jobs.QueueSize,
		RetryLimit: cfg.Jobs.RetryLimit,
		RetryDelay: cfg.Jobs.RetryDelay,
	}
	if rc == nil {
		return queue.NewMemoryQueue(l, qcfg)
	}
	return queue.NewRedisQueue(l, qcfg, rc.Client(), queue.WithKeyPrefix(cfg.Store.Prefix+":queue"))
}

// ProvideCurveStore creates the curve definition store.
func ProvideCurveStore(svc cache.Service) repository.CurveStore {
	return internalrepo.NewCacheCurveStore(svc)
}

// ProvideSweepJobStore creates the sweep job store.
func ProvideSweepJobStore(svc cache.Service, cfg *config.Config) repository.SweepJobStore {
	return internalrepo.NewCacheSweepJobStore(svc, cfg.Jobs.ResultTTL)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config, km *pkgkafka.Metrics) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithProducerMetrics(km),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideResultPublisher publishes sweeps to Kafka when a producer exists.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ResultPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultsTopic)
}

// ProvideCurveRegistry creates the curve registry use case.
func ProvideCurveRegistry(store repository.CurveStore, m repository.Metrics, l *logger.Logger, cfg *config.Config) *usecase.CurveRegistry {
	return usecase.NewCurveRegistry(store, m, l, cfg.Store.CacheTTL)
}

// ProvideSweeper creates the sweep use case.
func ProvideSweeper(registry *usecase.CurveRegistry, pub repository.ResultPublisher, m repository.Metrics, l *logger.Logger, cfg *config.Config) *usecase.Sweeper {
	return usecase.NewSweeper(registry, pub, m, l, cfg.Sweep.Workers)
}

// ProvideSweepJobs creates the async sweep use case and registers it on the
// queue.
func ProvideSweepJobs(
	store repository.SweepJobStore,
	q queue.Queue,
	registry *usecase.CurveRegistry,
	sweeper *usecase.Sweeper,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.SweepJobs {
	jobs := usecase.NewSweepJobs(store, q, registry, sweeper, m, l)
	q.Register(jobs)
	return jobs
}

// ProvideKafkaCurvesHandler handles the curve definitions topic.
func ProvideKafkaCurvesHandler(registry *usecase.CurveRegistry, m repository.Metrics, l *logger.Logger, cfg *config.Config) *usecase.KafkaCurvesHandler {
	return usecase.NewKafkaCurvesHandler(cfg.Kafka.CurvesTopic, registry, m, l)
}

// ProvideKafkaConsumer creates a consumer for curve events, or nil when Kafka
// is off.
func ProvideKafkaConsumer(cfg *config.Config, kh *usecase.KafkaCurvesHandler, km *pkgkafka.Metrics, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
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
		pkgkafka.WithConsumerLogger(l),
		pkgkafka.WithConsumerMetrics(km),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(kh)
	return consumer, nil
}

// ProvideCurvesHandler creates the HTTP handler.
func ProvideCurvesHandler(l *logger.Logger, registry *usecase.CurveRegistry, sweeper *usecase.Sweeper, jobs *usecase.SweepJobs, cfg *config.Config) *api.CurvesEchoHandler {
	grid := models.Grid{From: cfg.Sweep.From, To: cfg.Sweep.To, Step: cfg.Sweep.Step}
	return api.NewCurvesEchoHandler(l, registry, sweeper, jobs, grid)
}

// ProvideHTTPServer creates the HTTP server.
func ProvideHTTPServer(cfg *config.Config, h *api.CurvesEchoHandler, l *logger.Logger, reg *prometheus.Registry) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithCORS(cfg.Server.CORS.AllowOrigins),
		xhttp.WithRateLimit(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg, middleware.NewHTTPMetrics(reg)))
	}
	return xhttp.NewServer(h, l, opts...)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	jobs queue.Queue,
	store cache.Service,
) *server.App {
	return server.New(cfg, l, httpServer, consumer, producer, jobs, store)
}
