package di

import (
	"context"
	"fmt"
	"time"

	"FundPilot/internal/domain/repository"
	domservice "FundPilot/internal/domain/service"
	"FundPilot/internal/handler/api"
	mid "FundPilot/internal/middleware"
	internalrepo "FundPilot/internal/repository"
	"FundPilot/internal/service/funddata"
	"FundPilot/internal/service/yahoo"
	"FundPilot/internal/services/analysts"
	"FundPilot/internal/usecase"
	"FundPilot/pkg/cache"
	pkgch "FundPilot/pkg/clickhouse"
	"FundPilot/pkg/config"
	xhttp "FundPilot/pkg/http"
	pkgkafka "FundPilot/pkg/kafka"
	applogger "FundPilot/pkg/logger"
	"FundPilot/pkg/metrics"
	"FundPilot/pkg/queue"
	"FundPilot/pkg/server"

	"github.com/redis/go-redis/v9"
)

// closerFunc adapts a shutdown func to io.Closer for App.AddCloser.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache builds the cache layer selected by config.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	switch cfg.Cache.Mode {
	case "", "memory":
		return cache.NewMemoryCache(), nil
	case "redis":
		return cache.NewRedisCache(redisCacheOptions(cfg)...)
	case "layered":
		rc, err := cache.NewRedisCache(redisCacheOptions(cfg)...)
		if err != nil {
			return nil, err
		}
		return cache.NewLayeredCache(rc), nil
	default:
		return nil, fmt.Errorf("unknown cache mode: %s", cfg.Cache.Mode)
	}
}

func redisCacheOptions(cfg *config.Config) []cache.RedisOption {
	opts := []cache.RedisOption{
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
	}
	if cfg.Cache.Prefix != "" {
		opts = append(opts, cache.WithRedisPrefix(cfg.Cache.Prefix))
	}
	return opts
}

// ProvideMarketData creates the daily bars source.
func ProvideMarketData(cfg *config.Config, lgr *applogger.Logger, c cache.Service, m repository.Metrics) repository.MarketData {
	ttl := cfg.MarketData.CacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return yahoo.New(lgr, yahoo.WithCache(c, ttl), yahoo.WithMetrics(m))
}

// ProvideFundDataClient creates the fundamentals API client, or nil when no
// base URL is configured. Analysts that need fundamentals then fail per
// ticker instead of blocking the whole pipeline.
func ProvideFundDataClient(cfg *config.Config, lgr *applogger.Logger, c cache.Service) *funddata.Client {
	if cfg.FundData.BaseURL == "" {
		return nil
	}
	return funddata.New(cfg, lgr, funddata.WithCache(c, 15*time.Minute))
}

// ProvideFundamentalsSource exposes the fund data client as a fundamentals source.
func ProvideFundamentalsSource(client *funddata.Client) repository.FundamentalsSource {
	if client == nil {
		return nil
	}
	return client
}

// ProvideInsiderSource exposes the fund data client as an insider trades source.
func ProvideInsiderSource(client *funddata.Client) repository.InsiderSource {
	if client == nil {
		return nil
	}
	return client
}

// ProvideRegistry creates the default analyst lineup.
func ProvideRegistry(lgr *applogger.Logger) *analysts.Registry {
	return analysts.NewRegistry(lgr)
}

// ProvideRiskAssessor creates the risk manager.
func ProvideRiskAssessor(cfg *config.Config, lgr *applogger.Logger) domservice.RiskAssessor {
	return analysts.NewRiskManager(lgr, cfg.Pipeline.PositionLimitPct)
}

// ProvideDecisionMaker creates the portfolio manager.
func ProvideDecisionMaker(lgr *applogger.Logger) domservice.DecisionMaker {
	return analysts.NewPortfolioManager(lgr)
}

// AuditStack bundles the audit backend resources selected by config.
// Fields are nil when the backend does not use them.
type AuditStack struct {
	Sink     *mid.AuditSink
	Recorder *usecase.DecisionRecorder
	Store    repository.DecisionStore
	DB       *pkgch.Client
	Consumer *pkgkafka.Consumer
	Handler  pkgkafka.MessageHandler
}

// ProvideAuditStack builds the decision audit trail for the configured
// backend. With kafka, decisions are published to the topic and, when the
// consumer is enabled, read back into ClickHouse. With clickhouse, decisions
// are written directly.
func ProvideAuditStack(cfg *config.Config, lgr *applogger.Logger, m repository.Metrics) (*AuditStack, error) {
	stack := &AuditStack{}

	switch cfg.Audit.Backend {
	case "", "none":
		return stack, nil

	case "kafka":
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithBatch(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
			pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
			pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
			pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		pub := internalrepo.NewKafkaDecisionPublisher(producer, cfg.Kafka.Topic)
		stack.Recorder = usecase.NewDecisionRecorder(pub, nil, m, "kafka")

		if cfg.Kafka.Consumer.Enabled {
			store, client, err := provideDecisionStore(cfg)
			if err != nil {
				return nil, err
			}
			stack.DB = client
			consumer, err := pkgkafka.NewConsumer(
				pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
				pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
				pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
				pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
				pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
				pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
			)
			if err != nil {
				return nil, fmt.Errorf("kafka consumer: %w", err)
			}
			stack.Store = store
			stack.Consumer = consumer
			stack.Handler = usecase.NewKafkaDecisionsHandler(cfg.Kafka.Topic, store, m, lgr)
		}

	case "clickhouse":
		store, client, err := provideDecisionStore(cfg)
		if err != nil {
			return nil, err
		}
		stack.Store = store
		stack.DB = client
		stack.Recorder = usecase.NewDecisionRecorder(nil, store, m, "clickhouse")

	default:
		return nil, fmt.Errorf("unknown audit backend: %s", cfg.Audit.Backend)
	}

	sinkOpts := []mid.SinkOption{}
	if cfg.Audit.BufferSize > 0 {
		sinkOpts = append(sinkOpts, mid.WithBufferSize(cfg.Audit.BufferSize))
	}
	if cfg.Audit.Timeout > 0 {
		sinkOpts = append(sinkOpts, mid.WithWriteTimeout(cfg.Audit.Timeout))
	}
	stack.Sink = mid.NewAuditSink(stack.Recorder, m, lgr, sinkOpts...)
	return stack, nil
}

func provideDecisionStore(cfg *config.Config) (repository.DecisionStore, *pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	store := internalrepo.NewClickHouseDecisionStore(client.DB(), "trade_decisions")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, client, nil
}

// ProvidePipeline creates the analysis pipeline use case.
func ProvidePipeline(
	registry *analysts.Registry,
	market repository.MarketData,
	fundamentals repository.FundamentalsSource,
	insider repository.InsiderSource,
	risk domservice.RiskAssessor,
	decider domservice.DecisionMaker,
	lgr *applogger.Logger,
	m repository.Metrics,
	stack *AuditStack,
	cfg *config.Config,
) *usecase.PipelineUseCase {
	opts := []usecase.PipelineOption{
		usecase.WithMetrics(m),
		usecase.WithTimeout(cfg.Pipeline.RunTimeout),
		usecase.WithLookbackDays(cfg.Pipeline.MaxLookbackDays),
	}
	if stack.Sink != nil {
		opts = append(opts, usecase.WithSink(stack.Sink))
	}
	return usecase.NewPipelineUseCase(registry, market, fundamentals, insider, risk, decider, lgr, opts...)
}

// ProvideJobQueue creates the Redis-backed job queue for async runs, or nil
// when the queue is disabled.
func ProvideJobQueue(cfg *config.Config, lgr *applogger.Logger, pipeline *usecase.PipelineUseCase) (*queue.RedisQueue, error) {
	if !cfg.Queue.Enabled {
		return nil, nil
	}
	if cfg.Cache.Redis.Host == "" {
		return nil, fmt.Errorf("queue requires cache.redis.host")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Cache.Redis.Host, cfg.Cache.Redis.Port),
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})

	q := queue.NewRedisQueue(lgr, &queue.Config{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, client, queue.ModeProducerConsumer)
	q.RegisterJob(usecase.NewAnalysisJob(pipeline, lgr))
	return q, nil
}

// ProvideHandler creates the HTTP handler with its optional collaborators.
func ProvideHandler(
	cfg *config.Config,
	lgr *applogger.Logger,
	pipeline *usecase.PipelineUseCase,
	stack *AuditStack,
	q *queue.RedisQueue,
) xhttp.Handler {
	h := api.NewHedgeEchoHandler(lgr, pipeline)
	if stack.Store != nil {
		h.SetDecisionStore(stack.Store)
	}
	if q != nil {
		h.SetQueue(q)
	}
	h.SetRateLimit(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
	return h
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *applogger.Logger,
	handler xhttp.Handler,
	stack *AuditStack,
	q *queue.RedisQueue,
) *server.App {
	app := server.New(cfg, lgr, handler)

	if stack.Consumer != nil && stack.Handler != nil {
		app.SetConsumer(stack.Consumer, stack.Handler)
	}
	if q != nil {
		app.SetJobQueue(q)
	}
	// Closers run in reverse registration order. The database pool is
	// registered first so the sink's final flush still reaches a live recorder.
	if stack.DB != nil {
		app.AddCloser(stack.DB)
	}
	if stack.Recorder != nil {
		app.AddCloser(stack.Recorder)
	}
	if stack.Sink != nil {
		stack.Sink.Start()
		app.AddCloser(closerFunc(func() error {
			stack.Sink.Stop()
			return nil
		}))
	}
	return app
}
