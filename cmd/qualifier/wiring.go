package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/trace"

	"qualifier/internal/evidence/profile"
	"qualifier/internal/evidence/profile/cache"
	profilemetrics "qualifier/internal/evidence/profile/metrics"
	"qualifier/internal/evidence/profile/tracer"
	"qualifier/internal/platform/config"
	"qualifier/internal/platform/database"
	"qualifier/internal/platform/health"
	"qualifier/internal/platform/kafka/producer"
	"qualifier/internal/platform/logger"
	"qualifier/internal/platform/redis"
	"qualifier/internal/qualification"
	qualmetrics "qualifier/internal/qualification/metrics"
	"qualifier/internal/qualification/publisher"
	"qualifier/internal/qualification/service"
	"qualifier/internal/qualification/store"
	"qualifier/internal/ratelimit"
)

// loadConfig applies flag overrides on top of file and environment settings.
func loadConfig(flags *globalFlags) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.LogFormat = flags.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, logger.New(cfg.LogFormat, cfg.LogLevel), nil
}

// infra holds the optional backing services of a run. Nil fields are not configured.
type infra struct {
	db       *database.Pool
	redis    *redis.Client
	producer *producer.Producer
	health   *health.Handler
}

func connectInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{health: health.New()}

	db, err := database.New(ctx, database.DefaultConfig(cfg.Infra.DatabaseURL))
	if err != nil {
		return nil, err
	}
	if db != nil {
		in.db = db
		in.health.RegisterCheck("postgres", db.Health)
	}

	rdb, err := redis.New(ctx, cfg.Infra.RedisURL)
	if err != nil {
		in.close(log)
		return nil, err
	}
	if rdb != nil {
		in.redis = rdb
		in.health.RegisterCheck("redis", rdb.Health)
	}

	if cfg.Infra.KafkaBrokers != "" {
		prod, err := producer.New(producer.DefaultConfig(cfg.Infra.KafkaBrokers), log)
		if err != nil {
			in.close(log)
			return nil, err
		}
		in.producer = prod
		in.health.RegisterCheck("kafka", prod.Health)
	}
	return in, nil
}

func (in *infra) close(log *slog.Logger) {
	if in.producer != nil {
		_ = in.producer.Close()
	}
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			log.Warn("failed to close redis client", "error", err)
		}
	}
	if err := in.db.Close(); err != nil {
		log.Warn("failed to close database pool", "error", err)
	}
}

// outcomeStore returns the Postgres store with its schema in place. Without a
// database the run is kept in memory for the life of the process.
func (in *infra) outcomeStore(ctx context.Context) (store.Store, error) {
	if in.db == nil {
		return store.NewInMemory(), nil
	}
	pg := store.NewPostgres(in.db.DB())
	if err := pg.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return pg, nil
}

// newCollector builds the shared profile collector. A single limiter is
// created here so every worker waits on the same courtesy interval.
func newCollector(cfg config.Config, in *infra, reg prometheus.Registerer, tp trace.TracerProvider, log *slog.Logger, client *http.Client) *profile.Collector {
	var evidenceCache profile.Cache = cache.NewInMemoryCache(cfg.Fetch.CacheTTL)
	if in.redis != nil {
		evidenceCache = cache.NewRedisCache(in.redis.Client, cfg.Fetch.CacheTTL)
	}

	opts := []profile.Option{
		profile.WithLimiter(ratelimit.NewInterval(cfg.Fetch.CourtesyInterval)),
		profile.WithTracer(tracer.NewOTel(tp)),
		profile.WithMetrics(profilemetrics.New(reg)),
		profile.WithLogger(log),
	}
	if cfg.Fetch.CacheTTL > 0 {
		opts = append(opts, profile.WithCache(evidenceCache))
	}
	if client != nil {
		opts = append(opts, profile.WithHTTPClient(client))
	}

	return profile.NewCollector(profile.Config{
		Attempts:   cfg.Fetch.Attempts,
		RetryDelay: cfg.Fetch.RetryDelay,
		Timeout:    cfg.Fetch.Timeout,
		UserAgent:  cfg.Fetch.UserAgent,
	}, opts...)
}

func newService(cfg config.Config, in *infra, st store.Store, collector service.Collector, reg prometheus.Registerer, log *slog.Logger) (*service.Service, error) {
	policy := qualification.Policy{
		ProgramYear:     cfg.Program.Year,
		ReservedDomain:  cfg.Program.ReservedDomain,
		AcceptedConsent: cfg.Program.AcceptedConsent,
	}
	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(qualmetrics.New(reg)),
		service.WithWorkers(cfg.Fetch.Workers),
		service.WithStore(st),
	}
	if in.producer != nil {
		pub, err := publisher.New(in.producer, cfg.Infra.KafkaTopic, publisher.WithLogger(log))
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithPublisher(pub))
	}
	return service.New(collector, policy, opts...)
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

var errNoDatabase = errors.New("DATABASE_URL (or infra.database_url) is required")
