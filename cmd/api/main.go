package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	httpadapter "github.com/couchcryptid/solar-feasibility-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/solar-feasibility-service/internal/adapter/kafka"
	"github.com/couchcryptid/solar-feasibility-service/internal/adapter/nominatim"
	"github.com/couchcryptid/solar-feasibility-service/internal/adapter/postgres"
	"github.com/couchcryptid/solar-feasibility-service/internal/adapter/power"
	"github.com/couchcryptid/solar-feasibility-service/internal/adapter/rediscache"
	"github.com/couchcryptid/solar-feasibility-service/internal/adapter/resilience"
	"github.com/couchcryptid/solar-feasibility-service/internal/adapter/viacep"
	"github.com/couchcryptid/solar-feasibility-service/internal/config"
	"github.com/couchcryptid/solar-feasibility-service/internal/domain"
	"github.com/couchcryptid/solar-feasibility-service/internal/feasibility"
	"github.com/couchcryptid/solar-feasibility-service/internal/observability"
	"github.com/couchcryptid/solar-feasibility-service/internal/pipeline"
	"github.com/couchcryptid/solar-feasibility-service/internal/registry"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()
	ready := observability.NewReadinessGroup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Geocoding: Nominatim behind an LRU cache and a circuit breaker.
	var geocoder domain.Geocoder = nominatim.NewCachedGeocoder(
		nominatim.NewClient(nominatim.Options{
			BaseURL:   cfg.GeocoderURL,
			Country:   cfg.GeocoderCountry,
			UserAgent: cfg.GeocoderUserAgent,
			Timeout:   cfg.GeocoderTimeout,
			RateLimit: cfg.GeocoderRateLimit,
		}, metrics, logger),
		cfg.GeocoderCacheSize, metrics,
	)
	geocoder = resilience.NewGeocoder(geocoder, resilience.DefaultSettings(), metrics, logger)

	// Irradiance: NASA POWER, optionally cached in Redis (feature-flagged via REDIS_URL).
	var source domain.IrradianceSource = power.NewClient(power.Options{
		BaseURL:   cfg.PowerURL,
		Community: cfg.PowerCommunity,
		Timeout:   cfg.PowerTimeout,
	}, metrics, logger)
	var redisClient *redis.Client
	if cfg.IrradianceCacheEnabled() {
		redisClient, err = rediscache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		source = rediscache.NewIrradianceCache(source, redisClient, cfg.IrradianceCacheTTL, metrics, logger)
		ready.Add("redis", observability.ReadinessFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
		logger.Info("irradiance cache enabled", "ttl", cfg.IrradianceCacheTTL)
	} else {
		logger.Info("irradiance cache disabled")
	}
	source = resilience.NewIrradianceSource(source, resilience.DefaultSettings(), metrics, logger)

	assessor := feasibility.New(geocoder, source, logger, metrics, feasibility.WithClock(clock))

	// User registry (feature-flagged via DATABASE_URL).
	srvOpts := httpadapter.Options{
		Addr:              cfg.HTTPAddr,
		Assessor:          assessor,
		Readiness:         ready,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	}
	if cfg.RegistryEnabled() {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		repo := postgres.NewRepository(pool)
		ready.Add("database", repo)
		lookup := viacep.NewClient(cfg.ViaCEPURL, cfg.ViaCEPTimeout, metrics, logger)
		srvOpts.Users = registry.NewService(repo, lookup, logger, registry.WithClock(clock))
		logger.Info("user registry enabled")
	} else {
		logger.Info("user registry disabled")
	}

	// Assessment worker (feature-flagged via KAFKA_ENABLED).
	var (
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
		p      *pipeline.Pipeline
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		transformer := pipeline.NewTransformer(assessor, clock, logger)
		p = pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize, pipeline.WithClock(clock))
		ready.Add("pipeline", p)
		logger.Info("assessment worker enabled", "source_topic", cfg.KafkaSourceTopic, "sink_topic", cfg.KafkaSinkTopic)
	}

	srv := httpadapter.NewServer(srvOpts, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start assessment pipeline.
	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
