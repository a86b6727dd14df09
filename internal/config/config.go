package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Geocoding (Nominatim) configuration.
	GeocoderURL       string
	GeocoderCountry   string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration
	GeocoderCacheSize int
	GeocoderRateLimit float64 // requests per second

	// Irradiance (NASA POWER) configuration.
	PowerURL       string
	PowerCommunity string
	PowerTimeout   time.Duration

	// Optional Redis irradiance cache.
	RedisURL           string
	IrradianceCacheTTL time.Duration

	// Optional user registry.
	DatabaseURL   string
	ViaCEPURL     string
	ViaCEPTimeout time.Duration

	// Optional Kafka assessment worker.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Per-IP rate limit on the solar endpoints.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// DefaultUserAgent identifies this service to the public geocoding API.
const DefaultUserAgent = "solar-feasibility-service/1.0 (+https://github.com/couchcryptid/solar-feasibility-service)"

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	durations := map[string]string{
		"GEOCODER_TIMEOUT":     "5s",
		"POWER_TIMEOUT":        "30s",
		"IRRADIANCE_CACHE_TTL": "6h",
		"VIACEP_TIMEOUT":       "5s",
		"RATE_LIMIT_WINDOW":    "1m",
	}
	parsed := make(map[string]time.Duration, len(durations))
	for key, def := range durations {
		d, err := parsePositiveDuration(key, def)
		if err != nil {
			return nil, err
		}
		parsed[key] = d
	}

	rateLimit, err := parsePositiveFloat("GEOCODER_RATE_LIMIT", 1)
	if err != nil {
		return nil, err
	}

	rateLimitRequests, err := parsePositiveInt("RATE_LIMIT_REQUESTS", 60)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GeocoderURL:       sharedcfg.EnvOrDefault("GEOCODER_URL", "https://nominatim.openstreetmap.org/search"),
		GeocoderCountry:   strings.ToLower(sharedcfg.EnvOrDefault("GEOCODER_COUNTRY", "br")),
		GeocoderUserAgent: sharedcfg.EnvOrDefault("GEOCODER_USER_AGENT", DefaultUserAgent),
		GeocoderTimeout:   parsed["GEOCODER_TIMEOUT"],
		GeocoderCacheSize: parseCacheSize(),
		GeocoderRateLimit: rateLimit,

		PowerURL:       sharedcfg.EnvOrDefault("POWER_URL", "https://power.larc.nasa.gov/api/temporal/daily/point"),
		PowerCommunity: sharedcfg.EnvOrDefault("POWER_COMMUNITY", "RE"),
		PowerTimeout:   parsed["POWER_TIMEOUT"],

		RedisURL:           os.Getenv("REDIS_URL"),
		IrradianceCacheTTL: parsed["IRRADIANCE_CACHE_TTL"],

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		ViaCEPURL:     strings.TrimRight(sharedcfg.EnvOrDefault("VIACEP_URL", "https://viacep.com.br/ws"), "/"),
		ViaCEPTimeout: parsed["VIACEP_TIMEOUT"],

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "solar-assessment-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "solar-assessment-results"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "solar-feasibility"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		RateLimitRequests: rateLimitRequests,
		RateLimitWindow:   parsed["RATE_LIMIT_WINDOW"],
	}

	if strings.TrimSpace(cfg.GeocoderUserAgent) == "" {
		return nil, errors.New("GEOCODER_USER_AGENT must not be empty")
	}
	if cfg.GeocoderCountry == "" {
		return nil, errors.New("GEOCODER_COUNTRY is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	return cfg, nil
}

// RegistryEnabled reports whether the user registry has a database to talk to.
func (c *Config) RegistryEnabled() bool { return c.DatabaseURL != "" }

// IrradianceCacheEnabled reports whether a Redis irradiance cache is configured.
func (c *Config) IrradianceCacheEnabled() bool { return c.RedisURL != "" }

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseCacheSize() int {
	if s := os.Getenv("GEOCODER_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
