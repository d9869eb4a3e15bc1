// Package config loads the enumerated configuration surface of the
// verifier core from the environment, with the same
// getEnv/getEnvAsInt habit of reading everything through a fallback-aware helper.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var envLoaded bool

func init() {
	_ = godotenv.Load()
	envLoaded = true
}

// CacheBackend selects the durable verdict store implementation.
type CacheBackend string

const (
	CacheBackendEmbedded CacheBackend = "embedded"
	CacheBackendRemote   CacheBackend = "remote"
)

// RedisConfig configures the ephemeral domain-fact cache.
type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

// PostgresConfig configures the durable verdict store.
type PostgresConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxIdleConns int
	MaxOpenConns int
}

// EnrichmentConfig configures the optional person-lookup capability (4.6).
type EnrichmentConfig struct {
	Enabled        bool
	CheapEndpoint  string
	CheapAPIKey    string
	ExpenseEndpoint string
	ExpensiveAPIKey string
}

// Config is the typed configuration surface the verifier core exposes.
type Config struct {
	Environment string

	// SMTP probe identity.
	HELODomain  string
	FromAddress string

	// Resource caps.
	GlobalSMTPConcurrency  int
	PerHostSMTPConcurrency int
	EnrichmentConcurrency  int
	BackpressureQueueDepth int

	// Tier policy.
	TieredEnabled             bool
	FastConfidenceThreshold   float64
	PatternStrongThreshold    float64
	PatternMediumBandLow      float64
	PatternMediumBandHigh     float64
	EnrichmentInconclusiveAsRisky bool

	// Timeouts.
	SMTPConnectTimeout time.Duration
	SMTPCommandTimeout time.Duration
	SMTPProbeBudget    time.Duration
	RequestBudget      time.Duration
	RequestBudgetFull  time.Duration

	// Greylist retry policy (see DESIGN.md for the chosen defaults).
	GreylistRetries int
	GreylistDelay   time.Duration

	// Freshness windows.
	VerdictFreshnessDays int
	MXFreshnessHours     int
	CatchAllFreshnessDays int

	// Batching.
	BatchSizeCap int

	// SMTP proxy (h12.io/socks), operator-optional egress indirection.
	SMTPProxyURI string

	CacheBackend CacheBackend
	Postgres     PostgresConfig
	Redis        RedisConfig
	Enrichment   EnrichmentConfig

	EncryptionKey string

	ServerPort string
}

// Load populates Config from the environment with the documented defaults,
// validates required fields, and logs a redacted summary the way
// config.LoadConfig does.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),

		HELODomain:  getEnv("HELO_DOMAIN", "verify.kadenwood.com"),
		FromAddress: getEnv("FROM_ADDRESS", "verify@kadenwood.com"),

		GlobalSMTPConcurrency:  getEnvAsInt("SMTP_CONCURRENCY", 20),
		PerHostSMTPConcurrency: getEnvAsInt("SMTP_PER_HOST_CONCURRENCY", 4),
		EnrichmentConcurrency:  getEnvAsInt("ENRICHMENT_CONCURRENCY", 8),
		BackpressureQueueDepth: getEnvAsInt("BACKPRESSURE_QUEUE_DEPTH", 256),

		TieredEnabled:                 getEnvAsBool("TIERED_ENABLED", true),
		FastConfidenceThreshold:       getEnvAsFloat("FAST_CONFIDENCE_THRESHOLD", 0.85),
		PatternStrongThreshold:        getEnvAsFloat("PATTERN_STRONG_THRESHOLD", 0.88),
		PatternMediumBandLow:          getEnvAsFloat("PATTERN_MEDIUM_BAND_LOW", 0.70),
		PatternMediumBandHigh:         getEnvAsFloat("PATTERN_MEDIUM_BAND_HIGH", 0.88),
		EnrichmentInconclusiveAsRisky: getEnvAsBool("ENRICHMENT_INCONCLUSIVE_AS_RISKY", true),

		SMTPConnectTimeout: getEnvAsDuration("SMTP_CONNECT_TIMEOUT", 5*time.Second),
		SMTPCommandTimeout: getEnvAsDuration("SMTP_COMMAND_TIMEOUT", 5*time.Second),
		SMTPProbeBudget:    getEnvAsDuration("SMTP_PROBE_BUDGET", 20*time.Second),
		RequestBudget:      getEnvAsDuration("REQUEST_BUDGET", 20*time.Second),
		RequestBudgetFull:  getEnvAsDuration("REQUEST_BUDGET_FULL", 30*time.Second),

		GreylistRetries: getEnvAsInt("GREYLIST_RETRIES", 0),
		GreylistDelay:   getEnvAsDuration("GREYLIST_DELAY", 35*time.Second),

		VerdictFreshnessDays:  getEnvAsInt("VERDICT_FRESHNESS_DAYS", 30),
		MXFreshnessHours:      getEnvAsInt("MX_FRESHNESS_HOURS", 24),
		CatchAllFreshnessDays: getEnvAsInt("CATCH_ALL_FRESHNESS_DAYS", 7),

		BatchSizeCap: getEnvAsInt("BATCH_SIZE_CAP", 750),

		SMTPProxyURI: getEnv("SMTP_PROXY_URI", ""),

		CacheBackend: CacheBackend(getEnv("CACHE_BACKEND", string(CacheBackendEmbedded))),
		Postgres: PostgresConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Name:         getEnv("DB_NAME", "verifyd"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Enrichment: EnrichmentConfig{
			Enabled:         getEnvAsBool("ENRICHMENT_ENABLED", false),
			CheapEndpoint:   getEnv("ENRICHMENT_CHEAP_ENDPOINT", ""),
			CheapAPIKey:     getEnv("ENRICHMENT_CHEAP_API_KEY", ""),
			ExpenseEndpoint: getEnv("ENRICHMENT_EXPENSIVE_ENDPOINT", ""),
			ExpensiveAPIKey: getEnv("ENRICHMENT_EXPENSIVE_API_KEY", ""),
		},

		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
	}

	if err := cfg.decryptEnrichmentKeys(); err != nil {
		return nil, err
	}

	if cfg.CacheBackend == CacheBackendRemote && cfg.Postgres.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required when CACHE_BACKEND=remote")
	}
	if cfg.PatternMediumBandLow >= cfg.PatternMediumBandHigh {
		return nil, fmt.Errorf("PATTERN_MEDIUM_BAND_LOW must be less than PATTERN_MEDIUM_BAND_HIGH")
	}
	if cfg.GlobalSMTPConcurrency <= 0 {
		return nil, fmt.Errorf("SMTP_CONCURRENCY must be positive")
	}

	logConfig(cfg)
	return cfg, nil
}

func logConfig(cfg *Config) {
	logrus.WithFields(logrus.Fields{
		"environment":       cfg.Environment,
		"cache_backend":     cfg.CacheBackend,
		"smtp_concurrency":  cfg.GlobalSMTPConcurrency,
		"tiered_enabled":    cfg.TieredEnabled,
		"redis_enabled":     cfg.Redis.Enabled,
		"enrichment_enabled": cfg.Enrichment.Enabled,
	}).Info("configuration loaded")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		logrus.Warnf("environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvAsFloat(key string, fallback float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvAsBool(key string, fallback bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// DSN renders the Postgres connection string with the password masked for
// logging.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Name, p.SSLMode,
	)
}

func (p PostgresConfig) MaskedDSN() string {
	dsn := p.DSN()
	const marker = "password="
	start := strings.Index(dsn, marker)
	if start == -1 {
		return dsn
	}
	start += len(marker)
	end := strings.IndexAny(dsn[start:], " ")
	if end == -1 {
		return dsn[:start] + "*****"
	}
	return dsn[:start] + "*****" + dsn[start+end:]
}
