package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"wingo/database"
	"wingo/models"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL    string
	DatabaseName   string
	IsolationLevel string // "serializable" or "repeatable_read"

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"

	// Interval registry
	Intervals     []models.Interval
	IntervalsFile string

	// Scheduler configuration
	SchedulerTick       time.Duration
	DemoRefreshInterval time.Duration
	SettlementBatchSize int
	BettingCutoff       time.Duration // Bets close this long before a round ends

	// Outcome policy
	SingleBetThreshold decimal.Decimal

	// Concurrency guard
	GuardBackend  string // "local" or "redis"
	GuardTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// NATS configuration
	NATSServers string // Empty disables NATS and keeps events in-process

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelServiceName          string
	OTelExportIntervalMillis int

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = Load()
		if err == nil {
			err = instance.RequireDatabase()
		}
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// Set replaces the global configuration instance
func Set(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = cfg
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// NewTestConfig returns a configuration with defaults suitable for tests
func NewTestConfig() *Config {
	return &Config{
		IsolationLevel:           "repeatable_read",
		LogLevel:                 "debug",
		LogFormat:                "text",
		Intervals:                append([]models.Interval(nil), models.DefaultIntervals...),
		SchedulerTick:            5 * time.Second,
		DemoRefreshInterval:      time.Minute,
		SettlementBatchSize:      10,
		BettingCutoff:            5 * time.Second,
		SingleBetThreshold:       decimal.NewFromInt(500),
		GuardBackend:             "local",
		GuardTTL:                 time.Minute,
		OTelExporterType:         "none",
		OTelServiceName:          "wingo-engine",
		OTelExportIntervalMillis: 10000,
		Environment:              "test",
	}
}

// Load reads configuration from the environment and validates it. Unlike Get it
// neither caches nor panics, and it does not require a database URL; callers
// that connect to Postgres check RequireDatabase.
func Load() (*Config, error) {
	// A missing .env file is not an error; the real environment still applies
	_ = godotenv.Load()

	config := NewTestConfig()
	config.Environment = os.Getenv("ENVIRONMENT")
	config.DatabaseURL = os.Getenv("DATABASE_URL")
	config.DatabaseName = os.Getenv("DATABASE_NAME")
	config.IsolationLevel = getEnvWithDefault("DB_ISOLATION", "repeatable_read")
	config.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	config.LogFormat = getEnvWithDefault("LOG_FORMAT", "text")
	config.IntervalsFile = os.Getenv("WINGO_INTERVALS_FILE")
	config.GuardBackend = getEnvWithDefault("GUARD_BACKEND", "local")
	config.RedisAddr = getEnvWithDefault("REDIS_ADDR", "localhost:6379")
	config.RedisPassword = os.Getenv("REDIS_PASSWORD")
	config.NATSServers = os.Getenv("NATS_SERVERS")
	config.OTelEnabled = os.Getenv("OTEL_ENABLED") == "true"
	config.OTelExporterType = getEnvWithDefault("OTEL_EXPORTER_TYPE", "console")
	config.OTelOTLPEndpoint = getEnvWithDefault("OTEL_OTLP_ENDPOINT", "localhost:4317")
	config.OTelServiceName = getEnvWithDefault("OTEL_SERVICE_NAME", "wingo-engine")

	// Override defaults if environment variables are set
	if d, ok := parseDurationEnv("SCHEDULER_TICK"); ok {
		config.SchedulerTick = d
	}
	if d, ok := parseDurationEnv("DEMO_REFRESH_INTERVAL"); ok {
		config.DemoRefreshInterval = d
	}
	if d, ok := parseDurationEnv("BETTING_CUTOFF"); ok {
		config.BettingCutoff = d
	}
	if d, ok := parseDurationEnv("GUARD_TTL"); ok {
		config.GuardTTL = d
	}
	if size := os.Getenv("SETTLEMENT_BATCH_SIZE"); size != "" {
		if parsed, err := strconv.Atoi(size); err == nil && parsed > 0 {
			config.SettlementBatchSize = parsed
		}
	}
	if threshold := os.Getenv("SINGLE_BET_THRESHOLD"); threshold != "" {
		if parsed, err := decimal.NewFromString(threshold); err == nil {
			config.SingleBetThreshold = parsed
		}
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if parsed, err := strconv.Atoi(db); err == nil {
			config.RedisDB = parsed
		}
	}
	if interval := os.Getenv("OTEL_EXPORT_INTERVAL_MS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.OTelExportIntervalMillis = parsed
		}
	}

	if config.IntervalsFile != "" {
		intervals, err := LoadIntervals(config.IntervalsFile)
		if err != nil {
			return nil, err
		}
		config.Intervals = intervals
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the loaded configuration for consistency
func (c *Config) Validate() error {
	switch c.IsolationLevel {
	case "serializable", "repeatable_read":
	default:
		return fmt.Errorf("unsupported DB_ISOLATION %q", c.IsolationLevel)
	}
	switch c.GuardBackend {
	case "local", "redis":
	default:
		return fmt.Errorf("unsupported GUARD_BACKEND %q", c.GuardBackend)
	}
	if c.SchedulerTick <= 0 {
		return fmt.Errorf("SCHEDULER_TICK must be positive")
	}
	if c.SingleBetThreshold.IsNegative() {
		return fmt.Errorf("SINGLE_BET_THRESHOLD cannot be negative")
	}
	return models.ValidateIntervals(c.Intervals)
}

// RequireDatabase reports an error when no database URL is configured
func (c *Config) RequireDatabase() error {
	if c.Environment != "test" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// IntervalLabels returns the registered interval labels in order
func (c *Config) IntervalLabels() []string {
	labels := make([]string, 0, len(c.Intervals))
	for _, interval := range c.Intervals {
		labels = append(labels, interval.Label)
	}
	return labels
}

func parseDurationEnv(key string) (time.Duration, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return 0, false
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
