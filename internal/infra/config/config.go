package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string
	LogLevel string
	HTTPAddr string

	StorageBackend string
	LedgerBackend  string

	MongoURI      string
	MongoDB       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaConsumerGroup string
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration

	IdempotencyTTL time.Duration
	JWTSecret      string
	JWTIssuer      string
	JWTTTL         time.Duration

	BusinessTimezone    string
	DefaultCurrency     string
	DefaultSlotCapacity int
	DisputeWindow       time.Duration
	TransitionAttempts  int
	PackagesFixtures    string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Prefix    string
	S3UseSSL    bool
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:                getEnv("APP_ENV", "dev"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		StorageBackend:     strings.ToLower(getEnv("STORAGE_BACKEND", BackendMemory)),
		LedgerBackend:      strings.ToLower(getEnv("LEDGER_BACKEND", "")),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDB:            getEnv("MONGO_DB", "eventbook"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		KafkaTopicPrefix:   getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "eventbook-settlement-archiver"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTIssuer:          getEnv("JWT_ISSUER", "eventbook"),
		BusinessTimezone:   getEnv("BUSINESS_TIMEZONE", "Africa/Luanda"),
		DefaultCurrency:    strings.ToUpper(getEnv("DEFAULT_CURRENCY", "AOA")),
		PackagesFixtures:   getEnv("PACKAGES_FIXTURES", "data/packages.json"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		S3AccessKey:        getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:        getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:           getEnv("S3_BUCKET", "eventbook-settlements"),
		S3Prefix:           getEnv("S3_PREFIX", ""),
	}
	if cfg.LedgerBackend == "" {
		cfg.LedgerBackend = cfg.StorageBackend
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", 168*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.DisputeWindow, err = parseDurationEnv("DISPUTE_WINDOW", 14*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.DefaultSlotCapacity, err = parseIntEnv("DEFAULT_SLOT_CAPACITY", 1); err != nil {
		return Config{}, err
	}
	if cfg.TransitionAttempts, err = parseIntEnv("TRANSITION_ATTEMPTS", 3); err != nil {
		return Config{}, err
	}
	if cfg.S3UseSSL, err = parseBoolEnv("S3_USE_SSL", false); err != nil {
		return Config{}, err
	}

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StorageBackend {
	case BackendMemory, BackendMongo:
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q", c.StorageBackend)
	}
	switch c.LedgerBackend {
	case BackendMemory, BackendMongo, BackendRedis:
	default:
		return fmt.Errorf("invalid LEDGER_BACKEND %q", c.LedgerBackend)
	}
	if c.UsesMongo() && c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required for the mongo backend")
	}
	if c.LedgerBackend == BackendRedis && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required for the redis ledger")
	}
	if c.DefaultSlotCapacity < 1 {
		return fmt.Errorf("DEFAULT_SLOT_CAPACITY must be at least 1")
	}
	if c.TransitionAttempts < 1 {
		return fmt.Errorf("TRANSITION_ATTEMPTS must be at least 1")
	}
	if len(c.DefaultCurrency) != 3 {
		return fmt.Errorf("DEFAULT_CURRENCY must be a 3-letter code")
	}
	if _, err := time.LoadLocation(c.BusinessTimezone); err != nil {
		return fmt.Errorf("invalid BUSINESS_TIMEZONE: %w", err)
	}
	if c.Env != "dev" && c.Env != "local" && c.Env != "test" && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required outside dev")
	}
	return nil
}

func (c Config) UsesMongo() bool {
	return c.StorageBackend == BackendMongo || c.LedgerBackend == BackendMongo
}

// KafkaEnabled reports whether the outbox relay and consumers should run.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c Config) S3Enabled() bool {
	return c.S3Endpoint != ""
}

// Location is the business timezone; validate guarantees it loads.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
