package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Addr                    string        `yaml:"addr"`
	DatabaseURL             string        `yaml:"database_url"`
	StoreDriver             string        `yaml:"store_driver"`
	JWTSecret               string        `yaml:"jwt_secret"`
	Environment             string        `yaml:"environment"`
	MaxBodyBytes            int64         `yaml:"max_body_bytes"`
	RateLimitPerMinute      int           `yaml:"rate_limit_per_minute"`
	DistributionConcurrency int           `yaml:"distribution_concurrency"`
	SurveyCacheSize         int           `yaml:"survey_cache_size"`
	SurveyCacheTTL          time.Duration `yaml:"survey_cache_ttl"`
	MetricsEnabled          bool          `yaml:"metrics_enabled"`
	RunMigrations           bool          `yaml:"run_migrations"`
	IdempotencyTTL          time.Duration `yaml:"idempotency_ttl"`
	JobInterval             time.Duration `yaml:"job_interval"`
	LogLevel                string        `yaml:"log_level"`
	LogFormat               string        `yaml:"log_format"`
}

func Defaults() Config {
	return Config{
		Addr:                    ":8080",
		StoreDriver:             DriverPostgres,
		Environment:             "development",
		MaxBodyBytes:            1048576,
		RateLimitPerMinute:      120,
		DistributionConcurrency: 8,
		SurveyCacheSize:         256,
		SurveyCacheTTL:          5 * time.Minute,
		MetricsEnabled:          true,
		RunMigrations:           true,
		IdempotencyTTL:          24 * time.Hour,
		JobInterval:             time.Hour,
		LogLevel:                "info",
		LogFormat:               "json",
	}
}

// Load starts from Defaults, applies the YAML file named by APPRAISAL_CONFIG
// when set, then lets environment variables override both.
func Load() (Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("APPRAISAL_CONFIG")); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Addr = getEnv("APP_ADDR", c.Addr)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", c.StoreDriver))
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.Environment = getEnv("APP_ENV", c.Environment)
	c.MaxBodyBytes = int64(getEnvInt("MAX_BODY_BYTES", int(c.MaxBodyBytes)))
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	c.DistributionConcurrency = getEnvInt("DISTRIBUTION_CONCURRENCY", c.DistributionConcurrency)
	c.SurveyCacheSize = getEnvInt("SURVEY_CACHE_SIZE", c.SurveyCacheSize)
	c.SurveyCacheTTL = getEnvDuration("SURVEY_CACHE_TTL", c.SurveyCacheTTL)
	c.MetricsEnabled = getEnvBool("METRICS_ENABLED", c.MetricsEnabled)
	c.RunMigrations = getEnvBool("RUN_MIGRATIONS", c.RunMigrations)
	c.IdempotencyTTL = getEnvDuration("IDEMPOTENCY_TTL", c.IdempotencyTTL)
	c.JobInterval = getEnvDuration("JOB_INTERVAL", c.JobInterval)
	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", c.LogLevel))
	c.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", c.LogFormat))
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", DriverPostgres, DriverMemory)
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if c.StoreDriver == DriverMemory {
			return fmt.Errorf("STORE_DRIVER memory is not allowed in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.DistributionConcurrency <= 0 {
		return fmt.Errorf("DISTRIBUTION_CONCURRENCY must be positive")
	}
	if c.SurveyCacheSize < 0 {
		return fmt.Errorf("SURVEY_CACHE_SIZE must not be negative")
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL must be positive")
	}
	if c.JobInterval < 0 {
		return fmt.Errorf("JOB_INTERVAL must not be negative")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text")
	}
	return nil
}
