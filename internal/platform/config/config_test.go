package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APPRAISAL_CONFIG", "APP_ADDR", "DATABASE_URL", "STORE_DRIVER", "JWT_SECRET", "APP_ENV",
		"MAX_BODY_BYTES", "RATE_LIMIT_PER_MINUTE", "DISTRIBUTION_CONCURRENCY", "SURVEY_CACHE_SIZE",
		"SURVEY_CACHE_TTL", "METRICS_ENABLED", "RUN_MIGRATIONS", "LOG_LEVEL", "LOG_FORMAT",
		"IDEMPOTENCY_TTL", "JOB_INTERVAL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.StoreDriver != DriverPostgres || cfg.DistributionConcurrency != 8 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SurveyCacheTTL != 5*time.Minute {
		t.Fatalf("unexpected cache ttl: %v", cfg.SurveyCacheTTL)
	}
	if cfg.IdempotencyTTL != 24*time.Hour || cfg.JobInterval != time.Hour {
		t.Fatalf("unexpected job defaults: ttl=%v interval=%v", cfg.IdempotencyTTL, cfg.JobInterval)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "appraisal.yaml")
	body := strings.Join([]string{
		"addr: \":9000\"",
		"store_driver: memory",
		"distribution_concurrency: 4",
		"survey_cache_ttl: 30s",
		"log_format: text",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("APPRAISAL_CONFIG", path)
	t.Setenv("DISTRIBUTION_CONCURRENCY", "16")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.StoreDriver != DriverMemory || cfg.LogFormat != "text" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.SurveyCacheTTL != 30*time.Second {
		t.Fatalf("expected 30s ttl, got %v", cfg.SurveyCacheTTL)
	}
	if cfg.DistributionConcurrency != 16 {
		t.Fatalf("expected env override, got %d", cfg.DistributionConcurrency)
	}
	if cfg.MaxBodyBytes != 1048576 {
		t.Fatalf("expected default body limit to survive overlay, got %d", cfg.MaxBodyBytes)
	}
}

func TestLoadRejectsUnknownFileKeys(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "appraisal.yaml")
	if err := os.WriteFile(path, []byte("listen: \":9000\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("APPRAISAL_CONFIG", path)
	if _, err := Load(); err == nil {
		t.Fatal("expected unknown key to fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "memory driver", mutate: func(c *Config) { c.StoreDriver = DriverMemory }, ok: true},
		{name: "postgres with url", mutate: func(c *Config) { c.DatabaseURL = "postgres://localhost/appraisal" }, ok: true},
		{name: "postgres without url", mutate: func(c *Config) {}, ok: false},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "sqlite" }, ok: false},
		{name: "production needs secret", mutate: func(c *Config) {
			c.DatabaseURL = "postgres://localhost/appraisal"
			c.Environment = "production"
		}, ok: false},
		{name: "zero concurrency", mutate: func(c *Config) {
			c.StoreDriver = DriverMemory
			c.DistributionConcurrency = 0
		}, ok: false},
		{name: "jobs disabled", mutate: func(c *Config) {
			c.StoreDriver = DriverMemory
			c.JobInterval = 0
		}, ok: true},
		{name: "zero idempotency ttl", mutate: func(c *Config) {
			c.StoreDriver = DriverMemory
			c.IdempotencyTTL = 0
		}, ok: false},
		{name: "bad log level", mutate: func(c *Config) {
			c.StoreDriver = DriverMemory
			c.LogLevel = "verbose"
		}, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
