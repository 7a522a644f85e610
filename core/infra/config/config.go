package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/d2oracle/oracle/core/infra/tlsutil"
)

const (
	defaultHTTPAddr    = "localhost:6969"
	defaultGRPCAddr    = "localhost:6970"
	defaultMetricsAddr = "localhost:9469"
	defaultRedisURL    = "redis://localhost:6379"
	defaultMaxWaiters  = 64
	defaultWaitTimeout = 5 * time.Second

	envConfigPath     = "ORACLE_CONFIG_PATH"
	envHTTPAddr       = "ORACLE_HTTP_ADDR"
	envGRPCAddr       = "ORACLE_GRPC_ADDR"
	envMetricsAddr    = "ORACLE_METRICS_ADDR"
	envRedisURL       = "REDIS_URL"
	envNATSURL        = "NATS_URL"
	envCatalogPath    = "ORACLE_CATALOG_PATH"
	envCatalogRedis   = "ORACLE_CATALOG_REDIS"
	envEngineMode     = "ORACLE_ENGINE_MODE"
	envEngineStrict   = "ORACLE_ENGINE_STRICT"
	envMaxWaiters     = "ORACLE_ENGINE_MAX_WAITERS"
	envWaitTimeout    = "ORACLE_ENGINE_WAIT_TIMEOUT"
	envValidation     = "ORACLE_VALIDATION"
	envAllowedOrigins = "ORACLE_ALLOWED_ORIGINS"
)

// Engine access modes.
const (
	EngineShared   = "shared"
	EngineIsolated = "isolated"
)

// Config holds runtime configuration for the oracle server.
type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	GRPCAddr    string `yaml:"grpc_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	RedisURL    string `yaml:"redis_url"`
	// NatsURL enables the NATS transport when set.
	NatsURL        string        `yaml:"nats_url"`
	Validation     string        `yaml:"validation"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	Catalog        CatalogConfig `yaml:"catalog"`
	Engine         EngineConfig  `yaml:"engine"`
}

// CatalogConfig selects where weapon formulas come from. Redis wins over Path.
type CatalogConfig struct {
	Path  string `yaml:"path"`
	Redis bool   `yaml:"redis"`
}

// EngineConfig bounds access to the scoring engine.
type EngineConfig struct {
	Mode        string        `yaml:"mode"`
	Strict      bool          `yaml:"strict"`
	MaxWaiters  int           `yaml:"max_waiters"`
	WaitTimeout time.Duration `yaml:"wait_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPAddr:    defaultHTTPAddr,
		GRPCAddr:    defaultGRPCAddr,
		MetricsAddr: defaultMetricsAddr,
		RedisURL:    defaultRedisURL,
		Validation:  "presence",
		Engine: EngineConfig{
			Mode:        EngineShared,
			MaxWaiters:  defaultMaxWaiters,
			WaitTimeout: defaultWaitTimeout,
		},
	}
}

// Load layers the optional config file and environment variables over the defaults.
func Load() (*Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv(envConfigPath)); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("http address is required")
	}
	switch c.Engine.Mode {
	case EngineShared, EngineIsolated:
	default:
		return fmt.Errorf("unknown engine mode %q", c.Engine.Mode)
	}
	switch c.Validation {
	case "presence", "truthy":
	default:
		return fmt.Errorf("unknown validation mode %q", c.Validation)
	}
	if c.Engine.MaxWaiters < 0 {
		return fmt.Errorf("engine max waiters must be >= 0")
	}
	if c.Engine.WaitTimeout < 0 {
		return fmt.Errorf("engine wait timeout must be >= 0")
	}
	return nil
}

func (c *Config) applyEnv() error {
	// Address variables set to an empty string disable the listener.
	if v, ok := os.LookupEnv(envHTTPAddr); ok {
		c.HTTPAddr = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(envGRPCAddr); ok {
		c.GRPCAddr = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(envMetricsAddr); ok {
		c.MetricsAddr = strings.TrimSpace(v)
	}
	setString(&c.RedisURL, envRedisURL)
	setString(&c.NatsURL, envNATSURL)
	setString(&c.Catalog.Path, envCatalogPath)
	setString(&c.Engine.Mode, envEngineMode)
	setString(&c.Validation, envValidation)
	c.Engine.Mode = strings.ToLower(c.Engine.Mode)
	c.Validation = strings.ToLower(c.Validation)

	if v := strings.TrimSpace(os.Getenv(envAllowedOrigins)); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv(envCatalogRedis)); v != "" {
		c.Catalog.Redis = tlsutil.ParseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(envEngineStrict)); v != "" {
		c.Engine.Strict = tlsutil.ParseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(envMaxWaiters)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envMaxWaiters, err)
		}
		c.Engine.MaxWaiters = n
	}
	if v := strings.TrimSpace(os.Getenv(envWaitTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envWaitTimeout, err)
		}
		c.Engine.WaitTimeout = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

