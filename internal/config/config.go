package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	StoreBackendMemory    = "memory"
	StoreBackendPostgres  = "postgres"
	StoreBackendFirestore = "firestore"
)

type Config struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Environment string `toml:"environment"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// document store: memory | postgres | firestore
	StoreBackend string `toml:"store_backend"`

	// postgres
	PostgresHost           string `toml:"postgres_host"`
	PostgresPort           string `toml:"postgres_port"`
	PostgresDBName         string `toml:"postgres_db_name"`
	PostgresUser           string `toml:"postgres_user"`
	PostgresMigrationsPath string `toml:"postgres_migrations_path"`

	// firestore
	FirestoreProjectID       string `toml:"firestore_project_id"`
	FirestoreCredentialsFile string `toml:"firestore_credentials_file"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	UserCacheTTLSeconds     int      `toml:"user_cache_ttl_seconds"`
	TemplateCacheSizeMB     int      `toml:"template_cache_size_mb"`
	WritesRateLimitPerMin   int      `toml:"writes_rate_limit_per_min"`
	AllowedOrigins          []string `toml:"allowed_origins"`
	MaxRequestBodyKB        int      `toml:"max_request_body_kb"`
	MCPEnabled              bool     `toml:"mcp_enabled"`
	GracefulShutdownTimeout int      `toml:"graceful_shutdown_timeout_seconds"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	return cfg, nil
}

// Load reads the TOML file at path and returns the section for env, with defaults applied.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return t.finalize(env)
}

// Parse is Load for an in-memory TOML document.
func Parse(env, content string) (*Config, error) {
	var t Toml
	if _, err := toml.Decode(content, &t); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return t.finalize(env)
}

func (t *Toml) finalize(env string) (*Config, error) {
	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.StoreBackend == "" {
		c.StoreBackend = StoreBackendMemory
	}
	if c.PrometheusMetricsHost == "" {
		c.PrometheusMetricsHost = "localhost"
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "2112"
	}
	if c.UserCacheTTLSeconds == 0 {
		c.UserCacheTTLSeconds = 300
	}
	if c.TemplateCacheSizeMB == 0 {
		c.TemplateCacheSizeMB = 10
	}
	if c.WritesRateLimitPerMin == 0 {
		c.WritesRateLimitPerMin = 120
	}
	if c.MaxRequestBodyKB == 0 {
		c.MaxRequestBodyKB = 1024
	}
	if c.GracefulShutdownTimeout == 0 {
		c.GracefulShutdownTimeout = 15
	}
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreBackendMemory:
	case StoreBackendPostgres:
		if c.PostgresHost == "" || c.PostgresDBName == "" {
			return fmt.Errorf("postgres store requires postgres_host and postgres_db_name")
		}
	case StoreBackendFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("firestore store requires firestore_project_id")
		}
	default:
		return fmt.Errorf("unknown store backend: %s", c.StoreBackend)
	}
	return nil
}
