package authstate

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config defines the Engine configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Login   LoginConfig   `envPrefix:"LOGIN_"`
	Storage StorageConfig `envPrefix:"STORAGE_"`
	Audit   AuditConfig   `envPrefix:"AUDIT_"`
	Metrics MetricsConfig `envPrefix:"METRICS_"`
	Log     LogConfig     `envPrefix:"LOG_"`
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig points the login flow at the authentication API.
type LoginConfig struct {
	URL     string        `env:"URL"`
	Timeout time.Duration `env:"TIMEOUT"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// Storage backend names accepted by StorageConfig.Backend.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// StorageConfig selects and configures the token storage backend used when
// the Builder is not given one explicitly.
type StorageConfig struct {
	Backend string `env:"BACKEND"`
	// Key is the fixed name the token is persisted under.
	Key string `env:"KEY"`

	FilePath string `env:"FILE_PATH"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`
	RedisPrefix   string `env:"REDIS_PREFIX"`

	SQLitePath string `env:"SQLITE_PATH"`
}

/*
====================================
AUDIT / METRICS / LOG CONFIG
====================================
*/

// AuditConfig controls audit dispatcher buffering behavior.
type AuditConfig struct {
	Enabled    bool `env:"ENABLED"`
	BufferSize int  `env:"BUFFER_SIZE"`
	DropIfFull bool `env:"DROP_IF_FULL"`
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED"`
	EnableLatencyHistograms bool `env:"LATENCY_HISTOGRAMS"`
}

// LogConfig configures the default zerolog logger built by cmd/authctl.
type LogConfig struct {
	Level  string `env:"LEVEL"`
	Pretty bool   `env:"PRETTY"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Login: LoginConfig{
			URL:     "http://localhost:8080/v1/auth/login",
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend:     StorageMemory,
			Key:         "token",
			RedisPrefix: "authstate",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfigFromEnv starts from the defaults and overrides every field whose
// AUTHSTATE_* variable is set, e.g. AUTHSTATE_LOGIN_URL or
// AUTHSTATE_STORAGE_BACKEND. The result is validated.
func LoadConfigFromEnv() (Config, error) {
	return loadConfig(env.Options{Prefix: "AUTHSTATE_"})
}

// LoadConfigFromMap is LoadConfigFromEnv reading from vars instead of the
// process environment.
func LoadConfigFromMap(vars map[string]string) (Config, error) {
	return loadConfig(env.Options{Prefix: "AUTHSTATE_", Environment: vars})
}

func loadConfig(opts env.Options) (Config, error) {
	cfg := defaultConfig()
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	// Login
	u, err := url.Parse(c.Login.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("Login URL must be an absolute http(s) URL, got %q", c.Login.URL)
	}
	if c.Login.Timeout < 0 {
		return errors.New("Login Timeout must be >= 0")
	}

	// Storage
	if strings.TrimSpace(c.Storage.Key) == "" {
		return errors.New("Storage Key must not be empty")
	}
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if c.Storage.FilePath == "" {
			return errors.New("Storage FilePath is required for the file backend")
		}
	case StorageRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("Storage RedisAddr is required for the redis backend")
		}
		if c.Storage.RedisDB < 0 {
			return errors.New("Storage RedisDB must be >= 0")
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("Storage SQLitePath is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorageBackend, c.Storage.Backend)
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
