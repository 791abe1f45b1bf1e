// Package config provides configuration management for the catalog admin server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Default configuration values.
const (
	DefaultServerPort        = 8080
	DefaultLogLevel          = "info"
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultMetricsEnabled    = true
	DefaultAuthMode          = "none"
	DefaultProbePort         = 9090
	DefaultStoreBackend      = StoreBackendMemory
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisKeyPrefix    = "catalog:"
	DefaultCategoryNamespace = "Category"
	DefaultItemNamespace     = "Items"
)

// Store backends.
const (
	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
)

// Environment variable names.
const (
	EnvEnvFile           = "APP_ENV_FILE"
	EnvServerPort        = "APP_SERVER_PORT"
	EnvLogLevel          = "APP_LOG_LEVEL"
	EnvShutdownTimeout   = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled    = "APP_METRICS_ENABLED"
	EnvAuthMode          = "APP_AUTH_MODE"
	EnvBasicAuthUsers    = "APP_BASIC_AUTH_USERS"
	EnvAPIKeys           = "APP_API_KEYS" //nolint:gosec // env var name, not a credential
	EnvProbePort         = "APP_PROBE_PORT"
	EnvStoreBackend      = "APP_STORE_BACKEND"
	EnvRedisAddr         = "APP_REDIS_ADDR"
	EnvRedisPassword     = "APP_REDIS_PASSWORD" //nolint:gosec // env var name, not a credential
	EnvRedisDB           = "APP_REDIS_DB"
	EnvRedisKeyPrefix    = "APP_REDIS_KEY_PREFIX"
	EnvCategoryNamespace = "APP_CATEGORY_NAMESPACE"
	EnvItemNamespace     = "APP_ITEM_NAMESPACE"
	EnvSeedFile          = "APP_SEED_FILE"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	ProbePort       int // Probe server port (0 = disabled).
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool

	// Authentication mode: none, basic, apikey, multi.
	AuthMode string

	// Basic auth settings (format: "user1:bcrypt_hash,user2:bcrypt_hash").
	BasicAuthUsers string

	// API key settings (format: "key1:name1,key2:name2").
	APIKeys string

	// Store settings. StoreBackend is memory or redis.
	StoreBackend   string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	// Collection namespaces in the store.
	CategoryNamespace string
	ItemNamespace     string

	// SeedFile is a JSON file loaded into the memory store on startup.
	SeedFile string
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidAuthMode        = errors.New(
		"auth mode must be one of: none, basic, apikey, multi",
	)
	ErrInvalidBasicAuthConfig = errors.New(
		"basic auth users must be set when auth mode is basic",
	)
	ErrInvalidAPIKeyConfig = errors.New(
		"API keys must be set when auth mode is apikey",
	)
	ErrInvalidMultiAuthConfig = errors.New(
		"at least one auth config must be provided when auth mode is multi",
	)
	ErrInvalidProbePort = errors.New(
		"probe port must be between 0 and 65535",
	)
	ErrProbePortConflict = errors.New(
		"probe port must differ from server port when probe port is not 0",
	)
	ErrInvalidStoreBackend = errors.New(
		"store backend must be one of: memory, redis",
	)
	ErrInvalidRedisConfig = errors.New(
		"redis address must be set and redis db must not be negative when store backend is redis",
	)
	ErrInvalidNamespaces = errors.New(
		"category and item namespaces must be set and differ",
	)
	ErrSeedRequiresMemory = errors.New(
		"seed file is only supported with the memory store backend",
	)
)

// Load reads configuration from environment variables with defaults.
// Environment variables have priority over default values. When APP_ENV_FILE
// names a dotenv file, its entries fill in variables that are not already set.
func Load() (*Config, error) {
	if path := os.Getenv(EnvEnvFile); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("loading env file %s: %w", path, err)
		}
	}

	cfg := &Config{
		ServerPort:        DefaultServerPort,
		ProbePort:         DefaultProbePort,
		LogLevel:          DefaultLogLevel,
		ShutdownTimeout:   DefaultShutdownTimeout,
		MetricsEnabled:    DefaultMetricsEnabled,
		AuthMode:          DefaultAuthMode,
		StoreBackend:      DefaultStoreBackend,
		RedisAddr:         DefaultRedisAddr,
		RedisKeyPrefix:    DefaultRedisKeyPrefix,
		CategoryNamespace: DefaultCategoryNamespace,
		ItemNamespace:     DefaultItemNamespace,
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	c.loadAuthEnv()

	if err := c.loadStoreEnv(); err != nil {
		return err
	}

	return nil
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if val := os.Getenv(EnvServerPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvServerPort, err)
		}
		c.ServerPort = port
	}

	if val := os.Getenv(EnvProbePort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvProbePort, err)
		}
		c.ProbePort = port
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	if val := os.Getenv(EnvMetricsEnabled); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMetricsEnabled, err)
		}
		c.MetricsEnabled = enabled
	}

	return nil
}

// loadAuthEnv loads authentication environment variables.
func (c *Config) loadAuthEnv() {
	if val := os.Getenv(EnvAuthMode); val != "" {
		c.AuthMode = val
	}

	if val := os.Getenv(EnvBasicAuthUsers); val != "" {
		c.BasicAuthUsers = val
	}

	if val := os.Getenv(EnvAPIKeys); val != "" {
		c.APIKeys = val
	}
}

// loadStoreEnv loads store backend and namespace environment variables.
func (c *Config) loadStoreEnv() error {
	if val := os.Getenv(EnvStoreBackend); val != "" {
		c.StoreBackend = val
	}

	if val := os.Getenv(EnvRedisAddr); val != "" {
		c.RedisAddr = val
	}

	if val := os.Getenv(EnvRedisPassword); val != "" {
		c.RedisPassword = val
	}

	if val := os.Getenv(EnvRedisDB); val != "" {
		db, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvRedisDB, err)
		}
		c.RedisDB = db
	}

	if val, ok := os.LookupEnv(EnvRedisKeyPrefix); ok {
		c.RedisKeyPrefix = val
	}

	if val := os.Getenv(EnvCategoryNamespace); val != "" {
		c.CategoryNamespace = val
	}

	if val := os.Getenv(EnvItemNamespace); val != "" {
		c.ItemNamespace = val
	}

	if val := os.Getenv(EnvSeedFile); val != "" {
		c.SeedFile = val
	}

	return nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateAuth(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	if c.ProbePort != 0 && (c.ProbePort < 1 || c.ProbePort > 65535) {
		return ErrInvalidProbePort
	}

	if c.ProbePort != 0 && c.ProbePort == c.ServerPort {
		return ErrProbePortConflict
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// validateAuth validates authentication configuration.
func (c *Config) validateAuth() error {
	switch c.authModeOrDefault() {
	case "none":
	case "basic":
		if c.BasicAuthUsers == "" {
			return ErrInvalidBasicAuthConfig
		}
	case "apikey":
		if c.APIKeys == "" {
			return ErrInvalidAPIKeyConfig
		}
	case "multi":
		if c.BasicAuthUsers == "" && c.APIKeys == "" {
			return ErrInvalidMultiAuthConfig
		}
	default:
		return ErrInvalidAuthMode
	}

	return nil
}

// authModeOrDefault returns the auth mode, defaulting to "none" if empty.
func (c *Config) authModeOrDefault() string {
	if c.AuthMode == "" {
		return DefaultAuthMode
	}
	return c.AuthMode
}

// validateStore validates store backend and namespace configuration.
func (c *Config) validateStore() error {
	switch c.StoreBackend {
	case StoreBackendMemory:
	case StoreBackendRedis:
		if c.RedisAddr == "" || c.RedisDB < 0 {
			return ErrInvalidRedisConfig
		}
		if c.SeedFile != "" {
			return ErrSeedRequiresMemory
		}
	default:
		return ErrInvalidStoreBackend
	}

	if c.CategoryNamespace == "" || c.ItemNamespace == "" ||
		c.CategoryNamespace == c.ItemNamespace {
		return ErrInvalidNamespaces
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// ProbeAddress returns the probe server address in host:port format.
func (c *Config) ProbeAddress() string {
	return fmt.Sprintf(":%d", c.ProbePort)
}
