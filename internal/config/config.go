package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/seekdb/internal/domain/mode"
)

// Config holds the seekdb gateway configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Backend   BackendConfig   `yaml:"backend"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// BackendConfig selects the backend mode and its connection parameters.
type BackendConfig struct {
	Mode             string         `yaml:"mode"` // embedded, server, multi_tenant (default: embedded)
	Tenant           string         `yaml:"tenant"`
	Database         string         `yaml:"database"`
	ReadinessTimeout int            `yaml:"readiness_timeout_sec"`
	SQLite           SQLiteConfig   `yaml:"sqlite"`
	Redis            RedisConfig    `yaml:"redis"`
	Postgres         PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig configures the embedded backend.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig configures the server backend.
type RedisConfig struct {
	Addrs              []string `yaml:"addrs"`
	Username           string   `yaml:"username"`
	Password           string   `yaml:"password"`
	DB                 int      `yaml:"db"`
	HNSWM              int      `yaml:"hnsw_m"`
	HNSWEFConstruction int      `yaml:"hnsw_ef_construction"`
}

// PostgresConfig configures the multi-tenant backend.
type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// Embedding providers.
const (
	ProviderNone   = "none"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// EmbeddingConfig holds the default embedding function of the gateway.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // none, ollama, openai, hash (default: none)
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	TimeoutSec int    `yaml:"timeout_sec"`
	// CacheTTLSec enables the embedding cache in the backend KV store; 0 disables it.
	CacheTTLSec int `yaml:"cache_ttl_sec"`
}

// SearchConfig holds hybrid search defaults.
type SearchConfig struct {
	RankConstant   int `yaml:"rank_constant"`
	RankWindowSize int `yaml:"rank_window_size"`
	MaxNResults    int `yaml:"max_n_results"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod, test).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 16 << 20
	}
	if c.Backend.Mode == "" {
		c.Backend.Mode = string(mode.Embedded)
	}
	if c.Backend.Database == "" {
		c.Backend.Database = mode.DefaultDatabase
	}
	if c.Backend.ReadinessTimeout <= 0 {
		c.Backend.ReadinessTimeout = 10
	}
	if c.Backend.SQLite.Path == "" {
		c.Backend.SQLite.Path = "seekdb.db"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderNone
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 60
	}
	if c.Search.RankConstant <= 0 {
		c.Search.RankConstant = 60
	}
	if c.Search.MaxNResults <= 0 {
		c.Search.MaxNResults = 1000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	m := mode.BackendMode(c.Backend.Mode)
	if _, err := mode.NewConnectionContext(m, c.Backend.Tenant, c.Backend.Database); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	switch m {
	case mode.Server:
		if len(c.Backend.Redis.Addrs) == 0 {
			return fmt.Errorf("backend.redis.addrs is required in %s mode", m)
		}
	case mode.MultiTenant:
		if c.Backend.Postgres.DSN == "" {
			return fmt.Errorf("backend.postgres.dsn is required in %s mode", m)
		}
	}
	switch c.Embedding.Provider {
	case ProviderNone, ProviderOllama, ProviderHash:
	case ProviderOpenAI:
		if c.Embedding.APIKey == "" || c.Embedding.Model == "" {
			return fmt.Errorf("embedding.api_key and embedding.model are required for provider %q", ProviderOpenAI)
		}
	default:
		return fmt.Errorf("embedding.provider must be one of none, ollama, openai, hash, got %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	if c.Search.RankWindowSize < 0 {
		return fmt.Errorf("search.rank_window_size must not be negative, got %d", c.Search.RankWindowSize)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
