package seekdb

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/seekdb/internal/domain"
	"github.com/kailas-cloud/seekdb/internal/domain/mode"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	mode       mode.BackendMode
	sqlitePath string
	addrs      []string
	password   string
	redisDB    int
	dsn        string
	tenant     string
	database   string

	function    domain.EmbeddingFunction
	functionSet bool

	hnswM            int
	hnswEFConstruct  int
	readinessTimeout time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithEmbedded stores data in a local SQLite file. An empty path keeps the
// database in memory for the lifetime of the client.
func WithEmbedded(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.mode = mode.Embedded
		c.sqlitePath = path
	})
}

// WithServer connects to a Redis server with the search module.
func WithServer(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.mode = mode.Server
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedisDB selects the logical Redis database in server mode.
func WithRedisDB(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisDB = n
	})
}

// WithMultiTenant connects to PostgreSQL with pgvector and scopes every
// call to tenant.
func WithMultiTenant(dsn, tenant string) Option {
	return optionFunc(func(c *clientConfig) {
		c.mode = mode.MultiTenant
		c.dsn = dsn
		c.tenant = tenant
	})
}

// WithDatabase selects the database collections live in.
// Defaults to "default_database".
func WithDatabase(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.database = name
	})
}

// WithEmbeddingFunction sets the function bound to collections that do not
// pick one themselves. Pass nil to require explicit embeddings.
// Defaults to DefaultEmbeddingFunction.
func WithEmbeddingFunction(fn EmbeddingFunction) Option {
	return optionFunc(func(c *clientConfig) {
		c.function = fn
		c.functionSet = true
	})
}

// WithHNSW configures HNSW index parameters in server mode (M and EF construction).
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithReadinessTimeout bounds the initial wait for the backend.
// Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
