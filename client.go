package seekdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/db/connect"
	"github.com/kailas-cloud/seekdb/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/seekdb/internal/db/redis"
	"github.com/kailas-cloud/seekdb/internal/db/sqlite"
	"github.com/kailas-cloud/seekdb/internal/domain"
	"github.com/kailas-cloud/seekdb/internal/domain/mode"
	adminuc "github.com/kailas-cloud/seekdb/internal/usecase/admin"
	collectionuc "github.com/kailas-cloud/seekdb/internal/usecase/collection"
	"github.com/kailas-cloud/seekdb/internal/usecase/embedding"
	searchuc "github.com/kailas-cloud/seekdb/internal/usecase/search"
)

// Client is the seekdb SDK entry point. It manages the collections of one
// database; database management lives on AdminClient.
//
// A Client is safe for concurrent use.
type Client struct {
	backend  db.Backend
	conn     mode.ConnectionContext
	function domain.EmbeddingFunction

	colls   *collectionuc.Service
	records *collectionuc.Engine
	hybrid  *searchuc.Engine
	admin   *adminuc.Service
	obs     *observer
}

// New creates a Client and connects to the backend selected by
// WithEmbedded, WithServer or WithMultiTenant (embedded in memory by default).
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{mode: mode.Embedded}
	for _, o := range opts {
		o.apply(cfg)
	}
	if !cfg.functionSet {
		cfg.function = DefaultEmbeddingFunction()
	}

	conn, err := mode.NewConnectionContext(cfg.mode, cfg.tenant, cfg.database)
	if err != nil {
		return nil, fmt.Errorf("seekdb: %w: %w", ErrInvalidArgument, err)
	}

	obs, err := newObserver(string(cfg.mode), cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	backend, err := connect.Open(ctx, connectConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("seekdb: %w", err)
	}
	return wireClient(backend, conn, cfg.function, obs), nil
}

func connectConfig(cfg *clientConfig) connect.Config {
	path := cfg.sqlitePath
	if path == "" {
		path = sqlite.MemoryPath
	}
	return connect.Config{
		Mode:   cfg.mode,
		SQLite: sqlite.Config{Path: path},
		Redis: dbRedis.Config{
			Addrs:              cfg.addrs,
			Password:           cfg.password,
			DB:                 cfg.redisDB,
			HNSWM:              cfg.hnswM,
			HNSWEFConstruction: cfg.hnswEFConstruct,
		},
		Postgres:         postgres.Config{DSN: cfg.dsn},
		ReadinessTimeout: cfg.readinessTimeout,
	}
}

func wireClient(backend db.Backend, conn mode.ConnectionContext, fn domain.EmbeddingFunction, obs *observer) *Client {
	resolver := embedding.NewResolver()
	records := collectionuc.NewEngine(backend, resolver, conn.Mode())
	return &Client{
		backend:  backend,
		conn:     conn,
		function: fn,
		colls:    collectionuc.NewService(backend, resolver),
		records:  records,
		hybrid:   searchuc.New(backend, records, resolver, conn.Mode()),
		admin:    adminuc.New(backend),
		obs:      obs,
	}
}

// Close releases the backend connection. Clients derived with UseDatabase
// and Admin share it.
func (c *Client) Close() {
	if c.backend != nil {
		c.backend.Close()
	}
}

// Mode reports the backend mode of the client.
func (c *Client) Mode() string { return string(c.conn.Mode()) }

// Tenant reports the tenant every call is scoped to.
func (c *Client) Tenant() string { return c.conn.Tenant() }

// Database reports the database collections are resolved in.
func (c *Client) Database() string { return c.conn.Database() }

// Ping checks backend connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.backend.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// ServerInfo reports the engine type and version of the backend.
func (c *Client) ServerInfo(ctx context.Context) (_ ServerInfo, err error) {
	start := time.Now()
	defer func() { c.obs.observe("server_info", start, err) }()

	engine, v, err := c.backend.DetectVersion(ctx)
	if err != nil {
		return ServerInfo{}, fmt.Errorf("detect version: %w", err)
	}
	return ServerInfo{Engine: engine, Version: v}, nil
}

// UseDatabase returns a client scoped to another existing database of the
// same tenant. Both clients share the backend connection.
func (c *Client) UseDatabase(ctx context.Context, name string) (*Client, error) {
	conn, err := c.conn.WithDatabase(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if _, err := c.admin.GetDatabase(ctx, conn.Tenant(), name); err != nil {
		return nil, err //nolint:wrapcheck // domain error
	}
	cp := *c
	cp.conn = conn
	return &cp, nil
}

// Admin returns the database management facade sharing this client's
// connection and tenant.
func (c *Client) Admin() *AdminClient {
	return &AdminClient{svc: c.admin, tenant: c.conn.Tenant(), obs: c.obs}
}

func (c *Client) scope() db.Scope {
	return db.Scope{Tenant: c.conn.Tenant(), Database: c.conn.Database()}
}

// CreateCollection creates a collection. It fails with ErrAlreadyExists when
// the name is taken.
func (c *Client) CreateCollection(
	ctx context.Context, name string, opts ...CollectionOption,
) (_ *Collection, err error) {
	start := time.Now()
	defer func() { c.obs.observe("collection.create", start, err) }()

	h, err := c.colls.Create(ctx, c.scope(), name, c.createOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return c.collection(h), nil
}

// GetCollection opens an existing collection. It fails with ErrNotFound when
// the collection does not exist.
func (c *Client) GetCollection(
	ctx context.Context, name string, opts ...CollectionOption,
) (_ *Collection, err error) {
	start := time.Now()
	defer func() { c.obs.observe("collection.get", start, err) }()

	h, err := c.get(ctx, name, collectionOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return c.collection(h), nil
}

// GetOrCreateCollection opens a collection, creating it when missing.
// Configuration and metadata apply only to a new collection.
func (c *Client) GetOrCreateCollection(
	ctx context.Context, name string, opts ...CollectionOption,
) (_ *Collection, err error) {
	start := time.Now()
	defer func() { c.obs.observe("collection.get_or_create", start, err) }()

	h, err := c.colls.Create(ctx, c.scope(), name, c.createOptions(opts))
	if errors.Is(err, domain.ErrAlreadyExists) {
		h, err = c.get(ctx, name, collectionOptions(opts))
	}
	if err != nil {
		return nil, fmt.Errorf("get or create collection: %w", err)
	}
	return c.collection(h), nil
}

// DeleteCollection drops a collection and all its records.
func (c *Client) DeleteCollection(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("collection.delete", start, err) }()

	if err = c.colls.Delete(ctx, c.scope(), name); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}

// ListCollections returns the collections of the database ordered by name.
// Returned collections are bound to the client's embedding function when
// dimensions agree.
func (c *Client) ListCollections(ctx context.Context) (_ []*Collection, err error) {
	start := time.Now()
	defer func() { c.obs.observe("collection.list", start, err) }()

	cols, err := c.colls.List(ctx, c.scope())
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	out := make([]*Collection, len(cols))
	for i, col := range cols {
		h := collectionuc.Handle{Scope: c.scope(), Collection: col.Bind(c.functionFor(col.Dimension()))}
		out[i] = c.collection(h)
	}
	return out, nil
}

// HasCollection reports whether a collection exists.
func (c *Client) HasCollection(ctx context.Context, name string) (_ bool, err error) {
	start := time.Now()
	defer func() { c.obs.observe("collection.has", start, err) }()

	ok, err := c.colls.Has(ctx, c.scope(), name)
	if err != nil {
		return false, fmt.Errorf("has collection: %w", err)
	}
	return ok, nil
}

// CountCollections returns the number of collections in the database.
func (c *Client) CountCollections(ctx context.Context) (_ int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("collection.count", start, err) }()

	n, err := c.colls.Count(ctx, c.scope())
	if err != nil {
		return 0, fmt.Errorf("count collections: %w", err)
	}
	return n, nil
}

func (c *Client) get(ctx context.Context, name string, cfg *collectionConfig) (collectionuc.Handle, error) {
	if cfg.functionSet {
		return c.colls.Get(ctx, c.scope(), name, cfg.function) //nolint:wrapcheck // wrapped by caller
	}
	h, err := c.colls.Get(ctx, c.scope(), name, nil)
	if err != nil {
		return collectionuc.Handle{}, err //nolint:wrapcheck // wrapped by caller
	}
	h.Collection = h.Collection.Bind(c.functionFor(h.Collection.Dimension()))
	return h, nil
}

// createOptions picks the function of a new collection. The client default
// is skipped when an explicit configuration disagrees with its dimension.
func (c *Client) createOptions(opts []CollectionOption) collectionuc.CreateOptions {
	cfg := collectionOptions(opts)
	out := collectionuc.CreateOptions{Configuration: cfg.configuration, Metadata: cfg.metadata}
	switch {
	case cfg.functionSet:
		out.Function = cfg.function
	case cfg.configuration == nil:
		out.Function = c.function
	default:
		out.Function = c.functionFor(cfg.configuration.Dimension)
	}
	return out
}

// functionFor returns the client's function if it can produce vectors of dim.
// A function of unknown dimension is assumed to fit.
func (c *Client) functionFor(dim int) domain.EmbeddingFunction {
	if c.function == nil {
		return nil
	}
	if d, ok := c.function.(domain.Dimensioner); ok && d.Dimension() > 0 && d.Dimension() != dim {
		return nil
	}
	return c.function
}

func (c *Client) collection(h collectionuc.Handle) *Collection {
	return &Collection{handle: h, records: c.records, hybrid: c.hybrid, obs: c.obs}
}

func collectionOptions(opts []CollectionOption) *collectionConfig {
	cfg := &collectionConfig{}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}
