package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/seekdb/internal/config"
	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/db/connect"
	"github.com/kailas-cloud/seekdb/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/seekdb/internal/db/redis"
	"github.com/kailas-cloud/seekdb/internal/db/sqlite"
	"github.com/kailas-cloud/seekdb/internal/domain"
	"github.com/kailas-cloud/seekdb/internal/domain/mode"
	"github.com/kailas-cloud/seekdb/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/seekdb/internal/logger"
	"github.com/kailas-cloud/seekdb/internal/metrics"
	"github.com/kailas-cloud/seekdb/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/seekdb/internal/transport/chi"
	"github.com/kailas-cloud/seekdb/internal/transport/ollama"
	openaiEmb "github.com/kailas-cloud/seekdb/internal/transport/openai"
	adminuc "github.com/kailas-cloud/seekdb/internal/usecase/admin"
	collectionuc "github.com/kailas-cloud/seekdb/internal/usecase/collection"
	embeddinguc "github.com/kailas-cloud/seekdb/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/seekdb/internal/usecase/health"
	searchuc "github.com/kailas-cloud/seekdb/internal/usecase/search"
	"github.com/kailas-cloud/seekdb/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting seekdb gateway",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("backend_mode", cfg.Backend.Mode),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}

	m := mode.BackendMode(cfg.Backend.Mode)
	conn, err := mode.NewConnectionContext(m, cfg.Backend.Tenant, cfg.Backend.Database)
	if err != nil {
		logger.Fatal("Invalid connection scope", zap.Error(err))
	}

	ctx := context.Background()
	store, err := connect.Open(ctx, connect.Config{
		Mode:   m,
		SQLite: sqlite.Config{Path: cfg.Backend.SQLite.Path},
		Redis: dbRedis.Config{
			Addrs:              cfg.Backend.Redis.Addrs,
			Username:           cfg.Backend.Redis.Username,
			Password:           cfg.Backend.Redis.Password,
			DB:                 cfg.Backend.Redis.DB,
			HNSWM:              cfg.Backend.Redis.HNSWM,
			HNSWEFConstruction: cfg.Backend.Redis.HNSWEFConstruction,
		},
		Postgres: postgres.Config{
			DSN:          cfg.Backend.Postgres.DSN,
			MaxOpenConns: cfg.Backend.Postgres.MaxOpenConns,
		},
		ReadinessTimeout: time.Duration(cfg.Backend.ReadinessTimeout) * time.Second,
	})
	if err != nil {
		logger.Fatal("Backend not available", zap.Error(err))
	}
	defer store.Close()
	if engine, v, err := store.DetectVersion(ctx); err == nil {
		logger.Info("Connected to backend", zap.String("engine", engine), zap.String("version", v.String()))
	}

	fn := buildFunction(&cfg.Embedding, store, logger)

	resolver := embeddinguc.NewResolver()
	records := collectionuc.NewEngine(store, resolver, m)
	var embeddingChecker healthuc.EmbeddingChecker
	if hc, ok := fn.(domain.HealthChecker); ok {
		embeddingChecker = hc
	}

	server := chiTransport.NewServer(conn, chiTransport.Deps{
		Collections: collectionuc.NewService(store, resolver),
		Records:     records,
		Hybrid:      searchuc.New(store, records, resolver, m),
		Admin:       adminuc.New(store),
		Health:      healthuc.New(store, embeddingChecker),
		Function:    fn,
		RRF: request.RRFInput{
			RankConstant:   cfg.Search.RankConstant,
			RankWindowSize: cfg.Search.RankWindowSize,
		},
	}, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.RequestLogger(logger))
	r.Use(chiTransport.Recoverer(logger))
	r.Use(chiTransport.MaxBody(cfg.HTTP.MaxBodyBytes))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildFunction assembles the embedding chain: provider -> cache -> instrumented.
// It returns nil for provider "none"; collections then need explicit vectors.
func buildFunction(cfg *config.EmbeddingConfig, store db.KVStore, logger *zap.Logger) domain.EmbeddingFunction {
	var base domain.EmbeddingFunction
	switch cfg.Provider {
	case config.ProviderOpenAI:
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Logger:     logger,
		})
	case config.ProviderOllama:
		base = ollama.NewEmbedder(ollama.Config{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimensions,
			Timeout:   time.Duration(cfg.TimeoutSec) * time.Second,
		})
	case config.ProviderHash:
		base = embeddinguc.NewHashFunction(cfg.Dimensions)
	default:
		logger.Info("No embedding function configured")
		return nil
	}

	fn := base
	if cfg.CacheTTLSec > 0 {
		fn = embcache.New(base, store, time.Duration(cfg.CacheTTLSec)*time.Second, metrics.EmbeddingCacheTotal, logger)
	}
	fn = embeddinguc.NewInstrumentedFunction(fn, cfg.Provider, 0, logger)

	logger.Info("Embedding function created",
		zap.String("name", domain.FunctionName(base)),
		zap.Int("dimensions", cfg.Dimensions),
		zap.Bool("cache", cfg.CacheTTLSec > 0),
	)
	return fn
}
