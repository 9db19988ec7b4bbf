// Package chi exposes the collection, admin and search use cases over HTTP.
package chi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/domain"
	"github.com/kailas-cloud/seekdb/internal/domain/mode"
	"github.com/kailas-cloud/seekdb/internal/domain/search/request"
	"github.com/kailas-cloud/seekdb/internal/logger"
	adminuc "github.com/kailas-cloud/seekdb/internal/usecase/admin"
	collectionuc "github.com/kailas-cloud/seekdb/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/seekdb/internal/usecase/health"
	searchuc "github.com/kailas-cloud/seekdb/internal/usecase/search"
)

// Request and response headers.
const (
	// TenantHeader selects the tenant of a request in multi-tenant mode.
	TenantHeader = "X-Seekdb-Tenant"
	// EmbeddingTextsHeader reports how many texts a request embedded, cache hits included.
	EmbeddingTextsHeader = "X-Embedding-Texts"
	// EmbeddingTokensHeader reports the provider tokens a request consumed.
	EmbeddingTokensHeader = "X-Embedding-Tokens"
)

// Error codes returned in error bodies.
const (
	codeBadRequest         = "bad_request"
	codeUnauthorized       = "unauthorized"
	codeNotFound           = "not_found"
	codeAlreadyExists      = "already_exists"
	codeDuplicateID        = "duplicate_id"
	codeInvalidArgument    = "invalid_argument"
	codeMissingInput       = "missing_input"
	codeFilterSyntax       = "filter_syntax"
	codeFilterType         = "filter_type"
	codeUnsupportedFilter  = "unsupported_filter"
	codeSchemaConflict     = "schema_conflict"
	codeMissingFunction    = "missing_embedding_function"
	codeDimensionMismatch  = "dimension_mismatch"
	codeFunctionContract   = "embedding_function_contract"
	codeProviderError      = "embedding_provider_error"
	codeUnsupportedMode    = "unsupported_mode"
	codeInternalError      = "internal_error"
)

// defaultDatabaseSegment in a path addresses the connection's database.
const defaultDatabaseSegment = "default"

// errorMapping maps a domain sentinel to a status and code.
type errorMapping struct {
	sentinel error
	status   int
	code     string
}

// errorMappings is ordered: the first match wins.
var errorMappings = []errorMapping{
	{domain.ErrNotFound, http.StatusNotFound, codeNotFound},
	{domain.ErrAlreadyExists, http.StatusConflict, codeAlreadyExists},
	{domain.ErrDuplicateID, http.StatusConflict, codeDuplicateID},
	{domain.ErrSchemaConflict, http.StatusUnprocessableEntity, codeSchemaConflict},
	{domain.ErrFilterSyntax, http.StatusBadRequest, codeFilterSyntax},
	{domain.ErrFilterType, http.StatusBadRequest, codeFilterType},
	{domain.ErrUnsupportedFilter, http.StatusNotImplemented, codeUnsupportedFilter},
	{domain.ErrMissingInput, http.StatusBadRequest, codeMissingInput},
	{domain.ErrMissingEmbeddingFunction, http.StatusBadRequest, codeMissingFunction},
	{domain.ErrDimensionMismatch, http.StatusBadRequest, codeDimensionMismatch},
	{domain.ErrInvalidArgument, http.StatusBadRequest, codeInvalidArgument},
	{domain.ErrEmbeddingFunctionContract, http.StatusBadGateway, codeFunctionContract},
	{domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeProviderError},
	{domain.ErrUnsupportedMode, http.StatusNotImplemented, codeUnsupportedMode},
}

// Server serves the seekdb REST API.
type Server struct {
	conn        mode.ConnectionContext
	collections *collectionuc.Service
	records     *collectionuc.Engine
	hybrid      *searchuc.Engine
	admin       *adminuc.Service
	health      *healthuc.Service
	function    domain.EmbeddingFunction
	rrf         request.RRFInput
	logger      *zap.Logger
}

// Deps groups the use cases a Server dispatches to.
type Deps struct {
	Collections *collectionuc.Service
	Records     *collectionuc.Engine
	Hybrid      *searchuc.Engine
	Admin       *adminuc.Service
	Health      *healthuc.Service
	// Function is bound to every collection whose dimension it matches. May be nil.
	Function domain.EmbeddingFunction
	// RRF holds the fusion defaults of requests that leave them unset.
	RRF request.RRFInput
}

// NewServer creates an HTTP API server scoped to conn.
func NewServer(conn mode.ConnectionContext, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		conn:        conn,
		collections: deps.Collections,
		records:     deps.Records,
		hybrid:      deps.Hybrid,
		admin:       deps.Admin,
		health:      deps.Health,
		function:    deps.Function,
		rrf:         deps.RRF,
		logger:      logger,
	}
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/databases", s.ListDatabases)
		r.Post("/databases", s.CreateDatabase)
		r.Get("/databases/{database}", s.GetDatabase)
		r.Delete("/databases/{database}", s.DeleteDatabase)

		r.Route("/databases/{database}/collections", func(r chi.Router) {
			r.Get("/", s.ListCollections)
			r.Post("/", s.CreateCollection)
			r.Route("/{collection}", func(r chi.Router) {
				r.Get("/", s.GetCollection)
				r.Delete("/", s.DeleteCollection)
				r.Get("/count", s.Count)
				r.Get("/peek", s.Peek)
				r.Post("/add", s.Add)
				r.Post("/update", s.Update)
				r.Post("/upsert", s.Upsert)
				r.Post("/delete", s.Delete)
				r.Post("/get", s.Get)
				r.Post("/query", s.Query)
				r.Post("/hybrid_search", s.HybridSearch)
			})
		})
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Engine:  report.Engine,
		Version: report.Version,
	})
}

// tenant returns the tenant of a request. Only multi-tenant mode honours
// TenantHeader; other modes always use the connection's tenant.
func (s *Server) tenant(r *http.Request) (string, error) {
	t := r.Header.Get(TenantHeader)
	if t == "" || !s.conn.Mode().RequiresTenant() {
		return s.conn.Tenant(), nil
	}
	if err := mode.ValidateName("tenant", t); err != nil {
		return "", errors.Join(domain.ErrInvalidArgument, err)
	}
	return t, nil
}

// scope resolves the tenant and the {database} path segment.
// "default" addresses the connection's database.
func (s *Server) scope(r *http.Request) (db.Scope, error) {
	tenant, err := s.tenant(r)
	if err != nil {
		return db.Scope{}, err
	}
	database := chi.URLParam(r, "database")
	if database == defaultDatabaseSegment {
		database = s.conn.Database()
	}
	return db.Scope{Tenant: tenant, Database: database}, nil
}

// handle loads the {collection} of a request with the gateway's embedding
// function bound when their dimensions agree.
func (s *Server) handle(r *http.Request) (collectionuc.Handle, error) {
	scope, err := s.scope(r)
	if err != nil {
		return collectionuc.Handle{}, err
	}
	h, err := s.collections.Get(r.Context(), scope, chi.URLParam(r, "collection"), nil)
	if err != nil {
		return collectionuc.Handle{}, err //nolint:wrapcheck // domain error
	}
	if fn := s.functionFor(h.Collection.Dimension()); fn != nil {
		h.Collection = h.Collection.Bind(fn)
	}
	return h, nil
}

// functionFor returns the configured function if it can produce vectors of dim.
// A function of unknown dimension is assumed to fit.
func (s *Server) functionFor(dim int) domain.EmbeddingFunction {
	if s.function == nil {
		return nil
	}
	if d, ok := s.function.(domain.Dimensioner); ok && d.Dimension() > 0 && d.Dimension() != dim {
		return nil
	}
	return s.function
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &bodyError{err: err}
	}
	return nil
}

// bodyError is a request body that could not be decoded.
type bodyError struct{ err error }

func (e *bodyError) Error() string { return "invalid request body: " + e.err.Error() }
func (e *bodyError) Unwrap() error { return e.err }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// fail writes the error response for err. Domain errors carry their own
// message; anything else is logged and reported as an internal error.
func (s *Server) fail(ctx context.Context, w http.ResponseWriter, err error) {
	var be *bodyError
	if errors.As(err, &be) {
		writeError(w, http.StatusBadRequest, codeBadRequest, be.Error())
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			s.logFrom(ctx).Debug("request rejected", zap.String("code", m.code), zap.Error(err))
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	s.logFrom(ctx).Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func (s *Server) logFrom(ctx context.Context) *zap.Logger {
	return logger.FromContextOr(ctx, s.logger)
}
