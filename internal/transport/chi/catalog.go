package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/domain"
	domcol "github.com/kailas-cloud/seekdb/internal/domain/collection"
	collectionuc "github.com/kailas-cloud/seekdb/internal/usecase/collection"
)

// ListDatabases handles GET /api/v1/databases?limit=&offset=.
func (s *Server) ListDatabases(w http.ResponseWriter, r *http.Request) {
	var limit, offset int
	if err := bindQuery(r, "limit", &limit); err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	if err := bindQuery(r, "offset", &offset); err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	tenant, err := s.tenant(r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	dbs, err := s.admin.ListDatabases(r.Context(), tenant, limit, offset)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	out := make([]databaseResponse, len(dbs))
	for i := range dbs {
		out[i] = databaseToDTO(&dbs[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateDatabase handles POST /api/v1/databases.
func (s *Server) CreateDatabase(w http.ResponseWriter, r *http.Request) {
	var req createDatabaseRequest
	if err := decode(r, &req); err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	tenant, err := s.tenant(r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	if err := s.admin.CreateDatabase(r.Context(), tenant, req.Name); err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	info, err := s.admin.GetDatabase(r.Context(), tenant, req.Name)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, databaseToDTO(&info))
}

// GetDatabase handles GET /api/v1/databases/{database}.
func (s *Server) GetDatabase(w http.ResponseWriter, r *http.Request) {
	scope, err := s.scope(r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	info, err := s.admin.GetDatabase(r.Context(), scope.Tenant, scope.Database)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, databaseToDTO(&info))
}

// DeleteDatabase handles DELETE /api/v1/databases/{database}.
func (s *Server) DeleteDatabase(w http.ResponseWriter, r *http.Request) {
	scope, err := s.scope(r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	if err := s.admin.DeleteDatabase(r.Context(), scope.Tenant, scope.Database); err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCollections handles GET .../collections.
func (s *Server) ListCollections(w http.ResponseWriter, r *http.Request) {
	scope, err := s.scope(r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	cols, err := s.collections.List(r.Context(), scope)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	out := make([]collectionResponse, len(cols))
	for i := range cols {
		out[i] = collectionToDTO(cols[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateCollection handles POST .../collections. With get_or_create an
// existing collection is returned with 200 instead of a conflict.
func (s *Server) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := decode(r, &req); err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	scope, err := s.scope(r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}

	opts := collectionuc.CreateOptions{Metadata: req.Metadata}
	if c := req.Configuration; c != nil {
		opts.Configuration = &domcol.Configuration{Dimension: c.Dimension, Distance: domcol.Distance(c.Distance)}
		opts.Function = s.functionFor(c.Dimension)
	} else {
		opts.Function = s.function
	}

	var h collectionuc.Handle
	status := http.StatusCreated
	if req.GetOrCreate {
		existed, _ := s.collections.Has(r.Context(), scope, req.Name)
		if existed {
			status = http.StatusOK
		}
		h, err = s.collections.GetOrCreate(r.Context(), scope, req.Name, opts)
	} else {
		h, err = s.collections.Create(r.Context(), scope, req.Name, opts)
	}
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, status, collectionToDTO(h.Collection))
}

// GetCollection handles GET .../collections/{collection}.
func (s *Server) GetCollection(w http.ResponseWriter, r *http.Request) {
	h, err := s.handle(r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	d, err := s.records.Describe(r.Context(), h)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, describeToDTO(&d))
}

// DeleteCollection handles DELETE .../collections/{collection}.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	scope, err := s.scope(r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	if err := s.collections.Delete(r.Context(), scope, chi.URLParam(r, "collection")); err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// bindQuery binds an optional form-style query parameter.
func bindQuery(r *http.Request, name string, dest any) error {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		return fmt.Errorf("%w: query parameter %s: %w", domain.ErrInvalidArgument, name, err)
	}
	return nil
}

func databaseToDTO(info *db.DatabaseInfo) databaseResponse {
	return databaseResponse{Name: info.Name, Tenant: info.Tenant, CreatedAt: info.CreatedAt}
}

func collectionToDTO(c domcol.Collection) collectionResponse {
	fields := make([]fieldDTO, 0, len(c.Fields()))
	for _, f := range c.Fields() {
		fields = append(fields, fieldDTO{Name: f.Name(), Family: string(f.Family())})
	}
	return collectionResponse{
		Name:          c.Name(),
		ID:            c.ID(),
		Configuration: configurationDTO{Dimension: c.Dimension(), Distance: string(c.Distance())},
		Metadata:      c.Metadata(),
		Fields:        fields,
	}
}
