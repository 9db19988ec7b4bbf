package chi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/seekdb/internal/db/sqlite"
	"github.com/kailas-cloud/seekdb/internal/domain/mode"
	adminuc "github.com/kailas-cloud/seekdb/internal/usecase/admin"
	collectionuc "github.com/kailas-cloud/seekdb/internal/usecase/collection"
	"github.com/kailas-cloud/seekdb/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/seekdb/internal/usecase/health"
	searchuc "github.com/kailas-cloud/seekdb/internal/usecase/search"
)

const docsPath = "/api/v1/databases/default/collections/docs"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.Open(context.Background(), sqlite.Config{Path: sqlite.MemoryPath})
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(store.Close)

	conn, err := mode.NewConnectionContext(mode.Embedded, "", "")
	if err != nil {
		t.Fatalf("NewConnectionContext: %v", err)
	}
	r := embedding.NewResolver()
	records := collectionuc.NewEngine(store, r, mode.Embedded)
	srv := NewServer(conn, Deps{
		Collections: collectionuc.NewService(store, r),
		Records:     records,
		Hybrid:      searchuc.New(store, records, r, mode.Embedded),
		Admin:       adminuc.New(store),
		Health:      healthuc.New(store, nil),
		Function:    embedding.NewHashFunction(4),
	}, zap.NewNop())

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(RequestLogger(zap.NewNop()))
	router.Use(Recoverer(zap.NewNop()))
	srv.Routes(router)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

// call sends body (nil for none) and decodes the response into out when non-nil.
func call(t *testing.T, ts *httptest.Server, method, path, body string, out any) int {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, ts.URL+path, rd)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type rawResults struct {
	Results json.RawMessage `json:"results"`
}

func seed(t *testing.T, ts *httptest.Server) {
	t.Helper()
	var col collectionResponse
	if code := call(t, ts, "POST", "/api/v1/databases/default/collections", `{"name":"docs"}`, &col); code != http.StatusCreated {
		t.Fatalf("create collection: %d", code)
	}
	if col.Configuration.Dimension != 4 || col.Configuration.Distance != "cosine" {
		t.Fatalf("configuration = %+v", col.Configuration)
	}
	body := `{
		"ids": ["a", "b", "c"],
		"documents": ["vector databases", "relational tables", "vector math"],
		"metadatas": [{"n": 1}, {"n": 2}, {"n": 3}]
	}`
	if code := call(t, ts, "POST", docsPath+"/add", body, nil); code != http.StatusNoContent {
		t.Fatalf("add: %d", code)
	}
}

func TestCollectionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	seed(t, ts)

	var e errorResponse
	if code := call(t, ts, "POST", "/api/v1/databases/default/collections", `{"name":"docs"}`, &e); code != http.StatusConflict || e.Code != codeAlreadyExists {
		t.Errorf("duplicate create = %d %+v", code, e)
	}
	if code := call(t, ts, "POST", "/api/v1/databases/default/collections", `{"name":"docs","get_or_create":true}`, nil); code != http.StatusOK {
		t.Errorf("get_or_create = %d", code)
	}

	var desc collectionResponse
	if code := call(t, ts, "GET", docsPath, "", &desc); code != http.StatusOK {
		t.Fatalf("describe: %d", code)
	}
	if desc.Count == nil || *desc.Count != 3 || desc.EmbeddingFunction != "hash:4" {
		t.Errorf("describe = %+v", desc)
	}

	var list []collectionResponse
	call(t, ts, "GET", "/api/v1/databases/default/collections", "", &list)
	if len(list) != 1 || list[0].Name != "docs" {
		t.Errorf("list = %+v", list)
	}

	if code := call(t, ts, "DELETE", docsPath, "", nil); code != http.StatusNoContent {
		t.Errorf("delete collection = %d", code)
	}
	if code := call(t, ts, "GET", docsPath+"/count", "", &e); code != http.StatusNotFound || e.Code != codeNotFound {
		t.Errorf("count after delete = %d %+v", code, e)
	}
}

func TestGet_ShapeFollowsRequest(t *testing.T) {
	ts := newTestServer(t)
	seed(t, ts)

	var res rawResults
	call(t, ts, "POST", docsPath+"/get", `{"ids":"a"}`, &res)
	var one itemDTO
	if err := json.Unmarshal(res.Results, &one); err != nil || one.ID != "a" || *one.Document != "vector databases" {
		t.Errorf("scalar get = %s (%v)", res.Results, err)
	}
	if one.Distance != nil {
		t.Error("get result carries a distance")
	}

	call(t, ts, "POST", docsPath+"/get", `{"ids":["a"]}`, &res)
	var many []itemDTO
	if err := json.Unmarshal(res.Results, &many); err != nil || len(many) != 1 {
		t.Errorf("list get = %s (%v)", res.Results, err)
	}

	call(t, ts, "POST", docsPath+"/get", `{"ids":"missing"}`, &res)
	if string(res.Results) != "null" {
		t.Errorf("missing scalar get = %s", res.Results)
	}

	call(t, ts, "POST", docsPath+"/get", `{"where":{"n":{"$gte":2}},"include":["metadatas"]}`, &res)
	many = nil
	if err := json.Unmarshal(res.Results, &many); err != nil || len(many) != 2 || many[0].ID != "b" || many[0].Document != nil {
		t.Errorf("filtered get = %s (%v)", res.Results, err)
	}
}

func TestQuery_ShapeFollowsRequest(t *testing.T) {
	ts := newTestServer(t)
	seed(t, ts)

	var res rawResults
	if code := call(t, ts, "POST", docsPath+"/query", `{"query_texts":"vector databases","n_results":2}`, &res); code != http.StatusOK {
		t.Fatalf("query: %d %s", code, res.Results)
	}
	var hits []itemDTO
	if err := json.Unmarshal(res.Results, &hits); err != nil || len(hits) != 2 {
		t.Fatalf("scalar query = %s (%v)", res.Results, err)
	}
	if hits[0].ID != "a" || hits[0].Distance == nil {
		t.Errorf("nearest = %+v", hits[0])
	}

	call(t, ts, "POST", docsPath+"/query", `{"query_texts":["x","y"],"n_results":1}`, &res)
	var nested [][]itemDTO
	if err := json.Unmarshal(res.Results, &nested); err != nil || len(nested) != 2 || len(nested[1]) != 1 {
		t.Errorf("batch query = %s (%v)", res.Results, err)
	}
}

func TestDeleteAndCount(t *testing.T) {
	ts := newTestServer(t)
	seed(t, ts)

	var del deleteResponse
	if code := call(t, ts, "POST", docsPath+"/delete", `{"where":{"n":{"$lt":2}}}`, &del); code != http.StatusOK || del.Deleted != 1 {
		t.Errorf("delete = %d %+v", code, del)
	}
	var c countResponse
	call(t, ts, "GET", docsPath+"/count", "", &c)
	if c.Count != 2 {
		t.Errorf("count = %d, want 2", c.Count)
	}

	var res rawResults
	call(t, ts, "GET", docsPath+"/peek?limit=1", "", &res)
	var peek []itemDTO
	if err := json.Unmarshal(res.Results, &peek); err != nil || len(peek) != 1 || peek[0].ID != "b" {
		t.Errorf("peek = %s (%v)", res.Results, err)
	}
}

func TestHybridSearch(t *testing.T) {
	ts := newTestServer(t)
	seed(t, ts)

	body := `{
		"query": {"where_document": {"$contains": "vector"}},
		"knn": {"query_texts": ["vector math"]},
		"rank": {"rrf": {"rank_constant": 60}},
		"n_results": 3
	}`
	var res rawResults
	if code := call(t, ts, "POST", docsPath+"/hybrid_search", body, &res); code != http.StatusOK {
		t.Fatalf("hybrid: %d %s", code, res.Results)
	}
	var hits []itemDTO
	if err := json.Unmarshal(res.Results, &hits); err != nil || len(hits) != 3 {
		t.Fatalf("hits = %s (%v)", res.Results, err)
	}
	for _, h := range hits {
		if h.Score == nil {
			t.Errorf("hit %s has no score", h.ID)
		}
		if h.ID == "c" && h.Distance == nil {
			t.Error("vector hit lost its distance")
		}
	}
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	seed(t, ts)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad body", "POST", docsPath + "/get", `{"ids":`, http.StatusBadRequest, codeBadRequest},
		{"filter syntax", "POST", docsPath + "/get", `{"where":{"n":{"$near":1}}}`, http.StatusBadRequest, codeFilterSyntax},
		{"filter type", "POST", docsPath + "/get", `{"where":{"n":"one"}}`, http.StatusBadRequest, codeFilterType},
		{"duplicate id", "POST", docsPath + "/add", `{"ids":"a","documents":"again"}`, http.StatusConflict, codeDuplicateID},
		{"update missing", "POST", docsPath + "/update", `{"ids":"zz","documents":"x"}`, http.StatusNotFound, codeNotFound},
		{"dimension", "POST", docsPath + "/add", `{"ids":"d","embeddings":[1,2]}`, http.StatusBadRequest, codeDimensionMismatch},
		{"schema conflict", "POST", docsPath + "/upsert", `{"ids":"e","documents":"x","metadatas":{"n":"text"}}`, http.StatusUnprocessableEntity, codeSchemaConflict},
		{"empty delete", "POST", docsPath + "/delete", `{}`, http.StatusBadRequest, codeMissingInput},
		{"empty hybrid", "POST", docsPath + "/hybrid_search", `{}`, http.StatusBadRequest, codeMissingInput},
		{"unknown collection", "POST", "/api/v1/databases/default/collections/nope/get", `{}`, http.StatusNotFound, codeNotFound},
		{"bad limit", "GET", "/api/v1/databases?limit=abc", "", http.StatusBadRequest, codeInvalidArgument},
		{"bad database name", "POST", "/api/v1/databases", `{"name":"no spaces"}`, http.StatusBadRequest, codeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e errorResponse
			code := call(t, ts, tt.method, tt.path, tt.body, &e)
			if code != tt.status || e.Code != tt.code {
				t.Errorf("got %d %+v, want %d %s", code, e, tt.status, tt.code)
			}
		})
	}
}

func TestDatabases(t *testing.T) {
	ts := newTestServer(t)

	var created databaseResponse
	if code := call(t, ts, "POST", "/api/v1/databases", `{"name":"analytics"}`, &created); code != http.StatusCreated {
		t.Fatalf("create database: %d", code)
	}
	if created.Name != "analytics" || created.Tenant != mode.DefaultTenant {
		t.Errorf("created = %+v", created)
	}

	var dbs []databaseResponse
	call(t, ts, "GET", "/api/v1/databases?limit=10&offset=0", "", &dbs)
	if len(dbs) != 2 {
		t.Fatalf("databases = %+v", dbs)
	}

	if code := call(t, ts, "POST", "/api/v1/databases/analytics/collections", `{"name":"docs","configuration":{"dimension":2,"distance":"l2"}}`, nil); code != http.StatusCreated {
		t.Errorf("create in analytics: %d", code)
	}
	if code := call(t, ts, "DELETE", "/api/v1/databases/analytics", "", nil); code != http.StatusNoContent {
		t.Errorf("delete database: %d", code)
	}
	var e errorResponse
	if code := call(t, ts, "GET", "/api/v1/databases/analytics", "", &e); code != http.StatusNotFound {
		t.Errorf("get deleted database: %d %+v", code, e)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	var h healthResponse
	if code := call(t, ts, "GET", "/health", "", &h); code != http.StatusOK {
		t.Fatalf("health: %d", code)
	}
	if h.Status != "ok" || h.Engine != "sqlite" || !strings.HasPrefix(h.Version, "3.") {
		t.Errorf("health = %+v", h)
	}
}

func TestRecoverer(t *testing.T) {
	handler := Recoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))
	if rr.Code != http.StatusInternalServerError || !strings.Contains(rr.Body.String(), codeInternalError) {
		t.Errorf("recovered = %d %s", rr.Code, rr.Body.String())
	}
}

func TestEmbeddingUsageHeaders(t *testing.T) {
	ts := newTestServer(t)
	seed(t, ts)

	post := func(path, body string) *http.Response {
		t.Helper()
		resp, err := ts.Client().Post(ts.URL+path, "application/json", bytes.NewReader([]byte(body)))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		resp.Body.Close()
		return resp
	}

	resp := post(docsPath+"/upsert", `{"ids":["d","e"],"documents":["x","y"]}`)
	if got := resp.Header.Get(EmbeddingTextsHeader); got != "2" {
		t.Errorf("upsert texts header = %q, want 2", got)
	}
	if got := resp.Header.Get(EmbeddingTokensHeader); got != "0" {
		t.Errorf("upsert tokens header = %q, want 0", got)
	}

	resp = post(docsPath+"/query", `{"query_texts":"vector"}`)
	if got := resp.Header.Get(EmbeddingTextsHeader); got != "1" {
		t.Errorf("query texts header = %q, want 1", got)
	}

	resp = post(docsPath+"/query", `{"query_embeddings":[0.1,0.2,0.3,0.4]}`)
	if got := resp.Header.Get(EmbeddingTextsHeader); got != "" {
		t.Errorf("query without texts set header %q", got)
	}
}
