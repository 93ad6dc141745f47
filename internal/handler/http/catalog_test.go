package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	indexmemory "github.com/najeemsuhail/ecommerce-store-sub000/internal/index/memory"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/repository/memory"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/service"
	apperrors "github.com/najeemsuhail/ecommerce-store-sub000/pkg/errors"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/health"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/httputil"
)

// --- Test Helpers ---

type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

type stubFeeds struct {
	result *domain.ImportResult
	err    error
}

func (s *stubFeeds) Sync(context.Context) (*domain.ImportResult, error) {
	return s.result, s.err
}

type testEnv struct {
	store  *memory.Store
	engine *indexmemory.Engine
	router http.Handler
}

func newTestEnv(t *testing.T, feeds FeedSyncer, withIndex bool) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	store := memory.NewStore()
	repos := service.Repositories{
		Products:   store.Products(),
		Variants:   store.Variants(),
		Categories: store.Categories(),
		Attributes: store.Attributes(),
		Reviews:    store.Reviews(),
	}

	importer := service.NewImportService(repos, nil, service.ImportConfig{Concurrency: 1, MaxErrors: 100, DefaultSource: "feed"}, logger)
	deps := Dependencies{
		Importer:  importer,
		ChunkSize: 2,
	}
	if feeds != nil {
		deps.Feeds = feeds
	}

	env := &testEnv{store: store}
	if withIndex {
		env.engine = indexmemory.New()
		deps.Indexer = service.NewIndexer(repos, env.engine, logger)
		deps.Search = service.NewSearchService(repos, env.engine, nil, service.SearchConfig{}, logger)
	} else {
		deps.Search = service.NewSearchService(repos, nil, nil, service.SearchConfig{}, logger)
	}

	env.router = NewRouter(deps, health.NewHandler(), logger)
	return env
}

func (e *testEnv) do(t *testing.T, method, target string, body io.Reader, contentType string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (e *testEnv) postJSON(t *testing.T, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return e.do(t, http.MethodPost, target, strings.NewReader(body), "application/json")
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	w, resp := e.postJSON(t, "/api/v1/products/import", `{"products":[
		{"name":"Yoga Mat","description":"Cushioned practice surface","price":25,"brand":"Acme","category":"Fitness","tags":["eco"]},
		{"name":"Travel Mat","description":"Folds flat for packing","price":19,"brand":"Roam","category":["Travel"]},
		{"name":"Foam Roller","description":"Eases tight legs","price":12,"brand":"Acme","category":"Fitness","isFeatured":true}
	]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result domain.ImportResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.Zero(t, result.Failed, "seed rows failed: %+v", result.Errors)
	require.Equal(t, 3, result.Imported)
}

type searchData struct {
	Products []domain.Product     `json:"products"`
	Count    int                  `json:"count"`
	Total    int                  `json:"total"`
	Facets   *domain.FacetSummary `json:"facets"`
}

func decodeSearch(t *testing.T, env envelope) searchData {
	t.Helper()
	var data searchData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data
}

func productNames(products []domain.Product) []string {
	names := make([]string, len(products))
	for i, p := range products {
		names[i] = p.Name
	}
	return names
}

// --- Search ---

func TestSearch_FacetsAndSort(t *testing.T) {
	env := newTestEnv(t, nil, false)
	env.seed(t)

	w, resp := env.do(t, http.MethodGet, "/api/v1/products?category=fitness&sort=price-low", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeSearch(t, resp)
	assert.Equal(t, []string{"Foam Roller", "Yoga Mat"}, productNames(data.Products))
	assert.Equal(t, 2, data.Count)
	assert.Equal(t, 2, data.Total)
	assert.Nil(t, data.Facets)
	assert.Contains(t, string(resp.Data), `"facets":null`)
}

func TestSearch_MultipleFilters(t *testing.T) {
	env := newTestEnv(t, nil, false)
	env.seed(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "repeated brand", query: "brand=Roam&brand=Nope", want: []string{"Travel Mat"}},
		{name: "featured", query: "isFeatured=true", want: []string{"Foam Roller"}},
		{name: "price range in dollars", query: "minPrice=15&maxPrice=20", want: []string{"Travel Mat"}},
		{name: "tag", query: "tag=eco", want: []string{"Yoga Mat"}},
		{name: "text without index", query: "search=mat", want: []string{"Yoga Mat", "Travel Mat"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := env.do(t, http.MethodGet, "/api/v1/products?"+tt.query, nil, "")

			require.Equal(t, http.StatusOK, w.Code)
			assert.ElementsMatch(t, tt.want, productNames(decodeSearch(t, resp).Products))
		})
	}
}

func TestSearch_Pagination(t *testing.T) {
	env := newTestEnv(t, nil, false)
	env.seed(t)

	w, resp := env.do(t, http.MethodGet, "/api/v1/products?sort=price-low&skip=1&limit=1", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeSearch(t, resp)
	assert.Equal(t, []string{"Travel Mat"}, productNames(data.Products))
	assert.Equal(t, 3, data.Total)
}

func TestSearch_UsesIndexWhenConfigured(t *testing.T) {
	env := newTestEnv(t, nil, true)
	env.seed(t)
	w, _ := env.postJSON(t, "/api/v1/search/reindex", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := env.do(t, http.MethodGet, "/api/v1/products?search=mat", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeSearch(t, resp)
	assert.ElementsMatch(t, []string{"Yoga Mat", "Travel Mat"}, productNames(data.Products))
	assert.NotNil(t, data.Facets)
}

func TestSearch_InvalidParameters(t *testing.T) {
	env := newTestEnv(t, nil, false)

	tests := []struct {
		name     string
		query    string
		wantCode string
	}{
		{name: "unknown sort", query: "sort=cheapest", wantCode: "VALIDATION_ERROR"},
		{name: "negative price", query: "minPrice=-1", wantCode: "VALIDATION_ERROR"},
		{name: "malformed price", query: "maxPrice=abc", wantCode: "INVALID_PARAMETER"},
		{name: "infinite price", query: "maxPrice=Inf", wantCode: "INVALID_PARAMETER"},
		{name: "nan price", query: "minPrice=NaN", wantCode: "INVALID_PARAMETER"},
		{name: "price beyond range", query: "maxPrice=1e30", wantCode: "INVALID_PARAMETER"},
		{name: "inverted range", query: "minPrice=20&maxPrice=10", wantCode: "INVALID_PARAMETER"},
		{name: "malformed flag", query: "isDigital=maybe", wantCode: "INVALID_PARAMETER"},
		{name: "unpaired attribute", query: "attribute=color&attribute=size&value=red", wantCode: "INVALID_PARAMETER"},
		{name: "negative skip", query: "skip=-3", wantCode: "INVALID_PARAMETER"},
		{name: "zero limit", query: "limit=0", wantCode: "INVALID_PARAMETER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := env.do(t, http.MethodGet, "/api/v1/products?"+tt.query, nil, "")

			assert.Equal(t, http.StatusBadRequest, w.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestParseSearchQuery_PairsAttributes(t *testing.T) {
	q, err := parseSearchQuery(map[string][]string{
		"attribute": {"Color", " ", "Size"},
		"value":     {"Blue", "x", "M"},
		"category":  {"", "fitness"},
		"search":    {"  mat "},
	})

	require.NoError(t, err)
	assert.Equal(t, []domain.AttributeFilter{{Attribute: "Color", Value: "Blue"}, {Attribute: "Size", Value: "M"}}, q.Facets.Attributes)
	assert.Equal(t, []string{"fitness"}, q.Facets.Categories)
	assert.Equal(t, "mat", q.Text)
}

// --- Import ---

func TestImport_ReportsRowFailures(t *testing.T) {
	env := newTestEnv(t, nil, false)

	w, resp := env.postJSON(t, "/api/v1/products/import", `{"products":[
		{"name":"Yoga Mat","description":"d","price":25,"sku":"YM-1"},
		{"name":"No Price","description":"d"},
		{"name":"Yoga Mat v2","description":"d","price":27,"sku":"YM-1"}
	]}`)

	require.Equal(t, http.StatusOK, w.Code)
	var result domain.ImportResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Equal(t, "No Price", result.Errors[0].Name)
	assert.Equal(t, "missing required fields: price", result.Errors[0].Error)
}

func TestImport_BadRequests(t *testing.T) {
	env := newTestEnv(t, nil, false)

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{name: "malformed json", body: `{"products":[`, wantCode: "INVALID_INPUT"},
		{name: "missing products", body: `{}`, wantCode: "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := env.postJSON(t, "/api/v1/products/import", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestImport_RejectsOtherContentTypes(t *testing.T) {
	env := newTestEnv(t, nil, false)

	w, resp := env.do(t, http.MethodPost, "/api/v1/products/import", strings.NewReader("name=x"), "text/plain")

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", resp.Error.Code)
}

func TestImportChunk_RoundTripsCategoryCache(t *testing.T) {
	env := newTestEnv(t, nil, false)

	w, resp := env.postJSON(t, "/api/v1/products/import/chunk", `{"products":[{"name":"Yoga Mat","description":"d","price":25,"category":"Fitness"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var first chunkImportResponse
	require.NoError(t, json.Unmarshal(resp.Data, &first))
	assert.Equal(t, 1, first.Imported)
	require.Len(t, first.CategoryCache, 1)
	assert.Equal(t, "fitness", first.CategoryCache[0].Slug)

	cache, err := json.Marshal(first.CategoryCache)
	require.NoError(t, err)
	w, resp = env.postJSON(t, "/api/v1/products/import/chunk",
		`{"products":[{"name":"Foam Roller","description":"d","price":12,"category":"Fitness"}],"categoryCache":`+string(cache)+`}`)
	require.Equal(t, http.StatusOK, w.Code)

	var second chunkImportResponse
	require.NoError(t, json.Unmarshal(resp.Data, &second))
	assert.Equal(t, 1, second.Imported)
	require.Len(t, second.CategoryCache, 1)
	assert.Equal(t, first.CategoryCache[0].ID, second.CategoryCache[0].ID)
}

func TestImportChunk_EmptyCacheIsStillReturned(t *testing.T) {
	env := newTestEnv(t, nil, false)

	w, resp := env.postJSON(t, "/api/v1/products/import/chunk", `{"products":[{"name":"Strap","description":"d","price":5}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"imported":1`)
	assert.Contains(t, string(resp.Data), `"categoryCache":[]`)
}

func TestImportChunk_RejectsOversizedChunks(t *testing.T) {
	env := newTestEnv(t, nil, false)
	rows := make([]string, 501)
	for i := range rows {
		rows[i] = `{"name":"x","description":"d","price":1}`
	}

	w, resp := env.postJSON(t, "/api/v1/products/import/chunk", `{"products":[`+strings.Join(rows, ",")+`]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

// --- File import ---

func multipartFile(t *testing.T, filename, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImportFile_CSV(t *testing.T) {
	env := newTestEnv(t, nil, false)
	body, ct := multipartFile(t, "products.csv",
		"name,description,price,sku,category\nYoga Mat,Cushioned,25,YM-1,Fitness\nBroken,,,,\nFoam Roller,Firm,12,FR-1,Fitness\n")

	w, resp := env.do(t, http.MethodPost, "/api/v1/products/import/file", body, ct)

	require.Equal(t, http.StatusOK, w.Code)
	var result domain.ImportResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
}

func TestImportFile_BadUploads(t *testing.T) {
	env := newTestEnv(t, nil, false)

	t.Run("unsupported extension", func(t *testing.T) {
		body, ct := multipartFile(t, "products.txt", "name\nx\n")
		w, resp := env.do(t, http.MethodPost, "/api/v1/products/import/file", body, ct)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	})

	t.Run("missing file field", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("other", "x"))
		require.NoError(t, mw.Close())
		w, resp := env.do(t, http.MethodPost, "/api/v1/products/import/file", &buf, mw.FormDataContentType())
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Contains(t, resp.Error.Message, "file")
	})

	t.Run("unparseable number", func(t *testing.T) {
		body, ct := multipartFile(t, "products.csv", "name,price\nMat,cheap\n")
		w, resp := env.do(t, http.MethodPost, "/api/v1/products/import/file", body, ct)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Contains(t, resp.Error.Message, "line 2")
	})
}

// --- Sync / Reindex ---

func TestSync(t *testing.T) {
	t.Run("returns the import result", func(t *testing.T) {
		env := newTestEnv(t, &stubFeeds{result: &domain.ImportResult{Imported: 4, Errors: []domain.RowError{}}}, false)
		w, resp := env.postJSON(t, "/api/v1/products/sync", "")
		require.Equal(t, http.StatusOK, w.Code)
		var result domain.ImportResult
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.Equal(t, 4, result.Imported)
	})

	t.Run("feed failure is unavailable", func(t *testing.T) {
		env := newTestEnv(t, &stubFeeds{err: apperrors.Infrastructure("fetch feed page", errors.New("timeout"))}, false)
		w, resp := env.postJSON(t, "/api/v1/products/sync", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "INFRASTRUCTURE_ERROR", resp.Error.Code)
	})

	t.Run("not configured", func(t *testing.T) {
		env := newTestEnv(t, nil, false)
		w, _ := env.postJSON(t, "/api/v1/products/sync", "")
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestReindex(t *testing.T) {
	env := newTestEnv(t, nil, true)
	env.seed(t)

	w, resp := env.postJSON(t, "/api/v1/search/reindex", "")

	require.Equal(t, http.StatusOK, w.Code)
	var data map[string]int
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, 3, data["indexed"])
	assert.Equal(t, 3, env.engine.Len())
}

func TestReindex_WithoutIndex(t *testing.T) {
	env := newTestEnv(t, nil, false)

	w, _ := env.postJSON(t, "/api/v1/search/reindex", "")

	assert.Equal(t, http.StatusConflict, w.Code)
}

// --- Router ---

func TestRouter_HealthAndCORS(t *testing.T) {
	env := newTestEnv(t, nil, false)

	w, _ := env.do(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodOptions, "/api/v1/products", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w, _ = env.do(t, http.MethodGet, "/api/v1/products", nil, "")
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}
