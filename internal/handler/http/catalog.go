package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/feed"
	apperrors "github.com/najeemsuhail/ecommerce-store-sub000/pkg/errors"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/httputil"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/pagination"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/validator"
)

const (
	maxImportBody = 32 << 20
	maxChunkBody  = 8 << 20
)

// Searcher resolves storefront queries.
type Searcher interface {
	Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error)
}

// Importer reconciles feed rows into the catalog.
type Importer interface {
	Import(ctx context.Context, rows []domain.FeedProduct) (*domain.ImportResult, error)
	ImportChunk(ctx context.Context, rows []domain.FeedProduct, cache []domain.CategoryRef) (*domain.ImportResult, error)
	ImportInChunks(ctx context.Context, rows []domain.FeedProduct, chunkSize int) (*domain.ImportResult, error)
}

// FeedSyncer pulls and reconciles the configured remote feeds.
type FeedSyncer interface {
	Sync(ctx context.Context) (*domain.ImportResult, error)
}

// Reindexer rebuilds the search index from storage.
type Reindexer interface {
	Reindex(ctx context.Context) (int, error)
}

// Dependencies are the services behind the catalog endpoints. Feeds and
// Indexer may be nil.
type Dependencies struct {
	Search    Searcher
	Importer  Importer
	Feeds     FeedSyncer
	Indexer   Reindexer
	ChunkSize int
}

// CatalogHandler handles HTTP requests for search and import endpoints.
type CatalogHandler struct {
	deps   Dependencies
	logger *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(deps Dependencies, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{deps: deps, logger: logger}
}

// --- Request DTOs ---

// ImportRequest is the JSON request body for a batch import.
type ImportRequest struct {
	Products []domain.FeedProduct `json:"products" validate:"required"`
}

// ChunkImportRequest is one chunk of a caller-driven import. CategoryCache
// is the cache returned by the previous chunk.
type ChunkImportRequest struct {
	Products      []domain.FeedProduct `json:"products" validate:"required,max=500"`
	CategoryCache []domain.CategoryRef `json:"categoryCache"`
}

// chunkImportResponse always carries the category cache, even when empty.
type chunkImportResponse struct {
	*domain.ImportResult
	CategoryCache []domain.CategoryRef `json:"categoryCache"`
}

// searchParams holds the query parameters that need tag validation.
type searchParams struct {
	Sort     string   `json:"sort" validate:"omitempty,oneof=newest price-low price-high popular rating"`
	MinPrice *float64 `json:"minPrice" validate:"omitempty,gte=0"`
	MaxPrice *float64 `json:"maxPrice" validate:"omitempty,gte=0"`
}

// --- Handlers ---

// Search handles GET /api/v1/products
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query, err := parseSearchQuery(r.URL.Query())
	if err != nil {
		var valErr *validator.ValidationError
		if errors.As(err, &valErr) {
			httputil.WriteValidationError(w, err)
			return
		}
		httputil.WriteInvalidParameter(w, err.Error())
		return
	}

	result, err := h.deps.Search.Search(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Import handles POST /api/v1/products/import
func (h *CatalogHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBody)

	var req ImportRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.deps.Importer.Import(r.Context(), req.Products)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// ImportChunk handles POST /api/v1/products/import/chunk
func (h *CatalogHandler) ImportChunk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChunkBody)

	var req ChunkImportRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.deps.Importer.ImportChunk(r.Context(), req.Products, req.CategoryCache)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cache := result.CategoryCache
	if cache == nil {
		cache = []domain.CategoryRef{}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: chunkImportResponse{ImportResult: result, CategoryCache: cache}})
}

// ImportFile handles POST /api/v1/products/import/file
func (h *CatalogHandler) ImportFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBody)

	if err := r.ParseMultipartForm(maxImportBody); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid multipart form: " + err.Error()},
		})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "form field \"file\" is required"},
		})
		return
	}
	defer file.Close()

	format, err := feed.FormatFromFilename(header.Filename)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	rows, err := feed.Parse(file, format)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.deps.Importer.ImportInChunks(r.Context(), rows, h.deps.ChunkSize)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.logger.InfoContext(r.Context(), "file import finished",
		slog.String("file", header.Filename),
		slog.Int("rows", len(rows)),
		slog.Int("failed", result.Failed),
	)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Sync handles POST /api/v1/products/sync
func (h *CatalogHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if h.deps.Feeds == nil {
		httputil.WriteError(w, r, apperrors.Conflict("feed sync is not configured"), h.logger)
		return
	}

	result, err := h.deps.Feeds.Sync(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Reindex handles POST /api/v1/search/reindex
func (h *CatalogHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	if h.deps.Indexer == nil {
		httputil.WriteError(w, r, apperrors.Conflict("search index is not configured"), h.logger)
		return
	}

	indexed, err := h.deps.Indexer.Reindex(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]int{"indexed": indexed}})
}

// --- Helpers ---

// decodeBody decodes and validates a JSON body, answering 400 itself when it
// cannot.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return false
	}
	if err := validator.Validate(dst); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	return true
}

func parseSearchQuery(q url.Values) (domain.SearchQuery, error) {
	params := searchParams{Sort: q.Get("sort")}
	var err error
	if params.MinPrice, err = parseFloatParam(q, "minPrice"); err != nil {
		return domain.SearchQuery{}, err
	}
	if params.MaxPrice, err = parseFloatParam(q, "maxPrice"); err != nil {
		return domain.SearchQuery{}, err
	}
	if err := validator.Validate(params); err != nil {
		return domain.SearchQuery{}, err
	}
	if params.MinPrice != nil && params.MaxPrice != nil && *params.MinPrice > *params.MaxPrice {
		return domain.SearchQuery{}, errInvalidParam("minPrice must not exceed maxPrice")
	}

	page, err := pagination.FromQuery(q, 0, 0)
	if err != nil {
		return domain.SearchQuery{}, err
	}

	facets := domain.Facets{
		Categories: nonEmpty(q["category"]),
		Brands:     nonEmpty(q["brand"]),
		Tags:       nonEmpty(q["tag"]),
	}
	if params.MinPrice != nil {
		cents := domain.ToCents(*params.MinPrice)
		facets.MinPrice = &cents
	}
	if params.MaxPrice != nil {
		cents := domain.ToCents(*params.MaxPrice)
		facets.MaxPrice = &cents
	}
	if facets.IsDigital, err = parseBoolParam(q, "isDigital"); err != nil {
		return domain.SearchQuery{}, err
	}
	if facets.IsFeatured, err = parseBoolParam(q, "isFeatured"); err != nil {
		return domain.SearchQuery{}, err
	}

	// attribute and value are paired by position.
	attrs, values := q["attribute"], q["value"]
	if len(attrs) != len(values) {
		return domain.SearchQuery{}, errInvalidParam("every attribute needs a matching value")
	}
	for i, name := range attrs {
		name, value := strings.TrimSpace(name), strings.TrimSpace(values[i])
		if name == "" || value == "" {
			continue
		}
		facets.Attributes = append(facets.Attributes, domain.AttributeFilter{Attribute: name, Value: value})
	}

	return domain.SearchQuery{
		Text:   strings.TrimSpace(q.Get("search")),
		Facets: facets,
		Sort:   params.Sort,
		Skip:   page.Skip,
		Limit:  page.Limit,
	}, nil
}

type errInvalidParam string

func (e errInvalidParam) Error() string { return string(e) }

func parseFloatParam(q url.Values, key string) (*float64, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errInvalidParam(key + " must be a valid number")
	}
	if f > domain.MaxPrice {
		return nil, errInvalidParam(fmt.Sprintf("%s must not exceed %.0f", key, domain.MaxPrice))
	}
	return &f, nil
}

func parseBoolParam(q url.Values, key string) (*bool, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, errInvalidParam(key + " must be true or false")
	}
	return &b, nil
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
