package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/index"
)

const facetBuckets = 20

// Engine is an Elasticsearch-backed implementation of index.Index.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

var _ index.Index = (*Engine)(nil)

// esSearchResponse is the structure used to decode Elasticsearch search responses.
type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations *struct {
		Brands     esTerms  `json:"brands"`
		Categories esTerms  `json:"categories"`
		PriceMin   esMetric `json:"price_min"`
		PriceMax   esMetric `json:"price_max"`
	} `json:"aggregations"`
}

type esTerms struct {
	Buckets []struct {
		Key      string `json:"key"`
		DocCount int    `json:"doc_count"`
	} `json:"buckets"`
}

type esMetric struct {
	Value *float64 `json:"value"`
}

// esBulkResponse is the structure used to decode Elasticsearch bulk responses.
type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates a new Elasticsearch engine connected to the given URL.
// It ensures the products index exists, creating it if necessary.
func New(ctx context.Context, esURL, indexName string, logger *slog.Logger) (*Engine, error) {
	return NewWithTransport(ctx, esURL, indexName, nil, logger)
}

// NewWithTransport is New with a custom HTTP transport; nil uses the default.
func NewWithTransport(ctx context.Context, esURL, indexName string, transport http.RoundTripper, logger *slog.Logger) (*Engine, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	e := &Engine{
		client:    client,
		indexName: indexName,
		logger:    logger,
	}

	if err := e.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to ensure index: %w", err)
	}

	return e, nil
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// ensureIndex checks whether the products index exists and creates it if not.
func (e *Engine) ensureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.indexName}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusOK {
		e.logger.Info("elasticsearch index already exists", "index", e.indexName)
		return nil
	}

	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(buildIndexMapping())),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("create index", res.Status(), res.Body)
	}

	e.logger.Info("elasticsearch index created", "index", e.indexName)
	return nil
}

// responseError decodes an Elasticsearch error body.
func responseError(op, status string, body io.Reader) error {
	var errResp esErrorResponse
	if decErr := json.NewDecoder(body).Decode(&errResp); decErr == nil && errResp.Error.Type != "" {
		return fmt.Errorf("elasticsearch %s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("elasticsearch %s: unexpected status %s", op, status)
}

// Index adds or updates a single document.
func (e *Engine) Index(ctx context.Context, doc index.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal document: %w", err)
	}

	res, err := e.client.Index(
		e.indexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(doc.ID),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("index", res.Status(), res.Body)
	}

	e.logger.DebugContext(ctx, "indexed product", "id", doc.ID, "name", doc.Name)
	return nil
}

// Delete removes a document by its ID. A missing document is not an error.
func (e *Engine) Delete(ctx context.Context, id string) error {
	res, err := e.client.Delete(
		e.indexName,
		id,
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete", res.Status(), res.Body)
	}

	e.logger.DebugContext(ctx, "deleted product", "id", id)
	return nil
}

// Search returns the ranked id window for q, with aggregations when asked.
func (e *Engine) Search(ctx context.Context, q index.Query) (*index.Hits, error) {
	data, err := json.Marshal(buildSearchQuery(q))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, responseError("search", res.Status(), res.Body)
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	hits := &index.Hits{
		IDs:   make([]string, 0, len(esResp.Hits.Hits)),
		Total: esResp.Hits.Total.Value,
	}
	for _, hit := range esResp.Hits.Hits {
		hits.IDs = append(hits.IDs, hit.ID)
	}
	if q.WithFacets && esResp.Aggregations != nil {
		agg := esResp.Aggregations
		hits.Facets = &domain.FacetSummary{
			Brands:     agg.Brands.counts(),
			Categories: agg.Categories.counts(),
			PriceMin:   agg.PriceMin.cents(),
			PriceMax:   agg.PriceMax.cents(),
		}
	}
	return hits, nil
}

func (t esTerms) counts() []domain.FacetCount {
	out := make([]domain.FacetCount, 0, len(t.Buckets))
	for _, b := range t.Buckets {
		out = append(out, domain.FacetCount{Value: b.Key, Count: b.DocCount})
	}
	return out
}

// cents returns nil when the aggregation saw no documents.
func (m esMetric) cents() *int64 {
	if m.Value == nil {
		return nil
	}
	v := int64(*m.Value)
	return &v
}

// buildSearchQuery constructs the Elasticsearch query DSL as a map. Only
// ids are fetched; documents are loaded from the relational store.
func buildSearchQuery(q index.Query) map[string]interface{} {
	var must interface{}
	if strings.TrimSpace(q.Text) != "" {
		must = map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":         q.Text,
							"fields":        []string{"name^3", "name.autocomplete^2", "brand^2", "categories^2", "description"},
							"type":          "best_fields",
							"fuzziness":     "AUTO",
							"prefix_length": 1,
						},
					},
					map[string]interface{}{
						"term": map[string]interface{}{
							"tags": map[string]interface{}{
								"value": strings.ToLower(strings.TrimSpace(q.Text)),
								"boost": 2,
							},
						},
					},
				},
				"minimum_should_match": 1,
			},
		}
	} else {
		must = map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}

	size := q.Size
	if size < 0 {
		size = 0
	}
	esQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{must},
			},
		},
		"_source":          false,
		"from":             max(q.From, 0),
		"size":             size,
		"track_total_hits": true,
		"sort":             buildSort(q.Sort),
	}

	if q.WithFacets {
		esQuery["aggs"] = map[string]interface{}{
			"brands": map[string]interface{}{
				"terms": map[string]interface{}{"field": "brand.keyword", "size": facetBuckets},
			},
			"categories": map[string]interface{}{
				"terms": map[string]interface{}{"field": "categories.keyword", "size": facetBuckets},
			},
			"price_min": map[string]interface{}{
				"min": map[string]interface{}{"field": "price"},
			},
			"price_max": map[string]interface{}{
				"max": map[string]interface{}{"field": "price"},
			},
		}
	}

	return esQuery
}

// buildSort constructs the sort clause. Sorts the index cannot compute
// (rating, popularity) keep relevance order.
func buildSort(sortBy string) []interface{} {
	tiebreak := []interface{}{
		map[string]interface{}{"_score": "desc"},
		map[string]interface{}{"created_at": "desc"},
		map[string]interface{}{"id": "asc"},
	}
	switch sortBy {
	case domain.SortPriceLow:
		return append([]interface{}{map[string]interface{}{"price": "asc"}}, tiebreak...)
	case domain.SortPriceHigh:
		return append([]interface{}{map[string]interface{}{"price": "desc"}}, tiebreak...)
	case domain.SortNewest:
		return []interface{}{
			map[string]interface{}{"created_at": "desc"},
			map[string]interface{}{"id": "asc"},
		}
	default:
		return tiebreak
	}
}

// DeleteIndex removes the entire Elasticsearch index. A 404 response is
// treated as success.
func (e *Engine) DeleteIndex(ctx context.Context) error {
	res, err := e.client.Indices.Delete(
		[]string{e.indexName},
		e.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete index", res.Status(), res.Body)
	}

	e.logger.InfoContext(ctx, "elasticsearch index deleted", "index", e.indexName)
	return nil
}

// BulkIndex adds or updates multiple documents using the bulk NDJSON API.
func (e *Engine) BulkIndex(ctx context.Context, docs []index.Document) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range docs {
		action := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": e.indexName,
				"_id":    docs[i].ID,
			},
		}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode action: %w", err)
		}
		if err := enc.Encode(docs[i]); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(e.indexName),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("bulk index", res.Status(), res.Body)
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk index: decode response: %w", err)
	}

	if bulkResp.Errors {
		var errMsgs []string
		for _, item := range bulkResp.Items {
			if item.Index.Error.Type != "" {
				errMsgs = append(errMsgs, fmt.Sprintf("id=%s: %s: %s", item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason))
			}
		}
		return fmt.Errorf("elasticsearch bulk index: partial errors: %s", strings.Join(errMsgs, "; "))
	}

	e.logger.InfoContext(ctx, "bulk indexed products", "count", len(docs))
	return nil
}
