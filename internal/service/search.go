package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/index"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/repository"
)

// SearchConfig tunes the search resolution engine.
type SearchConfig struct {
	// UnionWindow is how many ranked ids are taken from the index when text
	// and facets are combined.
	UnionWindow  int
	DefaultLimit int
	MaxLimit     int
}

// ResultCache stores search results for identical queries. Implementations
// treat storage failures as misses.
type ResultCache interface {
	Get(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, bool)
	Set(ctx context.Context, q domain.SearchQuery, result *domain.SearchResult)
}

// SearchService resolves storefront queries against the index and the
// relational store.
type SearchService struct {
	repos  Repositories
	index  index.Index
	cache  ResultCache
	cfg    SearchConfig
	logger *slog.Logger
}

// NewSearchService creates a new search service. idx and cache may be nil.
func NewSearchService(repos Repositories, idx index.Index, cache ResultCache, cfg SearchConfig, logger *slog.Logger) *SearchService {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}
	if cfg.UnionWindow <= 0 {
		cfg.UnionWindow = 1000
	}
	return &SearchService{
		repos:  repos,
		index:  idx,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
	}
}

// Search returns one page of products matching q. Index failures never
// surface; the search degrades to relational substring matching.
func (s *SearchService) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	q = s.normalize(q)

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, q); ok {
			searchRequestsTotal.WithLabelValues(modeCached).Inc()
			return cached, nil
		}
	}

	result, mode, err := s.resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	searchRequestsTotal.WithLabelValues(mode).Inc()

	if err := s.enrich(ctx, result.Products); err != nil {
		return nil, err
	}
	if q.Sort == domain.SortRating {
		sort.SliceStable(result.Products, func(i, j int) bool {
			return result.Products[i].AverageRating > result.Products[j].AverageRating
		})
	}
	result.Count = len(result.Products)

	s.logger.DebugContext(ctx, "search executed",
		slog.String("query", q.Text),
		slog.String("mode", mode),
		slog.Int("count", result.Count),
		slog.Int("total", result.Total),
	)

	if s.cache != nil && mode != modeFallback {
		s.cache.Set(ctx, q, result)
	}
	return result, nil
}

func (s *SearchService) normalize(q domain.SearchQuery) domain.SearchQuery {
	q.Text = strings.TrimSpace(q.Text)
	if q.Skip < 0 {
		q.Skip = 0
	}
	if q.Limit <= 0 {
		q.Limit = s.cfg.DefaultLimit
	}
	if q.Limit > s.cfg.MaxLimit {
		q.Limit = s.cfg.MaxLimit
	}
	return q
}

func (s *SearchService) resolve(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, string, error) {
	if q.Text == "" || s.index == nil {
		result, err := s.relational(ctx, q)
		return result, modeRelational, err
	}

	var (
		result *domain.SearchResult
		mode   string
		err    error
	)
	if q.Facets.Active() {
		mode = modeUnion
		result, err = s.union(ctx, q)
	} else {
		mode = modeIndex
		result, err = s.ranked(ctx, q)
	}
	if err == nil {
		return result, mode, nil
	}
	if !errors.Is(err, index.ErrDegraded) {
		return nil, mode, err
	}

	searchIndexFallbackTotal.Inc()
	s.logger.WarnContext(ctx, "search index unavailable, falling back to relational search",
		slog.String("query", q.Text),
		slog.String("error", err.Error()),
	)
	result, err = s.relational(ctx, q)
	return result, modeFallback, err
}

// relational answers q from storage alone. A text query becomes a substring
// predicate. No facet summary is produced.
func (s *SearchService) relational(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	products, total, err := s.repos.Products.List(ctx, repository.ProductFilter{
		Facets: q.Facets,
		Text:   q.Text,
		Sort:   storageSort(q.Sort),
		Skip:   q.Skip,
		Limit:  q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &domain.SearchResult{Products: products, Total: total}, nil
}

// searchIndex queries the index and marks every failure as degraded.
func (s *SearchService) searchIndex(ctx context.Context, q index.Query) (*index.Hits, error) {
	hits, err := s.index.Search(ctx, q)
	if err != nil {
		if errors.Is(err, index.ErrDegraded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", index.ErrDegraded, err)
	}
	return hits, nil
}

// ranked serves a pure text query: the index picks the page window and its
// order is kept.
func (s *SearchService) ranked(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	hits, err := s.searchIndex(ctx, index.Query{
		Text:       q.Text,
		Sort:       indexSort(q.Sort),
		From:       q.Skip,
		Size:       q.Limit,
		WithFacets: true,
	})
	if err != nil {
		return nil, err
	}
	if hits.Total == 0 {
		return &domain.SearchResult{Products: []domain.Product{}, Facets: hits.Facets}, nil
	}

	products, err := s.load(ctx, hits.IDs)
	if err != nil {
		return nil, err
	}
	return &domain.SearchResult{Products: products, Total: hits.Total, Facets: hits.Facets}, nil
}

// union serves text combined with facets. Index-ranked ids that pass the
// facets come first in index order, followed by relational matches the index
// did not return. The page is cut after the union.
func (s *SearchService) union(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	hits, err := s.searchIndex(ctx, index.Query{
		Text:       q.Text,
		Sort:       indexSort(q.Sort),
		Size:       s.cfg.UnionWindow,
		WithFacets: true,
	})
	if err != nil {
		return nil, err
	}

	passing, err := s.repos.Products.FilterIDs(ctx, hits.IDs, q.Facets)
	if err != nil {
		return nil, fmt.Errorf("filter ranked ids: %w", err)
	}
	ranked := keepOrder(hits.IDs, passing)

	start := min(q.Skip, len(ranked))
	end := min(q.Skip+q.Limit, len(ranked))
	products, err := s.load(ctx, ranked[start:end])
	if err != nil {
		return nil, err
	}

	filter := repository.ProductFilter{
		Facets:     q.Facets,
		Text:       q.Text,
		ExcludeIDs: hits.IDs,
		Sort:       storageSort(q.Sort),
		Skip:       max(q.Skip-len(ranked), 0),
	}
	var rest int
	if need := q.Limit - len(products); need > 0 {
		filter.Limit = need
		extra, total, err := s.repos.Products.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list facet matches: %w", err)
		}
		products = append(products, extra...)
		rest = total
	} else {
		if rest, err = s.repos.Products.Count(ctx, filter); err != nil {
			return nil, fmt.Errorf("count facet matches: %w", err)
		}
	}

	return &domain.SearchResult{
		Products: products,
		Total:    len(ranked) + rest,
		Facets:   hits.Facets,
	}, nil
}

// load fetches ids and returns them in the given order. Ids the store no
// longer has are dropped.
func (s *SearchService) load(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	found, err := s.repos.Products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load ranked products: %w", err)
	}

	byID := make(map[string]domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok && p.IsActive {
			products = append(products, p)
		}
	}
	return products, nil
}

// enrich attaches categories and computed ratings.
func (s *SearchService) enrich(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]string, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}

	categories, err := s.repos.Categories.ListByProducts(ctx, ids)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	ratings, err := s.repos.Reviews.Ratings(ctx, ids)
	if err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}

	for i := range products {
		p := &products[i]
		p.Categories = categories[p.ID]
		if r, ok := ratings[p.ID]; ok {
			p.AverageRating = domain.RoundRating(r.Average)
			p.ReviewCount = r.Count
		}
	}
	return nil
}

func keepOrder(ranked, subset []string) []string {
	keep := make(map[string]struct{}, len(subset))
	for _, id := range subset {
		keep[id] = struct{}{}
	}
	out := make([]string, 0, len(subset))
	for _, id := range ranked {
		if _, ok := keep[id]; ok {
			out = append(out, id)
			delete(keep, id)
		}
	}
	return out
}

// storageSort maps a requested sort onto one storage can order by. Rating
// is derived, so storage orders by newest and the page is re-sorted.
func storageSort(sortBy string) string {
	switch sortBy {
	case domain.SortPriceLow, domain.SortPriceHigh, domain.SortPopular:
		return sortBy
	default:
		return domain.SortNewest
	}
}

// indexSort keeps relevance unless the index can order by the field itself.
func indexSort(sortBy string) string {
	switch sortBy {
	case domain.SortPriceLow, domain.SortPriceHigh, domain.SortNewest:
		return sortBy
	default:
		return ""
	}
}
