package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/index"
)

// Engine is an in-memory implementation of index.Index. It ranks documents
// by weighted case-insensitive substring matches.
type Engine struct {
	mu   sync.RWMutex
	docs map[string]index.Document
}

// New creates a new in-memory search engine.
func New() *Engine {
	return &Engine{
		docs: make(map[string]index.Document),
	}
}

var _ index.Index = (*Engine)(nil)

// Index adds or updates a single document.
func (e *Engine) Index(_ context.Context, doc index.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.docs[doc.ID] = doc
	return nil
}

// BulkIndex adds or updates multiple documents.
func (e *Engine) BulkIndex(_ context.Context, docs []index.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range docs {
		e.docs[docs[i].ID] = docs[i]
	}
	return nil
}

// Delete removes a document by its ID.
func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.docs, id)
	return nil
}

// Ping always succeeds.
func (e *Engine) Ping(context.Context) error { return nil }

// Len returns the number of indexed documents.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

type scored struct {
	doc   index.Document
	score int
}

// Search ranks every matching document and returns the requested window.
func (e *Engine) Search(ctx context.Context, q index.Query) (*index.Hits, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(q.Text))
	matched := make([]scored, 0)
	for _, doc := range e.docs {
		if s := score(doc, needle); s > 0 {
			matched = append(matched, scored{doc: doc, score: s})
		}
	}
	rank(matched, q.Sort)

	hits := &index.Hits{Total: len(matched), IDs: []string{}}
	from := min(max(q.From, 0), len(matched))
	end := len(matched)
	if q.Size > 0 {
		end = min(from+q.Size, len(matched))
	}
	for _, m := range matched[from:end] {
		hits.IDs = append(hits.IDs, m.doc.ID)
	}
	if q.WithFacets {
		hits.Facets = summarize(matched)
	}
	return hits, nil
}

// score weighs name matches over brand, category and tag matches, and those
// over description matches. An empty needle matches everything.
func score(doc index.Document, needle string) int {
	if needle == "" {
		return 1
	}
	s := 0
	if strings.Contains(strings.ToLower(doc.Name), needle) {
		s += 3
	}
	if strings.Contains(strings.ToLower(doc.Brand), needle) {
		s += 2
	}
	for _, c := range doc.Categories {
		if strings.Contains(strings.ToLower(c), needle) {
			s += 2
			break
		}
	}
	for _, t := range doc.Tags {
		if strings.ToLower(t) == needle {
			s += 2
			break
		}
	}
	if strings.Contains(strings.ToLower(doc.Description), needle) {
		s++
	}
	return s
}

func rank(matched []scored, sortBy string) {
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch sortBy {
		case domain.SortPriceLow:
			if a.doc.Price != b.doc.Price {
				return a.doc.Price < b.doc.Price
			}
		case domain.SortPriceHigh:
			if a.doc.Price != b.doc.Price {
				return a.doc.Price > b.doc.Price
			}
		case domain.SortNewest:
			if !a.doc.CreatedAt.Equal(b.doc.CreatedAt) {
				return a.doc.CreatedAt.After(b.doc.CreatedAt)
			}
		}
		if a.score != b.score {
			return a.score > b.score
		}
		if !a.doc.CreatedAt.Equal(b.doc.CreatedAt) {
			return a.doc.CreatedAt.After(b.doc.CreatedAt)
		}
		return a.doc.ID < b.doc.ID
	})
}

func summarize(matched []scored) *domain.FacetSummary {
	brands := map[string]int{}
	categories := map[string]int{}
	summary := &domain.FacetSummary{}

	for _, m := range matched {
		if m.doc.Brand != "" {
			brands[m.doc.Brand]++
		}
		for _, c := range m.doc.Categories {
			categories[c]++
		}
		price := m.doc.Price
		if summary.PriceMin == nil || price < *summary.PriceMin {
			summary.PriceMin = &price
		}
		if summary.PriceMax == nil || price > *summary.PriceMax {
			summary.PriceMax = &price
		}
	}
	summary.Brands = buckets(brands)
	summary.Categories = buckets(categories)
	return summary
}

// buckets orders counts by descending count, then value.
func buckets(counts map[string]int) []domain.FacetCount {
	out := make([]domain.FacetCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, domain.FacetCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}
