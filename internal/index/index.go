package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
)

// ErrDegraded marks a failed or timed out index call. Search treats it as a
// signal to fall back to relational matching.
var ErrDegraded = errors.New("search index degraded")

// Document is the indexed projection of a product.
type Document struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	Brand         string    `json:"brand"`
	Tags          []string  `json:"tags"`
	Categories    []string  `json:"categories"`
	CategorySlugs []string  `json:"category_slugs"`
	Price         int64     `json:"price"`
	IsDigital     bool      `json:"is_digital"`
	IsFeatured    bool      `json:"is_featured"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewDocument projects p, including its loaded categories.
func NewDocument(p *domain.Product) Document {
	doc := Document{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Description:   p.Description,
		Brand:         p.Brand,
		Tags:          p.Tags,
		Categories:    p.CategoryNames(),
		CategorySlugs: make([]string, 0, len(p.Categories)),
		Price:         p.Price,
		IsDigital:     p.IsDigital,
		IsFeatured:    p.IsFeatured,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	for _, c := range p.Categories {
		doc.CategorySlugs = append(doc.CategorySlugs, c.Slug)
	}
	return doc
}

// Query asks the index for a window of ranked product ids. An empty Sort
// ranks by relevance; price and newest sorts are applied by the index.
type Query struct {
	Text       string
	Sort       string
	From       int
	Size       int
	WithFacets bool
}

// Hits is the ranked id window of a query. Total counts every match, not
// just the window.
type Hits struct {
	IDs    []string
	Total  int
	Facets *domain.FacetSummary
}

// Index is the search index collaborator.
type Index interface {
	Search(ctx context.Context, q Query) (*Hits, error)
	Index(ctx context.Context, doc Document) error
	BulkIndex(ctx context.Context, docs []Document) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// Bounded limits every search to a timeout and reports any search failure
// as ErrDegraded.
type Bounded struct {
	inner   Index
	timeout time.Duration
}

// NewBounded wraps idx. A non-positive timeout disables the bound.
func NewBounded(idx Index, timeout time.Duration) *Bounded {
	return &Bounded{inner: idx, timeout: timeout}
}

// Search runs q on the wrapped index within the timeout.
func (b *Bounded) Search(ctx context.Context, q Query) (*Hits, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	hits, err := b.inner.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDegraded, err)
	}
	return hits, nil
}

func (b *Bounded) Index(ctx context.Context, doc Document) error {
	return b.inner.Index(ctx, doc)
}

func (b *Bounded) BulkIndex(ctx context.Context, docs []Document) error {
	return b.inner.BulkIndex(ctx, docs)
}

func (b *Bounded) Delete(ctx context.Context, id string) error {
	return b.inner.Delete(ctx, id)
}

func (b *Bounded) Ping(ctx context.Context) error {
	return b.inner.Ping(ctx)
}
