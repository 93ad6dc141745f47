package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/repository"
	apperrors "github.com/najeemsuhail/ecommerce-store-sub000/pkg/errors"
)

var base = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func seed(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s := NewStore()
	products := s.Products()

	add := func(id, name, brand string, price int64, age int, tags ...string) {
		p := &domain.Product{
			ID: id, Name: name, Slug: id, Description: name + " description",
			Brand: brand, Price: price, Tags: tags, Images: []string{},
			IsActive: true, CreatedAt: base.Add(time.Duration(age) * time.Hour),
		}
		require.NoError(t, products.Create(ctx, p))
	}
	add("yoga-mat", "Yoga Mat", "Acme", 2500, 3, "yoga")
	add("mat-cleaner", "Mat Cleaner", "Shiny", 900, 2)
	add("headphones", "Wireless Headphones", "Sonic", 9900, 1, "audio")
	add("dumbbell", "Dumbbell", "Acme", 4000, 0)

	_, err := s.Categories().CreateIgnoreConflict(ctx, &domain.Category{ID: "c-fit", Name: "Fitness", Slug: "fitness"})
	require.NoError(t, err)
	require.NoError(t, products.ReplaceCategories(ctx, domain.ReplaceSet[domain.ProductCategory]{
		ParentID: "yoga-mat", Items: []domain.ProductCategory{{ProductID: "yoga-mat", CategoryID: "c-fit", IsPrimary: true}},
	}))
	require.NoError(t, products.ReplaceCategories(ctx, domain.ReplaceSet[domain.ProductCategory]{
		ParentID: "dumbbell", Items: []domain.ProductCategory{{ProductID: "dumbbell", CategoryID: "c-fit", IsPrimary: true}},
	}))
	return s
}

func ids(products []domain.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

// ─── Products ─────────────────────────────────────────────────────────────────

func TestProductRepository_CreateUniqueKeys(t *testing.T) {
	ctx := context.Background()
	r := NewStore().Products()

	require.NoError(t, r.Create(ctx, &domain.Product{ID: "1", Slug: "a", SKU: strPtr("S1")}))

	err := r.Create(ctx, &domain.Product{ID: "2", Slug: "a"})
	assert.True(t, errors.Is(err, repository.ErrSlugTaken))

	err = r.Create(ctx, &domain.Product{ID: "3", Slug: "b", SKU: strPtr("S1")})
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))

	_, err = r.FindBySKU(ctx, "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestProductRepository_SlugsWithPrefix(t *testing.T) {
	s := seed(t)
	slugs, err := s.Products().SlugsWithPrefix(context.Background(), []string{"mat", "yoga"})
	require.NoError(t, err)
	assert.Equal(t, []string{"mat-cleaner", "yoga-mat"}, slugs)
}

func TestProductRepository_List(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter repository.ProductFilter
		want   []string
		total  int
	}{
		{"newest first", repository.ProductFilter{}, []string{"yoga-mat", "mat-cleaner", "headphones", "dumbbell"}, 4},
		{"price low", repository.ProductFilter{Sort: domain.SortPriceLow}, []string{"mat-cleaner", "yoga-mat", "dumbbell", "headphones"}, 4},
		{"category by name", repository.ProductFilter{Facets: domain.Facets{Categories: []string{"FITNESS"}}}, []string{"yoga-mat", "dumbbell"}, 2},
		{"brand", repository.ProductFilter{Facets: domain.Facets{Brands: []string{"acme"}}}, []string{"yoga-mat", "dumbbell"}, 2},
		{"text in name", repository.ProductFilter{Text: "mat"}, []string{"yoga-mat", "mat-cleaner"}, 2},
		{"text matches category", repository.ProductFilter{Text: "fitn"}, []string{"yoga-mat", "dumbbell"}, 2},
		{"text matches tag", repository.ProductFilter{Text: "audio"}, []string{"headphones"}, 1},
		{"window", repository.ProductFilter{Skip: 1, Limit: 2}, []string{"mat-cleaner", "headphones"}, 4},
		{"exclude", repository.ProductFilter{Text: "mat", ExcludeIDs: []string{"yoga-mat"}}, []string{"mat-cleaner"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := s.Products().List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, tt.total, total)
		})
	}
}

func TestProductRepository_FilterIDs(t *testing.T) {
	s := seed(t)
	got, err := s.Products().FilterIDs(context.Background(),
		[]string{"mat-cleaner", "yoga-mat", "unknown"},
		domain.Facets{Categories: []string{"fitness"}},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"yoga-mat"}, got)
}

func TestProductRepository_AttributeFacet(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	_, err := s.Attributes().CreateIgnoreConflict(ctx, &domain.Attribute{ID: "a-color", Name: "Color", Slug: "color"})
	require.NoError(t, err)
	require.NoError(t, s.Products().ReplaceAttributeValues(ctx, domain.ReplaceSet[domain.ProductAttributeValue]{
		ParentID: "yoga-mat",
		Items:    []domain.ProductAttributeValue{{ProductID: "yoga-mat", AttributeID: "a-color", Value: "Blue, Green"}},
	}))

	got, _, err := s.Products().List(ctx, repository.ProductFilter{
		Facets: domain.Facets{Attributes: []domain.AttributeFilter{{Attribute: "color", Value: "green"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"yoga-mat"}, ids(got))
}

// ─── Categories, attributes, reviews ──────────────────────────────────────────

func TestCategoryRepository_CreateIgnoreConflict(t *testing.T) {
	ctx := context.Background()
	r := NewStore().Categories()

	created, err := r.CreateIgnoreConflict(ctx, &domain.Category{ID: "1", Name: "Fitness", Slug: "fitness"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = r.CreateIgnoreConflict(ctx, &domain.Category{ID: "2", Name: "fitness", Slug: "fitness"})
	require.NoError(t, err)
	assert.False(t, created)

	c, err := r.GetBySlug(ctx, "fitness")
	require.NoError(t, err)
	assert.Equal(t, "1", c.ID)
}

func TestAttributeRepository_Scopes(t *testing.T) {
	ctx := context.Background()
	r := NewStore().Attributes()

	_, err := r.CreateIgnoreConflict(ctx, &domain.Attribute{ID: "g", Slug: "size"})
	require.NoError(t, err)
	created, err := r.CreateIgnoreConflict(ctx, &domain.Attribute{ID: "s", Slug: "size", CategoryID: strPtr("c1")})
	require.NoError(t, err)
	assert.True(t, created)

	global, err := r.Find(ctx, "size", nil)
	require.NoError(t, err)
	assert.Equal(t, "g", global.ID)

	scoped, err := r.Find(ctx, "size", strPtr("c1"))
	require.NoError(t, err)
	assert.Equal(t, "s", scoped.ID)
}

func TestReviewRepository_Ratings(t *testing.T) {
	s := NewStore()
	s.AddReview("p1", 5)
	s.AddReview("p1", 4)

	got, err := s.Reviews().Ratings(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.RatingSummary{"p1": {Average: 4.5, Count: 2}}, got)
}
