package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/repository"
	apperrors "github.com/najeemsuhail/ecommerce-store-sub000/pkg/errors"
)

// VariantRepository implements repository.VariantRepository in memory.
type VariantRepository struct {
	s *Store
}

var _ repository.VariantRepository = (*VariantRepository)(nil)

func (r *VariantRepository) FindBySKU(_ context.Context, sku string) (*domain.ProductVariant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, v := range r.s.variants {
		if v.SKU != nil && *v.SKU == sku {
			c := *v
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("variant sku", sku)
}

func (r *VariantRepository) FindByName(_ context.Context, productID, name string) (*domain.ProductVariant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, v := range r.s.variants {
		if v.ProductID == productID && v.SKU == nil && v.Name == name {
			c := *v
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("variant", name)
}

func (r *VariantRepository) Create(_ context.Context, v *domain.ProductVariant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if v.SKU != nil {
		for _, other := range r.s.variants {
			if other.SKU != nil && *other.SKU == *v.SKU {
				return apperrors.AlreadyExists("variant", "sku", *v.SKU)
			}
		}
	}
	c := *v
	r.s.variants[v.ID] = &c
	return nil
}

func (r *VariantRepository) Update(_ context.Context, v *domain.ProductVariant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.variants[v.ID]; !ok {
		return apperrors.NotFound("variant", v.ID)
	}
	c := *v
	r.s.variants[v.ID] = &c
	return nil
}

func (r *VariantRepository) ListByProduct(_ context.Context, productID string) ([]domain.ProductVariant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.ProductVariant
	for _, v := range r.s.variants {
		if v.ProductID == productID {
			out = append(out, *v)
		}
	}
	slices.SortFunc(out, func(a, b domain.ProductVariant) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// CategoryRepository implements repository.CategoryRepository in memory.
type CategoryRepository struct {
	s *Store
}

var _ repository.CategoryRepository = (*CategoryRepository)(nil)

func (r *CategoryRepository) GetBySlug(_ context.Context, slug string) (*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.categories {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("category", slug)
}

func (r *CategoryRepository) CreateIgnoreConflict(_ context.Context, c *domain.Category) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.categories {
		if other.Slug == c.Slug {
			return false, nil
		}
	}
	cp := *c
	r.s.categories[c.ID] = &cp
	return true, nil
}

func (r *CategoryRepository) ListByProducts(_ context.Context, productIDs []string) (map[string][]domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string][]domain.Category, len(productIDs))
	for _, id := range productIDs {
		if cats := r.s.categoriesOf(id); len(cats) > 0 {
			out[id] = cats
		}
	}
	return out, nil
}

// AttributeRepository implements repository.AttributeRepository in memory.
type AttributeRepository struct {
	s *Store
}

var _ repository.AttributeRepository = (*AttributeRepository)(nil)

func sameScope(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *AttributeRepository) Find(_ context.Context, slug string, categoryID *string) (*domain.Attribute, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.attributes {
		if a.Slug == slug && sameScope(a.CategoryID, categoryID) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("attribute", slug)
}

func (r *AttributeRepository) CreateIgnoreConflict(_ context.Context, a *domain.Attribute) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.attributes {
		if other.Slug == a.Slug && sameScope(other.CategoryID, a.CategoryID) {
			return false, nil
		}
	}
	cp := *a
	r.s.attributes[a.ID] = &cp
	return true, nil
}

// ReviewRepository implements repository.ReviewRepository in memory.
type ReviewRepository struct {
	s *Store
}

var _ repository.ReviewRepository = (*ReviewRepository)(nil)

func (r *ReviewRepository) Ratings(_ context.Context, productIDs []string) (map[string]domain.RatingSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]domain.RatingSummary, len(productIDs))
	for _, id := range productIDs {
		ratings := r.s.reviews[id]
		if len(ratings) == 0 {
			continue
		}
		sum := 0
		for _, v := range ratings {
			sum += v
		}
		out[id] = domain.RatingSummary{Average: float64(sum) / float64(len(ratings)), Count: len(ratings)}
	}
	return out, nil
}
