package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/repository"
	apperrors "github.com/najeemsuhail/ecommerce-store-sub000/pkg/errors"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/pagination"
)

// ProductRepository implements repository.ProductRepository in memory.
type ProductRepository struct {
	s *Store
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

func (r *ProductRepository) Create(_ context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[p.ID]; ok {
		return apperrors.AlreadyExists("product", "id", p.ID)
	}
	if err := r.checkUnique(p); err != nil {
		return err
	}
	c := clone(p)
	r.s.products[p.ID] = &c
	return nil
}

func (r *ProductRepository) Update(_ context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[p.ID]; !ok {
		return apperrors.NotFound("product", p.ID)
	}
	if err := r.checkUnique(p); err != nil {
		return err
	}
	c := clone(p)
	r.s.products[p.ID] = &c
	return nil
}

func (r *ProductRepository) checkUnique(p *domain.Product) error {
	for _, other := range r.s.products {
		if other.ID == p.ID {
			continue
		}
		if other.Slug == p.Slug {
			return fmt.Errorf("%w: %s", repository.ErrSlugTaken, p.Slug)
		}
		if p.SKU != nil && other.SKU != nil && *p.SKU == *other.SKU {
			return apperrors.AlreadyExists("product", "sku", *p.SKU)
		}
		if p.ExternalID != nil && other.ExternalID != nil && *p.ExternalID == *other.ExternalID {
			return apperrors.AlreadyExists("product", "externalId", *p.ExternalID)
		}
	}
	return nil
}

func (r *ProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	c := clone(p)
	return &c, nil
}

func (r *ProductRepository) GetByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, clone(p))
		}
	}
	return out, nil
}

func (r *ProductRepository) find(kind, key string, match func(*domain.Product) bool) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.products {
		if match(p) {
			c := clone(p)
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("product "+kind, key)
}

func (r *ProductRepository) FindBySKU(_ context.Context, sku string) (*domain.Product, error) {
	return r.find("sku", sku, func(p *domain.Product) bool { return p.SKU != nil && *p.SKU == sku })
}

func (r *ProductRepository) FindByExternalID(_ context.Context, externalID string) (*domain.Product, error) {
	return r.find("externalId", externalID, func(p *domain.Product) bool {
		return p.ExternalID != nil && *p.ExternalID == externalID
	})
}

func (r *ProductRepository) FindBySlug(_ context.Context, slug string) (*domain.Product, error) {
	return r.find("slug", slug, func(p *domain.Product) bool { return p.Slug == slug })
}

func (r *ProductRepository) SlugsWithPrefix(_ context.Context, prefixes []string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []string
	for _, p := range r.s.products {
		if slices.ContainsFunc(prefixes, func(prefix string) bool { return strings.HasPrefix(p.Slug, prefix) }) {
			out = append(out, p.Slug)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (r *ProductRepository) filtered(f repository.ProductFilter) []*domain.Product {
	var matched []*domain.Product
	for _, p := range r.s.products {
		if r.s.matches(p, f) {
			matched = append(matched, p)
		}
	}
	r.s.sortProducts(matched, f.Sort)
	return matched
}

func (r *ProductRepository) List(_ context.Context, f repository.ProductFilter) ([]domain.Product, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := r.filtered(f)
	window := pagination.Window(matched, pagination.Params{Skip: f.Skip, Limit: f.Limit})

	out := make([]domain.Product, 0, len(window))
	for _, p := range window {
		out = append(out, clone(p))
	}
	return out, len(matched), nil
}

func (r *ProductRepository) Count(_ context.Context, f repository.ProductFilter) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.filtered(f)), nil
}

func (r *ProductRepository) FilterIDs(_ context.Context, ids []string, facets domain.Facets) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		p, ok := r.s.products[id]
		if !ok || !p.IsActive || !r.s.matchFacets(p, facets) {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (r *ProductRepository) ReplaceCategories(_ context.Context, set domain.ReplaceSet[domain.ProductCategory]) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, pc := range set.Items {
		if _, ok := r.s.categories[pc.CategoryID]; !ok {
			return apperrors.NotFound("category", pc.CategoryID)
		}
	}
	r.s.productCategories[set.ParentID] = dedupe(set.Items, func(pc domain.ProductCategory) string { return pc.CategoryID })
	return nil
}

func (r *ProductRepository) ReplaceAttributeValues(_ context.Context, set domain.ReplaceSet[domain.ProductAttributeValue]) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, v := range set.Items {
		if _, ok := r.s.attributes[v.AttributeID]; !ok {
			return apperrors.NotFound("attribute", v.AttributeID)
		}
	}
	r.s.attributeValues[set.ParentID] = dedupe(set.Items, func(v domain.ProductAttributeValue) string { return v.AttributeID })
	return nil
}

// dedupe keeps the first item per key, like an insert that skips duplicates.
func dedupe[T any](items []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := key(it)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}
