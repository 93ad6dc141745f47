// Package memory is an in-process implementation of the repository
// interfaces. It backs STORAGE_DRIVER=memory and the engine tests.
package memory

import (
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/repository"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/slug"
)

// Store holds every table behind one RWMutex.
type Store struct {
	mu sync.RWMutex

	products   map[string]*domain.Product
	variants   map[string]*domain.ProductVariant
	categories map[string]*domain.Category
	attributes map[string]*domain.Attribute

	productCategories map[string][]domain.ProductCategory
	attributeValues   map[string][]domain.ProductAttributeValue
	reviews           map[string][]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		products:          make(map[string]*domain.Product),
		variants:          make(map[string]*domain.ProductVariant),
		categories:        make(map[string]*domain.Category),
		attributes:        make(map[string]*domain.Attribute),
		productCategories: make(map[string][]domain.ProductCategory),
		attributeValues:   make(map[string][]domain.ProductAttributeValue),
		reviews:           make(map[string][]int),
	}
}

// Products returns the product repository view of s.
func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }

// Variants returns the variant repository view of s.
func (s *Store) Variants() *VariantRepository { return &VariantRepository{s: s} }

// Categories returns the category repository view of s.
func (s *Store) Categories() *CategoryRepository { return &CategoryRepository{s: s} }

// Attributes returns the attribute repository view of s.
func (s *Store) Attributes() *AttributeRepository { return &AttributeRepository{s: s} }

// Reviews returns the review repository view of s.
func (s *Store) Reviews() *ReviewRepository { return &ReviewRepository{s: s} }

// AddReview records a rating for productID.
func (s *Store) AddReview(productID string, rating int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[productID] = append(s.reviews[productID], rating)
}

// AttributeValues returns a copy of the attribute values stored for a product.
func (s *Store) AttributeValues(productID string) []domain.ProductAttributeValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.attributeValues[productID])
}

// ─── filtering (callers hold s.mu) ────────────────────────────────────────────

func (s *Store) categoriesOf(productID string) []domain.Category {
	assigned := s.productCategories[productID]
	out := make([]domain.Category, 0, len(assigned))
	for _, pc := range assigned {
		if c, ok := s.categories[pc.CategoryID]; ok {
			out = append(out, *c)
		}
	}
	return out
}

func (s *Store) matches(p *domain.Product, f repository.ProductFilter) bool {
	if !f.IncludeInactive && !p.IsActive {
		return false
	}
	if slices.Contains(f.ExcludeIDs, p.ID) {
		return false
	}
	if !s.matchFacets(p, f.Facets) {
		return false
	}
	return f.Text == "" || s.matchText(p, f.Text)
}

func (s *Store) matchFacets(p *domain.Product, f domain.Facets) bool {
	if len(f.Categories) > 0 {
		cats := s.categoriesOf(p.ID)
		if !slices.ContainsFunc(cats, func(c domain.Category) bool {
			return slices.ContainsFunc(f.Categories, func(want string) bool {
				return c.Slug == want || strings.EqualFold(c.Name, want)
			})
		}) {
			return false
		}
	}
	if len(f.Brands) > 0 && !containsFold(f.Brands, p.Brand) {
		return false
	}
	if len(f.Tags) > 0 && !slices.ContainsFunc(p.Tags, func(tag string) bool { return containsFold(f.Tags, tag) }) {
		return false
	}
	if f.IsDigital != nil && p.IsDigital != *f.IsDigital {
		return false
	}
	if f.IsFeatured != nil && p.IsFeatured != *f.IsFeatured {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	for _, af := range f.Attributes {
		if !s.hasAttributeValue(p.ID, af) {
			return false
		}
	}
	return true
}

func (s *Store) hasAttributeValue(productID string, af domain.AttributeFilter) bool {
	want := slug.Generate(af.Attribute)
	for _, v := range s.attributeValues[productID] {
		a, ok := s.attributes[v.AttributeID]
		if !ok || (a.Slug != want && !strings.EqualFold(a.Name, af.Attribute)) {
			continue
		}
		for _, part := range strings.Split(v.Value, ", ") {
			if strings.EqualFold(part, af.Value) {
				return true
			}
		}
	}
	return false
}

func (s *Store) matchText(p *domain.Product, text string) bool {
	q := strings.ToLower(text)
	if strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Description), q) ||
		strings.Contains(strings.ToLower(p.Brand), q) {
		return true
	}
	if containsFold(p.Tags, text) {
		return true
	}
	for _, c := range s.categoriesOf(p.ID) {
		if strings.Contains(strings.ToLower(c.Name), q) {
			return true
		}
	}
	return false
}

func (s *Store) sortProducts(products []*domain.Product, sortBy string) {
	newest := func(a, b *domain.Product) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	}

	var less func(a, b *domain.Product) bool
	switch sortBy {
	case domain.SortPriceLow:
		less = func(a, b *domain.Product) bool {
			if a.Price != b.Price {
				return a.Price < b.Price
			}
			return newest(a, b)
		}
	case domain.SortPriceHigh:
		less = func(a, b *domain.Product) bool {
			if a.Price != b.Price {
				return a.Price > b.Price
			}
			return newest(a, b)
		}
	case domain.SortPopular:
		less = func(a, b *domain.Product) bool {
			ra, rb := len(s.reviews[a.ID]), len(s.reviews[b.ID])
			if ra != rb {
				return ra > rb
			}
			return newest(a, b)
		}
	default:
		less = newest
	}

	sort.SliceStable(products, func(i, j int) bool { return less(products[i], products[j]) })
}

func containsFold(values []string, v string) bool {
	return slices.ContainsFunc(values, func(s string) bool { return strings.EqualFold(s, v) })
}

func clone(p *domain.Product) domain.Product {
	c := *p
	c.Tags = slices.Clone(p.Tags)
	c.Images = slices.Clone(p.Images)
	c.Categories = nil
	return c
}
