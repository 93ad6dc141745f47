package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/repository"
	apperrors "github.com/najeemsuhail/ecommerce-store-sub000/pkg/errors"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/slug"
)

// CategoryCache memoizes get-or-create of categories by slug for one import
// call. Chunked imports seed it from the caller and hand it back afterwards.
// The mutex is held across the storage round trip so two rows never create
// the same category.
type CategoryCache struct {
	mu    sync.Mutex
	repo  repository.CategoryRepository
	refs  map[string]domain.CategoryRef
	order []string
}

// NewCategoryCache creates a cache seeded with refs. Refs without an id or
// slug are ignored.
func NewCategoryCache(repo repository.CategoryRepository, refs []domain.CategoryRef) *CategoryCache {
	c := &CategoryCache{
		repo: repo,
		refs: make(map[string]domain.CategoryRef, len(refs)),
	}
	for _, ref := range refs {
		if ref.ID == "" || ref.Slug == "" {
			continue
		}
		c.put(ref)
	}
	return c
}

func (c *CategoryCache) put(ref domain.CategoryRef) {
	if _, ok := c.refs[ref.Slug]; !ok {
		c.order = append(c.order, ref.Slug)
	}
	c.refs[ref.Slug] = ref
}

// Refs returns the cached categories in first-seen order.
func (c *CategoryCache) Refs() []domain.CategoryRef {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.CategoryRef, 0, len(c.order))
	for _, s := range c.order {
		out = append(out, c.refs[s])
	}
	return out
}

// Resolve returns the category named name, creating it when missing.
func (c *CategoryCache) Resolve(ctx context.Context, name string) (domain.CategoryRef, error) {
	name = strings.TrimSpace(name)
	key := slug.Generate(name)
	if key == "" {
		return domain.CategoryRef{}, apperrors.InvalidInput(fmt.Sprintf("category %q does not yield a slug", name))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ref, ok := c.refs[key]; ok {
		return ref, nil
	}

	existing, err := c.repo.GetBySlug(ctx, key)
	if err == nil {
		c.put(existing.Ref())
		return existing.Ref(), nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return domain.CategoryRef{}, fmt.Errorf("get category %q: %w", key, err)
	}

	category := &domain.Category{
		ID:        uuid.New().String(),
		Name:      name,
		Slug:      key,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := c.repo.CreateIgnoreConflict(ctx, category); err != nil {
		return domain.CategoryRef{}, fmt.Errorf("create category %q: %w", key, err)
	}

	// Another writer may have won the insert; read back whichever row exists.
	stored, err := c.repo.GetBySlug(ctx, key)
	if err != nil {
		return domain.CategoryRef{}, fmt.Errorf("reread category %q: %w", key, err)
	}
	c.put(stored.Ref())
	return stored.Ref(), nil
}

// AttributeCache memoizes attribute get-or-create keyed by scope and slug.
type AttributeCache struct {
	mu    sync.Mutex
	repo  repository.AttributeRepository
	attrs map[string]*domain.Attribute
}

// NewAttributeCache creates an empty cache.
func NewAttributeCache(repo repository.AttributeRepository) *AttributeCache {
	return &AttributeCache{
		repo:  repo,
		attrs: make(map[string]*domain.Attribute),
	}
}

func attributeKey(categoryID *string, attrSlug string) string {
	if categoryID == nil {
		return "global:" + attrSlug
	}
	return *categoryID + ":" + attrSlug
}

// Resolve returns the attribute named name. A global attribute wins; else the
// attribute scoped to categoryID is used, created there when missing. A nil
// categoryID creates global attributes.
func (c *AttributeCache) Resolve(ctx context.Context, name string, categoryID *string, values []string) (*domain.Attribute, error) {
	name = strings.TrimSpace(name)
	attrSlug := slug.Generate(name)
	if attrSlug == "" {
		return nil, apperrors.InvalidInput(fmt.Sprintf("attribute %q does not yield a slug", name))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.attrs[attributeKey(nil, attrSlug)]; ok {
		return a, nil
	}
	if categoryID != nil {
		if a, ok := c.attrs[attributeKey(categoryID, attrSlug)]; ok {
			return a, nil
		}
	}

	a, err := c.find(ctx, attrSlug, nil)
	if err != nil || a != nil {
		return a, err
	}
	if categoryID != nil {
		if a, err = c.find(ctx, attrSlug, categoryID); err != nil || a != nil {
			return a, err
		}
	}

	attr := &domain.Attribute{
		ID:         uuid.New().String(),
		Name:       name,
		Slug:       attrSlug,
		CategoryID: categoryID,
		Type:       domain.AttributeText,
		CreatedAt:  time.Now().UTC(),
	}
	if len(values) > 1 {
		attr.Type = domain.AttributeMultiselect
		attr.Options = values
	}
	if _, err := c.repo.CreateIgnoreConflict(ctx, attr); err != nil {
		return nil, fmt.Errorf("create attribute %q: %w", attrSlug, err)
	}

	a, err = c.find(ctx, attrSlug, categoryID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("attribute %q vanished after create", attrSlug)
	}
	return a, nil
}

// find looks up and caches an attribute. A miss returns nil, nil.
func (c *AttributeCache) find(ctx context.Context, attrSlug string, categoryID *string) (*domain.Attribute, error) {
	a, err := c.repo.Find(ctx, attrSlug, categoryID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attribute %q: %w", attrSlug, err)
	}
	c.attrs[attributeKey(a.CategoryID, attrSlug)] = a
	return a, nil
}
