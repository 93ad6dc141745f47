package repository

import (
	"context"
	"errors"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
)

// ErrSlugTaken is returned by ProductRepository.Create when the slug is
// already used, so the caller can allocate another one.
var ErrSlugTaken = errors.New("product slug already taken")

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	Facets domain.Facets

	// Text is a case-insensitive substring matched against name,
	// description, brand and category names, or an exact tag.
	Text string

	ExcludeIDs      []string
	IncludeInactive bool

	Sort  string
	Skip  int
	Limit int // 0 means no limit
}

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product. A slug collision yields ErrSlugTaken.
	Create(ctx context.Context, product *domain.Product) error

	// Update modifies an existing product.
	Update(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetByIDs loads the given products in no particular order. Unknown ids
	// are skipped.
	GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error)

	FindBySKU(ctx context.Context, sku string) (*domain.Product, error)
	FindByExternalID(ctx context.Context, externalID string) (*domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// SlugsWithPrefix returns every stored slug starting with any of the
	// given prefixes.
	SlugsWithPrefix(ctx context.Context, prefixes []string) ([]string, error)

	// List returns products matching the filter along with the total count.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// Count returns the number of products matching the filter.
	Count(ctx context.Context, filter ProductFilter) (int, error)

	// FilterIDs returns the subset of ids whose products match facets.
	FilterIDs(ctx context.Context, ids []string, facets domain.Facets) ([]string, error)

	// ReplaceCategories deletes the product's category assignments and
	// inserts set.Items in one transaction.
	ReplaceCategories(ctx context.Context, set domain.ReplaceSet[domain.ProductCategory]) error

	// ReplaceAttributeValues deletes the product's attribute values and
	// inserts set.Items in one transaction.
	ReplaceAttributeValues(ctx context.Context, set domain.ReplaceSet[domain.ProductAttributeValue]) error
}

// VariantRepository persists product variants.
type VariantRepository interface {
	// FindBySKU looks a variant up across all products.
	FindBySKU(ctx context.Context, sku string) (*domain.ProductVariant, error)
	// FindByName looks up a SKU-less variant of one product.
	FindByName(ctx context.Context, productID, name string) (*domain.ProductVariant, error)
	Create(ctx context.Context, variant *domain.ProductVariant) error
	Update(ctx context.Context, variant *domain.ProductVariant) error
	ListByProduct(ctx context.Context, productID string) ([]domain.ProductVariant, error)
}

// CategoryRepository persists categories.
type CategoryRepository interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)

	// CreateIgnoreConflict inserts c unless its slug already exists. It
	// reports whether a row was inserted.
	CreateIgnoreConflict(ctx context.Context, c *domain.Category) (bool, error)

	// ListByProducts returns each product's categories, primary first.
	ListByProducts(ctx context.Context, productIDs []string) (map[string][]domain.Category, error)
}

// AttributeRepository persists attributes.
type AttributeRepository interface {
	// Find looks an attribute up by slug within a scope. A nil categoryID
	// is the global scope.
	Find(ctx context.Context, slug string, categoryID *string) (*domain.Attribute, error)

	// CreateIgnoreConflict inserts a unless its (scope, slug) already exists.
	CreateIgnoreConflict(ctx context.Context, a *domain.Attribute) (bool, error)
}

// ReviewRepository exposes the review aggregates search needs.
type ReviewRepository interface {
	// Ratings returns the rating summary of every given product that has at
	// least one review.
	Ratings(ctx context.Context, productIDs []string) (map[string]domain.RatingSummary, error)
}
