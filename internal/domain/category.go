package domain

import "time"

// Category is a node in the shallow category tree. Slug is globally unique.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	ParentID  *string   `json:"parentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CategoryRef is the cached form of a category that chunked imports hand
// back to the caller and receive again on the next chunk.
type CategoryRef struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Ref returns the cacheable form of c.
func (c *Category) Ref() CategoryRef {
	return CategoryRef{ID: c.ID, Slug: c.Slug, Name: c.Name}
}

// ProductCategory assigns a product to a category. The first assignment of a
// product is its primary category.
type ProductCategory struct {
	ProductID  string `json:"productId"`
	CategoryID string `json:"categoryId"`
	IsPrimary  bool   `json:"isPrimary"`
}

// Attribute types.
const (
	AttributeText        = "text"
	AttributeSelect      = "select"
	AttributeMultiselect = "multiselect"
	AttributeColor       = "color"
	AttributeSize        = "size"
)

// Attribute is scoped to a category, or global when CategoryID is nil. Slug
// is unique within its scope.
type Attribute struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	CategoryID *string   `json:"categoryId,omitempty"`
	Type       string    `json:"type"`
	Options    []string  `json:"options,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ProductAttributeValue is unique per (ProductID, AttributeID).
type ProductAttributeValue struct {
	ProductID   string `json:"productId"`
	AttributeID string `json:"attributeId"`
	Value       string `json:"value"`
}

// ReplaceSet replaces every child row of ParentID with Items. An empty Items
// clears the relation.
type ReplaceSet[T any] struct {
	ParentID string
	Items    []T
}
