package domain

import (
	"math"
	"time"
)

// Product is a canonical catalog entry. SKU and ExternalID are unique when
// set; Slug is always set and unique.
type Product struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Slug            string         `json:"slug"`
	Description     string         `json:"description"`
	Price           int64          `json:"price"`
	ComparePrice    *int64         `json:"comparePrice,omitempty"`
	Stock           int            `json:"stock"`
	SKU             *string        `json:"sku,omitempty"`
	ExternalID      *string        `json:"externalId,omitempty"`
	Brand           string         `json:"brand,omitempty"`
	Tags            []string       `json:"tags"`
	Images          []string       `json:"images"`
	VideoURL        string         `json:"videoUrl,omitempty"`
	Weight          *float64       `json:"weight,omitempty"`
	Dimensions      map[string]any `json:"dimensions,omitempty"`
	Specifications  map[string]any `json:"specifications,omitempty"`
	MetaTitle       string         `json:"metaTitle,omitempty"`
	MetaDescription string         `json:"metaDescription,omitempty"`
	IsDigital       bool           `json:"isDigital"`
	TrackInventory  bool           `json:"trackInventory"`
	IsFeatured      bool           `json:"isFeatured"`
	IsActive        bool           `json:"isActive"`
	Source          string         `json:"source"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`

	// Read model, filled in when products are returned from search.
	Categories    []Category `json:"categories,omitempty"`
	AverageRating float64    `json:"averageRating"`
	ReviewCount   int        `json:"reviewCount"`
}

// ProductVariant belongs to exactly one product. SKU is unique across all
// variants when set.
type ProductVariant struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"productId"`
	Name        string    `json:"name"`
	SKU         *string   `json:"sku,omitempty"`
	Price       int64     `json:"price"`
	Stock       int       `json:"stock"`
	IsAvailable bool      `json:"isAvailable"`
	Size        string    `json:"size,omitempty"`
	Color       string    `json:"color,omitempty"`
	Material    string    `json:"material,omitempty"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RatingSummary aggregates the reviews of one product.
type RatingSummary struct {
	Average float64
	Count   int
}

// MaxPrice is the largest accepted price in major units. Its cents value
// fits in an int64 with room to spare.
const MaxPrice = 1e15

// ToCents converts a feed price to minor units. Callers keep price within
// [0, MaxPrice].
func ToCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

// RoundRating rounds an average rating to one decimal place.
func RoundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}

// CategoryNames returns the names of the product's categories.
func (p *Product) CategoryNames() []string {
	names := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		names = append(names, c.Name)
	}
	return names
}
