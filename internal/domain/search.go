package domain

// Sort options for product listings.
const (
	SortNewest    = "newest"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortPopular   = "popular"
	SortRating    = "rating"
)

// ValidSortOptions returns the list of valid sort options.
func ValidSortOptions() []string {
	return []string{SortNewest, SortPriceLow, SortPriceHigh, SortPopular, SortRating}
}

// IsValidSort checks whether the given sort string is a valid sort option.
func IsValidSort(sort string) bool {
	for _, s := range ValidSortOptions() {
		if s == sort {
			return true
		}
	}
	return false
}

// AttributeFilter requires a product to carry Value for the attribute whose
// name or slug is Attribute.
type AttributeFilter struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

// Facets are the structured filters of a search. Categories match by slug or
// case-insensitive name; multiple values within one facet are OR'd, facets
// are AND'd.
type Facets struct {
	Categories []string          `json:"categories,omitempty"`
	Brands     []string          `json:"brands,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	IsDigital  *bool             `json:"isDigital,omitempty"`
	IsFeatured *bool             `json:"isFeatured,omitempty"`
	MinPrice   *int64            `json:"minPrice,omitempty"`
	MaxPrice   *int64            `json:"maxPrice,omitempty"`
	Attributes []AttributeFilter `json:"attributes,omitempty"`
}

// Active reports whether any facet filter is set.
func (f Facets) Active() bool {
	return len(f.Categories) > 0 || len(f.Brands) > 0 || len(f.Tags) > 0 ||
		f.IsDigital != nil || f.IsFeatured != nil ||
		f.MinPrice != nil || f.MaxPrice != nil ||
		len(f.Attributes) > 0
}

// SearchQuery holds all parameters for a search request.
type SearchQuery struct {
	Text   string `json:"text"`
	Facets Facets `json:"facets"`
	Sort   string `json:"sort"`
	Skip   int    `json:"skip"`
	Limit  int    `json:"limit"`
}

// FacetCount is one bucket of a facet aggregation.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// FacetSummary carries aggregations computed by the search index.
type FacetSummary struct {
	Brands     []FacetCount `json:"brands"`
	Categories []FacetCount `json:"categories"`
	PriceMin   *int64       `json:"priceMin"`
	PriceMax   *int64       `json:"priceMax"`
}

// SearchResult is one page of resolved products. Facets is nil when the
// result did not come from the index.
type SearchResult struct {
	Products []Product     `json:"products"`
	Count    int           `json:"count"`
	Total    int           `json:"total"`
	Facets   *FacetSummary `json:"facets"`
}
