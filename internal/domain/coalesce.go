package domain

import (
	"strings"
	"time"
)

// Coalesce helpers return the incoming value when it was provided and is
// non-empty, otherwise the existing one. Every merged field goes through one
// of them so that null, empty string and zero are treated the same way
// everywhere.

func CoalesceString(incoming, existing string) string {
	if s := strings.TrimSpace(incoming); s != "" {
		return s
	}
	return existing
}

func CoalescePtr[T any](incoming, existing *T) *T {
	if incoming != nil {
		v := *incoming
		return &v
	}
	return existing
}

func CoalesceValue[T any](incoming *T, existing T) T {
	if incoming != nil {
		return *incoming
	}
	return existing
}

// CoalesceSlice keeps existing when incoming is nil. An empty, non-nil
// incoming slice is an explicit clear.
func CoalesceSlice[T any](incoming, existing []T) []T {
	if incoming != nil {
		return incoming
	}
	return existing
}

func CoalesceMap(incoming, existing map[string]any) map[string]any {
	if len(incoming) > 0 {
		return incoming
	}
	return existing
}

func coalesceKey(incoming OptionalString, existing *string) *string {
	if p := incoming.Ptr(); p != nil {
		return p
	}
	return existing
}

func centsPtr(price *float64) *int64 {
	if price == nil {
		return nil
	}
	c := ToCents(*price)
	return &c
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// NewProduct builds a product for an unmatched row with the creation
// defaults applied. id and slug are allocated by the caller.
func NewProduct(id, slug, defaultSource string, row *FeedProduct, now time.Time) *Product {
	sku := row.NormalizedSKU()
	var skuPtr *string
	if sku != "" {
		skuPtr = &sku
	}

	return &Product{
		ID:              id,
		Name:            strings.TrimSpace(row.Name),
		Slug:            slug,
		Description:     strings.TrimSpace(row.Description),
		Price:           ToCents(*row.Price),
		ComparePrice:    centsPtr(row.ComparePrice),
		Stock:           CoalesceValue(row.Stock, 0),
		SKU:             skuPtr,
		ExternalID:      row.ExternalID.Ptr(),
		Brand:           strings.TrimSpace(row.Brand),
		Tags:            nonNil(row.Tags),
		Images:          nonNil(row.Images),
		VideoURL:        strings.TrimSpace(row.VideoURL),
		Weight:          CoalescePtr(row.Weight, nil),
		Dimensions:      row.Dimensions,
		Specifications:  row.Specifications,
		MetaTitle:       strings.TrimSpace(row.MetaTitle),
		MetaDescription: strings.TrimSpace(row.MetaDescription),
		IsDigital:       CoalesceValue(row.IsDigital, false),
		TrackInventory:  CoalesceValue(row.TrackInventory, true),
		IsFeatured:      CoalesceValue(row.IsFeatured, false),
		IsActive:        CoalesceValue(row.IsActive, true),
		Source:          CoalesceString(row.Source, defaultSource),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Merge applies row onto p. Fields the row omits keep their stored value.
// The slug is never changed by a merge.
func (p *Product) Merge(row *FeedProduct, now time.Time) {
	sku := row.NormalizedSKU()
	var skuPtr *string
	if sku != "" {
		skuPtr = &sku
	}

	p.Name = CoalesceString(row.Name, p.Name)
	p.Description = CoalesceString(row.Description, p.Description)
	if row.Price != nil {
		p.Price = ToCents(*row.Price)
	}
	p.ComparePrice = CoalescePtr(centsPtr(row.ComparePrice), p.ComparePrice)
	p.Stock = CoalesceValue(row.Stock, p.Stock)
	p.SKU = CoalescePtr(skuPtr, p.SKU)
	p.ExternalID = coalesceKey(row.ExternalID, p.ExternalID)
	p.Brand = CoalesceString(row.Brand, p.Brand)
	p.Tags = nonNil(CoalesceSlice(row.Tags, p.Tags))
	p.Images = nonNil(CoalesceSlice(row.Images, p.Images))
	p.VideoURL = CoalesceString(row.VideoURL, p.VideoURL)
	p.Weight = CoalescePtr(row.Weight, p.Weight)
	p.Dimensions = CoalesceMap(row.Dimensions, p.Dimensions)
	p.Specifications = CoalesceMap(row.Specifications, p.Specifications)
	p.MetaTitle = CoalesceString(row.MetaTitle, p.MetaTitle)
	p.MetaDescription = CoalesceString(row.MetaDescription, p.MetaDescription)
	p.IsDigital = CoalesceValue(row.IsDigital, p.IsDigital)
	p.TrackInventory = CoalesceValue(row.TrackInventory, p.TrackInventory)
	p.IsFeatured = CoalesceValue(row.IsFeatured, p.IsFeatured)
	p.IsActive = CoalesceValue(row.IsActive, p.IsActive)
	p.Source = CoalesceString(row.Source, p.Source)
	p.UpdatedAt = now
}

// NewVariant builds a variant of productID from row. A variant without its
// own price inherits the product price.
func NewVariant(id, productID string, productPrice int64, row *FeedVariant, now time.Time) *ProductVariant {
	v := &ProductVariant{
		ID:          id,
		ProductID:   productID,
		Name:        strings.TrimSpace(row.Name),
		Price:       productPrice,
		Stock:       CoalesceValue(row.Stock, 0),
		IsAvailable: CoalesceValue(row.Available, true),
		Size:        strings.TrimSpace(row.Size),
		Color:       strings.TrimSpace(row.Color),
		Material:    strings.TrimSpace(row.Material),
		Image:       strings.TrimSpace(row.Image),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if sku := strings.TrimSpace(row.SKU); sku != "" {
		v.SKU = &sku
	}
	if row.Price != nil {
		v.Price = ToCents(*row.Price)
	}
	if v.Name == "" && v.SKU != nil {
		v.Name = *v.SKU
	}
	return v
}

// Merge applies row onto v with the same coalesce rules as Product.Merge.
func (v *ProductVariant) Merge(row *FeedVariant, now time.Time) {
	v.Name = CoalesceString(row.Name, v.Name)
	if row.Price != nil {
		v.Price = ToCents(*row.Price)
	}
	v.Stock = CoalesceValue(row.Stock, v.Stock)
	v.IsAvailable = CoalesceValue(row.Available, v.IsAvailable)
	v.Size = CoalesceString(row.Size, v.Size)
	v.Color = CoalesceString(row.Color, v.Color)
	v.Material = CoalesceString(row.Material, v.Material)
	v.Image = CoalesceString(row.Image, v.Image)
	v.UpdatedAt = now
}
