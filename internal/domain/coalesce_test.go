package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewProduct_Defaults(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	row := &FeedProduct{Name: " A ", Description: "d", Price: ptr(12.34)}

	p := NewProduct("id-1", "a", "feed", row, now)

	assert.Equal(t, "A", p.Name)
	assert.Equal(t, int64(1234), p.Price)
	assert.Equal(t, 0, p.Stock)
	assert.Equal(t, []string{}, p.Tags)
	assert.Equal(t, []string{}, p.Images)
	assert.False(t, p.IsDigital)
	assert.True(t, p.TrackInventory)
	assert.False(t, p.IsFeatured)
	assert.True(t, p.IsActive)
	assert.Equal(t, "feed", p.Source)
	assert.Nil(t, p.SKU)
	assert.Nil(t, p.ExternalID)
	assert.Equal(t, now, p.CreatedAt)
}

func TestProduct_MergeCoalesces(t *testing.T) {
	now := time.Now()
	existing := NewProduct("id-1", "a", "feed", &FeedProduct{
		Name:        "A",
		Description: "old",
		Price:       ptr(10.0),
		Brand:       "Acme",
		Tags:        []string{"x"},
		Stock:       ptr(5),
		ExternalID:  Some("0"),
		IsFeatured:  ptr(true),
	}, now)

	existing.Merge(&FeedProduct{
		Name:        "A2",
		Description: "",
		Price:       ptr(12.0),
		Source:      "supplier-b",
	}, now.Add(time.Minute))

	assert.Equal(t, "A2", existing.Name)
	assert.Equal(t, "old", existing.Description)
	assert.Equal(t, int64(1200), existing.Price)
	assert.Equal(t, "Acme", existing.Brand)
	assert.Equal(t, []string{"x"}, existing.Tags)
	assert.Equal(t, 5, existing.Stock)
	assert.True(t, existing.IsFeatured)
	assert.Equal(t, "supplier-b", existing.Source)
	assert.Equal(t, "a", existing.Slug)
	if assert.NotNil(t, existing.ExternalID) {
		assert.Equal(t, "0", *existing.ExternalID)
	}
}

func TestProduct_MergeExplicitValues(t *testing.T) {
	now := time.Now()
	p := NewProduct("id-1", "a", "feed", &FeedProduct{
		Name: "A", Description: "d", Price: ptr(1.0), Tags: []string{"x"}, Stock: ptr(3),
	}, now)

	p.Merge(&FeedProduct{Tags: []string{}, Stock: ptr(0), IsActive: ptr(false)}, now)

	assert.Equal(t, []string{}, p.Tags)
	assert.Equal(t, 0, p.Stock)
	assert.False(t, p.IsActive)
}

func TestVariant_NewAndMerge(t *testing.T) {
	now := time.Now()
	v := NewVariant("v1", "p1", 999, &FeedVariant{SKU: "S1-RED", Color: "red"}, now)

	assert.Equal(t, "S1-RED", v.Name)
	assert.Equal(t, int64(999), v.Price)
	assert.True(t, v.IsAvailable)

	v.Merge(&FeedVariant{Price: ptr(5.5), Available: ptr(false)}, now)
	assert.Equal(t, int64(550), v.Price)
	assert.False(t, v.IsAvailable)
	assert.Equal(t, "red", v.Color)
}

func TestRoundRating(t *testing.T) {
	assert.Equal(t, 4.3, RoundRating(13.0/3.0))
	assert.Equal(t, 4.5, RoundRating(4.45))
	assert.Equal(t, 0.0, RoundRating(0))
}
