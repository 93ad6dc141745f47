package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/najeemsuhail/ecommerce-store-sub000/pkg/errors"
)

func ptr[T any](v T) *T { return &v }

// ─── Decoding ─────────────────────────────────────────────────────────────────

func TestFeedProduct_ExternalIDPresence(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		present bool
		usable  bool
		value   string
	}{
		{"absent", `{"name":"A"}`, false, false, ""},
		{"null", `{"externalId":null}`, false, false, ""},
		{"numeric zero", `{"externalId":0}`, true, true, "0"},
		{"string zero", `{"externalId":"0"}`, true, true, "0"},
		{"number", `{"externalId":12345}`, true, true, "12345"},
		{"empty string", `{"externalId":""}`, true, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var row FeedProduct
			require.NoError(t, json.Unmarshal([]byte(tt.body), &row))
			assert.Equal(t, tt.present, row.ExternalID.Present)
			assert.Equal(t, tt.usable, row.ExternalID.Usable())
			assert.Equal(t, tt.value, row.ExternalID.Value)
		})
	}
}

func TestFeedProduct_ExternalIDRejectsBool(t *testing.T) {
	var row FeedProduct
	assert.Error(t, json.Unmarshal([]byte(`{"externalId":true}`), &row))
}

func TestFeedProduct_CategoryStringOrList(t *testing.T) {
	var single, many, none FeedProduct
	require.NoError(t, json.Unmarshal([]byte(`{"category":"Fitness"}`), &single))
	require.NoError(t, json.Unmarshal([]byte(`{"category":["Fitness","Yoga"]}`), &many))
	require.NoError(t, json.Unmarshal([]byte(`{"name":"x"}`), &none))

	assert.Equal(t, List("Fitness"), single.Category)
	assert.Equal(t, []string{"Fitness", "Yoga"}, many.Category.Values)
	assert.True(t, many.Category.Present)
	assert.False(t, none.Category.Present)
}

// ─── Validation ───────────────────────────────────────────────────────────────

func TestFeedProduct_Validate(t *testing.T) {
	tests := []struct {
		name    string
		row     FeedProduct
		wantErr string
	}{
		{"valid", FeedProduct{Name: "A", Description: "d", Price: ptr(10.0)}, ""},
		{"zero price", FeedProduct{Name: "A", Description: "d", Price: ptr(0.0)}, ""},
		{"missing all", FeedProduct{}, "missing required fields: name, description, price"},
		{"blank name", FeedProduct{Name: "  ", Description: "d", Price: ptr(1.0)}, "missing required fields: name"},
		{"negative price", FeedProduct{Name: "A", Description: "d", Price: ptr(-1.0)}, "price must be greater than or equal to 0"},
		{"max price", FeedProduct{Name: "A", Description: "d", Price: ptr(MaxPrice)}, ""},
		{"price overflows cents", FeedProduct{Name: "A", Description: "d", Price: ptr(1e30)}, "price must not exceed 1000000000000000"},
		{"infinite price", FeedProduct{Name: "A", Description: "d", Price: ptr(math.Inf(1))}, "price must be a finite number"},
		{"nan price", FeedProduct{Name: "A", Description: "d", Price: ptr(math.NaN())}, "price must be a finite number"},
		{
			"compare price overflows cents",
			FeedProduct{Name: "A", Description: "d", Price: ptr(1.0), ComparePrice: ptr(1e20)},
			"comparePrice must not exceed 1000000000000000",
		},
		{
			"variant price overflows cents",
			FeedProduct{Name: "A", Description: "d", Price: ptr(1.0), Variants: []FeedVariant{{Name: "XL", Price: ptr(1e19)}}},
			"variant 0 price must not exceed 1000000000000000",
		},
		{
			"anonymous variant",
			FeedProduct{Name: "A", Description: "d", Price: ptr(1.0), Variants: []FeedVariant{{}}},
			"variant 0 needs a name or a sku",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.row.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestFeedProduct_BaseSlugAndKeys(t *testing.T) {
	row := FeedProduct{Name: "Red  Shirt!", SKU: " S1 ", ExternalID: Some("0")}
	assert.Equal(t, "red-shirt", row.BaseSlug())
	assert.Equal(t, []string{"sku:S1", "ext:0", "slug:red-shirt"}, row.IdentityKeys())

	row.Slug = "Custom Slug"
	assert.Equal(t, "custom-slug", row.BaseSlug())

	assert.Empty(t, (&FeedProduct{Name: "!!!"}).BaseSlug())
}

// ─── Results ──────────────────────────────────────────────────────────────────

func TestImportResult_AddBoundsErrors(t *testing.T) {
	total := &ImportResult{Errors: []RowError{}}
	chunk := &ImportResult{
		Imported: 1,
		Failed:   3,
		Errors:   []RowError{{Index: 0, Name: "a"}, {Index: 1, Name: "b"}, {Index: 2, Name: "c"}},
	}

	total.Add(chunk, 10, 2)

	assert.Equal(t, 1, total.Imported)
	assert.Equal(t, 3, total.Failed)
	require.Len(t, total.Errors, 2)
	assert.Equal(t, 10, total.Errors[0].Index)
	assert.Equal(t, 11, total.Errors[1].Index)
}
