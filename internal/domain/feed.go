package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	apperrors "github.com/najeemsuhail/ecommerce-store-sub000/pkg/errors"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/slug"
)

// OptionalString records whether a field was provided at all, so that a
// provided-but-falsy value such as "0" is never mistaken for an absent one.
// It decodes from a JSON string or number.
type OptionalString struct {
	Value   string
	Present bool
}

// Some returns a present OptionalString.
func Some(v string) OptionalString {
	return OptionalString{Value: v, Present: true}
}

// Usable reports whether the value can act as an identity key.
func (o OptionalString) Usable() bool {
	return o.Present && o.Value != ""
}

// Ptr returns the value, or nil when it is not usable.
func (o OptionalString) Ptr() *string {
	if !o.Usable() {
		return nil
	}
	v := o.Value
	return &v
}

func (o *OptionalString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*o = OptionalString{}
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*o = Some(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("must be a string or a number: %w", err)
	}
	*o = Some(n.String())
	return nil
}

func (o OptionalString) MarshalJSON() ([]byte, error) {
	if !o.Present {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// StringList decodes from either a single string or an array of strings and
// remembers whether the field was provided.
type StringList struct {
	Values  []string
	Present bool
}

// List returns a present StringList.
func List(values ...string) StringList {
	return StringList{Values: values, Present: true}
}

func (l *StringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = StringList{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = List(s)
		return nil
	}
	var values []string
	if err := json.Unmarshal(b, &values); err != nil {
		return fmt.Errorf("must be a string or an array of strings: %w", err)
	}
	*l = StringList{Values: values, Present: true}
	return nil
}

func (l StringList) MarshalJSON() ([]byte, error) {
	if !l.Present {
		return []byte("null"), nil
	}
	if l.Values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.Values)
}

// FeedProduct is one externally sourced product row. Pointer and Optional
// fields distinguish "not provided" from zero values so updates can coalesce.
type FeedProduct struct {
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	Price           *float64            `json:"price"`
	ComparePrice    *float64            `json:"comparePrice,omitempty"`
	SKU             string              `json:"sku,omitempty"`
	ExternalID      OptionalString      `json:"externalId"`
	Slug            string              `json:"slug,omitempty"`
	Stock           *int                `json:"stock,omitempty"`
	Brand           string              `json:"brand,omitempty"`
	Tags            []string            `json:"tags,omitempty"`
	Category        StringList          `json:"category"`
	Images          []string            `json:"images,omitempty"`
	VideoURL        string              `json:"videoUrl,omitempty"`
	Weight          *float64            `json:"weight,omitempty"`
	Dimensions      map[string]any      `json:"dimensions,omitempty"`
	Specifications  map[string]any      `json:"specifications,omitempty"`
	MetaTitle       string              `json:"metaTitle,omitempty"`
	MetaDescription string              `json:"metaDescription,omitempty"`
	IsDigital       *bool               `json:"isDigital,omitempty"`
	TrackInventory  *bool               `json:"trackInventory,omitempty"`
	IsFeatured      *bool               `json:"isFeatured,omitempty"`
	IsActive        *bool               `json:"isActive,omitempty"`
	Source          string              `json:"source,omitempty"`
	Variants        []FeedVariant       `json:"variants,omitempty"`
	Attributes      map[string][]string `json:"attributes,omitempty"`
}

// FeedVariant is a variant row nested in a FeedProduct.
type FeedVariant struct {
	Name      string   `json:"name"`
	SKU       string   `json:"sku,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	Stock     *int     `json:"stock,omitempty"`
	Available *bool    `json:"available,omitempty"`
	Size      string   `json:"size,omitempty"`
	Color     string   `json:"color,omitempty"`
	Material  string   `json:"material,omitempty"`
	Image     string   `json:"image,omitempty"`
}

// Validate checks the fields every row must carry.
func (f *FeedProduct) Validate() error {
	var missing []string
	if strings.TrimSpace(f.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(f.Description) == "" {
		missing = append(missing, "description")
	}
	if f.Price == nil {
		missing = append(missing, "price")
	}
	if len(missing) > 0 {
		return apperrors.InvalidInput("missing required fields: " + strings.Join(missing, ", "))
	}
	if err := checkPrice("price", *f.Price); err != nil {
		return err
	}
	if f.ComparePrice != nil {
		if err := checkPrice("comparePrice", *f.ComparePrice); err != nil {
			return err
		}
	}
	for i, v := range f.Variants {
		if strings.TrimSpace(v.Name) == "" && strings.TrimSpace(v.SKU) == "" {
			return apperrors.InvalidInput(fmt.Sprintf("variant %d needs a name or a sku", i))
		}
		if v.Price != nil {
			if err := checkPrice(fmt.Sprintf("variant %d price", i), *v.Price); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkPrice(field string, v float64) error {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return apperrors.InvalidInput(field + " must be a finite number")
	case v < 0:
		return apperrors.InvalidInput(field + " must be greater than or equal to 0")
	case v > MaxPrice:
		return apperrors.InvalidInput(fmt.Sprintf("%s must not exceed %.0f", field, MaxPrice))
	}
	return nil
}

// BaseSlug is the normalized, unsuffixed slug derived from the explicit slug
// when given, else from the name.
func (f *FeedProduct) BaseSlug() string {
	if s := slug.Generate(f.Slug); s != "" {
		return s
	}
	return slug.Generate(f.Name)
}

// NormalizedSKU is the trimmed SKU, empty when absent.
func (f *FeedProduct) NormalizedSKU() string {
	return strings.TrimSpace(f.SKU)
}

// IdentityKeys lists the keys this row can resolve through, namespaced so
// they can be used as lock keys.
func (f *FeedProduct) IdentityKeys() []string {
	var keys []string
	if sku := f.NormalizedSKU(); sku != "" {
		keys = append(keys, "sku:"+sku)
	}
	if f.ExternalID.Usable() {
		keys = append(keys, "ext:"+f.ExternalID.Value)
	}
	if s := f.BaseSlug(); s != "" {
		keys = append(keys, "slug:"+s)
	}
	return keys
}
