package identity

import (
	"context"
	"errors"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	apperrors "github.com/najeemsuhail/ecommerce-store-sub000/pkg/errors"
)

// Match names the identity key a row resolved through.
type Match string

const (
	MatchNone       Match = ""
	MatchSKU        Match = "sku"
	MatchExternalID Match = "externalId"
	MatchSlug       Match = "slug"
)

// Lookup is the part of the product repository the resolver needs.
type Lookup interface {
	FindBySKU(ctx context.Context, sku string) (*domain.Product, error)
	FindByExternalID(ctx context.Context, externalID string) (*domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Product, error)
}

// Resolver maps a feed row to at most one stored product.
type Resolver struct {
	lookup Lookup
}

// NewResolver creates a Resolver backed by lookup.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve tries SKU, then external id, then base slug, stopping at the first
// hit. A slug hit is rejected when the stored product carries a different
// SKU or external id than the row, since those keys outrank the slug. A nil
// product with MatchNone means the row should be created.
func (r *Resolver) Resolve(ctx context.Context, row *domain.FeedProduct) (*domain.Product, Match, error) {
	if sku := row.NormalizedSKU(); sku != "" {
		p, err := found(r.lookup.FindBySKU(ctx, sku))
		if err != nil || p != nil {
			return p, MatchSKU, err
		}
	}

	if row.ExternalID.Usable() {
		p, err := found(r.lookup.FindByExternalID(ctx, row.ExternalID.Value))
		if err != nil || p != nil {
			return p, MatchExternalID, err
		}
	}

	if base := row.BaseSlug(); base != "" {
		p, err := found(r.lookup.FindBySlug(ctx, base))
		if err != nil {
			return nil, MatchSlug, err
		}
		if p != nil && !contradicts(row, p) {
			return p, MatchSlug, nil
		}
	}

	return nil, MatchNone, nil
}

func found(p *domain.Product, err error) (*domain.Product, error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func contradicts(row *domain.FeedProduct, p *domain.Product) bool {
	if sku := row.NormalizedSKU(); sku != "" && p.SKU != nil && *p.SKU != sku {
		return true
	}
	if row.ExternalID.Usable() && p.ExternalID != nil && *p.ExternalID != row.ExternalID.Value {
		return true
	}
	return false
}
