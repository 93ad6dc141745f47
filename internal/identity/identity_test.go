package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/repository/memory"
)

func strPtr(s string) *string { return &s }

// ─── SlugAllocator ────────────────────────────────────────────────────────────

func TestSlugAllocator_Allocate(t *testing.T) {
	a := NewSlugAllocator([]string{"red-shirt", "red-shirt-2"})

	assert.Equal(t, "red-shirt-1", a.Allocate("red-shirt"))
	assert.Equal(t, "red-shirt-3", a.Allocate("red-shirt"))
	assert.Equal(t, "blue", a.Allocate("blue"))
	assert.Equal(t, "blue-1", a.Allocate("blue"))
	assert.Equal(t, "", a.Allocate(""))
}

func TestSlugAllocator_Reserve(t *testing.T) {
	a := NewSlugAllocator(nil)
	a.Reserve("mat")
	assert.Equal(t, "mat-1", a.Allocate("mat"))
}

func TestSlugAllocator_ConcurrentAllocationsAreUnique(t *testing.T) {
	a := NewSlugAllocator([]string{"x"})

	const n = 200
	results := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = a.Allocate("x")
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, s := range results {
		assert.False(t, seen[s], "duplicate slug %s", s)
		seen[s] = true
	}
	assert.False(t, seen["x"])
}

// ─── KeyLock ──────────────────────────────────────────────────────────────────

func TestKeyLock_SerializesSharedKeys(t *testing.T) {
	k := NewKeyLock()
	var active, maxActive int32

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unlock := k.Lock(fmt.Sprintf("slug:%d", i), "sku:shared")
			defer unlock()

			cur := atomic.AddInt32(&active, 1)
			for {
				prev := atomic.LoadInt32(&maxActive)
				if cur <= prev || atomic.CompareAndSwapInt32(&maxActive, prev, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
	assert.Empty(t, k.locks)
}

func TestKeyLock_DuplicateKeysDoNotDeadlock(t *testing.T) {
	k := NewKeyLock()
	unlock := k.Lock("a", "a", "b")
	unlock()
	assert.Empty(t, k.locks)
}

// ─── Resolver ─────────────────────────────────────────────────────────────────

func seedProducts(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.NewStore()
	ctx := context.Background()
	for _, p := range []*domain.Product{
		{ID: "p-sku", Slug: "sku-product", SKU: strPtr("S1"), ExternalID: strPtr("E1")},
		{ID: "p-ext", Slug: "ext-product", ExternalID: strPtr("0")},
		{ID: "p-slug", Slug: "red-shirt"},
		{ID: "p-owned", Slug: "blue-shirt", SKU: strPtr("S9")},
	} {
		require.NoError(t, s.Products().Create(ctx, p))
	}
	return s
}

func TestResolver_Precedence(t *testing.T) {
	r := NewResolver(seedProducts(t).Products())

	tests := []struct {
		name    string
		row     domain.FeedProduct
		wantID  string
		wantHit Match
	}{
		{
			"sku wins over slug and external id",
			domain.FeedProduct{Name: "Red Shirt", SKU: "S1", ExternalID: domain.Some("0")},
			"p-sku", MatchSKU,
		},
		{
			"falsy external id still matches",
			domain.FeedProduct{Name: "Something", ExternalID: domain.Some("0")},
			"p-ext", MatchExternalID,
		},
		{
			"unknown sku falls through to external id",
			domain.FeedProduct{Name: "Other", SKU: "NEW", ExternalID: domain.Some("E1")},
			"p-sku", MatchExternalID,
		},
		{
			"slug as last resort",
			domain.FeedProduct{Name: "Red Shirt"},
			"p-slug", MatchSlug,
		},
		{
			"explicit slug",
			domain.FeedProduct{Name: "Whatever", Slug: "Red Shirt"},
			"p-slug", MatchSlug,
		},
		{
			"slug hit with a contradicting sku is no match",
			domain.FeedProduct{Name: "Blue Shirt", SKU: "S10"},
			"", MatchNone,
		},
		{
			"nothing matches",
			domain.FeedProduct{Name: "Brand New"},
			"", MatchNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, match, err := r.Resolve(context.Background(), &tt.row)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHit, match)
			if tt.wantID == "" {
				assert.Nil(t, p)
				return
			}
			require.NotNil(t, p)
			assert.Equal(t, tt.wantID, p.ID)
		})
	}
}

type failingLookup struct{}

var errDown = errors.New("connection refused")

func (failingLookup) FindBySKU(context.Context, string) (*domain.Product, error) { return nil, errDown }
func (failingLookup) FindByExternalID(context.Context, string) (*domain.Product, error) {
	return nil, errDown
}
func (failingLookup) FindBySlug(context.Context, string) (*domain.Product, error) { return nil, errDown }

func TestResolver_PropagatesStorageErrors(t *testing.T) {
	r := NewResolver(failingLookup{})
	_, _, err := r.Resolve(context.Background(), &domain.FeedProduct{Name: "A", SKU: "S1"})
	assert.ErrorIs(t, err, errDown)
}
