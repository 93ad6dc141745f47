package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
)

type stubIndex struct {
	search  func(ctx context.Context, q Query) (*Hits, error)
	indexed []string
	deleted []string
	pingErr error
}

func (s *stubIndex) Search(ctx context.Context, q Query) (*Hits, error) {
	return s.search(ctx, q)
}

func (s *stubIndex) Index(_ context.Context, doc Document) error {
	s.indexed = append(s.indexed, doc.ID)
	return nil
}

func (s *stubIndex) BulkIndex(_ context.Context, docs []Document) error {
	for _, doc := range docs {
		s.indexed = append(s.indexed, doc.ID)
	}
	return nil
}

func (s *stubIndex) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubIndex) Ping(context.Context) error { return s.pingErr }

var _ Index = (*Bounded)(nil)

func TestBounded_WrapsFailures(t *testing.T) {
	b := NewBounded(&stubIndex{search: func(context.Context, Query) (*Hits, error) {
		return nil, errors.New("connection refused")
	}}, time.Second)

	_, err := b.Search(context.Background(), Query{Text: "mat"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDegraded)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestBounded_TimesOut(t *testing.T) {
	b := NewBounded(&stubIndex{search: func(ctx context.Context, _ Query) (*Hits, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}, 10*time.Millisecond)

	start := time.Now()
	_, err := b.Search(context.Background(), Query{Text: "mat"})
	assert.ErrorIs(t, err, ErrDegraded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBounded_PassesHits(t *testing.T) {
	b := NewBounded(&stubIndex{search: func(_ context.Context, q Query) (*Hits, error) {
		return &Hits{IDs: []string{"a"}, Total: 1}, nil
	}}, 0)

	hits, err := b.Search(context.Background(), Query{Text: "mat"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, hits.IDs)
}

func TestBounded_ForwardsWrites(t *testing.T) {
	stub := &stubIndex{pingErr: errors.New("cluster red")}
	var idx Index = NewBounded(stub, time.Second)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, Document{ID: "a"}))
	require.NoError(t, idx.BulkIndex(ctx, []Document{{ID: "b"}, {ID: "c"}}))
	require.NoError(t, idx.Delete(ctx, "d"))

	assert.Equal(t, []string{"a", "b", "c"}, stub.indexed)
	assert.Equal(t, []string{"d"}, stub.deleted)
	assert.EqualError(t, idx.Ping(ctx), "cluster red")
}

func TestNewDocument(t *testing.T) {
	p := &domain.Product{
		ID:    "p1",
		Name:  "Yoga Mat",
		Price: 2500,
		Categories: []domain.Category{
			{ID: "c1", Name: "Fitness", Slug: "fitness"},
			{ID: "c2", Name: "Yoga", Slug: "yoga"},
		},
	}

	doc := NewDocument(p)
	assert.Equal(t, []string{"Fitness", "Yoga"}, doc.Categories)
	assert.Equal(t, []string{"fitness", "yoga"}, doc.CategorySlugs)
	assert.Equal(t, []string{}, doc.Tags)
	assert.Equal(t, int64(2500), doc.Price)
}
