package elasticsearch_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/index"
	esindex "github.com/najeemsuhail/ecommerce-store-sub000/internal/index/elasticsearch"
)

// newTestEngine skips unless ELASTICSEARCH_URL points at a live cluster.
func newTestEngine(t *testing.T) *esindex.Engine {
	t.Helper()

	esURL := os.Getenv("ELASTICSEARCH_URL")
	if esURL == "" {
		t.Skip("ELASTICSEARCH_URL not set, skipping Elasticsearch integration tests")
	}

	indexName := fmt.Sprintf("test_catalog_products_%d", time.Now().UnixNano())
	eng, err := esindex.New(context.Background(), esURL, indexName, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err, "failed to create Elasticsearch engine")

	t.Cleanup(func() {
		_ = eng.DeleteIndex(context.Background())
	})
	return eng
}

func TestIntegration_IndexAndSearch(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	mat := index.Document{ID: uuid.New().String(), Name: "Cork Yoga Mat", Brand: "Acme", Tags: []string{"yoga"}, Categories: []string{"Fitness"}, Price: 2500, CreatedAt: time.Now().UTC()}
	bottle := index.Document{ID: uuid.New().String(), Name: "Water Bottle", Brand: "Zen", Tags: []string{}, Categories: []string{"Outdoor"}, Price: 900, CreatedAt: time.Now().UTC()}
	require.NoError(t, eng.BulkIndex(ctx, []index.Document{mat, bottle}))

	// Bulk writes become visible after the index refresh interval.
	require.Eventually(t, func() bool {
		hits, err := eng.Search(ctx, index.Query{Text: "mat", Size: 10, WithFacets: true})
		return err == nil && hits.Total == 1
	}, 5*time.Second, 100*time.Millisecond)

	hits, err := eng.Search(ctx, index.Query{Text: "mat", Size: 10, WithFacets: true})
	require.NoError(t, err)
	assert.Equal(t, []string{mat.ID}, hits.IDs)
	require.NotNil(t, hits.Facets)
	assert.Equal(t, int64(2500), *hits.Facets.PriceMin)

	require.NoError(t, eng.Delete(ctx, mat.ID))
	assert.NoError(t, eng.Ping(ctx))
}
