package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/index"
)

func deactivate(t *testing.T, f *catalogFixture, id string) {
	t.Helper()
	ctx := context.Background()
	p, err := f.store.Products().GetByID(ctx, id)
	require.NoError(t, err)
	p.IsActive = false
	require.NoError(t, f.store.Products().Update(ctx, p))
}

func searchIDs(t *testing.T, idx index.Index, text string) []string {
	t.Helper()
	hits, err := idx.Search(context.Background(), index.Query{Text: text})
	require.NoError(t, err)
	return hits.IDs
}

// --- IndexProduct ---

func TestIndexer_IndexProduct(t *testing.T) {
	f := newCatalogFixture(t)
	f.add(t, "p-1", "Yoga Mat", "Acme", 2500, time.Hour, "Fitness")

	require.NoError(t, f.indexer.IndexProduct(context.Background(), "p-1"))

	assert.Equal(t, 1, f.engine.Len())
	// Category names are searchable.
	assert.Equal(t, []string{"p-1"}, searchIDs(t, f.engine, "fitness"))
}

func TestIndexer_IndexProduct_RemovesInactiveAndMissing(t *testing.T) {
	f := newCatalogFixture(t)
	f.add(t, "p-1", "Yoga Mat", "Acme", 2500, time.Hour)
	f.indexAll(t, "p-1")
	require.Equal(t, 1, f.engine.Len())

	deactivate(t, f, "p-1")
	require.NoError(t, f.indexer.IndexProduct(context.Background(), "p-1"))
	assert.Equal(t, 0, f.engine.Len())

	assert.NoError(t, f.indexer.IndexProduct(context.Background(), "does-not-exist"))
}

func TestIndexer_IndexProduct_IndexFailure(t *testing.T) {
	f := newCatalogFixture(t)
	f.add(t, "p-1", "Yoga Mat", "Acme", 2500, time.Hour)
	indexer := NewIndexer(newRepos(f.store), &failingIndex{err: errors.New("cluster down")}, newTestLogger())

	err := indexer.IndexProduct(context.Background(), "p-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster down")
}

// --- Reindex ---

func TestIndexer_Reindex(t *testing.T) {
	f := newCatalogFixture(t)
	f.add(t, "p-1", "Yoga Mat", "Acme", 2500, 1*time.Hour)
	f.add(t, "p-2", "Travel Mat", "Roam", 3000, 2*time.Hour)
	f.add(t, "p-3", "Mat Cleaner", "Acme", 900, 3*time.Hour)
	f.add(t, "p-4", "Old Mat", "Acme", 100, 4*time.Hour)
	f.indexAll(t, "p-4")
	deactivate(t, f, "p-4")

	indexed, err := f.indexer.Reindex(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, indexed)
	assert.Equal(t, 3, f.engine.Len())
	assert.ElementsMatch(t, []string{"p-1", "p-2", "p-3"}, searchIDs(t, f.engine, "mat"))
}

func TestIndexer_Reindex_PagesThroughLargeCatalogs(t *testing.T) {
	f := newCatalogFixture(t)
	for i := 0; i < reindexPageSize+7; i++ {
		f.add(t, "p-"+strconv.Itoa(i), "Item "+strconv.Itoa(i), "", 100, time.Duration(i)*time.Second)
	}

	indexed, err := f.indexer.Reindex(context.Background())
	require.NoError(t, err)

	assert.Equal(t, reindexPageSize+7, indexed)
	assert.Equal(t, reindexPageSize+7, f.engine.Len())
}

// --- DirectSyncer ---

func TestDirectSyncer_IndexesInBackground(t *testing.T) {
	f := newCatalogFixture(t)
	f.add(t, "p-1", "Yoga Mat", "Acme", 2500, time.Hour)
	syncer := NewDirectSyncer(f.indexer, time.Second, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	syncer.Sync(ctx, "p-1")
	// The request finishing must not cancel the sync.
	cancel()
	syncer.Wait()

	assert.Equal(t, 1, f.engine.Len())
}

func TestDirectSyncer_FailureIsSwallowed(t *testing.T) {
	f := newCatalogFixture(t)
	f.add(t, "p-1", "Yoga Mat", "Acme", 2500, time.Hour)
	indexer := NewIndexer(newRepos(f.store), &failingIndex{err: errors.New("cluster down")}, newTestLogger())
	syncer := NewDirectSyncer(indexer, time.Second, newTestLogger())

	assert.NotPanics(t, func() {
		syncer.Sync(context.Background(), "p-1")
		syncer.Wait()
	})
}

func TestDirectSyncer_ImportKeepsIndexCurrent(t *testing.T) {
	f := newCatalogFixture(t)
	syncer := NewDirectSyncer(f.indexer, time.Second, newTestLogger())
	svc := NewImportService(newRepos(f.store), syncer, ImportConfig{}, newTestLogger())

	row := feedRow("Foam Roller", "FR-1", 30)
	row.Category = domain.List("Recovery")
	_, err := svc.Import(context.Background(), []domain.FeedProduct{row})
	require.NoError(t, err)
	syncer.Wait()

	p, err := f.store.Products().FindBySKU(context.Background(), "FR-1")
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID}, searchIDs(t, f.engine, "recovery"))
}
