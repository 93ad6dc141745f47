package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/index"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/repository"
	apperrors "github.com/najeemsuhail/ecommerce-store-sub000/pkg/errors"
)

const reindexPageSize = 500

// Indexer copies products from storage into the search index.
type Indexer struct {
	repos  Repositories
	index  index.Index
	logger *slog.Logger
}

// NewIndexer creates a new indexer.
func NewIndexer(repos Repositories, idx index.Index, logger *slog.Logger) *Indexer {
	return &Indexer{repos: repos, index: idx, logger: logger}
}

// IndexProduct brings the index entry of one product up to date. Missing
// and inactive products are removed from the index.
func (ix *Indexer) IndexProduct(ctx context.Context, productID string) error {
	product, err := ix.repos.Products.GetByID(ctx, productID)
	if errors.Is(err, apperrors.ErrNotFound) || (err == nil && !product.IsActive) {
		if err := ix.index.Delete(ctx, productID); err != nil {
			return fmt.Errorf("delete from index: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("load product: %w", err)
	}

	categories, err := ix.repos.Categories.ListByProducts(ctx, []string{productID})
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	product.Categories = categories[productID]

	if err := ix.index.Index(ctx, index.NewDocument(product)); err != nil {
		return fmt.Errorf("index product: %w", err)
	}
	return nil
}

// Reindex pages through every product and bulk indexes the active ones. It
// returns the number of documents indexed.
func (ix *Indexer) Reindex(ctx context.Context) (int, error) {
	start := time.Now()
	indexed := 0

	for skip := 0; ; skip += reindexPageSize {
		products, _, err := ix.repos.Products.List(ctx, repository.ProductFilter{
			IncludeInactive: true,
			Sort:            domain.SortNewest,
			Skip:            skip,
			Limit:           reindexPageSize,
		})
		if err != nil {
			return indexed, fmt.Errorf("list products: %w", err)
		}
		if len(products) == 0 {
			break
		}

		ids := make([]string, len(products))
		for i := range products {
			ids[i] = products[i].ID
		}
		categories, err := ix.repos.Categories.ListByProducts(ctx, ids)
		if err != nil {
			return indexed, fmt.Errorf("load categories: %w", err)
		}

		docs := make([]index.Document, 0, len(products))
		for i := range products {
			p := &products[i]
			if !p.IsActive {
				if err := ix.index.Delete(ctx, p.ID); err != nil {
					return indexed, fmt.Errorf("delete inactive product: %w", err)
				}
				continue
			}
			p.Categories = categories[p.ID]
			docs = append(docs, index.NewDocument(p))
		}
		if err := ix.index.BulkIndex(ctx, docs); err != nil {
			return indexed, fmt.Errorf("bulk index: %w", err)
		}
		indexed += len(docs)

		if len(products) < reindexPageSize {
			break
		}
	}

	ix.logger.InfoContext(ctx, "reindex completed",
		slog.Int("indexed", indexed),
		slog.Duration("took", time.Since(start)),
	)
	return indexed, nil
}

// DirectSyncer indexes products in the background right after their writes
// commit. Each sync runs detached from the request with its own timeout.
type DirectSyncer struct {
	indexer *Indexer
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

var _ IndexSyncer = (*DirectSyncer)(nil)

// NewDirectSyncer creates a syncer bounded by timeout per product.
func NewDirectSyncer(indexer *Indexer, timeout time.Duration, logger *slog.Logger) *DirectSyncer {
	return &DirectSyncer{indexer: indexer, timeout: timeout, logger: logger}
}

// Sync schedules productID for indexing and returns immediately.
func (s *DirectSyncer) Sync(ctx context.Context, productID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		if err := s.indexer.IndexProduct(ctx, productID); err != nil {
			s.logger.WarnContext(ctx, "index sync failed",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Wait blocks until every scheduled sync has finished.
func (s *DirectSyncer) Wait() {
	s.wg.Wait()
}
