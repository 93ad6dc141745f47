package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	apperrors "github.com/najeemsuhail/ecommerce-store-sub000/pkg/errors"
)

// ChunkImporter reconciles rows in chunks that share a category cache.
// *service.ImportService satisfies it.
type ChunkImporter interface {
	ImportInChunks(ctx context.Context, rows []domain.FeedProduct, chunkSize int) (*domain.ImportResult, error)
}

// RowFetcher loads rows from a set of feeds.
type RowFetcher interface {
	FetchAll(ctx context.Context, feedURLs []string) ([]domain.FeedProduct, error)
}

// Syncer pulls the configured remote feeds and reconciles them.
type Syncer struct {
	fetcher   RowFetcher
	importer  ChunkImporter
	feedURLs  []string
	chunkSize int
	logger    *slog.Logger
}

// NewSyncer creates a Syncer.
func NewSyncer(fetcher RowFetcher, importer ChunkImporter, feedURLs []string, chunkSize int, logger *slog.Logger) *Syncer {
	return &Syncer{
		fetcher:   fetcher,
		importer:  importer,
		feedURLs:  feedURLs,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Sync fetches every feed, merges availability across feeds and imports the
// result. Nothing is written when any feed page fails.
func (s *Syncer) Sync(ctx context.Context) (*domain.ImportResult, error) {
	if len(s.feedURLs) == 0 {
		return nil, apperrors.InvalidInput("no feed urls configured")
	}

	start := time.Now()
	rows, err := s.fetcher.FetchAll(ctx, s.feedURLs)
	if err != nil {
		return nil, err
	}
	fetched := len(rows)
	rows = MergeAvailability(rows)

	result, err := s.importer.ImportInChunks(ctx, rows, s.chunkSize)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "feed sync finished",
		slog.Int("feeds", len(s.feedURLs)),
		slog.Int("fetched", fetched),
		slog.Int("rows", len(rows)),
		slog.Int("imported", result.Imported),
		slog.Int("updated", result.Updated),
		slog.Int("failed", result.Failed),
		slog.Duration("duration", time.Since(start)),
	)
	return result, nil
}
