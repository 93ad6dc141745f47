package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	apperrors "github.com/najeemsuhail/ecommerce-store-sub000/pkg/errors"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/httpclient"
)

// maxPages stops a feed that keeps answering hasMore.
const maxPages = 10000

// Page is one page of a remote feed.
type Page struct {
	Products []domain.FeedProduct `json:"products"`
	HasMore  bool                 `json:"hasMore"`
}

// Getter performs GET requests. *httpclient.CircuitBreakerClient satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// FetcherConfig tunes remote feed paging.
type FetcherConfig struct {
	PageSize    int
	PageTimeout time.Duration
}

// Fetcher pulls paginated JSON feeds.
type Fetcher struct {
	client Getter
	cfg    FetcherConfig
	logger *slog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(client Getter, cfg FetcherConfig, logger *slog.Logger) *Fetcher {
	if cfg.PageSize < 1 {
		cfg.PageSize = 100
	}
	return &Fetcher{client: client, cfg: cfg, logger: logger}
}

// FetchAll fetches every feed concurrently and returns their rows in feed
// order. Any page failure fails the whole call.
func (f *Fetcher) FetchAll(ctx context.Context, feedURLs []string) ([]domain.FeedProduct, error) {
	perFeed := make([][]domain.FeedProduct, len(feedURLs))

	g, gctx := errgroup.WithContext(ctx)
	for i, feedURL := range feedURLs {
		g.Go(func() error {
			rows, err := f.Fetch(gctx, feedURL)
			if err != nil {
				return err
			}
			perFeed[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int
	for _, rows := range perFeed {
		total += len(rows)
	}
	all := make([]domain.FeedProduct, 0, total)
	for _, rows := range perFeed {
		all = append(all, rows...)
	}
	return all, nil
}

// Fetch pages through one feed until it reports no more rows.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]domain.FeedProduct, error) {
	var rows []domain.FeedProduct
	for page := 1; page <= maxPages; page++ {
		p, err := f.fetchPage(ctx, feedURL, page)
		if err != nil {
			return nil, err
		}
		rows = append(rows, p.Products...)
		if !p.HasMore || len(p.Products) == 0 {
			f.logger.InfoContext(ctx, "fetched feed",
				slog.String("feed", feedURL),
				slog.Int("pages", page),
				slog.Int("rows", len(rows)),
			)
			return rows, nil
		}
	}
	return nil, apperrors.Infrastructure("fetch feed", fmt.Errorf("%s still has more rows after %d pages", feedURL, maxPages))
}

func (f *Fetcher) fetchPage(ctx context.Context, feedURL string, page int) (*Page, error) {
	pageURL, err := withPage(feedURL, page, f.cfg.PageSize)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid feed url %q", feedURL))
	}

	if f.cfg.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.PageTimeout)
		defer cancel()
	}

	resp, err := f.client.Get(ctx, pageURL)
	if err != nil {
		return nil, apperrors.Infrastructure("fetch feed page", fmt.Errorf("%s page %d: %w", feedURL, page, err))
	}
	if resp.StatusCode != http.StatusOK {
		err := httpclient.ParseResponseError(resp, "feed")
		return nil, apperrors.Infrastructure("fetch feed page", fmt.Errorf("%s page %d: %w", feedURL, page, err))
	}
	defer func() { _ = resp.Body.Close() }()

	var p Page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, apperrors.Infrastructure("decode feed page", fmt.Errorf("%s page %d: %w", feedURL, page, err))
	}
	return &p, nil
}

func withPage(feedURL string, page, limit int) (string, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("feed url %q is not absolute", feedURL)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
