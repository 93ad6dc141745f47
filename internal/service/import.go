package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/identity"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/repository"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/database"
	apperrors "github.com/najeemsuhail/ecommerce-store-sub000/pkg/errors"
)

// maxSlugAttempts bounds retries when storage reports a slug taken by a
// writer outside this batch.
const maxSlugAttempts = 5

// IndexSyncer is notified after a product write commits. Implementations
// must not block and must not fail the caller.
type IndexSyncer interface {
	Sync(ctx context.Context, productID string)
}

// NopSyncer ignores every sync.
type NopSyncer struct{}

// Sync does nothing.
func (NopSyncer) Sync(context.Context, string) {}

// Repositories groups the storage collaborators of the services.
type Repositories struct {
	Products   repository.ProductRepository
	Variants   repository.VariantRepository
	Categories repository.CategoryRepository
	Attributes repository.AttributeRepository
	Reviews    repository.ReviewRepository
}

// ImportConfig tunes the reconciliation engine.
type ImportConfig struct {
	// Concurrency is the number of rows reconciled at once. 1 processes rows
	// strictly in order.
	Concurrency int
	// MaxErrors bounds the error list of a result; 0 keeps every error.
	MaxErrors     int
	DefaultSource string
}

// ImportService reconciles feed rows into the catalog.
type ImportService struct {
	repos    Repositories
	resolver *identity.Resolver
	syncer   IndexSyncer
	cfg      ImportConfig
	logger   *slog.Logger
}

// NewImportService creates a new import service.
func NewImportService(repos Repositories, syncer IndexSyncer, cfg ImportConfig, logger *slog.Logger) *ImportService {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if syncer == nil {
		syncer = NopSyncer{}
	}
	return &ImportService{
		repos:    repos,
		resolver: identity.NewResolver(repos.Products),
		syncer:   syncer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Import reconciles rows as one batch. Row failures are reported in the
// result; only infrastructure failures return an error.
func (s *ImportService) Import(ctx context.Context, rows []domain.FeedProduct) (*domain.ImportResult, error) {
	categories := NewCategoryCache(s.repos.Categories, nil)
	return s.reconcile(ctx, rows, categories)
}

// ImportChunk reconciles one chunk of a caller-driven import. The category
// cache is seeded from cache and returned in the result so the caller can
// pass it to the next chunk.
func (s *ImportService) ImportChunk(ctx context.Context, rows []domain.FeedProduct, cache []domain.CategoryRef) (*domain.ImportResult, error) {
	categories := NewCategoryCache(s.repos.Categories, cache)
	result, err := s.reconcile(ctx, rows, categories)
	if err != nil {
		return nil, err
	}
	result.CategoryCache = categories.Refs()
	return result, nil
}

// ImportInChunks reconciles rows chunkSize at a time, handing the category
// cache of each chunk to the next. Error indexes refer to positions in rows.
func (s *ImportService) ImportInChunks(ctx context.Context, rows []domain.FeedProduct, chunkSize int) (*domain.ImportResult, error) {
	if chunkSize < 1 {
		chunkSize = max(len(rows), 1)
	}

	total := &domain.ImportResult{Errors: []domain.RowError{}}
	var cache []domain.CategoryRef
	for start := 0; start < len(rows); start += chunkSize {
		end := min(start+chunkSize, len(rows))
		result, err := s.ImportChunk(ctx, rows[start:end], cache)
		if err != nil {
			return nil, err
		}
		cache = result.CategoryCache
		total.Add(result, start, s.cfg.MaxErrors)
	}
	return total, nil
}

// rowOutcome is what reconciling one row produced.
type rowOutcome struct {
	outcome string
	name    string
	err     error
}

// batch carries the per-call state shared by the rows of one reconcile call.
type batch struct {
	svc        *ImportService
	slugs      *identity.SlugAllocator
	locks      *identity.KeyLock
	categories *CategoryCache
	attributes *AttributeCache
}

func (s *ImportService) reconcile(ctx context.Context, rows []domain.FeedProduct, categories *CategoryCache) (*domain.ImportResult, error) {
	start := time.Now()
	defer func() { importBatchDuration.Observe(time.Since(start).Seconds()) }()

	b := &batch{
		svc:        s,
		locks:      identity.NewKeyLock(),
		categories: categories,
		attributes: NewAttributeCache(s.repos.Attributes),
	}

	existing, err := s.repos.Products.SlugsWithPrefix(ctx, basePrefixes(rows))
	if err != nil {
		return nil, apperrors.Infrastructure("load slug prefixes", err)
	}
	b.slugs = identity.NewSlugAllocator(existing)

	outcomes := make([]rowOutcome, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i := range rows {
		g.Go(func() error {
			out, err := b.reconcileRow(gctx, &rows[i])
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "import aborted",
			slog.Int("rows", len(rows)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	result := &domain.ImportResult{Errors: []domain.RowError{}}
	for i, out := range outcomes {
		importRowsTotal.WithLabelValues(out.outcome).Inc()
		switch out.outcome {
		case outcomeImported:
			result.Imported++
		case outcomeUpdated:
			result.Updated++
		default:
			result.Failed++
			if s.cfg.MaxErrors <= 0 || len(result.Errors) < s.cfg.MaxErrors {
				result.Errors = append(result.Errors, domain.RowError{Index: i, Name: out.name, Error: out.err.Error()})
			}
		}
	}

	s.logger.InfoContext(ctx, "import batch reconciled",
		slog.Int("rows", len(rows)),
		slog.Int("imported", result.Imported),
		slog.Int("updated", result.Updated),
		slog.Int("failed", result.Failed),
		slog.Duration("took", time.Since(start)),
	)
	return result, nil
}

// basePrefixes lists the distinct base slugs of rows.
func basePrefixes(rows []domain.FeedProduct) []string {
	seen := make(map[string]struct{}, len(rows))
	var prefixes []string
	for i := range rows {
		base := rows[i].BaseSlug()
		if base == "" {
			continue
		}
		if _, ok := seen[base]; ok {
			continue
		}
		seen[base] = struct{}{}
		prefixes = append(prefixes, base)
	}
	return prefixes
}

// isInfrastructure reports whether err must abort the whole batch.
func isInfrastructure(err error) bool {
	return apperrors.IsInfrastructure(err) ||
		errors.Is(err, context.Canceled) ||
		database.IsConnectionError(err)
}

// reconcileRow returns an error only for infrastructure failures; anything
// else becomes a failed outcome.
func (b *batch) reconcileRow(ctx context.Context, row *domain.FeedProduct) (rowOutcome, error) {
	if err := ctx.Err(); err != nil {
		return rowOutcome{}, apperrors.Infrastructure("reconcile row", err)
	}
	out, err := b.apply(ctx, row)
	if err == nil {
		return out, nil
	}
	if isInfrastructure(err) {
		if apperrors.IsInfrastructure(err) {
			return rowOutcome{}, err
		}
		return rowOutcome{}, apperrors.Infrastructure("reconcile row", err)
	}

	b.svc.logger.WarnContext(ctx, "import row failed",
		slog.String("name", row.Name),
		slog.String("error", err.Error()),
	)
	return rowOutcome{outcome: outcomeFailed, name: row.Name, err: err}, nil
}

func (b *batch) apply(ctx context.Context, row *domain.FeedProduct) (rowOutcome, error) {
	if err := row.Validate(); err != nil {
		return rowOutcome{}, err
	}

	unlock := b.locks.Lock(row.IdentityKeys()...)
	defer unlock()

	product, match, err := b.svc.resolver.Resolve(ctx, row)
	if err != nil {
		return rowOutcome{}, fmt.Errorf("resolve identity: %w", err)
	}

	now := time.Now().UTC()
	out := rowOutcome{outcome: outcomeUpdated, name: row.Name}
	if product == nil {
		out.outcome = outcomeImported
		if product, err = b.create(ctx, row, now); err != nil {
			return rowOutcome{}, err
		}
	} else {
		stored := product.ExternalID
		product.Merge(row, now)
		if foreign, err := b.heldElsewhere(ctx, product, stored); err != nil {
			return rowOutcome{}, err
		} else if foreign {
			product.ExternalID = stored
		}
		if err := b.svc.repos.Products.Update(ctx, product); err != nil {
			return rowOutcome{}, fmt.Errorf("update product: %w", err)
		}
	}

	// The product row is committed from here on, even if a relation fails.
	defer b.svc.syncer.Sync(ctx, product.ID)

	b.svc.logger.DebugContext(ctx, "product reconciled",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
		slog.String("match", string(match)),
	)

	primary, err := b.reconcileCategories(ctx, product, row)
	if err != nil {
		return rowOutcome{}, err
	}
	if err := b.reconcileVariants(ctx, product, row, now); err != nil {
		return rowOutcome{}, err
	}
	if err := b.reconcileAttributes(ctx, product, row, primary); err != nil {
		return rowOutcome{}, err
	}
	return out, nil
}

// heldElsewhere reports whether the external id merged into product already
// belongs to another product. That happens when a row resolved by SKU
// carries another product's external id; the id then stays with its owner.
func (b *batch) heldElsewhere(ctx context.Context, product *domain.Product, stored *string) (bool, error) {
	ext := product.ExternalID
	if ext == nil || (stored != nil && *stored == *ext) {
		return false, nil
	}
	owner, err := b.svc.repos.Products.FindByExternalID(ctx, *ext)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check external id owner: %w", err)
	}
	if owner.ID == product.ID {
		return false, nil
	}
	b.svc.logger.WarnContext(ctx, "external id kept with its owner",
		slog.String("product_id", product.ID),
		slog.String("external_id", *ext),
		slog.String("owner_id", owner.ID),
	)
	return true, nil
}

func (b *batch) create(ctx context.Context, row *domain.FeedProduct, now time.Time) (*domain.Product, error) {
	base := row.BaseSlug()
	if base == "" {
		return nil, apperrors.InvalidInput("name does not yield a slug")
	}

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		product := domain.NewProduct(uuid.New().String(), b.slugs.Allocate(base), b.svc.cfg.DefaultSource, row, now)
		err := b.svc.repos.Products.Create(ctx, product)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, repository.ErrSlugTaken) {
			return nil, fmt.Errorf("create product: %w", err)
		}
	}
	return nil, apperrors.Conflict(fmt.Sprintf("no free slug for %q after %d attempts", base, maxSlugAttempts))
}

// reconcileCategories replaces the product's category set when the row lists
// categories and returns the primary category id. Without a category field
// the stored assignments stay and the stored primary is returned.
func (b *batch) reconcileCategories(ctx context.Context, product *domain.Product, row *domain.FeedProduct) (*string, error) {
	if !row.Category.Present {
		stored, err := b.svc.repos.Categories.ListByProducts(ctx, []string{product.ID})
		if err != nil {
			return nil, fmt.Errorf("list product categories: %w", err)
		}
		if cats := stored[product.ID]; len(cats) > 0 {
			return &cats[0].ID, nil
		}
		return nil, nil
	}

	items := make([]domain.ProductCategory, 0, len(row.Category.Values))
	seen := make(map[string]struct{}, len(row.Category.Values))
	for _, name := range row.Category.Values {
		if strings.TrimSpace(name) == "" {
			continue
		}
		ref, err := b.categories.Resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[ref.ID]; dup {
			continue
		}
		seen[ref.ID] = struct{}{}
		items = append(items, domain.ProductCategory{
			ProductID:  product.ID,
			CategoryID: ref.ID,
			IsPrimary:  len(items) == 0,
		})
	}

	set := domain.ReplaceSet[domain.ProductCategory]{ParentID: product.ID, Items: items}
	if err := b.svc.repos.Products.ReplaceCategories(ctx, set); err != nil {
		return nil, fmt.Errorf("replace categories: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0].CategoryID, nil
}

// reconcileVariants matches variants by SKU, or by name for SKU-less ones,
// and creates the rest. A SKU held by another product's variant fails the
// row.
func (b *batch) reconcileVariants(ctx context.Context, product *domain.Product, row *domain.FeedProduct, now time.Time) error {
	variants := b.svc.repos.Variants
	for i := range row.Variants {
		fv := &row.Variants[i]
		sku := strings.TrimSpace(fv.SKU)

		var existing *domain.ProductVariant
		var err error
		if sku != "" {
			existing, err = variants.FindBySKU(ctx, sku)
		} else {
			existing, err = variants.FindByName(ctx, product.ID, strings.TrimSpace(fv.Name))
		}
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("find variant: %w", err)
		}

		if existing != nil && err == nil {
			if existing.ProductID != product.ID {
				return apperrors.IdentityConflict("variant sku", sku, existing.ProductID)
			}
			existing.Merge(fv, now)
			if err := variants.Update(ctx, existing); err != nil {
				return fmt.Errorf("update variant: %w", err)
			}
			continue
		}

		v := domain.NewVariant(uuid.New().String(), product.ID, product.Price, fv, now)
		if err := variants.Create(ctx, v); err != nil {
			return fmt.Errorf("create variant: %w", err)
		}
	}
	return nil
}

// reconcileAttributes replaces the product's attribute values when the row
// carries attributes. Multiple values of one attribute are joined with ", ".
func (b *batch) reconcileAttributes(ctx context.Context, product *domain.Product, row *domain.FeedProduct, primary *string) error {
	if row.Attributes == nil {
		return nil
	}

	names := make([]string, 0, len(row.Attributes))
	for name := range row.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]domain.ProductAttributeValue, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		values := cleanValues(row.Attributes[name])
		if len(values) == 0 || strings.TrimSpace(name) == "" {
			continue
		}
		attr, err := b.attributes.Resolve(ctx, name, primary, values)
		if err != nil {
			return err
		}
		if _, dup := seen[attr.ID]; dup {
			continue
		}
		seen[attr.ID] = struct{}{}
		items = append(items, domain.ProductAttributeValue{
			ProductID:   product.ID,
			AttributeID: attr.ID,
			Value:       strings.Join(values, ", "),
		})
	}

	set := domain.ReplaceSet[domain.ProductAttributeValue]{ParentID: product.ID, Items: items}
	if err := b.svc.repos.Products.ReplaceAttributeValues(ctx, set); err != nil {
		return fmt.Errorf("replace attribute values: %w", err)
	}
	return nil
}

func cleanValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
