package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/repository"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/database"
	apperrors "github.com/najeemsuhail/ecommerce-store-sub000/pkg/errors"
)

const productColumns = `p.id, p.name, p.slug, p.description, p.price, p.compare_price, p.stock,
	p.sku, p.external_id, p.brand, p.tags, p.images, p.video_url, p.weight,
	p.dimensions, p.specifications, p.meta_title, p.meta_description,
	p.is_digital, p.track_inventory, p.is_featured, p.is_active, p.source,
	p.created_at, p.updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	query := `
		INSERT INTO products (id, name, slug, description, price, compare_price, stock,
			sku, external_id, brand, tags, images, video_url, weight,
			dimensions, specifications, meta_title, meta_description,
			is_digital, track_inventory, is_featured, is_active, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`

	ctx, end := database.TraceQuery(ctx, "products.create", query)
	defer func() { end(err) }()

	args, err := productArgs(p)
	if err != nil {
		return err
	}
	args = append(args, p.CreatedAt, p.UpdatedAt)

	if _, err = r.db.Exec(ctx, query, args...); err != nil {
		return productWriteError(err, p)
	}
	return nil
}

// Update modifies an existing product. The slug and creation time are kept.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (err error) {
	query := `
		UPDATE products
		SET name = $2, slug = $3, description = $4, price = $5, compare_price = $6, stock = $7,
		    sku = $8, external_id = $9, brand = $10, tags = $11, images = $12, video_url = $13,
		    weight = $14, dimensions = $15, specifications = $16, meta_title = $17,
		    meta_description = $18, is_digital = $19, track_inventory = $20, is_featured = $21,
		    is_active = $22, source = $23, updated_at = $24
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "products.update", query)
	defer func() { end(err) }()

	args, err := productArgs(p)
	if err != nil {
		return err
	}
	args = append(args, p.UpdatedAt)

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return productWriteError(err, p)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

func productArgs(p *domain.Product) ([]any, error) {
	dimensions, err := marshalJSON(p.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("marshal dimensions: %w", err)
	}
	specifications, err := marshalJSON(p.Specifications)
	if err != nil {
		return nil, fmt.Errorf("marshal specifications: %w", err)
	}

	return []any{
		p.ID,
		p.Name,
		p.Slug,
		p.Description,
		p.Price,
		p.ComparePrice,
		p.Stock,
		p.SKU,
		p.ExternalID,
		nullString(p.Brand),
		nonNil(p.Tags),
		nonNil(p.Images),
		nullString(p.VideoURL),
		p.Weight,
		dimensions,
		specifications,
		nullString(p.MetaTitle),
		nullString(p.MetaDescription),
		p.IsDigital,
		p.TrackInventory,
		p.IsFeatured,
		p.IsActive,
		p.Source,
	}, nil
}

func productWriteError(err error, p *domain.Product) error {
	field, ok := uniqueViolation(err)
	if !ok {
		return fmt.Errorf("write product: %w", err)
	}
	switch field {
	case "slug":
		return fmt.Errorf("%w: %s", repository.ErrSlugTaken, p.Slug)
	case "sku":
		return apperrors.AlreadyExists("product", "sku", deref(p.SKU))
	case "external_id":
		return apperrors.AlreadyExists("product", "externalId", deref(p.ExternalID))
	default:
		return apperrors.AlreadyExists("product", "key", p.ID)
	}
}

// uniqueViolation reports whether err is a unique violation and, when the
// constraint is known, which column it guards.
func uniqueViolation(err error) (string, bool) {
	if !database.IsUniqueViolation(err) {
		return "", false
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", true
	}
	switch {
	case strings.HasSuffix(pgErr.ConstraintName, "_slug_key"):
		return "slug", true
	case strings.HasSuffix(pgErr.ConstraintName, "_sku_key"):
		return "sku", true
	case strings.HasSuffix(pgErr.ConstraintName, "_external_id_key"):
		return "external_id", true
	}
	return "", true
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return r.getOne(ctx, "products.get_by_id", "p.id = $1", "product", id)
}

// FindBySKU retrieves the product holding sku.
func (r *ProductRepository) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	return r.getOne(ctx, "products.find_by_sku", "p.sku = $1", "product sku", sku)
}

// FindByExternalID retrieves the product holding externalID.
func (r *ProductRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.Product, error) {
	return r.getOne(ctx, "products.find_by_external_id", "p.external_id = $1", "product externalId", externalID)
}

// FindBySlug retrieves a product by its slug.
func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return r.getOne(ctx, "products.find_by_slug", "p.slug = $1", "product slug", slug)
}

func (r *ProductRepository) getOne(ctx context.Context, op, cond, resource, key string) (p *domain.Product, err error) {
	query := fmt.Sprintf(`SELECT %s FROM products p WHERE %s`, productColumns, cond)

	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() {
		if errors.Is(err, apperrors.ErrNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	p, err = scanProduct(r.db.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound(resource, key)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetByIDs loads products by id in no particular order.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) (products []domain.Product, err error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM products p WHERE p.id = ANY($1::uuid[])`, productColumns)

	ctx, end := database.TraceQuery(ctx, "products.get_by_ids", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	defer rows.Close()

	products = []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// SlugsWithPrefix returns every stored slug starting with one of prefixes.
func (r *ProductRepository) SlugsWithPrefix(ctx context.Context, prefixes []string) (slugs []string, err error) {
	if len(prefixes) == 0 {
		return nil, nil
	}
	query := `SELECT slug FROM products WHERE slug LIKE ANY($1) ORDER BY slug`

	ctx, end := database.TraceQuery(ctx, "products.slugs_with_prefix", query)
	defer func() { end(err) }()

	patterns := make([]string, len(prefixes))
	for i, p := range prefixes {
		patterns[i] = prefixPattern(p)
	}

	rows, err := r.db.Query(ctx, query, patterns)
	if err != nil {
		return nil, fmt.Errorf("query slug prefixes: %w", err)
	}
	slugs, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan slugs: %w", err)
	}
	return slugs, nil
}

// List returns products matching the given filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) (products []domain.Product, total int, err error) {
	w := buildWhere(filter)

	// Use count(*) OVER() for total count in a single query.
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products p
		%s
		ORDER BY %s`,
		productColumns, w.clause(), orderBy(filter.Sort),
	)
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %s", w.arg(filter.Limit))
	}
	if filter.Skip > 0 {
		query += fmt.Sprintf(" OFFSET %s", w.arg(filter.Skip))
	}

	ctx, end := database.TraceQuery(ctx, "products.list", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products = []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	// A window past the end returns no rows and therefore no total.
	if len(products) == 0 && filter.Skip > 0 {
		total, err = r.Count(ctx, filter)
		if err != nil {
			return nil, 0, err
		}
	}
	return products, total, nil
}

// Count returns the number of products matching the filter.
func (r *ProductRepository) Count(ctx context.Context, filter repository.ProductFilter) (total int, err error) {
	w := buildWhere(filter)
	query := fmt.Sprintf(`SELECT count(*) FROM products p %s`, w.clause())

	ctx, end := database.TraceQuery(ctx, "products.count", query)
	defer func() { end(err) }()

	if err = r.db.QueryRow(ctx, query, w.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

// FilterIDs returns the active products among ids that match facets.
func (r *ProductRepository) FilterIDs(ctx context.Context, ids []string, facets domain.Facets) (matched []string, err error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	w := &where{}
	w.add("p.is_active = TRUE")
	w.add(fmt.Sprintf("p.id = ANY(%s::uuid[])", w.arg(ids)))
	w.addFacets(facets)
	query := fmt.Sprintf(`SELECT p.id FROM products p %s`, w.clause())

	ctx, end := database.TraceQuery(ctx, "products.filter_ids", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("filter product ids: %w", err)
	}
	matched, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan product ids: %w", err)
	}
	return matched, nil
}

// ReplaceCategories swaps the product's category assignments in one
// transaction. Item order becomes the stored position.
func (r *ProductRepository) ReplaceCategories(ctx context.Context, set domain.ReplaceSet[domain.ProductCategory]) (err error) {
	ctx, end := database.TraceQuery(ctx, "products.replace_categories", "product_categories")
	defer func() { end(err) }()

	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM product_categories WHERE product_id = $1`, set.ParentID); err != nil {
			return fmt.Errorf("delete product categories: %w", err)
		}
		if len(set.Items) == 0 {
			return nil
		}

		values := make([]string, 0, len(set.Items))
		args := make([]any, 0, len(set.Items)*4)
		for i, pc := range set.Items {
			n := len(args)
			values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4))
			args = append(args, set.ParentID, pc.CategoryID, pc.IsPrimary, i)
		}
		query := `INSERT INTO product_categories (product_id, category_id, is_primary, position) VALUES ` +
			strings.Join(values, ", ") + ` ON CONFLICT DO NOTHING`
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert product categories: %w", err)
		}
		return nil
	})
}

// ReplaceAttributeValues swaps the product's attribute values in one
// transaction.
func (r *ProductRepository) ReplaceAttributeValues(ctx context.Context, set domain.ReplaceSet[domain.ProductAttributeValue]) (err error) {
	ctx, end := database.TraceQuery(ctx, "products.replace_attribute_values", "product_attribute_values")
	defer func() { end(err) }()

	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM product_attribute_values WHERE product_id = $1`, set.ParentID); err != nil {
			return fmt.Errorf("delete attribute values: %w", err)
		}
		if len(set.Items) == 0 {
			return nil
		}

		values := make([]string, 0, len(set.Items))
		args := make([]any, 0, len(set.Items)*3)
		for _, v := range set.Items {
			n := len(args)
			values = append(values, fmt.Sprintf("($%d, $%d, $%d)", n+1, n+2, n+3))
			args = append(args, set.ParentID, v.AttributeID, v.Value)
		}
		query := `INSERT INTO product_attribute_values (product_id, attribute_id, value) VALUES ` +
			strings.Join(values, ", ") + ` ON CONFLICT DO NOTHING`
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert attribute values: %w", err)
		}
		return nil
	})
}

// scanProduct scans one product row. extra receives trailing columns such as
// total_count.
func scanProduct(row pgx.Row, extra ...any) (*domain.Product, error) {
	var (
		p                                    domain.Product
		brand, videoURL, metaTitle, metaDesc *string
		dimensions, specifications           []byte
	)

	dest := []any{
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.ComparePrice,
		&p.Stock,
		&p.SKU,
		&p.ExternalID,
		&brand,
		&p.Tags,
		&p.Images,
		&videoURL,
		&p.Weight,
		&dimensions,
		&specifications,
		&metaTitle,
		&metaDesc,
		&p.IsDigital,
		&p.TrackInventory,
		&p.IsFeatured,
		&p.IsActive,
		&p.Source,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	p.Brand, p.VideoURL = deref(brand), deref(videoURL)
	p.MetaTitle, p.MetaDescription = deref(metaTitle), deref(metaDesc)
	p.Tags, p.Images = nonNil(p.Tags), nonNil(p.Images)

	if dimensions != nil {
		if err := json.Unmarshal(dimensions, &p.Dimensions); err != nil {
			return nil, fmt.Errorf("unmarshal dimensions: %w", err)
		}
	}
	if specifications != nil {
		if err := json.Unmarshal(specifications, &p.Specifications); err != nil {
			return nil, fmt.Errorf("unmarshal specifications: %w", err)
		}
	}
	return &p, nil
}

func marshalJSON(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
