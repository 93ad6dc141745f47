package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/repository"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/database"
	apperrors "github.com/najeemsuhail/ecommerce-store-sub000/pkg/errors"
)

const variantColumns = `id, product_id, name, sku, price, stock, is_available,
	size, color, material, image, created_at, updated_at`

// VariantRepository implements repository.VariantRepository using PostgreSQL.
type VariantRepository struct {
	db database.DBTX
}

// NewVariantRepository creates a new PostgreSQL-backed variant repository.
func NewVariantRepository(db database.DBTX) *VariantRepository {
	return &VariantRepository{db: db}
}

var _ repository.VariantRepository = (*VariantRepository)(nil)

// FindBySKU looks a variant up across all products.
func (r *VariantRepository) FindBySKU(ctx context.Context, sku string) (*domain.ProductVariant, error) {
	query := fmt.Sprintf(`SELECT %s FROM product_variants WHERE sku = $1`, variantColumns)
	v, err := scanVariant(r.db.QueryRow(ctx, query, sku))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("variant sku", sku)
	}
	return v, err
}

// FindByName looks up a SKU-less variant of one product by name.
func (r *VariantRepository) FindByName(ctx context.Context, productID, name string) (*domain.ProductVariant, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM product_variants
		WHERE product_id = $1 AND sku IS NULL AND name = $2
		ORDER BY created_at
		LIMIT 1`, variantColumns)
	v, err := scanVariant(r.db.QueryRow(ctx, query, productID, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("variant", name)
	}
	return v, err
}

// Create inserts a variant.
func (r *VariantRepository) Create(ctx context.Context, v *domain.ProductVariant) error {
	query := `
		INSERT INTO product_variants (id, product_id, name, sku, price, stock, is_available,
			size, color, material, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		v.ID,
		v.ProductID,
		v.Name,
		v.SKU,
		v.Price,
		v.Stock,
		v.IsAvailable,
		nullString(v.Size),
		nullString(v.Color),
		nullString(v.Material),
		nullString(v.Image),
		v.CreatedAt,
		v.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("variant", "sku", deref(v.SKU))
		}
		return fmt.Errorf("insert variant: %w", err)
	}
	return nil
}

// Update modifies a variant in place. Ownership and SKU never change.
func (r *VariantRepository) Update(ctx context.Context, v *domain.ProductVariant) error {
	query := `
		UPDATE product_variants
		SET name = $2, price = $3, stock = $4, is_available = $5,
		    size = $6, color = $7, material = $8, image = $9, updated_at = $10
		WHERE id = $1`

	ct, err := r.db.Exec(ctx, query,
		v.ID,
		v.Name,
		v.Price,
		v.Stock,
		v.IsAvailable,
		nullString(v.Size),
		nullString(v.Color),
		nullString(v.Material),
		nullString(v.Image),
		v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update variant: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("variant", v.ID)
	}
	return nil
}

// ListByProduct returns a product's variants, oldest first.
func (r *VariantRepository) ListByProduct(ctx context.Context, productID string) ([]domain.ProductVariant, error) {
	query := fmt.Sprintf(`SELECT %s FROM product_variants WHERE product_id = $1 ORDER BY created_at, id`, variantColumns)

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	var variants []domain.ProductVariant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant rows: %w", err)
	}
	return variants, nil
}

func scanVariant(row pgx.Row) (*domain.ProductVariant, error) {
	var (
		v                            domain.ProductVariant
		size, color, material, image *string
	)
	err := row.Scan(
		&v.ID,
		&v.ProductID,
		&v.Name,
		&v.SKU,
		&v.Price,
		&v.Stock,
		&v.IsAvailable,
		&size,
		&color,
		&material,
		&image,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan variant: %w", err)
	}
	v.Size, v.Color, v.Material, v.Image = deref(size), deref(color), deref(material), deref(image)
	return &v, nil
}
