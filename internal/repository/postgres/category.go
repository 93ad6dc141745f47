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

// CategoryRepository implements repository.CategoryRepository using PostgreSQL.
type CategoryRepository struct {
	db database.DBTX
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(db database.DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

var _ repository.CategoryRepository = (*CategoryRepository)(nil)

// GetBySlug retrieves a category by its slug.
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	query := `SELECT id, name, slug, parent_id, created_at FROM categories WHERE slug = $1`

	var c domain.Category
	err := r.db.QueryRow(ctx, query, slug).Scan(&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("category", slug)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

// CreateIgnoreConflict inserts c unless its slug is already taken.
func (r *CategoryRepository) CreateIgnoreConflict(ctx context.Context, c *domain.Category) (bool, error) {
	query := `
		INSERT INTO categories (id, name, slug, parent_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (slug) DO NOTHING`

	ct, err := r.db.Exec(ctx, query, c.ID, c.Name, c.Slug, c.ParentID, c.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert category: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// ListByProducts returns each product's categories, primary first.
func (r *CategoryRepository) ListByProducts(ctx context.Context, productIDs []string) (map[string][]domain.Category, error) {
	out := make(map[string][]domain.Category, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT pc.product_id, c.id, c.name, c.slug, c.parent_id, c.created_at
		FROM product_categories pc
		JOIN categories c ON c.id = pc.category_id
		WHERE pc.product_id = ANY($1::uuid[])
		ORDER BY pc.product_id, pc.is_primary DESC, pc.position`

	rows, err := r.db.Query(ctx, query, productIDs)
	if err != nil {
		return nil, fmt.Errorf("list product categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID string
			c         domain.Category
		)
		if err := rows.Scan(&productID, &c.ID, &c.Name, &c.Slug, &c.ParentID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product category: %w", err)
		}
		out[productID] = append(out[productID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product categories: %w", err)
	}
	return out, nil
}
