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

// AttributeRepository implements repository.AttributeRepository using PostgreSQL.
type AttributeRepository struct {
	db database.DBTX
}

// NewAttributeRepository creates a new PostgreSQL-backed attribute repository.
func NewAttributeRepository(db database.DBTX) *AttributeRepository {
	return &AttributeRepository{db: db}
}

var _ repository.AttributeRepository = (*AttributeRepository)(nil)

// Find looks an attribute up by slug within the global scope (nil
// categoryID) or a category scope.
func (r *AttributeRepository) Find(ctx context.Context, slug string, categoryID *string) (*domain.Attribute, error) {
	query := `SELECT id, name, slug, category_id, type, options, created_at FROM attributes WHERE slug = $1 AND `
	args := []any{slug}
	if categoryID == nil {
		query += `category_id IS NULL`
	} else {
		query += `category_id = $2`
		args = append(args, *categoryID)
	}

	var a domain.Attribute
	err := r.db.QueryRow(ctx, query, args...).Scan(&a.ID, &a.Name, &a.Slug, &a.CategoryID, &a.Type, &a.Options, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("attribute", slug)
		}
		return nil, fmt.Errorf("get attribute: %w", err)
	}
	return &a, nil
}

// CreateIgnoreConflict inserts a unless its (scope, slug) is already taken.
func (r *AttributeRepository) CreateIgnoreConflict(ctx context.Context, a *domain.Attribute) (bool, error) {
	query := `
		INSERT INTO attributes (id, name, slug, category_id, type, options, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING`

	options := a.Options
	if options == nil {
		options = []string{}
	}
	ct, err := r.db.Exec(ctx, query, a.ID, a.Name, a.Slug, a.CategoryID, a.Type, options, a.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert attribute: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}
