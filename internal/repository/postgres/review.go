package postgres

import (
	"context"
	"fmt"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/repository"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/database"
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	db database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(db database.DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

var _ repository.ReviewRepository = (*ReviewRepository)(nil)

// Ratings aggregates reviews per product at read time.
func (r *ReviewRepository) Ratings(ctx context.Context, productIDs []string) (out map[string]domain.RatingSummary, err error) {
	out = make(map[string]domain.RatingSummary, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT product_id, avg(rating)::float8, count(*)
		FROM reviews
		WHERE product_id = ANY($1::uuid[])
		GROUP BY product_id`

	ctx, end := database.TraceQuery(ctx, "reviews.ratings", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, productIDs)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID string
			summary   domain.RatingSummary
		)
		if err := rows.Scan(&productID, &summary.Average, &summary.Count); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		out[productID] = summary
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return out, nil
}
