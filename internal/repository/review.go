package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storely/storefront-api/internal/model"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	GetByID(ctx context.Context, productID, id uuid.UUID) (*model.Review, error)
	ListByProductID(ctx context.Context, productID uuid.UUID) ([]model.Review, error)
	Update(ctx context.Context, review *model.Review) error
	Delete(ctx context.Context, productID, id uuid.UUID) error
}

type pgReviewRepo struct{ pool *pgxpool.Pool }

func NewReviewRepository(pool *pgxpool.Pool) ReviewRepository {
	return &pgReviewRepo{pool: pool}
}

func (r *pgReviewRepo) Create(ctx context.Context, review *model.Review) error {
	review.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO reviews (id, product_id, name, description, date)
		 VALUES ($1, $2, $3, $4, NOW()) RETURNING date`,
		review.ID, review.ProductID, review.Name, review.Description,
	).Scan(&review.Date)
	if err != nil {
		if isForeignKeyViolation(err) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (r *pgReviewRepo) GetByID(ctx context.Context, productID, id uuid.UUID) (*model.Review, error) {
	review := &model.Review{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, product_id, name, description, date FROM reviews WHERE id = $1 AND product_id = $2`,
		id, productID,
	).Scan(&review.ID, &review.ProductID, &review.Name, &review.Description, &review.Date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

func (r *pgReviewRepo) ListByProductID(ctx context.Context, productID uuid.UUID) ([]model.Review, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, name, description, date FROM reviews WHERE product_id = $1 ORDER BY date DESC`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var review model.Review
		if err := rows.Scan(&review.ID, &review.ProductID, &review.Name, &review.Description, &review.Date); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

func (r *pgReviewRepo) Update(ctx context.Context, review *model.Review) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE reviews SET name = $3, description = $4 WHERE id = $1 AND product_id = $2`,
		review.ID, review.ProductID, review.Name, review.Description,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgReviewRepo) Delete(ctx context.Context, productID, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM reviews WHERE id = $1 AND product_id = $2`, id, productID,
	)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
