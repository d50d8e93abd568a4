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

type CollectionRepository interface {
	Create(ctx context.Context, collection *model.Collection) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Collection, error)
	List(ctx context.Context) ([]model.Collection, error)
	Update(ctx context.Context, collection *model.Collection) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgCollectionRepo struct{ pool *pgxpool.Pool }

func NewCollectionRepository(pool *pgxpool.Pool) CollectionRepository {
	return &pgCollectionRepo{pool: pool}
}

func (r *pgCollectionRepo) Create(ctx context.Context, collection *model.Collection) error {
	collection.ID = uuid.New()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO collections (id, title) VALUES ($1, $2)`,
		collection.ID, collection.Title,
	)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

func (r *pgCollectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Collection, error) {
	c := &model.Collection{}
	err := r.pool.QueryRow(ctx,
		`SELECT c.id, c.title, COUNT(p.id)
		 FROM collections c LEFT JOIN products p ON p.collection_id = c.id
		 WHERE c.id = $1 GROUP BY c.id`, id,
	).Scan(&c.ID, &c.Title, &c.ProductCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return c, nil
}

func (r *pgCollectionRepo) List(ctx context.Context) ([]model.Collection, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.title, COUNT(p.id)
		 FROM collections c LEFT JOIN products p ON p.collection_id = c.id
		 GROUP BY c.id ORDER BY c.title`,
	)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var collections []model.Collection
	for rows.Next() {
		var c model.Collection
		if err := rows.Scan(&c.ID, &c.Title, &c.ProductCount); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

func (r *pgCollectionRepo) Update(ctx context.Context, collection *model.Collection) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE collections SET title = $2 WHERE id = $1`,
		collection.ID, collection.Title,
	)
	if err != nil {
		return fmt.Errorf("update collection: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes an empty collection. The product-reference check and
// the delete run as one statement so a concurrently inserted product
// cannot slip between them; the FK constraint backstops the same rule.
func (r *pgCollectionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM collections
		 WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM products WHERE collection_id = $1)`, id,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrReferenced
		}
		return fmt.Errorf("delete collection: %w", err)
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM collections WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check collection: %w", err)
		}
		if exists {
			return ErrReferenced
		}
		return pgx.ErrNoRows
	}
	return nil
}
