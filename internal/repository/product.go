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

type ProductFilter struct {
	Limit        int
	Offset       int
	Search       string
	CollectionID *uuid.UUID
	Sort         string
	Order        string
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	DecrementInventory(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

const productColumns = `id, title, slug, description, unit_price, inventory, collection_id, last_update, created_at`

func scanProduct(row pgx.Row, p *model.Product) error {
	return row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.UnitPrice,
		&p.Inventory, &p.CollectionID, &p.LastUpdate, &p.CreatedAt,
	)
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	product.ID = uuid.New()
	query := `INSERT INTO products (id, title, slug, description, unit_price, inventory, collection_id, last_update, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING last_update, created_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.Title, product.Slug, product.Description,
		product.UnitPrice, product.Inventory, product.CollectionID,
	).Scan(&product.LastUpdate, &product.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p := &model.Product{}
	err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id), p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *pgProductRepo) List(ctx context.Context, filter ProductFilter) ([]model.Product, int, error) {
	allowedSorts := map[string]string{
		"unit_price":  "unit_price",
		"last_update": "last_update",
		"title":       "title",
	}
	sort, ok := allowedSorts[filter.Sort]
	if !ok {
		sort = "last_update"
	}
	order := "desc"
	if filter.Order == "asc" {
		order = "asc"
	}

	where := `WHERE ($1 = '' OR title ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
			  AND ($2::uuid IS NULL OR collection_id = $2)`

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products `+where, filter.Search, filter.CollectionID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY %s %s LIMIT $3 OFFSET $4`,
		productColumns, where, sort, order)
	rows, err := r.pool.Query(ctx, query, filter.Search, filter.CollectionID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	query := `UPDATE products SET title=$2, slug=$3, description=$4, unit_price=$5, inventory=$6, collection_id=$7, last_update=NOW()
			  WHERE id=$1 RETURNING last_update`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.Title, product.Slug, product.Description,
		product.UnitPrice, product.Inventory, product.CollectionID,
	).Scan(&product.LastUpdate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// Delete refuses to remove a product that any order item references.
// Cart items referencing it are cascaded by the schema; an order is a
// record, a cart is not. Check and delete are a single statement so no
// order item can be inserted in between.
func (r *pgProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM products
		 WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM order_items WHERE product_id = $1)`, id,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrReferenced
		}
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check product: %w", err)
		}
		if exists {
			return ErrReferenced
		}
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgProductRepo) DecrementInventory(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error {
	ct, err := tx.Exec(ctx,
		`UPDATE products SET inventory = inventory - $2, last_update = NOW()
		 WHERE id = $1 AND inventory >= $2`,
		productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("decrement inventory: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("insufficient inventory for product %s", productID)
	}
	return nil
}
