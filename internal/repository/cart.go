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

type CartRepository interface {
	Create(ctx context.Context, cart *model.Cart) error
	GetWithItems(ctx context.Context, cartID uuid.UUID) (*model.Cart, error)
	Exists(ctx context.Context, cartID uuid.UUID) (bool, error)
	UpsertItem(ctx context.Context, item *model.CartItem) error
	GetItem(ctx context.Context, cartID, itemID uuid.UUID) (*model.CartItem, error)
	UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error
	Delete(ctx context.Context, cartID uuid.UUID) error
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

func (r *pgCartRepo) Create(ctx context.Context, cart *model.Cart) error {
	cart.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO carts (id, created_at) VALUES ($1, NOW()) RETURNING created_at`,
		cart.ID,
	).Scan(&cart.CreatedAt)
	if err != nil {
		return fmt.Errorf("create cart: %w", err)
	}
	return nil
}

func (r *pgCartRepo) GetWithItems(ctx context.Context, cartID uuid.UUID) (*model.Cart, error) {
	cart := &model.Cart{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, created_at FROM carts WHERE id = $1`, cartID,
	).Scan(&cart.ID, &cart.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity,
				p.id, p.title, p.slug, p.description, p.unit_price, p.inventory, p.collection_id, p.last_update, p.created_at
		 FROM cart_items ci JOIN products p ON p.id = ci.product_id
		 WHERE ci.cart_id = $1 ORDER BY ci.id`, cartID,
	)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.CartItem
		var p model.Product
		if err := rows.Scan(
			&item.ID, &item.CartID, &item.ProductID, &item.Quantity,
			&p.ID, &p.Title, &p.Slug, &p.Description, &p.UnitPrice,
			&p.Inventory, &p.CollectionID, &p.LastUpdate, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		item.Product = &p
		cart.Items = append(cart.Items, item)
	}
	return cart, rows.Err()
}

func (r *pgCartRepo) Exists(ctx context.Context, cartID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`, cartID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check cart: %w", err)
	}
	return exists, nil
}

// UpsertItem merges on (cart_id, product_id): a repeat add increments
// the existing row's quantity instead of inserting a duplicate. The
// single statement is what makes concurrent adds of the same product
// converge without losing an increment.
func (r *pgCartRepo) UpsertItem(ctx context.Context, item *model.CartItem) error {
	item.ID = uuid.New()
	query := `INSERT INTO cart_items (id, cart_id, product_id, quantity)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (cart_id, product_id)
			  DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
			  RETURNING id, quantity`
	err := r.pool.QueryRow(ctx, query,
		item.ID, item.CartID, item.ProductID, item.Quantity,
	).Scan(&item.ID, &item.Quantity)
	if err != nil {
		if isForeignKeyViolation(err) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

func (r *pgCartRepo) GetItem(ctx context.Context, cartID, itemID uuid.UUID) (*model.CartItem, error) {
	item := &model.CartItem{}
	var p model.Product
	err := r.pool.QueryRow(ctx,
		`SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity,
				p.id, p.title, p.slug, p.description, p.unit_price, p.inventory, p.collection_id, p.last_update, p.created_at
		 FROM cart_items ci JOIN products p ON p.id = ci.product_id
		 WHERE ci.id = $1 AND ci.cart_id = $2`,
		itemID, cartID,
	).Scan(
		&item.ID, &item.CartID, &item.ProductID, &item.Quantity,
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.UnitPrice,
		&p.Inventory, &p.CollectionID, &p.LastUpdate, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	item.Product = &p
	return item, nil
}

func (r *pgCartRepo) UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE cart_items SET quantity = $3 WHERE id = $1 AND cart_id = $2`,
		itemID, cartID, quantity,
	)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgCartRepo) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID,
	)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes the cart; its items go with it via the FK cascade.
func (r *pgCartRepo) Delete(ctx context.Context, cartID uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
