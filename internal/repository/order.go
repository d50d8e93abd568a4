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

type OrderRepository interface {
	// PlaceOrder writes the order and its items and deletes the source
	// cart in a single transaction.
	PlaceOrder(ctx context.Context, order *model.Order, cartID uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByCustomerID(ctx context.Context, customerID uuid.UUID) ([]model.Order, error)
	ListAll(ctx context.Context) ([]model.Order, error)
	BeginTx(ctx context.Context) (pgx.Tx, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) error
	UpdatePaymentStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.PaymentStatus) error
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

func (r *pgOrderRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *pgOrderRepo) PlaceOrder(ctx context.Context, order *model.Order, cartID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, customer_id, payment_status, placed_at)
		 VALUES ($1, $2, $3, NOW()) RETURNING placed_at`,
		order.ID, order.CustomerID, order.PaymentStatus,
	).Scan(&order.PlacedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
			 VALUES ($1, $2, $3, $4, $5)`,
			order.Items[i].ID, order.Items[i].OrderID,
			order.Items[i].ProductID, order.Items[i].Quantity, order.Items[i].UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	// Checkout consumes the cart; its items cascade.
	if _, err = tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order := &model.Order{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, customer_id, payment_status, placed_at FROM orders WHERE id = $1`, id,
	).Scan(&order.ID, &order.CustomerID, &order.PaymentStatus, &order.PlacedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, quantity, unit_price FROM order_items WHERE order_id = $1`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.OrderID = order.ID
		order.Items = append(order.Items, item)
	}
	return order, rows.Err()
}

func (r *pgOrderRepo) ListByCustomerID(ctx context.Context, customerID uuid.UUID) ([]model.Order, error) {
	return r.list(ctx,
		`SELECT id, customer_id, payment_status, placed_at FROM orders
		 WHERE customer_id = $1 ORDER BY placed_at DESC`, customerID)
}

func (r *pgOrderRepo) ListAll(ctx context.Context) ([]model.Order, error) {
	return r.list(ctx,
		`SELECT id, customer_id, payment_status, placed_at FROM orders ORDER BY placed_at DESC`)
}

func (r *pgOrderRepo) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.PaymentStatus, &o.PlacedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *pgOrderRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET payment_status = $2 WHERE id = $1`, id, status,
	)
	return err
}

func (r *pgOrderRepo) UpdatePaymentStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.PaymentStatus) error {
	_, err := tx.Exec(ctx,
		`UPDATE orders SET payment_status = $2 WHERE id = $1`, id, status,
	)
	return err
}
