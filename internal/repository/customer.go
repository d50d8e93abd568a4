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

type CustomerRepository interface {
	GetOrCreateByUserID(ctx context.Context, userID uuid.UUID) (*model.Customer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	List(ctx context.Context) ([]model.Customer, error)
	Update(ctx context.Context, customer *model.Customer) error
}

type pgCustomerRepo struct{ pool *pgxpool.Pool }

func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &pgCustomerRepo{pool: pool}
}

const customerColumns = `id, user_id, phone, birth_date, membership`

func scanCustomer(row pgx.Row, c *model.Customer) error {
	return row.Scan(&c.ID, &c.UserID, &c.Phone, &c.BirthDate, &c.Membership)
}

// GetOrCreateByUserID resolves a principal to its customer profile,
// creating one on first access. The insert tolerates a concurrent
// first access: ON CONFLICT DO NOTHING plus the follow-up select means
// whichever request loses the race fetches the winner's row instead of
// failing on the unique constraint.
func (r *pgCustomerRepo) GetOrCreateByUserID(ctx context.Context, userID uuid.UUID) (*model.Customer, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO customers (id, user_id, phone, membership)
		 VALUES ($1, $2, '', $3)
		 ON CONFLICT (user_id) DO NOTHING`,
		uuid.New(), userID, model.MembershipBronze,
	)
	if err != nil && !isUniqueViolation(err) {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	customer := &model.Customer{}
	err = scanCustomer(r.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE user_id = $1`, userID), customer)
	if err != nil {
		return nil, fmt.Errorf("get customer by user id: %w", err)
	}
	return customer, nil
}

func (r *pgCustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	customer := &model.Customer{}
	err := scanCustomer(r.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id), customer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return customer, nil
}

func (r *pgCustomerRepo) List(ctx context.Context) ([]model.Customer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+customerColumns+` FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var c model.Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *pgCustomerRepo) Update(ctx context.Context, customer *model.Customer) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE customers SET phone = $2, birth_date = $3, membership = $4 WHERE id = $1`,
		customer.ID, customer.Phone, customer.BirthDate, customer.Membership,
	)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
