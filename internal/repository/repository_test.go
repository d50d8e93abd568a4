package repository

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/storely/storefront-api/internal/model"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		fmt.Println("TEST_DATABASE_URL not set, skipping integration tests")
		os.Exit(0)
	}

	var err error
	testPool, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to test database: %v\n", err)
		os.Exit(1)
	}
	defer testPool.Close()

	code := m.Run()
	os.Exit(code)
}

func cleanupTable(t *testing.T, tables ...string) {
	t.Helper()
	for _, table := range tables {
		_, err := testPool.Exec(context.Background(), fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Fatalf("failed to cleanup table %s: %v", table, err)
		}
	}
}

func cleanupAll(t *testing.T) {
	t.Helper()
	cleanupTable(t,
		"order_items", "orders", "cart_items", "carts",
		"reviews", "products", "collections", "customers", "users",
	)
}

func seedCollection(t *testing.T, title string) *model.Collection {
	t.Helper()
	c := &model.Collection{Title: title}
	require.NoError(t, NewCollectionRepository(testPool).Create(context.Background(), c))
	return c
}

func seedProduct(t *testing.T, collectionID uuid.UUID, price string, inventory int) *model.Product {
	t.Helper()
	p := &model.Product{
		Title:        "Widget",
		Slug:         "widget-" + uuid.NewString()[:8],
		UnitPrice:    decimal.RequireFromString(price),
		Inventory:    inventory,
		CollectionID: collectionID,
	}
	require.NoError(t, NewProductRepository(testPool).Create(context.Background(), p))
	return p
}

func seedUser(t *testing.T, email string) *model.User {
	t.Helper()
	u := &model.User{
		Email: email, Password: "hashed",
		FirstName: "Test", LastName: "User", Role: model.RoleCustomer,
	}
	require.NoError(t, NewUserRepository(testPool).Create(context.Background(), u))
	return u
}

func seedCart(t *testing.T) *model.Cart {
	t.Helper()
	cart := &model.Cart{}
	require.NoError(t, NewCartRepository(testPool).Create(context.Background(), cart))
	return cart
}
