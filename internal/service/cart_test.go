package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storely/storefront-api/internal/model"
	"github.com/storely/storefront-api/internal/pricing"
)

type mockCartRepo struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*model.Cart
	items map[uuid.UUID]*model.CartItem
	// products is consulted to join product data onto items
	products *mockProductRepo
}

func newMockCartRepo(products *mockProductRepo) *mockCartRepo {
	return &mockCartRepo{
		carts:    make(map[uuid.UUID]*model.Cart),
		items:    make(map[uuid.UUID]*model.CartItem),
		products: products,
	}
}

func (m *mockCartRepo) Create(_ context.Context, cart *model.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart.ID = uuid.New()
	m.carts[cart.ID] = cart
	return nil
}

func (m *mockCartRepo) GetWithItems(_ context.Context, cartID uuid.UUID) (*model.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[cartID]
	if !ok {
		return nil, nil
	}
	out := &model.Cart{ID: cart.ID, CreatedAt: cart.CreatedAt}
	for _, item := range m.items {
		if item.CartID == cartID {
			copied := *item
			copied.Product = m.products.products[item.ProductID]
			out.Items = append(out.Items, copied)
		}
	}
	return out, nil
}

func (m *mockCartRepo) Exists(_ context.Context, cartID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.carts[cartID]
	return ok, nil
}

// UpsertItem mirrors the ON CONFLICT increment the real adapter does.
func (m *mockCartRepo) UpsertItem(_ context.Context, item *model.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[item.CartID]; !ok {
		return pgx.ErrNoRows
	}
	for _, existing := range m.items {
		if existing.CartID == item.CartID && existing.ProductID == item.ProductID {
			existing.Quantity += item.Quantity
			item.ID = existing.ID
			item.Quantity = existing.Quantity
			return nil
		}
	}
	item.ID = uuid.New()
	stored := *item
	m.items[item.ID] = &stored
	return nil
}

func (m *mockCartRepo) GetItem(_ context.Context, cartID, itemID uuid.UUID) (*model.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.CartID != cartID {
		return nil, nil
	}
	copied := *item
	copied.Product = m.products.products[item.ProductID]
	return &copied, nil
}

func (m *mockCartRepo) UpdateItemQuantity(_ context.Context, cartID, itemID uuid.UUID, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.CartID != cartID {
		return pgx.ErrNoRows
	}
	item.Quantity = quantity
	return nil
}

func (m *mockCartRepo) DeleteItem(_ context.Context, cartID, itemID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.CartID != cartID {
		return pgx.ErrNoRows
	}
	delete(m.items, itemID)
	return nil
}

func (m *mockCartRepo) Delete(_ context.Context, cartID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[cartID]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.carts, cartID)
	for id, item := range m.items {
		if item.CartID == cartID {
			delete(m.items, id)
		}
	}
	return nil
}

func newTestCart(t *testing.T) (*CartService, *mockCartRepo, *mockProductRepo, uuid.UUID) {
	t.Helper()
	products := newMockProductRepo()
	cartRepo := newMockCartRepo(products)
	svc := NewCartService(cartRepo, products)
	cart, err := svc.CreateCart(context.Background())
	require.NoError(t, err)
	return svc, cartRepo, products, cart.ID
}

func addProduct(products *mockProductRepo, price string, inventory int) uuid.UUID {
	id := uuid.New()
	products.products[id] = &model.Product{
		ID: id, Title: "P", UnitPrice: decimal.RequireFromString(price), Inventory: inventory,
	}
	return id
}

func TestCartService_AddItem(t *testing.T) {
	svc, cartRepo, products, cartID := newTestCart(t)
	pid := addProduct(products, "9.99", 100)

	item, err := svc.AddItem(context.Background(), cartID, pid, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
	assert.Len(t, cartRepo.items, 1)
}

func TestCartService_AddItem_MergesQuantities(t *testing.T) {
	svc, cartRepo, products, cartID := newTestCart(t)
	pid := addProduct(products, "10.00", 100)

	_, err := svc.AddItem(context.Background(), cartID, pid, 2)
	require.NoError(t, err)
	item, err := svc.AddItem(context.Background(), cartID, pid, 3)
	require.NoError(t, err)

	// one row, accumulated quantity
	assert.Equal(t, 5, item.Quantity)
	assert.Len(t, cartRepo.items, 1)
}

func TestCartService_AddItem_ProductNotFound(t *testing.T) {
	svc, _, _, cartID := newTestCart(t)
	_, err := svc.AddItem(context.Background(), cartID, uuid.New(), 2)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCartService_AddItem_CartNotFound(t *testing.T) {
	svc, _, products, _ := newTestCart(t)
	pid := addProduct(products, "1.00", 1)
	_, err := svc.AddItem(context.Background(), uuid.New(), pid, 1)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestCartService_AddItem_InvalidQuantity(t *testing.T) {
	svc, cartRepo, products, cartID := newTestCart(t)
	pid := addProduct(products, "1.00", 1)

	_, err := svc.AddItem(context.Background(), cartID, pid, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Empty(t, cartRepo.items)
}

func TestCartService_UpdateItem_SetsNotIncrements(t *testing.T) {
	svc, _, products, cartID := newTestCart(t)
	pid := addProduct(products, "10.00", 100)

	item, err := svc.AddItem(context.Background(), cartID, pid, 2)
	require.NoError(t, err)

	updated, err := svc.UpdateItem(context.Background(), cartID, item.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Quantity)
}

func TestCartService_UpdateItem_NotFound(t *testing.T) {
	svc, _, _, cartID := newTestCart(t)
	_, err := svc.UpdateItem(context.Background(), cartID, uuid.New(), 2)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_RemoveItem_Absent(t *testing.T) {
	svc, _, _, cartID := newTestCart(t)
	err := svc.RemoveItem(context.Background(), cartID, uuid.New())
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_GetCart_NotFound(t *testing.T) {
	svc, _, _, _ := newTestCart(t)
	_, err := svc.GetCart(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestCartService_DeleteCart_CascadesItems(t *testing.T) {
	svc, cartRepo, products, cartID := newTestCart(t)
	pid := addProduct(products, "10.00", 100)
	_, err := svc.AddItem(context.Background(), cartID, pid, 1)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCart(context.Background(), cartID))
	assert.Empty(t, cartRepo.carts)
	assert.Empty(t, cartRepo.items)
}

// Scenario from the storefront's expected behavior: one product added
// twice ends up as a single line whose totals derive from the merged
// quantity.
func TestCartService_MergeScenario(t *testing.T) {
	svc, _, products, cartID := newTestCart(t)
	pid := addProduct(products, "10.00", 100)

	_, err := svc.AddItem(context.Background(), cartID, pid, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), cartID, pid, 3)
	require.NoError(t, err)

	cart, err := svc.GetCart(context.Background(), cartID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)

	itemTotal := pricing.ItemTotal(cart.Items[0].Product.UnitPrice, cart.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("50.00").Equal(itemTotal), "got %s", itemTotal)

	total := pricing.CartTotal(cart.Items)
	assert.True(t, decimal.RequireFromString("50.00").Equal(total), "got %s", total)
}

func TestCartService_ConcurrentAdds(t *testing.T) {
	svc, cartRepo, products, cartID := newTestCart(t)
	pid := addProduct(products, "10.00", 100)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddItem(context.Background(), cartID, pid, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cart, err := svc.GetCart(context.Background(), cartID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Len(t, cartRepo.items, 1)
}
