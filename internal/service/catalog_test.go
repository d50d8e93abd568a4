package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storely/storefront-api/internal/dto"
	"github.com/storely/storefront-api/internal/model"
	"github.com/storely/storefront-api/internal/pricing"
	"github.com/storely/storefront-api/internal/repository"
)

type mockCollectionRepo struct {
	collections map[uuid.UUID]*model.Collection
	products    *mockProductRepo
}

func newMockCollectionRepo(products *mockProductRepo) *mockCollectionRepo {
	return &mockCollectionRepo{collections: make(map[uuid.UUID]*model.Collection), products: products}
}

func (m *mockCollectionRepo) Create(_ context.Context, c *model.Collection) error {
	c.ID = uuid.New()
	m.collections[c.ID] = c
	return nil
}

func (m *mockCollectionRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Collection, error) {
	c, ok := m.collections[id]
	if !ok {
		return nil, nil
	}
	out := *c
	out.ProductCount = m.products.countByCollection(id)
	return &out, nil
}

func (m *mockCollectionRepo) List(_ context.Context) ([]model.Collection, error) {
	var all []model.Collection
	for id, c := range m.collections {
		out := *c
		out.ProductCount = m.products.countByCollection(id)
		all = append(all, out)
	}
	return all, nil
}

func (m *mockCollectionRepo) Update(_ context.Context, c *model.Collection) error {
	existing, ok := m.collections[c.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	existing.Title = c.Title
	return nil
}

func (m *mockCollectionRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.collections[id]; !ok {
		return pgx.ErrNoRows
	}
	if m.products.countByCollection(id) > 0 {
		return repository.ErrReferenced
	}
	delete(m.collections, id)
	return nil
}

type mockProductRepo struct {
	products map[uuid.UUID]*model.Product
	// products referenced by at least one order item
	ordered map[uuid.UUID]bool
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[uuid.UUID]*model.Product), ordered: make(map[uuid.UUID]bool)}
}

func (m *mockProductRepo) countByCollection(collectionID uuid.UUID) int {
	n := 0
	for _, p := range m.products {
		if p.CollectionID == collectionID {
			n++
		}
	}
	return n
}

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	p.ID = uuid.New()
	p.LastUpdate = time.Now()
	p.CreatedAt = time.Now()
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	return m.products[id], nil
}

func (m *mockProductRepo) List(_ context.Context, _ repository.ProductFilter) ([]model.Product, int, error) {
	var all []model.Product
	for _, p := range m.products {
		all = append(all, *p)
	}
	return all, len(all), nil
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return pgx.ErrNoRows
	}
	if m.ordered[id] {
		return repository.ErrReferenced
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepo) DecrementInventory(_ context.Context, _ pgx.Tx, id uuid.UUID, qty int) error {
	p := m.products[id]
	if p == nil || p.Inventory < qty {
		return pgx.ErrNoRows
	}
	p.Inventory -= qty
	return nil
}

func newTestCatalog(products *mockProductRepo) (*CatalogService, *mockCollectionRepo) {
	collections := newMockCollectionRepo(products)
	return NewCatalogService(collections, products, nil, pricing.Default()), collections
}

func TestCatalogService_CreateProduct(t *testing.T) {
	products := newMockProductRepo()
	svc, collections := newTestCatalog(products)

	coll, err := svc.CreateCollection(context.Background(), dto.CreateCollectionRequest{Title: "Books"})
	require.NoError(t, err)
	require.Len(t, collections.collections, 1)

	resp, err := svc.CreateProduct(context.Background(), dto.CreateProductRequest{
		Title: "Go in Practice", Slug: "go-in-practice",
		UnitPrice: decimal.NewFromFloat(29.99), Inventory: 10, CollectionID: coll.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Go in Practice", resp.Title)
	assert.True(t, decimal.RequireFromString("32.99").Equal(resp.PriceWithTax), "got %s", resp.PriceWithTax)
}

func TestCatalogService_CreateProduct_NonPositivePrice(t *testing.T) {
	svc, _ := newTestCatalog(newMockProductRepo())
	_, err := svc.CreateProduct(context.Background(), dto.CreateProductRequest{
		Title: "Free", Slug: "free", UnitPrice: decimal.Zero, CollectionID: uuid.New(),
	})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestCatalogService_GetProduct_NotFound(t *testing.T) {
	svc, _ := newTestCatalog(newMockProductRepo())
	_, err := svc.GetProduct(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalogService_DeleteCollection_Empty(t *testing.T) {
	svc, collections := newTestCatalog(newMockProductRepo())
	coll, err := svc.CreateCollection(context.Background(), dto.CreateCollectionRequest{Title: "Empty"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCollection(context.Background(), coll.ID))
	assert.Empty(t, collections.collections)

	_, err = svc.GetCollection(context.Background(), coll.ID)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestCatalogService_DeleteCollection_WithProducts(t *testing.T) {
	products := newMockProductRepo()
	svc, _ := newTestCatalog(products)

	coll, err := svc.CreateCollection(context.Background(), dto.CreateCollectionRequest{Title: "Books"})
	require.NoError(t, err)
	_, err = svc.CreateProduct(context.Background(), dto.CreateProductRequest{
		Title: "B", Slug: "b", UnitPrice: decimal.NewFromInt(10), CollectionID: coll.ID,
	})
	require.NoError(t, err)

	err = svc.DeleteCollection(context.Background(), coll.ID)
	assert.ErrorIs(t, err, ErrCollectionNotEmpty)

	// rejected delete leaves the collection retrievable and unchanged
	got, err := svc.GetCollection(context.Background(), coll.ID)
	require.NoError(t, err)
	assert.Equal(t, "Books", got.Title)
	assert.Equal(t, 1, got.ProductCount)
}

func TestCatalogService_DeleteCollection_NotFound(t *testing.T) {
	svc, _ := newTestCatalog(newMockProductRepo())
	err := svc.DeleteCollection(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestCatalogService_DeleteProduct_Ordered(t *testing.T) {
	products := newMockProductRepo()
	svc, _ := newTestCatalog(products)

	id := uuid.New()
	products.products[id] = &model.Product{ID: id, Title: "Kept"}
	products.ordered[id] = true

	err := svc.DeleteProduct(context.Background(), id)
	assert.ErrorIs(t, err, ErrProductOrdered)
	assert.Contains(t, products.products, id)
}

func TestCatalogService_DeleteProduct(t *testing.T) {
	products := newMockProductRepo()
	svc, _ := newTestCatalog(products)

	id := uuid.New()
	products.products[id] = &model.Product{ID: id}

	require.NoError(t, svc.DeleteProduct(context.Background(), id))
	assert.Empty(t, products.products)
}
