package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storely/storefront-api/internal/dto"
	"github.com/storely/storefront-api/internal/model"
)

type mockCustomerRepo struct {
	mu        sync.Mutex
	customers map[uuid.UUID]*model.Customer // keyed by customer id
	byUser    map[uuid.UUID]uuid.UUID       // user id -> customer id
}

func newMockCustomerRepo() *mockCustomerRepo {
	return &mockCustomerRepo{
		customers: make(map[uuid.UUID]*model.Customer),
		byUser:    make(map[uuid.UUID]uuid.UUID),
	}
}

// GetOrCreateByUserID mimics the conflict-as-fetch behavior of the
// real adapter: the loser of a concurrent first access gets the
// winner's row.
func (m *mockCustomerRepo) GetOrCreateByUserID(_ context.Context, userID uuid.UUID) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byUser[userID]; ok {
		out := *m.customers[id]
		return &out, nil
	}
	customer := &model.Customer{ID: uuid.New(), UserID: userID, Membership: model.MembershipBronze}
	m.customers[customer.ID] = customer
	m.byUser[userID] = customer.ID
	out := *customer
	return &out, nil
}

func (m *mockCustomerRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (m *mockCustomerRepo) List(_ context.Context) ([]model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Customer
	for _, c := range m.customers {
		all = append(all, *c)
	}
	return all, nil
}

func (m *mockCustomerRepo) Update(_ context.Context, customer *model.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[customer.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *customer
	m.customers[customer.ID] = &stored
	return nil
}

func TestCustomerService_Me_CreatesOnFirstAccess(t *testing.T) {
	repo := newMockCustomerRepo()
	svc := NewCustomerService(repo)
	userID := uuid.New()

	first, err := svc.Me(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, first.UserID)
	assert.Equal(t, string(model.MembershipBronze), first.Membership)

	second, err := svc.Me(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.customers, 1)
}

func TestCustomerService_Me_ConcurrentFirstAccess(t *testing.T) {
	repo := newMockCustomerRepo()
	svc := NewCustomerService(repo)
	userID := uuid.New()

	const callers = 8
	results := make([]uuid.UUID, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := svc.Me(context.Background(), userID)
			assert.NoError(t, err)
			results[i] = resp.ID
		}(i)
	}
	wg.Wait()

	// every caller resolved to the same single row
	assert.Len(t, repo.customers, 1)
	for _, id := range results[1:] {
		assert.Equal(t, results[0], id)
	}
}

func TestCustomerService_UpdateMe(t *testing.T) {
	repo := newMockCustomerRepo()
	svc := NewCustomerService(repo)
	userID := uuid.New()

	resp, err := svc.UpdateMe(context.Background(), userID, dto.UpdateCustomerRequest{
		Phone: "555-0100", Membership: "G",
	})
	require.NoError(t, err)
	assert.Equal(t, "555-0100", resp.Phone)
	assert.Equal(t, "G", resp.Membership)
}

func TestCustomerService_GetByID_NotFound(t *testing.T) {
	svc := NewCustomerService(newMockCustomerRepo())
	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}
