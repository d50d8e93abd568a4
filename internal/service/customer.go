package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/storely/storefront-api/internal/dto"
	"github.com/storely/storefront-api/internal/model"
	"github.com/storely/storefront-api/internal/repository"
)

var ErrCustomerNotFound = errors.New("customer not found")

type CustomerService struct {
	customerRepo repository.CustomerRepository
}

func NewCustomerService(customerRepo repository.CustomerRepository) *CustomerService {
	return &CustomerService{customerRepo: customerRepo}
}

// Me resolves the authenticated principal to its customer profile,
// creating an empty one on first access. Concurrent first access for
// the same user resolves to a single row; the race never surfaces as
// an error.
func (s *CustomerService) Me(ctx context.Context, userID uuid.UUID) (*dto.CustomerResponse, error) {
	customer, err := s.customerRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create customer: %w", err)
	}
	resp := toCustomerResponse(customer)
	return &resp, nil
}

func (s *CustomerService) UpdateMe(ctx context.Context, userID uuid.UUID, req dto.UpdateCustomerRequest) (*dto.CustomerResponse, error) {
	customer, err := s.customerRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create customer: %w", err)
	}
	applyCustomerUpdate(customer, req)
	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	resp := toCustomerResponse(customer)
	return &resp, nil
}

func (s *CustomerService) List(ctx context.Context) ([]dto.CustomerResponse, error) {
	customers, err := s.customerRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	resp := make([]dto.CustomerResponse, 0, len(customers))
	for i := range customers {
		resp = append(resp, toCustomerResponse(&customers[i]))
	}
	return resp, nil
}

func (s *CustomerService) GetByID(ctx context.Context, id uuid.UUID) (*dto.CustomerResponse, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	resp := toCustomerResponse(customer)
	return &resp, nil
}

func (s *CustomerService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateCustomerRequest) (*dto.CustomerResponse, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	applyCustomerUpdate(customer, req)
	if err := s.customerRepo.Update(ctx, customer); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("update customer: %w", err)
	}
	resp := toCustomerResponse(customer)
	return &resp, nil
}

func applyCustomerUpdate(customer *model.Customer, req dto.UpdateCustomerRequest) {
	customer.Phone = req.Phone
	customer.BirthDate = req.BirthDate
	if req.Membership != "" {
		customer.Membership = model.MembershipStatus(req.Membership)
	}
}

func toCustomerResponse(c *model.Customer) dto.CustomerResponse {
	return dto.CustomerResponse{
		ID:         c.ID,
		UserID:     c.UserID,
		Phone:      c.Phone,
		BirthDate:  c.BirthDate,
		Membership: string(c.Membership),
	}
}
