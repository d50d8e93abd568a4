package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/storely/storefront-api/internal/model"
	"github.com/storely/storefront-api/internal/repository"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderAccessDenied = errors.New("access denied")
)

type OrderService struct {
	orderRepo    repository.OrderRepository
	cartRepo     repository.CartRepository
	customerRepo repository.CustomerRepository
	amqpCh       *amqp.Channel
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	customerRepo repository.CustomerRepository,
	amqpCh *amqp.Channel,
) *OrderService {
	return &OrderService{orderRepo: orderRepo, cartRepo: cartRepo, customerRepo: customerRepo, amqpCh: amqpCh}
}

// Checkout turns a cart into an order. Each order item freezes the
// product's unit price as of now; later catalog changes never touch a
// placed order. Order, items, and cart removal commit in one
// transaction.
func (s *OrderService) Checkout(ctx context.Context, userID, cartID uuid.UUID) (*model.Order, error) {
	customer, err := s.customerRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve customer: %w", err)
	}

	cart, err := s.cartRepo.GetWithItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]model.OrderItem, 0, len(cart.Items))
	for _, ci := range cart.Items {
		items = append(items, model.OrderItem{
			ProductID: ci.ProductID,
			Quantity:  ci.Quantity,
			UnitPrice: ci.Product.UnitPrice,
		})
	}

	order := &model.Order{
		CustomerID:    customer.ID,
		PaymentStatus: model.PaymentPending,
		Items:         items,
	}
	if err := s.orderRepo.PlaceOrder(ctx, order, cartID); err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	// Hand the order to the worker for inventory and payment handling.
	if s.amqpCh != nil {
		msg, _ := json.Marshal(model.OrderMessage{OrderID: order.ID, CustomerID: customer.ID})
		_ = s.amqpCh.PublishWithContext(ctx, "", "orders", false, false, amqp.Publishing{
			ContentType:  "application/json",
			Body:         msg,
			DeliveryMode: amqp.Persistent,
		})
	}
	return order, nil
}

func (s *OrderService) GetByID(ctx context.Context, orderID, userID uuid.UUID, isAdmin bool) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !isAdmin {
		customer, err := s.customerRepo.GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("resolve customer: %w", err)
		}
		if order.CustomerID != customer.ID {
			return nil, ErrOrderAccessDenied
		}
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, userID uuid.UUID, isAdmin bool) ([]model.Order, error) {
	if isAdmin {
		return s.orderRepo.ListAll(ctx)
	}
	customer, err := s.customerRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve customer: %w", err)
	}
	return s.orderRepo.ListByCustomerID(ctx, customer.ID)
}
