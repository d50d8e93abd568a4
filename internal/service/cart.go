package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/storely/storefront-api/internal/model"
	"github.com/storely/storefront-api/internal/repository"
)

var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
)

// CartService maintains anonymous baskets addressed by an opaque id.
// A cart is never tied to a principal; whoever holds the id holds the
// cart.
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo}
}

func (s *CartService) CreateCart(ctx context.Context) (*model.Cart, error) {
	cart := &model.Cart{}
	if err := s.cartRepo.Create(ctx, cart); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) GetCart(ctx context.Context, cartID uuid.UUID) (*model.Cart, error) {
	cart, err := s.cartRepo.GetWithItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	return cart, nil
}

// AddItem adds a product to the cart, merging with any existing item
// for the same product: the quantities accumulate, a second row is
// never created.
func (s *CartService) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*model.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	exists, err := s.cartRepo.Exists(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("check cart: %w", err)
	}
	if !exists {
		return nil, ErrCartNotFound
	}

	item := &model.CartItem{CartID: cartID, ProductID: productID, Quantity: quantity}
	if err := s.cartRepo.UpsertItem(ctx, item); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("add cart item: %w", err)
	}
	item.Product = product
	return item, nil
}

// UpdateItem sets the quantity outright; it does not accumulate.
func (s *CartService) UpdateItem(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (*model.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	if err := s.cartRepo.UpdateItemQuantity(ctx, cartID, itemID, quantity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	item, err := s.cartRepo.GetItem(ctx, cartID, itemID)
	if err != nil {
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	if item == nil {
		return nil, ErrCartItemNotFound
	}
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	if err := s.cartRepo.DeleteItem(ctx, cartID, itemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCartItemNotFound
		}
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

func (s *CartService) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	if err := s.cartRepo.Delete(ctx, cartID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCartNotFound
		}
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
