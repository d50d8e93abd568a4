package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Auth ---

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
}

// --- Collection ---

type CreateCollectionRequest struct {
	Title string `json:"title" binding:"required"`
}

type CollectionResponse struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	ProductCount int       `json:"product_count"`
}

// --- Product ---

type CreateProductRequest struct {
	Title        string          `json:"title" binding:"required"`
	Slug         string          `json:"slug" binding:"required"`
	Description  string          `json:"description"`
	UnitPrice    decimal.Decimal `json:"unit_price" binding:"required"`
	Inventory    int             `json:"inventory" binding:"min=0"`
	CollectionID uuid.UUID       `json:"collection_id" binding:"required"`
}

type UpdateProductRequest struct {
	Title        *string          `json:"title"`
	Slug         *string          `json:"slug"`
	Description  *string          `json:"description"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	Inventory    *int             `json:"inventory"`
	CollectionID *uuid.UUID       `json:"collection_id"`
}

type ListProductsRequest struct {
	Page         int        `form:"page,default=1" binding:"min=1"`
	Limit        int        `form:"limit,default=20" binding:"min=1,max=100"`
	Search       string     `form:"search"`
	CollectionID *uuid.UUID `form:"collection_id"`
	Sort         string     `form:"sort,default=last_update" binding:"oneof=unit_price last_update title"`
	Order        string     `form:"order,default=desc" binding:"oneof=asc desc"`
}

type ProductResponse struct {
	ID           uuid.UUID       `json:"id"`
	Title        string          `json:"title"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	PriceWithTax decimal.Decimal `json:"price_with_tax"`
	Inventory    int             `json:"inventory"`
	CollectionID uuid.UUID       `json:"collection_id"`
	LastUpdate   time.Time       `json:"last_update"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// --- Review ---

type CreateReviewRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
}

type ReviewResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type CartItemResponse struct {
	ID         uuid.UUID       `json:"id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Title      string          `json:"title"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type CartResponse struct {
	ID         uuid.UUID          `json:"id"`
	Items      []CartItemResponse `json:"items"`
	TotalPrice decimal.Decimal    `json:"total_price"`
}

// --- Customer ---

type UpdateCustomerRequest struct {
	Phone      string     `json:"phone" binding:"required"`
	BirthDate  *time.Time `json:"birth_date"`
	Membership string     `json:"membership" binding:"omitempty,oneof=B S G"`
}

type CustomerResponse struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Phone      string     `json:"phone"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	Membership string     `json:"membership"`
}

// --- Order ---

type CreateOrderRequest struct {
	CartID uuid.UUID `json:"cart_id" binding:"required"`
}

type OrderItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type OrderResponse struct {
	ID            uuid.UUID           `json:"id"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	PaymentStatus string              `json:"payment_status"`
	PlacedAt      time.Time           `json:"placed_at"`
	Items         []OrderItemResponse `json:"items"`
	TotalPrice    decimal.Decimal     `json:"total_price"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}
