package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        uuid.UUID
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type Collection struct {
	ID    uuid.UUID
	Title string

	// ProductCount is populated on list/get reads, never stored.
	ProductCount int
}

type Product struct {
	ID           uuid.UUID
	Title        string
	Slug         string
	Description  string
	UnitPrice    decimal.Decimal
	Inventory    int
	CollectionID uuid.UUID
	LastUpdate   time.Time
	CreatedAt    time.Time
}

type Review struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	Name        string
	Description string
	Date        time.Time
}

type Cart struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Items     []CartItem
}

type CartItem struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int

	// Product is joined in on cart reads so totals can be derived
	// without extra round trips.
	Product *Product
}

type MembershipStatus string

const (
	MembershipBronze MembershipStatus = "B"
	MembershipSilver MembershipStatus = "S"
	MembershipGold   MembershipStatus = "G"
)

type Customer struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Phone      string
	BirthDate  *time.Time
	Membership MembershipStatus
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "P"
	PaymentComplete PaymentStatus = "C"
	PaymentFailed   PaymentStatus = "F"
)

type Order struct {
	ID            uuid.UUID
	CustomerID    uuid.UUID
	PaymentStatus PaymentStatus
	PlacedAt      time.Time
	Items         []OrderItem
}

type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int

	// UnitPrice is the product price frozen at checkout; it never
	// tracks later catalog changes.
	UnitPrice decimal.Decimal
}

type OrderMessage struct {
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
}
