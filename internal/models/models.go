package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role identifies which side of the marketplace a user is on.
type Role string

const (
	RoleFarmer Role = "farmer"
	RoleBuyer  Role = "buyer"
)

// ToRole parses a stored role string into a Role.
func ToRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleFarmer, RoleBuyer:
		return Role(s), true
	}
	return "", false
}

// User is a registered farmer or buyer.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Phone        string    `db:"phone" json:"phone"`
	Address      string    `db:"address" json:"address"`
	Role         Role      `db:"role" json:"user_type"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Product is a produce listing owned by a farmer.
type Product struct {
	ID          string          `db:"id" json:"id"`
	FarmerID    string          `db:"farmer_id" json:"farmer_id"`
	FarmerName  string          `db:"farmer_name" json:"farmer_name"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Category    string          `db:"category" json:"category"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Unit        string          `db:"unit" json:"unit"`
	ImageURL    string          `db:"image_url" json:"image_url,omitempty"`
	IsAvailable bool            `db:"is_available" json:"is_available"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ToOrderStatus parses a status string, reporting whether it is one of the
// known statuses.
func ToOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusDelivered, OrderStatusCancelled:
		return OrderStatus(s), true
	}
	return "", false
}

var validTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:   {OrderStatusConfirmed: true, OrderStatusCancelled: true},
	OrderStatusConfirmed: {OrderStatusDelivered: true},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return validTransitions[from][to]
}

// Order is an immutable record of a purchase. It is created together with its
// items in a single transaction and only its status changes afterwards.
type Order struct {
	ID              string          `db:"id" json:"id"`
	BuyerID         string          `db:"buyer_id" json:"buyer_id"`
	BuyerName       string          `db:"buyer_name" json:"buyer_name"`
	Items           []OrderItem     `db:"-" json:"items"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	DeliveryAddress string          `db:"delivery_address" json:"delivery_address"`
	PaymentMethod   string          `db:"payment_method" json:"payment_method"`
	Status          OrderStatus     `db:"status" json:"status"`
	IdempotencyKey  string          `db:"idempotency_key" json:"-"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// OrderItem is a single line of an order. Name and prices are snapshots taken
// at order time, not re-read from the catalog later.
type OrderItem struct {
	OrderID     string          `db:"order_id" json:"-"`
	ProductID   string          `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalPrice  decimal.Decimal `db:"total_price" json:"total_price"`
}

// DefaultPaymentMethod is recorded when the buyer does not pick one.
const DefaultPaymentMethod = "cash_on_delivery"

// ProcessedEvent tracks consumed events for worker idempotency.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
