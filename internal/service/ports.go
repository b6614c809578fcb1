package service

import (
	"context"

	"farm-market/internal/models"
	"farm-market/internal/store"
)

// UserStore is the slice of storage the auth service and middleware need.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UserExists(ctx context.Context, username, email string) (bool, error)
}

// CatalogStore is the slice of storage backing the product catalog.
type CatalogStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, error)
	UpdateProduct(ctx context.Context, id, farmerID string, upd store.ProductUpdate) error
	DeleteProduct(ctx context.Context, id, farmerID string) error
}

// OrderStore is the slice of storage owning order records and the inventory
// decrements they trigger.
type OrderStore interface {
	PlaceOrderTx(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error)
	ListOrdersByBuyer(ctx context.Context, buyerID string, limit int) ([]models.Order, error)
	ListOrdersByFarmer(ctx context.Context, farmerID string, limit int) ([]models.Order, error)
	OrderContainsFarmerProduct(ctx context.Context, orderID, farmerID string) (bool, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error
}

// Cache is the read-through cache for catalog lookups and order status.
type Cache interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	SetProduct(ctx context.Context, product *models.Product) error
	InvalidateProduct(ctx context.Context, id string) error
	SetOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error
}

// EventPublisher emits domain events after state has been committed.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}
