package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"farm-market/internal/models"
	"farm-market/internal/store"
)

// fakeStore is an in-memory stand-in for the sqlx store. PlaceOrderTx keeps
// the all-or-nothing semantics of the real transaction.
type fakeStore struct {
	mu        sync.Mutex
	users     map[string]*models.User
	products  map[string]*models.Product
	orders    map[string]*models.Order
	items     map[string][]models.OrderItem
	processed map[string]string
	clock     time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]*models.User),
		products:  make(map[string]*models.Product),
		orders:    make(map[string]*models.Order),
		items:     make(map[string][]models.OrderItem),
		processed: make(map[string]string),
		clock:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func copyUser(u models.User) *models.User          { return &u }
func copyProduct(p models.Product) *models.Product { return &p }
func copyOrder(o models.Order) *models.Order       { return &o }

// UserStore

func (f *fakeStore) CreateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("username or email already registered: %w", store.ErrDuplicate)
		}
	}
	user.CreatedAt = f.tick()
	f.users[user.ID] = copyUser(*user)
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	return copyUser(*u), nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return copyUser(*u), nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", username, store.ErrNotFound)
}

func (f *fakeStore) UserExists(_ context.Context, username, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// CatalogStore

func (f *fakeStore) CreateProduct(_ context.Context, product *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	product.CreatedAt = f.tick()
	f.products[product.ID] = copyProduct(*product)
	return nil
}

func (f *fakeStore) GetProductByID(_ context.Context, id string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, store.ErrNotFound)
	}
	return copyProduct(*p), nil
}

func (f *fakeStore) GetProductsByIDs(_ context.Context, ids []string) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Product{}
	seen := map[string]bool{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok && !seen[id] {
			out = append(out, *p)
			seen[id] = true
		}
	}
	return out, nil
}

func (f *fakeStore) ListProducts(_ context.Context, filter store.ProductFilter) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Product{}
	for _, p := range f.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.FarmerID != "" && p.FarmerID != filter.FarmerID {
			continue
		}
		if filter.AvailableOnly && (!p.IsAvailable || p.Quantity <= 0) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > 100 {
		out = out[:100]
	}
	return out, nil
}

func (f *fakeStore) UpdateProduct(_ context.Context, id, farmerID string, upd store.ProductUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok || p.FarmerID != farmerID {
		return fmt.Errorf("product %s for farmer %s: %w", id, farmerID, store.ErrNotFound)
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Quantity != nil {
		p.Quantity = *upd.Quantity
	}
	if upd.ImageURL != nil {
		p.ImageURL = *upd.ImageURL
	}
	if upd.IsAvailable != nil {
		p.IsAvailable = *upd.IsAvailable
	}
	return nil
}

func (f *fakeStore) DeleteProduct(_ context.Context, id, farmerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok || p.FarmerID != farmerID {
		return fmt.Errorf("product %s for farmer %s: %w", id, farmerID, store.ErrNotFound)
	}
	delete(f.products, id)
	return nil
}

// OrderStore

func (f *fakeStore) PlaceOrderTx(_ context.Context, order *models.Order, items []models.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if order.IdempotencyKey != "" {
		for _, o := range f.orders {
			if o.IdempotencyKey == order.IdempotencyKey {
				return fmt.Errorf("order with idempotency key %s: %w", order.IdempotencyKey, store.ErrDuplicate)
			}
		}
	}

	for _, item := range items {
		p, ok := f.products[item.ProductID]
		if !ok || p.Quantity < item.Quantity {
			return fmt.Errorf("product %s: %w", item.ProductName, store.ErrInsufficientStock)
		}
	}
	for _, item := range items {
		f.products[item.ProductID].Quantity -= item.Quantity
	}

	order.CreatedAt = f.tick()
	stored := make([]models.OrderItem, len(items))
	for i := range items {
		items[i].OrderID = order.ID
		stored[i] = items[i]
	}
	f.orders[order.ID] = copyOrder(*order)
	f.items[order.ID] = stored
	order.Items = items
	return nil
}

func (f *fakeStore) GetOrderByID(_ context.Context, id string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, store.ErrNotFound)
	}
	return copyOrder(*o), nil
}

func (f *fakeStore) GetOrderByIdempotencyKey(_ context.Context, key string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.IdempotencyKey == key {
			return copyOrder(*o), nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetOrderItemsByOrderID(_ context.Context, orderID string) ([]models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OrderItem{}, f.items[orderID]...), nil
}

func (f *fakeStore) ListOrdersByBuyer(_ context.Context, buyerID string, limit int) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Order{}
	for _, o := range f.orders {
		if o.BuyerID == buyerID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListOrdersByFarmer(_ context.Context, farmerID string, limit int) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Order{}
	for id, o := range f.orders {
		if f.orderHasFarmerProduct(id, farmerID) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) OrderContainsFarmerProduct(_ context.Context, orderID, farmerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orderHasFarmerProduct(orderID, farmerID), nil
}

func (f *fakeStore) orderHasFarmerProduct(orderID, farmerID string) bool {
	for _, item := range f.items[orderID] {
		if p, ok := f.products[item.ProductID]; ok && p.FarmerID == farmerID {
			return true
		}
	}
	return false
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, orderID string, status models.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, store.ErrNotFound)
	}
	o.Status = status
	return nil
}

// fakeCache is a no-op cache recording the last status written per order.
type fakeCache struct {
	mu       sync.Mutex
	products map[string]*models.Product
	statuses map[string]models.OrderStatus
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		products: make(map[string]*models.Product),
		statuses: make(map[string]models.OrderStatus),
	}
}

func (c *fakeCache) GetProduct(_ context.Context, id string) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (c *fakeCache) SetProduct(_ context.Context, product *models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *product
	c.products[product.ID] = &cp
	return nil
}

func (c *fakeCache) InvalidateProduct(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, id)
	return nil
}

func (c *fakeCache) SetOrderStatus(_ context.Context, orderID string, status models.OrderStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[orderID] = status
	return nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu            sync.Mutex
	placed        []*models.OrderPlacedEvent
	statusChanged []*models.OrderStatusChangedEvent
}

func (p *fakePublisher) PublishOrderPlaced(_ context.Context, event *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, event)
	return nil
}

func (p *fakePublisher) PublishOrderStatusChanged(_ context.Context, event *models.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusChanged = append(p.statusChanged, event)
	return nil
}
