package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"farm-market/internal/models"
)

// PlaceOrderTx inserts an order with its items and applies the inventory
// decrements in a single transaction. Each decrement is conditional on the
// remaining quantity, so two concurrent orders racing on the last units cannot
// both succeed: the statement that matches no row rolls the whole order back
// with ErrInsufficientStock.
func (s *Store) PlaceOrderTx(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, item := range items {
		res, err := tx.ExecContext(ctx,
			"UPDATE products SET quantity = quantity - $1 WHERE id = $2 AND quantity >= $1",
			item.Quantity, item.ProductID)
		if err != nil {
			return fmt.Errorf("failed to decrement stock for product %s: %w", item.ProductID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("product %s: %w", item.ProductName, ErrInsufficientStock)
		}
	}

	query := `
		INSERT INTO orders (id, buyer_id, buyer_name, total_amount, delivery_address,
		                    payment_method, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
		RETURNING created_at`

	err = tx.GetContext(ctx, &order.CreatedAt, query,
		order.ID, order.BuyerID, order.BuyerName, order.TotalAmount,
		order.DeliveryAddress, order.PaymentMethod, order.Status, order.IdempotencyKey)
	if isUniqueViolation(err) {
		return fmt.Errorf("order with idempotency key %s: %w", order.IdempotencyKey, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			items[i].OrderID, items[i].ProductID, items[i].ProductName,
			items[i].Quantity, items[i].UnitPrice, items[i].TotalPrice)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	order.Items = items
	return nil
}

// GetOrderByID retrieves an order by ID, without its items
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT id, buyer_id, buyer_name, total_amount, delivery_address, payment_method, status, COALESCE(idempotency_key, '') AS idempotency_key, created_at FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key, or nil if absent
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT id, buyer_id, buyer_name, total_amount, delivery_address, payment_method, status, COALESCE(idempotency_key, '') AS idempotency_key, created_at FROM orders WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order in insertion order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT order_id, product_id, product_name, quantity, unit_price, total_price FROM order_items WHERE order_id = $1 ORDER BY line_no", orderID)
	return items, err
}

// ListOrdersByBuyer retrieves a buyer's orders, newest first
func (s *Store) ListOrdersByBuyer(ctx context.Context, buyerID string, limit int) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders, `
		SELECT id, buyer_id, buyer_name, total_amount, delivery_address, payment_method,
		       status, COALESCE(idempotency_key, '') AS idempotency_key, created_at
		FROM orders WHERE buyer_id = $1
		ORDER BY created_at DESC LIMIT $2`, buyerID, limit)
	return orders, err
}

// ListOrdersByFarmer retrieves orders containing at least one of the farmer's
// products, newest first
func (s *Store) ListOrdersByFarmer(ctx context.Context, farmerID string, limit int) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders, `
		SELECT o.id, o.buyer_id, o.buyer_name, o.total_amount, o.delivery_address,
		       o.payment_method, o.status, COALESCE(o.idempotency_key, '') AS idempotency_key, o.created_at
		FROM orders o
		WHERE EXISTS (
			SELECT 1 FROM order_items oi
			JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = o.id AND p.farmer_id = $1
		)
		ORDER BY o.created_at DESC LIMIT $2`, farmerID, limit)
	return orders, err
}

// OrderContainsFarmerProduct reports whether any item of the order references
// a product owned by the farmer
func (s *Store) OrderContainsFarmerProduct(ctx context.Context, orderID, farmerID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM order_items oi
			JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = $1 AND p.farmer_id = $2
		)`, orderID, farmerID)
	return exists, err
}

// UpdateOrderStatus overwrites the order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1 WHERE id = $2", status, orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	return nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
