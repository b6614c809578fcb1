package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farm-market/internal/models"
	"farm-market/internal/store"
	"farm-market/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const listOrdersLimit = 100

// OrderService owns order placement, visibility and status transitions.
type OrderService struct {
	orders    OrderStore
	catalog   CatalogStore
	cache     Cache
	publisher EventPublisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(orders OrderStore, catalog CatalogStore, cache Cache, publisher EventPublisher) *OrderService {
	return &OrderService{
		orders:    orders,
		catalog:   catalog,
		cache:     cache,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// OrderItemRequest is one cart line as submitted by the client. UnitPrice and
// TotalPrice are accepted for wire compatibility but the authoritative prices
// are read from the catalog at placement time.
type OrderItemRequest struct {
	ProductID   string          `json:"product_id" binding:"required"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// PlaceOrderRequest is the client-submitted cart.
type PlaceOrderRequest struct {
	Items           []OrderItemRequest `json:"items" binding:"required,min=1"`
	DeliveryAddress string             `json:"delivery_address" binding:"required"`
	PaymentMethod   string             `json:"payment_method"`
	IdempotencyKey  string             `json:"idempotency_key,omitempty"`
}

// PlaceOrder validates the cart against live inventory and, if every line can
// be satisfied, records the order and decrements stock in one transaction.
// A failure on any line aborts the whole order with no mutation.
func (s *OrderService) PlaceOrder(ctx context.Context, buyer *models.User, req *PlaceOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.OrderPlacementLatency.Observe(time.Since(start).Seconds())
	}()

	if buyer.Role != models.RoleBuyer {
		util.OrdersRejectedTotal.WithLabelValues("not_buyer").Inc()
		return nil, fmt.Errorf("only buyers can create orders: %w", ErrForbidden)
	}

	if req.IdempotencyKey != "" {
		existing, err := s.orders.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			s.logger.Info("Duplicate order request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("order_id", existing.ID))
			return s.attachItems(ctx, existing)
		}
	}

	items, total, err := s.validateCart(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.DefaultPaymentMethod
	}

	order := &models.Order{
		ID:              uuid.NewString(),
		BuyerID:         buyer.ID,
		BuyerName:       buyer.FullName,
		TotalAmount:     total,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   paymentMethod,
		Status:          models.OrderStatusPending,
		IdempotencyKey:  req.IdempotencyKey,
	}

	if err := s.orders.PlaceOrderTx(ctx, order, items); err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			// Stock moved between the read-only check and the decrement;
			// the conditional update caught it and the tx rolled back.
			util.OrdersRejectedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, fmt.Errorf("%v: %w", err, ErrInsufficientStock)
		}
		util.OrdersRejectedTotal.WithLabelValues("storage_error").Inc()
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("buyer_id", order.BuyerID),
		zap.String("total_amount", order.TotalAmount.String()),
		zap.Int("items", len(order.Items)))

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.NewString(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		BuyerID:     order.BuyerID,
		TotalAmount: order.TotalAmount,
		Items:       toEventItems(order.Items),
	}
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	return order, nil
}

// validateCart checks every line against the catalog before anything is
// written: ids must parse, products must exist, stock must cover the request.
// Line totals come from the catalog's current unit price.
func (s *OrderService) validateCart(ctx context.Context, lines []OrderItemRequest) ([]models.OrderItem, decimal.Decimal, error) {
	var zero decimal.Decimal

	productIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, err := uuid.Parse(line.ProductID); err != nil {
			util.OrdersRejectedTotal.WithLabelValues("invalid_product_id").Inc()
			return nil, zero, fmt.Errorf("invalid product ID %s: %w", line.ProductID, ErrInvalidArgument)
		}
		if line.Quantity <= 0 {
			util.OrdersRejectedTotal.WithLabelValues("invalid_quantity").Inc()
			return nil, zero, fmt.Errorf("quantity must be positive for product %s: %w", line.ProductID, ErrInvalidArgument)
		}
		productIDs = append(productIDs, line.ProductID)
	}

	products, err := s.catalog.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, zero, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[string]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	items := make([]models.OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok {
			util.OrdersRejectedTotal.WithLabelValues("product_not_found").Inc()
			return nil, zero, fmt.Errorf("product %s not found: %w", line.ProductID, ErrNotFound)
		}
		if product.Quantity < line.Quantity {
			util.OrdersRejectedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, zero, &InsufficientStockError{ProductName: product.Name}
		}

		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
			TotalPrice:  lineTotal,
		})
		total = total.Add(lineTotal)
	}

	return items, total, nil
}

// GetOrder retrieves an order if the requester is entitled to see it: the
// buyer who placed it, or a farmer with at least one product in it.
func (s *OrderService) GetOrder(ctx context.Context, requester *models.User, orderID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	if _, err := uuid.Parse(orderID); err != nil {
		return nil, fmt.Errorf("invalid order ID %s: %w", orderID, ErrInvalidArgument)
	}

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		return nil, err
	}

	if order.BuyerID != requester.ID {
		allowed := false
		if requester.Role == models.RoleFarmer {
			allowed, err = s.orders.OrderContainsFarmerProduct(ctx, orderID, requester.ID)
			if err != nil {
				return nil, err
			}
		}
		if !allowed {
			return nil, fmt.Errorf("access denied to order %s: %w", orderID, ErrForbidden)
		}
	}

	return s.attachItems(ctx, order)
}

// ListOrders returns the requester's orders newest first, capped at 100.
// Buyers see orders they placed; farmers see orders containing their produce.
func (s *OrderService) ListOrders(ctx context.Context, requester *models.User) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	var (
		orders []models.Order
		err    error
	)
	switch requester.Role {
	case models.RoleBuyer:
		orders, err = s.orders.ListOrdersByBuyer(ctx, requester.ID, listOrdersLimit)
	case models.RoleFarmer:
		orders, err = s.orders.ListOrdersByFarmer(ctx, requester.ID, listOrdersLimit)
	default:
		return nil, fmt.Errorf("unknown role %q: %w", requester.Role, ErrForbidden)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	for i := range orders {
		items, err := s.orders.GetOrderItemsByOrderID(ctx, orders[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load items for order %s: %w", orders[i].ID, err)
		}
		orders[i].Items = items
	}
	return orders, nil
}

// UpdateStatus moves an order along the pending→confirmed→delivered /
// pending→cancelled graph. Only the order's buyer may transition it.
func (s *OrderService) UpdateStatus(ctx context.Context, requester *models.User, orderID, newStatusStr string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	newStatus, ok := models.ToOrderStatus(newStatusStr)
	if !ok {
		return nil, fmt.Errorf("invalid status %q: %w", newStatusStr, ErrInvalidArgument)
	}
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, fmt.Errorf("invalid order ID %s: %w", orderID, ErrInvalidArgument)
	}

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		return nil, err
	}

	if order.BuyerID != requester.ID {
		return nil, fmt.Errorf("only the order's buyer may update its status: %w", ErrForbidden)
	}
	if !models.CanTransition(order.Status, newStatus) {
		return nil, fmt.Errorf("cannot transition order from %s to %s: %w", order.Status, newStatus, ErrInvalidArgument)
	}

	if err := s.orders.UpdateOrderStatus(ctx, orderID, newStatus); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	util.OrderStatusUpdatesTotal.WithLabelValues(string(newStatus)).Inc()

	if err := s.cache.SetOrderStatus(ctx, orderID, newStatus); err != nil {
		s.logger.Warn("Failed to refresh order status cache",
			zap.String("order_id", orderID), zap.Error(err))
	}

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.NewString(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:   orderID,
		BuyerID:   order.BuyerID,
		OldStatus: order.Status,
		NewStatus: newStatus,
	}
	if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}

	order.Status = newStatus
	return s.attachItems(ctx, order)
}

func (s *OrderService) attachItems(ctx context.Context, order *models.Order) (*models.Order, error) {
	items, err := s.orders.GetOrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	order.Items = items
	return order, nil
}

func toEventItems(items []models.OrderItem) []models.OrderItemData {
	out := make([]models.OrderItemData, 0, len(items))
	for _, item := range items {
		out = append(out, models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return out
}
