package worker

import (
	"context"
	"fmt"

	"farm-market/internal/broker"
	"farm-market/internal/models"
	"farm-market/internal/util"

	"go.uber.org/zap"
)

// EventLog records which events have already been handled.
type EventLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// StatusCache mirrors the latest known order status.
type StatusCache interface {
	SetOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error
}

// NotificationWorker consumes order events and fans them out to the
// notification side effects: status cache warm-up and delivery bookkeeping.
// Events are deduplicated so redelivered Kafka messages are harmless.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	events       EventLog
	cache        StatusCache
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, events EventLog, cache StatusCache) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		events:   events,
		cache:    cache,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	eventHandler.OnOrderStatusChanged(w.handleOrderStatusChanged)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	processed, err := w.events.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		util.NotificationsSkippedTotal.Inc()
		return nil
	}

	if err := w.cache.SetOrderStatus(ctx, event.OrderID, models.OrderStatusPending); err != nil {
		w.logger.Warn("Failed to warm order status cache",
			zap.String("order_id", event.OrderID), zap.Error(err))
	}

	w.logger.Info("Order placed notification",
		zap.String("order_id", event.OrderID),
		zap.String("buyer_id", event.BuyerID),
		zap.String("total_amount", event.TotalAmount.String()),
		zap.Int("items", len(event.Items)))

	if err := w.events.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	util.NotificationsProcessedTotal.WithLabelValues(event.EventType).Inc()
	return nil
}

func (w *NotificationWorker) handleOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	processed, err := w.events.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		util.NotificationsSkippedTotal.Inc()
		return nil
	}

	if err := w.cache.SetOrderStatus(ctx, event.OrderID, event.NewStatus); err != nil {
		w.logger.Warn("Failed to refresh order status cache",
			zap.String("order_id", event.OrderID), zap.Error(err))
	}

	w.logger.Info("Order status notification",
		zap.String("order_id", event.OrderID),
		zap.String("old_status", string(event.OldStatus)),
		zap.String("new_status", string(event.NewStatus)))

	if err := w.events.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	util.NotificationsProcessedTotal.WithLabelValues(event.EventType).Inc()
	return nil
}
