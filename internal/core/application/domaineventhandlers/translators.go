package domaineventhandlers

import (
	"context"
	"fmt"
	"log/slog"

	"ordering/internal/core/application/integrationevents"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/pkg/clock"
)

// NewOrderStatusDispatcher wires one translator per status-changed event.
func NewOrderStatusDispatcher(topics integrationevents.Topics, clk clock.Clock, logger *slog.Logger) *Dispatcher {
	d := NewDispatcher(logger)

	d.Register(order.StatusChangedToAwaitingValidation,
		statusChanged(topics.AwaitingValidation, integrationevents.OrderStatusChangedToAwaitingValidation, true, clk))
	d.Register(order.StatusChangedToStockConfirmed,
		statusChanged(topics.StockConfirmed, integrationevents.OrderStatusChangedToStockConfirmed, false, clk))
	d.Register(order.StatusChangedToPaid,
		statusChanged(topics.Paid, integrationevents.OrderStatusChangedToPaid, true, clk))
	d.Register(order.StatusChangedToShipped,
		statusChanged(topics.Shipped, integrationevents.OrderStatusChangedToShipped, false, clk))
	d.Register(order.StatusChangedToCancelled,
		statusChanged(topics.Cancelled, integrationevents.OrderStatusChangedToCancelled, false, clk))

	return d
}

// statusChanged reads the order and its buyer as they are inside the
// transaction and snapshots them into an OrderStatusChanged payload.
func statusChanged(topic, eventType string, withStockItems bool, clk clock.Clock) Translator {
	return func(ctx context.Context, event order.DomainEvent, lookups Lookups) (integrationevents.Event, error) {
		changed, ok := event.(order.StatusChangedEvent)
		if !ok {
			return integrationevents.Event{}, fmt.Errorf("unexpected domain event %T for %s", event, eventType)
		}

		o, err := lookups.Order(ctx, changed.OrderID())
		if err != nil {
			return integrationevents.Event{}, err
		}
		b, err := lookups.Buyer(ctx, o.BuyerID())
		if err != nil {
			return integrationevents.Event{}, err
		}

		payload := integrationevents.OrderStatusChanged{
			OrderID:     o.ID().String(),
			OrderStatus: changed.To().String(),
			BuyerName:   b.Name(),
		}
		if withStockItems {
			for _, item := range changed.Items() {
				payload.OrderStockItems = append(payload.OrderStockItems, integrationevents.StockItem{
					ProductID: item.ProductID(),
					Units:     item.Units(),
				})
			}
		}

		return integrationevents.Event{
			ID:        kernel.NewTimeOrderedUUID(),
			Type:      eventType,
			Topic:     topic,
			OrderID:   o.ID(),
			CreatedAt: clk.Now(),
			Payload:   payload,
		}, nil
	}
}
