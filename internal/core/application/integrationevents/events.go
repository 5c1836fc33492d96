// Package integrationevents defines the cross-service contracts of the
// ordering service: the envelope every message travels in, the payloads it
// publishes and the events it understands from other services.
package integrationevents

import (
	"time"

	"ordering/internal/core/domain/model/kernel"
)

// Outbound event types.
const (
	OrderStatusChangedToAwaitingValidation = "OrderStatusChangedToAwaitingValidationIntegrationEvent"
	OrderStatusChangedToStockConfirmed     = "OrderStatusChangedToStockConfirmedIntegrationEvent"
	OrderStatusChangedToPaid               = "OrderStatusChangedToPaidIntegrationEvent"
	OrderStatusChangedToShipped            = "OrderStatusChangedToShippedIntegrationEvent"
	OrderStatusChangedToCancelled          = "OrderStatusChangedToCancelledIntegrationEvent"
)

// Inbound event types.
const (
	OrderStockConfirmed   = "OrderStockConfirmedIntegrationEvent"
	OrderStockRejected    = "OrderStockRejectedIntegrationEvent"
	OrderPaymentSucceeded = "OrderPaymentSucceededIntegrationEvent"
	OrderPaymentFailed    = "OrderPaymentFailedIntegrationEvent"
	GracePeriodConfirmed  = "GracePeriodConfirmedIntegrationEvent"
)

// Event is an integration event before serialization.
type Event struct {
	ID        kernel.UUID
	Type      string
	Topic     string
	OrderID   kernel.UUID
	CreatedAt time.Time
	Payload   any
}

// OrderStatusChanged is the payload of every outbound event.
type OrderStatusChanged struct {
	OrderID         string      `json:"orderId"`
	OrderStatus     string      `json:"orderStatus"`
	BuyerName       string      `json:"buyerName"`
	OrderStockItems []StockItem `json:"orderStockItems,omitempty"`
}

type StockItem struct {
	ProductID int64 `json:"productId"`
	Units     int   `json:"units"`
}
