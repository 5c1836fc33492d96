package integrationevents

import (
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/pkg/errs"

	"github.com/goccy/go-json"
)

// Envelope is the wire format shared by all services.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	Topic     string          `json:"topic"`
	OrderID   string          `json:"orderId"`
	CreatedAt time.Time       `json:"createdAt"`
	Payload   json.RawMessage `json:"payload"`
}

// Marshal encodes e into its envelope.
func Marshal(e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, errs.NewValueIsInvalidErrorWithCause("payload", err)
	}

	return json.Marshal(Envelope{
		EventID:   e.ID.String(),
		EventType: e.Type,
		Topic:     e.Topic,
		OrderID:   e.OrderID.String(),
		CreatedAt: e.CreatedAt.UTC(),
		Payload:   payload,
	})
}

// Inbound is a decoded envelope with validated identifiers.
type Inbound struct {
	EventID   kernel.UUID
	EventType string
	OrderID   kernel.UUID
	CreatedAt time.Time
	Payload   json.RawMessage
}

// Unmarshal decodes and validates an envelope. Messages that fail here can
// never be processed, so all errors are ValueIsInvalid.
func Unmarshal(data []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Inbound{}, errs.NewValueIsInvalidErrorWithCause("envelope", err)
	}
	if env.EventType == "" {
		return Inbound{}, errs.NewValueIsRequiredError("eventType")
	}

	eventID, err := kernel.UUIDFromString(env.EventID)
	if err != nil {
		return Inbound{}, errs.NewValueIsInvalidErrorWithCause("eventId", err)
	}

	orderID := env.OrderID
	if orderID == "" {
		// Older producers only put the order id into the payload.
		var p struct {
			OrderID string `json:"orderId"`
		}
		if len(env.Payload) > 0 {
			_ = json.Unmarshal(env.Payload, &p)
		}
		orderID = p.OrderID
	}
	id, err := kernel.UUIDFromString(orderID)
	if err != nil {
		return Inbound{}, errs.NewValueIsInvalidErrorWithCause("orderId", err)
	}

	return Inbound{
		EventID:   eventID,
		EventType: env.EventType,
		OrderID:   id,
		CreatedAt: env.CreatedAt,
		Payload:   env.Payload,
	}, nil
}
