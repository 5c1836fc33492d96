package integrationevents

import (
	"ordering/internal/pkg/errs"
)

// Topics names the bus topics outbound events are written to.
type Topics struct {
	AwaitingValidation string
	StockConfirmed     string
	Paid               string
	Shipped            string
	Cancelled          string
}

func DefaultTopics() Topics {
	return Topics{
		AwaitingValidation: "order-awaiting-validation",
		StockConfirmed:     "order-stock-confirmed",
		Paid:               "order-paid",
		Shipped:            "order-shipped",
		Cancelled:          "order-cancelled",
	}
}

// DefaultInboundTopics are the topics the consumer subscribes to.
func DefaultInboundTopics() []string {
	return []string{"inbound-stock-confirmation", "inbound-payment-result", "inbound-grace-period"}
}

func (t Topics) Validate() error {
	for name, topic := range map[string]string{
		"awaiting validation topic": t.AwaitingValidation,
		"stock confirmed topic":     t.StockConfirmed,
		"paid topic":                t.Paid,
		"shipped topic":             t.Shipped,
		"cancelled topic":           t.Cancelled,
	} {
		if topic == "" {
			return errs.NewValueIsRequiredError(name)
		}
	}
	return nil
}
