package order_test

import (
	"testing"

	"ordering/internal/core/domain/model/order"
	"ordering/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Validate(t *testing.T) {
	for _, s := range order.AllStatuses() {
		require.NoError(t, s.Validate(), s.String())
	}

	t.Run("should reject unknown", func(t *testing.T) {
		err := order.Unknown.Validate()

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		assert.Contains(t, err.Error(), "0 is not a valid status")
	})

	t.Run("should reject out of range", func(t *testing.T) {
		require.Error(t, order.Status(99).Validate())
		require.Error(t, order.Status(-1).Validate())
	})
}

func TestStatus_String(t *testing.T) {
	tests := map[order.Status]string{
		order.Unknown:            "Unknown",
		order.Submitted:          "Submitted",
		order.AwaitingValidation: "AwaitingValidation",
		order.StockConfirmed:     "StockConfirmed",
		order.Paid:               "Paid",
		order.Shipped:            "Shipped",
		order.Cancelled:          "Cancelled",
		order.Status(42):         "Unknown",
	}

	for status, expected := range tests {
		assert.Equal(t, expected, status.String())
	}
}

func TestStatus_TransitionTable(t *testing.T) {
	allowed := map[order.Status]map[order.Status]bool{
		order.Submitted:          {order.AwaitingValidation: true, order.Cancelled: true},
		order.AwaitingValidation: {order.StockConfirmed: true, order.Cancelled: true},
		order.StockConfirmed:     {order.Paid: true, order.Cancelled: true},
		order.Paid:               {order.Shipped: true, order.Cancelled: true},
	}

	for _, from := range order.AllStatuses() {
		for _, to := range order.AllStatuses() {
			expected := allowed[from][to]

			assert.Equal(t, expected, from.CanTransitionTo(to), "%s -> %s", from, to)

			next, err := from.TransitionTo(to)
			if expected {
				require.NoError(t, err)
				assert.Equal(t, to, next)
				continue
			}
			require.ErrorIs(t, err, errs.ErrInvalidTransition, "%s -> %s", from, to)
			assert.Equal(t, order.Unknown, next)
		}
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, order.Shipped.IsTerminal())
	assert.True(t, order.Cancelled.IsTerminal())
	assert.False(t, order.Submitted.IsTerminal())
	assert.False(t, order.Paid.IsTerminal())
}

func TestStatus_HasReached(t *testing.T) {
	tests := []struct {
		name    string
		current order.Status
		target  order.Status
		want    bool
	}{
		{"same status", order.Paid, order.Paid, true},
		{"beyond target", order.Shipped, order.StockConfirmed, true},
		{"behind target", order.AwaitingValidation, order.Paid, false},
		{"cancelled never reaches forward", order.Cancelled, order.Paid, false},
		{"forward never reaches cancelled", order.Shipped, order.Cancelled, false},
		{"cancelled reaches cancelled", order.Cancelled, order.Cancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.current.HasReached(tt.target))
		})
	}
}
