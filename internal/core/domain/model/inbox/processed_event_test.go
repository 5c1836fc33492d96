package inbox_test

import (
	"testing"
	"time"

	"ordering/internal/core/domain/model/inbox"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProcessedEvent(t *testing.T) {
	id := kernel.NewUUID()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	p, err := inbox.NewProcessedEvent(id, "OrderStockConfirmedIntegrationEvent", at)

	require.NoError(t, err)
	require.NoError(t, p.Validate())
	assert.True(t, p.EventID().IsEqual(id))
	assert.Equal(t, "OrderStockConfirmedIntegrationEvent", p.EventType())
	assert.Equal(t, at, p.ProcessedAt())

	_, err = inbox.NewProcessedEvent(id, "", at)
	require.ErrorIs(t, err, errs.ErrValueIsRequired)

	_, err = inbox.NewProcessedEvent(kernel.UUID{}, "x", at)
	require.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
}
