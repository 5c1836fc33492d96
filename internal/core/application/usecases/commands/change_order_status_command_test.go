package commands_test

import (
	"testing"

	"ordering/internal/core/application/usecases/commands"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChangeOrderStatusCommand(t *testing.T) {
	id := kernel.NewUUID()

	for _, effect := range commands.Effects() {
		cmd, err := commands.NewChangeOrderStatusCommand(id, effect)

		require.NoError(t, err)
		require.NoError(t, cmd.Validate())
		assert.True(t, cmd.OrderID().IsEqual(id))
		assert.Equal(t, effect, cmd.Effect())
	}
}

func TestNewChangeOrderStatusCommand_Invalid(t *testing.T) {
	_, err := commands.NewChangeOrderStatusCommand(kernel.UUID{}, commands.EffectShip)
	require.ErrorIs(t, err, errs.ErrValueIsRequired)

	_, err = commands.NewChangeOrderStatusCommand(kernel.NewUUID(), commands.Effect("refund"))
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	assert.Contains(t, err.Error(), `"refund" is not a known effect`)

	var cmd commands.ChangeOrderStatusCommand
	require.ErrorIs(t, cmd.Validate(), commands.ErrChangeOrderStatusCommandIsNotConstructed)
}

func TestNewRequeueOutboxEntryCommand(t *testing.T) {
	id := kernel.NewUUID()
	cmd, err := commands.NewRequeueOutboxEntryCommand(id)
	require.NoError(t, err)
	require.NoError(t, cmd.Validate())
	assert.True(t, cmd.EventID().IsEqual(id))

	_, err = commands.NewRequeueOutboxEntryCommand(kernel.UUID{})
	require.ErrorIs(t, err, errs.ErrValueIsRequired)
}

func TestNewCleanupRetentionCommand(t *testing.T) {
	_, err := commands.NewCleanupRetentionCommand(0, 1)
	require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)

	_, err = commands.NewCleanupRetentionCommand(1, -1)
	require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)

	var cmd commands.CleanupRetentionCommand
	require.ErrorIs(t, cmd.Validate(), commands.ErrCleanupRetentionCommandIsNotConstructed)
}
