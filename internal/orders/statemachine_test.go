package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/floorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/floorops-backend/pkg/errors"
)

func TestTransitionTableCoversEveryStatus(t *testing.T) {
	require.NoError(t, ValidateTable())
	for _, status := range enums.AllOrderStatuses() {
		_, ok := transitionTable[status]
		assert.True(t, ok, "missing rule for %s", status)
	}
}

func TestValidateTableDetectsGaps(t *testing.T) {
	declared := append(enums.AllOrderStatuses(), enums.OrderStatus("on_hold"))
	err := validateTable(transitionTable, declared)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "on_hold")

	broken := map[enums.OrderStatus]statusRule{}
	for k, v := range transitionTable {
		broken[k] = v
	}
	broken[enums.OrderStatusReady] = statusRule{next: []enums.OrderStatus{enums.OrderStatusPickedUp}}
	require.Error(t, validateTable(broken, enums.AllOrderStatuses()))

	broken[enums.OrderStatusReady] = statusRule{terminal: true, next: []enums.OrderStatus{enums.OrderStatusPickedUp}}
	require.Error(t, validateTable(broken, enums.AllOrderStatuses()))
}

func TestTransitionHappyPath(t *testing.T) {
	path := []enums.OrderStatus{
		enums.OrderStatusNew,
		enums.OrderStatusPending,
		enums.OrderStatusConfirmed,
		enums.OrderStatusPreparing,
		enums.OrderStatusReady,
		enums.OrderStatusPickedUp,
		enums.OrderStatusCompleted,
	}
	for i := 0; i < len(path)-1; i++ {
		result, err := Transition(path[i], path[i+1])
		require.NoError(t, err, "%s -> %s", path[i], path[i+1])
		assert.Equal(t, path[i], result.From)
		assert.Equal(t, path[i+1], result.To)
	}

	result, err := Transition(enums.OrderStatusPickedUp, enums.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, []Effect{EffectPaymentDue}, result.Effects)
	assert.Equal(t, "completed_at", result.TimestampColumn)

	result, err = Transition(enums.OrderStatusNew, enums.OrderStatusPending)
	require.NoError(t, err)
	assert.Empty(t, result.TimestampColumn)
	assert.Empty(t, result.Effects)
}

func TestEveryActiveStatusCanBeCancelled(t *testing.T) {
	for _, status := range enums.AllOrderStatuses() {
		if IsTerminal(status) {
			continue
		}
		result, err := Transition(status, enums.OrderStatusCancelled)
		require.NoError(t, err, string(status))
		assert.Equal(t, []Effect{EffectRefundRequested}, result.Effects)
		assert.Equal(t, "cancelled_at", result.TimestampColumn)
	}
}

func TestUndeclaredTransitionsAreInvalid(t *testing.T) {
	all := enums.AllOrderStatuses()
	for _, from := range all {
		for _, to := range all {
			if CanTransition(from, to) {
				continue
			}
			_, err := Transition(from, to)
			require.Error(t, err, "%s -> %s", from, to)
			assert.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err))
		}
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, status := range []enums.OrderStatus{enums.OrderStatusCompleted, enums.OrderStatusCancelled} {
		assert.True(t, IsTerminal(status))
		assert.Empty(t, AllowedTransitions(status))
	}
	assert.False(t, CanTransition(enums.OrderStatus("bogus"), enums.OrderStatusCancelled))
}

func TestNewToCompletedIsInvalid(t *testing.T) {
	_, err := Transition(enums.OrderStatusNew, enums.OrderStatusCompleted)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, enums.OrderStatusNew, details["from"])
}
