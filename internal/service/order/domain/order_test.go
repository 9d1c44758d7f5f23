package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItems() []OrderItem {
	return []OrderItem{
		{ProductID: 1, ProductName: "keyboard", UnitPrice: 10000, Quantity: 10},
		{ProductID: 2, ProductName: "mouse", UnitPrice: 15000, Quantity: 20},
	}
}

func TestNewOrder(t *testing.T) {
	order, err := NewOrder(42, testItems(), 400000)
	require.NoError(t, err)

	assert.Equal(t, StateCreated, order.State)
	assert.Equal(t, int64(42), order.MemberID)
	assert.Equal(t, int64(400000), order.TotalPrice)
	assert.False(t, order.IsPersisted())
	assert.False(t, order.OrderDate.IsZero())
}

func TestOrderItemSubtotal(t *testing.T) {
	item := OrderItem{UnitPrice: 10000, Quantity: 100}
	assert.Equal(t, int64(1000000), item.Subtotal())
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from    State
		to      State
		allowed bool
	}{
		{StateCreated, StatePaid, true},
		{StateCreated, StateCancelled, true},
		{StatePaid, StateCancelled, true},
		{StatePaid, StateCreated, false},
		{StatePaid, StatePaid, false},
		{StateCancelled, StateCreated, false},
		{StateCancelled, StatePaid, false},
		{StateCancelled, StateCancelled, false},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestMarkAsPaid(t *testing.T) {
	order, err := NewOrder(1, testItems(), 400000)
	require.NoError(t, err)

	require.NoError(t, order.MarkAsPaid())
	assert.Equal(t, StatePaid, order.State)

	// 重复支付被状态机拒绝
	payErr := order.MarkAsPaid()
	var stateErr *InvalidStateError
	require.ErrorAs(t, payErr, &stateErr)
	assert.Equal(t, StatePaid, stateErr.State)
}

func TestMarkAsCancelled(t *testing.T) {
	t.Run("from created", func(t *testing.T) {
		order, err := NewOrder(1, testItems(), 400000)
		require.NoError(t, err)
		require.NoError(t, order.MarkAsCancelled())
		assert.Equal(t, StateCancelled, order.State)
	})

	t.Run("from paid", func(t *testing.T) {
		order, err := NewOrder(1, testItems(), 400000)
		require.NoError(t, err)
		require.NoError(t, order.MarkAsPaid())
		require.NoError(t, order.MarkAsCancelled())
		assert.Equal(t, StateCancelled, order.State)
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		order, err := NewOrder(1, testItems(), 400000)
		require.NoError(t, err)
		require.NoError(t, order.MarkAsCancelled())

		var stateErr *InvalidStateError
		require.ErrorAs(t, order.MarkAsCancelled(), &stateErr)
		require.ErrorAs(t, order.MarkAsPaid(), &stateErr)
	})
}
