package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointshop/internal/service/order/domain"
)

func newTestOrderContext(t *testing.T) *OrderContext {
	t.Helper()
	order, err := domain.NewOrder(1, []domain.OrderItem{
		{ProductID: 1, ProductName: "keyboard", UnitPrice: 100, Quantity: 1},
	}, 100)
	require.NoError(t, err)
	return &OrderContext{Ctx: context.Background(), Order: order}
}

func TestTriggerCompensationLIFO(t *testing.T) {
	orderCtx := newTestOrderContext(t)

	var executed []string
	orderCtx.AddCompensation("first", func(ctx context.Context) error {
		executed = append(executed, "first")
		return nil
	})
	orderCtx.AddCompensation("second", func(ctx context.Context) error {
		executed = append(executed, "second")
		return nil
	})
	orderCtx.AddCompensation("third", func(ctx context.Context) error {
		executed = append(executed, "third")
		return nil
	})

	require.Equal(t, 3, orderCtx.CompensationCount())
	require.NoError(t, orderCtx.TriggerCompensation(context.Background()))

	// 后注册的先执行
	assert.Equal(t, []string{"third", "second", "first"}, executed)
	assert.Equal(t, 0, orderCtx.CompensationCount())
}

func TestTriggerCompensationContinuesAfterFailure(t *testing.T) {
	orderCtx := newTestOrderContext(t)

	var executed []string
	errBoom := errors.New("boom")
	orderCtx.AddCompensation("ok-1", func(ctx context.Context) error {
		executed = append(executed, "ok-1")
		return nil
	})
	orderCtx.AddCompensation("failing", func(ctx context.Context) error {
		executed = append(executed, "failing")
		return errBoom
	})
	orderCtx.AddCompensation("ok-2", func(ctx context.Context) error {
		executed = append(executed, "ok-2")
		return nil
	})

	err := orderCtx.TriggerCompensation(context.Background())
	require.ErrorIs(t, err, errBoom)

	// 单个补偿失败不能阻断其余补偿
	assert.Equal(t, []string{"ok-2", "failing", "ok-1"}, executed)
}

func TestTriggerCompensationEmpty(t *testing.T) {
	orderCtx := newTestOrderContext(t)
	require.NoError(t, orderCtx.TriggerCompensation(context.Background()))
}
