package saga

import (
	"fmt"
)

// PersistOrderHandler 是创建流程的最后一个步骤：持久化订单。
// 它失败时意味着整单回滚——此前预占的库存全部由补偿归还。
type PersistOrderHandler struct {
	NextHandler
}

func (h *PersistOrderHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.PersistOrder")
	defer span.End()

	// 存储层为未持久化的实体分配 ID，通过返回值携带，
	// 而不是回写入参（禁止反射式的标识赋值）。
	saved, err := orderCtx.Repo.Save(ctx, orderCtx.Order)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to persist order: %w", err)
	}
	orderCtx.Order = saved
	span.AddEvent("Order persisted with CREATED state.")

	return h.executeNext(orderCtx)
}
