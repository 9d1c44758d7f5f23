package saga

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ReserveStockHandler 负责库存预占步骤。
// 每一行项目的预占成功后立即注册对应的归还补偿，
// 因此链上任何后续失败都不会留下"预占了一半"的库存。
type ReserveStockHandler struct {
	NextHandler
}

func (h *ReserveStockHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.ReserveStock")
	defer span.End()

	for _, item := range orderCtx.Order.Items {
		item := item
		span.SetAttributes(
			attribute.Int64("product.id", item.ProductID),
			attribute.Int("product.quantity", item.Quantity),
		)

		if err := orderCtx.InventoryService.ReduceStock(ctx, item.ProductID, item.Quantity); err != nil {
			// 预占结果是权威的：即使编译阶段的库存校验通过过，
			// 这里的失败也必须中断流程，由已注册的补偿归还先前的预占。
			span.RecordError(err)
			span.SetStatus(codes.Error, "stock reservation failed")
			return fmt.Errorf("failed to reserve stock for product %d: %w", item.ProductID, err)
		}

		orderCtx.AddCompensation(fmt.Sprintf("restore-stock-%d", item.ProductID), func(compCtx context.Context) error {
			compCtx, compSpan := orderCtx.Tracer.Start(compCtx, "saga.compensation.RestoreStock")
			defer compSpan.End()
			compSpan.SetAttributes(
				attribute.Int64("product.id", item.ProductID),
				attribute.Int("product.quantity", item.Quantity),
			)

			if err := orderCtx.InventoryService.RestoreStock(compCtx, item.ProductID, item.Quantity); err != nil {
				compSpan.RecordError(err)
				return fmt.Errorf("failed to restore stock for product %d: %w", item.ProductID, err)
			}
			return nil
		})
	}

	span.AddEvent("All items reserved successfully")

	return h.executeNext(orderCtx)
}
