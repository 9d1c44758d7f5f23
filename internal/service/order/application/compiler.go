// internal/service/order/application/compiler.go
package application

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"pointshop/internal/service/order/domain"
	"pointshop/internal/service/order/domain/port"
)

// ItemRequest 是创建订单时的单个行项目请求。
type ItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// OrderItemCompiler 把行项目请求编译为带价格快照的 OrderItem 列表。
// 它只读取商品服务并计算，不预占库存、不持久化——失败时无须补偿。
type OrderItemCompiler struct {
	inventory port.InventoryService
	tracer    trace.Tracer
}

func NewOrderItemCompiler(inventory port.InventoryService, tracer trace.Tracer) *OrderItemCompiler {
	return &OrderItemCompiler{inventory: inventory, tracer: tracer}
}

// Compile 解析并校验每个行项目，返回快照列表与总金额。
//
// 所有校验在任何网络调用之前完成：空列表与非正数量直接拒绝。
// 商品查询彼此独立，并发执行（只读，无副作用），结果保持请求顺序。
// 这里的库存校验与后续的预占并不原子——两次往返之间库存可能变化，
// 预占调用会重新校验，编排层以预占结果为准。
func (c *OrderItemCompiler) Compile(ctx context.Context, items []ItemRequest) ([]domain.OrderItem, int64, error) {
	if len(items) == 0 {
		return nil, 0, domain.ErrEmptyOrderItems
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, 0, fmt.Errorf("product %d: %w", item.ProductID, domain.ErrInvalidQuantity)
		}
	}

	ctx, span := c.tracer.Start(ctx, "compiler.CompileOrderItems")
	defer span.End()
	span.SetAttributes(attribute.Int("order.item_count", len(items)))

	resolved := make([]domain.OrderItem, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range items {
		i, req := i, req
		g.Go(func() error {
			product, err := c.inventory.GetProduct(gctx, req.ProductID)
			if err != nil {
				// 商品不存在或下游失败：原样上抛，不做本地兜底定价
				return err
			}
			if product.Stock < req.Quantity {
				return &domain.InsufficientStockError{ProductName: product.Name}
			}
			resolved[i] = domain.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				UnitPrice:   product.Price,
				Quantity:    req.Quantity,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "item compilation failed")
		return nil, 0, err
	}

	// 总金额 = Σ(单价 × 数量)，全部整数运算，无舍入歧义
	var totalPrice int64
	for _, item := range resolved {
		totalPrice += item.Subtotal()
	}

	span.SetAttributes(attribute.Int64("order.total_price", totalPrice))
	return resolved, totalPrice, nil
}
