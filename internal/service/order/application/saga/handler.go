package saga

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"pointshop/internal/pkg/logger"
	"pointshop/internal/service/order/domain"
	"pointshop/internal/service/order/domain/port"
)

// OrderContext 在 Saga 流程中传递上下文数据。
// 所有外部依赖都是抽象接口，测试替身可以直接替换。
type OrderContext struct {
	Ctx    context.Context
	Order  *domain.Order // 编译完成、尚未持久化的订单实体；持久化后原地替换为带 ID 的版本
	Tracer trace.Tracer

	// 依赖出站端口 (Interfaces)
	InventoryService port.InventoryService
	Repo             domain.OrderRepository

	// 补偿栈：后注册的先执行 (LIFO)
	compensations []compensation
	compLock      sync.Mutex
}

// compensation 是一个具名的补偿操作，可独立执行与测试。
type compensation struct {
	name string
	run  func(ctx context.Context) error
}

// AddCompensation 注册一个补偿操作。
// 每个产生了外部可见副作用的步骤，成功后都应立即注册对应的补偿。
func (c *OrderContext) AddCompensation(name string, run func(ctx context.Context) error) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.compensations = append([]compensation{{name: name, run: run}}, c.compensations...)
}

// CompensationCount 返回已注册的补偿数量。
func (c *OrderContext) CompensationCount() int {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	return len(c.compensations)
}

// TriggerCompensation 按 LIFO 顺序执行全部已注册的补偿。
// 单个补偿失败不会中断其余补偿；所有失败会被聚合返回，
// 由调用方作为"需要人工对账"的信号上报。
func (c *OrderContext) TriggerCompensation(ctx context.Context) error {
	c.compLock.Lock()
	comps := c.compensations
	c.compensations = nil
	c.compLock.Unlock()

	logger.Ctx(ctx).Info().
		Int64("member_id", c.Order.MemberID).
		Int("count", len(comps)).
		Msg("executing saga compensations")

	var combined error
	for _, comp := range comps {
		if err := comp.run(ctx); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("compensation", comp.name).
				Msg("compensation step failed")
			combined = errors.Join(combined, err)
		}
	}
	return combined
}

// Handler 是 Saga 步骤的责任链接口。
type Handler interface {
	SetNext(handler Handler) Handler
	Handle(orderCtx *OrderContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(orderCtx *OrderContext) error {
	if h.next != nil {
		return h.next.Handle(orderCtx)
	}
	return nil
}
