// internal/service/order/application/service.go
package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pointshop/internal/pkg/logger"
	"pointshop/internal/service/order/application/saga"
	"pointshop/internal/service/order/domain"
	"pointshop/internal/service/order/domain/port"
)

// OrderService 是订单编排器：驱动创建、支付、取消三条业务流程，
// 持有状态机与补偿策略。它自身没有共享可变状态，
// 多个订单可以被独立调用方并发处理。
type OrderService struct {
	orderRepo         domain.OrderRepository
	compiler          *OrderItemCompiler
	inventoryService  port.InventoryService
	paymentService    port.PaymentService
	eventProducer     domain.OrderEventProducer
	processingTimeout time.Duration
	tracer            trace.Tracer
}

func NewOrderService(
	orderRepo domain.OrderRepository,
	inventoryService port.InventoryService,
	paymentService port.PaymentService,
	eventProducer domain.OrderEventProducer,
	processingTimeout time.Duration,
	tracer trace.Tracer,
) *OrderService {
	return &OrderService{
		orderRepo:         orderRepo,
		compiler:          NewOrderItemCompiler(inventoryService, tracer),
		inventoryService:  inventoryService,
		paymentService:    paymentService,
		eventProducer:     eventProducer,
		processingTimeout: processingTimeout,
		tracer:            tracer,
	}
}

// CreateOrder 创建订单：编译行项目 → 预占库存 → 持久化。
//
// 第一阶段（编译）没有任何外部副作用，失败即中止，无须补偿。
// 预占与持久化以责任链执行，任何失败都会触发已注册补偿的
// LIFO 回放——部分预占永远不会被留下。
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("member.id", req.MemberID))

	// 为每个订单的处理流程设置独立的超时时间；
	// 超时与显式失败走同一条回滚路径
	processingCtx, cancel := context.WithTimeout(ctx, s.processingTimeout)
	defer cancel()

	items, totalPrice, err := s.compiler.Compile(processingCtx, req.Items)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "item compilation failed")
		return nil, err
	}

	orderEntity, err := domain.NewOrder(req.MemberID, items, totalPrice)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	orderCtx := &saga.OrderContext{
		Ctx:              processingCtx,
		Order:            orderEntity,
		Tracer:           s.tracer,
		InventoryService: s.inventoryService,
		Repo:             s.orderRepo,
	}

	chain := buildCreateOrderChain()
	if err := chain.Handle(orderCtx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order creation chain failed")
		logger.Ctx(ctx).Error().Err(err).Int64("member_id", req.MemberID).
			Msg("order creation failed, triggering saga compensation")

		// 补偿使用不随主流程取消的 context：
		// 主流程可能正是因为超时而失败的
		compCtx, compCancel := context.WithTimeout(context.WithoutCancel(processingCtx), s.processingTimeout)
		defer compCancel()
		if compErr := orderCtx.TriggerCompensation(compCtx); compErr != nil {
			return nil, &domain.CompensationError{OrderID: orderCtx.Order.ID, Cause: err, CompErr: compErr}
		}
		return nil, err
	}

	created := orderCtx.Order
	span.SetAttributes(attribute.Int64("order.id", created.ID), attribute.Int64("order.total_price", created.TotalPrice))
	logger.Ctx(ctx).Info().Int64("order_id", created.ID).Int64("total_price", created.TotalPrice).
		Msg("order created")

	s.publishEvent(ctx, domain.EventOrderCreated, created)
	return created, nil
}

// buildCreateOrderChain 负责构建和连接创建流程的所有处理器。
func buildCreateOrderChain() saga.Handler {
	reserve := new(saga.ReserveStockHandler)
	reserve.SetNext(new(saga.PersistOrderHandler))
	return reserve
}

// FindOrderByID 查询单个订单，不存在时返回 ErrOrderNotFound。
func (s *OrderService) FindOrderByID(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.FindOrderByID")
	defer span.End()
	return s.orderRepo.FindByID(ctx, orderID)
}

// FindAllOrders 返回全部订单的只读投影。
func (s *OrderService) FindAllOrders(ctx context.Context) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.FindAllOrders")
	defer span.End()
	return s.orderRepo.FindAll(ctx)
}

// FindMyOrders 返回某个会员的全部订单。
func (s *OrderService) FindMyOrders(ctx context.Context, memberID int64) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.FindMyOrders")
	defer span.End()
	return s.orderRepo.FindByMemberID(ctx, memberID)
}

// ProcessPayment 对 CREATED 状态的订单发起支付。
//
// 扣款失败时订单保持 CREATED，不自动重试——重试策略是调用方的事。
// 扣款成功但持久化失败时，已产生外部副作用，因此发起退款补偿；
// 退款也失败则作为 CompensationError 上报（需要人工对账）。
func (s *OrderService) ProcessPayment(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.ProcessPayment")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID))

	processingCtx, cancel := context.WithTimeout(ctx, s.processingTimeout)
	defer cancel()

	order, err := s.orderRepo.FindByID(processingCtx, orderID)
	if err != nil {
		return nil, err
	}

	// 状态校验先于任何外部调用：非 CREATED 状态直接拒绝，支付服务不会被触碰
	if order.State != domain.StateCreated {
		return nil, &domain.InvalidStateError{OrderID: order.ID, State: order.State, Op: "pay"}
	}

	txID, err := s.paymentService.Charge(processingCtx, order.MemberID, order.TotalPrice)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "charge failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("payment.transaction_id", txID))

	if err := order.MarkAsPaid(); err != nil {
		// 状态在本次调用内不可能再变，防御性保留
		return nil, err
	}
	if _, err := s.orderRepo.Save(processingCtx, order); err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).Int64("order_id", order.ID).
			Msg("failed to persist paid state after successful charge, refunding")

		compCtx, compCancel := context.WithTimeout(context.WithoutCancel(processingCtx), s.processingTimeout)
		defer compCancel()
		if refundErr := s.paymentService.Refund(compCtx, order.MemberID, order.TotalPrice); refundErr != nil {
			return nil, &domain.CompensationError{OrderID: order.ID, Cause: err, CompErr: refundErr}
		}
		return nil, err
	}

	logger.Ctx(ctx).Info().Int64("order_id", order.ID).Str("transaction_id", txID).Msg("order paid")
	s.publishEvent(ctx, domain.EventOrderPaid, order)
	return order, nil
}

// Cancel 取消订单。补偿按固定顺序执行：先归还库存，
// PAID 订单再退款，最后落状态。库存归还失败时在触碰支付之前中止，
// 避免为一件从未真正回到库存的商品退款；整个取消可由调用方重试。
func (s *OrderService) Cancel(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.CancelOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID))

	processingCtx, cancel := context.WithTimeout(ctx, s.processingTimeout)
	defer cancel()

	order, err := s.orderRepo.FindByID(processingCtx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.State.CanTransitionTo(domain.StateCancelled) {
		return nil, &domain.InvalidStateError{OrderID: order.ID, State: order.State, Op: "cancel"}
	}
	wasPaid := order.State == domain.StatePaid

	// 补偿步骤 1: 归还每个行项目的库存
	if err := s.RestoreOrderStock(processingCtx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock restoration failed, cancel aborted")
		return nil, err
	}

	// 补偿步骤 2: 已支付的订单按创建时的总额退款
	if wasPaid {
		if err := s.RefundOrder(processingCtx, order); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "refund failed, cancel aborted")
			return nil, err
		}
	}

	// 补偿步骤 3: 落终态
	if err := order.MarkAsCancelled(); err != nil {
		return nil, err
	}
	if _, err := s.orderRepo.Save(processingCtx, order); err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().Int64("order_id", order.ID).Bool("was_paid", wasPaid).Msg("order cancelled")
	s.publishEvent(ctx, domain.EventOrderCancelled, order)
	return order, nil
}

// RestoreOrderStock 是一个具名补偿操作：归还订单全部行项目的库存。
// 它可以独立于取消流程被重放（例如由对账任务驱动）。
func (s *OrderService) RestoreOrderStock(ctx context.Context, order *domain.Order) error {
	ctx, span := s.tracer.Start(ctx, "app.compensation.RestoreOrderStock")
	defer span.End()

	for _, item := range order.Items {
		if err := s.inventoryService.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			span.RecordError(err)
			return err
		}
	}
	return nil
}

// RefundOrder 是一个具名补偿操作：按订单创建时的总额退款。
// 退款金额派生自 TotalPrice 快照，不重新计价。
func (s *OrderService) RefundOrder(ctx context.Context, order *domain.Order) error {
	ctx, span := s.tracer.Start(ctx, "app.compensation.RefundOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("refund.amount", order.TotalPrice))

	return s.paymentService.Refund(ctx, order.MemberID, order.TotalPrice)
}

// publishEvent 尽力而为地发布订单生命周期事件。
// 发布失败只记日志，绝不使已完成的状态流转失败。
func (s *OrderService) publishEvent(ctx context.Context, eventType string, order *domain.Order) {
	if s.eventProducer == nil {
		return
	}
	event := &domain.OrderEvent{
		EventID:    uuid.New().String(),
		Type:       eventType,
		OrderID:    order.ID,
		MemberID:   order.MemberID,
		TotalPrice: order.TotalPrice,
		State:      order.State,
		OccurredAt: time.Now(),
	}
	if err := s.eventProducer.PublishOrderEvent(ctx, event); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Int64("order_id", order.ID).Str("event_type", eventType).
			Msg("failed to publish order event")
	}
}
