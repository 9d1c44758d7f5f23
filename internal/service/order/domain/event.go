// internal/service/order/domain/event.go
package domain

import (
	"context"
	"time"
)

// 订单生命周期事件类型。供订阅方（通知、对账任务）消费。
const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderCancelled = "order.cancelled"
)

// OrderEvent 是订单状态发生不可逆变化后对外发布的事件。
// 它不承载行项目明细，订阅方需要时按 OrderID 回查。
type OrderEvent struct {
	EventID    string    `json:"eventId"`
	Type       string    `json:"type"`
	OrderID    int64     `json:"orderId"`
	MemberID   int64     `json:"memberId"`
	TotalPrice int64     `json:"totalPrice"`
	State      State     `json:"state"`
	OccurredAt time.Time `json:"occurredAt"`
}

// OrderEventProducer 把订单事件发布给下游。
// 发布是尽力而为的：事件丢失只影响旁路消费者，不得使主流程失败。
type OrderEventProducer interface {
	PublishOrderEvent(ctx context.Context, event *OrderEvent) error
}
