// internal/service/order/domain/order.go
package domain

import (
	"time"
)

// OrderItem 是订单的行项目快照，归属且仅归属于它的订单。
// 名称与单价在下单时刻从商品服务捕获，之后不再回查——
// 即使商品被改名、调价或删除，订单本身仍然可审计。
type OrderItem struct {
	OrderID     int64
	ProductID   int64
	ProductName string
	UnitPrice   int64
	Quantity    int
}

// Subtotal 返回该行项目的小计金额。
func (i OrderItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Order 是订单聚合的根实体。
// ID 在首次持久化前为 0，由存储层在 Save 时分配；
// TotalPrice 在创建时一次性计算，此后不可变（退款金额由它派生）。
type Order struct {
	ID         int64
	MemberID   int64
	TotalPrice int64
	State      State
	OrderDate  time.Time
	Items      []OrderItem
}

// NewOrder 创建一个尚未持久化的订单实例，初始状态为 CREATED。
// items 与 totalPrice 由编排层的行项目编译器产出。
func NewOrder(memberID int64, items []OrderItem, totalPrice int64) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrderItems
	}
	return &Order{
		MemberID:   memberID,
		TotalPrice: totalPrice,
		State:      StateCreated,
		OrderDate:  time.Now(),
		Items:      items,
	}, nil
}

// IsPersisted 判断订单是否已经由存储层分配过标识。
func (o *Order) IsPersisted() bool {
	return o.ID != 0
}

// MarkAsPaid 将订单流转为已支付。
// 这个方法只负责状态流转，不负责调用外部服务。
func (o *Order) MarkAsPaid() error {
	if !o.State.CanTransitionTo(StatePaid) {
		return &InvalidStateError{OrderID: o.ID, State: o.State, Op: "pay"}
	}
	o.State = StatePaid
	return nil
}

// MarkAsCancelled 将订单流转为已取消。
// 对已取消订单的重复取消会被拒绝，而不是静默成功。
func (o *Order) MarkAsCancelled() error {
	if !o.State.CanTransitionTo(StateCancelled) {
		return &InvalidStateError{OrderID: o.ID, State: o.State, Op: "cancel"}
	}
	o.State = StateCancelled
	return nil
}
