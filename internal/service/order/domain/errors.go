// internal/service/order/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// 校验类与未找到类错误。在任何外部副作用发生之前检出，永不触发补偿。
var (
	ErrEmptyOrderItems = errors.New("empty order items")
	ErrInvalidQuantity = errors.New("order item quantity must be positive")
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
)

// InsufficientStockError 表示请求数量超过了当前可用库存。
// 发生在编排前的校验或预占库存时，两处语义相同。
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %s", e.ProductName)
}

// InvalidStateError 表示操作与订单当前状态不符，例如支付一个已取消的订单。
type InvalidStateError struct {
	OrderID int64
	State   State
	Op      string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s order %d in state %s", e.Op, e.OrderID, e.State)
}

// PaymentError 表示支付服务明确拒绝了扣款或退款。
type PaymentError struct {
	Reason string
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment failed: %s", e.Reason)
}

// DownstreamError 表示对下游服务的调用失败（超时、5xx 等）。
// 对补偿逻辑而言，它与业务拒绝同等对待。
type DownstreamError struct {
	Service string
	Err     error
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("downstream service %s failed: %v", e.Service, e.Err)
}

func (e *DownstreamError) Unwrap() error { return e.Err }

// CompensationError 表示主流程失败后，补偿本身也失败了。
// 这类错误意味着系统处于需要人工对账的状态，必须与普通失败区分上报。
type CompensationError struct {
	OrderID int64
	Cause   error // 触发补偿的原始错误
	CompErr error // 补偿执行中发生的错误
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("order %d: compensation failed (%v) after primary failure (%v), manual reconciliation required",
		e.OrderID, e.CompErr, e.Cause)
}

func (e *CompensationError) Unwrap() error { return e.Cause }
