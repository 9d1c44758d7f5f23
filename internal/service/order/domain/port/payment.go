// internal/service/order/domain/port/payment.go
package port

import (
	"context"
)

// PaymentService 是积分支付服务的出站端口。
type PaymentService interface {
	// Charge 从会员的积分账户扣除 amount，成功时返回交易号。
	// 余额不足等业务拒绝返回 *domain.PaymentError。
	Charge(ctx context.Context, memberID, amount int64) (string, error)

	// Refund 是 Charge 的补偿操作，把 amount 退还到会员账户。
	Refund(ctx context.Context, memberID, amount int64) error
}
