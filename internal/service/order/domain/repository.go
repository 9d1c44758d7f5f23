// internal/service/order/domain/repository.go
package domain

import "context"

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。
type OrderRepository interface {
	// Save 保存一个订单聚合。传入未持久化的订单（ID 为 0）时，
	// 返回值携带存储层分配的新 ID；已持久化的订单则原地更新。
	// 任何实现都不得通过特权手段回写入参的标识。
	Save(ctx context.Context, order *Order) (*Order, error)

	// FindByID 根据 ID 查找一个订单聚合，不存在时返回 ErrOrderNotFound。
	FindByID(ctx context.Context, id int64) (*Order, error)

	// FindByMemberID 返回某个会员的全部订单。
	FindByMemberID(ctx context.Context, memberID int64) ([]*Order, error)

	// FindAll 返回全部订单。
	FindAll(ctx context.Context) ([]*Order, error)
}
