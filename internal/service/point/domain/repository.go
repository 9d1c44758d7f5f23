// internal/service/point/domain/repository.go
package domain

import "context"

// PointRepository 定义积分账户的持久化接口。
// 余额变更必须与流水写入处于同一个事务。
type PointRepository interface {
	// CreateAccount 创建账户，已存在时返回 ErrAccountExists。
	CreateAccount(ctx context.Context, userID, initialBalance int64) error

	// FindByUserID 查询账户，不存在时返回 ErrAccountNotFound。
	FindByUserID(ctx context.Context, userID int64) (*Account, error)

	// Deduct 原子扣减余额并写流水（balance >= amount 才生效），
	// 返回扣减后的余额。余额不足返回 ErrInsufficientBalance。
	Deduct(ctx context.Context, userID, amount int64, txID, txType string) (int64, error)

	// Credit 原子增加余额并写流水，返回增加后的余额。
	Credit(ctx context.Context, userID, amount int64, txID, txType string) (int64, error)

	// FindTransactions 返回账户的全部流水，按时间倒序。
	FindTransactions(ctx context.Context, userID int64) ([]*Transaction, error)
}
