// internal/service/product/domain/repository.go
package domain

import "context"

// ProductRepository 定义了商品聚合的持久化接口。
type ProductRepository interface {
	// Save 插入一个新商品，返回值携带存储层分配的 ID。
	Save(ctx context.Context, product *Product) (*Product, error)

	// FindByID 查找商品，不存在时返回 ErrProductNotFound。
	FindByID(ctx context.Context, id int64) (*Product, error)

	// FindAll 返回全部商品。
	FindAll(ctx context.Context) ([]*Product, error)

	// Update 更新商品的名称、价格、库存。
	Update(ctx context.Context, product *Product) error

	// Delete 删除商品，不存在时返回 ErrProductNotFound。
	Delete(ctx context.Context, id int64) error

	// ReduceStock 以条件更新原子扣减库存（stock >= quantity 才生效）。
	// 未命中任何行时返回 ErrStockConflict。
	ReduceStock(ctx context.Context, id int64, quantity int) error

	// RestoreStock 原子归还库存。
	RestoreStock(ctx context.Context, id int64, quantity int) error
}
