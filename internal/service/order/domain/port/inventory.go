// internal/service/order/domain/port/inventory.go
package port

import (
	"context"
)

// ProductInfo 是商品服务返回的当前商品信息。
// 行项目快照的名称与单价来源于此。
type ProductInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Stock int    `json:"stock"`
}

// InventoryService 是商品/库存服务的出站端口。
// 测试替身与真实的网络客户端可以互换，编排逻辑不感知差异。
type InventoryService interface {
	// GetProduct 查询商品的当前名称、单价与库存。
	// 商品不存在时返回 domain.ErrProductNotFound。
	GetProduct(ctx context.Context, productID int64) (*ProductInfo, error)

	// ReduceStock 为订单预占库存。库存不足时返回
	// *domain.InsufficientStockError——即使此前的校验通过过，
	// 预占结果也是唯一权威的。
	ReduceStock(ctx context.Context, productID int64, quantity int) error

	// RestoreStock 是 ReduceStock 的补偿操作，归还预占的库存。
	RestoreStock(ctx context.Context, productID int64, quantity int) error
}
