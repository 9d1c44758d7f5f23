// internal/service/product/domain/product.go
package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidQuantity = errors.New("stock quantity must be positive")
	ErrInvalidPrice    = errors.New("product price must not be negative")

	// ErrStockConflict 由存储层返回：条件更新没有命中任何行，
	// 说明在锁外又发生了并发消耗。应用层把它翻译成库存不足。
	ErrStockConflict = errors.New("conditional stock update affected no rows")
)

// InsufficientStockError 表示请求数量超过当前库存，附带商品名便于定位。
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %s", e.ProductName)
}

// Product 是商品聚合，库存的唯一权威来源。
type Product struct {
	ID        int64
	Name      string
	Price     int64
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProduct 创建一个尚未持久化的商品。
func NewProduct(name string, price int64, stock int) (*Product, error) {
	if price < 0 {
		return nil, ErrInvalidPrice
	}
	if stock < 0 {
		return nil, ErrInvalidQuantity
	}
	now := time.Now()
	return &Product{Name: name, Price: price, Stock: stock, CreatedAt: now, UpdatedAt: now}, nil
}

// CanReduce 校验预占数量。这是业务校验；
// 真正的扣减由存储层的条件更新原子完成。
func (p *Product) CanReduce(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if p.Stock < quantity {
		return &InsufficientStockError{ProductName: p.Name}
	}
	return nil
}

// CanRestore 校验归还数量。
func (p *Product) CanRestore(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}
