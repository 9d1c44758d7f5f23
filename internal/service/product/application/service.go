// internal/service/product/application/service.go
package application

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pointshop/internal/pkg/logger"
	"pointshop/internal/service/product/domain"
)

// Locker 串行化对同一资源的并发修改。
// 生产环境由 ZooKeeper 顺序临时节点实现，测试里可以用空实现替换。
type Locker interface {
	WithLock(resourceID string, fn func() error) error
}

// NoopLocker 不加任何锁，用于单实例部署和测试。
type NoopLocker struct{}

func (NoopLocker) WithLock(_ string, fn func() error) error { return fn() }

// ProductService 实现商品管理与库存扣减 / 归还。
//
// 库存变更走两层防护：分布式锁串行化同一商品的并发请求，
// 存储层的条件更新兜底，保证即使锁失效库存也不会被扣成负数。
type ProductService struct {
	repo   domain.ProductRepository
	locker Locker
	tracer trace.Tracer
}

func NewProductService(repo domain.ProductRepository, locker Locker, tracer trace.Tracer) *ProductService {
	if locker == nil {
		locker = NoopLocker{}
	}
	return &ProductService{repo: repo, locker: locker, tracer: tracer}
}

// FindAll 返回全部商品。
func (s *ProductService) FindAll(ctx context.Context) ([]*domain.Product, error) {
	return s.repo.FindAll(ctx)
}

// FindByID 返回指定商品。
func (s *ProductService) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	return s.repo.FindByID(ctx, id)
}

// Create 创建商品。
func (s *ProductService) Create(ctx context.Context, req *CreateProductRequest) (*domain.Product, error) {
	product, err := domain.NewProduct(req.Name, req.Price, req.Stock)
	if err != nil {
		return nil, err
	}
	return s.repo.Save(ctx, product)
}

// Update 整体更新商品的名称、价格与库存。
func (s *ProductService) Update(ctx context.Context, id int64, req *UpdateProductRequest) (*domain.Product, error) {
	if req.Price < 0 {
		return nil, domain.ErrInvalidPrice
	}
	if req.Stock < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	var updated *domain.Product
	err := s.locker.WithLock(lockKey(id), func() error {
		product, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		product.Name = req.Name
		product.Price = req.Price
		product.Stock = req.Stock
		if err := s.repo.Update(ctx, product); err != nil {
			return err
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete 删除商品。
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// ReduceStock 扣减库存。库存不足时返回 *domain.InsufficientStockError。
func (s *ProductService) ReduceStock(ctx context.Context, id int64, quantity int) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "product.ReduceStock")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("product.id", id),
		attribute.Int("stock.quantity", quantity),
	)

	var product *domain.Product
	err := s.locker.WithLock(lockKey(id), func() error {
		p, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := p.CanReduce(quantity); err != nil {
			return err
		}
		if err := s.repo.ReduceStock(ctx, id, quantity); err != nil {
			if errors.Is(err, domain.ErrStockConflict) {
				return &domain.InsufficientStockError{ProductName: p.Name}
			}
			return err
		}
		p.Stock -= quantity
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Int64("product_id", id).
		Int("quantity", quantity).
		Int("stock_left", product.Stock).
		Msg("stock reduced")
	return product, nil
}

// RestoreStock 归还库存，订单补偿和取消都会走到这里。
func (s *ProductService) RestoreStock(ctx context.Context, id int64, quantity int) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "product.RestoreStock")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("product.id", id),
		attribute.Int("stock.quantity", quantity),
	)

	var product *domain.Product
	err := s.locker.WithLock(lockKey(id), func() error {
		p, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := p.CanRestore(quantity); err != nil {
			return err
		}
		if err := s.repo.RestoreStock(ctx, id, quantity); err != nil {
			return err
		}
		p.Stock += quantity
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Int64("product_id", id).
		Int("quantity", quantity).
		Int("stock_left", product.Stock).
		Msg("stock restored")
	return product, nil
}

func lockKey(id int64) string {
	return fmt.Sprintf("product-%d", id)
}
