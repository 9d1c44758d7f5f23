package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"pointshop/internal/service/order/domain"
)

// GormOrderRepository 是 domain.OrderRepository 的 GORM 实现。
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save 持久化订单聚合。
// 未持久化的订单（ID 为 0）整体插入，数据库分配自增 ID，
// 通过返回值携带给调用方；已持久化的订单只更新状态——
// 行项目快照与总额在创建后不可变。
func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	model := ToOrderModel(order)

	if !order.IsPersisted() {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// Create 会级联插入 Items 并回填外键
			return tx.Create(model).Error
		})
		if err != nil {
			return nil, err
		}
		return ToDomainOrder(model), nil
	}

	err := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ?", order.ID).
		Update("status", string(order.State)).Error
	if err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID 根据 ID 查找订单聚合，行项目一并预加载。
func (r *GormOrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Items").First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return ToDomainOrder(&model), nil
}

// FindByMemberID 返回某个会员的全部订单。
func (r *GormOrderRepository) FindByMemberID(ctx context.Context, memberID int64) ([]*domain.Order, error) {
	var models []OrderModel
	err := r.db.WithContext(ctx).Preload("Items").Where("member_id = ?", memberID).Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainOrders(models), nil
}

// FindAll 返回全部订单。
func (r *GormOrderRepository) FindAll(ctx context.Context) ([]*domain.Order, error) {
	var models []OrderModel
	err := r.db.WithContext(ctx).Preload("Items").Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainOrders(models), nil
}

func toDomainOrders(models []OrderModel) []*domain.Order {
	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, ToDomainOrder(&models[i]))
	}
	return orders
}
