// internal/service/order/infrastructure/models.go
package infrastructure

import (
	"time"

	"pointshop/internal/service/order/domain"
)

// OrderModel 是 Order 聚合在数据库中的表示。
type OrderModel struct {
	ID         int64 `gorm:"primaryKey;autoIncrement"`
	MemberID   int64 `gorm:"index"`
	TotalPrice int64
	Status     string `gorm:"size:16"`
	OrderDate  time.Time
	Items      []OrderItemModel `gorm:"foreignKey:OrderID"`
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 是行项目快照在数据库中的表示。
type OrderItemModel struct {
	ID          int64 `gorm:"primaryKey;autoIncrement"`
	OrderID     int64 `gorm:"index"`
	ProductID   int64
	ProductName string `gorm:"size:255"`
	UnitPrice   int64
	Quantity    int
}

func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomainOrder 将数据库模型转换为领域模型。
func ToDomainOrder(m *OrderModel) *domain.Order {
	items := make([]domain.OrderItem, 0, len(m.Items))
	for _, im := range m.Items {
		items = append(items, domain.OrderItem{
			OrderID:     im.OrderID,
			ProductID:   im.ProductID,
			ProductName: im.ProductName,
			UnitPrice:   im.UnitPrice,
			Quantity:    im.Quantity,
		})
	}
	return &domain.Order{
		ID:         m.ID,
		MemberID:   m.MemberID,
		TotalPrice: m.TotalPrice,
		State:      domain.State(m.Status),
		OrderDate:  m.OrderDate,
		Items:      items,
	}
}

// ToOrderModel 将领域模型转换为数据库模型。
func ToOrderModel(o *domain.Order) *OrderModel {
	items := make([]OrderItemModel, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemModel{
			OrderID:     item.OrderID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		})
	}
	return &OrderModel{
		ID:         o.ID,
		MemberID:   o.MemberID,
		TotalPrice: o.TotalPrice,
		Status:     string(o.State),
		OrderDate:  o.OrderDate,
		Items:      items,
	}
}
