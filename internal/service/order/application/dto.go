// internal/service/order/application/dto.go
package application

import (
	"time"

	"pointshop/internal/service/order/domain"
)

// CreateOrderRequest 是创建订单的应用层入参。
type CreateOrderRequest struct {
	MemberID int64         `json:"memberId"`
	Items    []ItemRequest `json:"items"`
}

// OrderItemResponse 是行项目快照的对外表示。
type OrderItemResponse struct {
	OrderID     int64  `json:"orderId"`
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	UnitPrice   int64  `json:"unitPrice"`
	Quantity    int    `json:"quantity"`
}

// OrderResponse 是订单聚合的对外表示。
type OrderResponse struct {
	ID         int64               `json:"id"`
	MemberID   int64               `json:"memberId"`
	TotalPrice int64               `json:"totalPrice"`
	Status     domain.State        `json:"status"`
	OrderDate  time.Time           `json:"orderDate"`
	Items      []OrderItemResponse `json:"items"`
}

// ToOrderResponse 把领域实体转换为响应 DTO。
func ToOrderResponse(o *domain.Order) *OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			OrderID:     item.OrderID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		})
	}
	return &OrderResponse{
		ID:         o.ID,
		MemberID:   o.MemberID,
		TotalPrice: o.TotalPrice,
		Status:     o.State,
		OrderDate:  o.OrderDate,
		Items:      items,
	}
}

// ToOrderResponses 批量转换，保持存储层返回的顺序。
func ToOrderResponses(orders []*domain.Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, ToOrderResponse(o))
	}
	return out
}
