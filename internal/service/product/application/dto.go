// internal/service/product/application/dto.go
package application

import "pointshop/internal/service/product/domain"

// CreateProductRequest 是创建商品的请求体。
type CreateProductRequest struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Stock int    `json:"stock"`
}

// UpdateProductRequest 是更新商品的请求体。
type UpdateProductRequest struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Stock int    `json:"stock"`
}

// StockRequest 是扣减 / 归还库存的请求体。
type StockRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// ProductResponse 是商品的对外表示。
type ProductResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Stock int    `json:"stock"`
}

func ToProductResponse(p *domain.Product) *ProductResponse {
	return &ProductResponse{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock}
}

func ToProductResponses(products []*domain.Product) []*ProductResponse {
	out := make([]*ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, ToProductResponse(p))
	}
	return out
}
