package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	stderrors "errors"

	"github.com/pkg/errors"

	"pointshop/internal/pkg/httpclient"
	"pointshop/internal/service/order/domain"
	"pointshop/internal/service/order/domain/port"
)

const (
	productServiceName = "product-service"

	productGetPathFmt     = "/api/products/%d"
	productReducePathFmt  = "/api/products/%d/reduce"
	productRestorePathFmt = "/api/products/%d/restore"
)

// errorBody 是下游服务统一的错误响应体。
type errorBody struct {
	Error   string `json:"error"`
	Product string `json:"product,omitempty"`
}

// stockRequest 是 reduce/restore 的请求体。
type stockRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// InventoryHTTPAdapter 通过 product-service 的 HTTP API
// 实现 port.InventoryService。
type InventoryHTTPAdapter struct {
	client *httpclient.Client
}

func NewInventoryHTTPAdapter(client *httpclient.Client) *InventoryHTTPAdapter {
	return &InventoryHTTPAdapter{client: client}
}

// GetProduct 查询商品当前信息。404 翻译为领域的"商品不存在"。
func (a *InventoryHTTPAdapter) GetProduct(ctx context.Context, productID int64) (*port.ProductInfo, error) {
	var product port.ProductInfo
	err := a.client.GetJSON(ctx, productServiceName, fmt.Sprintf(productGetPathFmt, productID), &product)
	if err != nil {
		var statusErr *httpclient.StatusError
		if stderrors.As(err, &statusErr) && statusErr.StatusCode == 404 {
			return nil, domain.ErrProductNotFound
		}
		return nil, &domain.DownstreamError{Service: productServiceName, Err: errors.Wrap(err, "get product")}
	}
	return &product, nil
}

// ReduceStock 预占库存。409 意味着商品侧的权威校验拒绝了数量。
func (a *InventoryHTTPAdapter) ReduceStock(ctx context.Context, productID int64, quantity int) error {
	req := stockRequest{ProductID: productID, Quantity: quantity}
	err := a.client.PutJSON(ctx, productServiceName, fmt.Sprintf(productReducePathFmt, productID), req, nil)
	if err == nil {
		return nil
	}

	var statusErr *httpclient.StatusError
	if stderrors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case 404:
			return domain.ErrProductNotFound
		case 409:
			return &domain.InsufficientStockError{ProductName: productNameFromBody(statusErr.Body, productID)}
		}
	}
	return &domain.DownstreamError{Service: productServiceName, Err: errors.Wrap(err, "reduce stock")}
}

// RestoreStock 归还库存，是 ReduceStock 的补偿。
func (a *InventoryHTTPAdapter) RestoreStock(ctx context.Context, productID int64, quantity int) error {
	req := stockRequest{ProductID: productID, Quantity: quantity}
	err := a.client.PutJSON(ctx, productServiceName, fmt.Sprintf(productRestorePathFmt, productID), req, nil)
	if err != nil {
		var statusErr *httpclient.StatusError
		if stderrors.As(err, &statusErr) && statusErr.StatusCode == 404 {
			return domain.ErrProductNotFound
		}
		return &domain.DownstreamError{Service: productServiceName, Err: errors.Wrap(err, "restore stock")}
	}
	return nil
}

// productNameFromBody 从错误响应中提取商品名，供错误信息定位到具体商品。
func productNameFromBody(body string, productID int64) string {
	var eb errorBody
	if err := json.Unmarshal([]byte(body), &eb); err == nil && eb.Product != "" {
		return eb.Product
	}
	return fmt.Sprintf("product-%d", productID)
}
