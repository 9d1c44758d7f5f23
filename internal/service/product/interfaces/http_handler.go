// internal/service/product/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"pointshop/internal/pkg/logger"
	"pointshop/internal/service/product/application"
	"pointshop/internal/service/product/domain"
)

const serviceName = "product-service"

var stockRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pointshop_product_stock_rejections_total",
	Help: "Number of stock operations rejected, by reason.",
}, []string{"reason"})

// ProductHandler 封装了 product 服务的 HTTP 处理器。
type ProductHandler struct {
	service *application.ProductService
}

func NewProductHandler(service *application.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *ProductHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/products", h.findAll)
	mux.HandleFunc("GET /api/products/{id}", h.findByID)
	mux.HandleFunc("POST /api/products", h.create)
	mux.HandleFunc("PUT /api/products/{id}", h.update)
	mux.HandleFunc("DELETE /api/products/{id}", h.delete)
	mux.HandleFunc("PUT /api/products/{id}/reduce", h.reduceStock)
	mux.HandleFunc("PUT /api/products/{id}/restore", h.restoreStock)
}

func (h *ProductHandler) findAll(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	products, err := h.service.FindAll(ctx)
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, application.ToProductResponses(products))
}

func (h *ProductHandler) findByID(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id", "")
		return
	}

	product, findErr := h.service.FindByID(ctx, id)
	if findErr != nil {
		h.writeDomainError(ctx, w, findErr)
		return
	}
	writeJSON(w, http.StatusOK, application.ToProductResponse(product))
}

func (h *ProductHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req application.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	product, err := h.service.Create(ctx, &req)
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, application.ToProductResponse(product))
}

func (h *ProductHandler) update(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id", "")
		return
	}

	var req application.UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	product, updateErr := h.service.Update(ctx, id, &req)
	if updateErr != nil {
		h.writeDomainError(ctx, w, updateErr)
		return
	}
	writeJSON(w, http.StatusOK, application.ToProductResponse(product))
}

func (h *ProductHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id", "")
		return
	}

	if deleteErr := h.service.Delete(ctx, id); deleteErr != nil {
		h.writeDomainError(ctx, w, deleteErr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) reduceStock(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.ReduceStock")
	defer span.End()

	id, req, ok := h.parseStockRequest(w, r)
	if !ok {
		return
	}

	product, err := h.service.ReduceStock(ctx, id, req.Quantity)
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, application.ToProductResponse(product))
}

func (h *ProductHandler) restoreStock(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.RestoreStock")
	defer span.End()

	id, req, ok := h.parseStockRequest(w, r)
	if !ok {
		return
	}

	product, err := h.service.RestoreStock(ctx, id, req.Quantity)
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, application.ToProductResponse(product))
}

func (h *ProductHandler) parseStockRequest(w http.ResponseWriter, r *http.Request) (int64, *application.StockRequest, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id", "")
		return 0, nil, false
	}

	var req application.StockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return 0, nil, false
	}
	return id, &req, true
}

func (h *ProductHandler) writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	logger.Ctx(ctx).Warn().Err(err).Msg("product operation failed")

	var insufficientStock *domain.InsufficientStockError

	switch {
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidPrice):
		stockRejectionsTotal.WithLabelValues("validation").Inc()
		writeError(w, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, domain.ErrProductNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "")
	case errors.As(err, &insufficientStock):
		// product 字段让调用方不必再查一次就能报出是哪个商品不够
		stockRejectionsTotal.WithLabelValues("insufficient_stock").Inc()
		writeError(w, http.StatusConflict, err.Error(), insufficientStock.ProductName)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Product string `json:"product,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg, product string) {
	writeJSON(w, status, errorResponse{Error: msg, Product: product})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func extractTraceContext(r *http.Request) context.Context {
	return otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}
