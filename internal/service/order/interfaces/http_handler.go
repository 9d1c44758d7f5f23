package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"pointshop/internal/pkg/idempotency"
	"pointshop/internal/pkg/logger"
	"pointshop/internal/service/order/application"
	"pointshop/internal/service/order/domain"
)

const serviceName = "order-service"

// OrderHandler 封装了 order 服务的 HTTP 处理器。
type OrderHandler struct {
	service *application.OrderService
	idem    *idempotency.Store // 可为 nil：不启用幂等键拦截
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例。
func NewOrderHandler(service *application.OrderService, idem *idempotency.Store) *OrderHandler {
	return &OrderHandler{service: service, idem: idem}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("GET /api/orders", h.findAllOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.findOrderByID)
	mux.HandleFunc("GET /api/orders/my/{memberId}", h.findMyOrders)
	mux.HandleFunc("POST /api/orders/{id}/payment", h.processPayment)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.cancelOrder)
}

func (h *OrderHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.CreateOrder")
	defer span.End()

	var req application.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	// 调用方可选携带幂等键；同一键在 TTL 内的重放直接拒绝
	if rejected := h.checkIdempotency(w, r, "create"); rejected {
		return
	}

	order, err := h.service.CreateOrder(ctx, &req)
	if err != nil {
		orderFailuresTotal.WithLabelValues("create").Inc()
		h.writeDomainError(ctx, w, err)
		return
	}

	ordersCreatedTotal.Inc()
	writeJSON(w, http.StatusCreated, application.ToOrderResponse(order))
}

func (h *OrderHandler) findOrderByID(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	orderID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id", "")
		return
	}

	order, findErr := h.service.FindOrderByID(ctx, orderID)
	if findErr != nil {
		h.writeDomainError(ctx, w, findErr)
		return
	}
	writeJSON(w, http.StatusOK, application.ToOrderResponse(order))
}

func (h *OrderHandler) findAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	orders, err := h.service.FindAllOrders(ctx)
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, application.ToOrderResponses(orders))
}

func (h *OrderHandler) findMyOrders(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	memberID, err := strconv.ParseInt(r.PathValue("memberId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid member id", "")
		return
	}

	orders, findErr := h.service.FindMyOrders(ctx, memberID)
	if findErr != nil {
		h.writeDomainError(ctx, w, findErr)
		return
	}
	writeJSON(w, http.StatusOK, application.ToOrderResponses(orders))
}

func (h *OrderHandler) processPayment(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.ProcessOrderPayment")
	defer span.End()

	orderID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id", "")
		return
	}

	order, payErr := h.service.ProcessPayment(ctx, orderID)
	if payErr != nil {
		orderFailuresTotal.WithLabelValues("pay").Inc()
		h.writeDomainError(ctx, w, payErr)
		return
	}

	ordersPaidTotal.Inc()
	writeJSON(w, http.StatusOK, application.ToOrderResponse(order))
}

func (h *OrderHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.CancelOrder")
	defer span.End()

	orderID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id", "")
		return
	}

	if rejected := h.checkIdempotency(w, r, "cancel"); rejected {
		return
	}

	order, cancelErr := h.service.Cancel(ctx, orderID)
	if cancelErr != nil {
		orderFailuresTotal.WithLabelValues("cancel").Inc()
		h.writeDomainError(ctx, w, cancelErr)
		return
	}

	ordersCancelledTotal.Inc()
	writeJSON(w, http.StatusOK, application.ToOrderResponse(order))
}

// checkIdempotency 处理可选的 Idempotency-Key 请求头。
// 返回 true 表示请求已被拦截（重复或幂等存储故障），响应已写出。
func (h *OrderHandler) checkIdempotency(w http.ResponseWriter, r *http.Request, op string) bool {
	if h.idem == nil {
		return false
	}
	clientKey := r.Header.Get("Idempotency-Key")
	if clientKey == "" {
		return false
	}

	seen, err := h.idem.Seen(r.Context(), h.idem.Key(op, clientKey))
	if err != nil {
		logger.Ctx(r.Context()).Warn().Err(err).Msg("idempotency store unavailable, letting request through")
		return false
	}
	if seen {
		writeError(w, http.StatusConflict, "duplicate request", "")
		return true
	}
	return false
}

// writeDomainError 把领域错误映射为 HTTP 状态码。
// 响应体只携带错误分类信息，不泄露内部调用栈或传输细节。
func (h *OrderHandler) writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	logger.Ctx(ctx).Warn().Err(err).Msg("order operation failed")

	var (
		insufficientStock *domain.InsufficientStockError
		invalidState      *domain.InvalidStateError
		paymentErr        *domain.PaymentError
		downstreamErr     *domain.DownstreamError
		compErr           *domain.CompensationError
	)

	switch {
	case errors.Is(err, domain.ErrEmptyOrderItems), errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrProductNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "")
	case errors.As(err, &insufficientStock):
		writeError(w, http.StatusConflict, err.Error(), insufficientStock.ProductName)
	case errors.As(err, &invalidState):
		writeError(w, http.StatusConflict, err.Error(), "")
	case errors.As(err, &paymentErr):
		writeError(w, http.StatusPaymentRequired, err.Error(), "")
	case errors.As(err, &compErr):
		// 补偿失败：系统可能处于半应用状态，与普通失败区分上报
		compensationFailuresTotal.Inc()
		writeError(w, http.StatusInternalServerError, "compensation failed, manual reconciliation required", "")
	case errors.As(err, &downstreamErr):
		writeError(w, http.StatusBadGateway, "downstream service unavailable: "+downstreamErr.Service, "")
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

// extractTraceContext 从请求头恢复上游传入的 trace 上下文。
func extractTraceContext(r *http.Request) context.Context {
	return otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}
