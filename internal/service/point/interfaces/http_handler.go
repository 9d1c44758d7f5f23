// internal/service/point/interfaces/http_handler.go
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
	"pointshop/internal/service/point/application"
	"pointshop/internal/service/point/domain"
)

const serviceName = "point-service"

var pointRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pointshop_point_rejections_total",
	Help: "Number of point operations rejected, by reason.",
}, []string{"reason"})

// PointHandler 封装了 point 服务的 HTTP 处理器。
type PointHandler struct {
	service *application.PointService
}

func NewPointHandler(service *application.PointService) *PointHandler {
	return &PointHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *PointHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/points/account", h.createAccount)
	mux.HandleFunc("GET /api/points/{userId}", h.getBalance)
	mux.HandleFunc("GET /api/points/{userId}/transactions", h.findTransactions)
	mux.HandleFunc("POST /api/points/add", h.add)
	mux.HandleFunc("POST /api/points/use", h.use)
	mux.HandleFunc("POST /api/points/refund", h.refund)
}

func (h *PointHandler) createAccount(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req application.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.CreateAccount(ctx, &req)
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *PointHandler) getBalance(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	userID, err := strconv.ParseInt(r.PathValue("userId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	resp, findErr := h.service.GetBalance(ctx, userID)
	if findErr != nil {
		h.writeDomainError(ctx, w, findErr)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PointHandler) findTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	userID, err := strconv.ParseInt(r.PathValue("userId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	txs, findErr := h.service.FindTransactions(ctx, userID)
	if findErr != nil {
		h.writeDomainError(ctx, w, findErr)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *PointHandler) add(w http.ResponseWriter, r *http.Request) {
	h.mutateBalance(w, r, "http.AddPoints", h.service.Add)
}

func (h *PointHandler) use(w http.ResponseWriter, r *http.Request) {
	h.mutateBalance(w, r, "http.UsePoints", h.service.Use)
}

func (h *PointHandler) refund(w http.ResponseWriter, r *http.Request) {
	h.mutateBalance(w, r, "http.RefundPoints", h.service.Refund)
}

func (h *PointHandler) mutateBalance(w http.ResponseWriter, r *http.Request, spanName string,
	op func(context.Context, *application.PointRequest) (*application.PointResponse, error)) {
	ctx := extractTraceContext(r)
	ctx, span := otel.Tracer(serviceName).Start(ctx, spanName)
	defer span.End()

	var req application.PointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := op(ctx, &req)
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PointHandler) writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	logger.Ctx(ctx).Warn().Err(err).Msg("point operation failed")

	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		pointRejectionsTotal.WithLabelValues("validation").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAccountExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		pointRejectionsTotal.WithLabelValues("insufficient_balance").Inc()
		writeError(w, http.StatusPaymentRequired, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func extractTraceContext(r *http.Request) context.Context {
	return otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}
