package adapter

import (
	"context"
	"encoding/json"

	stderrors "errors"

	"github.com/pkg/errors"

	"pointshop/internal/pkg/httpclient"
	"pointshop/internal/service/order/domain"
)

const (
	pointServiceName = "point-service"

	pointUsePath    = "/api/points/use"
	pointRefundPath = "/api/points/refund"
)

type pointRequest struct {
	UserID int64 `json:"userId"`
	Amount int64 `json:"amount"`
}

type pointResponse struct {
	UserID        int64  `json:"userId"`
	Balance       int64  `json:"balance"`
	TransactionID string `json:"transactionId,omitempty"`
}

// PaymentHTTPAdapter 通过 point-service 的 HTTP API
// 实现 port.PaymentService。积分即本系统的支付货币。
type PaymentHTTPAdapter struct {
	client *httpclient.Client
}

func NewPaymentHTTPAdapter(client *httpclient.Client) *PaymentHTTPAdapter {
	return &PaymentHTTPAdapter{client: client}
}

// Charge 扣减会员积分。402/409 是支付侧的业务拒绝（余额不足等），
// 其余失败视为下游故障。
func (a *PaymentHTTPAdapter) Charge(ctx context.Context, memberID, amount int64) (string, error) {
	var resp pointResponse
	err := a.client.PostJSON(ctx, pointServiceName, pointUsePath, pointRequest{UserID: memberID, Amount: amount}, &resp)
	if err != nil {
		var statusErr *httpclient.StatusError
		if stderrors.As(err, &statusErr) && (statusErr.StatusCode == 402 || statusErr.StatusCode == 409) {
			return "", &domain.PaymentError{Reason: reasonFromBody(statusErr.Body)}
		}
		return "", &domain.DownstreamError{Service: pointServiceName, Err: errors.Wrap(err, "charge points")}
	}
	return resp.TransactionID, nil
}

// Refund 退还会员积分，是 Charge 的补偿。
func (a *PaymentHTTPAdapter) Refund(ctx context.Context, memberID, amount int64) error {
	err := a.client.PostJSON(ctx, pointServiceName, pointRefundPath, pointRequest{UserID: memberID, Amount: amount}, nil)
	if err != nil {
		var statusErr *httpclient.StatusError
		if stderrors.As(err, &statusErr) && (statusErr.StatusCode == 402 || statusErr.StatusCode == 409) {
			return &domain.PaymentError{Reason: reasonFromBody(statusErr.Body)}
		}
		return &domain.DownstreamError{Service: pointServiceName, Err: errors.Wrap(err, "refund points")}
	}
	return nil
}

// reasonFromBody 提取支付服务的拒绝原因，不向上层泄露传输细节。
func reasonFromBody(body string) string {
	var eb errorBody
	if err := json.Unmarshal([]byte(body), &eb); err == nil && eb.Error != "" {
		return eb.Error
	}
	return "payment rejected"
}
