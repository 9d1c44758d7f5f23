// internal/service/point/application/service.go
package application

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pointshop/internal/pkg/logger"
	"pointshop/internal/service/point/domain"
)

// PointRequest 是扣减 / 增加 / 退还积分的请求体。
type PointRequest struct {
	UserID int64 `json:"userId"`
	Amount int64 `json:"amount"`
}

// CreateAccountRequest 是开户请求体。
type CreateAccountRequest struct {
	UserID         int64 `json:"userId"`
	InitialBalance int64 `json:"initialBalance"`
}

// PointResponse 是积分操作的响应体。扣减 / 增加时携带流水号。
type PointResponse struct {
	UserID        int64  `json:"userId"`
	Balance       int64  `json:"balance"`
	TransactionID string `json:"transactionId,omitempty"`
}

// TransactionResponse 是一条流水的对外表示。
type TransactionResponse struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Type      string `json:"type"`
	CreatedAt string `json:"createdAt"`
}

// PointService 管理积分账户：开户、查询、充值、消费、退款。
// 每次余额变更生成一个流水号，调用方可以拿它做退款与对账。
type PointService struct {
	repo   domain.PointRepository
	tracer trace.Tracer
}

func NewPointService(repo domain.PointRepository, tracer trace.Tracer) *PointService {
	return &PointService{repo: repo, tracer: tracer}
}

// CreateAccount 为用户开积分账户。
func (s *PointService) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*PointResponse, error) {
	if req.InitialBalance < 0 {
		return nil, domain.ErrInvalidAmount
	}
	if err := s.repo.CreateAccount(ctx, req.UserID, req.InitialBalance); err != nil {
		return nil, err
	}
	return &PointResponse{UserID: req.UserID, Balance: req.InitialBalance}, nil
}

// GetBalance 查询账户余额。
func (s *PointService) GetBalance(ctx context.Context, userID int64) (*PointResponse, error) {
	account, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &PointResponse{UserID: account.UserID, Balance: account.Balance}, nil
}

// Add 给账户充值积分。
func (s *PointService) Add(ctx context.Context, req *PointRequest) (*PointResponse, error) {
	return s.credit(ctx, req, domain.TxTypeAdd)
}

// Use 消费积分。余额不足返回 domain.ErrInsufficientBalance。
func (s *PointService) Use(ctx context.Context, req *PointRequest) (*PointResponse, error) {
	ctx, span := s.tracer.Start(ctx, "point.Use")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("point.user_id", req.UserID),
		attribute.Int64("point.amount", req.Amount),
	)

	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	txID := uuid.NewString()
	balance, err := s.repo.Deduct(ctx, req.UserID, req.Amount, txID, domain.TxTypeCharge)
	if err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Int64("user_id", req.UserID).
		Int64("amount", req.Amount).
		Int64("balance", balance).
		Str("transaction_id", txID).
		Msg("points used")
	return &PointResponse{UserID: req.UserID, Balance: balance, TransactionID: txID}, nil
}

// Refund 退还积分。订单取消和支付补偿都会走到这里，
// 所以必须可重入：即使账户余额已经包含过一次退款也只是多加一笔流水。
func (s *PointService) Refund(ctx context.Context, req *PointRequest) (*PointResponse, error) {
	ctx, span := s.tracer.Start(ctx, "point.Refund")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("point.user_id", req.UserID),
		attribute.Int64("point.amount", req.Amount),
	)
	return s.credit(ctx, req, domain.TxTypeRefund)
}

// FindTransactions 返回账户流水。
func (s *PointService) FindTransactions(ctx context.Context, userID int64) ([]*TransactionResponse, error) {
	txs, err := s.repo.FindTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, &TransactionResponse{
			ID:        tx.ID,
			Amount:    tx.Amount,
			Type:      tx.Type,
			CreatedAt: tx.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out, nil
}

func (s *PointService) credit(ctx context.Context, req *PointRequest, txType string) (*PointResponse, error) {
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	txID := uuid.NewString()
	balance, err := s.repo.Credit(ctx, req.UserID, req.Amount, txID, txType)
	if err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Int64("user_id", req.UserID).
		Int64("amount", req.Amount).
		Int64("balance", balance).
		Str("transaction_id", txID).
		Str("type", txType).
		Msg("points credited")
	return &PointResponse{UserID: req.UserID, Balance: balance, TransactionID: txID}, nil
}
