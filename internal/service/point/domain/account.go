// internal/service/point/domain/account.go
package domain

import (
	"errors"
	"time"
)

var (
	ErrAccountNotFound     = errors.New("point account not found")
	ErrAccountExists       = errors.New("point account already exists")
	ErrInvalidAmount       = errors.New("point amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient point balance")
)

// Account 是会员的积分账户。余额以最小积分单位计。
type Account struct {
	UserID    int64
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// 流水类型。每次余额变更都落一条流水，对账靠它。
const (
	TxTypeCharge = "charge"
	TxTypeAdd    = "add"
	TxTypeRefund = "refund"
)

// Transaction 是一条积分流水。
type Transaction struct {
	ID        string
	UserID    int64
	Amount    int64
	Type      string
	CreatedAt time.Time
}
