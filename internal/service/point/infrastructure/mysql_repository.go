// internal/service/point/infrastructure/mysql_repository.go
package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"pointshop/internal/service/point/domain"
)

const mysqlErrDuplicateEntry = 1062

// MysqlPointRepository 基于 database/sql 实现积分账户存储。
// 余额扣减依赖条件更新，流水与余额变更在同一事务内提交。
type MysqlPointRepository struct {
	db *sql.DB
}

func NewMysqlPointRepository(db *sql.DB) *MysqlPointRepository {
	return &MysqlPointRepository{db: db}
}

func (r *MysqlPointRepository) CreateAccount(ctx context.Context, userID, initialBalance int64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO point_accounts (user_id, balance, created_at, updated_at) VALUES (?, ?, NOW(), NOW())",
		userID, initialBalance)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			return domain.ErrAccountExists
		}
		return err
	}
	return nil
}

func (r *MysqlPointRepository) FindByUserID(ctx context.Context, userID int64) (*domain.Account, error) {
	account := &domain.Account{UserID: userID}
	err := r.db.QueryRowContext(ctx,
		"SELECT balance, created_at, updated_at FROM point_accounts WHERE user_id = ?",
		userID).Scan(&account.Balance, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (r *MysqlPointRepository) Deduct(ctx context.Context, userID, amount int64, txID, txType string) (int64, error) {
	var balance int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"UPDATE point_accounts SET balance = balance - ?, updated_at = NOW() WHERE user_id = ? AND balance >= ?",
			amount, userID, amount)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// 未命中：要么账户不存在，要么余额不够
			var exists int
			scanErr := tx.QueryRowContext(ctx,
				"SELECT 1 FROM point_accounts WHERE user_id = ?", userID).Scan(&exists)
			if errors.Is(scanErr, sql.ErrNoRows) {
				return domain.ErrAccountNotFound
			}
			if scanErr != nil {
				return scanErr
			}
			return domain.ErrInsufficientBalance
		}

		if err := insertTransaction(ctx, tx, txID, userID, -amount, txType); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx,
			"SELECT balance FROM point_accounts WHERE user_id = ?", userID).Scan(&balance)
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *MysqlPointRepository) Credit(ctx context.Context, userID, amount int64, txID, txType string) (int64, error) {
	var balance int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"UPDATE point_accounts SET balance = balance + ?, updated_at = NOW() WHERE user_id = ?",
			amount, userID)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrAccountNotFound
		}

		if err := insertTransaction(ctx, tx, txID, userID, amount, txType); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx,
			"SELECT balance FROM point_accounts WHERE user_id = ?", userID).Scan(&balance)
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *MysqlPointRepository) FindTransactions(ctx context.Context, userID int64) ([]*domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, amount, type, created_at FROM point_transactions WHERE user_id = ? ORDER BY created_at DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		tx := &domain.Transaction{}
		var createdAt time.Time
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Type, &createdAt); err != nil {
			return nil, err
		}
		tx.CreatedAt = createdAt
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func insertTransaction(ctx context.Context, tx *sql.Tx, txID string, userID, amount int64, txType string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO point_transactions (id, user_id, amount, type, created_at) VALUES (?, ?, ?, ?, NOW())",
		txID, userID, amount, txType)
	return err
}

func (r *MysqlPointRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
