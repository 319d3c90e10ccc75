package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dyens/billing/internal/models"
)

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository returns a gorm-backed LedgerRepository.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *ledgerRepository) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	if !wallet.Currency.Valid() {
		return fmt.Errorf("%w: currency %q", ErrInvalidEnumValue, wallet.Currency)
	}
	if err := r.db.WithContext(ctx).Create(wallet).Error; err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetWallet(ctx context.Context, id uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).First(&wallet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) GetWalletForUpdate(ctx context.Context, id uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&wallet, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) GetWalletByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) WalletExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check wallet existence: %w", err)
	}
	return count > 0, nil
}

func (r *ledgerRepository) CreditWallet(ctx context.Context, id uint, amount decimal.Decimal) (decimal.Decimal, error) {
	return r.adjustBalance(ctx, id, gorm.Expr("balance + ?", amount))
}

func (r *ledgerRepository) DebitWallet(ctx context.Context, id uint, amount decimal.Decimal) (decimal.Decimal, error) {
	return r.adjustBalance(ctx, id, gorm.Expr("balance - ?", amount))
}

// adjustBalance applies a relative balance update and reads the new balance
// back through RETURNING, all in one statement, so the row lock covers the
// whole read-modify-write.
func (r *ledgerRepository) adjustBalance(ctx context.Context, id uint, expr clause.Expr) (decimal.Decimal, error) {
	var wallet models.Wallet
	result := r.db.WithContext(ctx).
		Model(&wallet).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "balance"}}}).
		Where("id = ?", id).
		Update("balance", expr)
	if result.Error != nil {
		if isBalanceCheckViolation(result.Error) {
			return decimal.Zero, ErrBalanceBelowZero
		}
		return decimal.Zero, fmt.Errorf("failed to update balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return decimal.Zero, ErrWalletNotFound
	}
	return wallet.Balance, nil
}

func isBalanceCheckViolation(err error) bool {
	// 23514 is the postgres check_violation class; the constraint name comes
	// from the wallet model's check tag.
	msg := err.Error()
	return strings.Contains(msg, "non_negative_balance") || strings.Contains(msg, "23514")
}

func (r *ledgerRepository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	if !txn.State.Valid() {
		return fmt.Errorf("%w: state %q", ErrInvalidEnumValue, txn.State)
	}
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetTransaction(ctx context.Context, id uint) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).First(&txn, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

func (r *ledgerRepository) MarkTransactionFailed(ctx context.Context, id uint, reason models.FailedReason) error {
	if !reason.Valid() {
		return fmt.Errorf("%w: failed reason %q", ErrInvalidEnumValue, reason)
	}
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND state = ?", id, models.StateCreated).
		Updates(map[string]interface{}{
			"state":         models.StateFailed,
			"failed_reason": reason,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark transaction failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *ledgerRepository) MarkTransactionSucceeded(ctx context.Context, id uint, upd SucceededUpdate) error {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND state = ?", id, models.StateCreated).
		Updates(map[string]interface{}{
			"state":              models.StateSucceeded,
			"exchange_from_rate": upd.ExchangeFromRate,
			"exchange_to_rate":   upd.ExchangeToRate,
			"new_balance_from":   upd.NewBalanceFrom,
			"new_balance_to":     upd.NewBalanceTo,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark transaction succeeded: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *ledgerRepository) AppendTransactionLog(ctx context.Context, entry *models.TransactionLog) error {
	if !entry.State.Valid() {
		return fmt.Errorf("%w: state %q", ErrInvalidEnumValue, entry.State)
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append transaction log: %w", err)
	}
	return nil
}

func (r *ledgerRepository) TransactionLogs(ctx context.Context, transactionID uint) ([]models.TransactionLog, error) {
	var logs []models.TransactionLog
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC, id ASC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction logs: %w", err)
	}
	return logs, nil
}

func (r *ledgerRepository) TransactionsByWallet(ctx context.Context, walletID uint, start, end *time.Time) ([]models.Transaction, error) {
	query := r.db.WithContext(ctx).
		Where("from_wallet_id = ? OR to_wallet_id = ?", walletID, walletID)
	if start != nil {
		query = query.Where("created_at >= ?", *start)
	}
	if end != nil {
		query = query.Where("created_at <= ?", *end)
	}
	var txns []models.Transaction
	if err := query.Order("created_at ASC, id ASC").Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return txns, nil
}

func (r *ledgerRepository) ExecuteInTransaction(ctx context.Context, fn func(LedgerRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerRepository{db: tx})
	})
}
