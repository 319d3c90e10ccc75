// Package repositories provides the data access layer. It owns the durable
// representation of users, wallets, transactions and transaction logs, and
// exposes the atomic primitives the services compose into transfers.
package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyens/billing/internal/models"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrBalanceBelowZero    = errors.New("balance below zero")
	ErrInvalidEnumValue    = errors.New("invalid enum value")
)

// SucceededUpdate carries the fields stamped on a transaction when it reaches
// SUCCEEDED: both exchange rates and both post-transfer balances.
type SucceededUpdate struct {
	ExchangeFromRate decimal.Decimal
	ExchangeToRate   decimal.Decimal
	NewBalanceFrom   decimal.Decimal
	NewBalanceTo     decimal.Decimal
}

// LedgerRepository defines the ledger store operations. All writes issued
// from the same ExecuteInTransaction closure share one commit/rollback
// boundary; methods called on the root repository each run in their own
// implicit transaction.
type LedgerRepository interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)

	// Wallets
	CreateWallet(ctx context.Context, wallet *models.Wallet) error
	GetWallet(ctx context.Context, id uint) (*models.Wallet, error)
	// GetWalletForUpdate reads a wallet under a row lock, serializing
	// concurrent transfers that contend on the same source wallet.
	GetWalletForUpdate(ctx context.Context, id uint) (*models.Wallet, error)
	GetWalletByUserID(ctx context.Context, userID uint) (*models.Wallet, error)
	WalletExists(ctx context.Context, id uint) (bool, error)
	// CreditWallet and DebitWallet mutate the balance with a single
	// read-modify-write statement and return the post-mutation balance read
	// back from the same atomic unit.
	CreditWallet(ctx context.Context, id uint, amount decimal.Decimal) (decimal.Decimal, error)
	DebitWallet(ctx context.Context, id uint, amount decimal.Decimal) (decimal.Decimal, error)

	// Transactions
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	GetTransaction(ctx context.Context, id uint) (*models.Transaction, error)
	MarkTransactionFailed(ctx context.Context, id uint, reason models.FailedReason) error
	MarkTransactionSucceeded(ctx context.Context, id uint, upd SucceededUpdate) error

	// Audit trail
	AppendTransactionLog(ctx context.Context, entry *models.TransactionLog) error
	TransactionLogs(ctx context.Context, transactionID uint) ([]models.TransactionLog, error)

	// Projections
	TransactionsByWallet(ctx context.Context, walletID uint, start, end *time.Time) ([]models.Transaction, error)

	// ExecuteInTransaction runs fn against a repository scoped to a single
	// database transaction. Returning an error rolls back every write made
	// through that repository. Nested calls join the enclosing transaction.
	ExecuteInTransaction(ctx context.Context, fn func(LedgerRepository) error) error
}
