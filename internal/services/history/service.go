// Package history provides read-only projections over the transaction
// ledger and its audit trail.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyens/billing/internal/models"
	"github.com/dyens/billing/internal/repositories"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// Entry is one transaction viewed from a wallet's perspective. NewBalance is
// the balance the queried wallet held after the transaction; it is nil for
// transactions that never succeeded.
type Entry struct {
	TransactionID uint                    `json:"transaction_id"`
	FromWalletID  uint                    `json:"from_wallet_id"`
	ToWalletID    uint                    `json:"to_wallet_id"`
	Amount        decimal.Decimal         `json:"amount"`
	State         models.TransactionState `json:"state"`
	NewBalance    *decimal.Decimal        `json:"new_balance,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
}

// Log is one audit trail row.
type Log struct {
	State     models.TransactionState `json:"state"`
	Comment   string                  `json:"comment"`
	CreatedAt time.Time               `json:"created_at"`
}

// Service exposes the history and audit projections.
type Service interface {
	Transfers(ctx context.Context, walletID uint, start, end *time.Time) ([]Entry, error)
	Logs(ctx context.Context, transactionID uint) ([]Log, error)
}

type service struct {
	repo repositories.LedgerRepository
}

// NewService creates a history service.
func NewService(repo repositories.LedgerRepository) Service {
	if repo == nil {
		panic("repo is required")
	}
	return &service{repo: repo}
}

func (s *service) Transfers(ctx context.Context, walletID uint, start, end *time.Time) ([]Entry, error) {
	txns, err := s.repo.TransactionsByWallet(ctx, walletID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer history: %w", err)
	}

	entries := make([]Entry, 0, len(txns))
	for _, txn := range txns {
		entry := Entry{
			TransactionID: txn.ID,
			FromWalletID:  txn.FromWalletID,
			ToWalletID:    txn.ToWalletID,
			Amount:        txn.Amount,
			State:         txn.State,
			CreatedAt:     txn.CreatedAt,
		}
		// Pick the balance snapshot for the side the queried wallet was on.
		if txn.FromWalletID == walletID {
			entry.NewBalance = txn.NewBalanceFrom
		} else {
			entry.NewBalance = txn.NewBalanceTo
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *service) Logs(ctx context.Context, transactionID uint) ([]Log, error) {
	if _, err := s.repo.GetTransaction(ctx, transactionID); err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	rows, err := s.repo.TransactionLogs(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction logs: %w", err)
	}

	logs := make([]Log, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, Log{
			State:     row.State,
			Comment:   row.Comment,
			CreatedAt: row.CreatedAt,
		})
	}
	return logs, nil
}
