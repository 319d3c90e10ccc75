// Package wallet implements the balance mutation primitives: credit, debit,
// existence and projection reads. Debit does not check sufficiency itself;
// the transfer engine pre-validates and the store constraint is the last
// line of defense.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dyens/billing/internal/models"
	"github.com/dyens/billing/internal/repositories"
)

// Cache is the read-through cache the service uses for wallet reads. Cache
// errors are treated as misses.
type Cache interface {
	GetWallet(ctx context.Context, walletID uint) (*models.Wallet, error)
	SetWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, walletID uint) error
}

// NoopCache satisfies Cache without caching anything.
type NoopCache struct{}

func (NoopCache) GetWallet(context.Context, uint) (*models.Wallet, error) {
	return nil, errors.New("noop cache")
}

func (NoopCache) SetWallet(context.Context, *models.Wallet) error { return nil }

func (NoopCache) InvalidateWallet(context.Context, uint) error { return nil }

// Service exposes the wallet primitives.
type Service interface {
	Exists(ctx context.Context, walletID uint) (bool, error)
	Info(ctx context.Context, walletID uint) (*models.Wallet, error)
	Credit(ctx context.Context, walletID uint, amount decimal.Decimal) (decimal.Decimal, error)
	Debit(ctx context.Context, walletID uint, amount decimal.Decimal) (decimal.Decimal, error)
	TopUp(ctx context.Context, walletID uint, amount decimal.Decimal) (decimal.Decimal, error)
}

type service struct {
	repo  repositories.LedgerRepository
	cache Cache
}

// NewService creates a wallet service.
func NewService(repo repositories.LedgerRepository, cache Cache) Service {
	if repo == nil {
		panic("repo is required")
	}
	if cache == nil {
		cache = NoopCache{}
	}
	return &service{repo: repo, cache: cache}
}

func (s *service) Exists(ctx context.Context, walletID uint) (bool, error) {
	return s.repo.WalletExists(ctx, walletID)
}

func (s *service) Info(ctx context.Context, walletID uint) (*models.Wallet, error) {
	if cached, err := s.cache.GetWallet(ctx, walletID); err == nil {
		return cached, nil
	}

	info, err := s.repo.GetWallet(ctx, walletID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	_ = s.cache.SetWallet(ctx, info)
	return info, nil
}

func (s *service) Credit(ctx context.Context, walletID uint, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	newBalance, err := s.repo.CreditWallet(ctx, walletID, amount)
	if err != nil {
		return decimal.Zero, s.mapRepoError("credit", err)
	}
	_ = s.cache.InvalidateWallet(ctx, walletID)
	return newBalance, nil
}

func (s *service) Debit(ctx context.Context, walletID uint, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	newBalance, err := s.repo.DebitWallet(ctx, walletID, amount)
	if err != nil {
		return decimal.Zero, s.mapRepoError("debit", err)
	}
	_ = s.cache.InvalidateWallet(ctx, walletID)
	return newBalance, nil
}

// TopUp credits a wallet inside its own atomic unit and returns the balance
// read back from that unit.
func (s *service) TopUp(ctx context.Context, walletID uint, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	var newBalance decimal.Decimal
	err := s.repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
		exists, err := tx.WalletExists(ctx, walletID)
		if err != nil {
			return err
		}
		if !exists {
			return repositories.ErrWalletNotFound
		}
		newBalance, err = tx.CreditWallet(ctx, walletID, amount)
		return err
	})
	if err != nil {
		return decimal.Zero, s.mapRepoError("top up", err)
	}

	_ = s.cache.InvalidateWallet(ctx, walletID)
	return newBalance, nil
}

func (s *service) mapRepoError(op string, err error) error {
	switch {
	case errors.Is(err, repositories.ErrWalletNotFound):
		return ErrWalletNotFound
	case errors.Is(err, repositories.ErrBalanceBelowZero):
		return ErrBalanceBelowZero
	default:
		return fmt.Errorf("failed to %s wallet: %w", op, err)
	}
}
