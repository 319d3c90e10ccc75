// Package user handles registration and profile reads. Registration creates
// the user together with its single wallet in one atomic unit.
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dyens/billing/internal/models"
	"github.com/dyens/billing/internal/repositories"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrNegativeBalance = errors.New("initial balance must not be negative")
)

// RegisterInput is the registration payload.
type RegisterInput struct {
	Name     string
	Country  string
	City     string
	Currency models.Currency
	Balance  decimal.Decimal
}

// Profile is a user joined with its wallet.
type Profile struct {
	UserID   uint            `json:"user_id"`
	Name     string          `json:"name"`
	Country  string          `json:"country"`
	City     string          `json:"city"`
	WalletID uint            `json:"wallet_id"`
	Balance  decimal.Decimal `json:"balance"`
	Currency models.Currency `json:"currency"`
}

// Cache is the read-through cache for profiles. Errors are treated as
// misses.
type Cache interface {
	GetProfile(ctx context.Context, userID uint) (*Profile, error)
	SetProfile(ctx context.Context, profile *Profile) error
	InvalidateProfile(ctx context.Context, userID uint) error
}

// NoopCache satisfies Cache without caching anything.
type NoopCache struct{}

func (NoopCache) GetProfile(context.Context, uint) (*Profile, error) {
	return nil, errors.New("noop cache")
}

func (NoopCache) SetProfile(context.Context, *Profile) error { return nil }

func (NoopCache) InvalidateProfile(context.Context, uint) error { return nil }

// Service exposes registration and profile reads.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (userID, walletID uint, err error)
	Info(ctx context.Context, userID uint) (*Profile, error)
}

type service struct {
	repo  repositories.LedgerRepository
	cache Cache
}

// NewService creates a user service.
func NewService(repo repositories.LedgerRepository, cache Cache) Service {
	if repo == nil {
		panic("repo is required")
	}
	if cache == nil {
		cache = NoopCache{}
	}
	return &service{repo: repo, cache: cache}
}

func (s *service) Register(ctx context.Context, input RegisterInput) (uint, uint, error) {
	if !input.Currency.Valid() {
		return 0, 0, ErrInvalidCurrency
	}
	if input.Balance.IsNegative() {
		return 0, 0, ErrNegativeBalance
	}

	var userID, walletID uint
	err := s.repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
		newUser := &models.User{
			Name:    input.Name,
			Country: input.Country,
			City:    input.City,
		}
		if err := tx.CreateUser(ctx, newUser); err != nil {
			return err
		}
		newWallet := &models.Wallet{
			UserID:   newUser.ID,
			Balance:  input.Balance,
			Currency: input.Currency,
		}
		if err := tx.CreateWallet(ctx, newWallet); err != nil {
			return err
		}
		userID = newUser.ID
		walletID = newWallet.ID
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to register user: %w", err)
	}
	return userID, walletID, nil
}

func (s *service) Info(ctx context.Context, userID uint) (*Profile, error) {
	if cached, err := s.cache.GetProfile(ctx, userID); err == nil {
		return cached, nil
	}

	account, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	userWallet, err := s.repo.GetWalletByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	profile := &Profile{
		UserID:   account.ID,
		Name:     account.Name,
		Country:  account.Country,
		City:     account.City,
		WalletID: userWallet.ID,
		Balance:  userWallet.Balance,
		Currency: userWallet.Currency,
	}
	_ = s.cache.SetProfile(ctx, profile)
	return profile, nil
}
