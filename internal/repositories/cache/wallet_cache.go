package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dyens/billing/internal/models"
)

// WalletCache is the redis-backed read-through cache for wallet reads.
type WalletCache struct {
	svc *Service
	ttl time.Duration
}

// NewWalletCache wraps a cache service with wallet-specific keys.
func NewWalletCache(svc *Service, ttl time.Duration) *WalletCache {
	return &WalletCache{svc: svc, ttl: ttl}
}

func (c *WalletCache) GetWallet(ctx context.Context, walletID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := c.svc.GetJSON(ctx, walletKey(walletID), &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (c *WalletCache) SetWallet(ctx context.Context, wallet *models.Wallet) error {
	return c.svc.SetJSON(ctx, walletKey(wallet.ID), wallet, c.ttl)
}

func (c *WalletCache) InvalidateWallet(ctx context.Context, walletID uint) error {
	return c.svc.Delete(ctx, walletKey(walletID))
}

func walletKey(walletID uint) string {
	return fmt.Sprintf("wallet:%d", walletID)
}
