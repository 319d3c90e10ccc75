package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dyens/billing/internal/services/user"
)

// UserCache is the redis-backed read-through cache for user profiles. The
// profile embeds the wallet balance, so wiring keeps its TTL short instead
// of invalidating on every transfer.
type UserCache struct {
	svc *Service
	ttl time.Duration
}

// NewUserCache wraps a cache service with profile-specific keys.
func NewUserCache(svc *Service, ttl time.Duration) *UserCache {
	return &UserCache{svc: svc, ttl: ttl}
}

func (c *UserCache) GetProfile(ctx context.Context, userID uint) (*user.Profile, error) {
	var profile user.Profile
	if err := c.svc.GetJSON(ctx, profileKey(userID), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *UserCache) SetProfile(ctx context.Context, profile *user.Profile) error {
	return c.svc.SetJSON(ctx, profileKey(profile.UserID), profile, c.ttl)
}

func (c *UserCache) InvalidateProfile(ctx context.Context, userID uint) error {
	return c.svc.Delete(ctx, profileKey(userID))
}

func profileKey(userID uint) string {
	return fmt.Sprintf("user:profile:%d", userID)
}
