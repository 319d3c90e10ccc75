// Package rates provides currency rate lookup against the USD base unit.
// The production implementation is an injected external provider; the seeded
// source in this package is the deterministic stand-in.
package rates

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/dyens/billing/internal/models"
)

var (
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrUnavailable     = errors.New("rate source unavailable")
)

// Source looks up the conversion rate from a currency to the base unit.
// Implementations may block for network latency; callers bound each call
// with a context deadline.
type Source interface {
	Rate(ctx context.Context, currency models.Currency) (decimal.Decimal, error)
}
