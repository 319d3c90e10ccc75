package rates

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyens/billing/internal/models"
)

// defaultRates are the fixed multipliers to USD each supported currency
// fluctuates around.
var defaultRates = map[models.Currency]decimal.Decimal{
	models.CurrencyUSD: decimal.NewFromInt(1),
	models.CurrencyEUR: decimal.RequireFromString("1.1"),
	models.CurrencyCAD: decimal.RequireFromString("0.75"),
	models.CurrencyCNY: decimal.RequireFromString("0.14"),
}

// SeededSource produces rates within a [1.0, 1.05] band around the default
// multiplier. The generator is re-seeded from the configured seed on every
// call, so a fixed seed yields the same rate for the same currency on every
// lookup. The seed is an explicit handle rather than process-wide state so
// tests can inject deterministic sequences.
type SeededSource struct {
	seed            int64
	simulateLatency bool
}

// NewSeededSource returns a deterministic rate source. With simulateLatency
// the call sleeps 1-5 seconds before answering, modeling a slow provider;
// the sleep respects context cancellation.
func NewSeededSource(seed int64, simulateLatency bool) *SeededSource {
	return &SeededSource{seed: seed, simulateLatency: simulateLatency}
}

func (s *SeededSource) Rate(ctx context.Context, currency models.Currency) (decimal.Decimal, error) {
	base, ok := defaultRates[currency]
	if !ok {
		return decimal.Zero, ErrUnknownCurrency
	}

	rng := rand.New(rand.NewSource(s.seed))

	if s.simulateLatency {
		delay := time.Duration((1 + 4*rng.Float64()) * float64(time.Second))
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		}
	}

	// The base currency is exact by definition.
	if currency == models.BaseCurrency {
		return decimal.NewFromInt(1), nil
	}

	fluctuation := decimal.NewFromFloat(1.0 + rng.Float64()*0.05)
	return base.Mul(fluctuation), nil
}
