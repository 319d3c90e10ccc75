package transfer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyens/billing/internal/models"
	"github.com/dyens/billing/internal/repositories/memory"
	"github.com/dyens/billing/internal/services/rates"
)

// stubRates serves fixed rates, optionally failing or blocking.
type stubRates struct {
	rates map[models.Currency]decimal.Decimal
	err   error
	delay time.Duration
}

func (s stubRates) Rate(ctx context.Context, currency models.Currency) (decimal.Decimal, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		}
	}
	if s.err != nil {
		return decimal.Zero, s.err
	}
	rate, ok := s.rates[currency]
	if !ok {
		return decimal.Zero, rates.ErrUnknownCurrency
	}
	return rate, nil
}

// seededTestRates are the fixed rates the deterministic scenario below
// pins: EUR 1.1532 and CNY 0.1468 to the USD base.
func seededTestRates() stubRates {
	return stubRates{rates: map[models.Currency]decimal.Decimal{
		models.CurrencyUSD: decimal.NewFromInt(1),
		models.CurrencyEUR: decimal.RequireFromString("1.1532"),
		models.CurrencyCNY: decimal.RequireFromString("0.1468"),
		models.CurrencyCAD: decimal.RequireFromString("0.7862"),
	}}
}

func seedWallet(t *testing.T, store *memory.Store, balance string, currency models.Currency) uint {
	t.Helper()
	ctx := context.Background()

	owner := &models.User{Name: "test", Country: "RU", City: "Moscow"}
	require.NoError(t, store.CreateUser(ctx, owner))

	w := &models.Wallet{
		UserID:   owner.ID,
		Balance:  decimal.RequireFromString(balance),
		Currency: currency,
	}
	require.NoError(t, store.CreateWallet(ctx, w))
	return w.ID
}

func walletBalance(t *testing.T, store *memory.Store, id uint) decimal.Decimal {
	t.Helper()
	w, err := store.GetWallet(context.Background(), id)
	require.NoError(t, err)
	return w.Balance
}

func TestEngine_Execute_Success(t *testing.T) {
	store := memory.NewStore()
	engine := NewEngine(store, seededTestRates(), Config{})
	from := seedWallet(t, store, "0.3", models.CurrencyEUR)
	to := seedWallet(t, store, "0.4", models.CurrencyCNY)

	txn, err := engine.Execute(context.Background(), Request{
		FromWalletID: from,
		ToWalletID:   to,
		Amount:       decimal.RequireFromString("0.1"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.StateSucceeded, txn.State)
	require.NotNil(t, txn.ExchangeFromRate)
	require.NotNil(t, txn.ExchangeToRate)
	assert.True(t, txn.ExchangeFromRate.Equal(decimal.RequireFromString("1.1532")))
	assert.True(t, txn.ExchangeToRate.Equal(decimal.RequireFromString("0.1468")))
	assert.Nil(t, txn.FailedReason)

	// 0.1 * 1.1532 / 0.1468 rounded to 8 fractional digits.
	credited := decimal.RequireFromString("0.78555858")
	fromBalance := walletBalance(t, store, from)
	toBalance := walletBalance(t, store, to)
	assert.True(t, fromBalance.Equal(decimal.RequireFromString("0.2")), "source balance %s", fromBalance)
	assert.True(t, toBalance.Equal(decimal.RequireFromString("0.4").Add(credited)), "destination balance %s", toBalance)

	require.NotNil(t, txn.NewBalanceFrom)
	require.NotNil(t, txn.NewBalanceTo)
	assert.True(t, txn.NewBalanceFrom.Equal(fromBalance))
	assert.True(t, txn.NewBalanceTo.Equal(toBalance))

	logs, err := store.TransactionLogs(context.Background(), txn.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.StateCreated, logs[0].State)
	assert.Equal(t, models.StateSucceeded, logs[1].State)
}

func TestEngine_Execute_NotEnoughMoney(t *testing.T) {
	store := memory.NewStore()
	engine := NewEngine(store, seededTestRates(), Config{})
	from := seedWallet(t, store, "0.3", models.CurrencyEUR)
	to := seedWallet(t, store, "0.4", models.CurrencyCNY)

	txn, err := engine.Execute(context.Background(), Request{
		FromWalletID: from,
		ToWalletID:   to,
		Amount:       decimal.RequireFromString("1000"),
	})
	require.NoError(t, err, "a business failure is a committed FAILED transaction, not an error")

	assert.Equal(t, models.StateFailed, txn.State)
	require.NotNil(t, txn.FailedReason)
	assert.Equal(t, models.ReasonNotEnoughMoney, *txn.FailedReason)
	assert.Nil(t, txn.ExchangeFromRate)
	assert.Nil(t, txn.NewBalanceFrom)

	assert.True(t, walletBalance(t, store, from).Equal(decimal.RequireFromString("0.3")))
	assert.True(t, walletBalance(t, store, to).Equal(decimal.RequireFromString("0.4")))

	logs, err := store.TransactionLogs(context.Background(), txn.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2, "exactly one log beyond the creation log")
	assert.Equal(t, models.StateCreated, logs[0].State)
	assert.Equal(t, models.StateFailed, logs[1].State)

	stored, err := store.GetTransaction(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateFailed, stored.State)
}

func TestEngine_Execute_RateUnavailable(t *testing.T) {
	t.Run("lookup error", func(t *testing.T) {
		store := memory.NewStore()
		engine := NewEngine(store, stubRates{err: rates.ErrUnavailable}, Config{})
		from := seedWallet(t, store, "5", models.CurrencyEUR)
		to := seedWallet(t, store, "5", models.CurrencyCNY)

		txn, err := engine.Execute(context.Background(), Request{
			FromWalletID: from,
			ToWalletID:   to,
			Amount:       decimal.RequireFromString("1"),
		})
		require.NoError(t, err)

		assert.Equal(t, models.StateFailed, txn.State)
		require.NotNil(t, txn.FailedReason)
		assert.Equal(t, models.ReasonRateUnavailable, *txn.FailedReason)
		assert.True(t, walletBalance(t, store, from).Equal(decimal.RequireFromString("5")))
		assert.True(t, walletBalance(t, store, to).Equal(decimal.RequireFromString("5")))
	})

	t.Run("lookup timeout", func(t *testing.T) {
		store := memory.NewStore()
		slow := stubRates{rates: seededTestRates().rates, delay: time.Second}
		engine := NewEngine(store, slow, Config{RateTimeout: 10 * time.Millisecond})
		from := seedWallet(t, store, "5", models.CurrencyEUR)
		to := seedWallet(t, store, "5", models.CurrencyCNY)

		txn, err := engine.Execute(context.Background(), Request{
			FromWalletID: from,
			ToWalletID:   to,
			Amount:       decimal.RequireFromString("1"),
		})
		require.NoError(t, err)

		assert.Equal(t, models.StateFailed, txn.State)
		require.NotNil(t, txn.FailedReason)
		assert.Equal(t, models.ReasonRateUnavailable, *txn.FailedReason)
	})
}

func TestEngine_Execute_Preconditions(t *testing.T) {
	store := memory.NewStore()
	engine := NewEngine(store, seededTestRates(), Config{})
	from := seedWallet(t, store, "1", models.CurrencyUSD)
	to := seedWallet(t, store, "1", models.CurrencyUSD)

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{
			name:    "same wallet",
			req:     Request{FromWalletID: from, ToWalletID: from, Amount: decimal.NewFromInt(1)},
			wantErr: ErrSameWallet,
		},
		{
			name:    "zero amount",
			req:     Request{FromWalletID: from, ToWalletID: to, Amount: decimal.Zero},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			req:     Request{FromWalletID: from, ToWalletID: to, Amount: decimal.NewFromInt(-1)},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "missing source wallet",
			req:     Request{FromWalletID: 999, ToWalletID: to, Amount: decimal.NewFromInt(1)},
			wantErr: ErrWalletNotFound,
		},
		{
			name:    "missing destination wallet",
			req:     Request{FromWalletID: from, ToWalletID: 999, Amount: decimal.NewFromInt(1)},
			wantErr: ErrWalletNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Execute(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)

			// Precondition failures must leave no ledger trace.
			for _, walletID := range []uint{from, to} {
				txns, err := store.TransactionsByWallet(context.Background(), walletID, nil, nil)
				require.NoError(t, err)
				assert.Empty(t, txns)
			}
		})
	}
}

func TestEngine_Execute_DisjointPairsConcurrently(t *testing.T) {
	store := memory.NewStore()
	engine := NewEngine(store, seededTestRates(), Config{})

	const pairs = 4
	froms := make([]uint, pairs)
	tos := make([]uint, pairs)
	for i := 0; i < pairs; i++ {
		froms[i] = seedWallet(t, store, "100", models.CurrencyUSD)
		tos[i] = seedWallet(t, store, "0", models.CurrencyUSD)
	}

	var wg sync.WaitGroup
	errs := make([]error, pairs)
	for i := 0; i < pairs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Execute(context.Background(), Request{
				FromWalletID: froms[i],
				ToWalletID:   tos[i],
				Amount:       decimal.RequireFromString("60"),
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < pairs; i++ {
		require.NoError(t, errs[i], "pair %d", i)
		assert.True(t, walletBalance(t, store, froms[i]).Equal(decimal.RequireFromString("40")))
		assert.True(t, walletBalance(t, store, tos[i]).Equal(decimal.RequireFromString("60")))
	}
}

func TestEngine_Execute_ContendedSourceWallet(t *testing.T) {
	store := memory.NewStore()
	engine := NewEngine(store, seededTestRates(), Config{})
	from := seedWallet(t, store, "10", models.CurrencyUSD)
	to := seedWallet(t, store, "0", models.CurrencyUSD)
	other := seedWallet(t, store, "0", models.CurrencyUSD)

	// Two debits of 7 against a balance of 10: at most one may succeed.
	var wg sync.WaitGroup
	results := make([]*models.Transaction, 2)
	errs := make([]error, 2)
	destinations := []uint{to, other}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engine.Execute(context.Background(), Request{
				FromWalletID: from,
				ToWalletID:   destinations[i],
				Amount:       decimal.RequireFromString("7"),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		if results[i].State == models.StateSucceeded {
			succeeded++
		} else {
			require.NotNil(t, results[i].FailedReason)
			assert.Equal(t, models.ReasonNotEnoughMoney, *results[i].FailedReason)
		}
	}
	assert.Equal(t, 1, succeeded, "combined debits exceed the balance, exactly one transfer may succeed")
	assert.True(t, walletBalance(t, store, from).Equal(decimal.RequireFromString("3")))
	assert.False(t, walletBalance(t, store, from).IsNegative())
}

func TestEngine_Execute_RandomSequenceKeepsBalancesNonNegative(t *testing.T) {
	store := memory.NewStore()
	engine := NewEngine(store, seededTestRates(), Config{})

	walletIDs := []uint{
		seedWallet(t, store, "10", models.CurrencyUSD),
		seedWallet(t, store, "5", models.CurrencyEUR),
		seedWallet(t, store, "1", models.CurrencyCNY),
	}

	amounts := []string{"0.5", "3", "7.25", "12", "0.01"}
	for i := 0; i < 40; i++ {
		from := walletIDs[i%len(walletIDs)]
		to := walletIDs[(i+1+i%2)%len(walletIDs)]
		if from == to {
			continue
		}
		_, err := engine.Execute(context.Background(), Request{
			FromWalletID: from,
			ToWalletID:   to,
			Amount:       decimal.RequireFromString(amounts[i%len(amounts)]),
		})
		require.NoError(t, err)

		for _, id := range walletIDs {
			balance := walletBalance(t, store, id)
			require.False(t, balance.IsNegative(),
				fmt.Sprintf("wallet %d went negative after step %d: %s", id, i, balance))
		}
	}
}
