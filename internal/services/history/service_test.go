package history

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyens/billing/internal/models"
	"github.com/dyens/billing/internal/repositories/memory"
	"github.com/dyens/billing/internal/services/transfer"
)

func seedWallet(t *testing.T, store *memory.Store, balance string, currency models.Currency) uint {
	t.Helper()
	ctx := context.Background()

	owner := &models.User{Name: "test", Country: "CN", City: "Beijing"}
	require.NoError(t, store.CreateUser(ctx, owner))

	w := &models.Wallet{
		UserID:   owner.ID,
		Balance:  decimal.RequireFromString(balance),
		Currency: currency,
	}
	require.NoError(t, store.CreateWallet(ctx, w))
	return w.ID
}

// fixedRates is a minimal rate source for driving real transfers through the
// engine when seeding history.
type fixedRates struct{}

func (fixedRates) Rate(_ context.Context, currency models.Currency) (decimal.Decimal, error) {
	switch currency {
	case models.CurrencyUSD:
		return decimal.NewFromInt(1), nil
	case models.CurrencyEUR:
		return decimal.RequireFromString("1.1532"), nil
	default:
		return decimal.RequireFromString("0.1468"), nil
	}
}

func TestHistoryService_Transfers(t *testing.T) {
	store := memory.NewStore()
	engine := transfer.NewEngine(store, fixedRates{}, transfer.Config{})
	svc := NewService(store)

	a := seedWallet(t, store, "100", models.CurrencyUSD)
	b := seedWallet(t, store, "50", models.CurrencyUSD)
	c := seedWallet(t, store, "10", models.CurrencyUSD)

	// a -> b 30 (succeeds), b -> a 500 (fails), c -> b 5 (succeeds).
	run := func(from, to uint, amount string) {
		t.Helper()
		_, err := engine.Execute(context.Background(), transfer.Request{
			FromWalletID: from,
			ToWalletID:   to,
			Amount:       decimal.RequireFromString(amount),
		})
		require.NoError(t, err)
	}
	run(a, b, "30")
	run(b, a, "500")
	run(c, b, "5")

	t.Run("annotates the queried wallet's side", func(t *testing.T) {
		entries, err := svc.Transfers(context.Background(), b, nil, nil)
		require.NoError(t, err)
		require.Len(t, entries, 3)

		// b was the destination of the first transfer.
		assert.Equal(t, a, entries[0].FromWalletID)
		assert.Equal(t, models.StateSucceeded, entries[0].State)
		require.NotNil(t, entries[0].NewBalance)
		assert.True(t, entries[0].NewBalance.Equal(decimal.RequireFromString("80")))

		// The failed transfer carries no balance snapshot.
		assert.Equal(t, models.StateFailed, entries[1].State)
		assert.Nil(t, entries[1].NewBalance)

		// b was the destination of the third transfer.
		require.NotNil(t, entries[2].NewBalance)
		assert.True(t, entries[2].NewBalance.Equal(decimal.RequireFromString("85")))
	})

	t.Run("source side uses the source snapshot", func(t *testing.T) {
		entries, err := svc.Transfers(context.Background(), a, nil, nil)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		require.NotNil(t, entries[0].NewBalance)
		assert.True(t, entries[0].NewBalance.Equal(decimal.RequireFromString("70")))
	})

	t.Run("unknown wallet yields an empty history", func(t *testing.T) {
		entries, err := svc.Transfers(context.Background(), 999, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("time range filters", func(t *testing.T) {
		future := time.Now().Add(time.Hour)
		entries, err := svc.Transfers(context.Background(), b, &future, nil)
		require.NoError(t, err)
		assert.Empty(t, entries)

		past := time.Now().Add(-time.Hour)
		entries, err = svc.Transfers(context.Background(), b, &past, &future)
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})
}

func TestHistoryService_Logs(t *testing.T) {
	store := memory.NewStore()
	engine := transfer.NewEngine(store, fixedRates{}, transfer.Config{})
	svc := NewService(store)

	a := seedWallet(t, store, "100", models.CurrencyUSD)
	b := seedWallet(t, store, "0", models.CurrencyUSD)

	txn, err := engine.Execute(context.Background(), transfer.Request{
		FromWalletID: a,
		ToWalletID:   b,
		Amount:       decimal.RequireFromString("10"),
	})
	require.NoError(t, err)

	t.Run("logs ordered by creation", func(t *testing.T) {
		logs, err := svc.Logs(context.Background(), txn.ID)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, models.StateCreated, logs[0].State)
		assert.Equal(t, "Transaction created", logs[0].Comment)
		assert.Equal(t, models.StateSucceeded, logs[1].State)
		assert.Equal(t, "Success", logs[1].Comment)
		assert.False(t, logs[1].CreatedAt.Before(logs[0].CreatedAt))
	})

	t.Run("unknown transaction", func(t *testing.T) {
		_, err := svc.Logs(context.Background(), txn.ID+100)
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})
}
