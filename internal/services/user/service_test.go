package user

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyens/billing/internal/models"
	"github.com/dyens/billing/internal/repositories/memory"
)

func TestUserService_Register(t *testing.T) {
	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{
			name: "successful registration",
			input: RegisterInput{
				Name:     "Alice",
				Country:  "Canada",
				City:     "Toronto",
				Currency: models.CurrencyCAD,
				Balance:  decimal.RequireFromString("15.5"),
			},
		},
		{
			name: "zero initial balance",
			input: RegisterInput{
				Name:     "Bob",
				Country:  "USA",
				City:     "Boston",
				Currency: models.CurrencyUSD,
			},
		},
		{
			name: "negative initial balance",
			input: RegisterInput{
				Name:     "Carol",
				Country:  "France",
				City:     "Paris",
				Currency: models.CurrencyEUR,
				Balance:  decimal.RequireFromString("-1"),
			},
			wantErr: ErrNegativeBalance,
		},
		{
			name: "unsupported currency",
			input: RegisterInput{
				Name:     "Dave",
				Country:  "UK",
				City:     "London",
				Currency: models.Currency("GBP"),
			},
			wantErr: ErrInvalidCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			svc := NewService(store, nil)

			userID, walletID, err := svc.Register(context.Background(), tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, userID)
			assert.NotZero(t, walletID)

			w, err := store.GetWalletByUserID(context.Background(), userID)
			require.NoError(t, err)
			assert.Equal(t, walletID, w.ID)
			assert.Equal(t, tt.input.Currency, w.Currency)
			assert.True(t, w.Balance.Equal(tt.input.Balance))
		})
	}
}

func TestUserService_Info(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store, nil)

	userID, walletID, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Alice",
		Country:  "Canada",
		City:     "Toronto",
		Currency: models.CurrencyCAD,
		Balance:  decimal.RequireFromString("100"),
	})
	require.NoError(t, err)

	t.Run("profile joins user and wallet", func(t *testing.T) {
		profile, err := svc.Info(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, userID, profile.UserID)
		assert.Equal(t, "Alice", profile.Name)
		assert.Equal(t, "Canada", profile.Country)
		assert.Equal(t, "Toronto", profile.City)
		assert.Equal(t, walletID, profile.WalletID)
		assert.Equal(t, models.CurrencyCAD, profile.Currency)
		assert.True(t, profile.Balance.Equal(decimal.RequireFromString("100")))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Info(context.Background(), userID+100)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
