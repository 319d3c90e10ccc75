package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrencyValid(t *testing.T) {
	for _, c := range []Currency{CurrencyUSD, CurrencyEUR, CurrencyCAD, CurrencyCNY} {
		assert.True(t, c.Valid(), "%s must be valid", c)
	}
	assert.False(t, Currency("GBP").Valid())
	assert.False(t, Currency("").Valid())
}

func TestTransactionStateValid(t *testing.T) {
	for _, s := range []TransactionState{StateCreated, StateSucceeded, StateFailed} {
		assert.True(t, s.Valid(), "%s must be valid", s)
	}
	assert.False(t, TransactionState("PENDING").Valid())
}

func TestFailedReasonValid(t *testing.T) {
	for _, r := range []FailedReason{ReasonNotEnoughMoney, ReasonRateUnavailable, ReasonUnknown} {
		assert.True(t, r.Valid(), "%s must be valid", r)
	}
	assert.False(t, FailedReason("TIMEOUT").Valid())
}
