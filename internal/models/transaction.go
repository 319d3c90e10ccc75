package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionState is the lifecycle state of a transfer attempt. A
// transaction starts in CREATED and moves at most once more, to SUCCEEDED or
// FAILED. Both are terminal.
type TransactionState string

const (
	StateCreated   TransactionState = "CREATED"
	StateSucceeded TransactionState = "SUCCEEDED"
	StateFailed    TransactionState = "FAILED"
)

// Valid reports whether s is a recognized transaction state.
func (s TransactionState) Valid() bool {
	switch s {
	case StateCreated, StateSucceeded, StateFailed:
		return true
	}
	return false
}

// FailedReason explains why a transaction reached FAILED.
type FailedReason string

const (
	ReasonNotEnoughMoney  FailedReason = "NOT_ENOUGH_MONEY"
	ReasonRateUnavailable FailedReason = "RATE_UNAVAILABLE"
	ReasonUnknown         FailedReason = "UNKNOWN"
)

// Valid reports whether r is a recognized failure reason.
func (r FailedReason) Valid() bool {
	switch r {
	case ReasonNotEnoughMoney, ReasonRateUnavailable, ReasonUnknown:
		return true
	}
	return false
}

// Transaction records one transfer attempt between two distinct wallets.
// Amount is denominated in the source wallet's currency. The exchange rates
// and post-transfer balance snapshots are set only on success; FailedReason
// only on failure.
type Transaction struct {
	ID               uint             `gorm:"primarykey"`
	FromWalletID     uint             `gorm:"not null;index"`
	FromWallet       Wallet           `gorm:"foreignKey:FromWalletID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ToWalletID       uint             `gorm:"not null;index"`
	ToWallet         Wallet           `gorm:"foreignKey:ToWalletID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	State            TransactionState `gorm:"type:varchar(16);not null"`
	Amount           decimal.Decimal  `gorm:"type:numeric;not null"`
	ExchangeFromRate *decimal.Decimal `gorm:"type:numeric"`
	ExchangeToRate   *decimal.Decimal `gorm:"type:numeric"`
	NewBalanceFrom   *decimal.Decimal `gorm:"type:numeric"`
	NewBalanceTo     *decimal.Decimal `gorm:"type:numeric"`
	FailedReason     *FailedReason    `gorm:"type:varchar(32)"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TransactionLog is one row of the append-only audit trail: a single state
// transition of a transaction. Logs are never updated or deleted.
type TransactionLog struct {
	ID            uint             `gorm:"primarykey"`
	TransactionID uint             `gorm:"not null;index"`
	Transaction   Transaction      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	State         TransactionState `gorm:"type:varchar(16);not null"`
	Comment       string           `gorm:"type:text"`
	CreatedAt     time.Time
}
