package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a balance in a single currency and belongs to exactly one
// user. The balance is mutated only through the ledger repository's credit
// and debit primitives; the non_negative_balance check is the store-level
// last line of defense against concurrent over-debits.
type Wallet struct {
	ID        uint            `gorm:"primarykey"`
	UserID    uint            `gorm:"uniqueIndex;not null"`
	User      User            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Balance   decimal.Decimal `gorm:"type:numeric;not null;check:non_negative_balance,balance >= 0"`
	Currency  Currency        `gorm:"type:varchar(8);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
