package transfer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dyens/billing/internal/models"
)

// conversionScale is the number of fractional digits the conversion
// division is rounded to (half away from zero).
const conversionScale = 8

// Default dispatcher settings.
const (
	DefaultRateTimeout = 10 * time.Second
	DefaultWorkers     = 4
	DefaultQueueSize   = 128
	DefaultStatusTTL   = 24 * time.Hour
)

// Request is one transfer between two wallets. Amount is denominated in the
// source wallet's currency.
type Request struct {
	FromWalletID uint
	ToWalletID   uint
	Amount       decimal.Decimal
}

// Config tunes the engine and dispatcher.
type Config struct {
	// RateTimeout bounds each rate source call; a timeout maps to a FAILED
	// transaction with reason RATE_UNAVAILABLE.
	RateTimeout time.Duration
	Workers     int
	QueueSize   int
	StatusTTL   time.Duration
}

func (c Config) withDefaults() Config {
	if c.RateTimeout == 0 {
		c.RateTimeout = DefaultRateTimeout
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.StatusTTL == 0 {
		c.StatusTTL = DefaultStatusTTL
	}
	return c
}

// JobState is the dispatcher-side lifecycle of an enqueued transfer.
type JobState string

const (
	JobQueued    JobState = "QUEUED"
	JobRunning   JobState = "RUNNING"
	JobSucceeded JobState = "SUCCEEDED"
	JobFailed    JobState = "FAILED"
)

// JobStatus is the observable outcome of an enqueued transfer.
type JobStatus struct {
	ID            uuid.UUID            `json:"id"`
	State         JobState             `json:"state"`
	TransactionID *uint                `json:"transaction_id,omitempty"`
	FailedReason  *models.FailedReason `json:"failed_reason,omitempty"`
	Error         string               `json:"error,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}
