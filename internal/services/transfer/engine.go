package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyens/billing/internal/models"
	"github.com/dyens/billing/internal/repositories"
	"github.com/dyens/billing/internal/services/rates"
)

// Engine executes transfers synchronously. Most callers go through the
// Dispatcher; the engine is exposed for direct execution in tests and jobs.
type Engine struct {
	repo        repositories.LedgerRepository
	rates       rates.Source
	rateTimeout time.Duration
}

// NewEngine creates a transfer engine.
func NewEngine(repo repositories.LedgerRepository, src rates.Source, cfg Config) *Engine {
	if repo == nil {
		panic("repo is required")
	}
	if src == nil {
		panic("rate source is required")
	}
	cfg = cfg.withDefaults()
	return &Engine{
		repo:        repo,
		rates:       src,
		rateTimeout: cfg.RateTimeout,
	}
}

// Preflight runs the caller-visible precondition checks without touching the
// ledger: same-wallet, positive amount, both wallets exist. The engine
// repeats the existence check inside the write transaction, since state may
// change between check and use.
func (e *Engine) Preflight(ctx context.Context, req Request) error {
	if req.FromWalletID == req.ToWalletID {
		return ErrSameWallet
	}
	if !req.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	for _, walletID := range []uint{req.FromWalletID, req.ToWalletID} {
		exists, err := e.repo.WalletExists(ctx, walletID)
		if err != nil {
			return fmt.Errorf("failed to check wallet %d: %w", walletID, err)
		}
		if !exists {
			return fmt.Errorf("%w: wallet %d", ErrWalletNotFound, walletID)
		}
	}
	return nil
}

// Execute runs one transfer through the state machine. Business failures
// (insufficient balance, rate unavailable) return the persisted FAILED
// transaction and a nil error; precondition violations return an error with
// nothing persisted; infrastructure errors roll the whole unit back.
func (e *Engine) Execute(ctx context.Context, req Request) (*models.Transaction, error) {
	if err := e.Preflight(ctx, req); err != nil {
		return nil, err
	}

	conv, rateErr := e.lookupRates(ctx, req)
	if rateErr != nil && !errors.Is(rateErr, errRatePhase) {
		return nil, rateErr
	}

	var txn *models.Transaction
	err := e.repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
		// Existence is re-checked here: the wallets may have been removed
		// since the preflight, and nothing must persist in that case.
		for _, walletID := range []uint{req.FromWalletID, req.ToWalletID} {
			exists, err := tx.WalletExists(ctx, walletID)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("%w: wallet %d", ErrWalletNotFound, walletID)
			}
		}

		txn = &models.Transaction{
			FromWalletID: req.FromWalletID,
			ToWalletID:   req.ToWalletID,
			State:        models.StateCreated,
			Amount:       req.Amount,
		}
		if err := tx.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		if err := e.logState(ctx, tx, txn.ID, models.StateCreated, "Transaction created"); err != nil {
			return err
		}

		if rateErr != nil {
			return e.fail(ctx, tx, txn, models.ReasonRateUnavailable, "Currency rate unavailable")
		}

		// Re-validate the source balance under a row lock: the rate phase ran
		// outside this transaction, so the balance read at preflight time may
		// be stale.
		source, err := tx.GetWalletForUpdate(ctx, req.FromWalletID)
		if err != nil {
			return err
		}
		if req.Amount.GreaterThan(source.Balance) {
			return e.fail(ctx, tx, txn, models.ReasonNotEnoughMoney, "Not enough balance")
		}

		newBalanceFrom, err := tx.DebitWallet(ctx, req.FromWalletID, req.Amount)
		if err != nil {
			return err
		}
		credited := req.Amount.Mul(conv.fromRate).DivRound(conv.toRate, conversionScale)
		newBalanceTo, err := tx.CreditWallet(ctx, req.ToWalletID, credited)
		if err != nil {
			return err
		}

		upd := repositories.SucceededUpdate{
			ExchangeFromRate: conv.fromRate,
			ExchangeToRate:   conv.toRate,
			NewBalanceFrom:   newBalanceFrom,
			NewBalanceTo:     newBalanceTo,
		}
		if err := tx.MarkTransactionSucceeded(ctx, txn.ID, upd); err != nil {
			return err
		}
		if err := e.logState(ctx, tx, txn.ID, models.StateSucceeded, "Success"); err != nil {
			return err
		}

		txn.State = models.StateSucceeded
		txn.ExchangeFromRate = &upd.ExchangeFromRate
		txn.ExchangeToRate = &upd.ExchangeToRate
		txn.NewBalanceFrom = &upd.NewBalanceFrom
		txn.NewBalanceTo = &upd.NewBalanceTo
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// errRatePhase marks rate lookup failures so Execute can route them into a
// FAILED transaction instead of aborting.
var errRatePhase = errors.New("rate phase failed")

type conversion struct {
	fromRate decimal.Decimal
	toRate   decimal.Decimal
}

// lookupRates resolves both wallets' currencies and fetches their rates.
// Lookup happens before the write transaction so a slow rate source never
// holds row locks. Any lookup failure, timeout included, is wrapped in
// errRatePhase.
func (e *Engine) lookupRates(ctx context.Context, req Request) (conversion, error) {
	fromWallet, err := e.repo.GetWallet(ctx, req.FromWalletID)
	if err != nil {
		return conversion{}, e.mapWalletError(err, req.FromWalletID)
	}
	toWallet, err := e.repo.GetWallet(ctx, req.ToWalletID)
	if err != nil {
		return conversion{}, e.mapWalletError(err, req.ToWalletID)
	}

	fromRate, err := e.lookupRate(ctx, fromWallet.Currency)
	if err != nil {
		return conversion{}, fmt.Errorf("%w: %v", errRatePhase, err)
	}
	toRate, err := e.lookupRate(ctx, toWallet.Currency)
	if err != nil {
		return conversion{}, fmt.Errorf("%w: %v", errRatePhase, err)
	}
	return conversion{fromRate: fromRate, toRate: toRate}, nil
}

func (e *Engine) lookupRate(ctx context.Context, currency models.Currency) (decimal.Decimal, error) {
	rateCtx, cancel := context.WithTimeout(ctx, e.rateTimeout)
	defer cancel()
	rate, err := e.rates.Rate(rateCtx, currency)
	if err != nil {
		return decimal.Zero, err
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive rate for %s", rates.ErrUnavailable, currency)
	}
	return rate, nil
}

// fail moves the transaction to FAILED and logs the transition. It returns
// nil so the enclosing unit commits the failure record.
func (e *Engine) fail(ctx context.Context, tx repositories.LedgerRepository, txn *models.Transaction, reason models.FailedReason, comment string) error {
	if err := e.logState(ctx, tx, txn.ID, models.StateFailed, comment); err != nil {
		return err
	}
	if err := tx.MarkTransactionFailed(ctx, txn.ID, reason); err != nil {
		return err
	}
	txn.State = models.StateFailed
	txn.FailedReason = &reason
	return nil
}

func (e *Engine) logState(ctx context.Context, tx repositories.LedgerRepository, transactionID uint, state models.TransactionState, comment string) error {
	return tx.AppendTransactionLog(ctx, &models.TransactionLog{
		TransactionID: transactionID,
		State:         state,
		Comment:       comment,
	})
}

func (e *Engine) mapWalletError(err error, walletID uint) error {
	if errors.Is(err, repositories.ErrWalletNotFound) {
		return fmt.Errorf("%w: wallet %d", ErrWalletNotFound, walletID)
	}
	return err
}
