// Package memory provides an in-memory LedgerRepository. It backs the
// service test suites and mirrors the semantics of the postgres
// implementation: store-assigned ids, the non-negative balance constraint,
// and all-or-nothing transactional units.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyens/billing/internal/models"
	"github.com/dyens/billing/internal/repositories"
)

type state struct {
	users        map[uint]models.User
	wallets      map[uint]models.Wallet
	transactions map[uint]models.Transaction
	logs         []models.TransactionLog

	nextUserID uint
	nextWallet uint
	nextTxn    uint
	nextLog    uint
}

func newState() *state {
	return &state{
		users:        make(map[uint]models.User),
		wallets:      make(map[uint]models.Wallet),
		transactions: make(map[uint]models.Transaction),
		nextUserID:   1,
		nextWallet:   1,
		nextTxn:      1,
		nextLog:      1,
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, u := range s.users {
		c.users[id] = u
	}
	for id, w := range s.wallets {
		c.wallets[id] = w
	}
	for id, t := range s.transactions {
		c.transactions[id] = t
	}
	c.logs = append(c.logs, s.logs...)
	c.nextUserID = s.nextUserID
	c.nextWallet = s.nextWallet
	c.nextTxn = s.nextTxn
	c.nextLog = s.nextLog
	return c
}

// Store is the lock-guarded root repository. Each transactional unit runs
// against a scratch copy of the state that replaces the live state only on
// commit, so a returned error discards every write of the unit.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore returns an empty in-memory ledger store.
func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.st}.CreateUser(ctx, user)
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.st}.GetUser(ctx, id)
}

func (s *Store) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.st}.CreateWallet(ctx, wallet)
}

func (s *Store) GetWallet(ctx context.Context, id uint) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.st}.GetWallet(ctx, id)
}

func (s *Store) GetWalletForUpdate(ctx context.Context, id uint) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.st}.GetWalletForUpdate(ctx, id)
}

func (s *Store) GetWalletByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.st}.GetWalletByUserID(ctx, userID)
}

func (s *Store) WalletExists(ctx context.Context, id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.st}.WalletExists(ctx, id)
}

func (s *Store) CreditWallet(ctx context.Context, id uint, amount decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.st}.CreditWallet(ctx, id, amount)
}

func (s *Store) DebitWallet(ctx context.Context, id uint, amount decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.st}.DebitWallet(ctx, id, amount)
}

func (s *Store) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.st}.CreateTransaction(ctx, txn)
}

func (s *Store) GetTransaction(ctx context.Context, id uint) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.st}.GetTransaction(ctx, id)
}

func (s *Store) MarkTransactionFailed(ctx context.Context, id uint, reason models.FailedReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.st}.MarkTransactionFailed(ctx, id, reason)
}

func (s *Store) MarkTransactionSucceeded(ctx context.Context, id uint, upd repositories.SucceededUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.st}.MarkTransactionSucceeded(ctx, id, upd)
}

func (s *Store) AppendTransactionLog(ctx context.Context, entry *models.TransactionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.st}.AppendTransactionLog(ctx, entry)
}

func (s *Store) TransactionLogs(ctx context.Context, transactionID uint) ([]models.TransactionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.st}.TransactionLogs(ctx, transactionID)
}

func (s *Store) TransactionsByWallet(ctx context.Context, walletID uint, start, end *time.Time) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s.st}.TransactionsByWallet(ctx, walletID, start, end)
}

func (s *Store) ExecuteInTransaction(ctx context.Context, fn func(repositories.LedgerRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	scratch := s.st.clone()
	if err := fn(view{scratch}); err != nil {
		return err
	}
	s.st = scratch
	return nil
}

// view implements LedgerRepository directly on a state, without locking. It
// is used both inside transactional units and by the Store wrappers.
type view struct {
	st *state
}

func (v view) CreateUser(_ context.Context, user *models.User) error {
	user.ID = v.st.nextUserID
	v.st.nextUserID++
	user.CreatedAt = time.Now()
	v.st.users[user.ID] = *user
	return nil
}

func (v view) GetUser(_ context.Context, id uint) (*models.User, error) {
	user, ok := v.st.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &user, nil
}

func (v view) CreateWallet(_ context.Context, wallet *models.Wallet) error {
	if !wallet.Currency.Valid() {
		return fmt.Errorf("%w: currency %q", repositories.ErrInvalidEnumValue, wallet.Currency)
	}
	if wallet.Balance.IsNegative() {
		return repositories.ErrBalanceBelowZero
	}
	wallet.ID = v.st.nextWallet
	v.st.nextWallet++
	now := time.Now()
	wallet.CreatedAt = now
	wallet.UpdatedAt = now
	v.st.wallets[wallet.ID] = *wallet
	return nil
}

func (v view) GetWallet(_ context.Context, id uint) (*models.Wallet, error) {
	wallet, ok := v.st.wallets[id]
	if !ok {
		return nil, repositories.ErrWalletNotFound
	}
	return &wallet, nil
}

func (v view) GetWalletForUpdate(ctx context.Context, id uint) (*models.Wallet, error) {
	// The store mutex already serializes transactional units.
	return v.GetWallet(ctx, id)
}

func (v view) GetWalletByUserID(_ context.Context, userID uint) (*models.Wallet, error) {
	for _, wallet := range v.st.wallets {
		if wallet.UserID == userID {
			w := wallet
			return &w, nil
		}
	}
	return nil, repositories.ErrWalletNotFound
}

func (v view) WalletExists(_ context.Context, id uint) (bool, error) {
	_, ok := v.st.wallets[id]
	return ok, nil
}

func (v view) CreditWallet(ctx context.Context, id uint, amount decimal.Decimal) (decimal.Decimal, error) {
	return v.adjustBalance(id, amount)
}

func (v view) DebitWallet(ctx context.Context, id uint, amount decimal.Decimal) (decimal.Decimal, error) {
	return v.adjustBalance(id, amount.Neg())
}

func (v view) adjustBalance(id uint, delta decimal.Decimal) (decimal.Decimal, error) {
	wallet, ok := v.st.wallets[id]
	if !ok {
		return decimal.Zero, repositories.ErrWalletNotFound
	}
	newBalance := wallet.Balance.Add(delta)
	if newBalance.IsNegative() {
		return decimal.Zero, repositories.ErrBalanceBelowZero
	}
	wallet.Balance = newBalance
	wallet.UpdatedAt = time.Now()
	v.st.wallets[id] = wallet
	return newBalance, nil
}

func (v view) CreateTransaction(_ context.Context, txn *models.Transaction) error {
	if !txn.State.Valid() {
		return fmt.Errorf("%w: state %q", repositories.ErrInvalidEnumValue, txn.State)
	}
	txn.ID = v.st.nextTxn
	v.st.nextTxn++
	now := time.Now()
	txn.CreatedAt = now
	txn.UpdatedAt = now
	v.st.transactions[txn.ID] = *txn
	return nil
}

func (v view) GetTransaction(_ context.Context, id uint) (*models.Transaction, error) {
	txn, ok := v.st.transactions[id]
	if !ok {
		return nil, repositories.ErrTransactionNotFound
	}
	return &txn, nil
}

func (v view) MarkTransactionFailed(_ context.Context, id uint, reason models.FailedReason) error {
	if !reason.Valid() {
		return fmt.Errorf("%w: failed reason %q", repositories.ErrInvalidEnumValue, reason)
	}
	txn, ok := v.st.transactions[id]
	if !ok || txn.State != models.StateCreated {
		return repositories.ErrTransactionNotFound
	}
	txn.State = models.StateFailed
	txn.FailedReason = &reason
	txn.UpdatedAt = time.Now()
	v.st.transactions[id] = txn
	return nil
}

func (v view) MarkTransactionSucceeded(_ context.Context, id uint, upd repositories.SucceededUpdate) error {
	txn, ok := v.st.transactions[id]
	if !ok || txn.State != models.StateCreated {
		return repositories.ErrTransactionNotFound
	}
	txn.State = models.StateSucceeded
	txn.ExchangeFromRate = &upd.ExchangeFromRate
	txn.ExchangeToRate = &upd.ExchangeToRate
	txn.NewBalanceFrom = &upd.NewBalanceFrom
	txn.NewBalanceTo = &upd.NewBalanceTo
	txn.UpdatedAt = time.Now()
	v.st.transactions[id] = txn
	return nil
}

func (v view) AppendTransactionLog(_ context.Context, entry *models.TransactionLog) error {
	if !entry.State.Valid() {
		return fmt.Errorf("%w: state %q", repositories.ErrInvalidEnumValue, entry.State)
	}
	entry.ID = v.st.nextLog
	v.st.nextLog++
	entry.CreatedAt = time.Now()
	v.st.logs = append(v.st.logs, *entry)
	return nil
}

func (v view) TransactionLogs(_ context.Context, transactionID uint) ([]models.TransactionLog, error) {
	var logs []models.TransactionLog
	for _, entry := range v.st.logs {
		if entry.TransactionID == transactionID {
			logs = append(logs, entry)
		}
	}
	return logs, nil
}

func (v view) TransactionsByWallet(_ context.Context, walletID uint, start, end *time.Time) ([]models.Transaction, error) {
	var txns []models.Transaction
	for _, txn := range v.st.transactions {
		if txn.FromWalletID != walletID && txn.ToWalletID != walletID {
			continue
		}
		if start != nil && txn.CreatedAt.Before(*start) {
			continue
		}
		if end != nil && txn.CreatedAt.After(*end) {
			continue
		}
		txns = append(txns, txn)
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].ID < txns[j].ID })
	return txns, nil
}

func (v view) ExecuteInTransaction(_ context.Context, fn func(repositories.LedgerRepository) error) error {
	// Nested units join the enclosing one.
	return fn(v)
}
