package ledger

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"smc/errors"
	"smc/events"
	"smc/logx"
	"smc/monitoring"
	"smc/store"
	"smc/transaction"
	"smc/types"
)

// Ledger is the authoritative account state of this node. Every mutation
// goes through the write lock so a transfer debits and credits atomically.
// The applied set mirrors the persisted applied hashes and is what makes
// replay rejection an O(1) lookup.
type Ledger struct {
	mu           sync.RWMutex
	accountStore store.AccountStore
	txStore      store.TxStore
	eventRouter  *events.EventRouter
	applied      map[string]struct{}
	accountCount int

	allowSelfTransfer bool
}

// NewLedger builds a ledger on top of the given stores and rebuilds the
// in-memory applied set from what the tx store persisted.
func NewLedger(accountStore store.AccountStore, txStore store.TxStore, eventRouter *events.EventRouter, allowSelfTransfer bool) (*Ledger, error) {
	hashes, err := txStore.LoadAppliedHashes()
	if err != nil {
		return nil, fmt.Errorf("could not load applied tx hashes: %w", err)
	}

	applied := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		applied[h] = struct{}{}
	}
	logx.Info("LEDGER", fmt.Sprintf("Restored %d applied tx hashes", len(applied)))

	// Counted once here; afterwards the counter tracks account creation so
	// the gauge never needs a full store scan again.
	accounts, err := accountStore.GetAll()
	if err != nil {
		return nil, fmt.Errorf("could not count accounts: %w", err)
	}

	l := &Ledger{
		accountStore:      accountStore,
		txStore:           txStore,
		eventRouter:       eventRouter,
		applied:           applied,
		accountCount:      len(accounts),
		allowSelfTransfer: allowSelfTransfer,
	}
	monitoring.SetAccountCount(l.accountCount)
	return l, nil
}

// CreateAccount creates and stores a new account, returning an error when an
// account with the same address already exists.
func (l *Ledger) CreateAccount(addr string, balance *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.createAccountWithoutLocking(addr, balance)
	return err
}

// createAccountWithoutLocking creates an account without taking the ledger
// lock. Callers must already hold it.
func (l *Ledger) createAccountWithoutLocking(addr string, balance *uint256.Int) (*types.Account, error) {
	existed, err := l.accountStore.ExistsByAddr(addr)
	if err != nil {
		return nil, fmt.Errorf("could not check existence of account: %w", err)
	}
	if existed {
		return nil, errors.ErrAccountExisted
	}

	account := &types.Account{
		Address: addr,
		Balance: balance,
		History: make([]string, 0),
	}
	if err := l.accountStore.Store(account); err != nil {
		return nil, fmt.Errorf("failed to store account: %w", err)
	}

	l.accountCount++
	monitoring.SetAccountCount(l.accountCount)
	return account, nil
}

// CreateAccountsFromGenesis seeds the ledger with the genesis allocation.
// Addresses that already exist are skipped so a restart over an existing
// data directory does not fail.
func (l *Ledger) CreateAccountsFromGenesis(alloc map[string]*uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for addr, amount := range alloc {
		_, err := l.createAccountWithoutLocking(addr, amount)
		if err != nil {
			if errors.IsCode(err, errors.ErrCodeAccountExisted) {
				continue
			}
			return fmt.Errorf("could not create genesis account %s: %w", addr, err)
		}
		logx.Info("LEDGER", fmt.Sprintf("Created genesis account %s with %s finks", addr, amount.Dec()))
	}
	return nil
}

// AccountExists checks if an account exists
func (l *Ledger) AccountExists(addr string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accountStore.ExistsByAddr(addr)
}

// Balance returns the current balance for addr
func (l *Ledger) Balance(addr string) (*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, err := l.accountStore.GetByAddr(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, errors.ErrAccountNotFound
	}

	return acc.Balance, nil
}

// GetAccount returns the account with addr (nil if it does not exist)
func (l *Ledger) GetAccount(addr string) (*types.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accountStore.GetByAddr(addr)
}

// GetAllAccounts returns every account known to the ledger
func (l *Ledger) GetAllAccounts() ([]*types.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	accounts, err := l.accountStore.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to get all accounts: %w", err)
	}
	return accounts, nil
}

// HasApplied reports whether the transaction hash has already been committed
func (l *Ledger) HasApplied(txHash string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.applied[txHash]
	return ok
}

// AllowsSelfTransfer reports whether this node accepts transfers where the
// sender and recipient are the same address.
func (l *Ledger) AllowsSelfTransfer() bool {
	return l.allowSelfTransfer
}

// Apply commits a signature-verified transaction to the ledger. The debit,
// the credit and the applied-hash record happen under one write lock, so a
// concurrent observer never sees the funds in both accounts or in neither.
// On rejection the error carries the rejection code and the ledger state is
// untouched.
func (l *Ledger) Apply(tx *transaction.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tx.Amount == nil || tx.Amount.IsZero() {
		return errors.ErrInvalidAmount
	}
	if !l.allowSelfTransfer && tx.Sender == tx.Recipient {
		return errors.ErrSelfTransfer
	}

	txHash := tx.Hash()
	if _, ok := l.applied[txHash]; ok {
		return errors.ErrDuplicateTransaction
	}

	sender, err := l.accountStore.GetByAddr(tx.Sender)
	if err != nil {
		return fmt.Errorf("could not load sender %s: %w", tx.Sender, err)
	}
	if sender == nil || sender.Balance.Cmp(tx.Amount) < 0 {
		return errors.ErrInsufficientFunds
	}

	recipient, err := l.accountStore.GetByAddr(tx.Recipient)
	if err != nil {
		return fmt.Errorf("could not load recipient %s: %w", tx.Recipient, err)
	}
	newRecipient := recipient == nil
	if newRecipient {
		recipient = &types.Account{
			Address: tx.Recipient,
			Balance: uint256.NewInt(0),
			History: make([]string, 0),
		}
	}

	if tx.Sender == tx.Recipient {
		// Self transfer moves nothing, only the history entry is recorded.
		recipient = sender
	} else {
		sender.Balance = new(uint256.Int).Sub(sender.Balance, tx.Amount)
		recipient.Balance = new(uint256.Int).Add(recipient.Balance, tx.Amount)
	}

	sender.History = append(sender.History, txHash)
	if tx.Recipient != tx.Sender {
		recipient.History = append(recipient.History, txHash)
	}

	// The tx record, both account balances and the applied marker share one
	// provider batch, so a crash mid-commit leaves either all or none of
	// them behind. The factory backs both stores with the same provider.
	prevState := tx.State
	tx.MarkApplied()
	batch := l.txStore.NewBatch()
	defer batch.Close()
	if err := l.accountStore.StageBatch(batch, []*types.Account{sender, recipient}); err != nil {
		tx.State = prevState
		return fmt.Errorf("failed to stage accounts for tx %s: %w", txHash, err)
	}
	if err := l.txStore.StageApplied(batch, tx); err != nil {
		tx.State = prevState
		return fmt.Errorf("failed to stage tx %s: %w", txHash, err)
	}
	if err := batch.Write(); err != nil {
		tx.State = prevState
		return fmt.Errorf("failed to commit tx %s: %w", txHash, err)
	}
	l.applied[txHash] = struct{}{}
	if newRecipient {
		l.accountCount++
		monitoring.SetAccountCount(l.accountCount)
	}

	logx.Info("LEDGER", fmt.Sprintf("Applied tx %s => %s finks from %s to %s", txHash, tx.Amount.Dec(), tx.Sender, tx.Recipient))
	if l.eventRouter != nil {
		l.eventRouter.PublishTransactionEvent(events.NewTransactionApplied(tx))
	}

	return nil
}

// GetTxByHash returns a stored transaction (nil when unknown)
func (l *Ledger) GetTxByHash(hash string) (*transaction.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.txStore.GetByHash(hash)
}

// GetTxs returns the transaction history of addr, paginated.
// filter: 0 all, 1 sent only, 2 received only.
func (l *Ledger) GetTxs(addr string, limit uint32, offset uint32, filter uint32) (uint32, []*transaction.Transaction) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	txs := make([]*transaction.Transaction, 0)
	acc, err := l.accountStore.GetByAddr(addr)
	if err != nil || acc == nil {
		return 0, txs
	}

	transactions, err := l.txStore.GetBatch(acc.History)
	if err != nil {
		return 0, txs
	}

	filtered := make([]*transaction.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if filter == 0 {
			filtered = append(filtered, tx)
		} else if filter == 1 && tx.Sender == addr {
			filtered = append(filtered, tx)
		} else if filter == 2 && tx.Recipient == addr {
			filtered = append(filtered, tx)
		}
	}

	total := uint32(len(filtered))
	start := min(offset, total)
	end := min(start+limit, total)
	return total, filtered[start:end]
}

// AccountCount returns the number of accounts the ledger knows about.
func (l *Ledger) AccountCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accountCount
}
