package ledger

import (
	"sync"

	"github.com/holiman/uint256"

	"smc/errors"
	"smc/store"
	"smc/transaction"
	"smc/types"
)

// LedgerView is a copy-on-read overlay over the committed account state.
// The RPC spendable-balance precheck applies the pending mempool transfers
// to one so a new transaction is judged against the balances they would
// leave behind, not against the stale committed ones.
type LedgerView struct {
	base    store.AccountStore
	overlay map[string]*types.SnapshotAccount
	mu      sync.RWMutex
}

// NewView creates a fresh view over the ledger's committed state
func (l *Ledger) NewView() *LedgerView {
	return &LedgerView{
		base:    l.accountStore,
		overlay: make(map[string]*types.SnapshotAccount),
	}
}

func (lv *LedgerView) loadForRead(addr string) (*types.SnapshotAccount, bool) {
	lv.mu.RLock()
	if acc, ok := lv.overlay[addr]; ok {
		lv.mu.RUnlock()
		return acc, true
	}
	lv.mu.RUnlock()

	base, err := lv.base.GetByAddr(addr)
	if err != nil || base == nil {
		return nil, false
	}

	cp := types.SnapshotAccount{Balance: new(uint256.Int).Set(base.Balance)}
	lv.mu.Lock()
	lv.overlay[addr] = &cp
	lv.mu.Unlock()
	return &cp, true
}

func (lv *LedgerView) loadOrCreate(addr string) *types.SnapshotAccount {
	if acc, ok := lv.loadForRead(addr); ok {
		return acc
	}
	cp := types.SnapshotAccount{Balance: uint256.NewInt(0)}
	lv.mu.Lock()
	lv.overlay[addr] = &cp
	lv.mu.Unlock()
	return &cp
}

// Balance returns the speculative balance of addr within this view
func (lv *LedgerView) Balance(addr string) *uint256.Int {
	acc, ok := lv.loadForRead(addr)
	if !ok {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(acc.Balance)
}

// ApplyTx speculatively moves the transfer amount inside the view. The
// committed ledger is never touched.
func (lv *LedgerView) ApplyTx(tx *transaction.Transaction) error {
	if tx.Amount == nil || tx.Amount.IsZero() {
		return errors.ErrInvalidAmount
	}

	sender, exists := lv.loadForRead(tx.Sender)
	if !exists {
		return errors.ErrInsufficientFunds
	}
	if sender.Balance.Cmp(tx.Amount) < 0 {
		return errors.ErrInsufficientFunds
	}
	if tx.Sender == tx.Recipient {
		return nil
	}

	recipient := lv.loadOrCreate(tx.Recipient)
	sender.Balance.Sub(sender.Balance, tx.Amount)
	recipient.Balance.Add(recipient.Balance, tx.Amount)
	return nil
}
