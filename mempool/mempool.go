package mempool

import (
	"sync"

	"smc/errors"
	"smc/monitoring"
	"smc/transaction"
)

// Mempool is a bounded, thread-safe registry of published transactions
// waiting for validation. Entries are keyed by transaction hash and kept in
// arrival order so draining preserves publish order.
type Mempool struct {
	mu       sync.Mutex
	txs      map[string]*transaction.Transaction
	order    []string
	capacity int
}

// NewMempool creates an empty mempool holding at most capacity transactions.
func NewMempool(capacity int) *Mempool {
	return &Mempool{
		txs:      make(map[string]*transaction.Transaction),
		order:    make([]string, 0),
		capacity: capacity,
	}
}

// Add pushes a transaction into the mempool. A full pool rejects with
// mempool_full, a known hash rejects with duplicate_transaction.
func (m *Mempool) Add(tx *transaction.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.order) >= m.capacity {
		return errors.ErrMempoolFull
	}

	hash := tx.Hash()
	if _, ok := m.txs[hash]; ok {
		return errors.ErrDuplicateTransaction
	}

	m.txs[hash] = tx
	m.order = append(m.order, hash)
	monitoring.SetPendingTxCount(len(m.order))
	return nil
}

// Get returns the pending transaction with the given hash (nil if absent)
func (m *Mempool) Get(txHash string) *transaction.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txs[txHash]
}

// Contains reports whether a transaction hash is queued
func (m *Mempool) Contains(txHash string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.txs[txHash]
	return ok
}

// Len returns the number of pending transactions
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// GetBatch returns up to max pending transactions in arrival order without
// removing them.
func (m *Mempool) GetBatch(max int) []*transaction.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.order) == 0 {
		return nil
	}
	if len(m.order) < max {
		max = len(m.order)
	}

	batch := make([]*transaction.Transaction, 0, max)
	for _, hash := range m.order[:max] {
		batch = append(batch, m.txs[hash])
	}
	return batch
}

// Remove drops a transaction from the pool once it has been applied or
// rejected.
func (m *Mempool) Remove(txHash string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.txs[txHash]; !ok {
		return
	}
	delete(m.txs, txHash)
	for i, h := range m.order {
		if h == txHash {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	monitoring.SetPendingTxCount(len(m.order))
}
