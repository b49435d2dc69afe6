package store

import (
	"fmt"
	"sync"

	"smc/db"
	"smc/jsonx"
	"smc/logx"
	"smc/transaction"
)

// TxStore persists transactions and the set of applied transaction hashes.
// The applied set is what makes replay rejection survive a restart.
type TxStore interface {
	Store(tx *transaction.Transaction) error
	StoreBatch(txs []*transaction.Transaction) error
	GetByHash(txHash string) (*transaction.Transaction, error)
	GetBatch(txHashes []string) ([]*transaction.Transaction, error)
	MarkApplied(txHash string) error
	HasApplied(txHash string) (bool, error)
	LoadAppliedHashes() ([]string, error)
	NewBatch() db.DatabaseBatch
	StageApplied(batch db.DatabaseBatch, tx *transaction.Transaction) error
	MustClose()
}

// GenericTxStore provides transaction storage operations
type GenericTxStore struct {
	mu         sync.RWMutex
	dbProvider db.DatabaseProvider
}

// NewGenericTxStore creates a new transaction store
func NewGenericTxStore(dbProvider db.DatabaseProvider) (*GenericTxStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	return &GenericTxStore{
		dbProvider: dbProvider,
	}, nil
}

// Store stores a transaction in the database
func (ts *GenericTxStore) Store(tx *transaction.Transaction) error {
	return ts.StoreBatch([]*transaction.Transaction{tx})
}

// StoreBatch stores a batch of transactions in the database
func (ts *GenericTxStore) StoreBatch(txs []*transaction.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	batch := ts.dbProvider.Batch()
	defer batch.Close()

	for _, tx := range txs {
		txData, err := jsonx.Marshal(tx)
		if err != nil {
			return fmt.Errorf("failed to marshal transaction: %w", err)
		}

		batch.Put(ts.getDbKey(tx.Hash()), txData)
	}

	err := batch.Write()
	if err != nil {
		return fmt.Errorf("failed to write transaction to database: %w", err)
	}

	return nil
}

// GetByHash retrieves a transaction by its hash, returning nil when absent
func (ts *GenericTxStore) GetByHash(txHash string) (*transaction.Transaction, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	data, err := ts.dbProvider.Get(ts.getDbKey(txHash))
	if err != nil {
		return nil, fmt.Errorf("could not get transaction %s from db: %w", txHash, err)
	}
	if data == nil {
		return nil, nil
	}

	var tx transaction.Transaction
	err = jsonx.Unmarshal(data, &tx)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction %s: %w", txHash, err)
	}

	return &tx, nil
}

// GetBatch retrieves multiple transactions by their hashes
func (ts *GenericTxStore) GetBatch(txHashes []string) ([]*transaction.Transaction, error) {
	if len(txHashes) == 0 {
		return []*transaction.Transaction{}, nil
	}

	ts.mu.RLock()
	defer ts.mu.RUnlock()

	keys := make([][]byte, 0, len(txHashes))
	for _, h := range txHashes {
		keys = append(keys, ts.getDbKey(h))
	}

	values, err := ts.dbProvider.GetBatch(keys)
	if err != nil {
		return nil, fmt.Errorf("could not get transactions from db: %w", err)
	}

	txs := make([]*transaction.Transaction, 0, len(txHashes))
	for _, h := range txHashes {
		data, ok := values[string(ts.getDbKey(h))]
		if !ok {
			continue
		}
		var tx transaction.Transaction
		if err := jsonx.Unmarshal(data, &tx); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction %s: %w", h, err)
		}
		txs = append(txs, &tx)
	}

	return txs, nil
}

// MarkApplied records a transaction hash as committed to the ledger
func (ts *GenericTxStore) MarkApplied(txHash string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if err := ts.dbProvider.Put(ts.getAppliedKey(txHash), []byte{1}); err != nil {
		return fmt.Errorf("failed to mark transaction %s applied: %w", txHash, err)
	}
	return nil
}

// HasApplied reports whether a transaction hash has been committed
func (ts *GenericTxStore) HasApplied(txHash string) (bool, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	return ts.dbProvider.Has(ts.getAppliedKey(txHash))
}

// LoadAppliedHashes returns every applied transaction hash. Used at startup
// to rebuild the in-memory replay-rejection set.
func (ts *GenericTxStore) LoadAppliedHashes() ([]string, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	iterable, ok := ts.dbProvider.(db.IterableProvider)
	if !ok {
		return nil, fmt.Errorf("provider does not support iteration")
	}

	hashes := make([]string, 0)
	err := iterable.IteratePrefix([]byte(PrefixApplied), func(key, value []byte) bool {
		hashes = append(hashes, string(key[len(PrefixApplied):]))
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load applied hashes: %w", err)
	}
	return hashes, nil
}

// NewBatch returns a write batch on the underlying provider. The factory
// backs the account and tx stores with the same provider, so one batch can
// carry both stores' keys and commit them atomically.
func (ts *GenericTxStore) NewBatch() db.DatabaseBatch {
	return ts.dbProvider.Batch()
}

// StageApplied adds the transaction record and its applied marker to the
// batch without writing. The caller commits with batch.Write.
func (ts *GenericTxStore) StageApplied(batch db.DatabaseBatch, tx *transaction.Transaction) error {
	txData, err := jsonx.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}
	batch.Put(ts.getDbKey(tx.Hash()), txData)
	batch.Put(ts.getAppliedKey(tx.Hash()), []byte{1})
	return nil
}

func (ts *GenericTxStore) MustClose() {
	err := ts.dbProvider.Close()
	if err != nil {
		logx.Error("TX_STORE", "Failed to close db provider:", err.Error())
	}
}

func (ts *GenericTxStore) getDbKey(txHash string) []byte {
	return []byte(PrefixTx + txHash)
}

func (ts *GenericTxStore) getAppliedKey(txHash string) []byte {
	return []byte(PrefixApplied + txHash)
}
