package mempool

import (
	"sync"

	"smc/logx"
	"smc/store"
)

// DedupService tracks dedup hashes of transactions currently moving through
// the validation pipeline. It closes the window between a transaction being
// pulled from the mempool and its hash landing in the ledger's applied set,
// so two copies of the same transfer can never be in flight at once.
type DedupService struct {
	mu             sync.RWMutex
	txDedupHashSet map[string]struct{}
}

func NewDedupService() *DedupService {
	return &DedupService{
		txDedupHashSet: make(map[string]struct{}),
	}
}

// SeedFromStore preloads the dedup set with every applied hash so restarts
// do not reopen the replay window while the ledger is still warming up.
func (ds *DedupService) SeedFromStore(ts store.TxStore) {
	hashes, err := ts.LoadAppliedHashes()
	if err != nil {
		logx.Error("DEDUP SERVICE", "Failed to seed applied hashes:", err.Error())
		return
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()
	for _, h := range hashes {
		ds.txDedupHashSet[h] = struct{}{}
	}
	logx.Info("DEDUP SERVICE", "Seeded", len(hashes), "applied tx hashes")
}

// MarkInFlight claims a dedup hash. It returns false when the hash is
// already claimed, in which case the caller must drop the transaction.
func (ds *DedupService) MarkInFlight(txHash string) bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if _, exists := ds.txDedupHashSet[txHash]; exists {
		return false
	}
	ds.txDedupHashSet[txHash] = struct{}{}
	return true
}

// IsDuplicate reports whether a dedup hash is claimed
func (ds *DedupService) IsDuplicate(txHash string) bool {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	_, exists := ds.txDedupHashSet[txHash]
	return exists
}

// Release frees a claimed hash after a rejection so a corrected retry of the
// same transfer is not blocked forever. Applied hashes stay claimed.
func (ds *DedupService) Release(txHash string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	delete(ds.txDedupHashSet, txHash)
}
