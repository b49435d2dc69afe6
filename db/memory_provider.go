package db

import (
	"bytes"
	"sort"
	"sync"
)

// MemoryProvider implements DatabaseProvider with an in-process map. It is
// used by tests and by nodes running with storage type "memory".
type MemoryProvider struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryProvider creates an empty in-memory provider
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{data: make(map[string][]byte)}
}

// Get retrieves a value by key
func (p *MemoryProvider) Get(key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.data[string(key)]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// GetBatch retrieves multiple values by keys
func (p *MemoryProvider) GetBatch(keys [][]byte) (map[string][]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if v, ok := p.data[string(key)]; ok {
			result[string(key)] = append([]byte(nil), v...)
		}
	}
	return result, nil
}

// Put stores a key-value pair
func (p *MemoryProvider) Put(key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[string(key)] = append([]byte(nil), value...)
	return nil
}

// Delete removes a key-value pair
func (p *MemoryProvider) Delete(key []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, string(key))
	return nil
}

// Has checks if a key exists
func (p *MemoryProvider) Has(key []byte) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.data[string(key)]
	return ok, nil
}

// Close is a no-op for the in-memory provider
func (p *MemoryProvider) Close() error {
	return nil
}

// Batch returns a new batch for atomic operations
func (p *MemoryProvider) Batch() DatabaseBatch {
	return &MemoryBatch{provider: p}
}

// IteratePrefix iterates over all key-value pairs with the given prefix in
// sorted key order
func (p *MemoryProvider) IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error {
	p.mu.RLock()
	keys := make([]string, 0, len(p.data))
	for k := range p.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	p.mu.RUnlock()

	sort.Strings(keys)
	for _, k := range keys {
		p.mu.RLock()
		v, ok := p.data[k]
		p.mu.RUnlock()
		if !ok {
			continue
		}
		if !callback([]byte(k), v) {
			break
		}
	}
	return nil
}

// MemoryBatch implements DatabaseBatch for MemoryProvider
type MemoryBatch struct {
	provider *MemoryProvider
	ops      []boltOp
}

// Put adds a key-value pair to the batch
func (b *MemoryBatch) Put(key, value []byte) {
	b.ops = append(b.ops, boltOp{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
}

// Delete adds a deletion to the batch
func (b *MemoryBatch) Delete(key []byte) {
	b.ops = append(b.ops, boltOp{key: append([]byte(nil), key...), delete: true})
}

// Write commits all operations in the batch
func (b *MemoryBatch) Write() error {
	b.provider.mu.Lock()
	defer b.provider.mu.Unlock()
	for _, op := range b.ops {
		if op.delete {
			delete(b.provider.data, string(op.key))
			continue
		}
		b.provider.data[string(op.key)] = op.value
	}
	return nil
}

// Reset clears the batch
func (b *MemoryBatch) Reset() {
	b.ops = b.ops[:0]
}

// Close releases batch resources
func (b *MemoryBatch) Close() {
	b.ops = nil
}
