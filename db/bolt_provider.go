package db

import (
	"bytes"
	"fmt"
	"sync"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("smc")

// BoltProvider implements DatabaseProvider for bbolt
type BoltProvider struct {
	once sync.Once
	db   *bolt.DB
}

// NewBoltProvider creates a new bbolt provider backed by a single bucket
func NewBoltProvider(path string) (DatabaseProvider, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltProvider{db: db}, nil
}

// Get retrieves a value by key
func (p *BoltProvider) Get(key []byte) ([]byte, error) {
	var value []byte
	err := p.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get(key)
		if v != nil {
			// bbolt values are only valid inside the transaction
			value = append([]byte(nil), v...)
		}
		return nil
	})
	return value, err
}

// GetBatch retrieves multiple values by keys in a single transaction
func (p *BoltProvider) GetBatch(keys [][]byte) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	err := p.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		for _, key := range keys {
			if v := bucket.Get(key); v != nil {
				result[string(key)] = append([]byte(nil), v...)
			}
		}
		return nil
	})
	return result, err
}

// Put stores a key-value pair
func (p *BoltProvider) Put(key, value []byte) error {
	return p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put(key, value)
	})
}

// Delete removes a key-value pair
func (p *BoltProvider) Delete(key []byte) error {
	return p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete(key)
	})
}

// Has checks if a key exists
func (p *BoltProvider) Has(key []byte) (bool, error) {
	var exists bool
	err := p.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(boltBucket).Get(key) != nil
		return nil
	})
	return exists, err
}

// Close closes the database connection
func (p *BoltProvider) Close() error {
	var err error
	p.once.Do(func() {
		err = p.db.Close()
	})
	return err
}

// Batch returns a new batch for atomic operations
func (p *BoltProvider) Batch() DatabaseBatch {
	return &BoltBatch{db: p.db}
}

// IteratePrefix iterates over all key-value pairs with the given prefix
func (p *BoltProvider) IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error {
	return p.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(boltBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if !callback(k, v) {
				break
			}
		}
		return nil
	})
}

type boltOp struct {
	key    []byte
	value  []byte
	delete bool
}

// BoltBatch implements DatabaseBatch for bbolt. Operations accumulate in
// memory and commit in a single read-write transaction on Write.
type BoltBatch struct {
	db  *bolt.DB
	ops []boltOp
}

// Put adds a key-value pair to the batch
func (b *BoltBatch) Put(key, value []byte) {
	b.ops = append(b.ops, boltOp{key: key, value: value})
}

// Delete adds a deletion to the batch
func (b *BoltBatch) Delete(key []byte) {
	b.ops = append(b.ops, boltOp{key: key, delete: true})
}

// Write commits all operations in the batch
func (b *BoltBatch) Write() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		for _, op := range b.ops {
			if op.delete {
				if err := bucket.Delete(op.key); err != nil {
					return err
				}
				continue
			}
			if err := bucket.Put(op.key, op.value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Reset clears the batch
func (b *BoltBatch) Reset() {
	b.ops = b.ops[:0]
}

// Close releases batch resources
func (b *BoltBatch) Close() {
	b.ops = nil
}
