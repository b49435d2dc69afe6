package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/argon2"

	"smc/common"
	"smc/errors"
	"smc/jsonx"
	"smc/logx"
)

const keyFileExt = ".json"

// argon2id parameters for deriving the AES key from a passphrase
const (
	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
	kdfKeyLen  = 32
	saltSize   = 16
)

// KeyRecord is the on-disk form of a managed keypair. While unlocked the
// private key seed is stored in the clear; locking replaces it with an
// AES-GCM ciphertext under a passphrase-derived key.
type KeyRecord struct {
	Address      string `json:"address"`
	PublicKey    string `json:"public_key"`
	PrivateKey   string `json:"private_key,omitempty"`
	Locked       bool   `json:"locked"`
	Salt         string `json:"salt,omitempty"`
	EncryptedKey string `json:"encrypted_key,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

// Manager owns a keystore directory with one JSON file per account.
type Manager struct {
	mu  sync.Mutex
	dir string
}

// NewManager opens (creating if needed) the keystore directory.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		return nil, fmt.Errorf("keystore directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("could not create keystore directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// CreateAccount generates a fresh ed25519 keypair, derives its address and
// persists the record. The new account starts unlocked.
func (m *Manager) CreateAccount() (*KeyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("could not generate keypair: %w", err)
	}

	record := &KeyRecord{
		Address:    common.AddressFromPubKey(pub),
		PublicKey:  common.EncodeBytesToBase58(pub),
		PrivateKey: common.EncodeBytesToBase58(priv.Seed()),
		CreatedAt:  time.Now().Unix(),
	}
	if err := m.writeRecord(record); err != nil {
		return nil, err
	}

	logx.Info("WALLET", "Created account", record.Address)
	return record, nil
}

// Get returns the record for addr
func (m *Manager) Get(addr string) (*KeyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readRecord(addr)
}

// List returns every managed address, sorted
func (m *Manager) List() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("could not read keystore directory: %w", err)
	}

	addrs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), keyFileExt) {
			continue
		}
		addrs = append(addrs, strings.TrimSuffix(entry.Name(), keyFileExt))
	}
	sort.Strings(addrs)
	return addrs, nil
}

// Delete removes the key file for addr. The key is unrecoverable afterwards.
func (m *Manager) Delete(addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.keyPath(addr)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return errors.ErrAccountNotFound
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("could not delete key file: %w", err)
	}
	logx.Warn("WALLET", "Deleted account", addr)
	return nil
}

// Lock encrypts the private key seed under a passphrase-derived key and
// drops the plaintext from disk.
func (m *Manager) Lock(addr, passphrase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, err := m.readRecord(addr)
	if err != nil {
		return err
	}
	if record.Locked {
		return errors.ErrAlreadyLocked
	}

	seed, err := common.DecodeBase58ToBytes(record.PrivateKey)
	if err != nil {
		return fmt.Errorf("could not decode private key: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("could not generate salt: %w", err)
	}

	aead, err := newAEAD(passphrase, salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("could not generate nonce: %w", err)
	}
	sealed := append(nonce, aead.Seal(nil, nonce, seed, nil)...)

	record.Locked = true
	record.Salt = common.EncodeBytesToBase58(salt)
	record.EncryptedKey = common.EncodeBytesToBase58(sealed)
	record.PrivateKey = ""

	if err := m.writeRecord(record); err != nil {
		return err
	}
	logx.Info("WALLET", "Locked account", addr)
	return nil
}

// Unlock decrypts the seed with the passphrase and restores the record to
// its unlocked form. A wrong passphrase fails AEAD authentication and maps
// to invalid_passphrase.
func (m *Manager) Unlock(addr, passphrase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, err := m.readRecord(addr)
	if err != nil {
		return err
	}
	if !record.Locked {
		return errors.ErrNotLocked
	}

	salt, err := common.DecodeBase58ToBytes(record.Salt)
	if err != nil {
		return fmt.Errorf("could not decode salt: %w", err)
	}
	sealed, err := common.DecodeBase58ToBytes(record.EncryptedKey)
	if err != nil {
		return fmt.Errorf("could not decode encrypted key: %w", err)
	}

	aead, err := newAEAD(passphrase, salt)
	if err != nil {
		return err
	}
	ns := aead.NonceSize()
	if len(sealed) < ns {
		return fmt.Errorf("encrypted key too short")
	}
	seed, err := aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return errors.ErrInvalidPassphrase
	}

	record.Locked = false
	record.Salt = ""
	record.EncryptedKey = ""
	record.PrivateKey = common.EncodeBytesToBase58(seed)

	if err := m.writeRecord(record); err != nil {
		return err
	}
	logx.Info("WALLET", "Unlocked account", addr)
	return nil
}

// PrivateKey returns the signing key for addr. Locked accounts cannot sign.
func (m *Manager) PrivateKey(addr string) (ed25519.PrivateKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, err := m.readRecord(addr)
	if err != nil {
		return nil, err
	}
	if record.Locked {
		return nil, errors.ErrAlreadyLocked
	}

	seed, err := common.DecodeBase58ToBytes(record.PrivateKey)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("corrupt private key for %s", addr)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

func newAEAD(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(passphrase), salt, kdfTime, kdfMemory, kdfThreads, kdfKeyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("could not init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("could not init aead: %w", err)
	}
	return aead, nil
}

func (m *Manager) keyPath(addr string) string {
	return filepath.Join(m.dir, addr+keyFileExt)
}

func (m *Manager) readRecord(addr string) (*KeyRecord, error) {
	data, err := os.ReadFile(m.keyPath(addr))
	if os.IsNotExist(err) {
		return nil, errors.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read key file: %w", err)
	}

	var record KeyRecord
	if err := jsonx.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("could not parse key file for %s: %w", addr, err)
	}
	return &record, nil
}

func (m *Manager) writeRecord(record *KeyRecord) error {
	data, err := jsonx.Marshal(record)
	if err != nil {
		return fmt.Errorf("could not marshal key record: %w", err)
	}
	if err := os.WriteFile(m.keyPath(record.Address), data, 0600); err != nil {
		return fmt.Errorf("could not write key file: %w", err)
	}
	return nil
}
