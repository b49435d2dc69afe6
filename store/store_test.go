package store

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"smc/common"
	"smc/db"
	"smc/transaction"
	"smc/types"

	"github.com/holiman/uint256"
)

func newAddr(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	return common.AddressFromPubKey(pub)
}

func TestAccountStoreRoundTrip(t *testing.T) {
	as, err := NewGenericAccountStore(db.NewMemoryProvider())
	if err != nil {
		t.Fatalf("NewGenericAccountStore failed: %v", err)
	}

	addr := newAddr(t)
	acc := &types.Account{Address: addr, Balance: uint256.NewInt(1000)}
	if err := as.Store(acc); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, err := as.GetByAddr(addr)
	if err != nil {
		t.Fatalf("GetByAddr failed: %v", err)
	}
	if got == nil || got.Address != addr || got.Balance.Uint64() != 1000 {
		t.Fatalf("unexpected account: %+v", got)
	}

	exists, err := as.ExistsByAddr(addr)
	if err != nil || !exists {
		t.Fatalf("account should exist, err=%v", err)
	}

	missing, err := as.GetByAddr(newAddr(t))
	if err != nil {
		t.Fatalf("GetByAddr for missing account failed: %v", err)
	}
	if missing != nil {
		t.Fatal("missing account should return nil")
	}
}

func TestAccountStoreGetAll(t *testing.T) {
	as, err := NewGenericAccountStore(db.NewMemoryProvider())
	if err != nil {
		t.Fatalf("NewGenericAccountStore failed: %v", err)
	}

	accounts := []*types.Account{
		{Address: newAddr(t), Balance: uint256.NewInt(1)},
		{Address: newAddr(t), Balance: uint256.NewInt(2)},
		{Address: newAddr(t), Balance: uint256.NewInt(3)},
	}
	if err := as.StoreBatch(accounts); err != nil {
		t.Fatalf("StoreBatch failed: %v", err)
	}

	all, err := as.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != len(accounts) {
		t.Fatalf("expected %d accounts, got %d", len(accounts), len(all))
	}
}

func TestTxStoreAppliedSet(t *testing.T) {
	ts, err := NewGenericTxStore(db.NewMemoryProvider())
	if err != nil {
		t.Fatalf("NewGenericTxStore failed: %v", err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	sender := common.AddressFromPubKey(pub)
	tx, err := transaction.Build(sender, newAddr(t), uint256.NewInt(42), "persisted", 1)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := tx.Sign(priv); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if err := ts.Store(tx); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	got, err := ts.GetByHash(tx.Hash())
	if err != nil {
		t.Fatalf("GetByHash failed: %v", err)
	}
	if got == nil || got.Hash() != tx.Hash() || !got.Verify() {
		t.Fatalf("stored transaction did not survive the round trip: %+v", got)
	}

	applied, err := ts.HasApplied(tx.Hash())
	if err != nil || applied {
		t.Fatalf("fresh transaction should not be applied, err=%v", err)
	}
	if err := ts.MarkApplied(tx.Hash()); err != nil {
		t.Fatalf("MarkApplied failed: %v", err)
	}
	applied, err = ts.HasApplied(tx.Hash())
	if err != nil || !applied {
		t.Fatalf("transaction should be applied, err=%v", err)
	}

	hashes, err := ts.LoadAppliedHashes()
	if err != nil {
		t.Fatalf("LoadAppliedHashes failed: %v", err)
	}
	if len(hashes) != 1 || hashes[0] != tx.Hash() {
		t.Fatalf("unexpected applied hashes: %v", hashes)
	}
}

func TestStoreFactoryMemory(t *testing.T) {
	as, ts, err := CreateStore(&StoreConfig{Type: MemoryStoreType})
	if err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}
	if as == nil || ts == nil {
		t.Fatal("factory returned nil stores")
	}
}

func TestStoreFactoryRejectsUnknownType(t *testing.T) {
	_, _, err := CreateStore(&StoreConfig{Type: "rocksdb", Directory: t.TempDir()})
	if err == nil {
		t.Fatal("expected error for unsupported store type")
	}
}
