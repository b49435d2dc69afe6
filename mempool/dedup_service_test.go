package mempool

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"smc/common"
	"smc/store"
	"smc/transaction"
)

func TestDedupMarkInFlight(t *testing.T) {
	ds := NewDedupService()

	if !ds.MarkInFlight("h1") {
		t.Fatalf("first claim should succeed")
	}
	if ds.MarkInFlight("h1") {
		t.Fatalf("second claim of the same hash should fail")
	}
	if !ds.IsDuplicate("h1") {
		t.Fatalf("claimed hash should report as duplicate")
	}

	ds.Release("h1")
	if ds.IsDuplicate("h1") {
		t.Fatalf("released hash should no longer be a duplicate")
	}
	if !ds.MarkInFlight("h1") {
		t.Fatalf("claim after release should succeed")
	}
}

func TestDedupSeedFromStore(t *testing.T) {
	_, txStore, err := store.CreateStore(&store.StoreConfig{Type: store.MemoryStoreType})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	recipientPub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tx, err := transaction.Build(
		common.AddressFromPubKey(pub),
		common.AddressFromPubKey(recipientPub),
		uint256.NewInt(10),
		"",
		uint64(time.Now().Unix()),
	)
	if err != nil {
		t.Fatalf("build tx: %v", err)
	}
	if err := tx.Sign(priv); err != nil {
		t.Fatalf("sign tx: %v", err)
	}
	if err := txStore.Store(tx); err != nil {
		t.Fatalf("store tx: %v", err)
	}
	if err := txStore.MarkApplied(tx.Hash()); err != nil {
		t.Fatalf("mark applied: %v", err)
	}

	ds := NewDedupService()
	ds.SeedFromStore(txStore)

	if !ds.IsDuplicate(tx.Hash()) {
		t.Fatalf("applied hash should be claimed after seeding")
	}
	if ds.MarkInFlight(tx.Hash()) {
		t.Fatalf("seeded hash should not be claimable")
	}
}
