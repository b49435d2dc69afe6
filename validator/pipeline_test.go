package validator

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"smc/common"
	"smc/errors"
	"smc/ledger"
	"smc/mempool"
	"smc/store"
	"smc/transaction"
)

func newTestPipeline(t *testing.T) (*Pipeline, *ledger.Ledger) {
	t.Helper()

	accStore, txStore, err := store.CreateStore(&store.StoreConfig{Type: store.MemoryStoreType})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	l, err := ledger.NewLedger(accStore, txStore, nil, true)
	if err != nil {
		t.Fatalf("create ledger: %v", err)
	}
	return NewPipeline(l, mempool.NewDedupService(), nil), l
}

func newKeyPair(t *testing.T) (ed25519.PrivateKey, string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return priv, common.AddressFromPubKey(pub)
}

func buildTx(t *testing.T, sender, recipient string, amount uint64) *transaction.Transaction {
	t.Helper()
	tx, err := transaction.Build(sender, recipient, uint256.NewInt(amount), "", uint64(time.Now().Unix()))
	if err != nil {
		t.Fatalf("build tx: %v", err)
	}
	return tx
}

func TestProcessLocalAppliesValidTx(t *testing.T) {
	p, l := newTestPipeline(t)

	alicePriv, alice := newKeyPair(t)
	_, bob := newKeyPair(t)
	if err := l.CreateAccount(alice, uint256.NewInt(100)); err != nil {
		t.Fatalf("create account: %v", err)
	}

	tx := buildTx(t, alice, bob, 40)
	if err := tx.Sign(alicePriv); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := p.ProcessLocal(tx); err != nil {
		t.Fatalf("process: %v", err)
	}

	if tx.State != transaction.TxStateApplied {
		t.Fatalf("state = %v, want applied", tx.State)
	}
	bal, _ := l.Balance(bob)
	if bal.Uint64() != 40 {
		t.Fatalf("bob balance = %d, want 40", bal.Uint64())
	}
}

func TestProcessRejectsUnsigned(t *testing.T) {
	p, l := newTestPipeline(t)

	_, alice := newKeyPair(t)
	_, bob := newKeyPair(t)
	if err := l.CreateAccount(alice, uint256.NewInt(100)); err != nil {
		t.Fatalf("create account: %v", err)
	}

	tx := buildTx(t, alice, bob, 40)
	err := p.ProcessLocal(tx)
	if !errors.IsCode(err, errors.ErrCodeNotSigned) {
		t.Fatalf("err = %v, want not_signed", err)
	}
	if tx.State != transaction.TxStateRejected {
		t.Fatalf("state = %v, want rejected", tx.State)
	}
	bal, _ := l.Balance(alice)
	if bal.Uint64() != 100 {
		t.Fatalf("rejected tx touched balance: %d", bal.Uint64())
	}
}

func TestProcessRejectsTamperedTx(t *testing.T) {
	p, l := newTestPipeline(t)

	alicePriv, alice := newKeyPair(t)
	_, bob := newKeyPair(t)
	if err := l.CreateAccount(alice, uint256.NewInt(100)); err != nil {
		t.Fatalf("create account: %v", err)
	}

	tx := buildTx(t, alice, bob, 10)
	if err := tx.Sign(alicePriv); err != nil {
		t.Fatalf("sign: %v", err)
	}
	tx.Amount = uint256.NewInt(90)

	err := p.ProcessLocal(tx)
	if !errors.IsCode(err, errors.ErrCodeInvalidSignature) {
		t.Fatalf("err = %v, want invalid_signature", err)
	}
}

func TestProcessRejectsOverspend(t *testing.T) {
	p, l := newTestPipeline(t)

	alicePriv, alice := newKeyPair(t)
	_, bob := newKeyPair(t)
	if err := l.CreateAccount(alice, uint256.NewInt(100)); err != nil {
		t.Fatalf("create account: %v", err)
	}

	tx := buildTx(t, alice, bob, 200)
	if err := tx.Sign(alicePriv); err != nil {
		t.Fatalf("sign: %v", err)
	}
	err := p.ProcessLocal(tx)
	if !errors.IsCode(err, errors.ErrCodeInsufficientFunds) {
		t.Fatalf("err = %v, want insufficient_funds", err)
	}

	// A rejection releases the in-flight claim, so submitting a fresh
	// affordable transfer still works.
	retry := buildTx(t, alice, bob, 50)
	if err := retry.Sign(alicePriv); err != nil {
		t.Fatalf("sign retry: %v", err)
	}
	if err := p.ProcessLocal(retry); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestProcessRejectsForgedLifecycleState(t *testing.T) {
	p, l := newTestPipeline(t)

	alicePriv, alice := newKeyPair(t)
	_, bob := newKeyPair(t)
	if err := l.CreateAccount(alice, uint256.NewInt(100)); err != nil {
		t.Fatalf("create account: %v", err)
	}

	tx := buildTx(t, alice, bob, 40)
	if err := tx.Sign(alicePriv); err != nil {
		t.Fatalf("sign: %v", err)
	}
	// A client can put any state into the submitted JSON; only Signed is
	// acceptable at the pipeline entrance.
	tx.State = transaction.TxStateApplied

	err := p.ProcessLocal(tx)
	if !errors.IsCode(err, errors.ErrCodeNotSigned) {
		t.Fatalf("err = %v, want not_signed", err)
	}
	bal, _ := l.Balance(alice)
	if bal.Uint64() != 100 {
		t.Fatalf("forged state moved funds: alice = %d", bal.Uint64())
	}
}

func TestProcessInboundRejectsOversizedTextData(t *testing.T) {
	p, l := newTestPipeline(t)

	alicePriv, alice := newKeyPair(t)
	_, bob := newKeyPair(t)
	if err := l.CreateAccount(alice, uint256.NewInt(100)); err != nil {
		t.Fatalf("create account: %v", err)
	}

	// Peers are not obliged to use Build; the content bound has to hold for
	// a hand-assembled transaction too.
	tx := &transaction.Transaction{
		Sender:    alice,
		Recipient: bob,
		Amount:    uint256.NewInt(40),
		TextData:  strings.Repeat("x", transaction.MaxTextDataLen+1),
		Timestamp: uint64(time.Now().Unix()),
		Nonce:     7,
		State:     transaction.TxStateCreated,
	}
	tx.TxHash = tx.Hash()
	if err := tx.Sign(alicePriv); err != nil {
		t.Fatalf("sign: %v", err)
	}

	err := p.ProcessInbound(tx)
	if !errors.IsCode(err, errors.ErrCodeInvalidSignature) {
		t.Fatalf("err = %v, want invalid_signature", err)
	}
	if l.HasApplied(tx.Hash()) {
		t.Fatal("oversized transaction must not be applied")
	}
	bal, _ := l.Balance(alice)
	if bal.Uint64() != 100 {
		t.Fatalf("oversized transaction moved funds: alice = %d", bal.Uint64())
	}
}

func TestProcessLocalReplayRejects(t *testing.T) {
	p, l := newTestPipeline(t)

	alicePriv, alice := newKeyPair(t)
	_, bob := newKeyPair(t)
	if err := l.CreateAccount(alice, uint256.NewInt(100)); err != nil {
		t.Fatalf("create account: %v", err)
	}

	tx := buildTx(t, alice, bob, 40)
	if err := tx.Sign(alicePriv); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := p.ProcessLocal(tx); err != nil {
		t.Fatalf("first process: %v", err)
	}

	// Replays arrive as fresh decodes of the signed wire form.
	replay := *tx
	replay.State = transaction.TxStateSigned
	replay.Reason = ""
	err := p.ProcessLocal(&replay)
	if !errors.IsCode(err, errors.ErrCodeDuplicateTransaction) {
		t.Fatalf("replay err = %v, want duplicate_transaction", err)
	}
}

func TestProcessInboundReplayIsSilent(t *testing.T) {
	p, l := newTestPipeline(t)

	alicePriv, alice := newKeyPair(t)
	_, bob := newKeyPair(t)
	if err := l.CreateAccount(alice, uint256.NewInt(100)); err != nil {
		t.Fatalf("create account: %v", err)
	}

	tx := buildTx(t, alice, bob, 40)
	if err := tx.Sign(alicePriv); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := p.ProcessInbound(tx); err != nil {
		t.Fatalf("first inbound: %v", err)
	}

	// The gossip echo of an applied transaction is acked, not rejected.
	echo := *tx
	echo.State = transaction.TxStateSigned
	echo.Reason = ""
	if err := p.ProcessInbound(&echo); err != nil {
		t.Fatalf("inbound replay should be silent, got %v", err)
	}

	bal, _ := l.Balance(bob)
	if bal.Uint64() != 40 {
		t.Fatalf("replay double-applied: bob = %d", bal.Uint64())
	}
}
