package jsonrpc

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/holiman/uint256"

	"smc/client"
	"smc/events"
	"smc/gateway"
	"smc/jsonx"
	"smc/ledger"
	"smc/mempool"
	"smc/store"
	"smc/transaction"
	"smc/validator"
	"smc/wallet"
)

type testNode struct {
	client *client.RpcClient
	wallet *wallet.Manager
	ledger *ledger.Ledger
}

func newTestNode(t *testing.T) *testNode {
	t.Helper()

	walletMgr, err := wallet.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	accStore, txStore, err := store.CreateStore(&store.StoreConfig{Type: store.MemoryStoreType})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	eventBus := events.NewEventBus()
	eventRouter := events.NewEventRouter(eventBus)
	tracker := events.NewStatusTracker(eventBus, 0)
	t.Cleanup(tracker.Stop)

	ld, err := ledger.NewLedger(accStore, txStore, eventRouter, true)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}

	mp := mempool.NewMempool(100)
	pipeline := validator.NewPipeline(ld, mempool.NewDedupService(), eventRouter)
	gw := gateway.NewGateway(pipeline, nil, mp, 16)

	srv := NewServer("", walletMgr, ld, gw, mp)
	srv.SetStatusTracker(tracker)
	bridge := jhttp.NewBridge(srv.buildMethodMap(), &jhttp.BridgeOptions{Server: &jrpc2.ServerOptions{}})
	ts := httptest.NewServer(bridge)
	t.Cleanup(ts.Close)

	c := client.NewClient(client.Config{Endpoint: ts.URL})
	t.Cleanup(func() { c.Close() })

	return &testNode{client: c, wallet: walletMgr, ledger: ld}
}

func TestAccountLifecycleOverRPC(t *testing.T) {
	node := newTestNode(t)
	ctx := context.Background()

	created, err := node.client.CreateAccount(ctx)
	if err != nil {
		t.Fatalf("account.create: %v", err)
	}
	if created.Address == "" || created.PublicKey == "" {
		t.Fatalf("incomplete create response: %+v", created)
	}

	list, err := node.client.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("account.list: %v", err)
	}
	if len(list.Addresses) != 1 || list.Addresses[0] != created.Address {
		t.Fatalf("list = %v, want [%s]", list.Addresses, created.Address)
	}

	record, err := node.client.GetKeyRecord(ctx, created.Address)
	if err != nil {
		t.Fatalf("account.get: %v", err)
	}
	if record.Locked {
		t.Fatalf("fresh account should be unlocked")
	}

	if err := node.client.LockAccount(ctx, created.Address, "pw"); err != nil {
		t.Fatalf("account.lock: %v", err)
	}
	record, _ = node.client.GetKeyRecord(ctx, created.Address)
	if !record.Locked {
		t.Fatalf("account should be locked")
	}
	if err := node.client.UnlockAccount(ctx, created.Address, "wrong"); err == nil {
		t.Fatalf("unlock with wrong passphrase should fail")
	}
	if err := node.client.UnlockAccount(ctx, created.Address, "pw"); err != nil {
		t.Fatalf("account.unlock: %v", err)
	}

	if err := node.client.DeleteAccount(ctx, created.Address); err != nil {
		t.Fatalf("account.delete: %v", err)
	}
	if _, err := node.client.GetKeyRecord(ctx, created.Address); err == nil {
		t.Fatalf("get after delete should fail")
	}
}

// fundedSender creates a keypair directly in the keystore and seeds its
// ledger balance, the way a genesis allocation would.
func fundedSender(t *testing.T, node *testNode, balance uint64) string {
	t.Helper()
	record, err := node.wallet.CreateAccount()
	if err != nil {
		t.Fatalf("create sender key: %v", err)
	}
	if err := node.ledger.CreateAccount(record.Address, uint256.NewInt(balance)); err != nil {
		t.Fatalf("fund sender: %v", err)
	}
	return record.Address
}

func TestTransferOverRPC(t *testing.T) {
	node := newTestNode(t)
	ctx := context.Background()

	sender := fundedSender(t, node, 1_000_000)
	recipient, err := node.client.CreateAccount(ctx)
	if err != nil {
		t.Fatalf("create recipient: %v", err)
	}

	res, err := node.client.Send(ctx, sender, recipient.Address, "400000", "coffee")
	if err != nil {
		t.Fatalf("tx.send: %v", err)
	}
	if !res.Ok || res.TxHash == "" {
		t.Fatalf("send response: %+v", res)
	}

	bal, err := node.client.GetBalance(ctx, recipient.Address)
	if err != nil {
		t.Fatalf("account.getbalance: %v", err)
	}
	if bal.Finks != "400000" {
		t.Fatalf("recipient finks = %s, want 400000", bal.Finks)
	}

	info, err := node.client.GetTxByHash(ctx, res.TxHash)
	if err != nil {
		t.Fatalf("tx.gettxbyhash: %v", err)
	}
	if info.State != "applied" || info.TextData != "coffee" {
		t.Fatalf("tx info = %+v", info)
	}

	history, err := node.client.GetTxHistory(ctx, sender, 10, 0, 1)
	if err != nil {
		t.Fatalf("tx.gethistory: %v", err)
	}
	if history.Total != 1 || history.Txs[0].TxHash != res.TxHash {
		t.Fatalf("history = %+v", history)
	}

	// Overspend surfaces the rejection to the client.
	if _, err := node.client.Send(ctx, sender, recipient.Address, "999999999", ""); err == nil {
		t.Fatalf("overspend should fail")
	}
}

func TestCreateSignPublishOverRPC(t *testing.T) {
	node := newTestNode(t)
	ctx := context.Background()

	sender := fundedSender(t, node, 500)
	recipient, err := node.client.CreateAccount(ctx)
	if err != nil {
		t.Fatalf("create recipient: %v", err)
	}

	unsigned, err := node.client.CreateTx(ctx, sender, recipient.Address, "200", "")
	if err != nil {
		t.Fatalf("tx.create: %v", err)
	}

	// Publishing before signing rejects.
	if _, err := node.client.PublishTx(ctx, unsigned.Tx); err == nil {
		t.Fatalf("publishing an unsigned tx should fail")
	}

	signed, err := node.client.SignTx(ctx, unsigned.Tx)
	if err != nil {
		t.Fatalf("tx.sign: %v", err)
	}
	published, err := node.client.PublishTx(ctx, signed.Tx)
	if err != nil {
		t.Fatalf("tx.publish: %v", err)
	}
	if !published.Ok {
		t.Fatalf("publish response: %+v", published)
	}

	bal, _ := node.client.GetBalance(ctx, recipient.Address)
	if bal.Finks != "200" {
		t.Fatalf("recipient finks = %s, want 200", bal.Finks)
	}
}

func TestSignWithLockedKeyFails(t *testing.T) {
	node := newTestNode(t)
	ctx := context.Background()

	sender := fundedSender(t, node, 500)
	recipient, err := node.client.CreateAccount(ctx)
	if err != nil {
		t.Fatalf("create recipient: %v", err)
	}
	if err := node.client.LockAccount(ctx, sender, "pw"); err != nil {
		t.Fatalf("lock: %v", err)
	}

	if _, err := node.client.Send(ctx, sender, recipient.Address, "100", ""); err == nil {
		t.Fatalf("sending from a locked account should fail")
	}
}

func TestCreateAccountRegistersZeroBalance(t *testing.T) {
	node := newTestNode(t)
	ctx := context.Background()

	created, err := node.client.CreateAccount(ctx)
	if err != nil {
		t.Fatalf("account.create: %v", err)
	}

	// A freshly created account is immediately queryable, at zero.
	bal, err := node.client.GetBalance(ctx, created.Address)
	if err != nil {
		t.Fatalf("account.getbalance: %v", err)
	}
	if bal.Finks != "0" {
		t.Fatalf("fresh account finks = %s, want 0", bal.Finks)
	}
	acc, err := node.client.GetAccount(ctx, created.Address)
	if err != nil {
		t.Fatalf("account.getaccount: %v", err)
	}
	if acc.Balance != "0" || len(acc.History) != 0 {
		t.Fatalf("fresh account = %+v", acc)
	}
}

func TestCreateTxRejectsUnspendableAmount(t *testing.T) {
	node := newTestNode(t)
	ctx := context.Background()

	sender := fundedSender(t, node, 100)
	recipient, err := node.client.CreateAccount(ctx)
	if err != nil {
		t.Fatalf("create recipient: %v", err)
	}

	// Building a transfer the sender cannot fund fails up front, before
	// anything is signed or published.
	if _, err := node.client.CreateTx(ctx, sender, recipient.Address, "101", ""); err == nil {
		t.Fatalf("unfundable tx.create should fail")
	}
	if _, err := node.client.CreateTx(ctx, sender, recipient.Address, "100", ""); err != nil {
		t.Fatalf("fundable tx.create: %v", err)
	}
}

// waitTxStatus polls tx.status until the tracker has consumed the lifecycle
// event behind it.
func waitTxStatus(t *testing.T, node *testNode, txHash, wantState string) *client.TxStatusResult {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(2 * time.Second)
	var last *client.TxStatusResult
	for time.Now().Before(deadline) {
		status, err := node.client.TxStatus(ctx, txHash)
		if err == nil && status.State == wantState {
			return status
		}
		last = status
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("tx %s never reached state %q (last %+v)", txHash, wantState, last)
	return nil
}

func TestTxStatusOverRPC(t *testing.T) {
	node := newTestNode(t)
	ctx := context.Background()

	sender := fundedSender(t, node, 500)
	recipient, err := node.client.CreateAccount(ctx)
	if err != nil {
		t.Fatalf("create recipient: %v", err)
	}

	res, err := node.client.Send(ctx, sender, recipient.Address, "200", "")
	if err != nil {
		t.Fatalf("tx.send: %v", err)
	}
	status := waitTxStatus(t, node, res.TxHash, "applied")
	if status.Reason != "" {
		t.Fatalf("applied status carries reason %q", status.Reason)
	}

	// A rejected transaction is never persisted, but its fate is still
	// answerable.
	unsigned, err := node.client.CreateTx(ctx, sender, recipient.Address, "100", "")
	if err != nil {
		t.Fatalf("tx.create: %v", err)
	}
	if _, err := node.client.PublishTx(ctx, unsigned.Tx); err == nil {
		t.Fatalf("publishing an unsigned tx should fail")
	}

	var tx transaction.Transaction
	if err := jsonx.Unmarshal(unsigned.Tx, &tx); err != nil {
		t.Fatalf("decode unsigned tx: %v", err)
	}
	status = waitTxStatus(t, node, tx.Hash(), "rejected")
	if status.Reason != "not_signed" {
		t.Fatalf("status = %+v, want reason not_signed", status)
	}

	if _, err := node.client.TxStatus(ctx, "ffffffff"); err == nil {
		t.Fatalf("unknown hash should fail")
	}
}

func TestHealthCheck(t *testing.T) {
	node := newTestNode(t)

	health, err := node.client.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("health.check: %v", err)
	}
	if !health.Ok || health.PendingTxs != 0 {
		t.Fatalf("health = %+v", health)
	}
}
