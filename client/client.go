package client

import (
	"context"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"

	"smc/jsonx"
)

// RpcClient is a typed JSON-RPC client for the node API.
type RpcClient struct {
	cfg Config
	ch  *jhttp.Channel
	rpc *jrpc2.Client
}

func NewClient(cfg Config) *RpcClient {
	ch := jhttp.NewChannel(cfg.Endpoint, nil)
	return &RpcClient{
		cfg: cfg,
		ch:  ch,
		rpc: jrpc2.NewClient(ch, nil),
	}
}

// Close terminates the underlying channel
func (c *RpcClient) Close() error {
	return c.rpc.Close()
}

func (c *RpcClient) CheckHealth(ctx context.Context) (*HealthResult, error) {
	var out HealthResult
	if err := c.rpc.CallResult(ctx, "health.check", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RpcClient) CreateAccount(ctx context.Context) (*CreateAccountResult, error) {
	var out CreateAccountResult
	if err := c.rpc.CallResult(ctx, "account.create", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RpcClient) ListAccounts(ctx context.Context) (*ListAccountsResult, error) {
	var out ListAccountsResult
	if err := c.rpc.CallResult(ctx, "account.list", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RpcClient) GetKeyRecord(ctx context.Context, addr string) (*KeyRecordResult, error) {
	var out KeyRecordResult
	if err := c.rpc.CallResult(ctx, "account.get", map[string]string{"address": addr}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RpcClient) DeleteAccount(ctx context.Context, addr string) error {
	var out OkResult
	return c.rpc.CallResult(ctx, "account.delete", map[string]string{"address": addr}, &out)
}

func (c *RpcClient) LockAccount(ctx context.Context, addr, passphrase string) error {
	var out OkResult
	params := map[string]string{"address": addr, "passphrase": passphrase}
	return c.rpc.CallResult(ctx, "account.lock", params, &out)
}

func (c *RpcClient) UnlockAccount(ctx context.Context, addr, passphrase string) error {
	var out OkResult
	params := map[string]string{"address": addr, "passphrase": passphrase}
	return c.rpc.CallResult(ctx, "account.unlock", params, &out)
}

func (c *RpcClient) GetAccount(ctx context.Context, addr string) (*GetAccountResult, error) {
	var out GetAccountResult
	if err := c.rpc.CallResult(ctx, "account.getaccount", map[string]string{"address": addr}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RpcClient) GetBalance(ctx context.Context, addr string) (*GetBalanceResult, error) {
	var out GetBalanceResult
	if err := c.rpc.CallResult(ctx, "account.getbalance", map[string]string{"address": addr}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RpcClient) CreateTx(ctx context.Context, sender, recipient, amount, textData string) (*TxEnvelope, error) {
	params := map[string]string{
		"sender":    sender,
		"recipient": recipient,
		"amount":    amount,
		"text_data": textData,
	}
	var out TxEnvelope
	if err := c.rpc.CallResult(ctx, "tx.create", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RpcClient) SignTx(ctx context.Context, tx jsonx.RawMessage) (*TxEnvelope, error) {
	var out TxEnvelope
	if err := c.rpc.CallResult(ctx, "tx.sign", TxEnvelope{Tx: tx}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RpcClient) PublishTx(ctx context.Context, tx jsonx.RawMessage) (*PublishTxResult, error) {
	var out PublishTxResult
	if err := c.rpc.CallResult(ctx, "tx.publish", TxEnvelope{Tx: tx}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RpcClient) Send(ctx context.Context, sender, recipient, amount, textData string) (*PublishTxResult, error) {
	params := map[string]string{
		"sender":    sender,
		"recipient": recipient,
		"amount":    amount,
		"text_data": textData,
	}
	var out PublishTxResult
	if err := c.rpc.CallResult(ctx, "tx.send", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RpcClient) GetTxByHash(ctx context.Context, txHash string) (*TxInfo, error) {
	var out TxInfo
	if err := c.rpc.CallResult(ctx, "tx.gettxbyhash", map[string]string{"tx_hash": txHash}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RpcClient) TxStatus(ctx context.Context, txHash string) (*TxStatusResult, error) {
	var out TxStatusResult
	if err := c.rpc.CallResult(ctx, "tx.status", map[string]string{"tx_hash": txHash}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RpcClient) GetTxHistory(ctx context.Context, addr string, limit, offset, filter uint32) (*TxHistoryResult, error) {
	params := map[string]interface{}{
		"address": addr,
		"limit":   limit,
		"offset":  offset,
		"filter":  filter,
	}
	var out TxHistoryResult
	if err := c.rpc.CallResult(ctx, "tx.gethistory", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
