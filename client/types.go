package client

import (
	"smc/jsonx"
)

type Config struct {
	// Endpoint is the node RPC base URL, e.g. http://127.0.0.1:2048
	Endpoint string
}

type CreateAccountResult struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
}

type ListAccountsResult struct {
	Addresses []string `json:"addresses"`
}

type KeyRecordResult struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
	Locked    bool   `json:"locked"`
	CreatedAt int64  `json:"created_at"`
}

type OkResult struct {
	Ok bool `json:"ok"`
}

type GetAccountResult struct {
	Address string   `json:"address"`
	Balance string   `json:"balance"`
	History []string `json:"history"`
}

type GetBalanceResult struct {
	Address string `json:"address"`
	Finks   string `json:"finks"`
	SMC     string `json:"smc"`
}

type TxEnvelope struct {
	Tx jsonx.RawMessage `json:"tx"`
}

type PublishTxResult struct {
	Ok     bool   `json:"ok"`
	TxHash string `json:"tx_hash"`
}

type TxInfo struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Timestamp uint64 `json:"timestamp"`
	TextData  string `json:"text_data"`
	Nonce     uint64 `json:"nonce"`
	TxHash    string `json:"tx_hash"`
	State     string `json:"state"`
	Reason    string `json:"reason,omitempty"`
}

type TxStatusResult struct {
	TxHash string `json:"tx_hash"`
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

type TxHistoryResult struct {
	Total uint32   `json:"total"`
	Txs   []TxInfo `json:"txs"`
}

type HealthResult struct {
	Ok         bool   `json:"ok"`
	PendingTxs int    `json:"pending_txs"`
	Timestamp  uint64 `json:"timestamp"`
}
