package jsonrpc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/holiman/uint256"

	"smc/errors"
	"smc/events"
	"smc/exception"
	"smc/gateway"
	"smc/jsonx"
	"smc/ledger"
	"smc/logx"
	"smc/mempool"
	"smc/ratelimit"
	"smc/transaction"
	"smc/types"
	"smc/wallet"
)

// Server exposes the node API as JSON-RPC over HTTP.
type Server struct {
	addr    string
	wallet  *wallet.Manager
	ledger  *ledger.Ledger
	gateway *gateway.Gateway
	mempool *mempool.Mempool
	limiter *ratelimit.SlidingWindow
	tracker *events.StatusTracker

	httpSrv *http.Server
}

func NewServer(addr string, walletMgr *wallet.Manager, ld *ledger.Ledger, gw *gateway.Gateway, mp *mempool.Mempool) *Server {
	return &Server{
		addr:    addr,
		wallet:  walletMgr,
		ledger:  ld,
		gateway: gw,
		mempool: mp,
	}
}

// SetStatusTracker attaches the lifecycle tracker that backs tx.status.
func (s *Server) SetStatusTracker(tracker *events.StatusTracker) {
	s.tracker = tracker
}

// SetRateLimit enables per-client request limiting. maxPerSecond <= 0
// leaves limiting off.
func (s *Server) SetRateLimit(maxPerSecond int) {
	if maxPerSecond <= 0 {
		return
	}
	s.limiter = ratelimit.NewSlidingWindow(maxPerSecond, time.Second)
}

// Start serves the RPC bridge in the background
func (s *Server) Start() {
	bridge := jhttp.NewBridge(s.buildMethodMap(), &jhttp.BridgeOptions{Server: &jrpc2.ServerOptions{}})

	mux := http.NewServeMux()
	mux.Handle("/", s.withRateLimit(bridge))

	s.httpSrv = &http.Server{Addr: s.addr, Handler: mux}
	exception.SafeGo("JsonRpcServer", func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Error("JSONRPC", fmt.Sprintf("Server stopped: %v", err))
		}
	})
	logx.Info("JSONRPC", "Serving JSON-RPC on", s.addr)
}

// Stop shuts the HTTP listener down
func (s *Server) Stop(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiter.Allow(host) {
			logx.Warn("JSONRPC", "Rate limit exceeded for", host)
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Params and results ---

type addressParams struct {
	Address string `json:"address"`
}

type passphraseParams struct {
	Address    string `json:"address"`
	Passphrase string `json:"passphrase"`
}

type createAccountResponse struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
}

type listAccountsResponse struct {
	Addresses []string `json:"addresses"`
}

type keyRecordResponse struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
	Locked    bool   `json:"locked"`
	CreatedAt int64  `json:"created_at"`
}

type okResponse struct {
	Ok bool `json:"ok"`
}

type getAccountResponse struct {
	Address string   `json:"address"`
	Balance string   `json:"balance"`
	History []string `json:"history"`
}

type getBalanceResponse struct {
	Address string `json:"address"`
	Finks   string `json:"finks"`
	SMC     string `json:"smc"`
}

type createTxParams struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	TextData  string `json:"text_data"`
}

type txEnvelope struct {
	Tx jsonx.RawMessage `json:"tx"`
}

type signTxParams struct {
	Tx jsonx.RawMessage `json:"tx"`
}

type publishTxResponse struct {
	Ok     bool   `json:"ok"`
	TxHash string `json:"tx_hash"`
}

type txInfo struct {
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

type txStatusResponse struct {
	TxHash string `json:"tx_hash"`
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

type getHistoryParams struct {
	Address string `json:"address"`
	Limit   uint32 `json:"limit"`
	Offset  uint32 `json:"offset"`
	Filter  uint32 `json:"filter"`
}

type getHistoryResponse struct {
	Total uint32   `json:"total"`
	Txs   []txInfo `json:"txs"`
}

type healthResponse struct {
	Ok         bool   `json:"ok"`
	PendingTxs int    `json:"pending_txs"`
	Timestamp  uint64 `json:"timestamp"`
}

// --- Method map ---

func (s *Server) buildMethodMap() handler.Map {
	return handler.Map{
		"account.create": handler.New(func(ctx context.Context) (*createAccountResponse, error) {
			record, err := s.wallet.CreateAccount()
			if err != nil {
				return nil, toRPCError(err)
			}
			// A fresh account starts at zero in the ledger so balance
			// queries answer 0 rather than account_not_found.
			if err := s.ledger.CreateAccount(record.Address, uint256.NewInt(0)); err != nil && !errors.IsCode(err, errors.ErrCodeAccountExisted) {
				return nil, toRPCError(err)
			}
			return &createAccountResponse{Address: record.Address, PublicKey: record.PublicKey}, nil
		}),
		"account.list": handler.New(func(ctx context.Context) (*listAccountsResponse, error) {
			addrs, err := s.wallet.List()
			if err != nil {
				return nil, toRPCError(err)
			}
			return &listAccountsResponse{Addresses: addrs}, nil
		}),
		"account.get": handler.New(func(ctx context.Context, p addressParams) (*keyRecordResponse, error) {
			record, err := s.wallet.Get(p.Address)
			if err != nil {
				return nil, toRPCError(err)
			}
			return &keyRecordResponse{
				Address:   record.Address,
				PublicKey: record.PublicKey,
				Locked:    record.Locked,
				CreatedAt: record.CreatedAt,
			}, nil
		}),
		"account.delete": handler.New(func(ctx context.Context, p addressParams) (*okResponse, error) {
			if err := s.wallet.Delete(p.Address); err != nil {
				return nil, toRPCError(err)
			}
			return &okResponse{Ok: true}, nil
		}),
		"account.lock": handler.New(func(ctx context.Context, p passphraseParams) (*okResponse, error) {
			if err := s.wallet.Lock(p.Address, p.Passphrase); err != nil {
				return nil, toRPCError(err)
			}
			return &okResponse{Ok: true}, nil
		}),
		"account.unlock": handler.New(func(ctx context.Context, p passphraseParams) (*okResponse, error) {
			if err := s.wallet.Unlock(p.Address, p.Passphrase); err != nil {
				return nil, toRPCError(err)
			}
			return &okResponse{Ok: true}, nil
		}),
		"account.getaccount": handler.New(func(ctx context.Context, p addressParams) (*getAccountResponse, error) {
			acc, err := s.ledger.GetAccount(p.Address)
			if err != nil {
				return nil, toRPCError(err)
			}
			if acc == nil {
				return nil, toRPCError(errors.ErrAccountNotFound)
			}
			return &getAccountResponse{
				Address: acc.Address,
				Balance: acc.Balance.Dec(),
				History: acc.History,
			}, nil
		}),
		"account.getbalance": handler.New(func(ctx context.Context, p addressParams) (*getBalanceResponse, error) {
			balance, err := s.ledger.Balance(p.Address)
			if err != nil {
				return nil, toRPCError(err)
			}
			whole, frac := types.FinksToSMC(balance)
			return &getBalanceResponse{
				Address: p.Address,
				Finks:   balance.Dec(),
				SMC:     fmt.Sprintf("%s.%018s", whole.Dec(), frac.Dec()),
			}, nil
		}),
		"tx.create": handler.New(func(ctx context.Context, p createTxParams) (*txEnvelope, error) {
			amount, err := uint256.FromDecimal(p.Amount)
			if err != nil {
				return nil, toRPCError(errors.ErrInvalidAmount)
			}
			if err := s.checkSpendable(p.Sender, amount); err != nil {
				return nil, toRPCError(err)
			}
			tx, err := transaction.Build(p.Sender, p.Recipient, amount, p.TextData, uint64(time.Now().Unix()))
			if err != nil {
				return nil, toRPCError(err)
			}
			return &txEnvelope{Tx: tx.Bytes()}, nil
		}),
		"tx.sign": handler.New(func(ctx context.Context, p signTxParams) (*txEnvelope, error) {
			var tx transaction.Transaction
			if err := jsonx.Unmarshal(p.Tx, &tx); err != nil {
				return nil, jrpc2.Errorf(jrpc2.InvalidParams, "undecodable transaction")
			}
			priv, err := s.wallet.PrivateKey(tx.Sender)
			if err != nil {
				return nil, toRPCError(err)
			}
			if err := tx.Sign(priv); err != nil {
				return nil, toRPCError(err)
			}
			return &txEnvelope{Tx: tx.Bytes()}, nil
		}),
		"tx.publish": handler.New(func(ctx context.Context, p signTxParams) (*publishTxResponse, error) {
			var tx transaction.Transaction
			if err := jsonx.Unmarshal(p.Tx, &tx); err != nil {
				return nil, jrpc2.Errorf(jrpc2.InvalidParams, "undecodable transaction")
			}
			if err := s.gateway.SubmitLocal(&tx); err != nil {
				return nil, toRPCError(err)
			}
			return &publishTxResponse{Ok: true, TxHash: tx.Hash()}, nil
		}),
		"tx.send": handler.New(func(ctx context.Context, p createTxParams) (*publishTxResponse, error) {
			amount, err := uint256.FromDecimal(p.Amount)
			if err != nil {
				return nil, toRPCError(errors.ErrInvalidAmount)
			}
			if err := s.checkSpendable(p.Sender, amount); err != nil {
				return nil, toRPCError(err)
			}
			tx, err := transaction.Build(p.Sender, p.Recipient, amount, p.TextData, uint64(time.Now().Unix()))
			if err != nil {
				return nil, toRPCError(err)
			}
			priv, err := s.wallet.PrivateKey(tx.Sender)
			if err != nil {
				return nil, toRPCError(err)
			}
			if err := tx.Sign(priv); err != nil {
				return nil, toRPCError(err)
			}
			if err := s.gateway.SubmitLocal(tx); err != nil {
				return nil, toRPCError(err)
			}
			return &publishTxResponse{Ok: true, TxHash: tx.Hash()}, nil
		}),
		"tx.gettxbyhash": handler.New(func(ctx context.Context, p struct {
			TxHash string `json:"tx_hash"`
		}) (*txInfo, error) {
			tx, err := s.ledger.GetTxByHash(p.TxHash)
			if err != nil {
				return nil, toRPCError(err)
			}
			if tx == nil {
				return nil, toRPCError(errors.ErrTransactionNotFound)
			}
			info := toTxInfo(tx)
			return &info, nil
		}),
		"tx.status": handler.New(func(ctx context.Context, p struct {
			TxHash string `json:"tx_hash"`
		}) (*txStatusResponse, error) {
			// The tracker remembers rejected transactions, which never make
			// it into the tx store.
			if s.tracker != nil {
				if status, ok := s.tracker.Get(p.TxHash); ok {
					return &txStatusResponse{
						TxHash: status.TxHash,
						State:  status.State,
						Reason: status.Reason,
					}, nil
				}
			}
			tx, err := s.ledger.GetTxByHash(p.TxHash)
			if err != nil {
				return nil, toRPCError(err)
			}
			if tx == nil {
				return nil, toRPCError(errors.ErrTransactionNotFound)
			}
			return &txStatusResponse{
				TxHash: tx.TxHash,
				State:  tx.State.String(),
				Reason: tx.Reason,
			}, nil
		}),
		"tx.gethistory": handler.New(func(ctx context.Context, p getHistoryParams) (*getHistoryResponse, error) {
			limit := p.Limit
			if limit == 0 {
				limit = 50
			}
			total, txs := s.ledger.GetTxs(p.Address, limit, p.Offset, p.Filter)
			infos := make([]txInfo, 0, len(txs))
			for _, tx := range txs {
				infos = append(infos, toTxInfo(tx))
			}
			return &getHistoryResponse{Total: total, Txs: infos}, nil
		}),
		"health.check": handler.New(func(ctx context.Context) (*healthResponse, error) {
			return &healthResponse{
				Ok:         true,
				PendingTxs: s.mempool.Len(),
				Timestamp:  uint64(time.Now().Unix()),
			}, nil
		}),
	}
}

// checkSpendable rejects a transfer the sender cannot fund once every
// transaction still queued in the mempool has speculatively settled. It is an
// early answer for clients building transactions; the pipeline re-checks
// against committed state at publish time.
func (s *Server) checkSpendable(sender string, amount *uint256.Int) error {
	view := s.ledger.NewView()
	for _, pending := range s.mempool.GetBatch(s.mempool.Len()) {
		// Individually unfundable pending txs will be rejected by the
		// pipeline; they reserve nothing here.
		_ = view.ApplyTx(pending)
	}
	if view.Balance(sender).Cmp(amount) < 0 {
		return errors.ErrInsufficientFunds
	}
	return nil
}

func toTxInfo(tx *transaction.Transaction) txInfo {
	return txInfo{
		Sender:    tx.Sender,
		Recipient: tx.Recipient,
		Amount:    tx.Amount.Dec(),
		Timestamp: tx.Timestamp,
		TextData:  tx.TextData,
		Nonce:     tx.Nonce,
		TxHash:    tx.TxHash,
		State:     tx.State.String(),
		Reason:    tx.Reason,
	}
}
