package gateway

import (
	"context"
	"fmt"

	"smc/errors"
	"smc/exception"
	"smc/interfaces"
	"smc/logx"
	"smc/mempool"
	"smc/transaction"
	"smc/validator"
)

// Gateway connects the validation pipeline to the network transport through
// bounded queues. Local submissions that apply are queued for broadcast;
// transactions gossiped by peers are queued for validation. Broadcast is
// fire-and-forget: a send failure is logged, never bubbled to the submitter,
// because the local ledger has already committed the transfer.
type Gateway struct {
	pipeline    *validator.Pipeline
	broadcaster interfaces.Broadcaster
	mempool     *mempool.Mempool

	inbound  chan *transaction.Transaction
	outbound chan *transaction.Transaction

	ctx    context.Context
	cancel context.CancelFunc
}

func NewGateway(pipeline *validator.Pipeline, broadcaster interfaces.Broadcaster, mp *mempool.Mempool, queueSize int) *Gateway {
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		pipeline:    pipeline,
		broadcaster: broadcaster,
		mempool:     mp,
		inbound:     make(chan *transaction.Transaction, queueSize),
		outbound:    make(chan *transaction.Transaction, queueSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the queue workers
func (g *Gateway) Start() {
	exception.SafeGo("GatewayInbound", g.inboundLoop)
	exception.SafeGo("GatewayOutbound", g.outboundLoop)
}

// Stop terminates the queue workers
func (g *Gateway) Stop() {
	g.cancel()
}

// SubmitLocal runs a client-submitted transaction through the pipeline. On
// success the transaction is queued for broadcast to peers.
func (g *Gateway) SubmitLocal(tx *transaction.Transaction) error {
	if err := g.mempool.Add(tx); err != nil {
		return err
	}
	defer g.mempool.Remove(tx.Hash())

	if err := g.pipeline.ProcessLocal(tx); err != nil {
		return err
	}

	select {
	case g.outbound <- tx:
	default:
		logx.Warn("GATEWAY", "Broadcast queue full, dropping tx", tx.Hash())
	}
	return nil
}

// OnReceive queues a peer-gossiped transaction for validation. It never
// blocks the transport: when the queue is full the transaction is dropped
// and will come back with the next gossip round.
func (g *Gateway) OnReceive(tx *transaction.Transaction) {
	select {
	case g.inbound <- tx:
	default:
		logx.Warn("GATEWAY", "Inbound queue full, dropping tx", tx.Hash())
	}
}

func (g *Gateway) inboundLoop() {
	for {
		select {
		case <-g.ctx.Done():
			return
		case tx := <-g.inbound:
			if err := g.pipeline.ProcessInbound(tx); err != nil {
				code := errors.CodeOf(err)
				logx.Debug("GATEWAY", fmt.Sprintf("Inbound tx %s rejected: %s", tx.Hash(), code))
			}
		}
	}
}

func (g *Gateway) outboundLoop() {
	for {
		select {
		case <-g.ctx.Done():
			return
		case tx := <-g.outbound:
			if g.broadcaster == nil {
				continue
			}
			// Lifecycle state is local to each node; peers receive the
			// transaction as it left the signer.
			wire := *tx
			wire.State = transaction.TxStateSigned
			wire.Reason = ""
			if err := g.broadcaster.TxBroadcast(g.ctx, &wire); err != nil {
				logx.Error("GATEWAY", fmt.Sprintf("Failed to broadcast tx %s: %v", wire.Hash(), err))
			}
		}
	}
}
