package p2p

import (
	"context"
	"fmt"

	"smc/jsonx"
	"smc/logx"
	"smc/monitoring"
	"smc/transaction"
)

// TxMessage is the wire form of a gossiped transaction
type TxMessage struct {
	Data []byte `json:"data"`
}

// TxBroadcast publishes an applied transaction to the tx topic. Implements
// interfaces.Broadcaster.
func (ln *Libp2pNetwork) TxBroadcast(ctx context.Context, tx *transaction.Transaction) error {
	msg := TxMessage{Data: tx.Bytes()}
	data, err := jsonx.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal tx message: %w", err)
	}

	if err := ln.txTopic.Publish(ctx, data); err != nil {
		return fmt.Errorf("failed to publish tx %s: %w", tx.Hash(), err)
	}
	monitoring.IncreaseBroadcastTxCount()
	logx.Debug("NETWORK:TX", "Broadcast tx", tx.Hash())
	return nil
}

func (ln *Libp2pNetwork) handleTxTopic() {
	for {
		msg, err := ln.txSub.Next(ln.ctx)
		if err != nil {
			if ln.ctx.Err() != nil {
				return
			}
			continue
		}
		// Our own publishes come back on the subscription too.
		if msg.ReceivedFrom == ln.host.ID() {
			continue
		}

		tx, err := decodeTxMessage(msg.Data)
		if err != nil {
			logx.Warn("NETWORK:TX", "Dropping malformed tx message from", msg.ReceivedFrom.String())
			continue
		}

		if ln.onTxReceived != nil {
			ln.onTxReceived(tx)
		}
	}
}

func decodeTxMessage(data []byte) (*transaction.Transaction, error) {
	var txMsg TxMessage
	if err := jsonx.Unmarshal(data, &txMsg); err != nil {
		return nil, fmt.Errorf("malformed tx envelope: %w", err)
	}
	var tx transaction.Transaction
	if err := jsonx.Unmarshal(txMsg.Data, &tx); err != nil {
		return nil, fmt.Errorf("undecodable tx payload: %w", err)
	}

	// The lifecycle state is not covered by the signature and has no meaning
	// off the wire; never trust what a peer put there.
	if tx.Signature != "" {
		tx.State = transaction.TxStateSigned
	} else {
		tx.State = transaction.TxStateCreated
	}
	tx.Reason = ""
	return &tx, nil
}
