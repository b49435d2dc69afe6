package validator

import (
	"fmt"

	"smc/errors"
	"smc/events"
	"smc/ledger"
	"smc/logx"
	"smc/mempool"
	"smc/monitoring"
	"smc/transaction"
)

// Pipeline runs every published transaction through a fixed sequence of
// checks before handing it to the ledger. Checks are ordered cheapest first
// and short-circuit: the first failure decides the rejection code.
//
//	signature present -> signature valid -> not a replay -> funds available
type Pipeline struct {
	ledger      *ledger.Ledger
	dedup       *mempool.DedupService
	eventRouter *events.EventRouter
}

func NewPipeline(ledger *ledger.Ledger, dedup *mempool.DedupService, eventRouter *events.EventRouter) *Pipeline {
	return &Pipeline{
		ledger:      ledger,
		dedup:       dedup,
		eventRouter: eventRouter,
	}
}

// ProcessLocal validates and applies a transaction submitted by a client of
// this node. Every failure is reported back to the submitter.
func (p *Pipeline) ProcessLocal(tx *transaction.Transaction) error {
	monitoring.IncreaseIngressTxCount()
	return p.process(tx, false)
}

// ProcessInbound validates and applies a transaction received from a peer.
// A transaction this node has already applied is acknowledged silently, so
// gossip echoes of our own broadcasts do not surface as errors.
func (p *Pipeline) ProcessInbound(tx *transaction.Transaction) error {
	monitoring.IncreaseReceivedTxCount()
	return p.process(tx, true)
}

func (p *Pipeline) process(tx *transaction.Transaction, silentReplay bool) error {
	if tx == nil {
		return errors.NewError(errors.ErrCodeInternal, "nil transaction")
	}

	if tx.Signature == "" || tx.State != transaction.TxStateSigned {
		return p.reject(tx, errors.ErrNotSigned)
	}
	if !tx.Verify() {
		return p.reject(tx, errors.ErrInvalidSignature)
	}

	txHash := tx.Hash()
	if p.ledger.HasApplied(txHash) {
		if silentReplay {
			logx.Debug("VALIDATOR", fmt.Sprintf("Ignoring already applied tx %s", txHash))
			return nil
		}
		return p.reject(tx, errors.ErrDuplicateTransaction)
	}

	// Claim the hash so a second copy arriving while this one is mid-apply
	// cannot race past the ledger's replay check.
	if p.dedup != nil && !p.dedup.MarkInFlight(txHash) {
		if silentReplay {
			return nil
		}
		return p.reject(tx, errors.ErrDuplicateTransaction)
	}

	tx.MarkPublished()
	if p.eventRouter != nil {
		p.eventRouter.PublishTransactionEvent(events.NewTransactionPublished(tx))
	}
	if err := p.ledger.Apply(tx); err != nil {
		if p.dedup != nil {
			p.dedup.Release(txHash)
		}
		return p.reject(tx, err)
	}
	return nil
}

func (p *Pipeline) reject(tx *transaction.Transaction, cause error) error {
	code := errors.CodeOf(cause)
	tx.MarkRejected(string(code))
	monitoring.RecordRejectedTx(rejectedReason(code))
	logx.Warn("VALIDATOR", fmt.Sprintf("Rejected tx %s: %s", tx.Hash(), code))
	if p.eventRouter != nil {
		p.eventRouter.PublishTransactionEvent(events.NewTransactionFailed(tx, string(code)))
	}
	return cause
}

func rejectedReason(code errors.LedgerErrorCode) monitoring.TxRejectedReason {
	switch code {
	case errors.ErrCodeNotSigned:
		return monitoring.TxNotSigned
	case errors.ErrCodeInvalidSignature:
		return monitoring.TxInvalidSignature
	case errors.ErrCodeDuplicateTransaction:
		return monitoring.TxDuplicated
	case errors.ErrCodeInsufficientFunds:
		return monitoring.TxInsufficientFunds
	case errors.ErrCodeSelfTransfer:
		return monitoring.TxSelfTransfer
	default:
		return monitoring.TxRejectedUnknown
	}
}
