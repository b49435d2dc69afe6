package events

import (
	"time"

	"smc/transaction"
)

// EventType is an enum-like string type for ledger events
type EventType string

const (
	EventTransactionCreated   EventType = "TransactionCreated"
	EventTransactionSigned    EventType = "TransactionSigned"
	EventTransactionPublished EventType = "TransactionPublished"
	EventTransactionApplied   EventType = "TransactionApplied"
	EventTransactionFailed    EventType = "TransactionFailed"
)

// LedgerEvent represents any event that occurs in the transaction lifecycle
type LedgerEvent interface {
	Type() EventType
	Timestamp() time.Time
	TxHash() string
}

// TransactionLifecycle is the common shape of events carrying a transaction
type TransactionLifecycle struct {
	eventType EventType
	txHash    string
	tx        *transaction.Transaction
	timestamp time.Time
}

func newLifecycleEvent(eventType EventType, tx *transaction.Transaction) *TransactionLifecycle {
	return &TransactionLifecycle{
		eventType: eventType,
		txHash:    tx.Hash(),
		tx:        tx,
		timestamp: time.Now(),
	}
}

func NewTransactionCreated(tx *transaction.Transaction) *TransactionLifecycle {
	return newLifecycleEvent(EventTransactionCreated, tx)
}

func NewTransactionSigned(tx *transaction.Transaction) *TransactionLifecycle {
	return newLifecycleEvent(EventTransactionSigned, tx)
}

func NewTransactionPublished(tx *transaction.Transaction) *TransactionLifecycle {
	return newLifecycleEvent(EventTransactionPublished, tx)
}

func NewTransactionApplied(tx *transaction.Transaction) *TransactionLifecycle {
	return newLifecycleEvent(EventTransactionApplied, tx)
}

func (e *TransactionLifecycle) Type() EventType {
	return e.eventType
}

func (e *TransactionLifecycle) Timestamp() time.Time {
	return e.timestamp
}

func (e *TransactionLifecycle) TxHash() string {
	return e.txHash
}

func (e *TransactionLifecycle) Transaction() *transaction.Transaction {
	return e.tx
}

// TransactionFailed event when a transaction is rejected by the pipeline
type TransactionFailed struct {
	txHash    string
	tx        *transaction.Transaction
	reason    string
	timestamp time.Time
}

func NewTransactionFailed(tx *transaction.Transaction, reason string) *TransactionFailed {
	txHash := ""
	if tx != nil {
		txHash = tx.Hash()
	}
	return &TransactionFailed{
		txHash:    txHash,
		tx:        tx,
		reason:    reason,
		timestamp: time.Now(),
	}
}

func (e *TransactionFailed) Type() EventType {
	return EventTransactionFailed
}

func (e *TransactionFailed) Timestamp() time.Time {
	return e.timestamp
}

func (e *TransactionFailed) TxHash() string {
	return e.txHash
}

func (e *TransactionFailed) Transaction() *transaction.Transaction {
	return e.tx
}

func (e *TransactionFailed) Reason() string {
	return e.reason
}
