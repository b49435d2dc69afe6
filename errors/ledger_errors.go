package errors

import (
	"smc/jsonx"
)

// LedgerErrorCode represents standardized error codes for ledger and account operations
type LedgerErrorCode string

const (
	// General errors
	ErrCodeInternal LedgerErrorCode = "internal_error"

	// Account errors
	ErrCodeAccountNotFound   LedgerErrorCode = "account_not_found"
	ErrCodeAccountExisted    LedgerErrorCode = "account_existed"
	ErrCodeAlreadyLocked     LedgerErrorCode = "already_locked"
	ErrCodeNotLocked         LedgerErrorCode = "not_locked"
	ErrCodeInvalidPassphrase LedgerErrorCode = "invalid_passphrase"

	// Transaction errors
	ErrCodeInvalidAmount        LedgerErrorCode = "invalid_amount"
	ErrCodeInvalidAddress       LedgerErrorCode = "invalid_address"
	ErrCodeTextTooLong          LedgerErrorCode = "text_too_long"
	ErrCodeAlreadySigned        LedgerErrorCode = "already_signed"
	ErrCodeKeyMismatch          LedgerErrorCode = "key_mismatch"
	ErrCodeNotSigned            LedgerErrorCode = "not_signed"
	ErrCodeInvalidSignature     LedgerErrorCode = "invalid_signature"
	ErrCodeDuplicateTransaction LedgerErrorCode = "duplicate_transaction"
	ErrCodeInsufficientFunds    LedgerErrorCode = "insufficient_funds"
	ErrCodeSelfTransfer         LedgerErrorCode = "self_transfer"
	ErrCodeTransactionNotFound  LedgerErrorCode = "transaction_not_found"

	// System errors
	ErrCodeMempoolFull LedgerErrorCode = "mempool_full"
)

// LedgerError represents a standardized error rejected back to the caller.
// Rejections are recoverable: they fail one operation without touching state.
type LedgerError struct {
	Code    LedgerErrorCode `json:"code"`
	Message string          `json:"message"`
}

// Error implements the error interface
func (e *LedgerError) Error() string {
	err, _ := jsonx.Marshal(LedgerError{
		Code:    e.Code,
		Message: e.Message,
	})
	return string(err)
}

// Error message constants - user-friendly and concise
const (
	ErrMsgInternal             = "Server error, please try again"
	ErrMsgAccountNotFound      = "Account does not exist"
	ErrMsgAccountExisted       = "Account already exists"
	ErrMsgAlreadyLocked        = "Account key is already locked"
	ErrMsgNotLocked            = "Account key is not locked"
	ErrMsgInvalidPassphrase    = "Passphrase is invalid"
	ErrMsgInvalidAmount        = "Amount is invalid or zero"
	ErrMsgInvalidAddress       = "Address is invalid"
	ErrMsgAlreadySigned        = "Transaction is already signed"
	ErrMsgKeyMismatch          = "Key does not belong to the sender address"
	ErrMsgNotSigned            = "Transaction is not signed"
	ErrMsgInvalidSignature     = "Transaction signature is invalid"
	ErrMsgDuplicateTransaction = "This transaction already exists"
	ErrMsgInsufficientFunds    = "Not enough balance in the sender account"
	ErrMsgSelfTransfer         = "Self transfers are disabled on this node"
	ErrMsgTransactionNotFound  = "Transaction could not be found"
	ErrMsgMempoolFull          = "Node is busy, please try again"
)

// NewError creates a new LedgerError and returns it as error interface
func NewError(code LedgerErrorCode, message string) error {
	return &LedgerError{
		Code:    code,
		Message: message,
	}
}

// CodeOf extracts the LedgerErrorCode from an error, or ErrCodeInternal
// when the error is not a LedgerError.
func CodeOf(err error) LedgerErrorCode {
	if le, ok := err.(*LedgerError); ok {
		return le.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err is a LedgerError carrying the given code.
func IsCode(err error, code LedgerErrorCode) bool {
	le, ok := err.(*LedgerError)
	return ok && le.Code == code
}

// Predefined rejections for the validation pipeline and account manager.
var (
	ErrAccountNotFound      = NewError(ErrCodeAccountNotFound, ErrMsgAccountNotFound)
	ErrAccountExisted       = NewError(ErrCodeAccountExisted, ErrMsgAccountExisted)
	ErrAlreadyLocked        = NewError(ErrCodeAlreadyLocked, ErrMsgAlreadyLocked)
	ErrNotLocked            = NewError(ErrCodeNotLocked, ErrMsgNotLocked)
	ErrInvalidPassphrase    = NewError(ErrCodeInvalidPassphrase, ErrMsgInvalidPassphrase)
	ErrInvalidAmount        = NewError(ErrCodeInvalidAmount, ErrMsgInvalidAmount)
	ErrInvalidAddress       = NewError(ErrCodeInvalidAddress, ErrMsgInvalidAddress)
	ErrAlreadySigned        = NewError(ErrCodeAlreadySigned, ErrMsgAlreadySigned)
	ErrKeyMismatch          = NewError(ErrCodeKeyMismatch, ErrMsgKeyMismatch)
	ErrNotSigned            = NewError(ErrCodeNotSigned, ErrMsgNotSigned)
	ErrInvalidSignature     = NewError(ErrCodeInvalidSignature, ErrMsgInvalidSignature)
	ErrDuplicateTransaction = NewError(ErrCodeDuplicateTransaction, ErrMsgDuplicateTransaction)
	ErrInsufficientFunds    = NewError(ErrCodeInsufficientFunds, ErrMsgInsufficientFunds)
	ErrSelfTransfer         = NewError(ErrCodeSelfTransfer, ErrMsgSelfTransfer)
	ErrTransactionNotFound  = NewError(ErrCodeTransactionNotFound, ErrMsgTransactionNotFound)
	ErrMempoolFull          = NewError(ErrCodeMempoolFull, ErrMsgMempoolFull)
)
