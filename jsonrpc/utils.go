package jsonrpc

import (
	"github.com/creachadair/jrpc2"

	"smc/errors"
)

// JSON-RPC application error codes, one per rejection family
const (
	codeInternal        jrpc2.Code = -32000
	codeNotFound        jrpc2.Code = -32001
	codeInvalidArgument jrpc2.Code = -32002
	codeRejected        jrpc2.Code = -32003
	codeLocked          jrpc2.Code = -32004
	codeBusy            jrpc2.Code = -32005
)

func rpcCode(code errors.LedgerErrorCode) jrpc2.Code {
	switch code {
	case errors.ErrCodeAccountNotFound, errors.ErrCodeTransactionNotFound:
		return codeNotFound
	case errors.ErrCodeInvalidAmount, errors.ErrCodeInvalidAddress, errors.ErrCodeTextTooLong:
		return codeInvalidArgument
	case errors.ErrCodeNotSigned, errors.ErrCodeInvalidSignature, errors.ErrCodeAlreadySigned,
		errors.ErrCodeKeyMismatch, errors.ErrCodeDuplicateTransaction,
		errors.ErrCodeInsufficientFunds, errors.ErrCodeSelfTransfer, errors.ErrCodeAccountExisted:
		return codeRejected
	case errors.ErrCodeAlreadyLocked, errors.ErrCodeNotLocked, errors.ErrCodeInvalidPassphrase:
		return codeLocked
	case errors.ErrCodeMempoolFull:
		return codeBusy
	default:
		return codeInternal
	}
}

// toRPCError converts a rejection into a jrpc2 error carrying the rejection
// code as structured data so clients can branch on it.
func toRPCError(err error) error {
	if err == nil {
		return nil
	}
	if le, ok := err.(*errors.LedgerError); ok {
		return jrpc2.Errorf(rpcCode(le.Code), "%s", le.Message).WithData(le)
	}
	return jrpc2.Errorf(codeInternal, "%s", errors.ErrMsgInternal)
}
