package transaction

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"smc/common"
	"smc/errors"
	"smc/jsonx"
	"smc/logx"

	"github.com/holiman/uint256"
	"github.com/mr-tron/base58"
)

// TxState tracks a transaction through its lifecycle. A transaction is
// broadcastable only once Signed, and becomes Applied exactly once.
type TxState int32

const (
	TxStateCreated TxState = iota
	TxStateSigned
	TxStatePublished
	TxStateApplied
	TxStateRejected
)

func (s TxState) String() string {
	switch s {
	case TxStateCreated:
		return "created"
	case TxStateSigned:
		return "signed"
	case TxStatePublished:
		return "published"
	case TxStateApplied:
		return "applied"
	case TxStateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Limits to prevent DoS via oversized inputs
const (
	MaxTextDataLen         = 512
	maxSignatureBase58Len  = 2048
	maxSignatureDecodedLen = 4096
)

// Transaction is a transfer of finks between two addresses. The content
// fields are fixed at build time; only the signature slot and the lifecycle
// state mutate afterwards.
type Transaction struct {
	Sender    string       `json:"sender"`
	Recipient string       `json:"recipient"`
	Amount    *uint256.Int `json:"amount"`
	Timestamp uint64       `json:"timestamp"`
	TextData  string       `json:"text_data"`
	Nonce     uint64       `json:"nonce"`
	TxHash    string       `json:"hash"`
	PubKey    string       `json:"pub_key,omitempty"`
	Signature string       `json:"signature,omitempty"`
	State     TxState      `json:"state"`
	Reason    string       `json:"reason,omitempty"`
}

// Build constructs an unsigned transaction in state Created. The nonce is
// drawn from the OS rng so two otherwise identical transfers hash
// differently; replay identity is the hash itself.
func Build(sender, recipient string, amount *uint256.Int, textData string, timestamp uint64) (*Transaction, error) {
	if amount == nil || amount.IsZero() {
		return nil, errors.ErrInvalidAmount
	}
	if !common.IsValidAddress(sender) || !common.IsValidAddress(recipient) {
		return nil, errors.ErrInvalidAddress
	}
	if len(textData) > MaxTextDataLen {
		return nil, errors.NewError(errors.ErrCodeTextTooLong, fmt.Sprintf("text data exceeds %d bytes", MaxTextDataLen))
	}

	nonce, err := randomNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to draw nonce: %w", err)
	}

	tx := &Transaction{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount.Clone(),
		Timestamp: timestamp,
		TextData:  textData,
		Nonce:     nonce,
		State:     TxStateCreated,
	}
	tx.TxHash = tx.Hash()
	return tx, nil
}

// Serialize returns the canonical byte form the hash and signature are
// computed over. The signature and public key are deliberately excluded so
// re-hashing after signing yields the same value.
func (tx *Transaction) Serialize() []byte {
	amountStr := uint256ToString(tx.Amount)
	metadata := fmt.Sprintf(
		"%s|%s|%s|%s|%d|%d",
		tx.Sender, tx.Recipient, amountStr, tx.TextData, tx.Timestamp, tx.Nonce,
	)
	return []byte(metadata)
}

// HashBytes computes the content hash over the canonical serialization.
func (tx *Transaction) HashBytes() [32]byte {
	return sha256.Sum256(tx.Serialize())
}

// Hash returns the hex-encoded content hash.
func (tx *Transaction) Hash() string {
	sum256 := tx.HashBytes()
	return hex.EncodeToString(sum256[:])
}

// Sign attaches an ed25519 signature over the content hash and transitions
// Created -> Signed. The key must correspond to the sender address.
func (tx *Transaction) Sign(priv ed25519.PrivateKey) error {
	if tx.Signature != "" || tx.State != TxStateCreated {
		return errors.ErrAlreadySigned
	}
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok || common.AddressFromPubKey(pub) != tx.Sender {
		return errors.ErrKeyMismatch
	}

	sum := tx.HashBytes()
	sig := ed25519.Sign(priv, sum[:])
	tx.PubKey = common.EncodeBytesToBase58(pub)
	tx.Signature = common.EncodeBytesToBase58(sig)
	tx.State = TxStateSigned
	return nil
}

// Verify checks the attached signature against the sender's public key. It
// is pure: no state is mutated. A transaction whose recomputed hash differs
// from its stored hash fails verification (tamper detection), as does one
// whose embedded public key does not derive the sender address.
func (tx *Transaction) Verify() bool {
	if tx.Signature == "" || tx.PubKey == "" {
		logx.Error("TransactionVerify", "missing signature")
		return false
	}

	if len(tx.Signature) > maxSignatureBase58Len {
		logx.Error("TransactionVerify", "signature too large")
		return false
	}

	// Decoded transactions bypass Build, so the content bounds are enforced
	// here too before any state is touched.
	if len(tx.TextData) > MaxTextDataLen {
		logx.Error("TransactionVerify", "text data too large")
		return false
	}

	if tx.Hash() != tx.TxHash {
		logx.Error("TransactionVerify", "stored hash does not match content")
		return false
	}

	pubBytes, err := common.DecodeBase58ToBytes(tx.PubKey)
	if err != nil || len(pubBytes) != ed25519.PublicKeySize {
		logx.Error("TransactionVerify", "failed to decode public key")
		return false
	}
	if common.AddressFromPubKey(ed25519.PublicKey(pubBytes)) != tx.Sender {
		logx.Error("TransactionVerify", "public key does not derive sender address")
		return false
	}

	signature, err := common.DecodeBase58ToBytes(tx.Signature)
	if err != nil {
		logx.Error("TransactionVerify", "failed to decode signature", err)
		return false
	}
	if len(signature) > maxSignatureDecodedLen {
		logx.Error("TransactionVerify", "decoded signature too large")
		return false
	}

	sum := tx.HashBytes()
	return ed25519.Verify(ed25519.PublicKey(pubBytes), sum[:], signature)
}

// MarkPublished transitions Signed -> Published when the transaction enters
// the validation pipeline.
func (tx *Transaction) MarkPublished() {
	if tx.State == TxStateSigned {
		tx.State = TxStatePublished
	}
}

// MarkApplied transitions to the terminal Applied state.
func (tx *Transaction) MarkApplied() {
	tx.State = TxStateApplied
	tx.Reason = ""
}

// MarkRejected transitions to the terminal Rejected state with a reason.
func (tx *Transaction) MarkRejected(reason string) {
	tx.State = TxStateRejected
	tx.Reason = reason
}

func (tx *Transaction) Bytes() []byte {
	b, _ := jsonx.Marshal(tx)
	return b
}

// DedupHash is a compact base58 form of the content hash used by the dedup
// caches.
func (tx *Transaction) DedupHash() string {
	sum256 := tx.HashBytes()
	return base58.Encode(sum256[:])
}

func randomNonce() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// uint256ToString converts a *uint256.Int to string, returning "0" if nil
func uint256ToString(value *uint256.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}
