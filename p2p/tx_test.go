package p2p

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"smc/common"
	"smc/jsonx"
	"smc/transaction"
)

func signedTx(t *testing.T) *transaction.Transaction {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	recipientPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	tx, err := transaction.Build(
		common.AddressFromPubKey(pub),
		common.AddressFromPubKey(recipientPub),
		uint256.NewInt(400000),
		"gossip",
		uint64(time.Now().Unix()),
	)
	require.NoError(t, err)
	require.NoError(t, tx.Sign(priv))
	return tx
}

func TestDecodeTxMessage(t *testing.T) {
	tx := signedTx(t)

	wire, err := jsonx.Marshal(TxMessage{Data: tx.Bytes()})
	require.NoError(t, err)

	got, err := decodeTxMessage(wire)
	require.NoError(t, err)
	require.Equal(t, tx.Hash(), got.Hash())
	require.True(t, got.Verify(), "signature must survive the wire round trip")
}

func TestDecodeTxMessageNormalizesLifecycleState(t *testing.T) {
	tx := signedTx(t)

	// A peer is free to claim any state in the payload; the decode resets
	// it to what the signature actually covers.
	tx.State = transaction.TxStateApplied
	tx.Reason = "whatever"
	wire, err := jsonx.Marshal(TxMessage{Data: tx.Bytes()})
	require.NoError(t, err)

	got, err := decodeTxMessage(wire)
	require.NoError(t, err)
	require.Equal(t, transaction.TxStateSigned, got.State)
	require.Empty(t, got.Reason)

	// Without a signature the decode lands in Created and the pipeline's
	// entrance gate takes over.
	unsigned := *tx
	unsigned.Signature = ""
	unsigned.PubKey = ""
	wire, err = jsonx.Marshal(TxMessage{Data: unsigned.Bytes()})
	require.NoError(t, err)

	got, err = decodeTxMessage(wire)
	require.NoError(t, err)
	require.Equal(t, transaction.TxStateCreated, got.State)
}

func TestDecodeTxMessageRejectsGarbage(t *testing.T) {
	_, err := decodeTxMessage([]byte("not json"))
	require.Error(t, err)
}

func TestDecodeTxMessageRejectsBadPayload(t *testing.T) {
	wire, err := jsonx.Marshal(TxMessage{Data: []byte("{broken")})
	require.NoError(t, err)

	_, err = decodeTxMessage(wire)
	require.Error(t, err)
}
