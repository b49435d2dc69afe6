package common

import (
	"crypto/ed25519"

	"golang.org/x/crypto/blake2b"
)

// AddressSize is the length in bytes of a raw address (a blake2b-256 digest).
const AddressSize = blake2b.Size256

// AddressFromPubKey derives the account address for an ed25519 public key.
// The address is the base58-encoded blake2b-256 hash of the key, so the
// derivation is one-way and collision-resistant.
func AddressFromPubKey(pub ed25519.PublicKey) string {
	sum := blake2b.Sum256(pub)
	return EncodeBytesToBase58(sum[:])
}

// IsValidAddress reports whether s decodes to a raw address of the right size.
func IsValidAddress(s string) bool {
	b, err := DecodeBase58ToBytes(s)
	return err == nil && len(b) == AddressSize
}
