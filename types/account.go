package types

import (
	"github.com/holiman/uint256"
)

type Account struct {
	Address string       `json:"address"`
	Balance *uint256.Int `json:"balance"`
	History []string     `json:"history"` // tx hashes
}

type SnapshotAccount struct {
	Balance *uint256.Int `json:"balance"`
}
