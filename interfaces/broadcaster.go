package interfaces

import (
	"context"

	"smc/transaction"
)

// Broadcaster publishes an applied transaction to the rest of the network.
type Broadcaster interface {
	TxBroadcast(ctx context.Context, tx *transaction.Transaction) error
}
