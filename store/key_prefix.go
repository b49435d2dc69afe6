package store

// Declare database key prefix for objects
const (
	PrefixAccount = "account:"

	PrefixTx        = "tx:"
	PrefixApplied   = "applied:"
	StateKeyGenesis = "state:genesis"
)
