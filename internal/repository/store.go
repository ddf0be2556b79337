package repository

import "context"

// Repos bundles the repositories bound to one storage scope, either the
// base connection or a single transaction.
type Repos interface {
	Rides() RideRepository
	Drivers() DriverRepository
	Wallets() WalletRepository
	WalletTransactions() WalletTransactionRepository
	StatusEvents() StatusEventRepository
	Users() UserRepository
}

// Store is the transactional boundary every mutating core operation runs
// inside. Each InTx call is one bounded, all-or-nothing transaction; a
// serialization conflict or timeout surfaces as ErrSerialization so the
// caller can decide whether to retry.
type Store interface {
	Repos

	// InTx runs fn inside a read-committed transaction.
	InTx(ctx context.Context, fn func(r Repos) error) error

	// InSerializableTx runs fn inside a serializable transaction. Used by
	// the matching engine, which must observe a stable candidate set.
	InSerializableTx(ctx context.Context, fn func(r Repos) error) error
}
