package repository

import (
	"context"

	"ridehail/internal/domain"
)

// WalletRepository defines the persistence operations for wallets.
type WalletRepository interface {
	// Create persists a new wallet. Uniqueness on (owner_id, owner_type)
	// surfaces as ErrDuplicate.
	Create(ctx context.Context, wallet *domain.Wallet) error

	// GetByID retrieves a wallet by ID.
	GetByID(ctx context.Context, id string) (*domain.Wallet, error)

	// GetByOwner retrieves the wallet for (ownerID, ownerType).
	GetByOwner(ctx context.Context, ownerID string, ownerType domain.OwnerType) (*domain.Wallet, error)

	// GetByIDForUpdate retrieves a wallet and row-locks it for the
	// remainder of the enclosing transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Wallet, error)

	// ApplyDeltas adjusts balance and locked_balance by the given amounts.
	// The store enforces that neither balance goes negative.
	ApplyDeltas(ctx context.Context, id string, balanceDelta, lockedDelta int64) error
}

// WalletTransactionRepository defines persistence for ledger entries.
// Entries are append-only; there is no update or delete.
type WalletTransactionRepository interface {
	// Create appends a ledger entry. A reused reference surfaces as
	// ErrDuplicate.
	Create(ctx context.Context, tx *domain.WalletTransaction) error

	// GetByReference retrieves an entry by its idempotency reference.
	// Returns nil, nil when no entry exists.
	GetByReference(ctx context.Context, reference string) (*domain.WalletTransaction, error)

	// ListByWallet returns a wallet's entries in commit order.
	ListByWallet(ctx context.Context, walletID string) ([]*domain.WalletTransaction, error)
}
