package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// WalletRepository is a PostgreSQL implementation of repository.WalletRepository.
type WalletRepository struct {
	q Querier
}

// NewWalletRepository creates a new PostgreSQL wallet repository.
func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{q: db}
}

const walletColumns = `id, owner_id, owner_type, balance, locked_balance, currency, created_at, updated_at`

// Create persists a new wallet. The unique index on (owner_id, owner_type)
// rejects a second wallet for the same owner.
func (r *WalletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	query := `
		INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		wallet.ID,
		wallet.OwnerID,
		wallet.OwnerType,
		wallet.Balance,
		wallet.LockedBalance,
		wallet.Currency,
		wallet.CreatedAt,
		wallet.UpdatedAt,
	)
	return translateErr(err)
}

// GetByID retrieves a wallet by ID.
func (r *WalletRepository) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return scanWallet(r.q.QueryRowContext(ctx, query, id))
}

// GetByOwner retrieves the wallet for (ownerID, ownerType).
func (r *WalletRepository) GetByOwner(ctx context.Context, ownerID string, ownerType domain.OwnerType) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_id = $1 AND owner_type = $2`
	return scanWallet(r.q.QueryRowContext(ctx, query, ownerID, ownerType))
}

// GetByIDForUpdate retrieves a wallet and row-locks it until the enclosing
// transaction ends, serializing concurrent mutations per wallet.
func (r *WalletRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	return scanWallet(r.q.QueryRowContext(ctx, query, id))
}

// ApplyDeltas adjusts the two balances. The WHERE guard is a backstop for
// the non-negative invariant already checked under the row lock.
func (r *WalletRepository) ApplyDeltas(ctx context.Context, id string, balanceDelta, lockedDelta int64) error {
	query := `
		UPDATE wallets
		SET balance = balance + $1,
		    locked_balance = locked_balance + $2,
		    updated_at = NOW()
		WHERE id = $3
		  AND balance + $1 >= 0
		  AND locked_balance + $2 >= 0
	`

	result, err := r.q.ExecContext(ctx, query, balanceDelta, lockedDelta, id)
	if err != nil {
		return translateErr(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanWallet(row rowScanner) (*domain.Wallet, error) {
	var wallet domain.Wallet
	err := row.Scan(
		&wallet.ID,
		&wallet.OwnerID,
		&wallet.OwnerType,
		&wallet.Balance,
		&wallet.LockedBalance,
		&wallet.Currency,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// WalletTransactionRepository is a PostgreSQL implementation of
// repository.WalletTransactionRepository. Rows are append-only.
type WalletTransactionRepository struct {
	q Querier
}

// NewWalletTransactionRepository creates a new PostgreSQL wallet transaction repository.
func NewWalletTransactionRepository(db *sql.DB) *WalletTransactionRepository {
	return &WalletTransactionRepository{q: db}
}

const walletTxColumns = `id, wallet_id, ride_id, type, amount, balance_delta, locked_delta, reference, description, created_at`

// Create appends a ledger entry. The unique index on reference turns a
// replayed operation into repository.ErrDuplicate.
func (r *WalletTransactionRepository) Create(ctx context.Context, tx *domain.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transactions (` + walletTxColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		tx.ID,
		tx.WalletID,
		nullString(tx.RideID),
		tx.Type,
		tx.Amount,
		tx.BalanceDelta,
		tx.LockedDelta,
		tx.Reference,
		tx.Description,
		tx.CreatedAt,
	)
	return translateErr(err)
}

// GetByReference retrieves an entry by its idempotency reference.
// Returns nil, nil when no entry exists.
func (r *WalletTransactionRepository) GetByReference(ctx context.Context, reference string) (*domain.WalletTransaction, error) {
	query := `SELECT ` + walletTxColumns + ` FROM wallet_transactions WHERE reference = $1`

	tx, err := scanWalletTx(r.q.QueryRowContext(ctx, query, reference))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return tx, err
}

// ListByWallet returns a wallet's entries in commit order.
func (r *WalletTransactionRepository) ListByWallet(ctx context.Context, walletID string) ([]*domain.WalletTransaction, error) {
	query := `SELECT ` + walletTxColumns + ` FROM wallet_transactions WHERE wallet_id = $1 ORDER BY created_at, id`

	rows, err := r.q.QueryContext(ctx, query, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*domain.WalletTransaction
	for rows.Next() {
		tx, err := scanWalletTx(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanWalletTx(row rowScanner) (*domain.WalletTransaction, error) {
	var tx domain.WalletTransaction
	var rideID sql.NullString

	err := row.Scan(
		&tx.ID,
		&tx.WalletID,
		&rideID,
		&tx.Type,
		&tx.Amount,
		&tx.BalanceDelta,
		&tx.LockedDelta,
		&tx.Reference,
		&tx.Description,
		&tx.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	tx.RideID = rideID.String
	return &tx, nil
}
