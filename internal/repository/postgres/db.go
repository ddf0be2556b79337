package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ridehail/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
)

// translateErr maps driver-level failures onto the repository error set.
func translateErr(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", repository.ErrDuplicate, pqErr.Constraint)
		case pqSerializationFailure:
			return fmt.Errorf("%w: %v", repository.ErrSerialization, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", repository.ErrSerialization, err)
	}

	return err
}

// Store is the PostgreSQL implementation of repository.Store. All
// transactions it opens are bounded by the configured timeout.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

// NewStore creates a new PostgreSQL store.
func NewStore(db *sql.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Store{db: db, timeout: timeout}
}

// repos binds all repositories to one Querier.
type repos struct {
	q Querier
}

func (r repos) Rides() repository.RideRepository                      { return &RideRepository{q: r.q} }
func (r repos) Drivers() repository.DriverRepository                  { return &DriverRepository{q: r.q} }
func (r repos) Wallets() repository.WalletRepository                  { return &WalletRepository{q: r.q} }
func (r repos) WalletTransactions() repository.WalletTransactionRepository {
	return &WalletTransactionRepository{q: r.q}
}
func (r repos) StatusEvents() repository.StatusEventRepository { return &StatusEventRepository{q: r.q} }
func (r repos) Users() repository.UserRepository               { return &UserRepository{q: r.q} }

func (s *Store) Rides() repository.RideRepository     { return repos{q: s.db}.Rides() }
func (s *Store) Drivers() repository.DriverRepository { return repos{q: s.db}.Drivers() }
func (s *Store) Wallets() repository.WalletRepository { return repos{q: s.db}.Wallets() }
func (s *Store) WalletTransactions() repository.WalletTransactionRepository {
	return repos{q: s.db}.WalletTransactions()
}
func (s *Store) StatusEvents() repository.StatusEventRepository { return repos{q: s.db}.StatusEvents() }
func (s *Store) Users() repository.UserRepository               { return repos{q: s.db}.Users() }

// InTx runs fn inside one read-committed transaction.
func (s *Store) InTx(ctx context.Context, fn func(r repository.Repos) error) error {
	return s.run(ctx, sql.LevelReadCommitted, fn)
}

// InSerializableTx runs fn inside one serializable transaction.
func (s *Store) InSerializableTx(ctx context.Context, fn func(r repository.Repos) error) error {
	return s.run(ctx, sql.LevelSerializable, fn)
}

func (s *Store) run(ctx context.Context, level sql.IsolationLevel, fn func(r repository.Repos) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: level})
	if err != nil {
		return translateErr(err)
	}

	if err := fn(repos{q: tx}); err != nil {
		_ = tx.Rollback()
		return translateErr(err)
	}

	if err := tx.Commit(); err != nil {
		return translateErr(err)
	}

	return nil
}

var _ repository.Store = (*Store)(nil)
