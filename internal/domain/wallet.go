package domain

import "time"

// OwnerType distinguishes whose money a wallet holds.
type OwnerType string

const (
	OwnerTypeRider    OwnerType = "RIDER"
	OwnerTypeDriver   OwnerType = "DRIVER"
	OwnerTypePlatform OwnerType = "PLATFORM"
)

// Wallet holds an owner's funds. Balance is spendable; LockedBalance is
// reserved against in-flight trips and not spendable. Both are in minor
// currency units (cents) and never go negative.
type Wallet struct {
	ID            string
	OwnerID       string
	OwnerType     OwnerType
	Balance       int64
	LockedBalance int64
	Currency      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TransactionType labels a wallet ledger entry.
type TransactionType string

const (
	TransactionTypeCredit     TransactionType = "CREDIT"
	TransactionTypeDebit      TransactionType = "DEBIT"
	TransactionTypeHold       TransactionType = "HOLD"
	TransactionTypeRelease    TransactionType = "RELEASE"
	TransactionTypeCommission TransactionType = "COMMISSION"
	TransactionTypePayout     TransactionType = "PAYOUT"
	TransactionTypeTip        TransactionType = "TIP"
)

// WalletTransaction is an append-only ledger entry. BalanceDelta and
// LockedDelta record exactly how the entry moved the wallet's two balances,
// so the wallet state at any instant is the fold of its entries in commit
// order. Reference is globally unique and doubles as the idempotency key.
type WalletTransaction struct {
	ID           string
	WalletID     string
	RideID       string // empty for entries not tied to a trip
	Type         TransactionType
	Amount       int64
	BalanceDelta int64
	LockedDelta  int64
	Reference    string
	Description  string
	CreatedAt    time.Time
}
