package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// Ledger owns all wallet and wallet-transaction mutations. Every primitive
// runs as one atomic transaction against the store, rejects a reused
// reference, and leaves zero partial entries on failure.
type Ledger struct {
	store          repository.Store
	commissionRate float64
	log            *logrus.Logger
}

// NewLedger creates a new Ledger. commissionRate is the platform's share of
// each settled fare, in [0, 1].
func NewLedger(store repository.Store, commissionRate float64, log *logrus.Logger) *Ledger {
	return &Ledger{
		store:          store,
		commissionRate: commissionRate,
		log:            log,
	}
}

// CreateWallet provisions a wallet for an owner. One wallet per
// (owner, ownerType); a second create is rejected as a duplicate.
func (l *Ledger) CreateWallet(ctx context.Context, ownerID string, ownerType domain.OwnerType, currency string) (*domain.Wallet, error) {
	if ownerID == "" {
		return nil, errorf(KindValidation, "owner id is required")
	}
	if currency == "" {
		currency = "USD"
	}

	now := time.Now()
	wallet := &domain.Wallet{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		OwnerType: ownerType,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := l.store.Wallets().Create(ctx, wallet); err != nil {
		return nil, fromRepository(err)
	}
	return wallet, nil
}

// GetWallet retrieves the wallet for (ownerID, ownerType).
func (l *Ledger) GetWallet(ctx context.Context, ownerID string, ownerType domain.OwnerType) (*domain.Wallet, error) {
	wallet, err := l.store.Wallets().GetByOwner(ctx, ownerID, ownerType)
	if err != nil {
		return nil, fromRepository(err)
	}
	return wallet, nil
}

// Statement returns a wallet's ledger entries in commit order.
func (l *Ledger) Statement(ctx context.Context, walletID string) ([]*domain.WalletTransaction, error) {
	txs, err := l.store.WalletTransactions().ListByWallet(ctx, walletID)
	if err != nil {
		return nil, fromRepository(err)
	}
	return txs, nil
}

// Credit increments a wallet's spendable balance.
func (l *Ledger) Credit(ctx context.Context, walletID string, amount int64, reference, description string) (*domain.WalletTransaction, error) {
	return l.single(ctx, walletID, entrySpec{
		Type:         domain.TransactionTypeCredit,
		Amount:       amount,
		BalanceDelta: amount,
		Reference:    reference,
		Description:  description,
	})
}

// Debit decrements a wallet's spendable balance, failing when the balance
// cannot cover the amount.
func (l *Ledger) Debit(ctx context.Context, walletID string, amount int64, reference, description string) (*domain.WalletTransaction, error) {
	return l.single(ctx, walletID, entrySpec{
		Type:         domain.TransactionTypeDebit,
		Amount:       amount,
		BalanceDelta: -amount,
		Reference:    reference,
		Description:  description,
	})
}

// Hold moves funds from spendable to locked balance against a trip.
func (l *Ledger) Hold(ctx context.Context, walletID string, amount int64, reference, rideID string) (*domain.WalletTransaction, error) {
	return l.single(ctx, walletID, entrySpec{
		Type:         domain.TransactionTypeHold,
		Amount:       amount,
		BalanceDelta: -amount,
		LockedDelta:  amount,
		Reference:    reference,
		RideID:       rideID,
		Description:  fmt.Sprintf("fare hold for trip %s", rideID),
	})
}

// Release returns previously held funds to the owner's spendable balance.
func (l *Ledger) Release(ctx context.Context, walletID string, amount int64, reference, rideID string) (*domain.WalletTransaction, error) {
	return l.single(ctx, walletID, entrySpec{
		Type:         domain.TransactionTypeRelease,
		Amount:       amount,
		BalanceDelta: amount,
		LockedDelta:  -amount,
		Reference:    reference,
		RideID:       rideID,
		Description:  fmt.Sprintf("hold release for trip %s", rideID),
	})
}

// Tip transfers a tip from the rider's wallet to the driver's, atomically.
// Only the ride's rider (or an admin on their behalf) may send one.
func (l *Ledger) Tip(ctx context.Context, ride *domain.Ride, actor domain.Actor, amount int64, reference string) error {
	if actor.Role != domain.RoleAdmin && actor.ID != ride.RiderID {
		return errorf(KindValidation, "%s %s may not tip on ride %s", actor.Role, actor.ID, ride.ID)
	}
	if amount <= 0 {
		return errorf(KindValidation, "tip amount must be positive")
	}
	if ride.DriverID == "" {
		return errorf(KindValidation, "ride has no driver to tip")
	}

	err := l.store.InTx(ctx, func(r repository.Repos) error {
		riderWallet, err := lockOwnerWallet(ctx, r, ride.RiderID, domain.OwnerTypeRider)
		if err != nil {
			return err
		}
		driverWallet, err := lockOwnerWallet(ctx, r, ride.DriverID, domain.OwnerTypeDriver)
		if err != nil {
			return err
		}

		if err := l.appendEntry(ctx, r, riderWallet, entrySpec{
			Type:         domain.TransactionTypeTip,
			Amount:       amount,
			BalanceDelta: -amount,
			Reference:    reference + ":out",
			RideID:       ride.ID,
			Description:  fmt.Sprintf("tip for trip %s", ride.ID),
		}); err != nil {
			return err
		}

		return l.appendEntry(ctx, r, driverWallet, entrySpec{
			Type:         domain.TransactionTypeTip,
			Amount:       amount,
			BalanceDelta: amount,
			Reference:    reference + ":in",
			RideID:       ride.ID,
			Description:  fmt.Sprintf("tip from trip %s", ride.ID),
		})
	})
	return fromRepository(err)
}

// Topup credits an owner's wallet on their own behalf.
func (l *Ledger) Topup(ctx context.Context, actor domain.Actor, ownerID string, ownerType domain.OwnerType, amount int64, reference string) (*domain.Wallet, error) {
	return l.ownerMove(ctx, actor, ownerID, ownerType, amount, reference, true)
}

// Withdraw debits an owner's wallet on their own behalf.
func (l *Ledger) Withdraw(ctx context.Context, actor domain.Actor, ownerID string, ownerType domain.OwnerType, amount int64, reference string) (*domain.Wallet, error) {
	return l.ownerMove(ctx, actor, ownerID, ownerType, amount, reference, false)
}

func (l *Ledger) ownerMove(ctx context.Context, actor domain.Actor, ownerID string, ownerType domain.OwnerType, amount int64, reference string, credit bool) (*domain.Wallet, error) {
	if err := authorizeOwner(actor, ownerID, ownerType); err != nil {
		return nil, err
	}

	wallet, err := l.GetWallet(ctx, ownerID, ownerType)
	if err != nil {
		return nil, err
	}

	if credit {
		_, err = l.Credit(ctx, wallet.ID, amount, reference, "wallet top-up")
	} else {
		_, err = l.Debit(ctx, wallet.ID, amount, reference, "wallet withdrawal")
	}
	if err != nil {
		return nil, err
	}
	return l.GetWallet(ctx, ownerID, ownerType)
}

// authorizeOwner allows an actor to move money in a wallet only when they
// own it; platform wallets answer to admins alone.
func authorizeOwner(actor domain.Actor, ownerID string, ownerType domain.OwnerType) error {
	if actor.Role == domain.RoleAdmin {
		return nil
	}
	switch ownerType {
	case domain.OwnerTypeRider:
		if actor.Role == domain.RoleRider && actor.ID == ownerID {
			return nil
		}
	case domain.OwnerTypeDriver:
		if actor.Role == domain.RoleDriver && actor.ID == ownerID {
			return nil
		}
	}
	return errorf(KindValidation, "%s %s may not operate the %s wallet of %s",
		actor.Role, actor.ID, ownerType, ownerID)
}

// SettlementResult describes what settlement did. Held means the fraud gate
// withheld the payout: no money moved and the ride awaits manual review.
type SettlementResult struct {
	RideID     string
	Held       bool
	LockedFare int64
	Payout     int64
	Commission int64
	Rate       float64
}

// Settle converts a completed trip's held fare into a driver payout and a
// platform commission, exactly once, in one transaction. force bypasses the
// fraud gate and requires the caller to have checked the actor's capability.
func (l *Ledger) Settle(ctx context.Context, rideID string, force bool) (*SettlementResult, error) {
	var result *SettlementResult

	err := l.store.InTx(ctx, func(r repository.Repos) error {
		ride, err := r.Rides().GetByID(ctx, rideID)
		if err != nil {
			return err
		}

		switch {
		case ride.Status != domain.RideStatusCompleted:
			return errorf(KindInvalidTransition, "ride %s is %s, only COMPLETED rides settle", rideID, ride.Status)
		case !ride.SettledAt.IsZero():
			return errorf(KindDuplicateOperation, "ride %s already settled", rideID)
		case ride.LockedFare <= 0:
			return errorf(KindValidation, "ride %s has no locked fare", rideID)
		case ride.DriverID == "":
			return errorf(KindValidation, "ride %s has no driver", rideID)
		}

		if ride.PayoutHeld && !force {
			review := true
			if _, err := r.Rides().UpdateWhere(ctx, rideID,
				repository.RideCondition{Status: domain.RideStatusCompleted},
				repository.RideChange{ReviewRequired: &review},
			); err != nil {
				return err
			}
			result = &SettlementResult{RideID: rideID, Held: true, LockedFare: ride.LockedFare}
			l.log.WithFields(logrus.Fields{
				"ride_id":     rideID,
				"fraud_score": ride.FraudScore,
			}).Warn("settlement withheld pending manual review")
			return nil
		}

		riderWallet, err := lockOwnerWallet(ctx, r, ride.RiderID, domain.OwnerTypeRider)
		if err != nil {
			return err
		}
		if riderWallet.LockedBalance < ride.LockedFare {
			return errorf(KindInsufficientFunds,
				"rider wallet holds %d, needs %d", riderWallet.LockedBalance, ride.LockedFare)
		}
		driverWallet, err := lockOwnerWallet(ctx, r, ride.DriverID, domain.OwnerTypeDriver)
		if err != nil {
			return err
		}
		platformWallet, err := lockOwnerWallet(ctx, r, platformOwnerID, domain.OwnerTypePlatform)
		if err != nil {
			return err
		}

		// Round the commission once; the payout is the exact remainder,
		// so payout + commission == lockedFare always.
		commission := int64(math.Round(float64(ride.LockedFare) * l.commissionRate))
		payout := ride.LockedFare - commission

		status := domain.RideStatusSettled
		now := time.Now()
		ok, err := r.Rides().UpdateWhere(ctx, rideID,
			repository.RideCondition{Status: domain.RideStatusCompleted, DriverID: ride.DriverID},
			repository.RideChange{
				Status:           &status,
				SettledAt:        &now,
				CommissionRate:   &l.commissionRate,
				CommissionAmount: &commission,
				PayoutAmount:     &payout,
			},
		)
		if err != nil {
			return err
		}
		if !ok {
			return errorf(KindConflict, "ride %s changed concurrently during settlement", rideID)
		}

		if err := l.appendEntry(ctx, r, riderWallet, entrySpec{
			Type:        domain.TransactionTypeRelease,
			Amount:      ride.LockedFare,
			LockedDelta: -ride.LockedFare,
			Reference:   fmt.Sprintf("settle:%s:release", rideID),
			RideID:      rideID,
			Description: fmt.Sprintf("fare settled for trip %s", rideID),
		}); err != nil {
			return err
		}
		if err := l.appendEntry(ctx, r, driverWallet, entrySpec{
			Type:         domain.TransactionTypePayout,
			Amount:       payout,
			BalanceDelta: payout,
			Reference:    fmt.Sprintf("settle:%s:payout", rideID),
			RideID:       rideID,
			Description:  fmt.Sprintf("driver payout for trip %s", rideID),
		}); err != nil {
			return err
		}
		if err := l.appendEntry(ctx, r, platformWallet, entrySpec{
			Type:         domain.TransactionTypeCommission,
			Amount:       commission,
			BalanceDelta: commission,
			Reference:    fmt.Sprintf("settle:%s:commission", rideID),
			RideID:       rideID,
			Description:  fmt.Sprintf("platform commission for trip %s", rideID),
		}); err != nil {
			return err
		}

		if err := r.Drivers().IncrementTrips(ctx, ride.DriverID); err != nil {
			return err
		}

		if err := r.StatusEvents().Append(ctx, &domain.StatusEvent{
			ID:         uuid.New().String(),
			RideID:     rideID,
			Status:     domain.RideStatusSettled,
			ActorID:    "ledger",
			ActorRole:  domain.RoleAdmin,
			OccurredAt: now,
		}); err != nil {
			return err
		}

		result = &SettlementResult{
			RideID:     rideID,
			LockedFare: ride.LockedFare,
			Payout:     payout,
			Commission: commission,
			Rate:       l.commissionRate,
		}
		return nil
	})
	if err != nil {
		return nil, fromRepository(err)
	}

	if !result.Held {
		l.log.WithFields(logrus.Fields{
			"ride_id":    result.RideID,
			"payout":     result.Payout,
			"commission": result.Commission,
		}).Info("trip settled")
	}
	return result, nil
}

// HoldForTrip places the fare hold inside the caller's transaction. Used by
// the state machine when a trip enters IN_PROGRESS so the hold and the
// status change commit or abort together.
func (l *Ledger) HoldForTrip(ctx context.Context, r repository.Repos, ride *domain.Ride, amount int64) error {
	wallet, err := lockOwnerWallet(ctx, r, ride.RiderID, domain.OwnerTypeRider)
	if err != nil {
		return err
	}
	return l.appendEntry(ctx, r, wallet, entrySpec{
		Type:         domain.TransactionTypeHold,
		Amount:       amount,
		BalanceDelta: -amount,
		LockedDelta:  amount,
		Reference:    fmt.Sprintf("hold:%s", ride.ID),
		RideID:       ride.ID,
		Description:  fmt.Sprintf("fare hold for trip %s", ride.ID),
	})
}

// ReleaseOnCancel undoes a trip's hold inside the caller's transaction:
// the refund portion returns to the rider's spendable balance and any
// penalty is credited to the driver as cancellation compensation.
func (l *Ledger) ReleaseOnCancel(ctx context.Context, r repository.Repos, ride *domain.Ride, split PenaltySplit) error {
	riderWallet, err := lockOwnerWallet(ctx, r, ride.RiderID, domain.OwnerTypeRider)
	if err != nil {
		return err
	}

	if err := l.appendEntry(ctx, r, riderWallet, entrySpec{
		Type:         domain.TransactionTypeRelease,
		Amount:       ride.LockedFare,
		BalanceDelta: split.RefundAmount,
		LockedDelta:  -ride.LockedFare,
		Reference:    fmt.Sprintf("cancel:%s:release", ride.ID),
		RideID:       ride.ID,
		Description:  fmt.Sprintf("cancellation refund for trip %s", ride.ID),
	}); err != nil {
		return err
	}

	if split.PenaltyAmount > 0 && ride.DriverID != "" {
		driverWallet, err := lockOwnerWallet(ctx, r, ride.DriverID, domain.OwnerTypeDriver)
		if err != nil {
			return err
		}
		return l.appendEntry(ctx, r, driverWallet, entrySpec{
			Type:         domain.TransactionTypeCredit,
			Amount:       split.PenaltyAmount,
			BalanceDelta: split.PenaltyAmount,
			Reference:    fmt.Sprintf("cancel:%s:penalty", ride.ID),
			RideID:       ride.ID,
			Description:  fmt.Sprintf("cancellation compensation for trip %s", ride.ID),
		})
	}
	return nil
}

// platformOwnerID is the fixed owner of the platform revenue wallet.
const platformOwnerID = "platform"

// EnsurePlatformWallet creates the platform wallet if it does not exist.
func (l *Ledger) EnsurePlatformWallet(ctx context.Context, currency string) error {
	_, err := l.store.Wallets().GetByOwner(ctx, platformOwnerID, domain.OwnerTypePlatform)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fromRepository(err)
	}
	_, err = l.CreateWallet(ctx, platformOwnerID, domain.OwnerTypePlatform, currency)
	return err
}

// entrySpec describes one ledger entry to append.
type entrySpec struct {
	Type         domain.TransactionType
	Amount       int64
	BalanceDelta int64
	LockedDelta  int64
	Reference    string
	RideID       string
	Description  string
}

// single wraps one entry in its own transaction, locking the wallet first.
func (l *Ledger) single(ctx context.Context, walletID string, spec entrySpec) (*domain.WalletTransaction, error) {
	if spec.Amount <= 0 {
		return nil, errorf(KindValidation, "amount must be positive")
	}

	var entry *domain.WalletTransaction
	err := l.store.InTx(ctx, func(r repository.Repos) error {
		wallet, err := r.Wallets().GetByIDForUpdate(ctx, walletID)
		if err != nil {
			return err
		}
		entry, err = l.append(ctx, r, wallet, spec)
		return err
	})
	if err != nil {
		return nil, fromRepository(err)
	}
	return entry, nil
}

func (l *Ledger) appendEntry(ctx context.Context, r repository.Repos, wallet *domain.Wallet, spec entrySpec) error {
	_, err := l.append(ctx, r, wallet, spec)
	return err
}

// append validates and applies one entry against an already-locked wallet.
// The wallet invariants are checked here under the row lock; the store's
// conditional update is only a backstop.
func (l *Ledger) append(ctx context.Context, r repository.Repos, wallet *domain.Wallet, spec entrySpec) (*domain.WalletTransaction, error) {
	if spec.Reference == "" {
		return nil, errorf(KindValidation, "reference is required")
	}

	existing, err := r.WalletTransactions().GetByReference(ctx, spec.Reference)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errorf(KindDuplicateOperation, "reference %s already applied", spec.Reference)
	}

	if spec.BalanceDelta < 0 && wallet.Balance < -spec.BalanceDelta {
		return nil, errorf(KindInsufficientFunds,
			"wallet %s balance %d cannot cover %d", wallet.ID, wallet.Balance, -spec.BalanceDelta)
	}
	if spec.LockedDelta < 0 && wallet.LockedBalance < -spec.LockedDelta {
		return nil, errorf(KindInsufficientFunds,
			"wallet %s locked balance %d cannot release %d", wallet.ID, wallet.LockedBalance, -spec.LockedDelta)
	}

	if err := r.Wallets().ApplyDeltas(ctx, wallet.ID, spec.BalanceDelta, spec.LockedDelta); err != nil {
		return nil, err
	}

	entry := &domain.WalletTransaction{
		ID:           uuid.New().String(),
		WalletID:     wallet.ID,
		RideID:       spec.RideID,
		Type:         spec.Type,
		Amount:       spec.Amount,
		BalanceDelta: spec.BalanceDelta,
		LockedDelta:  spec.LockedDelta,
		Reference:    spec.Reference,
		Description:  spec.Description,
		CreatedAt:    time.Now(),
	}
	if err := r.WalletTransactions().Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// lockOwnerWallet resolves an owner's wallet and row-locks it.
func lockOwnerWallet(ctx context.Context, r repository.Repos, ownerID string, ownerType domain.OwnerType) (*domain.Wallet, error) {
	wallet, err := r.Wallets().GetByOwner(ctx, ownerID, ownerType)
	if err != nil {
		return nil, err
	}
	return r.Wallets().GetByIDForUpdate(ctx, wallet.ID)
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || errors.Is(err, ErrNotFound)
}
