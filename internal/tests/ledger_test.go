package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

func TestLedger_CreditDebit(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.seedRider("rider-1", 0)

	if _, err := e.ledger.Credit(ctx, "wallet-rider-1", 1500, "topup-1", "wallet top-up"); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if _, err := e.ledger.Debit(ctx, "wallet-rider-1", 400, "withdraw-1", "wallet withdrawal"); err != nil {
		t.Fatalf("debit failed: %v", err)
	}

	if balance, _ := e.riderBalance("rider-1"); balance != 1100 {
		t.Fatalf("expected balance 1100, got %d", balance)
	}
}

func TestLedger_DuplicateReferenceRejected(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.seedRider("rider-1", 0)

	if _, err := e.ledger.Credit(ctx, "wallet-rider-1", 1000, "topup-1", ""); err != nil {
		t.Fatal(err)
	}

	_, err := e.ledger.Credit(ctx, "wallet-rider-1", 1000, "topup-1", "")
	if !errors.Is(err, service.ErrDuplicateOperation) {
		t.Fatalf("expected duplicate operation, got %v", err)
	}

	// Only the first credit landed.
	if balance, _ := e.riderBalance("rider-1"); balance != 1000 {
		t.Fatalf("expected balance 1000, got %d", balance)
	}
}

func TestLedger_DebitInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.seedRider("rider-1", 300)

	_, err := e.ledger.Debit(ctx, "wallet-rider-1", 500, "withdraw-1", "")
	if !errors.Is(err, service.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	if balance, _ := e.riderBalance("rider-1"); balance != 300 {
		t.Fatalf("balance must be unchanged, got %d", balance)
	}
}

func TestLedger_HoldAndRelease(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.seedRider("rider-1", 1000)

	if _, err := e.ledger.Hold(ctx, "wallet-rider-1", 600, "hold-1", "ride-x"); err != nil {
		t.Fatalf("hold failed: %v", err)
	}
	if balance, locked := e.riderBalance("rider-1"); balance != 400 || locked != 600 {
		t.Fatalf("expected 400/600 after hold, got %d/%d", balance, locked)
	}

	if _, err := e.ledger.Release(ctx, "wallet-rider-1", 600, "release-1", "ride-x"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if balance, locked := e.riderBalance("rider-1"); balance != 1000 || locked != 0 {
		t.Fatalf("expected 1000/0 after release, got %d/%d", balance, locked)
	}
}

func TestLedger_StatementFoldsToBalance(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.seedRider("rider-1", 0)

	_, _ = e.ledger.Credit(ctx, "wallet-rider-1", 2000, "ref-1", "")
	_, _ = e.ledger.Hold(ctx, "wallet-rider-1", 800, "ref-2", "ride-x")
	_, _ = e.ledger.Release(ctx, "wallet-rider-1", 300, "ref-3", "ride-x")
	_, _ = e.ledger.Debit(ctx, "wallet-rider-1", 100, "ref-4", "")

	txs, err := e.ledger.Statement(ctx, "wallet-rider-1")
	if err != nil {
		t.Fatal(err)
	}

	var balance, locked int64
	for _, tx := range txs {
		balance += tx.BalanceDelta
		locked += tx.LockedDelta
	}

	gotBalance, gotLocked := e.riderBalance("rider-1")
	if balance != gotBalance || locked != gotLocked {
		t.Fatalf("fold %d/%d does not match wallet %d/%d", balance, locked, gotBalance, gotLocked)
	}
}

func TestLedger_Tip(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.seedRider("rider-1", 1000)
	e.seedDriver("driver-1", 4.8)

	ride := &domain.Ride{ID: "ride-1", RiderID: "rider-1", DriverID: "driver-1"}
	if err := e.ledger.Tip(ctx, ride, riderActor("rider-1"), 250, "tip-1"); err != nil {
		t.Fatalf("tip failed: %v", err)
	}

	if balance, _ := e.riderBalance("rider-1"); balance != 750 {
		t.Fatalf("expected rider 750, got %d", balance)
	}
	if got := e.driverBalance("driver-1"); got != 250 {
		t.Fatalf("expected driver 250, got %d", got)
	}

	// A replayed tip is rejected and moves nothing.
	if err := e.ledger.Tip(ctx, ride, riderActor("rider-1"), 250, "tip-1"); !errors.Is(err, service.ErrDuplicateOperation) {
		t.Fatalf("expected duplicate operation, got %v", err)
	}
	if balance, _ := e.riderBalance("rider-1"); balance != 750 {
		t.Fatalf("duplicate tip moved money: %d", balance)
	}
}

func TestLedger_TipOnlyByRidesRider(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.seedRider("rider-1", 1000)
	e.seedRider("rider-2", 1000)
	e.seedDriver("driver-1", 4.8)

	ride := &domain.Ride{ID: "ride-1", RiderID: "rider-1", DriverID: "driver-1"}

	strangers := []domain.Actor{
		riderActor("rider-2"),
		driverActor("driver-1"),
		dispatcher,
	}
	for _, actor := range strangers {
		if err := e.ledger.Tip(ctx, ride, actor, 250, "tip-1"); !errors.Is(err, service.ErrValidation) {
			t.Errorf("%s %s: expected validation error, got %v", actor.Role, actor.ID, err)
		}
	}
	if balance, _ := e.riderBalance("rider-1"); balance != 1000 {
		t.Fatalf("rejected tip moved money: %d", balance)
	}

	// Admins may tip on the rider's behalf.
	if err := e.ledger.Tip(ctx, ride, adminActor, 250, "tip-1"); err != nil {
		t.Fatalf("admin tip failed: %v", err)
	}
	if got := e.driverBalance("driver-1"); got != 250 {
		t.Fatalf("expected driver 250, got %d", got)
	}
}

func TestLedger_WithdrawOwnerOnly(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.seedRider("rider-1", 1000)
	e.seedRider("rider-2", 1000)

	_, err := e.ledger.Withdraw(ctx, riderActor("rider-2"), "rider-1", domain.OwnerTypeRider, 400, "withdraw-1")
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error for foreign withdrawal, got %v", err)
	}
	// A role spoofing the owner's ID still fails the role check.
	_, err = e.ledger.Withdraw(ctx, driverActor("rider-1"), "rider-1", domain.OwnerTypeRider, 400, "withdraw-1")
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error for role mismatch, got %v", err)
	}
	if balance, _ := e.riderBalance("rider-1"); balance != 1000 {
		t.Fatalf("rejected withdrawal moved money: %d", balance)
	}

	wallet, err := e.ledger.Withdraw(ctx, riderActor("rider-1"), "rider-1", domain.OwnerTypeRider, 400, "withdraw-1")
	if err != nil {
		t.Fatalf("owner withdrawal failed: %v", err)
	}
	if wallet.Balance != 600 {
		t.Fatalf("expected balance 600, got %d", wallet.Balance)
	}

	if _, err := e.ledger.Withdraw(ctx, adminActor, "rider-1", domain.OwnerTypeRider, 100, "withdraw-2"); err != nil {
		t.Fatalf("admin withdrawal failed: %v", err)
	}
}

func TestLedger_TopupOwnerOnly(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.seedRider("rider-1", 0)
	e.seedPlatform()

	if _, err := e.ledger.Topup(ctx, riderActor("rider-2"), "rider-1", domain.OwnerTypeRider, 500, "topup-1"); !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error for foreign top-up, got %v", err)
	}

	wallet, err := e.ledger.Topup(ctx, riderActor("rider-1"), "rider-1", domain.OwnerTypeRider, 500, "topup-1")
	if err != nil {
		t.Fatalf("owner top-up failed: %v", err)
	}
	if wallet.Balance != 500 {
		t.Fatalf("expected balance 500, got %d", wallet.Balance)
	}

	// The platform wallet answers to admins alone.
	if _, err := e.ledger.Topup(ctx, dispatcher, "platform", domain.OwnerTypePlatform, 500, "topup-2"); !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error for platform top-up, got %v", err)
	}
	if _, err := e.ledger.Topup(ctx, adminActor, "platform", domain.OwnerTypePlatform, 500, "topup-2"); err != nil {
		t.Fatalf("admin platform top-up failed: %v", err)
	}
}

// heldSetup builds a completed ride whose fraud score held the payout.
func heldSetup(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	e := newEnv()
	e.seedRider("rider-1", 5000)
	e.seedDriver("driver-1", 4.8)
	e.seedPlatform()
	e.seedRide("ride-1", "rider-1", 2000)

	driver := driverActor("driver-1")
	if _, err := e.matching.MatchRide(ctx, "ride-1", dispatcher); err != nil {
		t.Fatal(err)
	}
	if _, err := e.trip.MarkArrived(ctx, "ride-1", driver); err != nil {
		t.Fatal(err)
	}
	if _, err := e.trip.StartTrip(ctx, "ride-1", driver); err != nil {
		t.Fatal(err)
	}

	// A teleporting trace: 600 m in 3 seconds.
	now := time.Now()
	_ = e.traces.Append(ctx, "ride-1", domain.GPSPoint{Lat: 12.9700, Lng: 77.59, Timestamp: now})
	_ = e.traces.Append(ctx, "ride-1", domain.GPSPoint{Lat: 12.9754, Lng: 77.59, Timestamp: now.Add(3 * time.Second)})

	ride, err := e.trip.CompleteTrip(ctx, "ride-1", driver)
	if err != nil {
		t.Fatal(err)
	}
	if !ride.PayoutHeld {
		t.Fatalf("expected payout held, score=%d", ride.FraudScore)
	}
	return e
}

func TestLedger_FraudHoldBlocksSettlement(t *testing.T) {
	ctx := context.Background()
	e := heldSetup(t)

	result, err := e.trip.SettleTrip(ctx, "ride-1", dispatcher, false)
	if err != nil {
		t.Fatalf("held settlement should not error: %v", err)
	}
	if !result.Held {
		t.Fatal("expected held result")
	}

	// No money moved; the ride stays COMPLETED and flagged for review.
	if balance, locked := e.riderBalance("rider-1"); balance != 3000 || locked != 2000 {
		t.Fatalf("held settlement moved money: %d/%d", balance, locked)
	}
	ride, _ := e.trip.GetRide(ctx, "ride-1")
	if ride.Status != domain.RideStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", ride.Status)
	}
	if !ride.ReviewRequired {
		t.Fatal("expected review_required to be set")
	}
}

func TestLedger_ForcedSettlementAfterReview(t *testing.T) {
	ctx := context.Background()
	e := heldSetup(t)

	// Only the override capability may force past the hold.
	_, err := e.trip.SettleTrip(ctx, "ride-1", dispatcher, true)
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error for dispatcher force, got %v", err)
	}

	result, err := e.trip.SettleTrip(ctx, "ride-1", adminActor, true)
	if err != nil {
		t.Fatalf("forced settle failed: %v", err)
	}
	if result.Held {
		t.Fatal("forced settlement must not be held")
	}
	if result.Payout != 1700 || result.Commission != 300 {
		t.Fatalf("expected 1700/300, got %d/%d", result.Payout, result.Commission)
	}
	if got := e.driverBalance("driver-1"); got != 1700 {
		t.Fatalf("expected driver 1700, got %d", got)
	}
}
