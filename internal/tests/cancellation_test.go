package tests

import (
	"context"
	"errors"
	"testing"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

func TestCancel_PreTripIsFree(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.seedRider("rider-1", 5000)
	e.seedRide("ride-1", "rider-1", 2000)

	ride, err := e.trip.CancelTrip(ctx, "ride-1", riderActor("rider-1"), "changed my mind", false)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if ride.Status != domain.RideStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", ride.Status)
	}
	if ride.CancelReason != "changed my mind" {
		t.Errorf("expected cancel reason recorded, got %q", ride.CancelReason)
	}

	// No fare was held, so no money moves.
	if balance, locked := e.riderBalance("rider-1"); balance != 5000 || locked != 0 {
		t.Fatalf("pre-trip cancel must not touch the wallet, got %d/%d", balance, locked)
	}
}

func TestCancel_PreTripPenaltyRejectedEvenForAdmin(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.seedRider("rider-1", 5000)
	e.seedRide("ride-1", "rider-1", 2000)

	_, err := e.trip.CancelTrip(ctx, "ride-1", adminActor, "", true)
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error for pre-trip penalty, got %v", err)
	}
}

// cancelSetup walks a ride to IN_PROGRESS with a 1000-cent hold in place.
func cancelSetup(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	e := newEnv()
	e.seedRider("rider-1", 5000)
	e.seedDriver("driver-1", 4.8)
	e.seedRide("ride-1", "rider-1", 1000)

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
	return e
}

func TestCancel_InProgressWithPenalty(t *testing.T) {
	ctx := context.Background()
	e := cancelSetup(t)

	ride, err := e.trip.CancelTrip(ctx, "ride-1", adminActor, "dispute resolved against rider", true)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if ride.Status != domain.RideStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", ride.Status)
	}

	// 20% of 1000 goes to the driver, the remaining 800 back to the rider.
	if balance, locked := e.riderBalance("rider-1"); balance != 4800 || locked != 0 {
		t.Fatalf("expected rider 4800/0, got %d/%d", balance, locked)
	}
	if got := e.driverBalance("driver-1"); got != 200 {
		t.Fatalf("expected driver compensation 200, got %d", got)
	}
}

func TestCancel_DriverCancelAlwaysFree(t *testing.T) {
	ctx := context.Background()
	e := cancelSetup(t)

	// The driver asking for a penalty is ignored.
	ride, err := e.trip.CancelTrip(ctx, "ride-1", driverActor("driver-1"), "vehicle breakdown", true)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if ride.Status != domain.RideStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", ride.Status)
	}

	if balance, locked := e.riderBalance("rider-1"); balance != 5000 || locked != 0 {
		t.Fatalf("expected full refund 5000/0, got %d/%d", balance, locked)
	}
	if got := e.driverBalance("driver-1"); got != 0 {
		t.Fatalf("driver must not be compensated for own cancellation, got %d", got)
	}
}

func TestCancel_RiderCannotCancelInProgress(t *testing.T) {
	ctx := context.Background()
	e := cancelSetup(t)

	_, err := e.trip.CancelTrip(ctx, "ride-1", riderActor("rider-1"), "", false)
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	// The hold is untouched.
	if balance, locked := e.riderBalance("rider-1"); balance != 4000 || locked != 1000 {
		t.Fatalf("expected 4000/1000, got %d/%d", balance, locked)
	}
}

func TestCancel_PenaltyRequiresOverride(t *testing.T) {
	ctx := context.Background()
	e := cancelSetup(t)

	// A dispatcher cannot charge the rider.
	_, err := e.trip.CancelTrip(ctx, "ride-1", dispatcher, "", true)
	if !errors.Is(err, service.ErrValidation) && !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestCancel_TerminalRideRejected(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.seedRider("rider-1", 5000)
	e.seedRide("ride-1", "rider-1", 2000)

	if _, err := e.trip.CancelTrip(ctx, "ride-1", riderActor("rider-1"), "", false); err != nil {
		t.Fatal(err)
	}

	_, err := e.trip.CancelTrip(ctx, "ride-1", riderActor("rider-1"), "", false)
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on cancelled ride, got %v", err)
	}
}
