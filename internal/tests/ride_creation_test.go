package tests

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

func newRideService(e *env) *service.RideService {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return service.NewRideService(e.store, e.matching, log)
}

func validRequest(riderID string) service.RideRequest {
	return service.RideRequest{
		RiderID:        riderID,
		PickupAddress:  "1 Origin St",
		DropoffAddress: "2 Destination Ave",
		PickupLat:      12.97,
		PickupLng:      77.59,
		DropoffLat:     13.00,
		DropoffLng:     77.62,
	}
}

func TestRequestRide_NoDriversStaysRequested(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.seedRider("rider-1", 5000)
	rides := newRideService(e)

	ride, err := rides.RequestRide(ctx, validRequest("rider-1"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if ride.Status != domain.RideStatusRequested {
		t.Fatalf("expected REQUESTED, got %s", ride.Status)
	}
	if ride.FareEstimate <= 0 {
		t.Fatalf("expected positive fare estimate, got %d", ride.FareEstimate)
	}
	if ride.EstimatedDistanceKm <= 0 || ride.EstimatedDurationMin <= 0 {
		t.Fatalf("expected positive estimates, got %f km / %f min",
			ride.EstimatedDistanceKm, ride.EstimatedDurationMin)
	}

	events, _ := e.trip.GetHistory(ctx, ride.ID)
	if len(events) != 1 || events[0].Status != domain.RideStatusRequested {
		t.Fatalf("expected one REQUESTED event, got %v", events)
	}
}

func TestRequestRide_MatchesImmediatelyWhenDriverAvailable(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.seedRider("rider-1", 5000)
	e.seedDriver("driver-1", 4.8)
	rides := newRideService(e)

	ride, err := rides.RequestRide(ctx, validRequest("rider-1"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if ride.Status != domain.RideStatusAssigned || ride.DriverID != "driver-1" {
		t.Fatalf("expected immediate assignment, got %s / %q", ride.Status, ride.DriverID)
	}
}

func TestRequestRide_UnknownRiderRejected(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	rides := newRideService(e)

	_, err := rides.RequestRide(ctx, validRequest("rider-ghost"))
	if !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRequestRide_InvalidInputRejected(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.seedRider("rider-1", 5000)
	rides := newRideService(e)

	cases := map[string]func(*service.RideRequest){
		"missing rider":      func(r *service.RideRequest) { r.RiderID = "" },
		"missing pickup":     func(r *service.RideRequest) { r.PickupAddress = "  " },
		"latitude range":     func(r *service.RideRequest) { r.PickupLat = 91 },
		"longitude range":    func(r *service.RideRequest) { r.DropoffLng = -181 },
		"zero length trip":   func(r *service.RideRequest) { r.DropoffLat, r.DropoffLng = r.PickupLat, r.PickupLng },
	}

	for name, mutate := range cases {
		req := validRequest("rider-1")
		mutate(&req)
		if _, err := rides.RequestRide(ctx, req); !errors.Is(err, service.ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}
