package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"ridehail/internal/domain"
)

func rideIn(status domain.RideStatus) *domain.Ride {
	return &domain.Ride{
		ID:       "ride-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   status,
	}
}

var admin = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

func TestCheckTransition_HappyPath(t *testing.T) {
	steps := []struct {
		from domain.RideStatus
		to   domain.RideStatus
	}{
		{domain.RideStatusRequested, domain.RideStatusAssigned},
		{domain.RideStatusAssigned, domain.RideStatusArrived},
		{domain.RideStatusArrived, domain.RideStatusInProgress},
		{domain.RideStatusInProgress, domain.RideStatusCompleted},
		{domain.RideStatusCompleted, domain.RideStatusSettled},
	}

	for _, step := range steps {
		err := checkTransition(rideIn(step.from), step.to, admin)
		assert.NoError(t, err, "%s -> %s", step.from, step.to)
	}
}

func TestCheckTransition_NoSkipping(t *testing.T) {
	cases := []struct {
		from domain.RideStatus
		to   domain.RideStatus
	}{
		{domain.RideStatusRequested, domain.RideStatusInProgress},
		{domain.RideStatusRequested, domain.RideStatusCompleted},
		{domain.RideStatusAssigned, domain.RideStatusCompleted},
		{domain.RideStatusArrived, domain.RideStatusSettled},
		{domain.RideStatusInProgress, domain.RideStatusSettled},
		{domain.RideStatusCompleted, domain.RideStatusInProgress},
	}

	for _, tc := range cases {
		err := checkTransition(rideIn(tc.from), tc.to, admin)
		assert.True(t, errors.Is(err, ErrInvalidTransition), "%s -> %s should be rejected", tc.from, tc.to)
	}
}

func TestCheckTransition_TerminalStatesAreFinal(t *testing.T) {
	for _, terminal := range []domain.RideStatus{
		domain.RideStatusSettled,
		domain.RideStatusCancelled,
		domain.RideStatusFailed,
	} {
		for _, target := range []domain.RideStatus{
			domain.RideStatusRequested,
			domain.RideStatusAssigned,
			domain.RideStatusInProgress,
			domain.RideStatusCancelled,
			domain.RideStatusFailed,
		} {
			err := checkTransition(rideIn(terminal), target, admin)
			assert.True(t, errors.Is(err, ErrInvalidTransition), "%s -> %s", terminal, target)
		}
	}
}

func TestCheckTransition_InProgressCancelNeedsOverride(t *testing.T) {
	ride := rideIn(domain.RideStatusInProgress)

	rider := domain.Actor{ID: "rider-1", Role: domain.RoleRider}
	err := checkTransition(ride, domain.RideStatusCancelled, rider)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	// The assigned driver and admins carry the widened transition set.
	assignedDriver := domain.Actor{ID: "driver-1", Role: domain.RoleDriver}
	assert.NoError(t, checkTransition(ride, domain.RideStatusCancelled, assignedDriver))
	assert.NoError(t, checkTransition(ride, domain.RideStatusCancelled, admin))

	otherDriver := domain.Actor{ID: "driver-2", Role: domain.RoleDriver}
	err = checkTransition(ride, domain.RideStatusCancelled, otherDriver)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestCheckPermission_DriverProgression(t *testing.T) {
	assigned := domain.Actor{ID: "driver-1", Role: domain.RoleDriver}
	other := domain.Actor{ID: "driver-2", Role: domain.RoleDriver}
	rider := domain.Actor{ID: "rider-1", Role: domain.RoleRider}

	for _, target := range []domain.RideStatus{
		domain.RideStatusArrived,
		domain.RideStatusInProgress,
		domain.RideStatusCompleted,
	} {
		ride := rideIn(domain.RideStatusAssigned)
		assert.NoError(t, checkPermission(ride, target, assigned), "assigned driver to %s", target)
		assert.Error(t, checkPermission(ride, target, other), "other driver to %s", target)
		assert.Error(t, checkPermission(ride, target, rider), "rider to %s", target)
		assert.NoError(t, checkPermission(ride, target, admin), "admin to %s", target)
	}
}

func TestCheckPermission_RiderCancelsOnlyPreTrip(t *testing.T) {
	rider := domain.Actor{ID: "rider-1", Role: domain.RoleRider}

	for _, status := range []domain.RideStatus{
		domain.RideStatusRequested,
		domain.RideStatusAssigned,
		domain.RideStatusArrived,
	} {
		assert.NoError(t, checkPermission(rideIn(status), domain.RideStatusCancelled, rider), "from %s", status)
	}

	err := checkPermission(rideIn(domain.RideStatusInProgress), domain.RideStatusCancelled, rider)
	assert.True(t, errors.Is(err, ErrValidation))

	// A different rider cannot cancel someone else's ride at all.
	stranger := domain.Actor{ID: "rider-2", Role: domain.RoleRider}
	err = checkPermission(rideIn(domain.RideStatusRequested), domain.RideStatusCancelled, stranger)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestAllowedTargets_OverrideWidensInProgress(t *testing.T) {
	base := AllowedTargets(domain.RideStatusInProgress, false)
	assert.ElementsMatch(t, []domain.RideStatus{
		domain.RideStatusCompleted,
		domain.RideStatusFailed,
	}, base)

	widened := AllowedTargets(domain.RideStatusInProgress, true)
	assert.Contains(t, widened, domain.RideStatusCancelled)
}

func TestEstimateFare_MinimumApplies(t *testing.T) {
	// Two points a few meters apart fall back to the minimum fare.
	quote := EstimateFare(12.97000, 77.59000, 12.97001, 77.59001)
	assert.Equal(t, int64(minimumFareCents), quote.AmountCents)
}

func TestEstimateFare_GrowsWithDistance(t *testing.T) {
	short := EstimateFare(12.97, 77.59, 12.99, 77.59)
	long := EstimateFare(12.97, 77.59, 13.10, 77.59)
	assert.Greater(t, long.AmountCents, short.AmountCents)
	assert.Greater(t, long.DistanceKm, short.DistanceKm)
}
