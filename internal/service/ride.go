package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// RideRequest is the input to RequestRide.
type RideRequest struct {
	RiderID        string  `json:"rider_id"`
	PickupAddress  string  `json:"pickup_address"`
	DropoffAddress string  `json:"dropoff_address"`
	PickupLat      float64 `json:"pickup_lat"`
	PickupLng      float64 `json:"pickup_lng"`
	DropoffLat     float64 `json:"dropoff_lat"`
	DropoffLng     float64 `json:"dropoff_lng"`
}

// RideService creates ride requests and triggers matching for them.
type RideService struct {
	store    repository.Store
	matching *MatchingService
	log      *logrus.Logger
}

// NewRideService creates a new RideService.
func NewRideService(store repository.Store, matching *MatchingService, log *logrus.Logger) *RideService {
	return &RideService{store: store, matching: matching, log: log}
}

// RequestRide quotes a fare, persists the ride as REQUESTED, and attempts
// an immediate driver match. The ride is returned even when no driver is
// available yet; it stays REQUESTED for a later matching pass.
func (s *RideService) RequestRide(ctx context.Context, req RideRequest) (*domain.Ride, error) {
	if err := validateRideRequest(req); err != nil {
		return nil, err
	}

	if _, err := s.store.Users().GetByID(ctx, req.RiderID); err != nil {
		if isNotFound(err) {
			return nil, errorf(KindNotFound, "rider %s not found", req.RiderID)
		}
		return nil, fromRepository(err)
	}

	quote := EstimateFare(req.PickupLat, req.PickupLng, req.DropoffLat, req.DropoffLng)

	ride := &domain.Ride{
		ID:                   uuid.New().String(),
		RiderID:              req.RiderID,
		PickupAddress:        strings.TrimSpace(req.PickupAddress),
		DropoffAddress:       strings.TrimSpace(req.DropoffAddress),
		PickupLat:            req.PickupLat,
		PickupLng:            req.PickupLng,
		DropoffLat:           req.DropoffLat,
		DropoffLng:           req.DropoffLng,
		Status:               domain.RideStatusRequested,
		FareEstimate:         quote.AmountCents,
		EstimatedDistanceKm:  quote.DistanceKm,
		EstimatedDurationMin: quote.DurationMin,
		RequestedAt:          time.Now(),
	}

	err := s.store.InTx(ctx, func(r repository.Repos) error {
		if err := r.Rides().Create(ctx, ride); err != nil {
			return err
		}
		return r.StatusEvents().Append(ctx, &domain.StatusEvent{
			ID:         uuid.New().String(),
			RideID:     ride.ID,
			Status:     domain.RideStatusRequested,
			ActorID:    req.RiderID,
			ActorRole:  domain.RoleRider,
			OccurredAt: ride.RequestedAt,
		})
	})
	if err != nil {
		return nil, fromRepository(err)
	}

	s.log.WithFields(logrus.Fields{
		"ride_id":      ride.ID,
		"rider_id":     ride.RiderID,
		"fare_cents":   ride.FareEstimate,
		"distance_km":  ride.EstimatedDistanceKm,
		"duration_min": ride.EstimatedDurationMin,
	}).Info("ride requested")

	system := domain.Actor{ID: "matcher", Role: domain.RoleDispatcher}
	matched, err := s.matching.MatchRide(ctx, ride.ID, system)
	if err != nil {
		if errors.Is(err, ErrNoDriverAvailable) || errors.Is(err, ErrConflict) {
			s.log.WithError(err).WithField("ride_id", ride.ID).Info("no immediate match, ride stays requested")
			return ride, nil
		}
		return nil, err
	}
	return matched, nil
}

// ListRides returns recent rides.
func (s *RideService) ListRides(ctx context.Context) ([]*domain.Ride, error) {
	rides, err := s.store.Rides().GetAll(ctx)
	if err != nil {
		return nil, fromRepository(err)
	}
	return rides, nil
}

func validateRideRequest(req RideRequest) error {
	if req.RiderID == "" {
		return errorf(KindValidation, "rider_id is required")
	}
	if strings.TrimSpace(req.PickupAddress) == "" || strings.TrimSpace(req.DropoffAddress) == "" {
		return errorf(KindValidation, "pickup and dropoff addresses are required")
	}
	for _, c := range []struct {
		lat, lng float64
	}{
		{req.PickupLat, req.PickupLng},
		{req.DropoffLat, req.DropoffLng},
	} {
		if c.lat < -90 || c.lat > 90 || c.lng < -180 || c.lng > 180 {
			return errorf(KindValidation, "invalid coordinates")
		}
	}
	if req.PickupLat == req.DropoffLat && req.PickupLng == req.DropoffLng {
		return errorf(KindValidation, "pickup and dropoff are the same point")
	}
	return nil
}
