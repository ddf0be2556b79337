package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	redisstore "ridehail/internal/redis"
	"ridehail/internal/repository"
)

// allowedTransitions is the ride status DAG. Terminal states have no entry.
var allowedTransitions = map[domain.RideStatus][]domain.RideStatus{
	domain.RideStatusRequested:  {domain.RideStatusAssigned, domain.RideStatusCancelled, domain.RideStatusFailed},
	domain.RideStatusAssigned:   {domain.RideStatusArrived, domain.RideStatusCancelled, domain.RideStatusFailed},
	domain.RideStatusArrived:    {domain.RideStatusInProgress, domain.RideStatusCancelled, domain.RideStatusFailed},
	domain.RideStatusInProgress: {domain.RideStatusCompleted, domain.RideStatusFailed},
	domain.RideStatusCompleted:  {domain.RideStatusSettled, domain.RideStatusFailed},
}

// extendedTransitions widens the DAG for actors holding the override
// capability: an in-progress trip can be cut short to CANCELLED.
var extendedTransitions = map[domain.RideStatus][]domain.RideStatus{
	domain.RideStatusInProgress: {domain.RideStatusCancelled},
}

// TripService is the trip state machine. It owns every ride status
// transition, appends the status history, and drives the ledger side
// effects on start, settle, and cancel.
type TripService struct {
	store    repository.Store
	ledger   *Ledger
	traces   redisstore.TraceStoreInterface
	notifier *NotificationService
	receipts *ReceiptService
	log      *logrus.Logger
}

// NewTripService creates a new TripService.
func NewTripService(
	store repository.Store,
	ledger *Ledger,
	traces redisstore.TraceStoreInterface,
	notifier *NotificationService,
	receipts *ReceiptService,
	log *logrus.Logger,
) *TripService {
	return &TripService{
		store:    store,
		ledger:   ledger,
		traces:   traces,
		notifier: notifier,
		receipts: receipts,
		log:      log,
	}
}

// AllowedTargets returns the transitions available from a status.
// withOverride widens the set with the privileged capability's extras.
func AllowedTargets(from domain.RideStatus, withOverride bool) []domain.RideStatus {
	targets := append([]domain.RideStatus(nil), allowedTransitions[from]...)
	if withOverride {
		targets = append(targets, extendedTransitions[from]...)
	}
	return targets
}

// hasOverride reports whether the actor holds the widened transition set
// for this ride: admins everywhere, the assigned driver on its own ride.
func hasOverride(ride *domain.Ride, actor domain.Actor) bool {
	if actor.CanOverride() {
		return true
	}
	return actor.Role == domain.RoleDriver && actor.ID != "" && actor.ID == ride.DriverID
}

// checkTransition validates the DAG edge from the ride's current status.
func checkTransition(ride *domain.Ride, target domain.RideStatus, actor domain.Actor) error {
	if ride.Status.IsTerminal() {
		return errorf(KindInvalidTransition, "ride %s is %s, a terminal state", ride.ID, ride.Status)
	}
	for _, t := range AllowedTargets(ride.Status, hasOverride(ride, actor)) {
		if t == target {
			return nil
		}
	}
	return errorf(KindInvalidTransition, "cannot move ride %s from %s to %s", ride.ID, ride.Status, target)
}

// checkPermission is the role permission matrix for transitions.
func checkPermission(ride *domain.Ride, target domain.RideStatus, actor domain.Actor) error {
	if actor.Role == domain.RoleAdmin {
		return nil
	}

	switch target {
	case domain.RideStatusAssigned, domain.RideStatusSettled, domain.RideStatusFailed:
		if actor.Role == domain.RoleDispatcher {
			return nil
		}
	case domain.RideStatusArrived, domain.RideStatusInProgress, domain.RideStatusCompleted:
		if actor.Role == domain.RoleDriver && actor.ID == ride.DriverID {
			return nil
		}
	case domain.RideStatusCancelled:
		if actor.Role == domain.RoleRider && actor.ID == ride.RiderID {
			// Riders may only walk away before the trip starts.
			switch ride.Status {
			case domain.RideStatusRequested, domain.RideStatusAssigned, domain.RideStatusArrived:
				return nil
			}
		}
		if actor.Role == domain.RoleDriver && actor.ID == ride.DriverID {
			return nil
		}
	}

	return errorf(KindValidation, "%s %s is not allowed to move ride %s to %s",
		actor.Role, actor.ID, ride.ID, target)
}

// MarkArrived records the driver reaching the pickup point.
func (s *TripService) MarkArrived(ctx context.Context, rideID string, actor domain.Actor) (*domain.Ride, error) {
	ride, err := s.loadRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ride, domain.RideStatusArrived, actor); err != nil {
		return nil, err
	}

	now := time.Now()
	status := domain.RideStatusArrived
	err = s.store.InTx(ctx, func(r repository.Repos) error {
		return s.swap(ctx, r, ride, actor, now,
			repository.RideCondition{Status: domain.RideStatusAssigned, DriverID: ride.DriverID},
			repository.RideChange{Status: &status},
		)
	})
	if err != nil {
		return nil, fromRepository(err)
	}

	s.notifier.Notify(ctx, ride.RiderID, domain.RoleRider, "Your driver has arrived", EventDriverArrived)
	return s.loadRide(ctx, rideID)
}

// StartTrip moves an arrived ride to IN_PROGRESS. The fare estimate is
// locked on first entry and held from the rider's wallet in the same
// transaction: if the hold fails, the status does not change.
func (s *TripService) StartTrip(ctx context.Context, rideID string, actor domain.Actor) (*domain.Ride, error) {
	ride, err := s.loadRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ride, domain.RideStatusInProgress, actor); err != nil {
		return nil, err
	}

	lockedFare := ride.LockedFare
	if lockedFare == 0 {
		lockedFare = ride.FareEstimate
	}
	if lockedFare <= 0 {
		return nil, errorf(KindValidation, "ride %s has no fare to lock", rideID)
	}

	now := time.Now()
	status := domain.RideStatusInProgress
	err = s.store.InTx(ctx, func(r repository.Repos) error {
		if err := s.swap(ctx, r, ride, actor, now,
			repository.RideCondition{Status: domain.RideStatusArrived, DriverID: ride.DriverID},
			repository.RideChange{Status: &status, StartedAt: &now, LockedFare: &lockedFare},
		); err != nil {
			return err
		}
		return s.ledger.HoldForTrip(ctx, r, ride, lockedFare)
	})
	if err != nil {
		return nil, fromRepository(err)
	}

	s.log.WithFields(logrus.Fields{
		"ride_id":     rideID,
		"locked_fare": lockedFare,
	}).Info("trip started, fare locked and held")
	s.notifier.Notify(ctx, ride.RiderID, domain.RoleRider, "Your trip has started", EventTripStarted)
	return s.loadRide(ctx, rideID)
}

// CompleteTrip ends the ride, records the completion timestamp, and
// attaches the fraud assessment of the trip's GPS trace. No money moves.
func (s *TripService) CompleteTrip(ctx context.Context, rideID string, actor domain.Actor) (*domain.Ride, error) {
	ride, err := s.loadRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ride, domain.RideStatusCompleted, actor); err != nil {
		return nil, err
	}

	now := time.Now()
	var trace []domain.GPSPoint
	if s.traces != nil {
		if trace, err = s.traces.Get(ctx, rideID); err != nil {
			s.log.WithError(err).WithField("ride_id", rideID).Warn("could not read GPS trace, scoring without it")
			trace = nil
		}
	}
	assessment := ScoreTrace(TraceInput{
		Points:               trace,
		EstimatedDistanceKm:  ride.EstimatedDistanceKm,
		EstimatedDurationMin: ride.EstimatedDurationMin,
		StartedAt:            ride.StartedAt,
		CompletedAt:          now,
	})

	status := domain.RideStatusCompleted
	err = s.store.InTx(ctx, func(r repository.Repos) error {
		return s.swap(ctx, r, ride, actor, now,
			repository.RideCondition{Status: domain.RideStatusInProgress, DriverID: ride.DriverID},
			repository.RideChange{
				Status:       &status,
				CompletedAt:  &now,
				FraudScore:   &assessment.Score,
				FraudReasons: assessment.Reasons,
				PayoutHeld:   &assessment.PayoutHeld,
			},
		)
	})
	if err != nil {
		return nil, fromRepository(err)
	}

	if assessment.IsFlagged {
		s.log.WithFields(logrus.Fields{
			"ride_id": rideID,
			"score":   assessment.Score,
			"reasons": assessment.Reasons,
		}).Warn("trip completed with fraud signals")
	}
	s.notifier.Notify(ctx, ride.RiderID, domain.RoleRider, "Your trip is complete", EventTripCompleted)
	return s.loadRide(ctx, rideID)
}

// SettleTrip runs settlement for a completed ride. force requires the
// override capability and bypasses a fraud hold after manual review.
func (s *TripService) SettleTrip(ctx context.Context, rideID string, actor domain.Actor, force bool) (*SettlementResult, error) {
	ride, err := s.loadRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ride, domain.RideStatusSettled, actor); err != nil {
		return nil, err
	}
	if force && !actor.CanOverride() {
		return nil, errorf(KindValidation, "%s may not bypass a fraud hold", actor.Role)
	}

	result, err := s.ledger.Settle(ctx, rideID, force)
	if err != nil {
		return nil, err
	}

	if result.Held {
		s.notifier.Notify(ctx, ride.DriverID, domain.RoleDriver,
			"Your payout is held pending review", EventPayoutHeld)
		return result, nil
	}

	if s.receipts != nil {
		s.receipts.Generate(ctx, ride, result)
	}
	if s.traces != nil {
		// The trace served its purpose once settlement clears.
		if err := s.traces.Clear(ctx, rideID); err != nil {
			s.log.WithError(err).WithField("ride_id", rideID).Warn("could not clear GPS trace")
		}
	}
	s.notifier.Notify(ctx, ride.DriverID, domain.RoleDriver, "Trip fare paid out", EventTripSettled)
	s.notifier.Notify(ctx, ride.RiderID, domain.RoleRider, "Payment completed", EventTripSettled)
	return result, nil
}

// CancelTrip cancels a ride and unwinds any fare hold. applyPenalty is
// only honored for an admin cancelling an in-progress trip; pre-trip
// cancellation is always free and driver-initiated cancellation is always
// penalty-free.
func (s *TripService) CancelTrip(ctx context.Context, rideID string, actor domain.Actor, reason string, applyPenalty bool) (*domain.Ride, error) {
	ride, err := s.loadRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ride, domain.RideStatusCancelled, actor); err != nil {
		return nil, err
	}

	if actor.Role == domain.RoleDriver {
		applyPenalty = false
	}
	preTrip := ride.Status == domain.RideStatusRequested ||
		ride.Status == domain.RideStatusAssigned ||
		ride.Status == domain.RideStatusArrived
	if applyPenalty && preTrip {
		// Guard against callers ever charging a pre-trip cancellation.
		return nil, errorf(KindValidation, "pre-trip cancellation cannot carry a penalty")
	}
	if applyPenalty && !actor.CanOverride() {
		return nil, errorf(KindValidation, "%s may not apply a cancellation penalty", actor.Role)
	}

	split := CancellationPenalty(ride.LockedFare, applyPenalty)

	now := time.Now()
	status := domain.RideStatusCancelled
	err = s.store.InTx(ctx, func(r repository.Repos) error {
		if err := s.swap(ctx, r, ride, actor, now,
			repository.RideCondition{Status: ride.Status},
			repository.RideChange{Status: &status, CancelledAt: &now, CancelReason: &reason},
		); err != nil {
			return err
		}
		if ride.LockedFare > 0 {
			return s.ledger.ReleaseOnCancel(ctx, r, ride, split)
		}
		return nil
	})
	if err != nil {
		return nil, fromRepository(err)
	}

	s.log.WithFields(logrus.Fields{
		"ride_id": rideID,
		"by":      actor.Role,
		"penalty": split.PenaltyAmount,
		"refund":  split.RefundAmount,
	}).Info("ride cancelled")

	if ride.DriverID != "" && actor.ID != ride.DriverID {
		s.notifier.Notify(ctx, ride.DriverID, domain.RoleDriver, "The ride was cancelled", EventRideCancelled)
	}
	if actor.ID != ride.RiderID {
		s.notifier.Notify(ctx, ride.RiderID, domain.RoleRider, "The ride was cancelled", EventRideCancelled)
	}
	return s.loadRide(ctx, rideID)
}

// FailTrip moves a ride to FAILED from any non-terminal state. Admin and
// dispatcher only; any fare hold is released back to the rider in full.
func (s *TripService) FailTrip(ctx context.Context, rideID string, actor domain.Actor, reason string) (*domain.Ride, error) {
	ride, err := s.loadRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ride, domain.RideStatusFailed, actor); err != nil {
		return nil, err
	}

	now := time.Now()
	status := domain.RideStatusFailed
	err = s.store.InTx(ctx, func(r repository.Repos) error {
		if err := s.swap(ctx, r, ride, actor, now,
			repository.RideCondition{Status: ride.Status},
			repository.RideChange{Status: &status, CancelReason: &reason},
		); err != nil {
			return err
		}
		if ride.LockedFare > 0 && ride.SettledAt.IsZero() {
			return s.ledger.ReleaseOnCancel(ctx, r, ride, CancellationPenalty(ride.LockedFare, false))
		}
		return nil
	})
	if err != nil {
		return nil, fromRepository(err)
	}
	return s.loadRide(ctx, rideID)
}

// RecordGPSPoint appends one sample to an in-progress ride's trace.
func (s *TripService) RecordGPSPoint(ctx context.Context, rideID string, actor domain.Actor, point domain.GPSPoint) error {
	if point.Lat < -90 || point.Lat > 90 || point.Lng < -180 || point.Lng > 180 {
		return errorf(KindValidation, "invalid coordinates")
	}
	if point.Timestamp.IsZero() {
		point.Timestamp = time.Now()
	}

	ride, err := s.loadRide(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.Status != domain.RideStatusInProgress {
		return errorf(KindInvalidTransition, "ride %s is %s, trace only records in progress", rideID, ride.Status)
	}
	if actor.Role == domain.RoleDriver && actor.ID != ride.DriverID {
		return errorf(KindValidation, "driver %s is not on ride %s", actor.ID, rideID)
	}

	return s.traces.Append(ctx, rideID, point)
}

// GetRide retrieves a ride by ID.
func (s *TripService) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	return s.loadRide(ctx, rideID)
}

// GetHistory returns a ride's status history.
func (s *TripService) GetHistory(ctx context.Context, rideID string) ([]*domain.StatusEvent, error) {
	events, err := s.store.StatusEvents().ListByRide(ctx, rideID)
	if err != nil {
		return nil, fromRepository(err)
	}
	return events, nil
}

func (s *TripService) loadRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, errorf(KindValidation, "ride id is required")
	}
	ride, err := s.store.Rides().GetByID(ctx, rideID)
	if err != nil {
		return nil, fromRepository(err)
	}
	return ride, nil
}

func (s *TripService) validate(ride *domain.Ride, target domain.RideStatus, actor domain.Actor) error {
	if err := checkTransition(ride, target, actor); err != nil {
		return err
	}
	return checkPermission(ride, target, actor)
}

// swap performs the conditional status update and appends the history
// event. A failed condition means a concurrent writer got there first.
func (s *TripService) swap(ctx context.Context, r repository.Repos, ride *domain.Ride, actor domain.Actor, at time.Time, cond repository.RideCondition, change repository.RideChange) error {
	ok, err := r.Rides().UpdateWhere(ctx, ride.ID, cond, change)
	if err != nil {
		return err
	}
	if !ok {
		return errorf(KindConflict, "ride %s changed concurrently", ride.ID)
	}

	return r.StatusEvents().Append(ctx, &domain.StatusEvent{
		ID:         uuid.New().String(),
		RideID:     ride.ID,
		Status:     *change.Status,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		OccurredAt: at,
	})
}
