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

const matchLockTTL = 10 * time.Second

// MatchingService assigns drivers to requested rides. Candidate ordering
// is rating descending then experience descending; the assignment itself
// is a conditional update inside a serializable transaction, so two
// concurrent matchers can never hand the same driver two rides or give
// one ride two drivers.
type MatchingService struct {
	store          repository.Store
	locks          redisstore.LockStoreInterface
	notifier       *NotificationService
	log            *logrus.Logger
	candidateLimit int
}

// NewMatchingService creates a new MatchingService.
func NewMatchingService(
	store repository.Store,
	locks redisstore.LockStoreInterface,
	notifier *NotificationService,
	log *logrus.Logger,
	candidateLimit int,
) *MatchingService {
	if candidateLimit <= 0 {
		candidateLimit = 10
	}
	return &MatchingService{
		store:          store,
		locks:          locks,
		notifier:       notifier,
		log:            log,
		candidateLimit: candidateLimit,
	}
}

// MatchRide finds the best available driver for a requested ride and
// assigns them atomically. A serialization failure surfaces as a
// retryable conflict; the caller decides whether to try again.
func (s *MatchingService) MatchRide(ctx context.Context, rideID string, actor domain.Actor) (*domain.Ride, error) {
	if rideID == "" {
		return nil, errorf(KindValidation, "ride id is required")
	}
	if actor.Role != domain.RoleDispatcher && actor.Role != domain.RoleAdmin {
		return nil, errorf(KindValidation, "%s may not assign drivers", actor.Role)
	}

	if s.locks != nil {
		acquired, err := s.locks.AcquireRideLock(ctx, rideID, matchLockTTL)
		if err != nil {
			s.log.WithError(err).WithField("ride_id", rideID).Warn("ride lock unavailable, matching without it")
		} else if !acquired {
			return nil, errorf(KindConflict, "ride %s is already being matched", rideID)
		} else {
			defer func() {
				if err := s.locks.ReleaseRideLock(context.WithoutCancel(ctx), rideID); err != nil {
					s.log.WithError(err).WithField("ride_id", rideID).Warn("could not release ride lock")
				}
			}()
		}
	}

	ride, err := s.matchOnce(ctx, rideID, actor)
	if err != nil {
		return nil, fromRepository(err)
	}
	return ride, nil
}

func (s *MatchingService) matchOnce(ctx context.Context, rideID string, actor domain.Actor) (*domain.Ride, error) {
	var assignedID string

	err := s.store.InSerializableTx(ctx, func(r repository.Repos) error {
		ride, err := r.Rides().GetByID(ctx, rideID)
		if err != nil {
			return fromRepository(err)
		}
		if ride.Status != domain.RideStatusRequested || ride.DriverID != "" {
			return errorf(KindInvalidTransition, "ride %s is %s, only requested rides are matched", rideID, ride.Status)
		}

		candidates, err := r.Drivers().FindAvailable(ctx, s.candidateLimit)
		if err != nil {
			return fromRepository(err)
		}
		if len(candidates) == 0 {
			return errorf(KindNoDriverAvailable, "no driver available for ride %s", rideID)
		}

		for _, driver := range candidates {
			if !s.claimDriver(ctx, driver.ID) {
				continue
			}

			status := domain.RideStatusAssigned
			ok, err := r.Rides().UpdateWhere(ctx, rideID,
				repository.RideCondition{Status: domain.RideStatusRequested, DriverUnassigned: true},
				repository.RideChange{Status: &status, DriverID: &driver.ID},
			)
			if err != nil {
				s.releaseDriver(ctx, driver.ID)
				return err
			}
			if !ok {
				// Another matcher claimed the ride between our read and write.
				s.releaseDriver(ctx, driver.ID)
				return errorf(KindConflict, "ride %s changed concurrently", rideID)
			}

			assignedID = driver.ID
			return r.StatusEvents().Append(ctx, &domain.StatusEvent{
				ID:         uuid.New().String(),
				RideID:     rideID,
				Status:     domain.RideStatusAssigned,
				ActorID:    actor.ID,
				ActorRole:  actor.Role,
				OccurredAt: time.Now(),
			})
		}

		return errorf(KindNoDriverAvailable, "all %d candidates for ride %s are busy", len(candidates), rideID)
	})
	if err != nil {
		return nil, err
	}
	s.releaseDriver(ctx, assignedID)

	s.log.WithFields(logrus.Fields{
		"ride_id":   rideID,
		"driver_id": assignedID,
	}).Info("driver assigned")
	s.notifier.Notify(ctx, assignedID, domain.RoleDriver, "New ride assigned to you", EventDriverAssigned)

	ride, err := s.store.Rides().GetByID(ctx, rideID)
	if err != nil {
		return nil, fromRepository(err)
	}
	return ride, nil
}

// claimDriver takes the short-lived per-driver lock. Lock failures only
// skip the candidate; the conditional update stays the source of truth.
func (s *MatchingService) claimDriver(ctx context.Context, driverID string) bool {
	if s.locks == nil {
		return true
	}
	acquired, err := s.locks.AcquireDriverLock(ctx, driverID, matchLockTTL)
	if err != nil {
		s.log.WithError(err).WithField("driver_id", driverID).Warn("driver lock unavailable")
		return true
	}
	return acquired
}

func (s *MatchingService) releaseDriver(ctx context.Context, driverID string) {
	if s.locks == nil {
		return
	}
	if err := s.locks.ReleaseDriverLock(ctx, driverID); err != nil {
		s.log.WithError(err).WithField("driver_id", driverID).Warn("could not release driver lock")
	}
}
