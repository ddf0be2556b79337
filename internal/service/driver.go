package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	redisstore "ridehail/internal/redis"
	"ridehail/internal/repository"
)

const defaultDriverRating = 5.0

// DriverService handles driver registration and availability. Registration
// provisions the driver's wallet so payouts always have a destination.
type DriverService struct {
	store  repository.Store
	ledger *Ledger
	cache  redisstore.CacheStoreInterface
	log    *logrus.Logger
}

// NewDriverService creates a new DriverService.
func NewDriverService(store repository.Store, ledger *Ledger, cache redisstore.CacheStoreInterface, log *logrus.Logger) *DriverService {
	return &DriverService{store: store, ledger: ledger, cache: cache, log: log}
}

// Register creates a driver and their wallet. New drivers start offline
// and unapproved.
func (s *DriverService) Register(ctx context.Context, name, phone string) (*domain.Driver, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return nil, errorf(KindValidation, "name and phone are required")
	}

	driver := &domain.Driver{
		ID:        uuid.New().String(),
		Name:      name,
		Phone:     phone,
		Rating:    defaultDriverRating,
		CreatedAt: time.Now(),
	}

	if err := s.store.Drivers().Create(ctx, driver); err != nil {
		return nil, fromRepository(err)
	}
	if _, err := s.ledger.CreateWallet(ctx, driver.ID, domain.OwnerTypeDriver, ""); err != nil {
		return nil, err
	}
	s.cacheDriver(ctx, driver)

	s.log.WithField("driver_id", driver.ID).Info("driver registered")
	return driver, nil
}

// GetDriver retrieves a driver by ID, reading through the profile cache.
func (s *DriverService) GetDriver(ctx context.Context, id string) (*domain.Driver, error) {
	if s.cache != nil {
		cached, err := s.cache.GetDriver(ctx, id)
		if err != nil {
			s.log.WithError(err).WithField("driver_id", id).Warn("driver cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	driver, err := s.store.Drivers().GetByID(ctx, id)
	if err != nil {
		return nil, fromRepository(err)
	}
	s.cacheDriver(ctx, driver)
	return driver, nil
}

// SetOnline flips a driver's availability for matching.
func (s *DriverService) SetOnline(ctx context.Context, id string, online bool) error {
	if _, err := s.GetDriver(ctx, id); err != nil {
		return err
	}
	if err := s.store.Drivers().SetOnline(ctx, id, online); err != nil {
		return fromRepository(err)
	}
	s.refresh(ctx, id)
	return nil
}

// Approve marks a driver as vetted and eligible for matching.
func (s *DriverService) Approve(ctx context.Context, id string, actor domain.Actor) error {
	if actor.Role != domain.RoleAdmin {
		return errorf(KindValidation, "%s may not approve drivers", actor.Role)
	}
	if _, err := s.GetDriver(ctx, id); err != nil {
		return err
	}
	if err := s.store.Drivers().SetApproved(ctx, id, true); err != nil {
		return fromRepository(err)
	}
	s.refresh(ctx, id)
	return nil
}

func (s *DriverService) cacheDriver(ctx context.Context, driver *domain.Driver) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetDriver(ctx, driver); err != nil {
		s.log.WithError(err).WithField("driver_id", driver.ID).Warn("could not cache driver")
	}
}

// refresh rewrites the cache entry from the store after a mutation so
// reads never serve the pre-mutation profile for a full TTL.
func (s *DriverService) refresh(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	driver, err := s.store.Drivers().GetByID(ctx, id)
	if err != nil {
		if invErr := s.cache.InvalidateDriver(ctx, id); invErr != nil {
			s.log.WithError(invErr).WithField("driver_id", id).Warn("could not invalidate driver cache")
		}
		return
	}
	s.cacheDriver(ctx, driver)
}

// UserService handles rider registration. Like drivers, riders get a
// wallet at registration time.
type UserService struct {
	store  repository.Store
	ledger *Ledger
	log    *logrus.Logger
}

// NewUserService creates a new UserService.
func NewUserService(store repository.Store, ledger *Ledger, log *logrus.Logger) *UserService {
	return &UserService{store: store, ledger: ledger, log: log}
}

// Register creates a rider and their wallet.
func (s *UserService) Register(ctx context.Context, name, phone string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return nil, errorf(KindValidation, "name and phone are required")
	}

	user := &domain.User{
		ID:        uuid.New().String(),
		Name:      name,
		Phone:     phone,
		CreatedAt: time.Now(),
	}

	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, fromRepository(err)
	}
	if _, err := s.ledger.CreateWallet(ctx, user.ID, domain.OwnerTypeRider, ""); err != nil {
		return nil, err
	}

	s.log.WithField("user_id", user.ID).Info("rider registered")
	return user, nil
}

// GetUser retrieves a rider by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, fromRepository(err)
	}
	return user, nil
}
