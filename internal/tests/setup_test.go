package tests

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// env bundles the wired services over in-memory stores.
type env struct {
	store    *MemStore
	traces   *MockTraceStore
	locks    *MockLockStore
	cache    *MockCacheStore
	ledger   *service.Ledger
	matching *service.MatchingService
	trip     *service.TripService
	drivers  *service.DriverService
}

func newEnv() *env {
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := NewMemStore()
	traces := NewMockTraceStore()
	locks := NewMockLockStore()
	cache := NewMockCacheStore()

	notifier := service.NewNotificationService(log)
	receipts := service.NewReceiptService(log)
	ledger := service.NewLedger(store, 0.15, log)
	matching := service.NewMatchingService(store, locks, notifier, log, 10)
	trip := service.NewTripService(store, ledger, traces, notifier, receipts, log)
	drivers := service.NewDriverService(store, ledger, cache, log)

	return &env{
		store:    store,
		traces:   traces,
		locks:    locks,
		cache:    cache,
		ledger:   ledger,
		matching: matching,
		trip:     trip,
		drivers:  drivers,
	}
}

func (e *env) seedRider(id string, balance int64) {
	ctx := context.Background()
	_ = e.store.Users().Create(ctx, &domain.User{ID: id, Name: "Rider " + id, Phone: "+1000" + id})
	_ = e.store.Wallets().Create(ctx, &domain.Wallet{
		ID:        "wallet-" + id,
		OwnerID:   id,
		OwnerType: domain.OwnerTypeRider,
		Balance:   balance,
		Currency:  "USD",
	})
}

func (e *env) seedDriver(id string, rating float64) {
	ctx := context.Background()
	_ = e.store.Drivers().Create(ctx, &domain.Driver{
		ID:       id,
		Name:     "Driver " + id,
		Phone:    "+2000" + id,
		Online:   true,
		Approved: true,
		Rating:   rating,
	})
	_ = e.store.Wallets().Create(ctx, &domain.Wallet{
		ID:        "wallet-" + id,
		OwnerID:   id,
		OwnerType: domain.OwnerTypeDriver,
		Currency:  "USD",
	})
}

func (e *env) seedPlatform() {
	_ = e.ledger.EnsurePlatformWallet(context.Background(), "USD")
}

func (e *env) seedRide(id, riderID string, fare int64) {
	_ = e.store.Rides().Create(context.Background(), &domain.Ride{
		ID:                   id,
		RiderID:              riderID,
		PickupAddress:        "1 Origin St",
		DropoffAddress:       "2 Destination Ave",
		PickupLat:            12.97,
		PickupLng:            77.59,
		DropoffLat:           13.00,
		DropoffLng:           77.62,
		Status:               domain.RideStatusRequested,
		FareEstimate:         fare,
		EstimatedDistanceKm:  5,
		EstimatedDurationMin: 15,
		RequestedAt:          time.Now(),
	})
}

func (e *env) riderBalance(id string) (int64, int64) {
	w, _ := e.store.Wallets().GetByOwner(context.Background(), id, domain.OwnerTypeRider)
	return w.Balance, w.LockedBalance
}

func (e *env) driverBalance(id string) int64 {
	w, _ := e.store.Wallets().GetByOwner(context.Background(), id, domain.OwnerTypeDriver)
	return w.Balance
}

func (e *env) platformBalance() int64 {
	w, _ := e.store.Wallets().GetByOwner(context.Background(), "platform", domain.OwnerTypePlatform)
	return w.Balance
}

var (
	dispatcher = domain.Actor{ID: "dispatch-1", Role: domain.RoleDispatcher}
	adminActor = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
)

func driverActor(id string) domain.Actor {
	return domain.Actor{ID: id, Role: domain.RoleDriver}
}

func riderActor(id string) domain.Actor {
	return domain.Actor{ID: id, Role: domain.RoleRider}
}
