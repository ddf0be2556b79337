package tests

import (
	"context"
	"sort"
	"sync"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// MemStore is an in-memory repository.Store for tests. A mutex serializes
// transactions, and InTx snapshots all state so a failing function rolls
// back completely, matching the real store's all-or-nothing behavior.
type MemStore struct {
	mu sync.Mutex
	st *memState
}

type memState struct {
	rides     map[string]*domain.Ride
	drivers   map[string]*domain.Driver
	wallets   map[string]*domain.Wallet
	walletTxs []*domain.WalletTransaction
	events    []*domain.StatusEvent
	users     map[string]*domain.User
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{st: &memState{
		rides:   make(map[string]*domain.Ride),
		drivers: make(map[string]*domain.Driver),
		wallets: make(map[string]*domain.Wallet),
		users:   make(map[string]*domain.User),
	}}
}

func (s *memState) clone() *memState {
	c := &memState{
		rides:     make(map[string]*domain.Ride, len(s.rides)),
		drivers:   make(map[string]*domain.Driver, len(s.drivers)),
		wallets:   make(map[string]*domain.Wallet, len(s.wallets)),
		walletTxs: make([]*domain.WalletTransaction, len(s.walletTxs)),
		events:    make([]*domain.StatusEvent, len(s.events)),
		users:     make(map[string]*domain.User, len(s.users)),
	}
	for id, r := range s.rides {
		cp := *r
		cp.FraudReasons = append([]string(nil), r.FraudReasons...)
		c.rides[id] = &cp
	}
	for id, d := range s.drivers {
		cp := *d
		c.drivers[id] = &cp
	}
	for id, w := range s.wallets {
		cp := *w
		c.wallets[id] = &cp
	}
	for i, tx := range s.walletTxs {
		cp := *tx
		c.walletTxs[i] = &cp
	}
	for i, e := range s.events {
		cp := *e
		c.events[i] = &cp
	}
	for id, u := range s.users {
		cp := *u
		c.users[id] = &cp
	}
	return c
}

// memRepos binds the repositories to the store. locked means the caller
// already holds the store mutex (inside a transaction).
type memRepos struct {
	s      *MemStore
	locked bool
}

func (r memRepos) enter() func() {
	if r.locked {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (s *MemStore) Rides() repository.RideRepository       { return memRideRepo{memRepos{s: s}} }
func (s *MemStore) Drivers() repository.DriverRepository   { return memDriverRepo{memRepos{s: s}} }
func (s *MemStore) Wallets() repository.WalletRepository   { return memWalletRepo{memRepos{s: s}} }
func (s *MemStore) WalletTransactions() repository.WalletTransactionRepository {
	return memWalletTxRepo{memRepos{s: s}}
}
func (s *MemStore) StatusEvents() repository.StatusEventRepository {
	return memEventRepo{memRepos{s: s}}
}
func (s *MemStore) Users() repository.UserRepository { return memUserRepo{memRepos{s: s}} }

type txRepos struct{ memRepos }

func (t txRepos) Rides() repository.RideRepository     { return memRideRepo{t.memRepos} }
func (t txRepos) Drivers() repository.DriverRepository { return memDriverRepo{t.memRepos} }
func (t txRepos) Wallets() repository.WalletRepository { return memWalletRepo{t.memRepos} }
func (t txRepos) WalletTransactions() repository.WalletTransactionRepository {
	return memWalletTxRepo{t.memRepos}
}
func (t txRepos) StatusEvents() repository.StatusEventRepository { return memEventRepo{t.memRepos} }
func (t txRepos) Users() repository.UserRepository               { return memUserRepo{t.memRepos} }

// InTx runs fn under the store mutex with rollback on error.
func (s *MemStore) InTx(ctx context.Context, fn func(r repository.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.st.clone()
	if err := fn(txRepos{memRepos{s: s, locked: true}}); err != nil {
		s.st = saved
		return err
	}
	return nil
}

// InSerializableTx behaves like InTx; the mutex already serializes.
func (s *MemStore) InSerializableTx(ctx context.Context, fn func(r repository.Repos) error) error {
	return s.InTx(ctx, fn)
}

var _ repository.Store = (*MemStore)(nil)

// ──────────────────────────────────────────────
// RIDES
// ──────────────────────────────────────────────

type memRideRepo struct{ memRepos }

func (r memRideRepo) Create(ctx context.Context, ride *domain.Ride) error {
	defer r.enter()()
	cp := *ride
	r.s.st.rides[ride.ID] = &cp
	return nil
}

func (r memRideRepo) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	defer r.enter()()
	ride, ok := r.s.st.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ride
	cp.FraudReasons = append([]string(nil), ride.FraudReasons...)
	return &cp, nil
}

func (r memRideRepo) GetAll(ctx context.Context) ([]*domain.Ride, error) {
	defer r.enter()()
	result := make([]*domain.Ride, 0, len(r.s.st.rides))
	for _, ride := range r.s.st.rides {
		cp := *ride
		result = append(result, &cp)
	}
	return result, nil
}

func (r memRideRepo) UpdateWhere(ctx context.Context, id string, cond repository.RideCondition, change repository.RideChange) (bool, error) {
	defer r.enter()()
	ride, ok := r.s.st.rides[id]
	if !ok {
		return false, nil
	}

	if cond.Status != "" && ride.Status != cond.Status {
		return false, nil
	}
	if cond.DriverUnassigned && ride.DriverID != "" {
		return false, nil
	}
	if cond.DriverID != "" && ride.DriverID != cond.DriverID {
		return false, nil
	}

	if change.Status != nil {
		ride.Status = *change.Status
	}
	if change.DriverID != nil {
		ride.DriverID = *change.DriverID
	}
	if change.LockedFare != nil {
		ride.LockedFare = *change.LockedFare
	}
	if change.CommissionRate != nil {
		ride.CommissionRate = *change.CommissionRate
	}
	if change.CommissionAmount != nil {
		ride.CommissionAmount = *change.CommissionAmount
	}
	if change.PayoutAmount != nil {
		ride.PayoutAmount = *change.PayoutAmount
	}
	if change.FraudScore != nil {
		ride.FraudScore = *change.FraudScore
	}
	if change.FraudReasons != nil {
		ride.FraudReasons = append([]string(nil), change.FraudReasons...)
	}
	if change.PayoutHeld != nil {
		ride.PayoutHeld = *change.PayoutHeld
	}
	if change.ReviewRequired != nil {
		ride.ReviewRequired = *change.ReviewRequired
	}
	if change.CancelReason != nil {
		ride.CancelReason = *change.CancelReason
	}
	if change.StartedAt != nil {
		ride.StartedAt = *change.StartedAt
	}
	if change.CompletedAt != nil {
		ride.CompletedAt = *change.CompletedAt
	}
	if change.SettledAt != nil {
		ride.SettledAt = *change.SettledAt
	}
	if change.CancelledAt != nil {
		ride.CancelledAt = *change.CancelledAt
	}
	return true, nil
}

// ──────────────────────────────────────────────
// DRIVERS
// ──────────────────────────────────────────────

type memDriverRepo struct{ memRepos }

func (r memDriverRepo) Create(ctx context.Context, driver *domain.Driver) error {
	defer r.enter()()
	cp := *driver
	r.s.st.drivers[driver.ID] = &cp
	return nil
}

func (r memDriverRepo) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	defer r.enter()()
	driver, ok := r.s.st.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *driver
	return &cp, nil
}

func (r memDriverRepo) GetByPhone(ctx context.Context, phone string) (*domain.Driver, error) {
	defer r.enter()()
	for _, d := range r.s.st.drivers {
		if d.Phone == phone {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memDriverRepo) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	defer r.enter()()
	result := make([]*domain.Driver, 0, len(r.s.st.drivers))
	for _, d := range r.s.st.drivers {
		cp := *d
		result = append(result, &cp)
	}
	return result, nil
}

func (r memDriverRepo) FindAvailable(ctx context.Context, limit int) ([]*domain.Driver, error) {
	defer r.enter()()

	busy := make(map[string]bool)
	for _, ride := range r.s.st.rides {
		switch ride.Status {
		case domain.RideStatusAssigned, domain.RideStatusArrived, domain.RideStatusInProgress:
			busy[ride.DriverID] = true
		}
	}

	var result []*domain.Driver
	for _, d := range r.s.st.drivers {
		if d.Online && d.Approved && !busy[d.ID] {
			cp := *d
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Rating != result[j].Rating {
			return result[i].Rating > result[j].Rating
		}
		return result[i].TotalTrips > result[j].TotalTrips
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r memDriverRepo) SetOnline(ctx context.Context, id string, online bool) error {
	defer r.enter()()
	driver, ok := r.s.st.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Online = online
	return nil
}

func (r memDriverRepo) SetApproved(ctx context.Context, id string, approved bool) error {
	defer r.enter()()
	driver, ok := r.s.st.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Approved = approved
	return nil
}

func (r memDriverRepo) IncrementTrips(ctx context.Context, id string) error {
	defer r.enter()()
	driver, ok := r.s.st.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.TotalTrips++
	return nil
}

// ──────────────────────────────────────────────
// WALLETS
// ──────────────────────────────────────────────

type memWalletRepo struct{ memRepos }

func (r memWalletRepo) Create(ctx context.Context, wallet *domain.Wallet) error {
	defer r.enter()()
	for _, w := range r.s.st.wallets {
		if w.OwnerID == wallet.OwnerID && w.OwnerType == wallet.OwnerType {
			return repository.ErrDuplicate
		}
	}
	cp := *wallet
	r.s.st.wallets[wallet.ID] = &cp
	return nil
}

func (r memWalletRepo) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	defer r.enter()()
	wallet, ok := r.s.st.wallets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *wallet
	return &cp, nil
}

func (r memWalletRepo) GetByOwner(ctx context.Context, ownerID string, ownerType domain.OwnerType) (*domain.Wallet, error) {
	defer r.enter()()
	for _, w := range r.s.st.wallets {
		if w.OwnerID == ownerID && w.OwnerType == ownerType {
			cp := *w
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memWalletRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r memWalletRepo) ApplyDeltas(ctx context.Context, id string, balanceDelta, lockedDelta int64) error {
	defer r.enter()()
	wallet, ok := r.s.st.wallets[id]
	if !ok {
		return repository.ErrNotFound
	}
	if wallet.Balance+balanceDelta < 0 || wallet.LockedBalance+lockedDelta < 0 {
		return repository.ErrSerialization
	}
	wallet.Balance += balanceDelta
	wallet.LockedBalance += lockedDelta
	wallet.UpdatedAt = time.Now()
	return nil
}

// ──────────────────────────────────────────────
// WALLET TRANSACTIONS
// ──────────────────────────────────────────────

type memWalletTxRepo struct{ memRepos }

func (r memWalletTxRepo) Create(ctx context.Context, tx *domain.WalletTransaction) error {
	defer r.enter()()
	for _, existing := range r.s.st.walletTxs {
		if existing.Reference == tx.Reference {
			return repository.ErrDuplicate
		}
	}
	cp := *tx
	r.s.st.walletTxs = append(r.s.st.walletTxs, &cp)
	return nil
}

func (r memWalletTxRepo) GetByReference(ctx context.Context, reference string) (*domain.WalletTransaction, error) {
	defer r.enter()()
	for _, tx := range r.s.st.walletTxs {
		if tx.Reference == reference {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memWalletTxRepo) ListByWallet(ctx context.Context, walletID string) ([]*domain.WalletTransaction, error) {
	defer r.enter()()
	var result []*domain.WalletTransaction
	for _, tx := range r.s.st.walletTxs {
		if tx.WalletID == walletID {
			cp := *tx
			result = append(result, &cp)
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────
// STATUS EVENTS
// ──────────────────────────────────────────────

type memEventRepo struct{ memRepos }

func (r memEventRepo) Append(ctx context.Context, event *domain.StatusEvent) error {
	defer r.enter()()
	cp := *event
	r.s.st.events = append(r.s.st.events, &cp)
	return nil
}

func (r memEventRepo) ListByRide(ctx context.Context, rideID string) ([]*domain.StatusEvent, error) {
	defer r.enter()()
	var result []*domain.StatusEvent
	for _, e := range r.s.st.events {
		if e.RideID == rideID {
			cp := *e
			result = append(result, &cp)
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────
// USERS
// ──────────────────────────────────────────────

type memUserRepo struct{ memRepos }

func (r memUserRepo) Create(ctx context.Context, user *domain.User) error {
	defer r.enter()()
	cp := *user
	r.s.st.users[user.ID] = &cp
	return nil
}

func (r memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	defer r.enter()()
	user, ok := r.s.st.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (r memUserRepo) GetAll(ctx context.Context) ([]*domain.User, error) {
	defer r.enter()()
	result := make([]*domain.User, 0, len(r.s.st.users))
	for _, u := range r.s.st.users {
		cp := *u
		result = append(result, &cp)
	}
	return result, nil
}

// ──────────────────────────────────────────────
// REDIS MOCKS
// ──────────────────────────────────────────────

// MockTraceStore is an in-memory GPS trace store.
type MockTraceStore struct {
	mu     sync.Mutex
	traces map[string][]domain.GPSPoint
}

// NewMockTraceStore creates an empty trace store.
func NewMockTraceStore() *MockTraceStore {
	return &MockTraceStore{traces: make(map[string][]domain.GPSPoint)}
}

func (m *MockTraceStore) Append(ctx context.Context, rideID string, point domain.GPSPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.traces[rideID] = append(m.traces[rideID], point)
	return nil
}

func (m *MockTraceStore) Get(ctx context.Context, rideID string) ([]domain.GPSPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.GPSPoint(nil), m.traces[rideID]...), nil
}

func (m *MockTraceStore) Clear(ctx context.Context, rideID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.traces, rideID)
	return nil
}

// MockLockStore is an in-memory distributed lock.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool
}

// NewMockLockStore creates an empty lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]bool)}
}

func (m *MockLockStore) acquire(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] {
		return false
	}
	m.locks[key] = true
	return true
}

func (m *MockLockStore) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
}

func (m *MockLockStore) AcquireDriverLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error) {
	return m.acquire("driver:" + driverID), nil
}

func (m *MockLockStore) ReleaseDriverLock(ctx context.Context, driverID string) error {
	m.release("driver:" + driverID)
	return nil
}

func (m *MockLockStore) AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error) {
	return m.acquire("ride:" + rideID), nil
}

func (m *MockLockStore) ReleaseRideLock(ctx context.Context, rideID string) error {
	m.release("ride:" + rideID)
	return nil
}

// MockCacheStore is an in-memory driver profile cache.
type MockCacheStore struct {
	mu      sync.Mutex
	drivers map[string]domain.Driver
}

// NewMockCacheStore creates an empty cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{drivers: make(map[string]domain.Driver)}
}

func (m *MockCacheStore) SetDriver(ctx context.Context, driver *domain.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = *driver
	return nil
}

func (m *MockCacheStore) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[driverID]
	if !ok {
		return nil, nil
	}
	return &driver, nil
}

func (m *MockCacheStore) InvalidateDriver(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drivers, driverID)
	return nil
}
