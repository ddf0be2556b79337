package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

const driverColumns = `id, name, phone, online, approved, rating, total_trips, created_at`

// Create adds a new driver.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (` + driverColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		driver.ID,
		driver.Name,
		driver.Phone,
		driver.Online,
		driver.Approved,
		driver.Rating,
		driver.TotalTrips,
		driver.CreatedAt,
	)
	return translateErr(err)
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`
	return scanDriver(r.q.QueryRowContext(ctx, query, id))
}

// GetByPhone retrieves a driver by phone number.
func (r *DriverRepository) GetByPhone(ctx context.Context, phone string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE phone = $1`
	return scanDriver(r.q.QueryRowContext(ctx, query, phone))
}

// GetAll retrieves all drivers.
func (r *DriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers ORDER BY created_at`
	return r.list(ctx, query)
}

// FindAvailable returns assignment candidates: online, approved, and with no
// ride currently in flight, best-rated and most-experienced first.
func (r *DriverRepository) FindAvailable(ctx context.Context, limit int) ([]*domain.Driver, error) {
	query := `
		SELECT ` + driverColumns + `
		FROM drivers d
		WHERE d.online = true
		  AND d.approved = true
		  AND NOT EXISTS (
			SELECT 1 FROM rides r
			WHERE r.driver_id = d.id
			  AND r.status IN ('ASSIGNED', 'ARRIVED', 'IN_PROGRESS')
		  )
		ORDER BY d.rating DESC, d.total_trips DESC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

// SetOnline flips a driver's online flag.
func (r *DriverRepository) SetOnline(ctx context.Context, id string, online bool) error {
	return r.exec(ctx, `UPDATE drivers SET online = $1 WHERE id = $2`, online, id)
}

// SetApproved flips a driver's approval flag.
func (r *DriverRepository) SetApproved(ctx context.Context, id string, approved bool) error {
	return r.exec(ctx, `UPDATE drivers SET approved = $1 WHERE id = $2`, approved, id)
}

// IncrementTrips bumps the driver's completed trip counter.
func (r *DriverRepository) IncrementTrips(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE drivers SET total_trips = total_trips + 1 WHERE id = $1`, id)
}

func (r *DriverRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return translateErr(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *DriverRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Driver, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}

func scanDriver(row rowScanner) (*domain.Driver, error) {
	var driver domain.Driver
	err := row.Scan(
		&driver.ID,
		&driver.Name,
		&driver.Phone,
		&driver.Online,
		&driver.Approved,
		&driver.Rating,
		&driver.TotalTrips,
		&driver.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &driver, nil
}
