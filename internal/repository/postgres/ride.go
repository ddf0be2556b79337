package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

const rideColumns = `
	id, rider_id, driver_id, pickup_address, dropoff_address,
	pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, status,
	fare_estimate, locked_fare, est_distance_km, est_duration_min,
	commission_rate, commission_amount, payout_amount,
	fraud_score, fraud_reasons, payout_held, review_required,
	cancel_reason, requested_at, started_at, completed_at, settled_at, cancelled_at`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
	`

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.RiderID,
		nullString(ride.DriverID),
		ride.PickupAddress,
		ride.DropoffAddress,
		ride.PickupLat,
		ride.PickupLng,
		ride.DropoffLat,
		ride.DropoffLng,
		ride.Status,
		ride.FareEstimate,
		ride.LockedFare,
		ride.EstimatedDistanceKm,
		ride.EstimatedDurationMin,
		ride.CommissionRate,
		ride.CommissionAmount,
		ride.PayoutAmount,
		ride.FraudScore,
		pq.Array(ride.FraudReasons),
		ride.PayoutHeld,
		ride.ReviewRequired,
		nullString(ride.CancelReason),
		ride.RequestedAt,
		nullTime(ride.StartedAt),
		nullTime(ride.CompletedAt),
		nullTime(ride.SettledAt),
		nullTime(ride.CancelledAt),
	)

	return translateErr(err)
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	return scanRide(r.q.QueryRowContext(ctx, query, id))
}

// GetAll retrieves recent rides.
func (r *RideRepository) GetAll(ctx context.Context) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides ORDER BY requested_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// UpdateWhere applies change to the ride only while cond still holds.
// This single conditional-update primitive is the mutual-exclusion point
// for driver assignment and every status transition.
func (r *RideRepository) UpdateWhere(ctx context.Context, id string, cond repository.RideCondition, change repository.RideChange) (bool, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if change.Status != nil {
		add("status", *change.Status)
	}
	if change.DriverID != nil {
		add("driver_id", *change.DriverID)
	}
	if change.LockedFare != nil {
		add("locked_fare", *change.LockedFare)
	}
	if change.CommissionRate != nil {
		add("commission_rate", *change.CommissionRate)
	}
	if change.CommissionAmount != nil {
		add("commission_amount", *change.CommissionAmount)
	}
	if change.PayoutAmount != nil {
		add("payout_amount", *change.PayoutAmount)
	}
	if change.FraudScore != nil {
		add("fraud_score", *change.FraudScore)
	}
	if change.FraudReasons != nil {
		add("fraud_reasons", pq.Array(change.FraudReasons))
	}
	if change.PayoutHeld != nil {
		add("payout_held", *change.PayoutHeld)
	}
	if change.ReviewRequired != nil {
		add("review_required", *change.ReviewRequired)
	}
	if change.CancelReason != nil {
		add("cancel_reason", *change.CancelReason)
	}
	if change.StartedAt != nil {
		add("started_at", *change.StartedAt)
	}
	if change.CompletedAt != nil {
		add("completed_at", *change.CompletedAt)
	}
	if change.SettledAt != nil {
		add("settled_at", *change.SettledAt)
	}
	if change.CancelledAt != nil {
		add("cancelled_at", *change.CancelledAt)
	}

	if len(sets) == 0 {
		return false, errors.New("ride update with no changes")
	}

	args = append(args, id)
	where := []string{fmt.Sprintf("id = $%d", len(args))}

	if cond.Status != "" {
		args = append(args, cond.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if cond.DriverUnassigned {
		where = append(where, "driver_id IS NULL")
	}
	if cond.DriverID != "" {
		args = append(args, cond.DriverID)
		where = append(where, fmt.Sprintf("driver_id = $%d", len(args)))
	}

	query := fmt.Sprintf("UPDATE rides SET %s WHERE %s",
		strings.Join(sets, ", "), strings.Join(where, " AND "))

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, translateErr(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var driverID, cancelReason sql.NullString
	var startedAt, completedAt, settledAt, cancelledAt sql.NullTime

	err := row.Scan(
		&ride.ID,
		&ride.RiderID,
		&driverID,
		&ride.PickupAddress,
		&ride.DropoffAddress,
		&ride.PickupLat,
		&ride.PickupLng,
		&ride.DropoffLat,
		&ride.DropoffLng,
		&ride.Status,
		&ride.FareEstimate,
		&ride.LockedFare,
		&ride.EstimatedDistanceKm,
		&ride.EstimatedDurationMin,
		&ride.CommissionRate,
		&ride.CommissionAmount,
		&ride.PayoutAmount,
		&ride.FraudScore,
		pq.Array(&ride.FraudReasons),
		&ride.PayoutHeld,
		&ride.ReviewRequired,
		&cancelReason,
		&ride.RequestedAt,
		&startedAt,
		&completedAt,
		&settledAt,
		&cancelledAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	ride.DriverID = driverID.String
	ride.CancelReason = cancelReason.String
	if startedAt.Valid {
		ride.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		ride.CompletedAt = completedAt.Time
	}
	if settledAt.Valid {
		ride.SettledAt = settledAt.Time
	}
	if cancelledAt.Valid {
		ride.CancelledAt = cancelledAt.Time
	}

	return &ride, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
