package postgres

import (
	"context"
	"database/sql"

	"ridehail/internal/domain"
)

// StatusEventRepository is a PostgreSQL implementation of
// repository.StatusEventRepository.
type StatusEventRepository struct {
	q Querier
}

// NewStatusEventRepository creates a new PostgreSQL status event repository.
func NewStatusEventRepository(db *sql.DB) *StatusEventRepository {
	return &StatusEventRepository{q: db}
}

// Append records a status change.
func (r *StatusEventRepository) Append(ctx context.Context, event *domain.StatusEvent) error {
	query := `
		INSERT INTO ride_status_events (id, ride_id, status, actor_id, actor_role, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query,
		event.ID,
		event.RideID,
		event.Status,
		event.ActorID,
		event.ActorRole,
		event.OccurredAt,
	)
	return translateErr(err)
}

// ListByRide returns a ride's status history in order of occurrence.
func (r *StatusEventRepository) ListByRide(ctx context.Context, rideID string) ([]*domain.StatusEvent, error) {
	query := `
		SELECT id, ride_id, status, actor_id, actor_role, occurred_at
		FROM ride_status_events WHERE ride_id = $1 ORDER BY occurred_at, id
	`

	rows, err := r.q.QueryContext(ctx, query, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.StatusEvent
	for rows.Next() {
		var ev domain.StatusEvent
		if err := rows.Scan(&ev.ID, &ev.RideID, &ev.Status, &ev.ActorID, &ev.ActorRole, &ev.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}
