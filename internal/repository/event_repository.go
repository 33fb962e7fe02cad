package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
)

// EventRepository handles event data access.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// GetByID retrieves an event by its UUID.
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	e := &model.Event{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, status, starts_at, ends_at, created_at, updated_at
		 FROM events WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.Status, &e.StartsAt, &e.EndsAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListPaginated retrieves events with pagination, newest first.
func (r *EventRepository) ListPaginated(ctx context.Context, limit, offset int) ([]model.Event, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, title, status, starts_at, ends_at, created_at, updated_at
		 FROM events
		 ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Status, &e.StartsAt, &e.EndsAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO events (title, status, starts_at, ends_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.Status, e.StartsAt, e.EndsAt,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// UpdateStatus updates an event's status.
func (r *EventRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.EventStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE events SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// ListPublished returns all events with PUBLISHED status.
func (r *EventRepository) ListPublished(ctx context.Context) ([]model.Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, status, starts_at, ends_at, created_at, updated_at
		 FROM events WHERE status = $1
		 ORDER BY created_at DESC`, model.EventStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Status, &e.StartsAt, &e.EndsAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
