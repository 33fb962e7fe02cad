package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
)

// ChallengeRepository handles challenge data access.
type ChallengeRepository struct {
	pool *pgxpool.Pool
}

// NewChallengeRepository creates a new ChallengeRepository.
func NewChallengeRepository(pool *pgxpool.Pool) *ChallengeRepository {
	return &ChallengeRepository{pool: pool}
}

// GetByID retrieves a challenge by its UUID.
func (r *ChallengeRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Challenge, error) {
	c := &model.Challenge{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, event_id, title, topic, author_id, quiz_duration_minutes,
		        entry_token, status, created_at, updated_at
		 FROM challenges WHERE id = $1`, id,
	).Scan(&c.ID, &c.EventID, &c.Title, &c.Topic, &c.AuthorID, &c.QuizDurationMinutes,
		&c.EntryToken, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListByEventPaginated retrieves challenges for an event with pagination.
func (r *ChallengeRepository) ListByEventPaginated(ctx context.Context, eventID uuid.UUID, limit, offset int) ([]model.Challenge, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM challenges WHERE event_id = $1`, eventID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, event_id, title, topic, author_id, quiz_duration_minutes,
		        entry_token, status, created_at, updated_at
		 FROM challenges WHERE event_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, eventID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var challenges []model.Challenge
	for rows.Next() {
		var c model.Challenge
		if err := rows.Scan(&c.ID, &c.EventID, &c.Title, &c.Topic, &c.AuthorID, &c.QuizDurationMinutes,
			&c.EntryToken, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		challenges = append(challenges, c)
	}
	return challenges, total, rows.Err()
}

// Create inserts a new challenge.
func (r *ChallengeRepository) Create(ctx context.Context, c *model.Challenge) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO challenges (event_id, title, topic, author_id, quiz_duration_minutes, entry_token, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		c.EventID, c.Title, c.Topic, c.AuthorID, c.QuizDurationMinutes, c.EntryToken, c.Status,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// Update modifies a draft challenge's editable fields.
func (r *ChallengeRepository) Update(ctx context.Context, c *model.Challenge) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE challenges
		 SET title = $1, topic = $2, quiz_duration_minutes = $3, entry_token = $4, updated_at = NOW()
		 WHERE id = $5`,
		c.Title, c.Topic, c.QuizDurationMinutes, c.EntryToken, c.ID)
	return err
}

// UpdateStatus updates a challenge's status.
func (r *ChallengeRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ChallengeStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE challenges SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// ListPublished returns all challenges with PUBLISHED status.
// Used for cache prewarming on application startup.
func (r *ChallengeRepository) ListPublished(ctx context.Context) ([]model.Challenge, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_id, title, topic, author_id, quiz_duration_minutes,
		        entry_token, status, created_at, updated_at
		 FROM challenges WHERE status = $1
		 ORDER BY created_at DESC`, model.ChallengeStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var challenges []model.Challenge
	for rows.Next() {
		var c model.Challenge
		if err := rows.Scan(&c.ID, &c.EventID, &c.Title, &c.Topic, &c.AuthorID, &c.QuizDurationMinutes,
			&c.EntryToken, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

// ListPublishedByEvent returns the published challenges of one event, oldest
// first, for the participant lobby.
func (r *ChallengeRepository) ListPublishedByEvent(ctx context.Context, eventID uuid.UUID) ([]model.Challenge, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_id, title, topic, author_id, quiz_duration_minutes,
		        entry_token, status, created_at, updated_at
		 FROM challenges WHERE event_id = $1 AND status = $2
		 ORDER BY created_at ASC`, eventID, model.ChallengeStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var challenges []model.Challenge
	for rows.Next() {
		var c model.Challenge
		if err := rows.Scan(&c.ID, &c.EventID, &c.Title, &c.Topic, &c.AuthorID, &c.QuizDurationMinutes,
			&c.EntryToken, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}
