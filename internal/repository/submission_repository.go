package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
)

// SubmissionRepository handles graded submission records. The table carries a
// unique key on (session_id, type) so duplicate writes from racing submit
// paths collapse to one row.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Create inserts a submission record. A duplicate for the same session and
// phase is silently absorbed; the first write wins.
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO submissions (session_id, type, payload, score, time_taken_seconds)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id, type) DO NOTHING
		 RETURNING id, created_at`,
		s.SessionID, s.Type, s.Payload, s.Score, s.TimeTakenSeconds,
	).Scan(&s.ID, &s.CreatedAt)
	if err == pgx.ErrNoRows {
		// Conflict: a record already exists for this (session, phase).
		return nil
	}
	return err
}

// ListBySession retrieves all submissions for a session, oldest first.
func (r *SubmissionRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, type, payload, score, time_taken_seconds, created_at
		 FROM submissions WHERE session_id = $1
		 ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Type, &s.Payload, &s.Score, &s.TimeTakenSeconds, &s.CreatedAt); err != nil {
			return nil, err
		}
		submissions = append(submissions, s)
	}
	return submissions, rows.Err()
}

// GetBySessionAndType retrieves the single submission for one phase of a
// session, or pgx.ErrNoRows when the phase has not been submitted.
func (r *SubmissionRepository) GetBySessionAndType(ctx context.Context, sessionID uuid.UUID, typ model.SubmissionType) (*model.Submission, error) {
	s := &model.Submission{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, type, payload, score, time_taken_seconds, created_at
		 FROM submissions WHERE session_id = $1 AND type = $2`, sessionID, typ,
	).Scan(&s.ID, &s.SessionID, &s.Type, &s.Payload, &s.Score, &s.TimeTakenSeconds, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}
