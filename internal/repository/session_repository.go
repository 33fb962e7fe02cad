package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
)

// SessionResult combines participant data with session outcome for admin
// result listings.
type SessionResult struct {
	ParticipantID int                      `json:"participant_id"`
	Name          string                   `json:"name"`
	Email         string                   `json:"email"`
	Phase         model.Phase              `json:"phase"`
	WarningCount  int                      `json:"warning_count"`
	Reason        *model.TerminationReason `json:"termination_reason"`
	StartedAt     time.Time                `json:"started_at"`
	FinishedAt    *time.Time               `json:"finished_at"`
}

// SessionRepository handles assessment session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// GetByID retrieves a session by its UUID.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	s := &model.Session{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, challenge_id, event_id, participant_id, phase, started_at,
		        phase_deadline, warning_count, termination_reason, finished_at
		 FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.ChallengeID, &s.EventID, &s.ParticipantID, &s.Phase, &s.StartedAt,
		&s.PhaseDeadline, &s.WarningCount, &s.TerminationReason, &s.FinishedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByChallengeAndParticipant retrieves a session for a specific
// challenge-participant combination.
func (r *SessionRepository) GetByChallengeAndParticipant(ctx context.Context, challengeID uuid.UUID, participantID int) (*model.Session, error) {
	s := &model.Session{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, challenge_id, event_id, participant_id, phase, started_at,
		        phase_deadline, warning_count, termination_reason, finished_at
		 FROM sessions
		 WHERE challenge_id = $1 AND participant_id = $2`, challengeID, participantID,
	).Scan(&s.ID, &s.ChallengeID, &s.EventID, &s.ParticipantID, &s.Phase, &s.StartedAt,
		&s.PhaseDeadline, &s.WarningCount, &s.TerminationReason, &s.FinishedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new session (participant joins the challenge). The unique
// key on (challenge_id, participant_id) makes joining idempotent.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO sessions (challenge_id, event_id, participant_id, phase)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (challenge_id, participant_id) DO NOTHING
		 RETURNING id, started_at`,
		s.ChallengeID, s.EventID, s.ParticipantID, model.PhaseNotStarted,
	).Scan(&s.ID, &s.StartedAt)
}

// Update persists a session's mutable state.
func (r *SessionRepository) Update(ctx context.Context, s *model.Session) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions
		 SET phase = $1, phase_deadline = $2, warning_count = $3,
		     termination_reason = $4, finished_at = $5
		 WHERE id = $6`,
		s.Phase, s.PhaseDeadline, s.WarningCount, s.TerminationReason, s.FinishedAt, s.ID)
	return err
}

// BumpWarnings bulk-applies warning counts keyed by session id. Used by the
// violation worker to flush batched proctoring events.
func (r *SessionRepository) BumpWarnings(ctx context.Context, sessionIDs []uuid.UUID, counts []int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions AS s
		 SET warning_count = GREATEST(s.warning_count, u.count)
		 FROM (SELECT UNNEST($1::uuid[]) AS id, UNNEST($2::int[]) AS count) AS u
		 WHERE s.id = u.id`,
		sessionIDs, counts)
	return err
}

// ListOpenByEvent returns the sessions of an event not yet in a terminal
// phase. Used to force-terminate everything when the event deadline passes;
// NOT_STARTED rows are included so a joined-but-never-started session cannot
// outlive its event.
func (r *SessionRepository) ListOpenByEvent(ctx context.Context, eventID uuid.UUID) ([]model.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, challenge_id, event_id, participant_id, phase, started_at,
		        phase_deadline, warning_count, termination_reason, finished_at
		 FROM sessions
		 WHERE event_id = $1 AND phase IN ($2, $3, $4)`,
		eventID, model.PhaseNotStarted, model.PhaseQuiz, model.PhaseCoding)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.ID, &s.ChallengeID, &s.EventID, &s.ParticipantID, &s.Phase, &s.StartedAt,
			&s.PhaseDeadline, &s.WarningCount, &s.TerminationReason, &s.FinishedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ListByChallenge retrieves all participant results for a challenge, paginated.
func (r *SessionRepository) ListByChallenge(ctx context.Context, challengeID uuid.UUID, limit, offset int) ([]SessionResult, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sessions WHERE challenge_id = $1`, challengeID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.name, p.email, s.phase, s.warning_count,
		        s.termination_reason, s.started_at, s.finished_at
		 FROM sessions s
		 JOIN participants p ON s.participant_id = p.id
		 WHERE s.challenge_id = $1
		 ORDER BY p.name ASC
		 LIMIT $2 OFFSET $3`, challengeID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []SessionResult
	for rows.Next() {
		var sr SessionResult
		if err := rows.Scan(&sr.ParticipantID, &sr.Name, &sr.Email, &sr.Phase, &sr.WarningCount,
			&sr.Reason, &sr.StartedAt, &sr.FinishedAt); err != nil {
			return nil, 0, err
		}
		results = append(results, sr)
	}
	return results, total, rows.Err()
}
