package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
)

// ScoreRepository handles the per-event aggregate score totals. Totals only
// ever grow: every write is an atomic add-delta upsert, so concurrent phase
// submissions cannot clobber each other.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

// NewScoreRepository creates a new ScoreRepository.
func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

// AddDelta atomically adds delta to a participant's event total, creating the
// row when absent.
func (r *ScoreRepository) AddDelta(ctx context.Context, participantID int, eventID uuid.UUID, delta float64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO aggregate_scores (participant_id, event_id, total_score)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (participant_id, event_id) DO UPDATE
		 SET total_score = aggregate_scores.total_score + EXCLUDED.total_score,
		     updated_at = NOW()`,
		participantID, eventID, delta)
	return err
}

// AddDeltaBatch applies many score deltas in one statement. Used by the score
// worker to flush its queue.
func (r *ScoreRepository) AddDeltaBatch(ctx context.Context, participantIDs []int, eventIDs []uuid.UUID, deltas []float64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO aggregate_scores (participant_id, event_id, total_score)
		 SELECT * FROM UNNEST($1::int[], $2::uuid[], $3::float8[])
		 ON CONFLICT (participant_id, event_id) DO UPDATE
		 SET total_score = aggregate_scores.total_score + EXCLUDED.total_score,
		     updated_at = NOW()`,
		participantIDs, eventIDs, deltas)
	return err
}

// Get retrieves a participant's total for an event, or nil when no score has
// been recorded yet.
func (r *ScoreRepository) Get(ctx context.Context, participantID int, eventID uuid.UUID) (*model.AggregateScore, error) {
	s := &model.AggregateScore{}
	err := r.pool.QueryRow(ctx,
		`SELECT participant_id, event_id, total_score, updated_at
		 FROM aggregate_scores
		 WHERE participant_id = $1 AND event_id = $2`, participantID, eventID,
	).Scan(&s.ParticipantID, &s.EventID, &s.TotalScore, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// TopN returns the event leaderboard, highest totals first. Ties break on the
// earlier update.
func (r *ScoreRepository) TopN(ctx context.Context, eventID uuid.UUID, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.participant_id, p.name, a.total_score
		 FROM aggregate_scores a
		 JOIN participants p ON a.participant_id = p.id
		 WHERE a.event_id = $1
		 ORDER BY a.total_score DESC, a.updated_at ASC
		 LIMIT $2`, eventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	rank := 0
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.ParticipantID, &e.Name, &e.TotalScore); err != nil {
			return nil, err
		}
		rank++
		e.Rank = rank
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
