package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
)

// ProblemRepository handles coding problem data access. Each challenge holds
// at most one problem; templates and test cases live in JSONB columns.
type ProblemRepository struct {
	pool *pgxpool.Pool
}

// NewProblemRepository creates a new ProblemRepository.
func NewProblemRepository(pool *pgxpool.Pool) *ProblemRepository {
	return &ProblemRepository{pool: pool}
}

// GetByChallenge retrieves the coding problem attached to a challenge.
func (r *ProblemRepository) GetByChallenge(ctx context.Context, challengeID uuid.UUID) (*model.Problem, error) {
	p := &model.Problem{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, challenge_id, title, description, difficulty, templates, test_cases
		 FROM problems WHERE challenge_id = $1`, challengeID,
	).Scan(&p.ID, &p.ChallengeID, &p.Title, &p.Description, &p.Difficulty, &p.Templates, &p.TestCases)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Upsert creates or replaces a challenge's problem in place.
func (r *ProblemRepository) Upsert(ctx context.Context, p *model.Problem) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO problems (challenge_id, title, description, difficulty, templates, test_cases)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (challenge_id) DO UPDATE
		 SET title = EXCLUDED.title,
		     description = EXCLUDED.description,
		     difficulty = EXCLUDED.difficulty,
		     templates = EXCLUDED.templates,
		     test_cases = EXCLUDED.test_cases
		 RETURNING id`,
		p.ChallengeID, p.Title, p.Description, p.Difficulty, p.Templates, p.TestCases,
	).Scan(&p.ID)
}

// Delete removes a challenge's problem.
func (r *ProblemRepository) Delete(ctx context.Context, challengeID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM problems WHERE challenge_id = $1`, challengeID)
	return err
}
