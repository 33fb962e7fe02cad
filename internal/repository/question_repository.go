package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
)

// QuestionRepository handles quiz question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByChallenge retrieves all questions for a challenge, ordered by order_num.
func (r *QuestionRepository) ListByChallenge(ctx context.Context, challengeID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, challenge_id, prompt, options, correct_option, points, order_num
		 FROM questions WHERE challenge_id = $1
		 ORDER BY order_num`, challengeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ChallengeID, &q.Prompt, &q.Options, &q.CorrectOption, &q.Points, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (challenge_id, prompt, options, correct_option, points, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		q.ChallengeID, q.Prompt, q.Options, q.CorrectOption, q.Points, q.OrderNum,
	).Scan(&q.ID)
}

// ReplaceAll swaps a challenge's full question set in one transaction.
func (r *QuestionRepository) ReplaceAll(ctx context.Context, challengeID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE challenge_id = $1`, challengeID); err != nil {
		return err
	}

	rows := make([][]interface{}, len(questions))
	for i, q := range questions {
		rows[i] = []interface{}{challengeID, q.Prompt, q.Options, q.CorrectOption, q.Points, q.OrderNum}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"questions"},
		[]string{"challenge_id", "prompt", "options", "correct_option", "points", "order_num"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Delete removes a question.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}

// CountByChallenge returns the number of questions attached to a challenge.
func (r *QuestionRepository) CountByChallenge(ctx context.Context, challengeID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE challenge_id = $1`, challengeID,
	).Scan(&count)
	return count, err
}
