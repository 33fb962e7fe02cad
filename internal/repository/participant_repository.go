package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
)

var ErrDuplicateEmail = errors.New("account with this email already exists")

// ParticipantRepository handles participant data access.
type ParticipantRepository struct {
	pool *pgxpool.Pool
}

// NewParticipantRepository creates a new ParticipantRepository.
func NewParticipantRepository(pool *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{pool: pool}
}

// GetByID retrieves a participant by ID.
func (r *ParticipantRepository) GetByID(ctx context.Context, id int) (*model.Participant, error) {
	p := &model.Participant{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, cohort_id, created_at, updated_at
		 FROM participants WHERE id = $1`, id,
	).Scan(&p.ID, &p.Email, &p.Name, &p.PasswordHash, &p.CohortID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByEmail retrieves a participant by their unique email.
func (r *ParticipantRepository) GetByEmail(ctx context.Context, email string) (*model.Participant, error) {
	p := &model.Participant{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, cohort_id, created_at, updated_at
		 FROM participants WHERE email = $1`, email,
	).Scan(&p.ID, &p.Email, &p.Name, &p.PasswordHash, &p.CohortID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPaginated retrieves participants with pagination and optional cohort filter.
func (r *ParticipantRepository) ListPaginated(ctx context.Context, cohortID *int, limit, offset int) ([]model.Participant, int, error) {
	countQuery := `SELECT COUNT(*) FROM participants`
	var countArgs []interface{}
	if cohortID != nil {
		countQuery += ` WHERE cohort_id = $1`
		countArgs = append(countArgs, *cohortID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, email, name, password_hash, cohort_id, created_at, updated_at FROM participants`
	var args []interface{}
	argIdx := 1

	if cohortID != nil {
		query += ` WHERE cohort_id = $1`
		args = append(args, *cohortID)
		argIdx++
	}

	query += ` ORDER BY name LIMIT $` + strconv.Itoa(argIdx) + ` OFFSET $` + strconv.Itoa(argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var participants []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.Email, &p.Name, &p.PasswordHash, &p.CohortID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		participants = append(participants, p)
	}
	return participants, total, rows.Err()
}

// Create inserts a new participant.
func (r *ParticipantRepository) Create(ctx context.Context, p *model.Participant) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO participants (email, name, password_hash, cohort_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		p.Email, p.Name, p.PasswordHash, p.CohortID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// CreateBatch bulk-inserts participants using COPY. Used by the seeder.
func (r *ParticipantRepository) CreateBatch(ctx context.Context, participants []model.Participant) (int64, error) {
	rows := make([][]interface{}, len(participants))
	for i, p := range participants {
		rows[i] = []interface{}{p.Email, p.Name, p.PasswordHash, p.CohortID}
	}
	return r.pool.CopyFrom(ctx,
		pgx.Identifier{"participants"},
		[]string{"email", "name", "password_hash", "cohort_id"},
		pgx.CopyFromRows(rows),
	)
}

// UpdatePassword replaces a participant's password hash.
func (r *ParticipantRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE participants SET password_hash = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		passwordHash, id)
	return err
}

// Delete removes a participant.
func (r *ParticipantRepository) Delete(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM participants WHERE id = $1`, id)
	return err
}
