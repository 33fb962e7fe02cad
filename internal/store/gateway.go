package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mavericks-edu/mavericks-backend/internal/config"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
	"github.com/mavericks-edu/mavericks-backend/internal/repository"
	"github.com/mavericks-edu/mavericks-backend/internal/session"
	"github.com/mavericks-edu/mavericks-backend/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SessionGateway implements session.Gateway over the repositories with a
// Redis fast lane. Reads prefer the cache and self-heal it on miss; failed
// writes fall back to the Redis retry queues so a flaky database never blocks
// a phase transition.
type SessionGateway struct {
	questions   *repository.QuestionRepository
	problems    *repository.ProblemRepository
	submissions *repository.SubmissionRepository
	scores      *repository.ScoreRepository
	sessions    *repository.SessionRepository
	live        *LiveStore
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewSessionGateway wires a gateway over the given repositories and caches.
func NewSessionGateway(
	questions *repository.QuestionRepository,
	problems *repository.ProblemRepository,
	submissions *repository.SubmissionRepository,
	scores *repository.ScoreRepository,
	sessions *repository.SessionRepository,
	live *LiveStore,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionGateway {
	return &SessionGateway{
		questions:   questions,
		problems:    problems,
		submissions: submissions,
		scores:      scores,
		sessions:    sessions,
		live:        live,
		rdb:         rdb,
		log:         log.With().Str("component", "session_gateway").Logger(),
	}
}

// LoadQuestions returns the challenge's question set. The cached payload and
// answer key reconstruct the set without touching PostgreSQL; any
// inconsistency between the two falls through to the database.
func (g *SessionGateway) LoadQuestions(ctx context.Context, challengeID uuid.UUID) ([]model.Question, error) {
	payload, err := g.live.Payload(ctx, challengeID.String())
	if err == nil && payload != nil {
		key, kerr := g.live.AnswerKey(ctx, challengeID.String())
		if kerr == nil && len(key) == len(payload.Questions) && len(key) > 0 {
			questions := make([]model.Question, 0, len(payload.Questions))
			for _, q := range payload.Questions {
				correct, ok := key[q.ID.String()]
				if !ok {
					questions = nil
					break
				}
				questions = append(questions, model.Question{
					ID:            q.ID,
					ChallengeID:   challengeID,
					Prompt:        q.Prompt,
					Options:       q.Options,
					CorrectOption: correct,
					OrderNum:      q.OrderNum,
				})
			}
			if questions != nil {
				return questions, nil
			}
		}
	}

	questions, err := g.questions.ListByChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if len(questions) > 0 {
		// Self-heal the answer key for the next start.
		if err := g.live.CacheAnswerKey(ctx, challengeID, questions); err != nil {
			g.log.Warn().Err(err).Msg("Answer key self-heal failed")
		}
	}
	return questions, nil
}

// LoadProblem returns the coding problem, cache first with self-heal.
func (g *SessionGateway) LoadProblem(ctx context.Context, challengeID uuid.UUID) (*model.Problem, error) {
	problem, err := g.live.Problem(ctx, challengeID.String())
	if err == nil && problem != nil {
		return problem, nil
	}

	problem, err = g.problems.GetByChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if err := g.live.CacheProblem(ctx, problem); err != nil {
		g.log.Warn().Err(err).Msg("Problem cache self-heal failed")
	}
	return problem, nil
}

// RecordSubmission writes the graded record. A failed write lands on the
// retry queue instead of bubbling up; the record stays durable either way.
func (g *SessionGateway) RecordSubmission(ctx context.Context, sub *model.Submission) error {
	err := g.submissions.Create(ctx, sub)
	if err == nil {
		return nil
	}

	job := worker.SubmissionJob{
		SessionID:        sub.SessionID.String(),
		Type:             string(sub.Type),
		Payload:          sub.Payload,
		Score:            sub.Score,
		TimeTakenSeconds: sub.TimeTakenSeconds,
	}
	data, _ := json.Marshal(job)
	if qerr := g.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, data).Err(); qerr != nil {
		return fmt.Errorf("record submission: %w (requeue also failed: %v)", err, qerr)
	}
	g.log.Warn().Err(err).Str("session_id", job.SessionID).Msg("Submission write failed, handed to retry queue")
	return nil
}

// AddAggregateScore applies the score delta, falling back to the retry queue
// like RecordSubmission.
func (g *SessionGateway) AddAggregateScore(ctx context.Context, participantID int, eventID uuid.UUID, delta float64) error {
	err := g.scores.AddDelta(ctx, participantID, eventID, delta)
	if err == nil {
		return nil
	}

	job := worker.ScoreJob{
		ParticipantID: participantID,
		EventID:       eventID.String(),
		Delta:         delta,
	}
	data, _ := json.Marshal(job)
	if qerr := g.rdb.RPush(ctx, config.WorkerKey.PersistScoresQueue, data).Err(); qerr != nil {
		return fmt.Errorf("add aggregate score: %w (requeue also failed: %v)", err, qerr)
	}
	g.log.Warn().Err(err).Int("participant_id", participantID).Msg("Score delta write failed, handed to retry queue")
	return nil
}

// FetchAggregateScore returns the current total, nil when no score exists yet.
func (g *SessionGateway) FetchAggregateScore(ctx context.Context, participantID int, eventID uuid.UUID) (*model.AggregateScore, error) {
	score, err := g.scores.Get(ctx, participantID, eventID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return score, nil
}

// UpdateSession persists the session row and mirrors the warning count to
// Redis for cheap state reads.
func (g *SessionGateway) UpdateSession(ctx context.Context, sess *model.Session) error {
	if err := g.live.SetWarnings(ctx, sess.ChallengeID.String(), sess.ParticipantID, sess.WarningCount); err != nil {
		g.log.Warn().Err(err).Msg("Warning mirror write failed")
	}
	if sess.Phase.Terminal() {
		if err := g.live.ClearSession(ctx, sess.ChallengeID.String(), sess.ParticipantID); err != nil {
			g.log.Warn().Err(err).Msg("Hot state cleanup failed")
		}
	}
	return g.sessions.Update(ctx, sess)
}

var _ session.Gateway = (*SessionGateway)(nil)
