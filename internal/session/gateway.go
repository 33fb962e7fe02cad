package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
)

// Gateway is the boundary between the session core and the persistence
// store. Every call is a fallible network operation and fails independently;
// the core never assumes ordering between a read and a later write.
type Gateway interface {
	// LoadQuestions returns the challenge's question set, ordered.
	LoadQuestions(ctx context.Context, challengeID uuid.UUID) ([]model.Question, error)
	// LoadProblem returns the challenge's coding problem.
	LoadProblem(ctx context.Context, challengeID uuid.UUID) (*model.Problem, error)
	// RecordSubmission appends a graded phase record. At most one record is
	// stored per (session, phase); duplicate writes are absorbed.
	RecordSubmission(ctx context.Context, sub *model.Submission) error
	// AddAggregateScore atomically adds delta to the participant's running
	// total for the event, creating the row if absent.
	AddAggregateScore(ctx context.Context, participantID int, eventID uuid.UUID, delta float64) error
	// FetchAggregateScore returns the current total, or nil if no row exists.
	FetchAggregateScore(ctx context.Context, participantID int, eventID uuid.UUID) (*model.AggregateScore, error)
	// UpdateSession persists session phase/state changes. Best-effort: a
	// failure is surfaced but never blocks phase advancement.
	UpdateSession(ctx context.Context, sess *model.Session) error
}

// EvalResult is the authoritative outcome of a coding evaluation.
type EvalResult struct {
	Score  float64
	Passed int
	Total  int
}

// Evaluator dispatches submitted code to the external execution service and
// returns the graded result for the full test-case set.
type Evaluator interface {
	Evaluate(ctx context.Context, language, code string, tests []model.TestCase) (EvalResult, error)
}
