package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
	"github.com/mavericks-edu/mavericks-backend/internal/repository"
	"github.com/mavericks-edu/mavericks-backend/internal/store"
	"github.com/rs/zerolog"
)

// Challenge lifecycle errors.
var (
	ErrNotAuthor    = errors.New("challenge belongs to another author")
	ErrNotDraft     = errors.New("challenge is not in draft status")
	ErrNotPublished = errors.New("challenge is not published")
	ErrNoQuestions  = errors.New("challenge has no questions")
	ErrNoProblem    = errors.New("challenge has no coding problem")
)

// ChallengeService handles challenge authoring and the publish lifecycle.
// Publishing freezes the content and warms the Redis caches so session starts
// never wait on PostgreSQL.
type ChallengeService struct {
	challenges *repository.ChallengeRepository
	questions  *repository.QuestionRepository
	problems   *repository.ProblemRepository
	events     *repository.EventRepository
	sessions   *repository.SessionRepository
	live       *store.LiveStore
	log        zerolog.Logger
}

// NewChallengeService creates a new ChallengeService.
func NewChallengeService(
	challenges *repository.ChallengeRepository,
	questions *repository.QuestionRepository,
	problems *repository.ProblemRepository,
	events *repository.EventRepository,
	sessions *repository.SessionRepository,
	live *store.LiveStore,
	log zerolog.Logger,
) *ChallengeService {
	return &ChallengeService{
		challenges: challenges,
		questions:  questions,
		problems:   problems,
		events:     events,
		sessions:   sessions,
		live:       live,
		log:        log.With().Str("component", "challenge_service").Logger(),
	}
}

// Create registers a new draft challenge under an event.
func (s *ChallengeService) Create(ctx context.Context, authorID int, req *model.CreateChallengeRequest) (*model.Challenge, error) {
	if _, err := s.events.GetByID(ctx, req.EventID); err != nil {
		return nil, fmt.Errorf("event lookup: %w", err)
	}

	challenge := &model.Challenge{
		EventID:             req.EventID,
		Title:               req.Title,
		Topic:               req.Topic,
		AuthorID:            authorID,
		QuizDurationMinutes: req.QuizDurationMinutes,
		EntryToken:          req.EntryToken,
		Status:              model.ChallengeStatusDraft,
	}
	if err := s.challenges.Create(ctx, challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

// Get retrieves a challenge by id.
func (s *ChallengeService) Get(ctx context.Context, id uuid.UUID) (*model.Challenge, error) {
	return s.challenges.GetByID(ctx, id)
}

// ListByEvent retrieves an event's challenges, paginated.
func (s *ChallengeService) ListByEvent(ctx context.Context, eventID uuid.UUID, limit, offset int) ([]model.Challenge, int, error) {
	return s.challenges.ListByEventPaginated(ctx, eventID, limit, offset)
}

// Update modifies a draft challenge. Only the author may edit, and only
// before publishing.
func (s *ChallengeService) Update(ctx context.Context, authorID int, id uuid.UUID, req *model.UpdateChallengeRequest) (*model.Challenge, error) {
	challenge, err := s.editable(ctx, authorID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		challenge.Title = req.Title
	}
	if req.Topic != "" {
		challenge.Topic = req.Topic
	}
	if req.QuizDurationMinutes > 0 {
		challenge.QuizDurationMinutes = req.QuizDurationMinutes
	}
	if req.EntryToken != "" {
		challenge.EntryToken = req.EntryToken
	}

	if err := s.challenges.Update(ctx, challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

// AddQuestion appends one question to a draft challenge.
func (s *ChallengeService) AddQuestion(ctx context.Context, authorID int, challengeID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error) {
	if _, err := s.editable(ctx, authorID, challengeID); err != nil {
		return nil, err
	}

	question := &model.Question{
		ChallengeID:   challengeID,
		Prompt:        req.Prompt,
		Options:       req.Options,
		CorrectOption: req.CorrectOption,
		Points:        req.Points,
		OrderNum:      req.OrderNum,
	}
	if err := s.questions.Create(ctx, question); err != nil {
		return nil, err
	}
	return question, nil
}

// ReplaceQuestions swaps the full question set of a draft challenge.
func (s *ChallengeService) ReplaceQuestions(ctx context.Context, authorID int, challengeID uuid.UUID, req *model.ReplaceQuestionsRequest) error {
	if _, err := s.editable(ctx, authorID, challengeID); err != nil {
		return err
	}

	questions := make([]model.Question, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = model.Question{
			ChallengeID:   challengeID,
			Prompt:        q.Prompt,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Points:        q.Points,
			OrderNum:      q.OrderNum,
		}
		if questions[i].OrderNum == 0 {
			questions[i].OrderNum = i + 1
		}
	}
	return s.questions.ReplaceAll(ctx, challengeID, questions)
}

// ListQuestions returns the full question set, answer key included. Admin
// surface only.
func (s *ChallengeService) ListQuestions(ctx context.Context, authorID int, challengeID uuid.UUID) ([]model.Question, error) {
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.AuthorID != authorID {
		return nil, ErrNotAuthor
	}
	return s.questions.ListByChallenge(ctx, challengeID)
}

// UpsertProblem creates or replaces the coding problem of a draft challenge.
func (s *ChallengeService) UpsertProblem(ctx context.Context, authorID int, challengeID uuid.UUID, req *model.UpsertProblemRequest) (*model.Problem, error) {
	if _, err := s.editable(ctx, authorID, challengeID); err != nil {
		return nil, err
	}

	problem := &model.Problem{
		ChallengeID: challengeID,
		Title:       req.Title,
		Description: req.Description,
		Difficulty:  model.Difficulty(req.Difficulty),
		Templates:   req.Templates,
		TestCases:   req.TestCases,
	}
	if err := s.problems.Upsert(ctx, problem); err != nil {
		return nil, err
	}
	return problem, nil
}

// Publish freezes a draft challenge and warms the Redis caches. A challenge
// cannot publish without at least one question and a coding problem.
func (s *ChallengeService) Publish(ctx context.Context, authorID int, challengeID uuid.UUID) (*model.Challenge, error) {
	challenge, err := s.editable(ctx, authorID, challengeID)
	if err != nil {
		return nil, err
	}

	questions, err := s.questions.ListByChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	problem, err := s.problems.GetByChallenge(ctx, challengeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoProblem
		}
		return nil, err
	}

	if err := s.challenges.UpdateStatus(ctx, challengeID, model.ChallengeStatusPublished); err != nil {
		return nil, err
	}
	challenge.Status = model.ChallengeStatusPublished

	s.warmCaches(ctx, challenge, questions, problem)

	s.log.Info().
		Str("challenge_id", challengeID.String()).
		Int("questions", len(questions)).
		Str("difficulty", string(problem.Difficulty)).
		Msg("Challenge published")
	return challenge, nil
}

// Archive retires a published challenge and drops its caches. Existing
// sessions keep running on their in-memory state.
func (s *ChallengeService) Archive(ctx context.Context, authorID int, challengeID uuid.UUID) error {
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return err
	}
	if challenge.AuthorID != authorID {
		return ErrNotAuthor
	}
	if challenge.Status != model.ChallengeStatusPublished {
		return ErrNotPublished
	}

	if err := s.challenges.UpdateStatus(ctx, challengeID, model.ChallengeStatusArchived); err != nil {
		return err
	}
	if err := s.live.InvalidateChallenge(ctx, challengeID.String()); err != nil {
		s.log.Warn().Err(err).Msg("Cache invalidation failed on archive")
	}
	return nil
}

// ListResults returns the per-participant session outcomes of a challenge.
func (s *ChallengeService) ListResults(ctx context.Context, authorID int, challengeID uuid.UUID, limit, offset int) ([]repository.SessionResult, int, error) {
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, 0, err
	}
	if challenge.AuthorID != authorID {
		return nil, 0, ErrNotAuthor
	}
	return s.sessions.ListByChallenge(ctx, challengeID, limit, offset)
}

// Prewarm repopulates the caches for every published challenge. Called once
// at startup so a Redis flush never degrades live session starts.
func (s *ChallengeService) Prewarm(ctx context.Context) error {
	published, err := s.challenges.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published: %w", err)
	}

	for i := range published {
		challenge := &published[i]
		questions, err := s.questions.ListByChallenge(ctx, challenge.ID)
		if err != nil {
			s.log.Error().Err(err).Str("challenge_id", challenge.ID.String()).Msg("Prewarm question load failed")
			continue
		}
		problem, err := s.problems.GetByChallenge(ctx, challenge.ID)
		if err != nil {
			s.log.Error().Err(err).Str("challenge_id", challenge.ID.String()).Msg("Prewarm problem load failed")
			continue
		}
		s.warmCaches(ctx, challenge, questions, problem)
	}

	s.log.Info().Int("count", len(published)).Msg("Challenge caches prewarmed")
	return nil
}

func (s *ChallengeService) warmCaches(ctx context.Context, challenge *model.Challenge, questions []model.Question, problem *model.Problem) {
	payload := &model.ChallengePayload{
		ChallengeID:         challenge.ID,
		Title:               challenge.Title,
		QuizDurationMinutes: challenge.QuizDurationMinutes,
		Questions:           make([]model.QuestionForParticipant, len(questions)),
	}
	for i, q := range questions {
		payload.Questions[i] = model.QuestionForParticipant{
			ID:       q.ID,
			Prompt:   q.Prompt,
			Options:  q.Options,
			OrderNum: q.OrderNum,
		}
	}

	if err := s.live.CachePayload(ctx, payload); err != nil {
		s.log.Error().Err(err).Msg("Payload cache warm failed")
	}
	if err := s.live.CacheAnswerKey(ctx, challenge.ID, questions); err != nil {
		s.log.Error().Err(err).Msg("Answer key cache warm failed")
	}
	if err := s.live.CacheProblem(ctx, problem); err != nil {
		s.log.Error().Err(err).Msg("Problem cache warm failed")
	}
}

// editable loads a challenge and verifies the caller may modify it.
func (s *ChallengeService) editable(ctx context.Context, authorID int, id uuid.UUID) (*model.Challenge, error) {
	challenge, err := s.challenges.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if challenge.AuthorID != authorID {
		return nil, ErrNotAuthor
	}
	if challenge.Status != model.ChallengeStatusDraft {
		return nil, ErrNotDraft
	}
	return challenge, nil
}
