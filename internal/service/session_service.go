package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mavericks-edu/mavericks-backend/internal/config"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
	"github.com/mavericks-edu/mavericks-backend/internal/repository"
	"github.com/mavericks-edu/mavericks-backend/internal/session"
	"github.com/mavericks-edu/mavericks-backend/internal/store"
	"github.com/mavericks-edu/mavericks-backend/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Session flow errors.
var (
	ErrChallengeUnavailable = errors.New("challenge is not available")
	ErrInvalidEntryToken    = errors.New("entry token does not match")
	ErrEventNotRunning      = errors.New("event is not running")
	ErrEventOver            = errors.New("event has ended")
	ErrSessionOver          = errors.New("session already reached a terminal phase")
)

// SessionService owns the live controller registry: one session.Controller
// per in-flight session, created on join or rebuilt from persisted state
// after a restart. All participant-facing session flow goes through here.
type SessionService struct {
	mu          sync.Mutex
	controllers map[uuid.UUID]*session.Controller

	cfg        *config.Config
	sessions   *repository.SessionRepository
	challenges *repository.ChallengeRepository
	events     *repository.EventRepository
	gateway    session.Gateway
	evaluator  session.Evaluator
	live       *store.LiveStore
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	cfg *config.Config,
	sessions *repository.SessionRepository,
	challenges *repository.ChallengeRepository,
	events *repository.EventRepository,
	gateway session.Gateway,
	evaluator session.Evaluator,
	live *store.LiveStore,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		controllers: make(map[uuid.UUID]*session.Controller),
		cfg:         cfg,
		sessions:    sessions,
		challenges:  challenges,
		events:      events,
		gateway:     gateway,
		evaluator:   evaluator,
		live:        live,
		rdb:         rdb,
		log:         log.With().Str("component", "session_service").Logger(),
	}
}

// Lobby returns the published challenges of an event, entry tokens stripped.
func (s *SessionService) Lobby(ctx context.Context, eventID uuid.UUID) ([]model.Challenge, error) {
	challenges, err := s.challenges.ListPublishedByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	for i := range challenges {
		challenges[i].EntryToken = ""
	}
	return challenges, nil
}

// Join enters a participant into a challenge. Idempotent: rejoining an
// in-flight session returns the existing row; a terminal session is refused.
func (s *SessionService) Join(ctx context.Context, participantID int, challengeID uuid.UUID, entryToken string) (*model.Session, error) {
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("challenge lookup: %w", err)
	}
	if challenge.Status != model.ChallengeStatusPublished {
		return nil, ErrChallengeUnavailable
	}
	if challenge.EntryToken != "" && challenge.EntryToken != entryToken {
		return nil, ErrInvalidEntryToken
	}

	event, err := s.events.GetByID(ctx, challenge.EventID)
	if err != nil {
		return nil, fmt.Errorf("event lookup: %w", err)
	}
	if event.Status != model.EventStatusPublished {
		return nil, ErrEventNotRunning
	}
	if event.EndsAt != nil && time.Now().After(*event.EndsAt) {
		return nil, ErrEventOver
	}

	existing, err := s.sessions.GetByChallengeAndParticipant(ctx, challengeID, participantID)
	if err == nil {
		if existing.Phase.Terminal() {
			return nil, ErrSessionOver
		}
		// Ensure Redis has the start time even if it was evicted.
		_ = s.live.SetSessionStart(ctx, challengeID.String(), participantID, existing.StartedAt)
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	sess := &model.Session{
		ChallengeID:   challengeID,
		EventID:       challenge.EventID,
		ParticipantID: participantID,
		Phase:         model.PhaseNotStarted,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent join won the insert; read the winner's row.
			return s.sessions.GetByChallengeAndParticipant(ctx, challengeID, participantID)
		}
		return nil, err
	}

	if err := s.live.SetSessionStart(ctx, challengeID.String(), participantID, sess.StartedAt); err != nil {
		s.log.Warn().Err(err).Msg("Session start cache write failed")
	}
	return sess, nil
}

// Payload returns the participant-facing challenge payload for a joined
// session, cache first.
func (s *SessionService) Payload(ctx context.Context, challengeID uuid.UUID) (*model.ChallengePayload, error) {
	payload, err := s.live.Payload(ctx, challengeID.String())
	if err != nil {
		return nil, err
	}
	if payload != nil {
		return payload, nil
	}

	// Cache miss: rebuild from the database.
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.Status != model.ChallengeStatusPublished {
		return nil, ErrChallengeUnavailable
	}
	questions, err := s.gateway.LoadQuestions(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	payload = &model.ChallengePayload{
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
		s.log.Warn().Err(err).Msg("Payload self-heal failed")
	}
	return payload, nil
}

// ProblemForParticipant returns the coding problem with hidden test cases
// stripped. Only sessions currently in the coding phase may read it.
func (s *SessionService) ProblemForParticipant(ctx context.Context, challengeID uuid.UUID, participantID int) (*model.ProblemForParticipant, error) {
	sess, err := s.sessions.GetByChallengeAndParticipant(ctx, challengeID, participantID)
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}

	phase := sess.Phase
	s.mu.Lock()
	if ctrl, ok := s.controllers[sess.ID]; ok {
		phase = ctrl.Phase()
	}
	s.mu.Unlock()
	if phase != model.PhaseCoding {
		return nil, ErrChallengeUnavailable
	}

	problem, err := s.gateway.LoadProblem(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	sampleCount := 2
	if len(problem.TestCases) < sampleCount {
		sampleCount = len(problem.TestCases)
	}
	return &model.ProblemForParticipant{
		ID:          problem.ID,
		Title:       problem.Title,
		Description: problem.Description,
		Difficulty:  problem.Difficulty,
		Templates:   problem.Templates,
		SampleCases: problem.TestCases[:sampleCount],
	}, nil
}

// SampleTestCases returns the visible test cases used for run-mode feedback.
func (s *SessionService) SampleTestCases(ctx context.Context, challengeID uuid.UUID) ([]model.TestCase, error) {
	problem, err := s.gateway.LoadProblem(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	return problem.TestCases, nil
}

// Controller returns the live controller for a session, building and starting
// or resuming one when none is registered. The returned session snapshot
// reflects the persisted row at lookup time.
func (s *SessionService) Controller(ctx context.Context, challengeID uuid.UUID, participantID int) (*session.Controller, *model.Session, error) {
	sess, err := s.sessions.GetByChallengeAndParticipant(ctx, challengeID, participantID)
	if err != nil {
		return nil, nil, fmt.Errorf("session lookup: %w", err)
	}
	if sess.Phase.Terminal() {
		return nil, nil, ErrSessionOver
	}

	s.mu.Lock()
	if ctrl, ok := s.controllers[sess.ID]; ok {
		s.mu.Unlock()
		return ctrl, sess, nil
	}
	s.mu.Unlock()

	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, nil, err
	}
	event, err := s.events.GetByID(ctx, challenge.EventID)
	if err != nil {
		return nil, nil, err
	}
	// A join that happened inside the window does not grant a start outside
	// it: the stream attach re-checks the hard deadline.
	if event.Status == model.EventStatusEnded ||
		(event.EndsAt != nil && time.Now().After(*event.EndsAt)) {
		return nil, nil, ErrEventOver
	}

	cfg := session.Config{
		QuizDurationSeconds: challenge.QuizDurationMinutes * 60,
		MaxWarnings:         s.cfg.MaxWarnings,
	}
	if event.EndsAt != nil {
		cfg.EventDeadline = *event.EndsAt
	}

	ctrl := session.NewController(sess, s.gateway, s.evaluator, cfg, s.log)

	s.mu.Lock()
	if existing, ok := s.controllers[sess.ID]; ok {
		// Lost the race to a concurrent attach; use the winner.
		s.mu.Unlock()
		ctrl.Shutdown()
		return existing, sess, nil
	}
	s.controllers[sess.ID] = ctrl
	s.mu.Unlock()

	if sess.Phase == model.PhaseNotStarted {
		err = ctrl.Start(ctx)
	} else {
		answers, aerr := s.live.Answers(ctx, challengeID.String(), participantID)
		if aerr != nil {
			s.log.Warn().Err(aerr).Msg("Answer recovery read failed, resuming empty")
			answers = nil
		}
		draft, derr := s.live.Code(ctx, challengeID.String(), participantID)
		if derr != nil {
			s.log.Warn().Err(derr).Msg("Code draft recovery read failed")
		}
		err = ctrl.Resume(ctx, answers, draft)
	}
	if err != nil {
		s.dropController(sess.ID)
		return nil, nil, err
	}

	return ctrl, sess, nil
}

// State returns the recovery payload for a page reload: current phase,
// autosaved answers, warning count and remaining phase time.
func (s *SessionService) State(ctx context.Context, challengeID uuid.UUID, participantID int) (*model.SessionState, error) {
	sess, err := s.sessions.GetByChallengeAndParticipant(ctx, challengeID, participantID)
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}

	answers, err := s.live.Answers(ctx, challengeID.String(), participantID)
	if err != nil {
		s.log.Warn().Err(err).Msg("Answer read failed for state")
		answers = map[string]string{}
	}
	warnings, err := s.live.Warnings(ctx, challengeID.String(), participantID)
	if err != nil || warnings < sess.WarningCount {
		warnings = sess.WarningCount
	}

	state := &model.SessionState{
		ChallengeID:      challengeID,
		ParticipantID:    participantID,
		Phase:            sess.Phase,
		AutosavedAnswers: answers,
		WarningCount:     warnings,
	}

	// Prefer the live controller's clock; fall back to the persisted deadline.
	s.mu.Lock()
	ctrl, ok := s.controllers[sess.ID]
	s.mu.Unlock()
	if ok {
		state.Phase = ctrl.Phase()
		state.RemainingTime = float64(ctrl.RemainingSeconds())
	} else if sess.PhaseDeadline != nil {
		if rem := time.Until(*sess.PhaseDeadline).Seconds(); rem > 0 {
			state.RemainingTime = rem
		}
	}
	return state, nil
}

// AutosaveAnswer mirrors an answer selection into the hot store and the
// persistence queue. The controller's in-memory copy is authoritative for
// grading; this trail only serves recovery.
func (s *SessionService) AutosaveAnswer(ctx context.Context, sess *model.Session, questionID, answer string) {
	if err := s.live.SaveAnswer(ctx, sess.ChallengeID.String(), sess.ParticipantID, questionID, answer); err != nil {
		s.log.Warn().Err(err).Msg("Answer autosave to Redis failed")
	}
	job, _ := json.Marshal(worker.AnswerJob{
		SessionID:  sess.ID.String(),
		QuestionID: questionID,
		Answer:     answer,
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, job).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Answer autosave enqueue failed")
	}
}

// AutosaveCode mirrors a code draft into the hot store.
func (s *SessionService) AutosaveCode(ctx context.Context, sess *model.Session, language, code string) {
	if err := s.live.SaveCode(ctx, sess.ChallengeID.String(), sess.ParticipantID, language, code); err != nil {
		s.log.Warn().Err(err).Msg("Code autosave to Redis failed")
	}
}

// EnqueueViolation pushes one proctoring signal onto the audit queue.
func (s *SessionService) EnqueueViolation(ctx context.Context, sess *model.Session, sig session.Signal) {
	event, _ := json.Marshal(worker.ViolationEvent{
		SessionID:     sess.ID.String(),
		ParticipantID: sess.ParticipantID,
		Signal:        string(sig),
		Timestamp:     time.Now().Unix(),
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, event).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Violation enqueue failed")
	}
}

// Release drops a finished session's controller from the registry.
func (s *SessionService) Release(sessionID uuid.UUID) {
	s.dropController(sessionID)
}

// ForceEndEvent terminates every open session of an event. Live controllers
// grade what they hold; sessions with no live controller are stamped timed
// out directly.
func (s *SessionService) ForceEndEvent(ctx context.Context, eventID uuid.UUID) error {
	open, err := s.sessions.ListOpenByEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("list open sessions: %w", err)
	}

	for i := range open {
		sess := open[i]
		s.mu.Lock()
		ctrl, ok := s.controllers[sess.ID]
		s.mu.Unlock()

		if ok {
			ctrl.ForceEnd(ctx)
			s.dropController(sess.ID)
			continue
		}

		reason := model.TerminationTimeout
		now := time.Now()
		sess.Phase = model.PhaseTimedOut
		sess.TerminationReason = &reason
		sess.FinishedAt = &now
		sess.PhaseDeadline = nil
		if err := s.sessions.Update(ctx, &sess); err != nil {
			s.log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("Offline session force-end failed")
		}
	}

	s.log.Info().Str("event_id", eventID.String()).Int("count", len(open)).Msg("Event sessions force-ended")
	return nil
}

// RunDeadlineSweeper periodically ends events whose hard deadline has passed.
// Blocks until ctx is cancelled; call in a goroutine.
func (s *SessionService) RunDeadlineSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepExpiredEvents(ctx)
		}
	}
}

func (s *SessionService) sweepExpiredEvents(ctx context.Context) {
	published, err := s.events.ListPublished(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Deadline sweep list failed")
		return
	}
	now := time.Now()
	for _, ev := range published {
		if ev.EndsAt == nil || now.Before(*ev.EndsAt) {
			continue
		}
		if err := s.ForceEndEvent(ctx, ev.ID); err != nil {
			s.log.Error().Err(err).Str("event_id", ev.ID.String()).Msg("Deadline sweep force-end failed")
			continue
		}
		if err := s.events.UpdateStatus(ctx, ev.ID, model.EventStatusEnded); err != nil {
			s.log.Error().Err(err).Str("event_id", ev.ID.String()).Msg("Event status update failed")
		}
	}
}

// Shutdown disposes every live controller without grading. Sessions resume
// from persisted state on the next attach.
func (s *SessionService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ctrl := range s.controllers {
		ctrl.Shutdown()
		delete(s.controllers, id)
	}
}

func (s *SessionService) dropController(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctrl, ok := s.controllers[sessionID]; ok {
		ctrl.Shutdown()
		delete(s.controllers, sessionID)
	}
}
