package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mavericks-edu/mavericks-backend/internal/model"
	"github.com/mavericks-edu/mavericks-backend/internal/scoring"
	"github.com/rs/zerolog"
)

// Trigger identifies what caused a phase submission.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerTimeout   Trigger = "timeout"
	TriggerViolation Trigger = "violation"
)

// Domain errors surfaced to the transport layer.
var (
	ErrPhaseClosed     = errors.New("phase is not accepting input")
	ErrSessionFinished = errors.New("session has already ended")
	ErrEventEnded      = errors.New("event deadline has passed")
)

// Config carries the tunables for one controller instance.
type Config struct {
	QuizDurationSeconds int
	MaxWarnings         int
	// EventDeadline is the hard end-time of the owning event. Zero disables it.
	EventDeadline time.Time
	// TickInterval is the timer resolution; production uses one second.
	TickInterval time.Duration
}

// Events are the callbacks the controller exposes upward to the hosting
// transport (the WebSocket stream). All fields are optional.
type Events struct {
	OnTick         func(phase model.Phase, remainingSeconds int)
	OnWarning      func(count, max int)
	OnDeterrent    func(sig Signal)
	OnPhaseChange  func(phase model.Phase)
	OnQuizGraded   func(score float64)
	OnCodingGraded func(score float64)
	OnEventEnded   func()
	OnPersistError func(err error)
}

// Controller owns one session's lifecycle: the state machine
// NotStarted → Quiz → Coding → Completed (TimedOut when the event deadline
// cuts the session short). It owns a single timer and a single monitor for
// the whole session; phase transitions restart them rather than re-create
// them. All transitions are idempotent: a per-phase submitted flag, checked
// under the lock before any async work starts, guarantees at most one
// submission per phase even when a timer expiry and a manual submit land in
// the same instant.
type Controller struct {
	mu   sync.Mutex
	cfg  Config
	sess *model.Session
	gw   Gateway
	eval Evaluator
	log  zerolog.Logger

	timer   *PhaseTimer
	monitor *Monitor
	events  Events

	questions []model.Question
	answers   map[string]string
	problem   *model.Problem
	language  string
	code      string

	phaseStartedAt  time.Time
	quizSubmitted   bool
	codingSubmitted bool
}

// NewController creates a controller for the given session. The session is
// owned by the controller from this point on.
func NewController(sess *model.Session, gw Gateway, eval Evaluator, cfg Config, log zerolog.Logger) *Controller {
	if cfg.MaxWarnings <= 0 {
		cfg.MaxWarnings = 2
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}

	c := &Controller{
		cfg:     cfg,
		sess:    sess,
		gw:      gw,
		eval:    eval,
		log:     log.With().Str("component", "session_controller").Str("session_id", sess.ID.String()).Logger(),
		timer:   NewPhaseTimer(cfg.TickInterval),
		answers: make(map[string]string),
	}

	c.monitor = NewMonitor(cfg.MaxWarnings, cfg.EventDeadline, MonitorCallbacks{
		OnWarning:    c.handleWarning,
		OnDeterrent:  c.handleDeterrent,
		OnAutoSubmit: c.handleAutoSubmit,
		OnEventEnded: c.handleEventEnded,
	})

	return c
}

// SetEvents swaps the upward callback sink. Called when a participant
// (re)connects to the session stream.
func (c *Controller) SetEvents(ev Events) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = ev
}

// Phase returns the current phase.
func (c *Controller) Phase() model.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.Phase
}

// Warnings returns the session's proctoring warning count.
func (c *Controller) Warnings() int {
	return c.monitor.Warnings()
}

// RemainingSeconds returns the time left in the active phase, clamped at zero.
func (c *Controller) RemainingSeconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess.PhaseDeadline == nil {
		return 0
	}
	rem := time.Until(*c.sess.PhaseDeadline)
	if rem < 0 {
		rem = 0
	}
	return int(rem.Seconds())
}

// Start loads the question set and transitions NotStarted → Quiz, arming the
// timer and the proctoring monitor. A session whose event deadline already
// passed never starts: the sweeper owns stamping it terminal.
func (c *Controller) Start(ctx context.Context) error {
	if !c.cfg.EventDeadline.IsZero() && !time.Now().Before(c.cfg.EventDeadline) {
		return ErrEventEnded
	}

	questions, err := c.gw.LoadQuestions(ctx, c.sess.ChallengeID)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return errors.New("challenge has no questions")
	}

	c.mu.Lock()
	if c.sess.Phase != model.PhaseNotStarted {
		c.mu.Unlock()
		return fmt.Errorf("cannot start session in phase %s", c.sess.Phase)
	}

	now := time.Now()
	deadline := now.Add(time.Duration(c.cfg.QuizDurationSeconds) * time.Second)

	c.questions = questions
	c.sess.Phase = model.PhaseQuiz
	c.sess.PhaseDeadline = &deadline
	c.phaseStartedAt = now

	c.timer.Start(c.cfg.QuizDurationSeconds, c.tickQuiz, c.expireQuiz)
	c.monitor.Activate()
	c.mu.Unlock()

	c.persistSession(ctx)
	c.emitPhaseChange(model.PhaseQuiz)
	c.log.Info().Int("questions", len(questions)).Msg("Session started, quiz phase armed")
	return nil
}

// Resume rebuilds a live phase from persisted state after a server restart.
// Autosaved answers and the code draft come back from the hot store; the
// remaining time comes from the persisted phase deadline. A deadline already
// in the past grades the phase immediately on the timeout path.
func (c *Controller) Resume(ctx context.Context, answers map[string]string, draft *model.CodingPayload) error {
	c.mu.Lock()
	phase := c.sess.Phase
	if phase.Terminal() {
		c.mu.Unlock()
		return ErrSessionFinished
	}
	if phase == model.PhaseNotStarted {
		c.mu.Unlock()
		return c.Start(ctx)
	}

	remaining := 0
	if c.sess.PhaseDeadline != nil {
		remaining = int(time.Until(*c.sess.PhaseDeadline).Seconds())
	}
	c.monitor.Restore(c.sess.WarningCount)

	switch phase {
	case model.PhaseQuiz:
		questions, err := c.loadQuestionsLocked(ctx)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.questions = questions
		for k, v := range answers {
			c.answers[k] = v
		}
		c.phaseStartedAt = time.Now().Add(-time.Duration(c.cfg.QuizDurationSeconds-remaining) * time.Second)
		if remaining > 0 {
			c.timer.Start(remaining, c.tickQuiz, c.expireQuiz)
			c.monitor.Activate()
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()
		return c.SubmitQuiz(ctx, TriggerTimeout)

	case model.PhaseCoding:
		problem, err := c.gw.LoadProblem(ctx, c.sess.ChallengeID)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("load problem: %w", err)
		}
		c.problem = problem
		if draft != nil {
			c.language = draft.Language
			c.code = draft.Code
		}
		c.phaseStartedAt = time.Now().Add(-time.Duration(problem.Difficulty.DeadlineSeconds()-remaining) * time.Second)
		if remaining > 0 {
			c.timer.Start(remaining, c.tickCoding, c.expireCoding)
			c.monitor.Activate()
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()
		return c.SubmitCoding(ctx, TriggerTimeout)
	}

	c.mu.Unlock()
	return fmt.Errorf("cannot resume phase %s", phase)
}

// loadQuestionsLocked fetches the question set while holding the lock. The
// gateway call is a network read, but resume is rare and single-shot.
func (c *Controller) loadQuestionsLocked(ctx context.Context) ([]model.Question, error) {
	questions, err := c.gw.LoadQuestions(ctx, c.sess.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, errors.New("challenge has no questions")
	}
	return questions, nil
}

// SelectAnswer records the participant's option for a question. Only valid
// while the quiz phase is open.
func (c *Controller) SelectAnswer(questionID, option string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess.Phase != model.PhaseQuiz || c.quizSubmitted {
		return ErrPhaseClosed
	}
	c.answers[questionID] = option
	return nil
}

// UpdateCode stores the latest code draft. Only valid while the coding phase
// is open.
func (c *Controller) UpdateCode(language, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess.Phase != model.PhaseCoding || c.codingSubmitted {
		return ErrPhaseClosed
	}
	c.language = language
	c.code = code
	return nil
}

// ReportSignal forwards a proctoring signal to the monitor.
func (c *Controller) ReportSignal(sig Signal) {
	c.monitor.Report(sig)
}

// SubmitQuiz closes the quiz phase, grades it, persists the submission and
// aggregate delta, then advances to the coding phase. Idempotent: a second
// call (from any trigger) is a no-op.
func (c *Controller) SubmitQuiz(ctx context.Context, trigger Trigger) error {
	c.mu.Lock()
	if c.sess.Phase != model.PhaseQuiz || c.quizSubmitted {
		c.mu.Unlock()
		return nil
	}
	c.quizSubmitted = true
	c.timer.Cancel()

	answers := make(map[string]string, len(c.answers))
	for k, v := range c.answers {
		answers[k] = v
	}
	questions := c.questions
	started := c.phaseStartedAt
	c.mu.Unlock()

	score := scoring.QuizScore(questions, answers)
	c.recordQuiz(ctx, answers, score, started)

	if ev := c.snapshotEvents(); ev.OnQuizGraded != nil {
		ev.OnQuizGraded(score)
	}

	// Load the coding problem; its difficulty drives the next deadline.
	problem, err := c.gw.LoadProblem(ctx, c.sess.ChallengeID)
	if err != nil {
		// Without a problem the coding phase cannot run; end the session
		// with what was graded rather than stranding the participant.
		c.log.Error().Err(err).Msg("Load problem failed, completing session after quiz")
		c.finish(ctx, model.TerminationNormal, model.PhaseCompleted)
		return nil
	}

	duration := problem.Difficulty.DeadlineSeconds()

	c.mu.Lock()
	if c.sess.Phase.Terminal() {
		// The event deadline fired while grading; do not resurrect.
		c.mu.Unlock()
		return nil
	}
	now := time.Now()
	deadline := now.Add(time.Duration(duration) * time.Second)

	c.problem = problem
	c.sess.Phase = model.PhaseCoding
	c.sess.PhaseDeadline = &deadline
	c.phaseStartedAt = now
	if trigger == TriggerViolation {
		reason := model.TerminationViolation
		c.sess.TerminationReason = &reason
	}

	c.timer.Start(duration, c.tickCoding, c.expireCoding)
	c.monitor.Activate() // no-op if auto-submit already fired
	c.mu.Unlock()

	c.persistSession(ctx)
	c.emitPhaseChange(model.PhaseCoding)
	c.log.Info().
		Str("trigger", string(trigger)).
		Float64("quiz_score", score).
		Str("difficulty", string(problem.Difficulty)).
		Int("coding_seconds", duration).
		Msg("Quiz submitted, coding phase armed")
	return nil
}

// SubmitCoding closes the coding phase, evaluates the code through the
// execution service, persists the submission and aggregate delta, and
// terminates the session. Idempotent like SubmitQuiz.
func (c *Controller) SubmitCoding(ctx context.Context, trigger Trigger) error {
	c.mu.Lock()
	if c.sess.Phase != model.PhaseCoding || c.codingSubmitted {
		c.mu.Unlock()
		return nil
	}
	c.codingSubmitted = true
	c.timer.Cancel()

	language := c.language
	code := c.code
	var tests []model.TestCase
	if c.problem != nil {
		tests = c.problem.TestCases
	}
	started := c.phaseStartedAt
	c.mu.Unlock()

	score := c.evaluateCoding(ctx, language, code, tests)
	c.recordCoding(ctx, language, code, score, started)

	if ev := c.snapshotEvents(); ev.OnCodingGraded != nil {
		ev.OnCodingGraded(score)
	}

	reason := model.TerminationNormal
	switch trigger {
	case TriggerTimeout:
		reason = model.TerminationTimeout
	case TriggerViolation:
		reason = model.TerminationViolation
	}

	c.finish(ctx, reason, model.PhaseCompleted)
	c.log.Info().
		Str("trigger", string(trigger)).
		Float64("coding_score", score).
		Msg("Coding submitted, session completed")
	return nil
}

// ForceEnd terminates the session in place when the event's hard deadline
// passes: the open phase is graded with whatever is present, then the
// session moves to TimedOut.
func (c *Controller) ForceEnd(ctx context.Context) {
	c.mu.Lock()
	if c.sess.Phase.Terminal() {
		c.mu.Unlock()
		return
	}
	phase := c.sess.Phase
	var (
		gradeQuiz   bool
		gradeCoding bool
	)
	switch phase {
	case model.PhaseQuiz:
		if !c.quizSubmitted {
			c.quizSubmitted = true
			gradeQuiz = true
		}
	case model.PhaseCoding:
		if !c.codingSubmitted {
			c.codingSubmitted = true
			gradeCoding = true
		}
	}
	c.timer.Cancel()

	answers := make(map[string]string, len(c.answers))
	for k, v := range c.answers {
		answers[k] = v
	}
	questions := c.questions
	language, code := c.language, c.code
	var tests []model.TestCase
	if c.problem != nil {
		tests = c.problem.TestCases
	}
	started := c.phaseStartedAt
	c.mu.Unlock()

	if gradeQuiz {
		score := scoring.QuizScore(questions, answers)
		c.recordQuiz(ctx, answers, score, started)
	}
	if gradeCoding {
		score := c.evaluateCoding(ctx, language, code, tests)
		c.recordCoding(ctx, language, code, score, started)
	}

	c.finish(ctx, model.TerminationTimeout, model.PhaseTimedOut)
	c.log.Warn().Str("phase", string(phase)).Msg("Event deadline reached, session timed out")
}

// Shutdown releases the timer and the monitor without grading anything.
// Used on server shutdown; the session can be resumed from persisted state.
func (c *Controller) Shutdown() {
	c.timer.Cancel()
	c.monitor.Deactivate()
}

// ─── Internal transitions ───────────────────────────────────────────

func (c *Controller) finish(ctx context.Context, reason model.TerminationReason, phase model.Phase) {
	c.mu.Lock()
	if c.sess.Phase.Terminal() {
		c.mu.Unlock()
		return
	}
	now := time.Now()
	c.sess.Phase = phase
	c.sess.FinishedAt = &now
	c.sess.PhaseDeadline = nil
	if c.sess.TerminationReason == nil || reason != model.TerminationNormal {
		c.sess.TerminationReason = &reason
	}
	c.mu.Unlock()

	c.monitor.Deactivate()
	c.persistSession(ctx)
	c.emitPhaseChange(phase)
}

func (c *Controller) recordQuiz(ctx context.Context, answers map[string]string, score float64, started time.Time) {
	payload, _ := json.Marshal(model.MCQPayload{Answers: answers})
	sub := &model.Submission{
		SessionID:        c.sess.ID,
		Type:             model.SubmissionTypeMCQ,
		Payload:          payload,
		Score:            score,
		TimeTakenSeconds: int(time.Since(started).Seconds()),
	}
	if err := c.gw.RecordSubmission(ctx, sub); err != nil {
		c.reportPersistError(fmt.Errorf("record mcq submission: %w", err))
	}
	if err := c.gw.AddAggregateScore(ctx, c.sess.ParticipantID, c.sess.EventID, score); err != nil {
		c.reportPersistError(fmt.Errorf("add quiz aggregate: %w", err))
	}
}

func (c *Controller) recordCoding(ctx context.Context, language, code string, score float64, started time.Time) {
	payload, _ := json.Marshal(model.CodingPayload{Language: language, Code: code})
	sub := &model.Submission{
		SessionID:        c.sess.ID,
		Type:             model.SubmissionTypeCoding,
		Payload:          payload,
		Score:            score,
		TimeTakenSeconds: int(time.Since(started).Seconds()),
	}
	if err := c.gw.RecordSubmission(ctx, sub); err != nil {
		c.reportPersistError(fmt.Errorf("record coding submission: %w", err))
	}
	if err := c.gw.AddAggregateScore(ctx, c.sess.ParticipantID, c.sess.EventID, score); err != nil {
		c.reportPersistError(fmt.Errorf("add coding aggregate: %w", err))
	}
}

// evaluateCoding calls the execution service; a failure grades as zero
// rather than blocking the terminal transition.
func (c *Controller) evaluateCoding(ctx context.Context, language, code string, tests []model.TestCase) float64 {
	if code == "" || len(tests) == 0 {
		return 0
	}
	result, err := c.eval.Evaluate(ctx, language, code, tests)
	if err != nil {
		c.log.Error().Err(err).Msg("Execution service failed, scoring zero")
		return 0
	}
	return result.Score
}

// persistSession is best-effort: failures are surfaced, never blocking.
func (c *Controller) persistSession(ctx context.Context) {
	c.mu.Lock()
	snapshot := *c.sess
	c.mu.Unlock()
	if err := c.gw.UpdateSession(ctx, &snapshot); err != nil {
		c.reportPersistError(fmt.Errorf("update session: %w", err))
	}
}

func (c *Controller) reportPersistError(err error) {
	c.log.Error().Err(err).Msg("Persistence failure, phase advances anyway")
	if ev := c.snapshotEvents(); ev.OnPersistError != nil {
		ev.OnPersistError(err)
	}
}

func (c *Controller) snapshotEvents() Events {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

func (c *Controller) emitPhaseChange(phase model.Phase) {
	if ev := c.snapshotEvents(); ev.OnPhaseChange != nil {
		ev.OnPhaseChange(phase)
	}
}

// ─── Timer callbacks ────────────────────────────────────────────────

func (c *Controller) tickQuiz(remaining int) {
	if ev := c.snapshotEvents(); ev.OnTick != nil {
		ev.OnTick(model.PhaseQuiz, remaining)
	}
}

func (c *Controller) expireQuiz() {
	_ = c.SubmitQuiz(context.Background(), TriggerTimeout)
}

func (c *Controller) tickCoding(remaining int) {
	if ev := c.snapshotEvents(); ev.OnTick != nil {
		ev.OnTick(model.PhaseCoding, remaining)
	}
}

func (c *Controller) expireCoding() {
	_ = c.SubmitCoding(context.Background(), TriggerTimeout)
}

// ─── Monitor callbacks ──────────────────────────────────────────────

func (c *Controller) handleWarning(count, max int) {
	c.mu.Lock()
	c.sess.WarningCount = count
	c.mu.Unlock()
	if ev := c.snapshotEvents(); ev.OnWarning != nil {
		ev.OnWarning(count, max)
	}
}

func (c *Controller) handleDeterrent(sig Signal) {
	if ev := c.snapshotEvents(); ev.OnDeterrent != nil {
		ev.OnDeterrent(sig)
	}
}

// handleAutoSubmit forces the open phase closed when the violation threshold
// is reached. The monitor has already disabled itself.
func (c *Controller) handleAutoSubmit() {
	switch c.Phase() {
	case model.PhaseQuiz:
		_ = c.SubmitQuiz(context.Background(), TriggerViolation)
	case model.PhaseCoding:
		_ = c.SubmitCoding(context.Background(), TriggerViolation)
	}
}

func (c *Controller) handleEventEnded() {
	if ev := c.snapshotEvents(); ev.OnEventEnded != nil {
		ev.OnEventEnded()
	}
	c.ForceEnd(context.Background())
}
