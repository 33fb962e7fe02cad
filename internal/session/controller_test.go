package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
	"github.com/rs/zerolog"
)

// fakeGateway is an in-memory session.Gateway double. Aggregate scores are
// additive, mirroring the store's atomic add-delta upsert.
type fakeGateway struct {
	mu          sync.Mutex
	questions   []model.Question
	problem     *model.Problem
	submissions []model.Submission
	aggregates  map[string]float64
	failRecord  bool
}

func newFakeGateway(questions []model.Question, problem *model.Problem) *fakeGateway {
	return &fakeGateway{
		questions:  questions,
		problem:    problem,
		aggregates: make(map[string]float64),
	}
}

func (g *fakeGateway) LoadQuestions(ctx context.Context, challengeID uuid.UUID) ([]model.Question, error) {
	return g.questions, nil
}

func (g *fakeGateway) LoadProblem(ctx context.Context, challengeID uuid.UUID) (*model.Problem, error) {
	if g.problem == nil {
		return nil, errors.New("no problem")
	}
	return g.problem, nil
}

func (g *fakeGateway) RecordSubmission(ctx context.Context, sub *model.Submission) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failRecord {
		return errors.New("store unavailable")
	}
	g.submissions = append(g.submissions, *sub)
	return nil
}

func (g *fakeGateway) AddAggregateScore(ctx context.Context, participantID int, eventID uuid.UUID, delta float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := fmt.Sprintf("%d:%s", participantID, eventID)
	g.aggregates[key] += delta
	return nil
}

func (g *fakeGateway) FetchAggregateScore(ctx context.Context, participantID int, eventID uuid.UUID) (*model.AggregateScore, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := fmt.Sprintf("%d:%s", participantID, eventID)
	total, ok := g.aggregates[key]
	if !ok {
		return nil, nil
	}
	return &model.AggregateScore{ParticipantID: participantID, EventID: eventID, TotalScore: total}, nil
}

func (g *fakeGateway) UpdateSession(ctx context.Context, sess *model.Session) error {
	return nil
}

func (g *fakeGateway) submissionCount(typ model.SubmissionType) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, s := range g.submissions {
		if s.Type == typ {
			n++
		}
	}
	return n
}

func (g *fakeGateway) total(participantID int, eventID uuid.UUID) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.aggregates[fmt.Sprintf("%d:%s", participantID, eventID)]
}

// fakeEvaluator returns a fixed score.
type fakeEvaluator struct {
	score float64
	err   error
	calls int
}

func (e *fakeEvaluator) Evaluate(ctx context.Context, language, code string, tests []model.TestCase) (EvalResult, error) {
	e.calls++
	if e.err != nil {
		return EvalResult{}, e.err
	}
	return EvalResult{Score: e.score, Passed: int(e.score), Total: 100}, nil
}

func testQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{ID: uuid.New(), CorrectOption: fmt.Sprintf("opt-%d", i)}
	}
	return qs
}

func testProblem(difficulty model.Difficulty) *model.Problem {
	return &model.Problem{
		ID:         uuid.New(),
		Title:      "two sum",
		Difficulty: difficulty,
		TestCases:  []model.TestCase{{Input: "1 2", Expected: "3"}},
	}
}

func testSession() *model.Session {
	return &model.Session{
		ID:            uuid.New(),
		ChallengeID:   uuid.New(),
		EventID:       uuid.New(),
		ParticipantID: 7,
		Phase:         model.PhaseNotStarted,
		StartedAt:     time.Now(),
	}
}

func testConfig() Config {
	return Config{
		QuizDurationSeconds: 3600, // never expires during a test
		MaxWarnings:         2,
	}
}

func startController(t *testing.T, gw Gateway, eval Evaluator, cfg Config) *Controller {
	t.Helper()
	c := NewController(testSession(), gw, eval, cfg, zerolog.Nop())
	t.Cleanup(c.Shutdown)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start controller: %v", err)
	}
	return c
}

func TestFullMarksQuizAdvancesToCodingWithDifficultyDeadline(t *testing.T) {
	qs := testQuestions(10)
	gw := newFakeGateway(qs, testProblem(model.DifficultyEasy))
	eval := &fakeEvaluator{score: 50}

	var quizScore float64
	c := NewController(testSession(), gw, eval, testConfig(), zerolog.Nop())
	t.Cleanup(c.Shutdown)
	c.SetEvents(Events{OnQuizGraded: func(s float64) { quizScore = s }})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, q := range qs {
		if err := c.SelectAnswer(q.ID.String(), q.CorrectOption); err != nil {
			t.Fatalf("select answer: %v", err)
		}
	}

	if err := c.SubmitQuiz(context.Background(), TriggerManual); err != nil {
		t.Fatalf("submit quiz: %v", err)
	}

	if quizScore != 100 {
		t.Errorf("expected quiz score 100, got %v", quizScore)
	}
	if c.Phase() != model.PhaseCoding {
		t.Fatalf("expected coding phase, got %s", c.Phase())
	}
	// Easy problems get a 600-second deadline.
	if rem := c.RemainingSeconds(); rem < 595 || rem > 600 {
		t.Errorf("expected ~600s coding deadline, got %d", rem)
	}
	if got := gw.submissionCount(model.SubmissionTypeMCQ); got != 1 {
		t.Errorf("expected 1 mcq submission, got %d", got)
	}
}

func TestSimultaneousExpiryAndManualSubmitWriteOnce(t *testing.T) {
	qs := testQuestions(5)
	gw := newFakeGateway(qs, testProblem(model.DifficultyMedium))
	c := startController(t, gw, &fakeEvaluator{score: 10}, testConfig())

	// Fire the timer-expiry path and the manual path in the same instant.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.expireQuiz()
	}()
	go func() {
		defer wg.Done()
		_ = c.SubmitQuiz(context.Background(), TriggerManual)
	}()
	wg.Wait()

	if got := gw.submissionCount(model.SubmissionTypeMCQ); got != 1 {
		t.Fatalf("expected exactly one mcq submission, got %d", got)
	}
	if c.Phase() != model.PhaseCoding {
		t.Fatalf("expected coding phase after submit, got %s", c.Phase())
	}
}

func TestRepeatedSubmitIsIdempotent(t *testing.T) {
	qs := testQuestions(3)
	gw := newFakeGateway(qs, testProblem(model.DifficultyHard))
	c := startController(t, gw, &fakeEvaluator{score: 30}, testConfig())

	for i := 0; i < 5; i++ {
		if err := c.SubmitQuiz(context.Background(), TriggerManual); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	for i := 0; i < 5; i++ {
		if err := c.SubmitCoding(context.Background(), TriggerManual); err != nil {
			t.Fatalf("coding submit %d: %v", i, err)
		}
	}

	if got := gw.submissionCount(model.SubmissionTypeMCQ); got != 1 {
		t.Errorf("expected 1 mcq submission, got %d", got)
	}
	if got := gw.submissionCount(model.SubmissionTypeCoding); got != 1 {
		t.Errorf("expected 1 coding submission, got %d", got)
	}
	if c.Phase() != model.PhaseCompleted {
		t.Errorf("expected completed, got %s", c.Phase())
	}
}

func TestViolationThresholdAutoSubmitsQuiz(t *testing.T) {
	qs := testQuestions(4)
	gw := newFakeGateway(qs, testProblem(model.DifficultyMedium))
	c := startController(t, gw, &fakeEvaluator{score: 0}, testConfig())

	var warnings []int
	c.SetEvents(Events{OnWarning: func(count, max int) { warnings = append(warnings, count) }})

	c.ReportSignal(SignalTabHidden)
	c.ReportSignal(SignalWindowBlur)

	if got := gw.submissionCount(model.SubmissionTypeMCQ); got != 1 {
		t.Fatalf("expected auto-submitted mcq record, got %d", got)
	}
	if c.Phase() != model.PhaseCoding {
		t.Fatalf("expected coding phase after violation submit, got %s", c.Phase())
	}
	if len(warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", warnings)
	}

	// Further violations are no-ops: monitor fired terminally.
	c.ReportSignal(SignalTabHidden)
	c.ReportSignal(SignalTabHidden)
	if c.Warnings() != 2 {
		t.Errorf("warnings moved after terminal fire: %d", c.Warnings())
	}
	if c.Phase() != model.PhaseCoding {
		t.Errorf("phase moved on post-fire violations: %s", c.Phase())
	}
}

func TestAggregateScoreIsAdditiveAcrossPhases(t *testing.T) {
	qs := testQuestions(5)
	gw := newFakeGateway(qs, testProblem(model.DifficultyEasy))
	eval := &fakeEvaluator{score: 60}
	c := startController(t, gw, eval, testConfig())

	sessEvent := c.sess.EventID
	sessParticipant := c.sess.ParticipantID

	// 2 of 5 correct → quiz score 40.
	_ = c.SelectAnswer(qs[0].ID.String(), qs[0].CorrectOption)
	_ = c.SelectAnswer(qs[1].ID.String(), qs[1].CorrectOption)

	_ = c.SubmitQuiz(context.Background(), TriggerManual)
	if got := gw.total(sessParticipant, sessEvent); got != 40 {
		t.Fatalf("expected aggregate 40 after quiz, got %v", got)
	}

	_ = c.UpdateCode("go", "package main")
	_ = c.SubmitCoding(context.Background(), TriggerManual)
	if got := gw.total(sessParticipant, sessEvent); got != 100 {
		t.Fatalf("expected aggregate 100 after coding (40+60), got %v", got)
	}
}

func TestPersistenceFailureStillAdvancesPhase(t *testing.T) {
	qs := testQuestions(2)
	gw := newFakeGateway(qs, testProblem(model.DifficultyMedium))
	gw.failRecord = true
	c := startController(t, gw, &fakeEvaluator{score: 0}, testConfig())

	var persistErrs int
	c.SetEvents(Events{OnPersistError: func(err error) { persistErrs++ }})

	if err := c.SubmitQuiz(context.Background(), TriggerManual); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if c.Phase() != model.PhaseCoding {
		t.Fatalf("expected forward progress despite persist failure, got %s", c.Phase())
	}
	if persistErrs == 0 {
		t.Error("expected persist error to be surfaced")
	}
}

func TestExecutionFailureScoresZero(t *testing.T) {
	qs := testQuestions(2)
	gw := newFakeGateway(qs, testProblem(model.DifficultyMedium))
	eval := &fakeEvaluator{err: errors.New("sandbox down")}
	c := startController(t, gw, eval, testConfig())

	var codingScore = -1.0
	c.SetEvents(Events{OnCodingGraded: func(s float64) { codingScore = s }})

	_ = c.SubmitQuiz(context.Background(), TriggerManual)
	_ = c.UpdateCode("go", "package main")
	_ = c.SubmitCoding(context.Background(), TriggerManual)

	if codingScore != 0 {
		t.Errorf("expected zero score on execution failure, got %v", codingScore)
	}
	if c.Phase() != model.PhaseCompleted {
		t.Errorf("expected completed, got %s", c.Phase())
	}
}

func TestEventDeadlineForcesTimeout(t *testing.T) {
	qs := testQuestions(4)
	gw := newFakeGateway(qs, testProblem(model.DifficultyMedium))

	cfg := testConfig()
	cfg.EventDeadline = time.Now().Add(time.Hour)
	c := NewController(testSession(), gw, &fakeEvaluator{score: 0}, cfg, zerolog.Nop())
	t.Cleanup(c.Shutdown)

	var ended int
	c.SetEvents(Events{OnEventEnded: func() { ended++ }})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Pretend the clock moved past the event end.
	c.monitor.now = func() time.Time { return cfg.EventDeadline.Add(time.Minute) }
	c.ReportSignal(SignalTabHidden)

	if ended != 1 {
		t.Fatalf("expected one event-ended dispatch, got %d", ended)
	}
	if c.Phase() != model.PhaseTimedOut {
		t.Fatalf("expected timed out, got %s", c.Phase())
	}
	// The open quiz phase was graded with what was present.
	if got := gw.submissionCount(model.SubmissionTypeMCQ); got != 1 {
		t.Errorf("expected quiz graded on force-end, got %d submissions", got)
	}

	// Redundant signals stay silent.
	c.ReportSignal(SignalTabHidden)
	if ended != 1 {
		t.Errorf("event-ended fired redundantly: %d", ended)
	}
}

func TestStartRefusedAfterEventDeadline(t *testing.T) {
	qs := testQuestions(3)
	gw := newFakeGateway(qs, testProblem(model.DifficultyEasy))

	cfg := testConfig()
	cfg.EventDeadline = time.Now().Add(-time.Hour)
	c := NewController(testSession(), gw, &fakeEvaluator{score: 0}, cfg, zerolog.Nop())
	t.Cleanup(c.Shutdown)

	if err := c.Start(context.Background()); !errors.Is(err, ErrEventEnded) {
		t.Fatalf("expected ErrEventEnded, got %v", err)
	}
	if c.Phase() != model.PhaseNotStarted {
		t.Errorf("phase moved on refused start: %s", c.Phase())
	}
	if rem := c.RemainingSeconds(); rem != 0 {
		t.Errorf("refused start armed a timer: %ds remaining", rem)
	}
	if got := gw.submissionCount(model.SubmissionTypeMCQ); got != 0 {
		t.Errorf("refused start produced submissions: %d", got)
	}
}

func TestResumeMidQuizRestoresAnswersAndClock(t *testing.T) {
	qs := testQuestions(4)
	gw := newFakeGateway(qs, testProblem(model.DifficultyEasy))

	sess := testSession()
	sess.Phase = model.PhaseQuiz
	deadline := time.Now().Add(100 * time.Second)
	sess.PhaseDeadline = &deadline
	sess.WarningCount = 1

	c := NewController(sess, gw, &fakeEvaluator{score: 0}, testConfig(), zerolog.Nop())
	t.Cleanup(c.Shutdown)

	restored := map[string]string{
		qs[0].ID.String(): qs[0].CorrectOption,
		qs[1].ID.String(): qs[1].CorrectOption,
	}
	if err := c.Resume(context.Background(), restored, nil); err != nil {
		t.Fatalf("resume: %v", err)
	}

	if c.Phase() != model.PhaseQuiz {
		t.Fatalf("expected quiz phase after resume, got %s", c.Phase())
	}
	if rem := c.RemainingSeconds(); rem < 95 || rem > 100 {
		t.Errorf("expected ~100s remaining, got %d", rem)
	}
	if c.Warnings() != 1 {
		t.Errorf("expected restored warning count 1, got %d", c.Warnings())
	}

	// The restored answers must grade: 2 of 4 correct.
	var score = -1.0
	c.SetEvents(Events{OnQuizGraded: func(s float64) { score = s }})
	if err := c.SubmitQuiz(context.Background(), TriggerManual); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if score != 50 {
		t.Errorf("expected quiz score 50 from restored answers, got %v", score)
	}
}

func TestResumeExpiredQuizGradesOnTimeoutPath(t *testing.T) {
	qs := testQuestions(2)
	gw := newFakeGateway(qs, testProblem(model.DifficultyMedium))

	sess := testSession()
	sess.Phase = model.PhaseQuiz
	deadline := time.Now().Add(-time.Minute)
	sess.PhaseDeadline = &deadline

	c := NewController(sess, gw, &fakeEvaluator{score: 0}, testConfig(), zerolog.Nop())
	t.Cleanup(c.Shutdown)

	if err := c.Resume(context.Background(), nil, nil); err != nil {
		t.Fatalf("resume: %v", err)
	}

	if c.Phase() != model.PhaseCoding {
		t.Fatalf("expected coding phase after expired-deadline resume, got %s", c.Phase())
	}
	if got := gw.submissionCount(model.SubmissionTypeMCQ); got != 1 {
		t.Errorf("expected quiz graded immediately on resume, got %d submissions", got)
	}
}

func TestAnswersRejectedOutsideQuizPhase(t *testing.T) {
	qs := testQuestions(2)
	gw := newFakeGateway(qs, testProblem(model.DifficultyEasy))
	c := startController(t, gw, &fakeEvaluator{score: 0}, testConfig())

	_ = c.SubmitQuiz(context.Background(), TriggerManual)

	if err := c.SelectAnswer(qs[0].ID.String(), "late"); !errors.Is(err, ErrPhaseClosed) {
		t.Errorf("expected ErrPhaseClosed after quiz submit, got %v", err)
	}

	_ = c.SubmitCoding(context.Background(), TriggerManual)
	if err := c.UpdateCode("go", "late"); !errors.Is(err, ErrPhaseClosed) {
		t.Errorf("expected ErrPhaseClosed after coding submit, got %v", err)
	}
}

func TestQuizTimerExpiryAdvancesPhase(t *testing.T) {
	qs := testQuestions(2)
	gw := newFakeGateway(qs, testProblem(model.DifficultyEasy))

	cfg := testConfig()
	cfg.QuizDurationSeconds = 2
	cfg.TickInterval = 2 * time.Millisecond
	c := NewController(testSession(), gw, &fakeEvaluator{score: 0}, cfg, zerolog.Nop())
	t.Cleanup(c.Shutdown)

	phaseCh := make(chan model.Phase, 4)
	c.SetEvents(Events{OnPhaseChange: func(p model.Phase) { phaseCh <- p }})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		select {
		case p := <-phaseCh:
			if p == model.PhaseCoding {
				if got := gw.submissionCount(model.SubmissionTypeMCQ); got != 1 {
					t.Fatalf("expected 1 mcq submission after expiry, got %d", got)
				}
				return
			}
		case <-deadline:
			t.Fatal("quiz timer never advanced the phase")
		}
	}
}
