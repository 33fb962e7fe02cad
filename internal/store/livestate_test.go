package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*LiveStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLiveStore(client), mr
}

func TestAnswerAutosaveRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	challengeID := uuid.NewString()

	if err := s.SaveAnswer(ctx, challengeID, 7, "q1", "a"); err != nil {
		t.Fatalf("save answer: %v", err)
	}
	if err := s.SaveAnswer(ctx, challengeID, 7, "q2", "c"); err != nil {
		t.Fatalf("save answer: %v", err)
	}
	// Re-answering overwrites, it never appends.
	if err := s.SaveAnswer(ctx, challengeID, 7, "q1", "b"); err != nil {
		t.Fatalf("save answer: %v", err)
	}

	answers, err := s.Answers(ctx, challengeID, 7)
	if err != nil {
		t.Fatalf("load answers: %v", err)
	}
	if len(answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(answers))
	}
	if answers["q1"] != "b" || answers["q2"] != "c" {
		t.Errorf("unexpected answers: %v", answers)
	}

	// Another participant's hash is untouched.
	other, err := s.Answers(ctx, challengeID, 8)
	if err != nil {
		t.Fatalf("load answers: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected empty hash for other participant, got %v", other)
	}
}

func TestCodeDraftRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	challengeID := uuid.NewString()

	draft, err := s.Code(ctx, challengeID, 3)
	if err != nil {
		t.Fatalf("load missing draft: %v", err)
	}
	if draft != nil {
		t.Fatal("expected nil draft before any save")
	}

	if err := s.SaveCode(ctx, challengeID, 3, "python", "print(1)"); err != nil {
		t.Fatalf("save code: %v", err)
	}

	draft, err = s.Code(ctx, challengeID, 3)
	if err != nil {
		t.Fatalf("load draft: %v", err)
	}
	if draft == nil || draft.Language != "python" || draft.Code != "print(1)" {
		t.Errorf("unexpected draft: %+v", draft)
	}
}

func TestSessionStartFallsBackOnMiss(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	challengeID := uuid.NewString()

	_, ok, err := s.SessionStart(ctx, challengeID, 1)
	if err != nil {
		t.Fatalf("read missing start: %v", err)
	}
	if ok {
		t.Fatal("expected miss before any write")
	}

	started := time.Now().Truncate(time.Second)
	if err := s.SetSessionStart(ctx, challengeID, 1, started); err != nil {
		t.Fatalf("set start: %v", err)
	}

	got, ok, err := s.SessionStart(ctx, challengeID, 1)
	if err != nil {
		t.Fatalf("read start: %v", err)
	}
	if !ok || !got.Equal(started) {
		t.Errorf("expected %v, got %v (ok=%v)", started, got, ok)
	}
}

func TestWarningsDefaultToZero(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	challengeID := uuid.NewString()

	count, err := s.Warnings(ctx, challengeID, 2)
	if err != nil {
		t.Fatalf("read warnings: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 warnings, got %d", count)
	}

	if err := s.SetWarnings(ctx, challengeID, 2, 2); err != nil {
		t.Fatalf("set warnings: %v", err)
	}
	count, err = s.Warnings(ctx, challengeID, 2)
	if err != nil {
		t.Fatalf("read warnings: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 warnings, got %d", count)
	}
}

func TestClearSessionRemovesAllHotState(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	challengeID := uuid.NewString()

	_ = s.SaveAnswer(ctx, challengeID, 5, "q1", "a")
	_ = s.SaveCode(ctx, challengeID, 5, "go", "package main")
	_ = s.SetWarnings(ctx, challengeID, 5, 1)
	_ = s.SetSessionStart(ctx, challengeID, 5, time.Now())

	if err := s.ClearSession(ctx, challengeID, 5); err != nil {
		t.Fatalf("clear session: %v", err)
	}

	answers, _ := s.Answers(ctx, challengeID, 5)
	if len(answers) != 0 {
		t.Errorf("answers survived clear: %v", answers)
	}
	draft, _ := s.Code(ctx, challengeID, 5)
	if draft != nil {
		t.Error("code draft survived clear")
	}
	if count, _ := s.Warnings(ctx, challengeID, 5); count != 0 {
		t.Errorf("warnings survived clear: %d", count)
	}
	if _, ok, _ := s.SessionStart(ctx, challengeID, 5); ok {
		t.Error("session start survived clear")
	}
}

func TestChallengeCachesRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	challengeID := uuid.New()
	questions := []model.Question{
		{ID: uuid.New(), CorrectOption: "a"},
		{ID: uuid.New(), CorrectOption: "b"},
	}

	if p, err := s.Payload(ctx, challengeID.String()); err != nil || p != nil {
		t.Fatalf("expected payload miss, got %+v err=%v", p, err)
	}

	payload := &model.ChallengePayload{
		ChallengeID:         challengeID,
		Title:               "sorting basics",
		QuizDurationMinutes: 15,
		Questions: []model.QuestionForParticipant{
			{ID: questions[0].ID, Prompt: "pick one"},
		},
	}
	if err := s.CachePayload(ctx, payload); err != nil {
		t.Fatalf("cache payload: %v", err)
	}
	if err := s.CacheAnswerKey(ctx, challengeID, questions); err != nil {
		t.Fatalf("cache answer key: %v", err)
	}

	got, err := s.Payload(ctx, challengeID.String())
	if err != nil {
		t.Fatalf("load payload: %v", err)
	}
	if got.Title != "sorting basics" || len(got.Questions) != 1 {
		t.Errorf("unexpected payload: %+v", got)
	}

	key, err := s.AnswerKey(ctx, challengeID.String())
	if err != nil {
		t.Fatalf("load answer key: %v", err)
	}
	if key[questions[0].ID.String()] != "a" || key[questions[1].ID.String()] != "b" {
		t.Errorf("unexpected answer key: %v", key)
	}

	// Re-caching replaces the hash wholesale; stale questions must not linger.
	if err := s.CacheAnswerKey(ctx, challengeID, questions[:1]); err != nil {
		t.Fatalf("re-cache answer key: %v", err)
	}
	key, _ = s.AnswerKey(ctx, challengeID.String())
	if len(key) != 1 {
		t.Errorf("stale answer key entries survived replace: %v", key)
	}

	if err := s.InvalidateChallenge(ctx, challengeID.String()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if p, _ := s.Payload(ctx, challengeID.String()); p != nil {
		t.Error("payload survived invalidation")
	}
	if key, _ := s.AnswerKey(ctx, challengeID.String()); len(key) != 0 {
		t.Error("answer key survived invalidation")
	}
}

func TestLeaderboardSnapshotExpires(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	eventID := uuid.NewString()

	entries := []model.LeaderboardEntry{
		{Rank: 1, ParticipantID: 4, Name: "dina", TotalScore: 180},
		{Rank: 2, ParticipantID: 9, Name: "rafi", TotalScore: 120},
	}
	if err := s.CacheLeaderboard(ctx, eventID, entries, 10*time.Second); err != nil {
		t.Fatalf("cache leaderboard: %v", err)
	}

	got, err := s.Leaderboard(ctx, eventID)
	if err != nil {
		t.Fatalf("load leaderboard: %v", err)
	}
	if len(got) != 2 || got[0].Name != "dina" {
		t.Errorf("unexpected snapshot: %+v", got)
	}

	mr.FastForward(11 * time.Second)

	got, err = s.Leaderboard(ctx, eventID)
	if err != nil {
		t.Fatalf("load expired leaderboard: %v", err)
	}
	if got != nil {
		t.Errorf("expected expiry, got %+v", got)
	}
}
