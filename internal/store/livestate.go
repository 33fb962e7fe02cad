package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mavericks-edu/mavericks-backend/internal/config"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// LiveStore holds the hot per-session state in Redis: autosaved answers, code
// drafts, warning counts and session start times, plus the published
// challenge payload caches. PostgreSQL stays the source of truth; everything
// here can be rebuilt from it.
type LiveStore struct {
	rdb *redis.Client
}

// NewLiveStore creates a LiveStore backed by the given Redis client.
func NewLiveStore(rdb *redis.Client) *LiveStore {
	return &LiveStore{rdb: rdb}
}

// ─── Session hot state ──────────────────────────────────────────────

// SaveAnswer autosaves one quiz answer in the session's answer hash.
func (s *LiveStore) SaveAnswer(ctx context.Context, challengeID string, participantID int, questionID, answer string) error {
	return s.rdb.HSet(ctx, config.CacheKey.SessionAnswersKey(challengeID, participantID), questionID, answer).Err()
}

// Answers returns all autosaved answers for the session. An empty map means
// nothing has been answered yet.
func (s *LiveStore) Answers(ctx context.Context, challengeID string, participantID int) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, config.CacheKey.SessionAnswersKey(challengeID, participantID)).Result()
}

// SaveCode autosaves the participant's current code draft.
func (s *LiveStore) SaveCode(ctx context.Context, challengeID string, participantID int, language, code string) error {
	data, err := json.Marshal(model.CodingPayload{Language: language, Code: code})
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, config.CacheKey.SessionCodeKey(challengeID, participantID), data, 0).Err()
}

// Code returns the autosaved code draft, or nil when none exists.
func (s *LiveStore) Code(ctx context.Context, challengeID string, participantID int) (*model.CodingPayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.SessionCodeKey(challengeID, participantID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var payload model.CodingPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SetWarnings records the session's current proctoring warning count.
func (s *LiveStore) SetWarnings(ctx context.Context, challengeID string, participantID, count int) error {
	return s.rdb.Set(ctx, config.CacheKey.SessionWarningsKey(challengeID, participantID), count, 0).Err()
}

// Warnings returns the recorded warning count, zero when absent.
func (s *LiveStore) Warnings(ctx context.Context, challengeID string, participantID int) (int, error) {
	val, err := s.rdb.Get(ctx, config.CacheKey.SessionWarningsKey(challengeID, participantID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}

// SetSessionStart records the session start as a unix timestamp so remaining
// time survives reconnects and restarts.
func (s *LiveStore) SetSessionStart(ctx context.Context, challengeID string, participantID int, startedAt time.Time) error {
	return s.rdb.Set(ctx, config.CacheKey.SessionStartKey(challengeID, participantID), startedAt.Unix(), 0).Err()
}

// SessionStart returns the recorded start time. The second return is false
// when Redis has no record (evicted or never written); the caller falls back
// to PostgreSQL and self-heals.
func (s *LiveStore) SessionStart(ctx context.Context, challengeID string, participantID int) (time.Time, bool, error) {
	val, err := s.rdb.Get(ctx, config.CacheKey.SessionStartKey(challengeID, participantID)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(unix, 0), true, nil
}

// ClearSession removes all hot state for one session after it reaches a
// terminal phase.
func (s *LiveStore) ClearSession(ctx context.Context, challengeID string, participantID int) error {
	return s.rdb.Del(ctx,
		config.CacheKey.SessionAnswersKey(challengeID, participantID),
		config.CacheKey.SessionCodeKey(challengeID, participantID),
		config.CacheKey.SessionWarningsKey(challengeID, participantID),
		config.CacheKey.SessionStartKey(challengeID, participantID),
	).Err()
}

// ─── Challenge caches ───────────────────────────────────────────────

// CachePayload stores the participant-facing challenge payload (questions
// without correct answers). Written on publish and at startup prewarm.
func (s *LiveStore) CachePayload(ctx context.Context, payload *model.ChallengePayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, config.CacheKey.ChallengePayloadKey(payload.ChallengeID.String()), data, 0).Err()
}

// Payload returns the cached challenge payload, or nil on cache miss.
func (s *LiveStore) Payload(ctx context.Context, challengeID string) (*model.ChallengePayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ChallengePayloadKey(challengeID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var payload model.ChallengePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// CacheAnswerKey stores the quiz answer key as a question→option hash.
func (s *LiveStore) CacheAnswerKey(ctx context.Context, challengeID uuid.UUID, questions []model.Question) error {
	key := config.CacheKey.ChallengeAnswerKey(challengeID.String())
	pairs := make([]interface{}, 0, len(questions)*2)
	for _, q := range questions {
		pairs = append(pairs, q.ID.String(), q.CorrectOption)
	}
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, pairs...)
	_, err := pipe.Exec(ctx)
	return err
}

// AnswerKey returns the cached answer key hash, empty on cache miss.
func (s *LiveStore) AnswerKey(ctx context.Context, challengeID string) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, config.CacheKey.ChallengeAnswerKey(challengeID)).Result()
}

// CacheProblem stores the full coding problem, hidden test cases included.
// Only the server reads this key.
func (s *LiveStore) CacheProblem(ctx context.Context, problem *model.Problem) error {
	data, err := json.Marshal(problem)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, config.CacheKey.ChallengeProblemKey(problem.ChallengeID.String()), data, 0).Err()
}

// Problem returns the cached coding problem, or nil on cache miss.
func (s *LiveStore) Problem(ctx context.Context, challengeID string) (*model.Problem, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ChallengeProblemKey(challengeID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var problem model.Problem
	if err := json.Unmarshal(data, &problem); err != nil {
		return nil, err
	}
	return &problem, nil
}

// InvalidateChallenge drops all cached artifacts of a challenge. Called when
// a challenge is archived or its content changes.
func (s *LiveStore) InvalidateChallenge(ctx context.Context, challengeID string) error {
	return s.rdb.Del(ctx,
		config.CacheKey.ChallengePayloadKey(challengeID),
		config.CacheKey.ChallengeAnswerKey(challengeID),
		config.CacheKey.ChallengeProblemKey(challengeID),
	).Err()
}

// ─── Leaderboard snapshot ───────────────────────────────────────────

// CacheLeaderboard stores a leaderboard snapshot with a short TTL so repeated
// reads during an event do not hammer PostgreSQL.
func (s *LiveStore) CacheLeaderboard(ctx context.Context, eventID string, entries []model.LeaderboardEntry, ttl time.Duration) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, config.CacheKey.LeaderboardKey(eventID), data, ttl).Err()
}

// Leaderboard returns the cached snapshot, or nil on miss/expiry.
func (s *LiveStore) Leaderboard(ctx context.Context, eventID string) ([]model.LeaderboardEntry, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.LeaderboardKey(eventID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []model.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
