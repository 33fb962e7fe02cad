package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
	"github.com/mavericks-edu/mavericks-backend/internal/repository"
	"github.com/mavericks-edu/mavericks-backend/internal/store"
	"github.com/rs/zerolog"
)

// LeaderboardTTL bounds how stale a served leaderboard can be. Short enough
// to feel live during an event, long enough to shield PostgreSQL.
const LeaderboardTTL = 5 * time.Second

// LeaderboardService serves event rankings with a Redis snapshot cache in
// front of the aggregate score table.
type LeaderboardService struct {
	scores *repository.ScoreRepository
	live   *store.LiveStore
	log    zerolog.Logger
}

// NewLeaderboardService creates a new LeaderboardService.
func NewLeaderboardService(scores *repository.ScoreRepository, live *store.LiveStore, log zerolog.Logger) *LeaderboardService {
	return &LeaderboardService{
		scores: scores,
		live:   live,
		log:    log.With().Str("component", "leaderboard_service").Logger(),
	}
}

// Top returns the event's ranked entries, cache first.
func (s *LeaderboardService) Top(ctx context.Context, eventID uuid.UUID, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	cached, err := s.live.Leaderboard(ctx, eventID.String())
	if err == nil && cached != nil && len(cached) >= limit {
		return cached[:limit], nil
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("Leaderboard cache read failed")
	}

	entries, err := s.scores.TopN(ctx, eventID, limit)
	if err != nil {
		return nil, err
	}
	if err := s.live.CacheLeaderboard(ctx, eventID.String(), entries, LeaderboardTTL); err != nil {
		s.log.Warn().Err(err).Msg("Leaderboard cache write failed")
	}
	return entries, nil
}

// ParticipantScore returns one participant's running total for an event.
func (s *LeaderboardService) ParticipantScore(ctx context.Context, participantID int, eventID uuid.UUID) (*model.AggregateScore, error) {
	return s.scores.Get(ctx, participantID, eventID)
}
