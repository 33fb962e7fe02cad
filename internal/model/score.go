package model

import (
	"time"

	"github.com/google/uuid"
)

// AggregateScore is the running total across all phases and challenges for a
// participant within one event. Totals are additive and monotonically
// non-decreasing; writes go through an atomic add-delta upsert.
type AggregateScore struct {
	ParticipantID int       `json:"participant_id"`
	EventID       uuid.UUID `json:"event_id"`
	TotalScore    float64   `json:"total_score"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LeaderboardEntry is one ranked row of an event leaderboard.
type LeaderboardEntry struct {
	Rank          int     `json:"rank"`
	ParticipantID int     `json:"participant_id"`
	Name          string  `json:"name"`
	TotalScore    float64 `json:"total_score"`
}
